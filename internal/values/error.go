package values

import "fmt"

// ErrorCode classifies an evaluation-result error.
type ErrorCode string

const (
	ErrNotFound           ErrorCode = "not_found"
	ErrInvalidArgument    ErrorCode = "invalid_argument"
	ErrDivisionByZero     ErrorCode = "division_by_zero"
	ErrModulusByZero      ErrorCode = "modulus_by_zero"
	ErrNoMatchingOverload ErrorCode = "no_matching_overload"
	ErrNoSuchKey          ErrorCode = "no_such_key"
	ErrNoSuchField        ErrorCode = "no_such_field"
	ErrOverflow           ErrorCode = "overflow"
	ErrTypeConversion     ErrorCode = "type_conversion"
	ErrMissingAttribute   ErrorCode = "missing_attribute"
	ErrIterationLimit     ErrorCode = "iteration_limit"
)

// Error is a business-logic failure that flows through evaluation like any
// other value. It is not a Go error: internal faults are reported
// separately by the evaluator.
type Error struct {
	Code    ErrorCode
	Message string
}

func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Kind() Kind { return ErrorKind }
func (e *Error) Inspect() string {
	return fmt.Sprintf("error(%s): %s", e.Code, e.Message)
}

// Equal compares code and message.
func (e *Error) Equal(other *Error) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Code == other.Code && e.Message == other.Message
}

// NoMatchingOverload is the error produced when a call cannot be dispatched.
func NoMatchingOverload(function string, args ...Value) *Error {
	kinds := make([]interface{}, 0, len(args))
	for _, a := range args {
		kinds = append(kinds, TypeOf(a).Name)
	}
	return NewError(ErrNoMatchingOverload, "no matching overload for '%s' applied to %v", function, kinds)
}
