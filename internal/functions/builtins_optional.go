package functions

import (
	"google.golang.org/protobuf/proto"

	"github.com/funvibe/expreval/internal/values"
)

// OptionalOverloads returns optional.of, optional.none,
// optional.ofNonZeroValue and the optional receiver functions.
func OptionalOverloads() []*Overload {
	opt := values.OptionalKind
	return []*Overload{
		{ID: "optional_of", Name: "optional.of", Args: []values.Kind{dyn}, Strict: true, Impl: builtinOptionalOf},
		{ID: "optional_none", Name: "optional.none", Strict: true, Impl: builtinOptionalNone},
		{ID: "optional_of_non_zero_value", Name: "optional.ofNonZeroValue", Args: []values.Kind{dyn}, Strict: true, Impl: builtinOptionalOfNonZero},
		{ID: "optional_has_value", Name: "hasValue", ReceiverStyle: true, Args: []values.Kind{opt}, Strict: true, Impl: builtinHasValue},
		{ID: "optional_value", Name: "value", ReceiverStyle: true, Args: []values.Kind{opt}, Strict: true, Impl: builtinOptionalValue},
		{ID: "optional_or_value", Name: "orValue", ReceiverStyle: true, Args: []values.Kind{opt, dyn}, Strict: true, Impl: builtinOrValue},
		{ID: "optional_or_optional", Name: "or", ReceiverStyle: true, Args: []values.Kind{opt, opt}, Strict: true, Impl: builtinOrOptional},
	}
}

// optional.of: T -> optional(T)
func builtinOptionalOf(args ...values.Value) values.Value {
	return values.OptionalOf(args[0])
}

// optional.none: () -> optional(T)
func builtinOptionalNone(args ...values.Value) values.Value {
	return values.OptionalNone()
}

// optional.ofNonZeroValue: T -> optional(T), none for the zero value of T
func builtinOptionalOfNonZero(args ...values.Value) values.Value {
	if isZero(args[0]) {
		return values.OptionalNone()
	}
	return values.OptionalOf(args[0])
}

func isZero(v values.Value) bool {
	switch x := v.(type) {
	case values.Null:
		return true
	case values.Bool:
		return !bool(x)
	case values.Int:
		return x == 0
	case values.Uint:
		return x == 0
	case values.Double:
		return x == 0
	case values.String:
		return x == ""
	case values.Bytes:
		return len(x) == 0
	case values.Duration:
		return x == 0
	case values.Timestamp:
		return x.Time.Unix() == 0 && x.Time.Nanosecond() == 0
	case values.Enum:
		return x.Number == 0
	case values.Lister:
		return x.Size() == 0
	case values.Mapper:
		return x.Size() == 0
	case *values.Optional:
		return !x.HasValue()
	case *values.Message:
		return proto.Size(x.Proto()) == 0
	}
	return false
}

// hasValue: optional(T) -> bool
func builtinHasValue(args ...values.Value) values.Value {
	return values.Bool(args[0].(*values.Optional).HasValue())
}

// value: optional(T) -> T, error on none
func builtinOptionalValue(args ...values.Value) values.Value {
	o := args[0].(*values.Optional)
	if !o.HasValue() {
		return values.NewError(values.ErrInvalidArgument, "optional.none() dereference")
	}
	return o.Value()
}

// orValue: (optional(T), T) -> T
func builtinOrValue(args ...values.Value) values.Value {
	if o := args[0].(*values.Optional); o.HasValue() {
		return o.Value()
	}
	return args[1]
}

// or: (optional(T), optional(T)) -> optional(T)
func builtinOrOptional(args ...values.Value) values.Value {
	if o := args[0].(*values.Optional); o.HasValue() {
		return o
	}
	return args[1]
}
