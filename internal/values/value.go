// Package values holds the runtime value kinds the evaluator consumes:
// primitives, aggregates, messages, optionals, and the two control-affecting
// kinds, Error and Unknown.
package values

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is implemented by every runtime value. Values are immutable once
// published; the evaluator shares them between the stack and slots freely.
type Value interface {
	Kind() Kind
	Inspect() string
}

type Null struct{}

type Bool bool

type Int int64

type Uint uint64

type Double float64

type String string

// Bytes must not be modified after construction.
type Bytes []byte

type Duration time.Duration

type Timestamp struct {
	Time time.Time
}

// Type is the value produced by type(x).
type Type struct {
	Name string
}

var (
	NullValue Value = Null{}
	True            = Bool(true)
	False           = Bool(false)
)

func (Null) Kind() Kind      { return NullKind }
func (Bool) Kind() Kind      { return BoolKind }
func (Int) Kind() Kind       { return IntKind }
func (Uint) Kind() Kind      { return UintKind }
func (Double) Kind() Kind    { return DoubleKind }
func (String) Kind() Kind    { return StringKind }
func (Bytes) Kind() Kind     { return BytesKind }
func (Duration) Kind() Kind  { return DurationKind }
func (Timestamp) Kind() Kind { return TimestampKind }
func (Type) Kind() Kind      { return TypeKind }

func (Null) Inspect() string     { return "null" }
func (b Bool) Inspect() string   { return strconv.FormatBool(bool(b)) }
func (i Int) Inspect() string    { return strconv.FormatInt(int64(i), 10) }
func (u Uint) Inspect() string   { return strconv.FormatUint(uint64(u), 10) + "u" }
func (s String) Inspect() string { return strconv.Quote(string(s)) }
func (t Type) Inspect() string   { return t.Name }

func (d Double) Inspect() string {
	f := float64(d)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func (b Bytes) Inspect() string {
	return "b" + strconv.Quote(string(b))
}

func (d Duration) Inspect() string {
	return fmt.Sprintf("duration(%q)", FormatDuration(time.Duration(d)))
}

func (t Timestamp) Inspect() string {
	return fmt.Sprintf("timestamp(%q)", t.Time.UTC().Format(time.RFC3339Nano))
}

// FormatDuration renders d in the seconds form used by the JSON mapping of
// google.protobuf.Duration, e.g. "1.5s".
func FormatDuration(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

// IsError reports whether v is an error value.
func IsError(v Value) bool {
	return v != nil && v.Kind() == ErrorKind
}

// IsUnknown reports whether v is an unknown value.
func IsUnknown(v Value) bool {
	return v != nil && v.Kind() == UnknownKind
}

// IsErrorOrUnknown reports whether v must be handled before any other
// processing.
func IsErrorOrUnknown(v Value) bool {
	if v == nil {
		return false
	}
	k := v.Kind()
	return k == ErrorKind || k == UnknownKind
}

// TypeOf returns the runtime type of v.
func TypeOf(v Value) Type {
	switch t := v.(type) {
	case *Message:
		return Type{Name: t.TypeName()}
	case Enum:
		return Type{Name: t.TypeName}
	}
	return Type{Name: v.Kind().String()}
}
