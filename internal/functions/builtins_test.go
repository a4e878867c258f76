package functions

import (
	"math"
	"testing"
	"time"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"

	"github.com/funvibe/expreval/internal/values"
)

var valueCmp = cmp.Comparer(func(a, b values.Value) bool {
	return a.Kind() == b.Kind() && values.Equal(a, b)
})

var std = Standard()

func call(t *testing.T, name string, receiverStyle bool, args ...values.Value) values.Value {
	t.Helper()
	fn, ok := std.Lookup(name)
	qt.Assert(t, qt.IsTrue(ok), qt.Commentf("function %s", name))
	return fn.Dispatch(receiverStyle, args)
}

func errCode(v values.Value) values.ErrorCode {
	if e, ok := v.(*values.Error); ok {
		return e.Code
	}
	return ""
}

func TestArithmetic(t *testing.T) {
	ts := values.Timestamp{Time: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tests := []struct {
		fn       string
		args     []values.Value
		expected values.Value
	}{
		{"_+_", []values.Value{values.Int(2), values.Int(3)}, values.Int(5)},
		{"_+_", []values.Value{values.Uint(2), values.Uint(3)}, values.Uint(5)},
		{"_+_", []values.Value{values.Double(0.5), values.Double(0.25)}, values.Double(0.75)},
		{"_+_", []values.Value{values.String("ab"), values.String("c")}, values.String("abc")},
		{"_+_", []values.Value{values.Bytes("a"), values.Bytes("b")}, values.Bytes("ab")},
		{"_+_", []values.Value{values.NewList(values.Int(1)), values.NewList(values.Int(2))}, values.NewList(values.Int(1), values.Int(2))},
		{"_+_", []values.Value{ts, values.Duration(time.Hour)}, values.Timestamp{Time: ts.Time.Add(time.Hour)}},
		{"_-_", []values.Value{values.Int(2), values.Int(3)}, values.Int(-1)},
		{"_-_", []values.Value{ts, ts}, values.Duration(0)},
		{"_*_", []values.Value{values.Int(-4), values.Int(3)}, values.Int(-12)},
		{"_/_", []values.Value{values.Int(7), values.Int(2)}, values.Int(3)},
		{"_/_", []values.Value{values.Double(1), values.Double(4)}, values.Double(0.25)},
		{"_%_", []values.Value{values.Int(-7), values.Int(3)}, values.Int(-1)},
		{"-_", []values.Value{values.Int(5)}, values.Int(-5)},
		{"-_", []values.Value{values.Double(1.5)}, values.Double(-1.5)},
	}
	for _, tt := range tests {
		got := call(t, tt.fn, false, tt.args...)
		qt.Check(t, qt.CmpEquals(got, tt.expected, valueCmp), qt.Commentf("%s%v", tt.fn, tt.args))
	}
}

func TestArithmeticErrors(t *testing.T) {
	tests := []struct {
		fn   string
		args []values.Value
		code values.ErrorCode
	}{
		{"_/_", []values.Value{values.Int(1), values.Int(0)}, values.ErrDivisionByZero},
		{"_/_", []values.Value{values.Uint(1), values.Uint(0)}, values.ErrDivisionByZero},
		{"_%_", []values.Value{values.Int(1), values.Int(0)}, values.ErrModulusByZero},
		{"_+_", []values.Value{values.Int(math.MaxInt64), values.Int(1)}, values.ErrOverflow},
		{"_-_", []values.Value{values.Int(math.MinInt64), values.Int(1)}, values.ErrOverflow},
		{"_-_", []values.Value{values.Uint(1), values.Uint(2)}, values.ErrOverflow},
		{"_*_", []values.Value{values.Int(math.MaxInt64), values.Int(2)}, values.ErrOverflow},
		{"_/_", []values.Value{values.Int(math.MinInt64), values.Int(-1)}, values.ErrOverflow},
		{"-_", []values.Value{values.Int(math.MinInt64)}, values.ErrOverflow},
		{"_+_", []values.Value{values.Int(1), values.Uint(1)}, values.ErrNoMatchingOverload},
	}
	for _, tt := range tests {
		got := call(t, tt.fn, false, tt.args...)
		qt.Check(t, qt.Equals(errCode(got), tt.code), qt.Commentf("%s%v = %s", tt.fn, tt.args, got.Inspect()))
	}
}

func TestMutableListAppendsInPlace(t *testing.T) {
	acc := values.NewMutableList(0)
	got := call(t, "_+_", false, acc, values.NewList(values.Int(1)))
	qt.Assert(t, qt.Equals[values.Value](got, acc))
	call(t, "_+_", false, acc, values.NewList(values.Int(2)))
	qt.Check(t, qt.Equals(acc.Snapshot().Inspect(), "[1, 2]"))
}

func TestRelations(t *testing.T) {
	qt.Check(t, qt.Equals[values.Value](call(t, "_<_", false, values.Int(1), values.Uint(2)), values.True))
	qt.Check(t, qt.Equals[values.Value](call(t, "_>=_", false, values.Double(2), values.Int(2)), values.True))
	qt.Check(t, qt.Equals[values.Value](call(t, "_>_", false, values.String("a"), values.String("b")), values.False))
	qt.Check(t, qt.Equals[values.Value](call(t, "_<_", false, values.Double(math.NaN()), values.Int(1)), values.False))
	qt.Check(t, qt.Equals(errCode(call(t, "_<_", false, values.String("a"), values.Int(1))), values.ErrNoMatchingOverload))
}

func TestCore(t *testing.T) {
	list := values.NewList(values.Int(1), values.String("x"))
	qt.Check(t, qt.Equals[values.Value](call(t, "@in", false, values.Double(1), list), values.True))
	qt.Check(t, qt.Equals[values.Value](call(t, "@in", false, values.String("y"), list), values.False))
	qt.Check(t, qt.Equals[values.Value](call(t, "_==_", false, values.Uint(1), values.Int(1)), values.True))
	qt.Check(t, qt.Equals[values.Value](call(t, "_!=_", false, values.Int(1), values.String("1")), values.True))
	qt.Check(t, qt.Equals[values.Value](call(t, "!_", false, values.True), values.False))
	qt.Check(t, qt.Equals[values.Value](call(t, "size", false, values.String("héllo")), values.Int(5)))
	qt.Check(t, qt.Equals[values.Value](call(t, "size", true, list), values.Int(2)))
	qt.Check(t, qt.Equals[values.Value](call(t, "type", false, values.Uint(1)), values.Type{Name: "uint"}))

	// Non-strict: errors and unknowns pass through the function.
	qt.Check(t, qt.Equals[values.Value](call(t, "@not_strictly_false", false, values.False), values.False))
	qt.Check(t, qt.Equals[values.Value](call(t, "@not_strictly_false", false, values.NewError(values.ErrNotFound, "x")), values.True))
}

func TestConversions(t *testing.T) {
	tests := []struct {
		fn       string
		arg      values.Value
		expected values.Value
	}{
		{"int", values.Uint(3), values.Int(3)},
		{"int", values.Double(-2.7), values.Int(-2)},
		{"int", values.String("-42"), values.Int(-42)},
		{"int", values.Enum{TypeName: "E", Number: 7}, values.Int(7)},
		{"uint", values.Int(3), values.Uint(3)},
		{"double", values.String("1.5"), values.Double(1.5)},
		{"string", values.Double(1), values.String("1")},
		{"string", values.Uint(9), values.String("9")},
		{"string", values.Bytes("hi"), values.String("hi")},
		{"string", values.Duration(90 * time.Second), values.String("90s")},
		{"bytes", values.String("hi"), values.Bytes("hi")},
		{"bool", values.String("true"), values.True},
		{"duration", values.String("1m30s"), values.Duration(90 * time.Second)},
		{"timestamp", values.String("2024-01-02T03:04:05Z"), values.Timestamp{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}},
	}
	for _, tt := range tests {
		got := call(t, tt.fn, false, tt.arg)
		qt.Check(t, qt.CmpEquals(got, tt.expected, valueCmp), qt.Commentf("%s(%s)", tt.fn, tt.arg.Inspect()))
	}

	qt.Check(t, qt.Equals(errCode(call(t, "int", false, values.Uint(math.MaxUint64))), values.ErrTypeConversion))
	qt.Check(t, qt.Equals(errCode(call(t, "uint", false, values.Int(-1))), values.ErrTypeConversion))
	qt.Check(t, qt.Equals(errCode(call(t, "int", false, values.String("x"))), values.ErrTypeConversion))
	qt.Check(t, qt.Equals(errCode(call(t, "string", false, values.Bytes{0xff})), values.ErrTypeConversion))
}

func TestStrings(t *testing.T) {
	s := values.String("hello world")
	qt.Check(t, qt.Equals[values.Value](call(t, "contains", true, s, values.String("lo w")), values.True))
	qt.Check(t, qt.Equals[values.Value](call(t, "startsWith", true, s, values.String("hello")), values.True))
	qt.Check(t, qt.Equals[values.Value](call(t, "endsWith", true, s, values.String("hello")), values.False))
	qt.Check(t, qt.Equals[values.Value](call(t, "matches", true, s, values.String("w.r")), values.True))
	qt.Check(t, qt.Equals[values.Value](call(t, "matches", false, s, values.String("^world")), values.False))
	qt.Check(t, qt.Equals(errCode(call(t, "matches", true, s, values.String("("))), values.ErrInvalidArgument))
}

func TestTimeAccessors(t *testing.T) {
	ts := values.Timestamp{Time: time.Date(2024, 3, 1, 23, 30, 15, 250*int(time.Millisecond), time.UTC)}
	tests := []struct {
		fn       string
		args     []values.Value
		expected values.Value
	}{
		{"getFullYear", []values.Value{ts}, values.Int(2024)},
		{"getMonth", []values.Value{ts}, values.Int(2)},
		{"getDayOfMonth", []values.Value{ts}, values.Int(0)},
		{"getDate", []values.Value{ts}, values.Int(1)},
		{"getDayOfYear", []values.Value{ts}, values.Int(60)},
		{"getHours", []values.Value{ts}, values.Int(23)},
		{"getMilliseconds", []values.Value{ts}, values.Int(250)},
		{"getHours", []values.Value{ts, values.String("+02:00")}, values.Int(1)},
		{"getDate", []values.Value{ts, values.String("+02:00")}, values.Int(2)},
		{"getMinutes", []values.Value{values.Duration(90 * time.Minute)}, values.Int(90)},
		{"getHours", []values.Value{values.Duration(90 * time.Minute)}, values.Int(1)},
	}
	for _, tt := range tests {
		got := call(t, tt.fn, true, tt.args...)
		qt.Check(t, qt.CmpEquals(got, tt.expected, valueCmp), qt.Commentf("%s%v", tt.fn, tt.args))
	}
	qt.Check(t, qt.Equals(errCode(call(t, "getHours", true, ts, values.String("+xx"))), values.ErrInvalidArgument))
}

func TestOptionals(t *testing.T) {
	some := call(t, "optional.of", false, values.Int(1))
	none := call(t, "optional.none", false)
	qt.Check(t, qt.Equals[values.Value](call(t, "hasValue", true, some), values.True))
	qt.Check(t, qt.Equals[values.Value](call(t, "hasValue", true, none), values.False))
	qt.Check(t, qt.Equals[values.Value](call(t, "value", true, some), values.Int(1)))
	qt.Check(t, qt.Equals(errCode(call(t, "value", true, none)), values.ErrInvalidArgument))
	qt.Check(t, qt.Equals[values.Value](call(t, "orValue", true, none, values.Int(5)), values.Int(5)))
	qt.Check(t, qt.Equals[values.Value](call(t, "or", true, none, some), some))
	qt.Check(t, qt.Equals[values.Value](call(t, "optional.ofNonZeroValue", false, values.String("")), values.OptionalNone()))
	qt.Check(t, qt.CmpEquals(call(t, "optional.ofNonZeroValue", false, values.Int(3)), values.Value(values.OptionalOf(values.Int(3))), valueCmp))
}
