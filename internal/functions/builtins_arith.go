package functions

import (
	"math"
	"time"

	"github.com/funvibe/expreval/internal/operators"
	"github.com/funvibe/expreval/internal/values"
)

// ArithmeticOverloads returns +, -, *, /, % and unary minus.
func ArithmeticOverloads() []*Overload {
	var overloads []*Overload
	add := func(id, name string, impl Impl, kinds ...values.Kind) {
		overloads = append(overloads, &Overload{ID: id, Name: name, Args: kinds, Strict: true, Impl: impl})
	}
	i, u, d := values.IntKind, values.UintKind, values.DoubleKind
	dur, ts := values.DurationKind, values.TimestampKind

	add("add_int64", operators.Add, addInt, i, i)
	add("add_uint64", operators.Add, addUint, u, u)
	add("add_double", operators.Add, addDouble, d, d)
	add("add_string", operators.Add, addString, values.StringKind, values.StringKind)
	add("add_bytes", operators.Add, addBytes, values.BytesKind, values.BytesKind)
	add("add_list", operators.Add, addList, values.ListKind, values.ListKind)
	add("add_duration_duration", operators.Add, addDuration, dur, dur)
	add("add_timestamp_duration", operators.Add, addTimestampDuration, ts, dur)
	add("add_duration_timestamp", operators.Add, addDurationTimestamp, dur, ts)

	add("subtract_int64", operators.Subtract, subtractInt, i, i)
	add("subtract_uint64", operators.Subtract, subtractUint, u, u)
	add("subtract_double", operators.Subtract, subtractDouble, d, d)
	add("subtract_duration_duration", operators.Subtract, subtractDuration, dur, dur)
	add("subtract_timestamp_duration", operators.Subtract, subtractTimestampDuration, ts, dur)
	add("subtract_timestamp_timestamp", operators.Subtract, subtractTimestamps, ts, ts)

	add("multiply_int64", operators.Multiply, multiplyInt, i, i)
	add("multiply_uint64", operators.Multiply, multiplyUint, u, u)
	add("multiply_double", operators.Multiply, multiplyDouble, d, d)

	add("divide_int64", operators.Divide, divideInt, i, i)
	add("divide_uint64", operators.Divide, divideUint, u, u)
	add("divide_double", operators.Divide, divideDouble, d, d)

	add("modulo_int64", operators.Modulo, moduloInt, i, i)
	add("modulo_uint64", operators.Modulo, moduloUint, u, u)

	add("negate_int64", operators.Negate, negateInt, i)
	add("negate_double", operators.Negate, negateDouble, d)
	return overloads
}

func overflow(op string) *values.Error {
	return values.NewError(values.ErrOverflow, "integer overflow in %s", op)
}

func addInt(args ...values.Value) values.Value {
	x, y := args[0].(values.Int), args[1].(values.Int)
	r := x + y
	if (y > 0 && r < x) || (y < 0 && r > x) {
		return overflow("addition")
	}
	return r
}

func addUint(args ...values.Value) values.Value {
	x, y := args[0].(values.Uint), args[1].(values.Uint)
	r := x + y
	if r < x {
		return overflow("addition")
	}
	return r
}

func addDouble(args ...values.Value) values.Value {
	return args[0].(values.Double) + args[1].(values.Double)
}

func addString(args ...values.Value) values.Value {
	return args[0].(values.String) + args[1].(values.String)
}

func addBytes(args ...values.Value) values.Value {
	x, y := args[0].(values.Bytes), args[1].(values.Bytes)
	out := make(values.Bytes, 0, len(x)+len(y))
	return append(append(out, x...), y...)
}

// _+_: (list, list) -> list. A mutable left operand is an accumulator
// private to one comprehension, so it is appended to in place.
func addList(args ...values.Value) values.Value {
	right := args[1].(values.Lister)
	if acc, ok := args[0].(*values.MutableList); ok {
		acc.AddAll(right)
		return acc
	}
	left := args[0].(values.Lister)
	if right.Size() == 0 {
		return left
	}
	if left.Size() == 0 {
		return right
	}
	b := values.NewListBuilder()
	b.Reserve(left.Size() + right.Size())
	for _, l := range []values.Lister{left, right} {
		for i := 0; i < l.Size(); i++ {
			b.Add(l.Get(i))
		}
	}
	return b.Build()
}

func addDuration(args ...values.Value) values.Value {
	x, y := args[0].(values.Duration), args[1].(values.Duration)
	r := x + y
	if (y > 0 && r < x) || (y < 0 && r > x) {
		return overflow("duration addition")
	}
	return r
}

func addTimestampDuration(args ...values.Value) values.Value {
	t := args[0].(values.Timestamp)
	return values.Timestamp{Time: t.Time.Add(time.Duration(args[1].(values.Duration)))}
}

func addDurationTimestamp(args ...values.Value) values.Value {
	return addTimestampDuration(args[1], args[0])
}

func subtractInt(args ...values.Value) values.Value {
	x, y := args[0].(values.Int), args[1].(values.Int)
	r := x - y
	if (y < 0 && r < x) || (y > 0 && r > x) {
		return overflow("subtraction")
	}
	return r
}

func subtractUint(args ...values.Value) values.Value {
	x, y := args[0].(values.Uint), args[1].(values.Uint)
	if y > x {
		return overflow("subtraction")
	}
	return x - y
}

func subtractDouble(args ...values.Value) values.Value {
	return args[0].(values.Double) - args[1].(values.Double)
}

func subtractDuration(args ...values.Value) values.Value {
	x, y := args[0].(values.Duration), args[1].(values.Duration)
	r := x - y
	if (y < 0 && r < x) || (y > 0 && r > x) {
		return overflow("duration subtraction")
	}
	return r
}

func subtractTimestampDuration(args ...values.Value) values.Value {
	t := args[0].(values.Timestamp)
	return values.Timestamp{Time: t.Time.Add(-time.Duration(args[1].(values.Duration)))}
}

func subtractTimestamps(args ...values.Value) values.Value {
	x, y := args[0].(values.Timestamp), args[1].(values.Timestamp)
	return values.Duration(x.Time.Sub(y.Time))
}

func multiplyInt(args ...values.Value) values.Value {
	x, y := args[0].(values.Int), args[1].(values.Int)
	if x == 0 || y == 0 {
		return values.Int(0)
	}
	r := x * y
	if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return overflow("multiplication")
	}
	return r
}

func multiplyUint(args ...values.Value) values.Value {
	x, y := args[0].(values.Uint), args[1].(values.Uint)
	if x != 0 && y > math.MaxUint64/x {
		return overflow("multiplication")
	}
	return x * y
}

func multiplyDouble(args ...values.Value) values.Value {
	return args[0].(values.Double) * args[1].(values.Double)
}

func divideInt(args ...values.Value) values.Value {
	x, y := args[0].(values.Int), args[1].(values.Int)
	if y == 0 {
		return values.NewError(values.ErrDivisionByZero, "division by zero")
	}
	if x == math.MinInt64 && y == -1 {
		return overflow("division")
	}
	return x / y
}

func divideUint(args ...values.Value) values.Value {
	x, y := args[0].(values.Uint), args[1].(values.Uint)
	if y == 0 {
		return values.NewError(values.ErrDivisionByZero, "division by zero")
	}
	return x / y
}

// Doubles follow IEEE 754: x/0.0 is an infinity or NaN, not an error.
func divideDouble(args ...values.Value) values.Value {
	return args[0].(values.Double) / args[1].(values.Double)
}

func moduloInt(args ...values.Value) values.Value {
	x, y := args[0].(values.Int), args[1].(values.Int)
	if y == 0 {
		return values.NewError(values.ErrModulusByZero, "modulus by zero")
	}
	if x == math.MinInt64 && y == -1 {
		return overflow("modulus")
	}
	return x % y
}

func moduloUint(args ...values.Value) values.Value {
	x, y := args[0].(values.Uint), args[1].(values.Uint)
	if y == 0 {
		return values.NewError(values.ErrModulusByZero, "modulus by zero")
	}
	return x % y
}

func negateInt(args ...values.Value) values.Value {
	x := args[0].(values.Int)
	if x == math.MinInt64 {
		return overflow("negation")
	}
	return -x
}

func negateDouble(args ...values.Value) values.Value {
	return -args[0].(values.Double)
}
