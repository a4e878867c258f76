package functions

import (
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/funvibe/expreval/internal/values"
)

// ConversionOverloads returns the type conversion functions int, uint,
// double, string, bytes, bool, duration and timestamp.
func ConversionOverloads() []*Overload {
	conv := func(name string, from values.Kind, impl Impl) *Overload {
		return &Overload{ID: from.String() + "_to_" + name, Name: name, Args: []values.Kind{from}, Strict: true, Impl: impl}
	}
	return []*Overload{
		conv("int", values.IntKind, identity),
		conv("int", values.UintKind, uintToInt),
		conv("int", values.DoubleKind, doubleToInt),
		conv("int", values.StringKind, stringToInt),
		conv("int", values.TimestampKind, timestampToInt),
		conv("int", values.DurationKind, durationToInt),

		conv("uint", values.UintKind, identity),
		conv("uint", values.IntKind, intToUint),
		conv("uint", values.DoubleKind, doubleToUint),
		conv("uint", values.StringKind, stringToUint),

		conv("double", values.DoubleKind, identity),
		conv("double", values.IntKind, func(args ...values.Value) values.Value { return values.Double(args[0].(values.Int)) }),
		conv("double", values.UintKind, func(args ...values.Value) values.Value { return values.Double(args[0].(values.Uint)) }),
		conv("double", values.StringKind, stringToDouble),

		conv("string", values.StringKind, identity),
		conv("string", values.IntKind, toString),
		conv("string", values.UintKind, toString),
		conv("string", values.DoubleKind, toString),
		conv("string", values.BoolKind, toString),
		conv("string", values.BytesKind, bytesToString),
		conv("string", values.DurationKind, toString),
		conv("string", values.TimestampKind, toString),

		conv("bytes", values.BytesKind, identity),
		conv("bytes", values.StringKind, func(args ...values.Value) values.Value { return values.Bytes(args[0].(values.String)) }),

		conv("bool", values.BoolKind, identity),
		conv("bool", values.StringKind, stringToBool),

		conv("duration", values.DurationKind, identity),
		conv("duration", values.StringKind, stringToDuration),

		conv("timestamp", values.TimestampKind, identity),
		conv("timestamp", values.StringKind, stringToTimestamp),
		conv("timestamp", values.IntKind, func(args ...values.Value) values.Value {
			return values.Timestamp{Time: time.Unix(int64(args[0].(values.Int)), 0).UTC()}
		}),
	}
}

func identity(args ...values.Value) values.Value { return args[0] }

func conversionError(format string, args ...interface{}) *values.Error {
	return values.NewError(values.ErrTypeConversion, format, args...)
}

func uintToInt(args ...values.Value) values.Value {
	u := args[0].(values.Uint)
	if u > math.MaxInt64 {
		return conversionError("uint %d out of int range", uint64(u))
	}
	return values.Int(u)
}

func doubleToInt(args ...values.Value) values.Value {
	d := float64(args[0].(values.Double))
	if math.IsNaN(d) || d <= -9223372036854775808.0 || d >= 9223372036854775807.0 {
		return conversionError("double %g out of int range", d)
	}
	return values.Int(d)
}

func stringToInt(args ...values.Value) values.Value {
	i, err := strconv.ParseInt(string(args[0].(values.String)), 10, 64)
	if err != nil {
		return conversionError("cannot convert %s to int", args[0].Inspect())
	}
	return values.Int(i)
}

func timestampToInt(args ...values.Value) values.Value {
	return values.Int(args[0].(values.Timestamp).Time.Unix())
}

func durationToInt(args ...values.Value) values.Value {
	return values.Int(time.Duration(args[0].(values.Duration)) / time.Second)
}

func intToUint(args ...values.Value) values.Value {
	i := args[0].(values.Int)
	if i < 0 {
		return conversionError("int %d out of uint range", int64(i))
	}
	return values.Uint(i)
}

func doubleToUint(args ...values.Value) values.Value {
	d := float64(args[0].(values.Double))
	if math.IsNaN(d) || d < 0 || d >= 18446744073709551616.0 {
		return conversionError("double %g out of uint range", d)
	}
	return values.Uint(d)
}

func stringToUint(args ...values.Value) values.Value {
	u, err := strconv.ParseUint(string(args[0].(values.String)), 10, 64)
	if err != nil {
		return conversionError("cannot convert %s to uint", args[0].Inspect())
	}
	return values.Uint(u)
}

func stringToDouble(args ...values.Value) values.Value {
	d, err := strconv.ParseFloat(string(args[0].(values.String)), 64)
	if err != nil {
		return conversionError("cannot convert %s to double", args[0].Inspect())
	}
	return values.Double(d)
}

func toString(args ...values.Value) values.Value {
	s, err := values.Stringify(args[0])
	if err != nil {
		return conversionError("%v", err)
	}
	return values.String(s)
}

func bytesToString(args ...values.Value) values.Value {
	b := args[0].(values.Bytes)
	if !utf8.Valid(b) {
		return conversionError("invalid UTF-8 in bytes")
	}
	return values.String(b)
}

func stringToBool(args ...values.Value) values.Value {
	switch args[0].(values.String) {
	case "true", "TRUE", "True", "t", "1":
		return values.True
	case "false", "FALSE", "False", "f", "0":
		return values.False
	}
	return conversionError("cannot convert %s to bool", args[0].Inspect())
}

func stringToDuration(args ...values.Value) values.Value {
	d, err := time.ParseDuration(string(args[0].(values.String)))
	if err != nil {
		return conversionError("cannot convert %s to duration", args[0].Inspect())
	}
	return values.Duration(d)
}

func stringToTimestamp(args ...values.Value) values.Value {
	t, err := time.Parse(time.RFC3339Nano, string(args[0].(values.String)))
	if err != nil {
		return conversionError("cannot convert %s to timestamp", args[0].Inspect())
	}
	return values.Timestamp{Time: t.UTC()}
}
