package values

import (
	"bytes"
	"math"

	"google.golang.org/protobuf/proto"
)

// Equal implements heterogeneous equality: numbers compare across int,
// uint, double and enum; values of unrelated kinds are simply not equal.
func Equal(a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		c, ok := compareNumeric(a, b)
		return ok && c == 0
	}
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && bytes.Equal(x, y)
	case Duration:
		y, ok := b.(Duration)
		return ok && x == y
	case Timestamp:
		y, ok := b.(Timestamp)
		return ok && x.Time.Equal(y.Time)
	case Type:
		y, ok := b.(Type)
		return ok && x.Name == y.Name
	case Lister:
		y, ok := b.(Lister)
		if !ok || x.Size() != y.Size() {
			return false
		}
		for i := 0; i < x.Size(); i++ {
			if !Equal(x.Get(i), y.Get(i)) {
				return false
			}
		}
		return true
	case Mapper:
		y, ok := b.(Mapper)
		if !ok || x.Size() != y.Size() {
			return false
		}
		for _, k := range x.Keys() {
			xv, _ := x.Get(k)
			yv, found := y.Get(k)
			if !found || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case *Message:
		y, ok := b.(*Message)
		return ok && x.TypeName() == y.TypeName() && proto.Equal(x.msg.Interface(), y.msg.Interface())
	case *Optional:
		y, ok := b.(*Optional)
		if !ok || x.HasValue() != y.HasValue() {
			return false
		}
		return !x.HasValue() || Equal(x.Value(), y.Value())
	case *Error:
		y, ok := b.(*Error)
		return ok && x.Equal(y)
	case *Unknown:
		y, ok := b.(*Unknown)
		return ok && x.Equal(y)
	}
	return false
}

// Compare orders two values of comparable kinds. The boolean result is
// false when the kinds cannot be ordered against each other, or when a
// NaN is involved.
func Compare(a, b Value) (int, bool) {
	if isNumeric(a) && isNumeric(b) {
		return compareNumeric(a, b)
	}
	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !bool(x):
			return -1, true
		}
		return 1, true
	case String:
		y, ok := b.(String)
		if !ok {
			return 0, false
		}
		return cmp3(x < y, x > y), true
	case Bytes:
		y, ok := b.(Bytes)
		if !ok {
			return 0, false
		}
		return bytes.Compare(x, y), true
	case Duration:
		y, ok := b.(Duration)
		if !ok {
			return 0, false
		}
		return cmp3(x < y, x > y), true
	case Timestamp:
		y, ok := b.(Timestamp)
		if !ok {
			return 0, false
		}
		return x.Time.Compare(y.Time), true
	}
	return 0, false
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func isNumeric(v Value) bool {
	switch v.(type) {
	case Int, Uint, Double, Enum:
		return true
	}
	return false
}

func compareNumeric(a, b Value) (int, bool) {
	switch x := a.(type) {
	case Int:
		return compareInt(int64(x), b)
	case Enum:
		return compareInt(int64(x.Number), b)
	case Uint:
		switch y := b.(type) {
		case Uint:
			return cmp3(x < y, x > y), true
		case Double:
			return compareFloat(float64(x), float64(y))
		default:
			c, ok := compareNumeric(b, a)
			return -c, ok
		}
	case Double:
		switch y := b.(type) {
		case Double:
			return compareFloat(float64(x), float64(y))
		default:
			c, ok := compareNumeric(b, a)
			return -c, ok
		}
	}
	return 0, false
}

func compareInt(x int64, b Value) (int, bool) {
	switch y := b.(type) {
	case Int:
		return cmp3(x < int64(y), x > int64(y)), true
	case Enum:
		return cmp3(x < int64(y.Number), x > int64(y.Number)), true
	case Uint:
		if x < 0 || uint64(y) > math.MaxInt64 {
			return -1, true
		}
		return cmp3(x < int64(y), x > int64(y)), true
	case Double:
		f := float64(y)
		if math.IsNaN(f) {
			return 0, false
		}
		if f >= 9223372036854775808.0 {
			return -1, true
		}
		if f < -9223372036854775808.0 {
			return 1, true
		}
		if t := math.Trunc(f); t == f {
			return cmp3(x < int64(t), x > int64(t)), true
		}
		return compareFloat(float64(x), f)
	}
	return 0, false
}

func compareFloat(x, y float64) (int, bool) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	return cmp3(x < y, x > y), true
}
