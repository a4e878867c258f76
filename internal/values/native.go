package values

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"google.golang.org/protobuf/proto"
)

// Native converts a Go value into a runtime value. Values that are already
// runtime values pass through. Unsupported Go types produce a
// type_conversion error value.
func Native(val interface{}) Value {
	switch v := val.(type) {
	case nil:
		return NullValue
	case Value:
		return v
	case bool:
		return Bool(v)
	case string:
		return String(v)
	case []byte:
		return Bytes(v)
	case time.Duration:
		return Duration(v)
	case time.Time:
		return Timestamp{Time: v}
	case proto.Message:
		return FromProto(v)
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Double(rv.Float())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.String:
		return String(rv.String())
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := range elems {
			e := Native(rv.Index(i).Interface())
			if IsError(e) {
				return e
			}
			elems[i] = e
		}
		return NewList(elems...)
	case reflect.Map:
		b := NewMapBuilder()
		b.Reserve(rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := Native(iter.Key().Interface())
			if IsError(k) {
				return k
			}
			v := Native(iter.Value().Interface())
			if IsError(v) {
				return v
			}
			if err := b.Put(k, v); err != nil {
				return err
			}
		}
		return b.Build()
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return NullValue
		}
		return Native(rv.Elem().Interface())
	}
	return NewError(ErrTypeConversion, "unsupported Go type %T", val)
}

// ToNative converts a runtime value into plain Go data: maps with only
// string keys become map[string]interface{}, other maps
// map[interface{}]interface{}. Error and unknown values are returned as
// themselves.
func ToNative(v Value) interface{} {
	switch x := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(x)
	case Int:
		return int64(x)
	case Uint:
		return uint64(x)
	case Double:
		return float64(x)
	case String:
		return string(x)
	case Bytes:
		return []byte(x)
	case Duration:
		return time.Duration(x)
	case Timestamp:
		return x.Time
	case Enum:
		return int64(x.Number)
	case Type:
		return x.Name
	case *Optional:
		if !x.HasValue() {
			return nil
		}
		return ToNative(x.Value())
	case *Message:
		return x.Proto()
	case Lister:
		out := make([]interface{}, x.Size())
		for i := range out {
			out[i] = ToNative(x.Get(i))
		}
		return out
	case Mapper:
		keys := x.Keys()
		allStrings := true
		for _, k := range keys {
			if _, ok := k.(String); !ok {
				allStrings = false
				break
			}
		}
		if allStrings {
			out := make(map[string]interface{}, len(keys))
			for _, k := range keys {
				val, _ := x.Get(k)
				out[string(k.(String))] = ToNative(val)
			}
			return out
		}
		out := make(map[interface{}]interface{}, len(keys))
		for _, k := range keys {
			val, _ := x.Get(k)
			out[ToNative(k)] = ToNative(val)
		}
		return out
	}
	return v
}

// Stringify renders v the way string(v) does in expressions.
func Stringify(v Value) (string, error) {
	switch x := v.(type) {
	case String:
		return string(x), nil
	case Bool, Int:
		return x.Inspect(), nil
	case Uint:
		return fmt.Sprint(uint64(x)), nil
	case Double:
		return strconv.FormatFloat(float64(x), 'g', -1, 64), nil
	case Bytes:
		return string(x), nil
	case Duration:
		return FormatDuration(time.Duration(x)), nil
	case Timestamp:
		return x.Time.UTC().Format(time.RFC3339Nano), nil
	case Enum:
		return Int(x.Number).Inspect(), nil
	}
	return "", fmt.Errorf("cannot convert %s to string", TypeOf(v).Name)
}
