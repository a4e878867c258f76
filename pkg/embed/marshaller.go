package expreval

import (
	"fmt"
	"reflect"
	"time"

	"google.golang.org/protobuf/proto"

	"github.com/funvibe/expreval/internal/values"
)

var (
	valueType    = reflect.TypeOf((*values.Value)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	messageType  = reflect.TypeOf((*proto.Message)(nil)).Elem()
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
	bytesType    = reflect.TypeOf([]byte(nil))
)

// Marshaller handles conversion between Go and expression values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go value. Structs become maps keyed by their
// exported field names; everything else follows values.Native.
func (m *Marshaller) ToValue(val interface{}) values.Value {
	v := reflect.ValueOf(val)
	for v.IsValid() && v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Kind() == reflect.Struct && !v.Type().Implements(messageType) {
		v = v.Elem()
	}
	if v.IsValid() && v.Kind() == reflect.Struct && v.Type() != timeType {
		return m.structToMap(v)
	}
	return values.Native(val)
}

func (m *Marshaller) structToMap(v reflect.Value) values.Value {
	t := v.Type()
	b := values.NewMapBuilder()
	b.Reserve(t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" { // Skip unexported fields
			continue
		}
		fv := m.ToValue(v.Field(i).Interface())
		if values.IsError(fv) {
			return fv
		}
		if err := b.Put(values.String(field.Name), fv); err != nil {
			return err
		}
	}
	return b.Build()
}

// FromValue converts v to a Go value of targetType. A nil targetType
// yields plain Go data as values.ToNative does.
func (m *Marshaller) FromValue(v values.Value, targetType reflect.Type) (reflect.Value, error) {
	if targetType == nil {
		native := values.ToNative(v)
		if native == nil {
			return reflect.Zero(reflect.TypeOf((*interface{})(nil)).Elem()), nil
		}
		return reflect.ValueOf(native), nil
	}
	if targetType == valueType {
		out := reflect.New(valueType).Elem()
		out.Set(reflect.ValueOf(v))
		return out, nil
	}

	switch targetType {
	case durationType, timeType, bytesType:
		return m.assign(values.ToNative(v), targetType)
	}

	switch targetType.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		rv := reflect.ValueOf(values.ToNative(v))
		if !rv.IsValid() || !rv.CanConvert(targetType) || rv.Kind() == reflect.String {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", values.TypeOf(v).Name, targetType)
		}
		return rv.Convert(targetType), nil
	case reflect.String, reflect.Bool:
		rv := reflect.ValueOf(values.ToNative(v))
		if !rv.IsValid() || rv.Kind() != targetType.Kind() {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", values.TypeOf(v).Name, targetType)
		}
		return rv.Convert(targetType), nil
	case reflect.Slice:
		l, ok := v.(values.Lister)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", values.TypeOf(v).Name, targetType)
		}
		return m.listToSlice(l, targetType)
	case reflect.Map:
		mp, ok := v.(values.Mapper)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", values.TypeOf(v).Name, targetType)
		}
		return m.mapToGoMap(mp, targetType)
	}
	return m.assign(values.ToNative(v), targetType)
}

func (m *Marshaller) assign(native interface{}, targetType reflect.Type) (reflect.Value, error) {
	if native == nil {
		switch targetType.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
			return reflect.Zero(targetType), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot convert null to %s", targetType)
	}
	rv := reflect.ValueOf(native)
	if rv.Type().AssignableTo(targetType) {
		out := reflect.New(targetType).Elem()
		out.Set(rv)
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", native, targetType)
}

func (m *Marshaller) listToSlice(l values.Lister, targetType reflect.Type) (reflect.Value, error) {
	slice := reflect.MakeSlice(targetType, 0, l.Size())
	for i := 0; i < l.Size(); i++ {
		e, err := m.FromValue(l.Get(i), targetType.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		slice = reflect.Append(slice, e)
	}
	return slice, nil
}

func (m *Marshaller) mapToGoMap(mp values.Mapper, targetType reflect.Type) (reflect.Value, error) {
	result := reflect.MakeMapWithSize(targetType, mp.Size())
	for _, k := range mp.Keys() {
		key, err := m.FromValue(k, targetType.Key())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map key: %w", err)
		}
		val, _ := mp.Get(k)
		elem, err := m.FromValue(val, targetType.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map value %s: %w", k.Inspect(), err)
		}
		result.SetMapIndex(key, elem)
	}
	return result, nil
}

// kindOf maps a Go parameter type to the argument kind an overload
// accepts.
func kindOf(t reflect.Type) (values.Kind, error) {
	switch t {
	case valueType:
		return values.AnyKind, nil
	case durationType:
		return values.DurationKind, nil
	case timeType:
		return values.TimestampKind, nil
	case bytesType:
		return values.BytesKind, nil
	}
	if t.Implements(messageType) {
		return values.MessageKind, nil
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return values.IntKind, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return values.UintKind, nil
	case reflect.Float32, reflect.Float64:
		return values.DoubleKind, nil
	case reflect.String:
		return values.StringKind, nil
	case reflect.Bool:
		return values.BoolKind, nil
	case reflect.Slice:
		return values.ListKind, nil
	case reflect.Map:
		return values.MapKind, nil
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return values.AnyKind, nil
		}
	}
	return 0, fmt.Errorf("unsupported parameter type %s", t)
}
