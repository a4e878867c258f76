package values

import (
	"encoding/base64"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const maxSafeJSONInt = 1<<53 - 1

var wrapperTypes = map[protoreflect.FullName]func() proto.Message{
	"google.protobuf.BoolValue":   func() proto.Message { return &wrapperspb.BoolValue{} },
	"google.protobuf.BytesValue":  func() proto.Message { return &wrapperspb.BytesValue{} },
	"google.protobuf.DoubleValue": func() proto.Message { return &wrapperspb.DoubleValue{} },
	"google.protobuf.FloatValue":  func() proto.Message { return &wrapperspb.FloatValue{} },
	"google.protobuf.Int32Value":  func() proto.Message { return &wrapperspb.Int32Value{} },
	"google.protobuf.Int64Value":  func() proto.Message { return &wrapperspb.Int64Value{} },
	"google.protobuf.StringValue": func() proto.Message { return &wrapperspb.StringValue{} },
	"google.protobuf.UInt32Value": func() proto.Message { return &wrapperspb.UInt32Value{} },
	"google.protobuf.UInt64Value": func() proto.Message { return &wrapperspb.UInt64Value{} },
}

var knownTypes = map[protoreflect.FullName]func() proto.Message{
	"google.protobuf.Any":       func() proto.Message { return &anypb.Any{} },
	"google.protobuf.Duration":  func() proto.Message { return &durationpb.Duration{} },
	"google.protobuf.Timestamp": func() proto.Message { return &timestamppb.Timestamp{} },
	"google.protobuf.Struct":    func() proto.Message { return &structpb.Struct{} },
	"google.protobuf.Value":     func() proto.Message { return &structpb.Value{} },
	"google.protobuf.ListValue": func() proto.Message { return &structpb.ListValue{} },
}

func isWrapper(name protoreflect.FullName) bool {
	_, ok := wrapperTypes[name]
	return ok
}

// asKnown returns m as its generated Go type when it is a well-known type
// held in another representation, such as a dynamicpb message.
func asKnown(m proto.Message) (proto.Message, bool) {
	name := m.ProtoReflect().Descriptor().FullName()
	ctor, ok := knownTypes[name]
	if !ok {
		ctor, ok = wrapperTypes[name]
	}
	if !ok {
		return nil, false
	}
	target := ctor()
	if target.ProtoReflect().Type() == m.ProtoReflect().Type() {
		return m, true
	}
	b, err := proto.Marshal(m)
	if err != nil {
		return nil, false
	}
	if err := proto.Unmarshal(b, target); err != nil {
		return nil, false
	}
	return target, true
}

// FromProto converts a message into a runtime value, unwrapping the
// well-known types into their native kinds.
func FromProto(m proto.Message) Value {
	known, ok := asKnown(m)
	if !ok {
		return NewMessage(m)
	}
	switch k := known.(type) {
	case *durationpb.Duration:
		return Duration(k.AsDuration())
	case *timestamppb.Timestamp:
		return Timestamp{Time: k.AsTime()}
	case *structpb.Struct:
		return FromStructpbFields(k.GetFields())
	case *structpb.Value:
		return FromStructpb(k)
	case *structpb.ListValue:
		return fromStructpbList(k)
	case *anypb.Any:
		inner, err := k.UnmarshalNew()
		if err != nil {
			return NewError(ErrTypeConversion, "cannot unpack %s: %v", k.GetTypeUrl(), err)
		}
		return FromProto(inner)
	case *wrapperspb.BoolValue:
		return Bool(k.GetValue())
	case *wrapperspb.BytesValue:
		return Bytes(k.GetValue())
	case *wrapperspb.DoubleValue:
		return Double(k.GetValue())
	case *wrapperspb.FloatValue:
		return Double(k.GetValue())
	case *wrapperspb.Int32Value:
		return Int(k.GetValue())
	case *wrapperspb.Int64Value:
		return Int(k.GetValue())
	case *wrapperspb.StringValue:
		return String(k.GetValue())
	case *wrapperspb.UInt32Value:
		return Uint(k.GetValue())
	case *wrapperspb.UInt64Value:
		return Uint(k.GetValue())
	}
	return NewMessage(m)
}

// FromStructpb converts a JSON-shaped protobuf value.
func FromStructpb(v *structpb.Value) Value {
	switch k := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return Bool(k.BoolValue)
	case *structpb.Value_NumberValue:
		return Double(k.NumberValue)
	case *structpb.Value_StringValue:
		return String(k.StringValue)
	case *structpb.Value_ListValue:
		return fromStructpbList(k.ListValue)
	case *structpb.Value_StructValue:
		return FromStructpbFields(k.StructValue.GetFields())
	}
	return NullValue
}

func fromStructpbList(l *structpb.ListValue) *List {
	elems := make([]Value, len(l.GetValues()))
	for i, e := range l.GetValues() {
		elems[i] = FromStructpb(e)
	}
	return NewList(elems...)
}

// FromStructpbFields converts the fields of a google.protobuf.Struct into a
// map with string keys.
func FromStructpbFields(fields map[string]*structpb.Value) *Map {
	b := NewMapBuilder()
	b.Reserve(len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		b.Put(String(k), FromStructpb(fields[k]))
	}
	return b.Build()
}

// ToStructpb converts v into its JSON-shaped protobuf form. Ints outside
// the exactly representable double range become strings, as in the
// protobuf JSON mapping.
func ToStructpb(v Value) (*structpb.Value, error) {
	switch x := v.(type) {
	case Null:
		return structpb.NewNullValue(), nil
	case Bool:
		return structpb.NewBoolValue(bool(x)), nil
	case Int:
		if x > maxSafeJSONInt || x < -maxSafeJSONInt {
			return structpb.NewStringValue(x.Inspect()), nil
		}
		return structpb.NewNumberValue(float64(x)), nil
	case Uint:
		if x > maxSafeJSONInt {
			return structpb.NewStringValue(fmt.Sprint(uint64(x))), nil
		}
		return structpb.NewNumberValue(float64(x)), nil
	case Enum:
		return structpb.NewNumberValue(float64(x.Number)), nil
	case Double:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return structpb.NewStringValue(x.Inspect()), nil
		}
		return structpb.NewNumberValue(f), nil
	case String:
		return structpb.NewStringValue(string(x)), nil
	case Bytes:
		return structpb.NewStringValue(base64.StdEncoding.EncodeToString(x)), nil
	case Duration:
		return structpb.NewStringValue(FormatDuration(time.Duration(x))), nil
	case Timestamp:
		return structpb.NewStringValue(x.Time.UTC().Format(time.RFC3339Nano)), nil
	case Type:
		return structpb.NewStringValue(x.Name), nil
	case *Optional:
		if !x.HasValue() {
			return structpb.NewNullValue(), nil
		}
		return ToStructpb(x.Value())
	case Lister:
		l := &structpb.ListValue{Values: make([]*structpb.Value, x.Size())}
		for i := 0; i < x.Size(); i++ {
			e, err := ToStructpb(x.Get(i))
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
			l.Values[i] = e
		}
		return structpb.NewListValue(l), nil
	case Mapper:
		s := &structpb.Struct{Fields: make(map[string]*structpb.Value, x.Size())}
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			e, err := ToStructpb(val)
			if err != nil {
				return nil, fmt.Errorf("map entry %s: %w", k.Inspect(), err)
			}
			s.Fields[jsonKey(k)] = e
		}
		return structpb.NewStructValue(s), nil
	case *Message:
		b, err := protojson.Marshal(x.Proto())
		if err != nil {
			return nil, err
		}
		out := &structpb.Value{}
		if err := protojson.Unmarshal(b, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s has no JSON representation", v.Kind())
}

func jsonKey(k Value) string {
	switch x := k.(type) {
	case String:
		return string(x)
	case Uint:
		return fmt.Sprint(uint64(x))
	}
	return k.Inspect()
}

// SetField assigns v to field fd of msg, converting between runtime values
// and protobuf representations. A nil result means success.
func SetField(msg protoreflect.Message, fd protoreflect.FieldDescriptor, v Value) *Error {
	if _, isNull := v.(Null); isNull && fd.Message() != nil && !fd.IsList() && !fd.IsMap() {
		msg.Clear(fd)
		return nil
	}
	switch {
	case fd.IsList():
		l, ok := v.(Lister)
		if !ok {
			return fieldTypeError(fd, v)
		}
		dst := msg.Mutable(fd).List()
		for i := 0; i < l.Size(); i++ {
			pv, err := protoValue(dst.NewElement, fd, l.Get(i))
			if err != nil {
				return err
			}
			dst.Append(pv)
		}
		return nil
	case fd.IsMap():
		m, ok := v.(Mapper)
		if !ok {
			return fieldTypeError(fd, v)
		}
		dst := msg.Mutable(fd).Map()
		for _, k := range m.Keys() {
			pk, err := protoValue(nil, fd.MapKey(), k)
			if err != nil {
				return err
			}
			val, _ := m.Get(k)
			pv, err := protoValue(dst.NewValue, fd.MapValue(), val)
			if err != nil {
				return err
			}
			dst.Set(pk.MapKey(), pv)
		}
		return nil
	}
	pv, err := protoValue(func() protoreflect.Value { return msg.NewField(fd) }, fd, v)
	if err != nil {
		return err
	}
	msg.Set(fd, pv)
	return nil
}

func fieldTypeError(fd protoreflect.FieldDescriptor, v Value) *Error {
	return NewError(ErrTypeConversion, "field '%s': cannot assign %s", fd.Name(), TypeOf(v).Name)
}

func protoValue(newMsg func() protoreflect.Value, fd protoreflect.FieldDescriptor, v Value) (protoreflect.Value, *Error) {
	if e, ok := v.(Enum); ok {
		v = Int(e.Number)
	}
	switch fd.Kind() {
	case protoreflect.BoolKind:
		if b, ok := v.(Bool); ok {
			return protoreflect.ValueOfBool(bool(b)), nil
		}
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		if i, ok := v.(Int); ok {
			if i < math.MinInt32 || i > math.MaxInt32 {
				return protoreflect.Value{}, NewError(ErrOverflow, "field '%s': int32 overflow", fd.Name())
			}
			return protoreflect.ValueOfInt32(int32(i)), nil
		}
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		if i, ok := v.(Int); ok {
			return protoreflect.ValueOfInt64(int64(i)), nil
		}
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		if u, ok := v.(Uint); ok {
			if u > math.MaxUint32 {
				return protoreflect.Value{}, NewError(ErrOverflow, "field '%s': uint32 overflow", fd.Name())
			}
			return protoreflect.ValueOfUint32(uint32(u)), nil
		}
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		if u, ok := v.(Uint); ok {
			return protoreflect.ValueOfUint64(uint64(u)), nil
		}
	case protoreflect.FloatKind:
		if d, ok := v.(Double); ok {
			return protoreflect.ValueOfFloat32(float32(d)), nil
		}
	case protoreflect.DoubleKind:
		if d, ok := v.(Double); ok {
			return protoreflect.ValueOfFloat64(float64(d)), nil
		}
	case protoreflect.StringKind:
		if s, ok := v.(String); ok {
			return protoreflect.ValueOfString(string(s)), nil
		}
	case protoreflect.BytesKind:
		if b, ok := v.(Bytes); ok {
			return protoreflect.ValueOfBytes([]byte(b)), nil
		}
	case protoreflect.EnumKind:
		if i, ok := v.(Int); ok {
			if i < math.MinInt32 || i > math.MaxInt32 {
				return protoreflect.Value{}, NewError(ErrOverflow, "field '%s': enum value out of range", fd.Name())
			}
			return protoreflect.ValueOfEnum(protoreflect.EnumNumber(i)), nil
		}
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return messageValue(newMsg, fd, v)
	}
	return protoreflect.Value{}, fieldTypeError(fd, v)
}

func messageValue(newMsg func() protoreflect.Value, fd protoreflect.FieldDescriptor, v Value) (protoreflect.Value, *Error) {
	target := newMsg()
	name := fd.Message().FullName()
	if m, ok := v.(*Message); ok {
		if m.msg.Descriptor().FullName() != name {
			return protoreflect.Value{}, fieldTypeError(fd, v)
		}
		if err := copyInto(target.Message(), m.Proto()); err != nil {
			return protoreflect.Value{}, NewError(ErrTypeConversion, "field '%s': %v", fd.Name(), err)
		}
		return target, nil
	}
	src, convErr := knownFromValue(name, v)
	if convErr != nil {
		return protoreflect.Value{}, convErr
	}
	if src == nil {
		return protoreflect.Value{}, fieldTypeError(fd, v)
	}
	if err := copyInto(target.Message(), src); err != nil {
		return protoreflect.Value{}, NewError(ErrTypeConversion, "field '%s': %v", fd.Name(), err)
	}
	return target, nil
}

// copyInto fills dst from src through the wire format, so generated and
// dynamic representations of the same type interoperate.
func copyInto(dst protoreflect.Message, src proto.Message) error {
	b, err := proto.Marshal(src)
	if err != nil {
		return err
	}
	return proto.UnmarshalOptions{Merge: true}.Unmarshal(b, dst.Interface())
}

// knownFromValue builds a well-known type message from v. A nil message and
// nil error mean v cannot populate that type.
func knownFromValue(name protoreflect.FullName, v Value) (proto.Message, *Error) {
	switch name {
	case "google.protobuf.Duration":
		if d, ok := v.(Duration); ok {
			return durationpb.New(time.Duration(d)), nil
		}
	case "google.protobuf.Timestamp":
		if t, ok := v.(Timestamp); ok {
			return timestamppb.New(t.Time), nil
		}
	case "google.protobuf.Value":
		s, err := ToStructpb(v)
		if err != nil {
			return nil, NewError(ErrTypeConversion, "%v", err)
		}
		return s, nil
	case "google.protobuf.Struct":
		if _, ok := v.(Mapper); ok {
			s, err := ToStructpb(v)
			if err != nil {
				return nil, NewError(ErrTypeConversion, "%v", err)
			}
			return s.GetStructValue(), nil
		}
	case "google.protobuf.ListValue":
		if _, ok := v.(Lister); ok {
			s, err := ToStructpb(v)
			if err != nil {
				return nil, NewError(ErrTypeConversion, "%v", err)
			}
			return s.GetListValue(), nil
		}
	case "google.protobuf.BoolValue":
		if b, ok := v.(Bool); ok {
			return wrapperspb.Bool(bool(b)), nil
		}
	case "google.protobuf.BytesValue":
		if b, ok := v.(Bytes); ok {
			return wrapperspb.Bytes([]byte(b)), nil
		}
	case "google.protobuf.DoubleValue":
		if d, ok := v.(Double); ok {
			return wrapperspb.Double(float64(d)), nil
		}
	case "google.protobuf.FloatValue":
		if d, ok := v.(Double); ok {
			return wrapperspb.Float(float32(d)), nil
		}
	case "google.protobuf.Int32Value":
		if i, ok := v.(Int); ok {
			if i < math.MinInt32 || i > math.MaxInt32 {
				return nil, NewError(ErrOverflow, "int32 overflow")
			}
			return wrapperspb.Int32(int32(i)), nil
		}
	case "google.protobuf.Int64Value":
		if i, ok := v.(Int); ok {
			return wrapperspb.Int64(int64(i)), nil
		}
	case "google.protobuf.StringValue":
		if s, ok := v.(String); ok {
			return wrapperspb.String(string(s)), nil
		}
	case "google.protobuf.UInt32Value":
		if u, ok := v.(Uint); ok {
			if u > math.MaxUint32 {
				return nil, NewError(ErrOverflow, "uint32 overflow")
			}
			return wrapperspb.UInt32(uint32(u)), nil
		}
	case "google.protobuf.UInt64Value":
		if u, ok := v.(Uint); ok {
			return wrapperspb.UInt64(uint64(u)), nil
		}
	}
	return nil, nil
}
