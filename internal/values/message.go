package values

import (
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Message is a protobuf message value.
type Message struct {
	msg protoreflect.Message
}

func NewMessage(m proto.Message) *Message {
	return &Message{msg: m.ProtoReflect()}
}

func (m *Message) Kind() Kind           { return MessageKind }
func (m *Message) TypeName() string     { return string(m.msg.Descriptor().FullName()) }
func (m *Message) Proto() proto.Message { return m.msg.Interface() }

func (m *Message) Reflect() protoreflect.Message { return m.msg }

func (m *Message) Inspect() string {
	body := prototext.MarshalOptions{}.Format(m.msg.Interface())
	return m.TypeName() + "{" + body + "}"
}

func (m *Message) field(name string) protoreflect.FieldDescriptor {
	return m.msg.Descriptor().Fields().ByName(protoreflect.Name(name))
}

// Field returns the value of the named field. Unset singular message fields
// yield the default instance, except wrapper types which yield null. The
// boolean is false when the message type has no such field.
func (m *Message) Field(name string) (Value, bool) {
	fd := m.field(name)
	if fd == nil {
		return nil, false
	}
	if fd.Kind() == protoreflect.MessageKind && !fd.IsList() && !fd.IsMap() && !m.msg.Has(fd) {
		if name := fd.Message().FullName(); isWrapper(name) || name == "google.protobuf.Any" {
			return NullValue, true
		}
	}
	return FieldValue(fd, m.msg.Get(fd)), true
}

// Has reports field presence as has() observes it: repeated and map fields
// are present when non-empty, scalars when set to a non-default value (or
// explicitly set for fields with presence).
func (m *Message) Has(name string) (bool, bool) {
	fd := m.field(name)
	if fd == nil {
		return false, false
	}
	return m.msg.Has(fd), true
}

// FieldValue converts a protoreflect field value into a runtime value.
func FieldValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) Value {
	switch {
	case fd.IsList():
		l := v.List()
		elems := make([]Value, l.Len())
		for i := range elems {
			elems[i] = singularValue(fd, l.Get(i))
		}
		return NewList(elems...)
	case fd.IsMap():
		b := NewMapBuilder()
		keyFd, valFd := fd.MapKey(), fd.MapValue()
		v.Map().Range(func(k protoreflect.MapKey, mv protoreflect.Value) bool {
			b.Put(singularValue(keyFd, k.Value()), singularValue(valFd, mv))
			return true
		})
		return b.Build()
	}
	return singularValue(fd, v)
}

func singularValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) Value {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return Bool(v.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return Int(v.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return Uint(v.Uint())
	case protoreflect.FloatKind, protoreflect.DoubleKind:
		return Double(v.Float())
	case protoreflect.StringKind:
		return String(v.String())
	case protoreflect.BytesKind:
		return Bytes(v.Bytes())
	case protoreflect.EnumKind:
		return Enum{TypeName: string(fd.Enum().FullName()), Number: int32(v.Enum())}
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return FromProto(v.Message().Interface())
	}
	return NewError(ErrTypeConversion, "unsupported field kind %s", fd.Kind())
}
