package eval

import (
	"math"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/functions"
	"github.com/funvibe/expreval/internal/values"
)

// The operations below are shared by steps and direct nodes so that both
// evaluators produce the same values.

func qualifierOf(key values.Value) (attribute.Qualifier, bool) {
	switch k := key.(type) {
	case values.String:
		return attribute.StringKey(string(k)), true
	case values.Int:
		return attribute.IntKey(int64(k)), true
	case values.Uint:
		return attribute.UintKey(uint64(k)), true
	case values.Bool:
		return attribute.BoolKey(bool(k)), true
	case values.Double:
		if f := float64(k); f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return attribute.IntKey(int64(f)), true
		}
	}
	return attribute.Qualifier{}, false
}

func (f *Frame) selectField(operand values.Value, trail attribute.Trail, field string, testOnly, optional bool) (values.Value, attribute.Trail) {
	if values.IsErrorOrUnknown(operand) {
		return operand, trail
	}
	result := trail.Step(attribute.Field(field))
	if v := f.checkAttribute(result); v != nil {
		return v, result
	}
	if o, ok := operand.(*values.Optional); ok && !testOnly {
		if !o.HasValue() {
			return o, result
		}
		operand, optional = o.Value(), true
	}
	switch x := operand.(type) {
	case values.Mapper:
		v, found := x.Get(values.String(field))
		switch {
		case testOnly:
			return values.Bool(found), result
		case optional && found:
			return values.OptionalOf(v), result
		case optional:
			return values.OptionalNone(), result
		case found:
			return v, result
		}
		return values.NewError(values.ErrNoSuchKey, "no such key: %s", field), result
	case *values.Message:
		has, ok := x.Has(field)
		if !ok {
			return values.NewError(values.ErrNoSuchField, "no such field: %s", field), result
		}
		switch {
		case testOnly:
			return values.Bool(has), result
		case optional && !has:
			return values.OptionalNone(), result
		}
		v, _ := x.Field(field)
		if optional {
			return values.OptionalOf(v), result
		}
		return v, result
	case values.Null:
		return values.NewError(values.ErrInvalidArgument, "select of field '%s' on null", field), result
	}
	if testOnly {
		return values.NoMatchingOverload("has", operand), result
	}
	return values.NoMatchingOverload("_._", operand), result
}

func (f *Frame) index(operand values.Value, trail attribute.Trail, key values.Value, keyTrail attribute.Trail, optional bool) (values.Value, attribute.Trail) {
	if v := f.propagate([]values.Value{operand, key}, []attribute.Trail{trail, keyTrail}, false); v != nil {
		return v, trail
	}
	var result attribute.Trail
	if q, ok := qualifierOf(key); ok {
		result = trail.Step(q)
	}
	if v := f.checkAttribute(result); v != nil {
		return v, result
	}
	if o, ok := operand.(*values.Optional); ok {
		if !o.HasValue() {
			return o, result
		}
		operand, optional = o.Value(), true
	}
	switch x := operand.(type) {
	case values.Lister:
		i, ok := listIndex(key)
		if !ok {
			return values.NoMatchingOverload("_[_]", operand, key), result
		}
		if i < 0 || i >= int64(x.Size()) {
			if optional {
				return values.OptionalNone(), result
			}
			return values.NewError(values.ErrInvalidArgument, "index out of range: %d", i), result
		}
		if optional {
			return values.OptionalOf(x.Get(int(i))), result
		}
		return x.Get(int(i)), result
	case values.Mapper:
		v, found := x.Get(key)
		switch {
		case optional && found:
			return values.OptionalOf(v), result
		case optional:
			return values.OptionalNone(), result
		case found:
			return v, result
		}
		return values.NewError(values.ErrNoSuchKey, "no such key: %s", key.Inspect()), result
	}
	return values.NoMatchingOverload("_[_]", operand, key), result
}

func listIndex(key values.Value) (int64, bool) {
	switch k := key.(type) {
	case values.Int:
		return int64(k), true
	case values.Uint:
		if k > math.MaxInt64 {
			return -1, true
		}
		return int64(k), true
	case values.Double:
		if f := float64(k); f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), true
		}
	}
	return 0, false
}

// buildList applies the list construction rule: first error, then merged
// unknowns, then the collection itself. Elements flagged optional must be
// optional values and contribute their inner value when present.
func (f *Frame) buildList(elems []values.Value, trails []attribute.Trail, isOptional func(int) bool, mutable bool) values.Value {
	for i := range trails {
		if f.attrs.CheckForMissingAttribute(trails[i]) {
			return f.attrs.CreateMissingAttributeError(trails[i].Attribute())
		}
		if values.IsError(elems[i]) {
			return elems[i]
		}
	}
	if v := f.propagate(elems, trails, true); v != nil {
		return v
	}
	var out []values.Value
	if mutable || len(elems) > 0 {
		out = make([]values.Value, 0, len(elems))
	}
	for i, e := range elems {
		if isOptional(i) {
			o, ok := e.(*values.Optional)
			if !ok {
				return values.NewError(values.ErrTypeConversion, "list element %d: expected optional_type, got %s", i, values.TypeOf(e).Name)
			}
			if !o.HasValue() {
				continue
			}
			e = o.Value()
		}
		out = append(out, e)
	}
	if mutable {
		l := values.NewMutableList(len(out))
		for _, e := range out {
			l.Add(e)
		}
		return l
	}
	return values.NewList(out...)
}

// buildMap takes keys and values interleaved.
func (f *Frame) buildMap(entries []values.Value, trails []attribute.Trail, isOptional func(int) bool) values.Value {
	if v := f.propagate(entries, trails, true); v != nil {
		return v
	}
	b := values.NewMapBuilder()
	b.Reserve(len(entries) / 2)
	for i := 0; i+1 < len(entries); i += 2 {
		k, v := entries[i], entries[i+1]
		if isOptional(i / 2) {
			o, ok := v.(*values.Optional)
			if !ok {
				return values.NewError(values.ErrTypeConversion, "map entry %s: expected optional_type, got %s", k.Inspect(), values.TypeOf(v).Name)
			}
			if !o.HasValue() {
				continue
			}
			v = o.Value()
		}
		if err := b.Put(k, v); err != nil {
			return err
		}
	}
	return b.Build()
}

func (f *Frame) buildStruct(mt protoreflect.MessageType, fields []string, vals []values.Value, trails []attribute.Trail, isOptional func(int) bool) values.Value {
	if v := f.propagate(vals, trails, true); v != nil {
		return v
	}
	msg := mt.New()
	desc := msg.Descriptor()
	for i, name := range fields {
		fd := desc.Fields().ByName(protoreflect.Name(name))
		if fd == nil {
			return values.NewError(values.ErrNoSuchField, "no such field: %s.%s", desc.FullName(), name)
		}
		v := vals[i]
		if isOptional(i) {
			o, ok := v.(*values.Optional)
			if !ok {
				return values.NewError(values.ErrTypeConversion, "field %s: expected optional_type, got %s", name, values.TypeOf(v).Name)
			}
			if !o.HasValue() {
				continue
			}
			v = o.Value()
		}
		if err := values.SetField(msg, fd, v); err != nil {
			return err
		}
	}
	return values.FromProto(msg.Interface())
}

// callFunction dispatches a call. Strict functions never see error or
// unknown arguments.
func (f *Frame) callFunction(fn *functions.Function, receiverStyle bool, args []values.Value, trails []attribute.Trail) values.Value {
	if fn.Strict() {
		if v := f.propagate(args, trails, true); v != nil {
			return v
		}
	}
	result := fn.Dispatch(receiverStyle, args)
	if result == nil {
		return values.NewError(values.ErrInvalidArgument, "function %s returned no value", fn.Name())
	}
	return result
}

func absorbs(and bool, v values.Value) bool {
	b, ok := v.(values.Bool)
	return ok && bool(b) != and
}

// logic combines the operands of && and ||. The absorbing value wins,
// then merged unknowns, then the first error.
func (f *Frame) logic(and bool, a values.Value, at attribute.Trail, b values.Value, bt attribute.Trail) values.Value {
	if absorbs(and, a) {
		return a
	}
	if absorbs(and, b) {
		return b
	}
	if unk := f.attrs.IdentifyAndMergeUnknowns([]values.Value{a, b}, []attribute.Trail{at, bt}, true); unk != nil {
		return unk
	}
	for _, v := range []values.Value{a, b} {
		if values.IsError(v) {
			return v
		}
	}
	_, aok := a.(values.Bool)
	_, bok := b.(values.Bool)
	if aok && bok {
		return values.Bool(and)
	}
	name := "_&&_"
	if !and {
		name = "_||_"
	}
	return values.NoMatchingOverload(name, a, b)
}

// condition decides a ternary. It returns the branch to take, or the
// value that replaces the whole conditional.
func (f *Frame) condition(v values.Value, trail attribute.Trail) (bool, values.Value) {
	if values.IsErrorOrUnknown(v) {
		return false, v
	}
	if f.attrs.CheckForUnknown(trail, true) {
		return false, f.attrs.CreateUnknownSet(trail.Attribute())
	}
	b, ok := v.(values.Bool)
	if !ok {
		return false, values.NoMatchingOverload("_?_:_", v)
	}
	return bool(b), nil
}
