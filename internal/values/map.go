package values

import (
	"math"
	"strings"
)

// Mapper is the read side of a map value.
type Mapper interface {
	Value
	Size() int
	Get(key Value) (Value, bool)
	Keys() []Value
}

type keyClass int

const (
	boolKey keyClass = iota
	numKey
	bigUintKey
	stringKey
)

// mapKey normalizes numeric keys so 1, 1u and 1.0 address the same entry.
type mapKey struct {
	class keyClass
	i     int64
	u     uint64
	s     string
}

func keyOf(v Value) (mapKey, bool) {
	switch k := v.(type) {
	case Bool:
		if k {
			return mapKey{class: boolKey, i: 1}, true
		}
		return mapKey{class: boolKey}, true
	case Int:
		return mapKey{class: numKey, i: int64(k)}, true
	case Uint:
		if uint64(k) <= math.MaxInt64 {
			return mapKey{class: numKey, i: int64(k)}, true
		}
		return mapKey{class: bigUintKey, u: uint64(k)}, true
	case Enum:
		return mapKey{class: numKey, i: int64(k.Number)}, true
	case Double:
		f := float64(k)
		if f != math.Trunc(f) {
			return mapKey{}, false
		}
		if f >= -9223372036854775808.0 && f < 9223372036854775808.0 {
			return mapKey{class: numKey, i: int64(f)}, true
		}
		if f >= 0 && f < 18446744073709551616.0 {
			return mapKey{class: bigUintKey, u: uint64(f)}, true
		}
	case String:
		return mapKey{class: stringKey, s: string(k)}, true
	}
	return mapKey{}, false
}

// IsValidMapKey reports whether v may be used as a key when constructing a
// map. Lookups additionally accept integral doubles.
func IsValidMapKey(v Value) bool {
	switch v.Kind() {
	case BoolKind, IntKind, UintKind, StringKind:
		return true
	}
	return false
}

// Map is an immutable map that preserves insertion order for iteration and
// printing.
type Map struct {
	keys  []Value
	vals  []Value
	index map[mapKey]int
}

var emptyMap = &Map{index: map[mapKey]int{}}

func EmptyMap() *Map { return emptyMap }

func (m *Map) Kind() Kind    { return MapKind }
func (m *Map) Size() int     { return len(m.keys) }
func (m *Map) Keys() []Value { return append([]Value(nil), m.keys...) }

func (m *Map) Get(key Value) (Value, bool) {
	k, ok := keyOf(key)
	if !ok {
		return nil, false
	}
	i, ok := m.index[k]
	if !ok {
		return nil, false
	}
	return m.vals[i], true
}

func (m *Map) Inspect() string {
	var out strings.Builder
	out.WriteString("{")
	for i, k := range m.keys {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(k.Inspect())
		out.WriteString(": ")
		out.WriteString(m.vals[i].Inspect())
	}
	out.WriteString("}")
	return out.String()
}

// MapBuilder assembles an immutable map, rejecting invalid and duplicate
// keys.
type MapBuilder struct {
	m *Map
}

func NewMapBuilder() *MapBuilder {
	return &MapBuilder{m: &Map{index: map[mapKey]int{}}}
}

func (b *MapBuilder) Reserve(n int) {
	if len(b.m.keys) == 0 && n > 0 {
		b.m.keys = make([]Value, 0, n)
		b.m.vals = make([]Value, 0, n)
	}
}

// Put adds an entry. The returned error value is nil on success.
func (b *MapBuilder) Put(key, val Value) *Error {
	if !IsValidMapKey(key) {
		return NewError(ErrInvalidArgument, "unsupported key type: %s", TypeOf(key).Name)
	}
	k, _ := keyOf(key)
	if _, dup := b.m.index[k]; dup {
		return NewError(ErrInvalidArgument, "Failed with repeated key: %s", key.Inspect())
	}
	b.m.index[k] = len(b.m.keys)
	b.m.keys = append(b.m.keys, key)
	b.m.vals = append(b.m.vals, val)
	return nil
}

func (b *MapBuilder) Build() *Map {
	m := b.m
	b.m = &Map{index: map[mapKey]int{}}
	return m
}
