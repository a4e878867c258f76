package values

import "strings"

// Lister is implemented by List and MutableList.
type Lister interface {
	Value
	Size() int
	Get(i int) Value
}

// List is an immutable ordered collection.
type List struct {
	elems []Value
}

// NewList takes ownership of elems.
func NewList(elems ...Value) *List {
	return &List{elems: elems}
}

func (l *List) Kind() Kind        { return ListKind }
func (l *List) Inspect() string   { return inspectElems(l.elems) }
func (l *List) Size() int         { return len(l.elems) }
func (l *List) Get(i int) Value   { return l.elems[i] }
func (l *List) Elements() []Value { return append([]Value(nil), l.elems...) }

// MutableList is the accumulator form used while a comprehension is
// building a list. It is only ever visible to the comprehension that owns
// it; Snapshot publishes an immutable copy.
type MutableList struct {
	elems []Value
}

func NewMutableList(capacity int) *MutableList {
	return &MutableList{elems: make([]Value, 0, capacity)}
}

func (m *MutableList) Kind() Kind      { return ListKind }
func (m *MutableList) Inspect() string { return inspectElems(m.elems) }
func (m *MutableList) Size() int       { return len(m.elems) }
func (m *MutableList) Get(i int) Value { return m.elems[i] }

func (m *MutableList) Add(v Value) { m.elems = append(m.elems, v) }

// AddAll appends the elements l holds at the time of the call; l may be m.
func (m *MutableList) AddAll(l Lister) {
	n := l.Size()
	for i := 0; i < n; i++ {
		m.elems = append(m.elems, l.Get(i))
	}
}

func (m *MutableList) Snapshot() *List {
	return &List{elems: append([]Value(nil), m.elems...)}
}

// ListBuilder assembles an immutable list.
type ListBuilder struct {
	elems []Value
}

func NewListBuilder() *ListBuilder { return &ListBuilder{} }

func (b *ListBuilder) Reserve(n int) {
	if cap(b.elems)-len(b.elems) < n {
		grown := make([]Value, len(b.elems), len(b.elems)+n)
		copy(grown, b.elems)
		b.elems = grown
	}
}

func (b *ListBuilder) Add(v Value) { b.elems = append(b.elems, v) }

func (b *ListBuilder) Build() *List {
	l := &List{elems: b.elems}
	b.elems = nil
	return l
}

func inspectElems(elems []Value) string {
	var out strings.Builder
	out.WriteString("[")
	for i, e := range elems {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(e.Inspect())
	}
	out.WriteString("]")
	return out.String()
}
