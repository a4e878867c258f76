package eval

import (
	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/values"
)

// ValueStack holds operands and, in a parallel shadow stack, the attribute
// trail of each one. Callers check HasEnough before any multi-entry access.
type ValueStack struct {
	values []values.Value
	trails []attribute.Trail
}

func NewValueStack(capacity int) *ValueStack {
	return &ValueStack{
		values: make([]values.Value, 0, capacity),
		trails: make([]attribute.Trail, 0, capacity),
	}
}

func (s *ValueStack) Size() int { return len(s.values) }

func (s *ValueStack) HasEnough(n int) bool { return n >= 0 && len(s.values) >= n }

func (s *ValueStack) Push(v values.Value, trail attribute.Trail) {
	s.values = append(s.values, v)
	s.trails = append(s.trails, trail)
}

func (s *ValueStack) Pop(n int) {
	top := len(s.values) - n
	clear(s.values[top:])
	s.values = s.values[:top]
	s.trails = s.trails[:top]
}

func (s *ValueStack) Peek() values.Value { return s.values[len(s.values)-1] }

func (s *ValueStack) PeekAttribute() attribute.Trail { return s.trails[len(s.trails)-1] }

// GetSpan returns a copy of the top n values, bottom to top.
func (s *ValueStack) GetSpan(n int) []values.Value {
	return append([]values.Value(nil), s.values[len(s.values)-n:]...)
}

// GetAttributeSpan returns a copy of the top n trails, bottom to top.
func (s *ValueStack) GetAttributeSpan(n int) []attribute.Trail {
	return append([]attribute.Trail(nil), s.trails[len(s.trails)-n:]...)
}

// PopAndPush replaces the top n entries by one.
func (s *ValueStack) PopAndPush(n int, v values.Value, trail attribute.Trail) {
	s.Pop(n)
	s.Push(v, trail)
}
