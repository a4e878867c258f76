package eval

import (
	"fmt"

	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/values"
)

// Comprehension names the variables and slots of one loop. Steps and
// direct nodes of the same loop share it.
type Comprehension struct {
	IterVar  string
	AccuVar  string
	IterSlot int
	AccuSlot int
}

func (c *Comprehension) String() string {
	return fmt.Sprintf("%s@%d %s@%d", c.IterVar, c.IterSlot, c.AccuVar, c.AccuSlot)
}

// iterationScope is the bookkeeping of a running loop.
type iterationScope struct {
	*Comprehension
	elems []values.Value
	keys  bool
	trail attribute.Trail
	index int
}

// enterComprehension validates the range and opens the loop scope. It
// returns the value that ends the loop at once (an error or unknown range
// or accumulator, or a non-iterable range); otherwise the scope is open,
// the accumulator is stored and, unless empty is set, the iteration
// variable holds the first element.
func (f *Frame) enterComprehension(c *Comprehension, rng values.Value, rngTrail attribute.Trail, accu values.Value) (abort values.Value, empty bool, err error) {
	if v := f.propagate([]values.Value{rng, accu}, []attribute.Trail{rngTrail, {}}, false); v != nil {
		return v, false, nil
	}
	s := &iterationScope{Comprehension: c, trail: rngTrail}
	switch r := rng.(type) {
	case values.Lister:
		s.elems = make([]values.Value, r.Size())
		for i := range s.elems {
			s.elems[i] = r.Get(i)
		}
	case values.Mapper:
		s.elems, s.keys = r.Keys(), true
	default:
		return values.NoMatchingOverload("<iter_range>", rng), false, nil
	}
	f.scopes = append(f.scopes, s)
	if err := f.slots.Set(c.AccuSlot, accu, attribute.Trail{}); err != nil {
		return nil, false, err
	}
	if len(s.elems) == 0 {
		return nil, true, nil
	}
	if limit := f.countIteration(); limit != nil {
		if err := f.exitComprehension(c); err != nil {
			return nil, false, err
		}
		return limit, false, nil
	}
	return nil, false, f.bindIteration(s)
}

func (f *Frame) countIteration() values.Value {
	f.iterations++
	if limit := f.options.ComprehensionMaxIterations; limit > 0 && f.iterations > limit {
		return values.NewError(values.ErrIterationLimit, "comprehension exceeded %d iterations", limit)
	}
	return nil
}

// bindIteration stores the current element in the iteration slot. List
// elements carry the range trail plus their index; map keys are plain
// values and carry none.
func (f *Frame) bindIteration(s *iterationScope) error {
	var trail attribute.Trail
	if !s.keys {
		trail = s.trail.Step(attribute.IntKey(int64(s.index)))
	}
	return f.slots.Set(s.IterSlot, s.elems[s.index], trail)
}

func (f *Frame) currentScope(c *Comprehension) (*iterationScope, error) {
	if len(f.scopes) == 0 || f.scopes[len(f.scopes)-1].Comprehension != c {
		return nil, fmt.Errorf("loop %s: %w", c, ErrScopeMismatch)
	}
	return f.scopes[len(f.scopes)-1], nil
}

// exitComprehension closes the innermost scope and clears its slots.
func (f *Frame) exitComprehension(c *Comprehension) error {
	if _, err := f.currentScope(c); err != nil {
		return err
	}
	f.scopes = f.scopes[:len(f.scopes)-1]
	if err := f.slots.Clear(c.IterSlot); err != nil {
		return err
	}
	return f.slots.Clear(c.AccuSlot)
}

// loopCondition classifies a condition value: stop aborts the loop with
// abort as its result; done ends it normally.
func (f *Frame) loopCondition(v values.Value) (abort values.Value, done bool) {
	if values.IsErrorOrUnknown(v) {
		return v, false
	}
	b, ok := v.(values.Bool)
	if !ok {
		return values.NoMatchingOverload("<loop_condition>", v), false
	}
	return nil, !bool(b) && f.options.ShortCircuiting
}

// advance stores the step result in the accumulator and moves to the next
// element. more is false once the range is exhausted; abort is set when
// the step result or the iteration limit ends the loop.
func (f *Frame) advance(c *Comprehension, step values.Value) (more bool, abort values.Value, err error) {
	s, err := f.currentScope(c)
	if err != nil {
		return false, nil, err
	}
	if values.IsErrorOrUnknown(step) {
		return false, step, nil
	}
	if err := f.slots.Set(c.AccuSlot, step, attribute.Trail{}); err != nil {
		return false, nil, err
	}
	s.index++
	if s.index >= len(s.elems) {
		return false, nil, nil
	}
	if limit := f.countIteration(); limit != nil {
		return false, limit, nil
	}
	return true, nil, f.bindIteration(s)
}

// finishComprehension closes the loop around its result. A mutable
// accumulator is frozen on the way out.
func (f *Frame) finishComprehension(c *Comprehension, result values.Value) (values.Value, error) {
	if err := f.exitComprehension(c); err != nil {
		return nil, err
	}
	if l, ok := result.(*values.MutableList); ok {
		return l.Snapshot(), nil
	}
	return result, nil
}

// ComprehensionInitStep pops the accumulator initializer and the range.
// ResultOffset reaches the result expression; ErrorOffset reaches the step
// after ComprehensionFinishStep.
type ComprehensionInitStep struct {
	stepKind
	Loop         *Comprehension
	ResultOffset int
	ErrorOffset  int
}

func (s *ComprehensionInitStep) Evaluate(f *Frame) error {
	if err := f.need(2); err != nil {
		return err
	}
	vals, trails := f.stack.GetSpan(2), f.stack.GetAttributeSpan(2)
	f.stack.Pop(2)
	abort, empty, err := f.enterComprehension(s.Loop, vals[0], trails[0], vals[1])
	if err != nil {
		return err
	}
	switch {
	case abort != nil:
		f.stack.Push(abort, attribute.Trail{})
		return f.JumpTo(s.ErrorOffset)
	case empty:
		return f.JumpTo(s.ResultOffset)
	}
	return nil
}

func (s *ComprehensionInitStep) String() string {
	return fmt.Sprintf("COMP_INIT %s result=%+d error=%+d", s.Loop, s.ResultOffset, s.ErrorOffset)
}

// ComprehensionCondStep pops the loop condition.
type ComprehensionCondStep struct {
	stepKind
	Loop         *Comprehension
	ResultOffset int
	ErrorOffset  int
}

func (s *ComprehensionCondStep) Evaluate(f *Frame) error {
	if err := f.need(1); err != nil {
		return err
	}
	v := f.stack.Peek()
	f.stack.Pop(1)
	abort, done := f.loopCondition(v)
	switch {
	case abort != nil:
		return f.abortComprehension(s.Loop, abort, s.ErrorOffset)
	case done:
		return f.JumpTo(s.ResultOffset)
	}
	return nil
}

func (s *ComprehensionCondStep) String() string {
	return fmt.Sprintf("COMP_COND %s result=%+d error=%+d", s.Loop, s.ResultOffset, s.ErrorOffset)
}

// ComprehensionNextStep pops the loop step result. CondOffset is negative
// and reaches the first step of the condition.
type ComprehensionNextStep struct {
	stepKind
	Loop        *Comprehension
	CondOffset  int
	ErrorOffset int
}

func (s *ComprehensionNextStep) Evaluate(f *Frame) error {
	if err := f.need(1); err != nil {
		return err
	}
	v := f.stack.Peek()
	f.stack.Pop(1)
	more, abort, err := f.advance(s.Loop, v)
	switch {
	case err != nil:
		return err
	case abort != nil:
		return f.abortComprehension(s.Loop, abort, s.ErrorOffset)
	case more:
		return f.JumpTo(s.CondOffset)
	}
	return nil
}

func (s *ComprehensionNextStep) String() string {
	return fmt.Sprintf("COMP_NEXT %s cond=%+d error=%+d", s.Loop, s.CondOffset, s.ErrorOffset)
}

// ComprehensionFinishStep closes the loop around the result on top of the
// stack.
type ComprehensionFinishStep struct {
	stepKind
	Loop *Comprehension
}

func (s *ComprehensionFinishStep) Evaluate(f *Frame) error {
	if err := f.need(1); err != nil {
		return err
	}
	v, err := f.finishComprehension(s.Loop, f.stack.Peek())
	if err != nil {
		return err
	}
	f.stack.PopAndPush(1, v, attribute.Trail{})
	return nil
}

func (s *ComprehensionFinishStep) String() string {
	return "COMP_FINISH " + s.Loop.String()
}

func (f *Frame) abortComprehension(c *Comprehension, v values.Value, offset int) error {
	if err := f.exitComprehension(c); err != nil {
		return err
	}
	f.stack.Push(v, attribute.Trail{})
	return f.JumpTo(offset)
}
