package eval

import "fmt"

// CheckLazyInitStep pushes the memoized value of Slot and skips the
// following AssignSlotStep, or, while the slot is unset, calls the
// subexpression that computes it and falls through to the assignment.
type CheckLazyInitStep struct {
	stepKind
	Slot          int
	Subexpression int
}

func (s *CheckLazyInitStep) Evaluate(f *Frame) error {
	v, trail, ok, err := f.slots.Get(s.Slot)
	if err != nil {
		return err
	}
	if ok {
		f.stack.Push(v, trail)
		return f.JumpTo(1)
	}
	return f.Call(0, s.Subexpression)
}

func (s *CheckLazyInitStep) String() string {
	return fmt.Sprintf("CHECK_LAZY slot=%d sub=%d", s.Slot, s.Subexpression)
}

// AssignSlotStep copies the top of the stack into Slot, popping it when
// Pop is set.
type AssignSlotStep struct {
	stepKind
	Slot int
	Pop  bool
}

func (s *AssignSlotStep) Evaluate(f *Frame) error {
	if err := f.need(1); err != nil {
		return err
	}
	if err := f.slots.Set(s.Slot, f.stack.Peek(), f.stack.PeekAttribute()); err != nil {
		return err
	}
	if s.Pop {
		f.stack.Pop(1)
	}
	return nil
}

func (s *AssignSlotStep) String() string {
	if s.Pop {
		return fmt.Sprintf("ASSIGN_POP slot=%d", s.Slot)
	}
	return fmt.Sprintf("ASSIGN slot=%d", s.Slot)
}

// ClearSlotStep ends a binding's scope.
type ClearSlotStep struct {
	stepKind
	Slot int
}

func (s *ClearSlotStep) Evaluate(f *Frame) error { return f.slots.Clear(s.Slot) }

func (s *ClearSlotStep) String() string { return fmt.Sprintf("CLEAR slot=%d", s.Slot) }
