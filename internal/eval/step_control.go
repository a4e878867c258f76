package eval

import (
	"fmt"

	"github.com/funvibe/expreval/internal/attribute"
)

// JumpStep always jumps.
type JumpStep struct {
	stepKind
	Offset int
}

func (s *JumpStep) Evaluate(f *Frame) error { return f.JumpTo(s.Offset) }

func (s *JumpStep) String() string { return fmt.Sprintf("JUMP %+d", s.Offset) }

// BoolCheckJumpStep sits between the operands of && or ||. When the left
// operand already decides the result it stays on the stack and the right
// operand and the LogicStep are skipped.
type BoolCheckJumpStep struct {
	stepKind
	And    bool
	Offset int
}

func (s *BoolCheckJumpStep) Evaluate(f *Frame) error {
	if err := f.need(1); err != nil {
		return err
	}
	if f.options.ShortCircuiting && absorbs(s.And, f.stack.Peek()) {
		return f.JumpTo(s.Offset)
	}
	return nil
}

func (s *BoolCheckJumpStep) String() string {
	if s.And {
		return fmt.Sprintf("AND_CHECK %+d", s.Offset)
	}
	return fmt.Sprintf("OR_CHECK %+d", s.Offset)
}

// LogicStep combines the two operands of && or ||.
type LogicStep struct {
	stepKind
	And bool
}

func (s *LogicStep) Evaluate(f *Frame) error {
	if err := f.need(2); err != nil {
		return err
	}
	vals, trails := f.stack.GetSpan(2), f.stack.GetAttributeSpan(2)
	f.stack.PopAndPush(2, f.logic(s.And, vals[0], trails[0], vals[1], trails[1]), attribute.Trail{})
	return nil
}

func (s *LogicStep) String() string {
	if s.And {
		return "AND"
	}
	return "OR"
}

// TernaryJumpStep pops the condition of c ? a : b. True falls through to
// a; false jumps to b; an error, unknown or non-bool condition becomes
// the result and jumps past both branches.
type TernaryJumpStep struct {
	stepKind
	ElseOffset int
	EndOffset  int
}

func (s *TernaryJumpStep) Evaluate(f *Frame) error {
	if err := f.need(1); err != nil {
		return err
	}
	branch, replacement := f.condition(f.stack.Peek(), f.stack.PeekAttribute())
	f.stack.Pop(1)
	if replacement != nil {
		f.stack.Push(replacement, attribute.Trail{})
		return f.JumpTo(s.EndOffset)
	}
	if branch {
		return nil
	}
	return f.JumpTo(s.ElseOffset)
}

func (s *TernaryJumpStep) String() string {
	return fmt.Sprintf("TERNARY else=%+d end=%+d", s.ElseOffset, s.EndOffset)
}
