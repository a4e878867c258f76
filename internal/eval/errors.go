package eval

import "errors"

// Fatal evaluation faults. They mean the program itself is malformed and
// are never turned into error values.
var (
	ErrStackUnderflow       = errors.New("stack underflow")
	ErrUnbalancedStack      = errors.New("unbalanced stack")
	ErrInvalidJump          = errors.New("invalid jump")
	ErrInvalidSlot          = errors.New("invalid slot")
	ErrInvalidSubexpression = errors.New("invalid subexpression")
	ErrCallDepth            = errors.New("call depth exceeded")
	ErrScopeMismatch        = errors.New("comprehension scope mismatch")
)
