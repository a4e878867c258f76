package eval

import (
	"context"
	"fmt"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/values"
)

// Steps between two looks at the context.
const deadlineCheckInterval = 1000

type callRecord struct {
	code []Step
	pc   int
}

// Frame is the state of one evaluation: program counter, value stack, slot
// table, call stack and the comprehension scopes currently open. A frame
// is never shared between evaluations.
type Frame struct {
	ctx        context.Context
	program    *Program
	activation activation.Activation
	options    Options
	attrs      *AttributeUtility

	code  []Step
	pc    int
	next  int
	calls []callRecord
	depth int

	stack  *ValueStack
	slots  *SlotTable
	scopes []*iterationScope

	ticks      int
	iterations int
}

func newFrame(ctx context.Context, p *Program, act activation.Activation, opts Options) *Frame {
	if act == nil {
		act = activation.Empty()
	}
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	return &Frame{
		ctx:        ctx,
		program:    p,
		activation: act,
		options:    opts,
		attrs:      newAttributeUtility(opts),
		code:       p.Main,
		stack:      NewValueStack(16),
		slots:      NewSlotTable(p.SlotCount),
	}
}

func (f *Frame) Stack() *ValueStack { return f.stack }
func (f *Frame) Slots() *SlotTable  { return f.slots }
func (f *Frame) Options() Options   { return f.options }

func (f *Frame) AttributeUtility() *AttributeUtility { return f.attrs }

// run executes until the main program runs off its end, and returns the
// single value left on the stack.
func (f *Frame) run() (values.Value, error) {
	for {
		if f.pc >= len(f.code) {
			if len(f.calls) == 0 {
				break
			}
			f.ret()
			continue
		}
		if err := f.tick(); err != nil {
			return nil, err
		}
		step := f.code[f.pc]
		f.next = f.pc + 1
		if err := step.Evaluate(f); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", f.pc, step, err)
		}
		f.pc = f.next
	}
	switch n := f.stack.Size(); {
	case n == 0:
		return nil, fmt.Errorf("no result: %w", ErrStackUnderflow)
	case n > 1:
		return nil, fmt.Errorf("%d values left on the stack: %w", n, ErrUnbalancedStack)
	}
	return f.stack.Peek(), nil
}

// tick counts work and checks the context every deadlineCheckInterval
// steps, starting with the first.
func (f *Frame) tick() error {
	if f.ticks%deadlineCheckInterval == 0 {
		if err := f.ctx.Err(); err != nil {
			return fmt.Errorf("evaluation interrupted: %w", err)
		}
	}
	f.ticks++
	return nil
}

// JumpTo redirects control relative to the step after the current one;
// offset 0 falls through.
func (f *Frame) JumpTo(offset int) error {
	target := f.pc + 1 + offset
	if target < 0 || target > len(f.code) {
		return fmt.Errorf("offset %d from %d leaves a program of %d steps: %w", offset, f.pc, len(f.code), ErrInvalidJump)
	}
	f.next = target
	return nil
}

// Call runs subexpression index and then resumes returnOffset steps after
// the step following the call site.
func (f *Frame) Call(returnOffset, index int) error {
	if index < 0 || index >= len(f.program.Subexpressions) {
		return fmt.Errorf("subexpression %d: %w", index, ErrInvalidSubexpression)
	}
	if err := f.enter(); err != nil {
		return err
	}
	f.calls = append(f.calls, callRecord{code: f.code, pc: f.pc + 1 + returnOffset})
	f.code = f.program.Subexpressions[index]
	f.next = 0
	return nil
}

func (f *Frame) ret() {
	r := f.calls[len(f.calls)-1]
	f.calls = f.calls[:len(f.calls)-1]
	f.code, f.pc = r.code, r.pc
	f.depth--
}

func (f *Frame) enter() error {
	if f.depth >= f.options.MaxCallDepth {
		return fmt.Errorf("depth %d: %w", f.depth, ErrCallDepth)
	}
	f.depth++
	return nil
}

func (f *Frame) need(n int) error {
	if !f.stack.HasEnough(n) {
		return fmt.Errorf("need %d values, have %d: %w", n, f.stack.Size(), ErrStackUnderflow)
	}
	return nil
}

// resolveIdent looks name up in the open comprehension scopes, then
// against the attribute patterns, then in the activation. Root names
// (written with a leading dot) skip the scopes. A loop variable bound to a
// list element is checked against the patterns with its element trail.
func (f *Frame) resolveIdent(name string, root bool) (values.Value, attribute.Trail, error) {
	if !root {
		for i := len(f.scopes) - 1; i >= 0; i-- {
			s := f.scopes[i]
			var idx int
			switch name {
			case s.IterVar:
				idx = s.IterSlot
			case s.AccuVar:
				idx = s.AccuSlot
			default:
				continue
			}
			v, trail, ok, err := f.slots.Get(idx)
			if err != nil {
				return nil, attribute.Trail{}, err
			}
			if !ok {
				continue
			}
			if !trail.Empty() {
				if cv := f.checkAttribute(trail); cv != nil {
					return cv, trail, nil
				}
			}
			return v, trail, nil
		}
	}
	trail := attribute.NewTrail(name)
	if v := f.checkAttribute(trail); v != nil {
		return v, trail, nil
	}
	if v, ok := f.activation.FindVariable(name); ok {
		return v, trail, nil
	}
	return values.NewError(values.ErrNotFound, "no value with name %q found in activation", name), trail, nil
}

// checkAttribute returns the missing-attribute error or unknown the trail
// is declared as, or nil.
func (f *Frame) checkAttribute(trail attribute.Trail) values.Value {
	if f.attrs.CheckForMissingAttribute(trail) {
		return f.attrs.CreateMissingAttributeError(trail.Attribute())
	}
	if f.attrs.CheckForUnknown(trail, false) {
		return f.attrs.CreateUnknownSet(trail.Attribute())
	}
	return nil
}

// propagate applies the operator rule for siblings: the first error wins,
// then the merged unknowns. It returns nil when all are concrete.
func (f *Frame) propagate(vals []values.Value, trails []attribute.Trail, usePartial bool) values.Value {
	for _, v := range vals {
		if e, ok := v.(*values.Error); ok {
			return e
		}
	}
	if unk := f.attrs.IdentifyAndMergeUnknowns(vals, trails, usePartial); unk != nil {
		return unk
	}
	return nil
}
