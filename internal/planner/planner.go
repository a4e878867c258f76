// Package planner compiles expression trees into evaluator programs: a flat
// step program, a single direct tree, or a step program with direct leaves.
//
// Names are resolved here rather than at run time. Functions are looked up
// in the registry, struct literals and enum constants in the type provider,
// and every reference to a cel.bind name becomes a lazy slot read.
package planner

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/functions"
	"github.com/funvibe/expreval/internal/token"
	"github.com/funvibe/expreval/internal/values"
)

var ErrUnknownMode = errors.New("unknown backend mode")

// Mode selects the shape of the planned program.
type Mode int

const (
	StepMode Mode = iota
	DirectMode
	HybridMode
)

var modeNames = [...]string{"step", "direct", "hybrid"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownMode)
}

// TypeProvider resolves protobuf names used by expressions.
type TypeProvider interface {
	FindMessageType(name string) (protoreflect.MessageType, bool)
	FindEnumValue(name string) (values.Enum, bool)
}

// Planner turns trees into programs. It holds no per-plan state and may be
// shared.
type Planner struct {
	functions *functions.Registry
	types     TypeProvider
	mode      Mode
}

// New returns a planner. types may be nil when no messages are used.
func New(fns *functions.Registry, types TypeProvider, mode Mode) *Planner {
	return &Planner{functions: fns, types: types, mode: mode}
}

func (p *Planner) Mode() Mode { return p.mode }

// Plan compiles root. The returned error is a diagnostics.List.
func (p *Planner) Plan(root ast.Expression) (*eval.Program, error) {
	c := &compilation{Planner: p}
	prog := c.program(root)
	if len(c.errors) > 0 {
		return nil, diagnostics.List(c.errors)
	}
	return prog, nil
}

type localKind int

const (
	loopLocal localKind = iota
	bindLocal
)

// local is a name introduced by a comprehension or a cel.bind.
type local struct {
	name string
	kind localKind
	slot int
	sub  int             // step form of a bind initializer
	init eval.DirectNode // direct form of a bind initializer
}

// compilation is the state of one Plan call.
type compilation struct {
	*Planner
	locals []*local
	slots  slotAllocator
	subs   [][]eval.Step
	errors []*diagnostics.Error

	// initDepth is non-zero while a bind initializer is compiled. Free
	// names there skip the loop scopes open at the reference site.
	initDepth int
}

func (c *compilation) program(root ast.Expression) *eval.Program {
	var main []eval.Step
	if c.mode == DirectMode {
		main = []eval.Step{&eval.DirectStep{Node: c.direct(root)}}
	} else {
		e := &emitter{}
		c.steps(e, root)
		main = e.code
	}
	return &eval.Program{Main: main, Subexpressions: c.subs, SlotCount: c.slots.size()}
}

func (c *compilation) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	c.errors = append(c.errors, diagnostics.NewError(code, tok, format, args...))
}

func (c *compilation) pushLocal(l *local) { c.locals = append(c.locals, l) }

func (c *compilation) popLocals(n int) { c.locals = c.locals[:len(c.locals)-n] }

// resolveLocal returns the innermost local called name.
func (c *compilation) resolveLocal(name string) *local {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return c.locals[i]
		}
	}
	return nil
}

// beginInit and endInit bracket a bind initializer. Slots taken inside it
// are never reused: the initializer runs at its first reference, possibly
// inside loops planned after it.
func (c *compilation) beginInit() {
	c.initDepth++
	c.slots.pinned++
}

func (c *compilation) endInit() {
	c.initDepth--
	c.slots.pinned--
}

// loop opens the scope of a comprehension and returns its descriptor and a
// closer releasing the scope.
func (c *compilation) loop(n *ast.Comprehension) (*eval.Comprehension, func()) {
	loop := &eval.Comprehension{
		IterVar:  n.IterVar,
		AccuVar:  n.AccuVar,
		IterSlot: c.slots.alloc(),
		AccuSlot: c.slots.alloc(),
	}
	c.pushLocal(&local{name: n.IterVar, kind: loopLocal, slot: loop.IterSlot})
	c.pushLocal(&local{name: n.AccuVar, kind: loopLocal, slot: loop.AccuSlot})
	return loop, func() {
		c.popLocals(2)
		c.slots.release(loop.AccuSlot)
		c.slots.release(loop.IterSlot)
	}
}

// slotAllocator hands out slot indices, reusing released ones. size is the
// high-water mark.
type slotAllocator struct {
	next   int
	free   []int
	pinned int
}

func (a *slotAllocator) alloc() int {
	if a.pinned == 0 && len(a.free) > 0 {
		i := a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
		return i
	}
	a.next++
	return a.next - 1
}

func (a *slotAllocator) release(i int) {
	if a.pinned == 0 {
		a.free = append(a.free, i)
	}
}

func (a *slotAllocator) size() int { return a.next }
