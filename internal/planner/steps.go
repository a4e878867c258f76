package planner

import (
	"strings"

	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/operators"
	"github.com/funvibe/expreval/internal/token"
)

// emitter accumulates the steps of one code block (the main program or a
// subexpression).
type emitter struct {
	code []eval.Step
}

// emit appends s and returns its index.
func (e *emitter) emit(s eval.Step) int {
	e.code = append(e.code, s)
	return len(e.code) - 1
}

func (e *emitter) len() int { return len(e.code) }

// jump is the relative offset a step at index from uses to reach target.
func jump(from, target int) int { return target - from - 1 }

func (c *compilation) steps(e *emitter, node ast.Expression) {
	if c.mode == HybridMode && c.directLeaf(node) {
		e.emit(&eval.DirectStep{Node: c.direct(node)})
		return
	}
	switch n := node.(type) {
	case *ast.Literal:
		e.emit(&eval.ConstStep{Value: n.Value})
	case *ast.Identifier:
		c.identSteps(e, n)
	case *ast.SelectExpression:
		if v, ok := c.constant(n); ok {
			e.emit(&eval.ConstStep{Value: v})
			return
		}
		c.steps(e, n.Operand)
		e.emit(&eval.SelectStep{Field: n.Field, TestOnly: n.TestOnly, Optional: n.Optional})
	case *ast.IndexExpression:
		c.steps(e, n.Operand)
		c.steps(e, n.Index)
		e.emit(&eval.IndexStep{Optional: n.Optional})
	case *ast.CallExpression:
		c.callSteps(e, n)
	case *ast.ListLiteral:
		for _, elem := range n.Elements {
			c.steps(e, elem)
		}
		e.emit(&eval.CreateListStep{Size: len(n.Elements), OptionalIndices: n.OptionalIndices, Mutable: n.Mutable})
	case *ast.MapLiteral:
		for _, entry := range n.Entries {
			c.steps(e, entry.Key)
			c.steps(e, entry.Value)
		}
		e.emit(&eval.CreateMapStep{Size: len(n.Entries), OptionalIndices: mapOptionals(n)})
	case *ast.StructLiteral:
		mt, ok := c.messageType(n)
		for _, f := range n.Fields {
			c.steps(e, f.Value)
		}
		if ok {
			names, optional := structFields(n)
			e.emit(&eval.CreateStructStep{Type: mt, Fields: names, OptionalIndices: optional})
		}
	case *ast.Comprehension:
		c.comprehensionSteps(e, n)
	case *ast.Bind:
		c.bindSteps(e, n)
	default:
		c.unsupported(node)
	}
}

func (c *compilation) unsupported(node ast.Expression) {
	if node == nil {
		c.errorf(diagnostics.ErrC003, token.Token{}, "missing expression")
		return
	}
	c.errorf(diagnostics.ErrC003, node.GetToken(), "unsupported expression %T", node)
}

func (c *compilation) identSteps(e *emitter, n *ast.Identifier) {
	if v, ok := c.constant(n); ok {
		e.emit(&eval.ConstStep{Value: v})
		return
	}
	name, root := strings.CutPrefix(n.Name, ".")
	if !root {
		if l := c.resolveLocal(name); l != nil {
			if l.kind == bindLocal {
				e.emit(&eval.CheckLazyInitStep{Slot: l.slot, Subexpression: l.sub})
				e.emit(&eval.AssignSlotStep{Slot: l.slot})
				return
			}
			e.emit(&eval.IdentStep{Name: name})
			return
		}
	}
	e.emit(&eval.IdentStep{Name: name, Root: root || c.initDepth > 0})
}

// callSteps lays out calls. && and || become
//
//	a, BoolCheckJump(→end), b, Logic
//
// and c ? a : b becomes
//
//	c, TernaryJump(else, end), a, Jump(→end), b
func (c *compilation) callSteps(e *emitter, n *ast.CallExpression) {
	if n.Target == nil {
		switch {
		case (n.Function == operators.LogicalAnd || n.Function == operators.LogicalOr) && len(n.Arguments) == 2:
			and := n.Function == operators.LogicalAnd
			c.steps(e, n.Arguments[0])
			check := &eval.BoolCheckJumpStep{And: and}
			at := e.emit(check)
			c.steps(e, n.Arguments[1])
			e.emit(&eval.LogicStep{And: and})
			check.Offset = jump(at, e.len())
			return
		case n.Function == operators.Conditional && len(n.Arguments) == 3:
			c.steps(e, n.Arguments[0])
			branch := &eval.TernaryJumpStep{}
			at := e.emit(branch)
			c.steps(e, n.Arguments[1])
			skip := &eval.JumpStep{}
			skipAt := e.emit(skip)
			branch.ElseOffset = jump(at, e.len())
			c.steps(e, n.Arguments[2])
			skip.Offset = jump(skipAt, e.len())
			branch.EndOffset = jump(at, e.len())
			return
		}
	}
	fn, receiver, args := c.function(n)
	for _, arg := range args {
		c.steps(e, arg)
	}
	if fn != nil {
		e.emit(&eval.FunctionStep{Function: fn, ReceiverStyle: receiver, Argc: len(args)})
	}
}

// comprehensionSteps lays out a loop as
//
//	range, accu, Init, cond, Cond, step, Next, result, Finish
//
// Init and Cond jump to result when the loop ends early; every abort jumps
// past Finish with the aborting value on the stack.
func (c *compilation) comprehensionSteps(e *emitter, n *ast.Comprehension) {
	c.steps(e, n.IterRange)
	c.steps(e, n.AccuInit)
	loop, closeLoop := c.loop(n)
	defer closeLoop()

	init := &eval.ComprehensionInitStep{Loop: loop}
	initAt := e.emit(init)
	condStart := e.len()
	c.steps(e, n.LoopCondition)
	cond := &eval.ComprehensionCondStep{Loop: loop}
	condAt := e.emit(cond)
	c.steps(e, n.LoopStep)
	next := &eval.ComprehensionNextStep{Loop: loop}
	nextAt := e.emit(next)
	resultStart := e.len()
	c.steps(e, n.Result)
	e.emit(&eval.ComprehensionFinishStep{Loop: loop})
	end := e.len()

	init.ResultOffset = jump(initAt, resultStart)
	init.ErrorOffset = jump(initAt, end)
	cond.ResultOffset = jump(condAt, resultStart)
	cond.ErrorOffset = jump(condAt, end)
	next.CondOffset = jump(nextAt, condStart)
	next.ErrorOffset = jump(nextAt, end)
}

// bindSteps plans the initializer as a subexpression called by the first
// reference, then the body, then clears the slot.
func (c *compilation) bindSteps(e *emitter, n *ast.Bind) {
	sub := &emitter{}
	c.beginInit()
	c.steps(sub, n.Init)
	c.endInit()
	c.subs = append(c.subs, sub.code)

	slot := c.slots.alloc()
	c.pushLocal(&local{name: n.Name, kind: bindLocal, slot: slot, sub: len(c.subs) - 1})
	c.steps(e, n.Body)
	c.popLocals(1)
	e.emit(&eval.ClearSlotStep{Slot: slot})
	c.slots.release(slot)
}
