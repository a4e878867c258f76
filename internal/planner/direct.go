package planner

import (
	"strings"

	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/operators"
	"github.com/funvibe/expreval/internal/values"
)

// direct plans node as a tree of direct nodes. After a diagnostic the
// returned node is a placeholder; the program is discarded anyway.
func (c *compilation) direct(node ast.Expression) eval.DirectNode {
	switch n := node.(type) {
	case *ast.Literal:
		return eval.DirectConst(n.Value)
	case *ast.Identifier:
		return c.directIdent(n)
	case *ast.SelectExpression:
		if v, ok := c.constant(n); ok {
			return eval.DirectConst(v)
		}
		return eval.DirectSelect(c.direct(n.Operand), n.Field, n.TestOnly, n.Optional)
	case *ast.IndexExpression:
		operand := c.direct(n.Operand)
		return eval.DirectIndex(operand, c.direct(n.Index), n.Optional)
	case *ast.CallExpression:
		return c.directCall(n)
	case *ast.ListLiteral:
		return eval.DirectList(c.directAll(n.Elements), n.OptionalIndices, n.Mutable)
	case *ast.MapLiteral:
		entries := make([]eval.DirectNode, 0, 2*len(n.Entries))
		for _, e := range n.Entries {
			entries = append(entries, c.direct(e.Key), c.direct(e.Value))
		}
		return eval.DirectMap(entries, mapOptionals(n))
	case *ast.StructLiteral:
		mt, ok := c.messageType(n)
		vals := make([]eval.DirectNode, len(n.Fields))
		for i, f := range n.Fields {
			vals[i] = c.direct(f.Value)
		}
		if !ok {
			return eval.DirectConst(values.NullValue)
		}
		names, optional := structFields(n)
		return eval.DirectStruct(mt, names, vals, optional)
	case *ast.Comprehension:
		rng := c.direct(n.IterRange)
		accu := c.direct(n.AccuInit)
		loop, closeLoop := c.loop(n)
		defer closeLoop()
		cond := c.direct(n.LoopCondition)
		step := c.direct(n.LoopStep)
		result := c.direct(n.Result)
		return eval.DirectComprehension(loop, rng, accu, cond, step, result)
	case *ast.Bind:
		c.beginInit()
		init := c.direct(n.Init)
		c.endInit()
		slot := c.slots.alloc()
		c.pushLocal(&local{name: n.Name, kind: bindLocal, slot: slot, init: init})
		body := c.direct(n.Body)
		c.popLocals(1)
		c.slots.release(slot)
		return eval.DirectBind(slot, body)
	}
	c.unsupported(node)
	return eval.DirectConst(values.NullValue)
}

func (c *compilation) directAll(nodes []ast.Expression) []eval.DirectNode {
	out := make([]eval.DirectNode, len(nodes))
	for i, n := range nodes {
		out[i] = c.direct(n)
	}
	return out
}

func (c *compilation) directIdent(n *ast.Identifier) eval.DirectNode {
	if v, ok := c.constant(n); ok {
		return eval.DirectConst(v)
	}
	name, root := strings.CutPrefix(n.Name, ".")
	if !root {
		if l := c.resolveLocal(name); l != nil {
			if l.kind == bindLocal {
				return eval.DirectLazyInit(l.slot, l.init)
			}
			return eval.DirectIdent(name, false)
		}
	}
	return eval.DirectIdent(name, root || c.initDepth > 0)
}

func (c *compilation) directCall(n *ast.CallExpression) eval.DirectNode {
	if n.Target == nil {
		switch {
		case n.Function == operators.LogicalAnd && len(n.Arguments) == 2:
			args := c.directAll(n.Arguments)
			return eval.DirectAnd(args[0], args[1])
		case n.Function == operators.LogicalOr && len(n.Arguments) == 2:
			args := c.directAll(n.Arguments)
			return eval.DirectOr(args[0], args[1])
		case n.Function == operators.Conditional && len(n.Arguments) == 3:
			args := c.directAll(n.Arguments)
			return eval.DirectTernary(args[0], args[1], args[2])
		}
	}
	fn, receiver, args := c.function(n)
	nodes := c.directAll(args)
	if fn == nil {
		return eval.DirectConst(values.NullValue)
	}
	return eval.DirectCall(fn, receiver, nodes)
}

// directLeaf reports whether a hybrid plan runs node as one direct step:
// any compound expression without loops or bindings.
func (c *compilation) directLeaf(node ast.Expression) bool {
	switch node.(type) {
	case *ast.Literal, *ast.Identifier, nil:
		return false
	}
	return c.flat(node)
}

func (c *compilation) flat(node ast.Expression) bool {
	switch n := node.(type) {
	case nil:
		return false
	case *ast.Comprehension, *ast.Bind:
		return false
	case *ast.Identifier:
		name, root := strings.CutPrefix(n.Name, ".")
		if l := c.resolveLocal(name); !root && l != nil && l.kind == bindLocal {
			return false
		}
		return true
	}
	for _, child := range children(node) {
		if !c.flat(child) {
			return false
		}
	}
	return true
}

func children(node ast.Expression) []ast.Expression {
	switch n := node.(type) {
	case *ast.SelectExpression:
		return []ast.Expression{n.Operand}
	case *ast.IndexExpression:
		return []ast.Expression{n.Operand, n.Index}
	case *ast.CallExpression:
		if n.Target == nil {
			return n.Arguments
		}
		return append([]ast.Expression{n.Target}, n.Arguments...)
	case *ast.ListLiteral:
		return n.Elements
	case *ast.MapLiteral:
		out := make([]ast.Expression, 0, 2*len(n.Entries))
		for _, e := range n.Entries {
			out = append(out, e.Key, e.Value)
		}
		return out
	case *ast.StructLiteral:
		out := make([]ast.Expression, len(n.Fields))
		for i, f := range n.Fields {
			out[i] = f.Value
		}
		return out
	}
	return nil
}
