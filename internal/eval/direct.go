package eval

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/functions"
	"github.com/funvibe/expreval/internal/values"
)

// Result receives the outcome of a direct node.
type Result struct {
	Value values.Value
	Trail attribute.Trail
}

// DirectNode evaluates a subtree recursively instead of through the value
// stack. Every node reproduces the outcome of the equivalent steps.
type DirectNode interface {
	Evaluate(f *Frame, out *Result) error
	String() string
	isDirect()
}

type directKind struct{}

func (directKind) isDirect() {}

func (out *Result) set(v values.Value, trail attribute.Trail) {
	out.Value, out.Trail = v, trail
}

func evalAll(f *Frame, nodes []DirectNode) ([]values.Value, []attribute.Trail, error) {
	vals := make([]values.Value, len(nodes))
	trails := make([]attribute.Trail, len(nodes))
	for i, n := range nodes {
		var r Result
		if err := n.Evaluate(f, &r); err != nil {
			return nil, nil, err
		}
		vals[i], trails[i] = r.Value, r.Trail
	}
	return vals, trails, nil
}

func joinNodes(nodes []DirectNode) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

type directConst struct {
	directKind
	value values.Value
}

func DirectConst(v values.Value) DirectNode { return &directConst{value: v} }

func (n *directConst) Evaluate(f *Frame, out *Result) error {
	out.set(n.value, attribute.Trail{})
	return nil
}

func (n *directConst) String() string { return n.value.Inspect() }

type directIdent struct {
	directKind
	name string
	root bool
}

func DirectIdent(name string, root bool) DirectNode { return &directIdent{name: name, root: root} }

func (n *directIdent) Evaluate(f *Frame, out *Result) error {
	v, trail, err := f.resolveIdent(n.name, n.root)
	if err != nil {
		return err
	}
	out.set(v, trail)
	return nil
}

func (n *directIdent) String() string {
	if n.root {
		return "." + n.name
	}
	return n.name
}

type directSelect struct {
	directKind
	operand  DirectNode
	field    string
	testOnly bool
	optional bool
}

func DirectSelect(operand DirectNode, field string, testOnly, optional bool) DirectNode {
	return &directSelect{operand: operand, field: field, testOnly: testOnly, optional: optional}
}

func (n *directSelect) Evaluate(f *Frame, out *Result) error {
	var r Result
	if err := n.operand.Evaluate(f, &r); err != nil {
		return err
	}
	out.set(f.selectField(r.Value, r.Trail, n.field, n.testOnly, n.optional))
	return nil
}

func (n *directSelect) String() string {
	switch {
	case n.testOnly:
		return fmt.Sprintf("has(%s.%s)", n.operand, n.field)
	case n.optional:
		return fmt.Sprintf("%s.?%s", n.operand, n.field)
	}
	return fmt.Sprintf("%s.%s", n.operand, n.field)
}

type directIndex struct {
	directKind
	operand, key DirectNode
	optional     bool
}

func DirectIndex(operand, key DirectNode, optional bool) DirectNode {
	return &directIndex{operand: operand, key: key, optional: optional}
}

func (n *directIndex) Evaluate(f *Frame, out *Result) error {
	var o, k Result
	if err := n.operand.Evaluate(f, &o); err != nil {
		return err
	}
	if err := n.key.Evaluate(f, &k); err != nil {
		return err
	}
	out.set(f.index(o.Value, o.Trail, k.Value, k.Trail, n.optional))
	return nil
}

func (n *directIndex) String() string {
	if n.optional {
		return fmt.Sprintf("%s[?%s]", n.operand, n.key)
	}
	return fmt.Sprintf("%s[%s]", n.operand, n.key)
}

type directList struct {
	directKind
	elems    []DirectNode
	optional []int
	mutable  bool
}

func DirectList(elems []DirectNode, optionalIndices []int, mutable bool) DirectNode {
	return &directList{elems: elems, optional: optionalIndices, mutable: mutable}
}

// Elements are evaluated left to right and the first error ends the
// construction before later elements run.
func (n *directList) Evaluate(f *Frame, out *Result) error {
	vals := make([]values.Value, len(n.elems))
	trails := make([]attribute.Trail, len(n.elems))
	acc := f.attrs.NewAccumulator()
	for i, e := range n.elems {
		var r Result
		if err := e.Evaluate(f, &r); err != nil {
			return err
		}
		if f.attrs.CheckForMissingAttribute(r.Trail) {
			out.set(f.attrs.CreateMissingAttributeError(r.Trail.Attribute()), attribute.Trail{})
			return nil
		}
		if values.IsError(r.Value) {
			out.set(r.Value, attribute.Trail{})
			return nil
		}
		acc.MaybeAdd(r.Value, r.Trail, true)
		vals[i], trails[i] = r.Value, r.Trail
	}
	if !acc.IsEmpty() {
		out.set(acc.Build(), attribute.Trail{})
		return nil
	}
	out.set(f.buildList(vals, trails, flagged(n.optional), n.mutable), attribute.Trail{})
	return nil
}

func (n *directList) String() string {
	if n.mutable {
		return "mutable[" + joinNodes(n.elems) + "]"
	}
	return "[" + joinNodes(n.elems) + "]"
}

type directMap struct {
	directKind
	entries  []DirectNode
	optional []int
}

// DirectMap takes keys and values interleaved.
func DirectMap(entries []DirectNode, optionalIndices []int) DirectNode {
	return &directMap{entries: entries, optional: optionalIndices}
}

func (n *directMap) Evaluate(f *Frame, out *Result) error {
	vals, trails, err := evalAll(f, n.entries)
	if err != nil {
		return err
	}
	out.set(f.buildMap(vals, trails, flagged(n.optional)), attribute.Trail{})
	return nil
}

func (n *directMap) String() string {
	parts := make([]string, 0, len(n.entries)/2)
	for i := 0; i+1 < len(n.entries); i += 2 {
		parts = append(parts, n.entries[i].String()+": "+n.entries[i+1].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

type directStruct struct {
	directKind
	typ      protoreflect.MessageType
	fields   []string
	vals     []DirectNode
	optional []int
}

func DirectStruct(typ protoreflect.MessageType, fields []string, vals []DirectNode, optionalIndices []int) DirectNode {
	return &directStruct{typ: typ, fields: fields, vals: vals, optional: optionalIndices}
}

func (n *directStruct) Evaluate(f *Frame, out *Result) error {
	vals, trails, err := evalAll(f, n.vals)
	if err != nil {
		return err
	}
	out.set(f.buildStruct(n.typ, n.fields, vals, trails, flagged(n.optional)), attribute.Trail{})
	return nil
}

func (n *directStruct) String() string {
	parts := make([]string, len(n.fields))
	for i, name := range n.fields {
		parts[i] = name + ": " + n.vals[i].String()
	}
	return fmt.Sprintf("%s{%s}", n.typ.Descriptor().FullName(), strings.Join(parts, ", "))
}

type directCall struct {
	directKind
	fn            *functions.Function
	receiverStyle bool
	args          []DirectNode
}

func DirectCall(fn *functions.Function, receiverStyle bool, args []DirectNode) DirectNode {
	return &directCall{fn: fn, receiverStyle: receiverStyle, args: args}
}

func (n *directCall) Evaluate(f *Frame, out *Result) error {
	vals, trails, err := evalAll(f, n.args)
	if err != nil {
		return err
	}
	out.set(f.callFunction(n.fn, n.receiverStyle, vals, trails), attribute.Trail{})
	return nil
}

func (n *directCall) String() string {
	if n.receiverStyle && len(n.args) > 0 {
		return fmt.Sprintf("%s.%s(%s)", n.args[0], n.fn.Name(), joinNodes(n.args[1:]))
	}
	return fmt.Sprintf("%s(%s)", n.fn.Name(), joinNodes(n.args))
}

type directLogic struct {
	directKind
	and         bool
	left, right DirectNode
}

func DirectAnd(left, right DirectNode) DirectNode {
	return &directLogic{and: true, left: left, right: right}
}

func DirectOr(left, right DirectNode) DirectNode {
	return &directLogic{left: left, right: right}
}

func (n *directLogic) Evaluate(f *Frame, out *Result) error {
	var l, r Result
	if err := n.left.Evaluate(f, &l); err != nil {
		return err
	}
	if f.options.ShortCircuiting && absorbs(n.and, l.Value) {
		*out = l
		return nil
	}
	if err := n.right.Evaluate(f, &r); err != nil {
		return err
	}
	out.set(f.logic(n.and, l.Value, l.Trail, r.Value, r.Trail), attribute.Trail{})
	return nil
}

func (n *directLogic) String() string {
	if n.and {
		return fmt.Sprintf("(%s && %s)", n.left, n.right)
	}
	return fmt.Sprintf("(%s || %s)", n.left, n.right)
}

type directTernary struct {
	directKind
	cond, then, otherwise DirectNode
}

func DirectTernary(cond, then, otherwise DirectNode) DirectNode {
	return &directTernary{cond: cond, then: then, otherwise: otherwise}
}

func (n *directTernary) Evaluate(f *Frame, out *Result) error {
	var c Result
	if err := n.cond.Evaluate(f, &c); err != nil {
		return err
	}
	branch, replacement := f.condition(c.Value, c.Trail)
	switch {
	case replacement != nil:
		out.set(replacement, attribute.Trail{})
		return nil
	case branch:
		return n.then.Evaluate(f, out)
	}
	return n.otherwise.Evaluate(f, out)
}

func (n *directTernary) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", n.cond, n.then, n.otherwise)
}

type directComprehension struct {
	directKind
	loop                              *Comprehension
	rng, accuInit, cond, step, result DirectNode
}

func DirectComprehension(loop *Comprehension, rng, accuInit, cond, step, result DirectNode) DirectNode {
	return &directComprehension{loop: loop, rng: rng, accuInit: accuInit, cond: cond, step: step, result: result}
}

func (n *directComprehension) Evaluate(f *Frame, out *Result) error {
	var rng, accu Result
	if err := n.rng.Evaluate(f, &rng); err != nil {
		return err
	}
	if err := n.accuInit.Evaluate(f, &accu); err != nil {
		return err
	}
	abort, empty, err := f.enterComprehension(n.loop, rng.Value, rng.Trail, accu.Value)
	if err != nil {
		return err
	}
	if abort != nil {
		out.set(abort, attribute.Trail{})
		return nil
	}
	for more := !empty; more; {
		if err := f.tick(); err != nil {
			return err
		}
		var c, s Result
		if err := n.cond.Evaluate(f, &c); err != nil {
			return err
		}
		abort, done := f.loopCondition(c.Value)
		if abort != nil {
			return f.abortDirect(n.loop, abort, out)
		}
		if done {
			break
		}
		if err := n.step.Evaluate(f, &s); err != nil {
			return err
		}
		more, abort, err = f.advance(n.loop, s.Value)
		if err != nil {
			return err
		}
		if abort != nil {
			return f.abortDirect(n.loop, abort, out)
		}
	}
	var r Result
	if err := n.result.Evaluate(f, &r); err != nil {
		return err
	}
	v, err := f.finishComprehension(n.loop, r.Value)
	if err != nil {
		return err
	}
	out.set(v, attribute.Trail{})
	return nil
}

func (f *Frame) abortDirect(c *Comprehension, v values.Value, out *Result) error {
	if err := f.exitComprehension(c); err != nil {
		return err
	}
	out.set(v, attribute.Trail{})
	return nil
}

func (n *directComprehension) String() string {
	return fmt.Sprintf("__comprehension__(%s, %s, %s, %s, %s, %s, %s)",
		n.loop.IterVar, n.rng, n.loop.AccuVar, n.accuInit, n.cond, n.step, n.result)
}

type directLazyInit struct {
	directKind
	slot int
	init DirectNode
}

// DirectLazyInit reads a memoized binding, computing it on first use.
func DirectLazyInit(slot int, init DirectNode) DirectNode {
	return &directLazyInit{slot: slot, init: init}
}

func (n *directLazyInit) Evaluate(f *Frame, out *Result) error {
	v, trail, ok, err := f.slots.Get(n.slot)
	if err != nil {
		return err
	}
	if ok {
		out.set(v, trail)
		return nil
	}
	if err := f.enter(); err != nil {
		return err
	}
	var r Result
	err = n.init.Evaluate(f, &r)
	f.depth--
	if err != nil {
		return err
	}
	if err := f.slots.Set(n.slot, r.Value, r.Trail); err != nil {
		return err
	}
	*out = r
	return nil
}

func (n *directLazyInit) String() string { return fmt.Sprintf("lazy(%d)", n.slot) }

type directBind struct {
	directKind
	slot int
	body DirectNode
}

// DirectBind evaluates body and then clears the binding's slot.
func DirectBind(slot int, body DirectNode) DirectNode {
	return &directBind{slot: slot, body: body}
}

func (n *directBind) Evaluate(f *Frame, out *Result) error {
	if err := n.body.Evaluate(f, out); err != nil {
		return err
	}
	return f.slots.Clear(n.slot)
}

func (n *directBind) String() string { return fmt.Sprintf("bind(%d, %s)", n.slot, n.body) }

// DirectStep evaluates a direct subtree and pushes its result.
type DirectStep struct {
	stepKind
	Node DirectNode
}

func (s *DirectStep) Evaluate(f *Frame) error {
	var r Result
	if err := s.Node.Evaluate(f, &r); err != nil {
		return err
	}
	f.stack.Push(r.Value, r.Trail)
	return nil
}

func (s *DirectStep) String() string { return "DIRECT " + s.Node.String() }
