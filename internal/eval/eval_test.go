package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/functions"
	"github.com/funvibe/expreval/internal/values"
)

// counter is a strict function returning its argument and counting calls.
type counter struct {
	calls int
	fn    *functions.Function
}

func newCounter(t *testing.T) *counter {
	t.Helper()
	c := &counter{}
	r := functions.NewRegistry()
	r.MustRegister(&functions.Overload{
		ID: "count", Name: "count", Args: []values.Kind{values.AnyKind}, Strict: true,
		Impl: func(args ...values.Value) values.Value {
			c.calls++
			return args[0]
		},
	})
	c.fn, _ = r.Lookup("count")
	return c
}

func mustFunction(t *testing.T, name string) *functions.Function {
	t.Helper()
	fn, ok := functions.Standard().Lookup(name)
	qt.Assert(t, qt.IsTrue(ok))
	return fn
}

func run(t *testing.T, p *Program, act activation.Activation, opts Options) values.Value {
	t.Helper()
	v, err := p.Eval(context.Background(), act, opts)
	qt.Assert(t, qt.IsNil(err))
	return v
}

func TestListFirstErrorWins(t *testing.T) {
	first := values.NewError(values.ErrDivisionByZero, "first")
	second := values.NewError(values.ErrNotFound, "second")
	p := &Program{Main: []Step{
		&ConstStep{Value: values.Int(1)},
		&ConstStep{Value: values.NewUnknown(attribute.New("u"))},
		&ConstStep{Value: first},
		&ConstStep{Value: second},
		&CreateListStep{Size: 4},
	}}
	v := run(t, p, nil, Options{EnableUnknowns: true})
	qt.Check(t, qt.Equals[values.Value](v, first))
}

func TestListMergesUnknowns(t *testing.T) {
	act := activation.NewMap(map[string]interface{}{
		"x": map[string]interface{}{"y": 1, "z": 2},
	})
	p := &Program{Main: []Step{
		&IdentStep{Name: "x"},
		&SelectStep{Field: "y"},
		&ConstStep{Value: values.Int(3)},
		&IdentStep{Name: "x"},
		&SelectStep{Field: "z"},
		&CreateListStep{Size: 3},
	}}
	opts := Options{
		EnableUnknowns:  true,
		UnknownPatterns: []attribute.Pattern{attribute.MustParsePattern("x.y"), attribute.MustParsePattern("x.z")},
	}
	v := run(t, p, act, opts)
	qt.Check(t, qt.Equals(v.Inspect(), "unknown{x.y, x.z}"))

	// Without unknown tracking the same program builds the list.
	v = run(t, p, act, Options{})
	qt.Check(t, qt.Equals(v.Inspect(), "[1, 3, 2]"))
}

func TestOptionalListElements(t *testing.T) {
	p := &Program{Main: []Step{
		&ConstStep{Value: values.Int(1)},
		&ConstStep{Value: values.OptionalNone()},
		&ConstStep{Value: values.OptionalOf(values.Int(3))},
		&CreateListStep{Size: 3, OptionalIndices: []int{1, 2}},
	}}
	qt.Check(t, qt.Equals(run(t, p, nil, Options{}).Inspect(), "[1, 3]"))

	p = &Program{Main: []Step{
		&ConstStep{Value: values.Int(1)},
		&CreateListStep{Size: 1, OptionalIndices: []int{0}},
	}}
	v := run(t, p, nil, Options{})
	qt.Check(t, qt.Equals(v.(*values.Error).Code, values.ErrTypeConversion))
}

func TestMissingAttributePolicy(t *testing.T) {
	act := activation.NewMap(map[string]interface{}{"x": map[string]interface{}{"other": 1}})
	p := &Program{Main: []Step{&IdentStep{Name: "x"}, &SelectStep{Field: "y"}}}

	v := run(t, p, act, Options{
		EnableMissingAttributeErrors: true,
		MissingAttributePatterns:     []attribute.Pattern{attribute.MustParsePattern("x.y")},
	})
	qt.Check(t, qt.Equals(v.(*values.Error).Code, values.ErrMissingAttribute))

	v = run(t, p, act, Options{
		EnableUnknowns:  true,
		UnknownPatterns: []attribute.Pattern{attribute.MustParsePattern("x.y")},
	})
	unk, ok := v.(*values.Unknown)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.IsTrue(unk.Contains(attribute.New("x", attribute.Field("y")))))

	v = run(t, p, act, Options{})
	qt.Check(t, qt.Equals(v.(*values.Error).Code, values.ErrNoSuchKey))
}

func TestIdentNotFound(t *testing.T) {
	p := &Program{Main: []Step{&IdentStep{Name: "nope"}}}
	v := run(t, p, nil, Options{})
	qt.Check(t, qt.Equals(v.(*values.Error).Code, values.ErrNotFound))
}

func lazyProgram(c *counter, add *functions.Function) *Program {
	return &Program{
		Main: []Step{
			&CheckLazyInitStep{Slot: 0, Subexpression: 0},
			&AssignSlotStep{Slot: 0},
			&CheckLazyInitStep{Slot: 0, Subexpression: 0},
			&AssignSlotStep{Slot: 0},
			&FunctionStep{Function: add, Argc: 2},
			&ClearSlotStep{Slot: 0},
		},
		Subexpressions: [][]Step{{
			&ConstStep{Value: values.Int(21)},
			&FunctionStep{Function: c.fn, Argc: 1},
		}},
		SlotCount: 1,
	}
}

func TestLazyInitMemoizes(t *testing.T) {
	c := newCounter(t)
	p := lazyProgram(c, mustFunction(t, "_+_"))

	qt.Check(t, qt.Equals[values.Value](run(t, p, nil, DefaultOptions()), values.Int(42)))
	qt.Check(t, qt.Equals(c.calls, 1))

	// A second evaluation starts with every slot unset.
	qt.Check(t, qt.Equals[values.Value](run(t, p, nil, DefaultOptions()), values.Int(42)))
	qt.Check(t, qt.Equals(c.calls, 2))
}

func TestDirectLazyInitMemoizes(t *testing.T) {
	c := newCounter(t)
	init := DirectCall(c.fn, false, []DirectNode{DirectConst(values.Int(21))})
	lazy := DirectLazyInit(0, init)
	p := &Program{
		Main:      []Step{&DirectStep{Node: DirectBind(0, DirectCall(mustFunction(t, "_+_"), false, []DirectNode{lazy, lazy}))}},
		SlotCount: 1,
	}
	qt.Check(t, qt.Equals[values.Value](run(t, p, nil, DefaultOptions()), values.Int(42)))
	qt.Check(t, qt.Equals(c.calls, 1))
}

func TestDirectListStopsAtFirstError(t *testing.T) {
	c := newCounter(t)
	boom := values.NewError(values.ErrDivisionByZero, "boom")
	p := &Program{Main: []Step{&DirectStep{Node: DirectList([]DirectNode{
		DirectConst(values.Int(1)),
		DirectConst(boom),
		DirectCall(c.fn, false, []DirectNode{DirectConst(values.Int(2))}),
	}, nil, false)}}}
	qt.Check(t, qt.Equals[values.Value](run(t, p, nil, DefaultOptions()), values.Value(boom)))
	qt.Check(t, qt.Equals(c.calls, 0))
}

func TestShortCircuitLogic(t *testing.T) {
	c := newCounter(t)
	// false && count(true)
	p := &Program{Main: []Step{
		&ConstStep{Value: values.False},
		&BoolCheckJumpStep{And: true, Offset: 3},
		&ConstStep{Value: values.True},
		&FunctionStep{Function: c.fn, Argc: 1},
		&LogicStep{And: true},
	}}
	qt.Check(t, qt.Equals[values.Value](run(t, p, nil, DefaultOptions()), values.False))
	qt.Check(t, qt.Equals(c.calls, 0))

	qt.Check(t, qt.Equals[values.Value](run(t, p, nil, Options{}), values.False))
	qt.Check(t, qt.Equals(c.calls, 1))
}

func TestLogicPrecedence(t *testing.T) {
	f := newFrame(context.Background(), &Program{}, nil, Options{})
	err := values.NewError(values.ErrNotFound, "e")
	unk := values.NewUnknown(attribute.New("u"))
	tests := []struct {
		and      bool
		a, b     values.Value
		expected values.Value
	}{
		{true, err, values.False, values.False},
		{true, unk, values.False, values.False},
		{true, unk, err, unk},
		{true, err, unk, unk},
		{true, err, values.True, err},
		{true, values.True, values.True, values.True},
		{false, err, values.True, values.True},
		{false, values.False, unk, unk},
		{false, values.False, values.False, values.False},
	}
	for _, tt := range tests {
		got := f.logic(tt.and, tt.a, attribute.Trail{}, tt.b, attribute.Trail{})
		qt.Check(t, qt.IsTrue(values.Equal(got, tt.expected)), qt.Commentf("and=%v %s, %s = %s", tt.and, tt.a.Inspect(), tt.b.Inspect(), got.Inspect()))
	}
	got := f.logic(true, values.Int(1), attribute.Trail{}, values.True, attribute.Trail{})
	qt.Check(t, qt.Equals(got.(*values.Error).Code, values.ErrNoMatchingOverload))
}

func TestTernary(t *testing.T) {
	// cond ? "a" : "b"
	program := func(cond values.Value) *Program {
		return &Program{Main: []Step{
			&ConstStep{Value: cond},
			&TernaryJumpStep{ElseOffset: 2, EndOffset: 3},
			&ConstStep{Value: values.String("a")},
			&JumpStep{Offset: 1},
			&ConstStep{Value: values.String("b")},
		}}
	}
	qt.Check(t, qt.Equals[values.Value](run(t, program(values.True), nil, Options{}), values.String("a")))
	qt.Check(t, qt.Equals[values.Value](run(t, program(values.False), nil, Options{}), values.String("b")))
	v := run(t, program(values.Int(1)), nil, Options{})
	qt.Check(t, qt.Equals(v.(*values.Error).Code, values.ErrNoMatchingOverload))
}

func TestFatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		program  *Program
		expected error
	}{
		{"underflow", &Program{Main: []Step{&CreateListStep{Size: 2}}}, ErrStackUnderflow},
		{"empty", &Program{}, ErrStackUnderflow},
		{"unbalanced", &Program{Main: []Step{&ConstStep{Value: values.True}, &ConstStep{Value: values.True}}}, ErrUnbalancedStack},
		{"jump", &Program{Main: []Step{&JumpStep{Offset: 5}}}, ErrInvalidJump},
		{"slot", &Program{Main: []Step{&ClearSlotStep{Slot: 3}}}, ErrInvalidSlot},
		{"subexpression", &Program{Main: []Step{&CheckLazyInitStep{Slot: 0, Subexpression: 4}}, SlotCount: 1}, ErrInvalidSubexpression},
		{"recursion", &Program{
			Main:           []Step{&CheckLazyInitStep{Slot: 0, Subexpression: 0}, &AssignSlotStep{Slot: 0}},
			Subexpressions: [][]Step{{&CheckLazyInitStep{Slot: 0, Subexpression: 0}, &AssignSlotStep{Slot: 0}}},
			SlotCount:      1,
		}, ErrCallDepth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.program.Eval(context.Background(), nil, Options{MaxCallDepth: 8})
			qt.Assert(t, qt.IsTrue(errors.Is(err, tt.expected)), qt.Commentf("got %v", err))
		})
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Program{Main: []Step{&ConstStep{Value: values.True}}}
	_, err := p.Eval(ctx, nil, DefaultOptions())
	qt.Check(t, qt.IsTrue(errors.Is(err, context.Canceled)))
}

func TestDisassemble(t *testing.T) {
	c := newCounter(t)
	out := Disassemble(lazyProgram(c, mustFunction(t, "_+_")), "main")
	qt.Check(t, qt.Equals(out, `== main ==
0000 CHECK_LAZY slot=0 sub=0 -> 0002
0001 ASSIGN slot=0
0002 CHECK_LAZY slot=0 sub=0 -> 0004
0003 ASSIGN slot=0
0004 CALL _+_/2
0005 CLEAR slot=0
== main/sub0 ==
0000 CONST 21
0001 CALL count/1
slots: 1
`))
}
