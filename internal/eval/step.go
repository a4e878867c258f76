package eval

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/functions"
	"github.com/funvibe/expreval/internal/values"
)

// Step is one instruction of a program. The set of steps is closed: only
// this package implements it. Evaluate pushes exactly the results the step
// promises, or fails with a fatal error.
type Step interface {
	Evaluate(f *Frame) error
	String() string
	isStep()
}

type stepKind struct{}

func (stepKind) isStep() {}

// ConstStep pushes a literal.
type ConstStep struct {
	stepKind
	Value values.Value
}

func (s *ConstStep) Evaluate(f *Frame) error {
	f.stack.Push(s.Value, attribute.Trail{})
	return nil
}

func (s *ConstStep) String() string { return "CONST " + s.Value.Inspect() }

// IdentStep resolves a variable.
type IdentStep struct {
	stepKind
	Name string
	Root bool
}

func (s *IdentStep) Evaluate(f *Frame) error {
	v, trail, err := f.resolveIdent(s.Name, s.Root)
	if err != nil {
		return err
	}
	f.stack.Push(v, trail)
	return nil
}

func (s *IdentStep) String() string {
	if s.Root {
		return "IDENT ." + s.Name
	}
	return "IDENT " + s.Name
}

// SelectStep replaces the operand by one of its fields, by an optional
// (x.?f), or by a presence test (has(x.f)).
type SelectStep struct {
	stepKind
	Field    string
	TestOnly bool
	Optional bool
}

func (s *SelectStep) Evaluate(f *Frame) error {
	if err := f.need(1); err != nil {
		return err
	}
	v, trail := f.selectField(f.stack.Peek(), f.stack.PeekAttribute(), s.Field, s.TestOnly, s.Optional)
	f.stack.PopAndPush(1, v, trail)
	return nil
}

func (s *SelectStep) String() string {
	switch {
	case s.TestOnly:
		return "HAS ." + s.Field
	case s.Optional:
		return "SELECT .?" + s.Field
	}
	return "SELECT ." + s.Field
}

// IndexStep pops operand and key.
type IndexStep struct {
	stepKind
	Optional bool
}

func (s *IndexStep) Evaluate(f *Frame) error {
	if err := f.need(2); err != nil {
		return err
	}
	vals, trails := f.stack.GetSpan(2), f.stack.GetAttributeSpan(2)
	v, trail := f.index(vals[0], trails[0], vals[1], trails[1], s.Optional)
	f.stack.PopAndPush(2, v, trail)
	return nil
}

func (s *IndexStep) String() string {
	if s.Optional {
		return "INDEX ?"
	}
	return "INDEX"
}

func flagged(indices []int) func(int) bool {
	return func(i int) bool {
		for _, x := range indices {
			if x == i {
				return true
			}
		}
		return false
	}
}

func optionalSuffix(indices []int) string {
	if len(indices) == 0 {
		return ""
	}
	return fmt.Sprintf(" optional=%v", indices)
}

// CreateListStep pops Size elements.
type CreateListStep struct {
	stepKind
	Size            int
	OptionalIndices []int
	Mutable         bool
}

func (s *CreateListStep) Evaluate(f *Frame) error {
	if err := f.need(s.Size); err != nil {
		return err
	}
	v := f.buildList(f.stack.GetSpan(s.Size), f.stack.GetAttributeSpan(s.Size), flagged(s.OptionalIndices), s.Mutable)
	f.stack.PopAndPush(s.Size, v, attribute.Trail{})
	return nil
}

func (s *CreateListStep) String() string {
	name := "LIST"
	if s.Mutable {
		name = "MUTABLE_LIST"
	}
	return fmt.Sprintf("%s %d%s", name, s.Size, optionalSuffix(s.OptionalIndices))
}

// CreateMapStep pops Size key/value pairs.
type CreateMapStep struct {
	stepKind
	Size            int
	OptionalIndices []int
}

func (s *CreateMapStep) Evaluate(f *Frame) error {
	n := 2 * s.Size
	if err := f.need(n); err != nil {
		return err
	}
	v := f.buildMap(f.stack.GetSpan(n), f.stack.GetAttributeSpan(n), flagged(s.OptionalIndices))
	f.stack.PopAndPush(n, v, attribute.Trail{})
	return nil
}

func (s *CreateMapStep) String() string {
	return fmt.Sprintf("MAP %d%s", s.Size, optionalSuffix(s.OptionalIndices))
}

// CreateStructStep pops one value per field.
type CreateStructStep struct {
	stepKind
	Type            protoreflect.MessageType
	Fields          []string
	OptionalIndices []int
}

func (s *CreateStructStep) Evaluate(f *Frame) error {
	n := len(s.Fields)
	if err := f.need(n); err != nil {
		return err
	}
	v := f.buildStruct(s.Type, s.Fields, f.stack.GetSpan(n), f.stack.GetAttributeSpan(n), flagged(s.OptionalIndices))
	f.stack.PopAndPush(n, v, attribute.Trail{})
	return nil
}

func (s *CreateStructStep) String() string {
	return fmt.Sprintf("STRUCT %s{%s}%s", s.Type.Descriptor().FullName(), strings.Join(s.Fields, ", "), optionalSuffix(s.OptionalIndices))
}

// FunctionStep pops Argc arguments, receiver first for receiver-style
// calls.
type FunctionStep struct {
	stepKind
	Function      *functions.Function
	ReceiverStyle bool
	Argc          int
}

func (s *FunctionStep) Evaluate(f *Frame) error {
	if err := f.need(s.Argc); err != nil {
		return err
	}
	v := f.callFunction(s.Function, s.ReceiverStyle, f.stack.GetSpan(s.Argc), f.stack.GetAttributeSpan(s.Argc))
	f.stack.PopAndPush(s.Argc, v, attribute.Trail{})
	return nil
}

func (s *FunctionStep) String() string {
	if s.ReceiverStyle {
		return fmt.Sprintf("CALL %s/%d receiver", s.Function.Name(), s.Argc)
	}
	return fmt.Sprintf("CALL %s/%d", s.Function.Name(), s.Argc)
}
