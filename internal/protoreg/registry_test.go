package protoreg_test

import (
	"context"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/functions"
	"github.com/funvibe/expreval/internal/parser"
	"github.com/funvibe/expreval/internal/planner"
	"github.com/funvibe/expreval/internal/protoreg"
	"github.com/funvibe/expreval/internal/values"
)

const personProto = `
syntax = "proto3";
package test;

import "google/protobuf/timestamp.proto";

enum Color {
  RED = 0;
  GREEN = 1;
}

message Person {
  message Address {
    string city = 1;
  }
  string name = 1;
  int64 age = 2;
  Color color = 3;
  repeated string tags = 4;
  Address address = 5;
  google.protobuf.Timestamp born = 6;
  map<string, int64> scores = 7;
}
`

func load(t *testing.T) *protoreg.Registry {
	t.Helper()
	r := protoreg.New()
	qt.Assert(t, qt.IsNil(r.LoadSource("person.proto", personProto)))
	return r
}

func TestLookups(t *testing.T) {
	r := load(t)
	for _, name := range []string{"test.Person", "test.Person.Address", "google.protobuf.Timestamp"} {
		_, ok := r.FindMessageType(name)
		qt.Check(t, qt.IsTrue(ok), qt.Commentf("%s", name))
	}
	_, ok := r.FindMessageType("test.Person.ScoresEntry")
	qt.Check(t, qt.IsFalse(ok))

	e, ok := r.FindEnumValue("test.Color.GREEN")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(e, values.Enum{TypeName: "test.Color", Number: 1}))

	qt.Check(t, qt.SliceContains(r.MessageTypes(), "test.Person"))
}

func TestNewMessage(t *testing.T) {
	r := load(t)
	v, err := r.NewMessage("test.Person", map[string]values.Value{
		"name": values.String("ada"),
		"age":  values.Int(36),
	})
	qt.Assert(t, qt.IsNil(err))
	msg, ok := v.(*values.Message)
	qt.Assert(t, qt.IsTrue(ok))
	name, _ := msg.Field("name")
	qt.Check(t, qt.Equals[values.Value](name, values.String("ada")))

	_, err = r.NewMessage("test.Nobody", nil)
	qt.Check(t, qt.ErrorIs(err, protoreg.ErrUnknownMessage))

	_, err = r.NewMessage("test.Person", map[string]values.Value{"height": values.Int(1)})
	qt.Check(t, qt.ErrorMatches(err, `message test.Person has no field "height"`))
}

func TestFindService(t *testing.T) {
	r := load(t)
	_, err := r.FindService("test.Missing")
	qt.Check(t, qt.ErrorIs(err, protoreg.ErrUnknownService))
}

func TestExpressionsOverLoadedTypes(t *testing.T) {
	r := load(t)
	tests := []struct {
		expr     string
		expected values.Value
	}{
		{"test.Person{name: 'ada', age: 36}.age", values.Int(36)},
		{"test.Color.GREEN == 1", values.True},
		{"test.Person{color: test.Color.GREEN}.color == test.Color.GREEN", values.True},
		{"type(test.Person{}) == test.Person", values.True},
		{"has(test.Person{}.address)", values.False},
		{"test.Person{address: test.Person.Address{city: 'x'}}.address.city", values.String("x")},
		{"test.Person{tags: ['a', 'b']}.tags.size()", values.Int(2)},
		{"test.Person{?name: optional.none()}.name", values.String("")},
	}
	for _, tt := range tests {
		root, err := parser.Parse(tt.expr)
		qt.Assert(t, qt.IsNil(err), qt.Commentf("%s", tt.expr))
		prog, err := planner.New(functions.Standard(), r, planner.StepMode).Plan(root)
		qt.Assert(t, qt.IsNil(err), qt.Commentf("%s", tt.expr))
		got, err := prog.Eval(context.Background(), activation.Empty(), eval.DefaultOptions())
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.IsTrue(values.Equal(got, tt.expected)), qt.Commentf("%s = %s", tt.expr, got.Inspect()))
	}
}

func TestUnknownFieldIsPlanError(t *testing.T) {
	r := load(t)
	root, err := parser.Parse("test.Person{height: 1}")
	qt.Assert(t, qt.IsNil(err))
	_, err = planner.New(functions.Standard(), r, planner.StepMode).Plan(root)
	qt.Check(t, qt.ErrorMatches(err, `.*C002: message test.Person has no field "height"`))
}
