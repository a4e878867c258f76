package activation

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/funvibe/expreval/internal/values"
)

func TestMap(t *testing.T) {
	a := NewMap(map[string]interface{}{"x": 1, "s": "hi", "l": []interface{}{1, "a"}})
	v, ok := a.FindVariable("x")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals[values.Value](v, values.Int(1)))

	v, ok = a.FindVariable("l")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(v.Inspect(), `[1, "a"]`))

	_, ok = a.FindVariable("missing")
	qt.Check(t, qt.IsFalse(ok))

	_, ok = Empty().FindVariable("x")
	qt.Check(t, qt.IsFalse(ok))
}

func TestHierarchical(t *testing.T) {
	parent := Map{"x": values.Int(1), "y": values.Int(2)}
	child := Map{"x": values.Int(10)}
	h := Hierarchical(parent, child)

	v, _ := h.FindVariable("x")
	qt.Check(t, qt.Equals[values.Value](v, values.Int(10)))
	v, _ = h.FindVariable("y")
	qt.Check(t, qt.Equals[values.Value](v, values.Int(2)))
	_, ok := h.FindVariable("z")
	qt.Check(t, qt.IsFalse(ok))
}

func TestFunc(t *testing.T) {
	calls := 0
	f := Func(func(name string) (values.Value, bool) {
		calls++
		return values.String(name), name != ""
	})
	v, ok := f.FindVariable("a")
	qt.Check(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals[values.Value](v, values.String("a")))
	qt.Check(t, qt.Equals(calls, 1))
}

func TestFromYAML(t *testing.T) {
	a, err := FromYAML([]byte(`
request:
  path: /admin
  size: 12
  tags: [a, b]
ratio: 0.5
enabled: true
`))
	qt.Assert(t, qt.IsNil(err))
	req, ok := a.FindVariable("request")
	qt.Assert(t, qt.IsTrue(ok))
	m, isMap := req.(values.Mapper)
	qt.Assert(t, qt.IsTrue(isMap))
	path, _ := m.Get(values.String("path"))
	qt.Check(t, qt.Equals[values.Value](path, values.String("/admin")))
	size, _ := m.Get(values.String("size"))
	qt.Check(t, qt.Equals[values.Value](size, values.Int(12)))

	ratio, _ := a.FindVariable("ratio")
	qt.Check(t, qt.Equals[values.Value](ratio, values.Double(0.5)))

	_, err = FromYAML([]byte("- not\n- a mapping\n"))
	qt.Check(t, qt.ErrorMatches(err, `(?s)decode variables: .*`))
}
