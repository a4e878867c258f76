package attribute

import (
	"testing"

	"github.com/go-quicktest/qt"
)

func TestTrailSharesParent(t *testing.T) {
	root := NewTrail("x")
	y := root.Step(Field("y"))
	y0 := y.Step(IntKey(0))
	yk := y.Step(StringKey("k"))

	qt.Assert(t, qt.Equals(root.String(), "x"))
	qt.Assert(t, qt.Equals(y.String(), "x.y"))
	qt.Assert(t, qt.Equals(y0.String(), "x.y[0]"))
	qt.Assert(t, qt.Equals(yk.String(), "x.y.k"))
	// extending a trail never changes it
	qt.Assert(t, qt.Equals(y.Attribute().Len(), 1))
}

func TestEmptyTrailStaysEmpty(t *testing.T) {
	var tr Trail
	qt.Assert(t, qt.IsTrue(tr.Empty()))
	qt.Assert(t, qt.IsTrue(tr.Step(Field("a")).Empty()))
	qt.Assert(t, qt.Equals(tr.String(), "<none>"))
	qt.Assert(t, qt.IsTrue(tr.Attribute().IsEmpty()))
}

func TestTrailEqual(t *testing.T) {
	a := NewTrail("x").Step(Field("y")).Step(UintKey(2))
	b := FromAttribute(New("x", Field("y"), UintKey(2)))
	c := NewTrail("x").Step(Field("y")).Step(IntKey(2))

	qt.Assert(t, qt.IsTrue(a.Equal(b)))
	qt.Assert(t, qt.IsFalse(a.Equal(c)))
	qt.Assert(t, qt.IsFalse(a.Equal(Trail{})))
	qt.Assert(t, qt.IsTrue(Trail{}.Equal(Trail{})))
	qt.Assert(t, qt.IsFalse(NewTrail("x").Equal(NewTrail("z"))))
}

func TestAttributeString(t *testing.T) {
	tests := []struct {
		attr     Attribute
		expected string
	}{
		{New("x"), "x"},
		{New("x", Field("y"), IntKey(-1)), "x.y[-1]"},
		{New("m", StringKey("a b"), BoolKey(true)), `m["a b"][true]`},
		{New("m", UintKey(7)), "m[7u]"},
	}
	for _, tt := range tests {
		if got := tt.attr.String(); got != tt.expected {
			t.Errorf("String() wrong. expected=%q, got=%q", tt.expected, got)
		}
	}
}

func TestAttributeEqual(t *testing.T) {
	a := New("x", Field("y"))
	qt.Assert(t, qt.IsTrue(a.Equal(New("x", StringKey("y")))))
	qt.Assert(t, qt.IsFalse(a.Equal(New("x", Field("y"), Field("z")))))
	qt.Assert(t, qt.IsFalse(a.Equal(New("x"))))
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x", "x"},
		{"x.y", "x.y"},
		{"x.*", "x.*"},
		{"x[*].z", "x.*.z"},
		{`x["a b"][0][1u][true]`, `x["a b"][0][1u][true]`},
		{"x['k']", "x.k"},
	}
	for _, tt := range tests {
		p, err := ParsePattern(tt.input)
		qt.Assert(t, qt.IsNil(err), qt.Commentf("input %q", tt.input))
		qt.Check(t, qt.Equals(p.String(), tt.expected))
	}
}

func TestParsePatternErrors(t *testing.T) {
	for _, input := range []string{"", ".x", "x.", "x[", "x[1", `x["a]`, "x[abc]", "x y"} {
		_, err := ParsePattern(input)
		qt.Check(t, qt.IsNotNil(err), qt.Commentf("input %q", input))
	}
}

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		pattern  string
		attr     Attribute
		expected MatchType
	}{
		{"x.y", New("x", Field("y")), MatchFull},
		{"x.y", New("x", Field("y"), Field("z")), MatchFull},
		{"x.y", New("x"), MatchPartial},
		{"x.y", New("x", Field("z")), MatchNone},
		{"x.y", New("w", Field("y")), MatchNone},
		{"x.*", New("x", IntKey(3)), MatchFull},
		{"x.*.z", New("x", StringKey("k")), MatchPartial},
		{"x.*.z", New("x", StringKey("k"), Field("z")), MatchFull},
		{"x[0]", New("x", UintKey(0)), MatchNone},
		{"x", New("x"), MatchFull},
	}
	for _, tt := range tests {
		got := MustParsePattern(tt.pattern).Match(tt.attr)
		if got != tt.expected {
			t.Errorf("%s.Match(%s) wrong. expected=%v, got=%v", tt.pattern, tt.attr, tt.expected, got)
		}
	}
}
