package eval

import (
	"errors"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/values"
)

func TestValueStack(t *testing.T) {
	s := NewValueStack(2)
	x := attribute.NewTrail("x")
	s.Push(values.Int(1), attribute.Trail{})
	s.Push(values.Int(2), x)
	s.Push(values.Int(3), x.Step(attribute.Field("y")))

	qt.Assert(t, qt.Equals(s.Size(), 3))
	qt.Check(t, qt.IsTrue(s.HasEnough(3)))
	qt.Check(t, qt.IsFalse(s.HasEnough(4)))
	qt.Check(t, qt.Equals[values.Value](s.Peek(), values.Int(3)))
	qt.Check(t, qt.Equals(s.PeekAttribute().String(), "x.y"))

	span := s.GetSpan(2)
	qt.Check(t, qt.DeepEquals(span, []values.Value{values.Int(2), values.Int(3)}))
	trails := s.GetAttributeSpan(2)
	qt.Check(t, qt.IsTrue(trails[0].Equal(x)))

	s.PopAndPush(2, values.Int(5), attribute.Trail{})
	qt.Check(t, qt.Equals(s.Size(), 2))
	qt.Check(t, qt.Equals[values.Value](s.Peek(), values.Int(5)))
	qt.Check(t, qt.IsTrue(s.PeekAttribute().Empty()))

	// Spans are copies.
	span[0] = values.Int(99)
	s.Pop(1)
	qt.Check(t, qt.Equals[values.Value](s.Peek(), values.Int(1)))
}

func TestSlotTable(t *testing.T) {
	st := NewSlotTable(2)
	_, _, ok, err := st.Get(0)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.IsFalse(ok))

	qt.Assert(t, qt.IsNil(st.Set(1, values.String("v"), attribute.NewTrail("b"))))
	v, trail, ok, err := st.Get(1)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals[values.Value](v, values.String("v")))
	qt.Check(t, qt.Equals(trail.String(), "b"))

	qt.Assert(t, qt.IsNil(st.Clear(1)))
	_, _, ok, _ = st.Get(1)
	qt.Check(t, qt.IsFalse(ok))

	_, _, _, err = st.Get(2)
	qt.Check(t, qt.IsTrue(errors.Is(err, ErrInvalidSlot)))
	qt.Check(t, qt.IsTrue(errors.Is(st.Set(-1, values.NullValue, attribute.Trail{}), ErrInvalidSlot)))
}

func TestAttributeUtility(t *testing.T) {
	u := NewAttributeUtility(
		[]attribute.Pattern{attribute.MustParsePattern("x.y"), attribute.MustParsePattern("m[*].k")},
		[]attribute.Pattern{attribute.MustParsePattern("req.id")},
	)
	x := attribute.NewTrail("x")
	xy := x.Step(attribute.Field("y"))

	qt.Check(t, qt.IsFalse(u.CheckForUnknown(x, false)))
	qt.Check(t, qt.IsTrue(u.CheckForUnknown(x, true)))
	qt.Check(t, qt.IsTrue(u.CheckForUnknown(xy, false)))
	qt.Check(t, qt.IsTrue(u.CheckForUnknown(xy.Step(attribute.Field("z")), false)))
	qt.Check(t, qt.IsTrue(u.CheckForUnknown(attribute.NewTrail("m").Step(attribute.IntKey(3)).Step(attribute.Field("k")), false)))
	qt.Check(t, qt.IsFalse(u.CheckForUnknown(attribute.Trail{}, true)))

	req := attribute.NewTrail("req")
	qt.Check(t, qt.IsFalse(u.CheckForMissingAttribute(req)))
	qt.Check(t, qt.IsTrue(u.CheckForMissingAttribute(req.Step(attribute.Field("id")))))

	err := u.CreateMissingAttributeError(req.Step(attribute.Field("id")).Attribute())
	qt.Check(t, qt.Equals(err.Code, values.ErrMissingAttribute))
	qt.Check(t, qt.Equals(err.Message, "MissingAttributeError: req.id"))
}

func TestIdentifyAndMergeUnknowns(t *testing.T) {
	u := NewAttributeUtility([]attribute.Pattern{attribute.MustParsePattern("x.y")}, nil)
	a := values.NewUnknown(attribute.New("a"))
	xy := attribute.NewTrail("x").Step(attribute.Field("y"))

	got := u.IdentifyAndMergeUnknowns(
		[]values.Value{values.Int(1), a, values.Int(2), a},
		[]attribute.Trail{{}, {}, xy, {}},
		false,
	)
	qt.Assert(t, qt.IsNotNil(got))
	qt.Check(t, qt.Equals(got.Inspect(), "unknown{a, x.y}"))

	qt.Check(t, qt.IsNil(u.IdentifyAndMergeUnknowns([]values.Value{values.Int(1)}, nil, true)))

	// A prefix of a pattern only counts with usePartial.
	x := attribute.NewTrail("x")
	qt.Check(t, qt.IsNil(u.IdentifyAndMergeUnknowns([]values.Value{values.Int(1)}, []attribute.Trail{x}, false)))
	qt.Check(t, qt.IsNotNil(u.IdentifyAndMergeUnknowns([]values.Value{values.Int(1)}, []attribute.Trail{x}, true)))

	qt.Check(t, qt.Equals(u.MergeUnknowns([]values.Value{a, values.True}).Len(), 1))
	qt.Check(t, qt.IsNil(u.MergeUnknowns([]values.Value{values.True})))
}
