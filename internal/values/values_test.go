package values

import (
	"math"
	"testing"
	"time"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/funvibe/expreval/internal/attribute"
)

var valueCmp = cmp.Comparer(func(a, b Value) bool {
	return a.Kind() == b.Kind() && Equal(a, b)
})

func TestInspect(t *testing.T) {
	tests := []struct {
		v        Value
		expected string
	}{
		{NullValue, "null"},
		{True, "true"},
		{Int(-3), "-3"},
		{Uint(3), "3u"},
		{Double(2), "2.0"},
		{Double(0.25), "0.25"},
		{Double(math.Inf(1)), "+Inf"},
		{String("a\"b"), `"a\"b"`},
		{Bytes("hi"), `b"hi"`},
		{Duration(1500 * time.Millisecond), `duration("1.5s")`},
		{NewList(Int(1), String("x")), `[1, "x"]`},
		{OptionalOf(Int(1)), "optional.of(1)"},
		{OptionalNone(), "optional.none()"},
		{NewError(ErrDivisionByZero, "division by zero"), "error(division_by_zero): division by zero"},
		{NewUnknown(attribute.New("x", attribute.Field("y"))), "unknown{x.y}"},
	}
	for _, tt := range tests {
		if got := tt.v.Inspect(); got != tt.expected {
			t.Errorf("Inspect() wrong. expected=%q, got=%q", tt.expected, got)
		}
	}
}

func TestHeterogeneousEquality(t *testing.T) {
	qt.Assert(t, qt.IsTrue(Equal(Int(1), Uint(1))))
	qt.Assert(t, qt.IsTrue(Equal(Int(1), Double(1.0))))
	qt.Assert(t, qt.IsTrue(Equal(Uint(2), Double(2.0))))
	qt.Assert(t, qt.IsTrue(Equal(Enum{TypeName: "E", Number: 2}, Int(2))))
	qt.Assert(t, qt.IsFalse(Equal(Int(-1), Uint(math.MaxUint64))))
	qt.Assert(t, qt.IsFalse(Equal(Int(1), Double(1.5))))
	qt.Assert(t, qt.IsFalse(Equal(Double(math.NaN()), Double(math.NaN()))))
	qt.Assert(t, qt.IsFalse(Equal(Int(1), String("1"))))
	qt.Assert(t, qt.IsTrue(Equal(NullValue, NullValue)))
	qt.Assert(t, qt.IsTrue(Equal(NewList(Int(1), Double(2)), NewList(Uint(1), Int(2)))))
	qt.Assert(t, qt.IsFalse(Equal(NewList(Int(1)), NewList(Int(1), Int(2)))))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b     Value
		expected int
		ok       bool
	}{
		{Int(1), Int(2), -1, true},
		{Uint(5), Int(-1), 1, true},
		{Int(3), Double(2.5), 1, true},
		{Double(-0.5), Int(0), -1, true},
		{Int(math.MaxInt64), Double(9223372036854775808.0), -1, true},
		{Uint(math.MaxUint64), Int(math.MaxInt64), 1, true},
		{String("a"), String("b"), -1, true},
		{Bytes("b"), Bytes("a"), 1, true},
		{False, True, -1, true},
		{Duration(time.Second), Duration(time.Second), 0, true},
		{Int(1), String("a"), 0, false},
		{Double(math.NaN()), Int(1), 0, false},
	}
	for _, tt := range tests {
		got, ok := Compare(tt.a, tt.b)
		qt.Check(t, qt.Equals(ok, tt.ok), qt.Commentf("%s vs %s", tt.a.Inspect(), tt.b.Inspect()))
		qt.Check(t, qt.Equals(got, tt.expected), qt.Commentf("%s vs %s", tt.a.Inspect(), tt.b.Inspect()))
	}
}

func TestMapBuilderNormalizesNumericKeys(t *testing.T) {
	b := NewMapBuilder()
	qt.Assert(t, qt.IsNil(b.Put(Int(1), String("one"))))
	qt.Assert(t, qt.IsNil(b.Put(String("k"), True)))

	err := b.Put(Uint(1), String("dup"))
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.Equals(err.Code, ErrInvalidArgument))

	err = b.Put(Double(1.5), NullValue)
	qt.Assert(t, qt.IsNotNil(err))

	m := b.Build()
	qt.Assert(t, qt.Equals(m.Size(), 2))
	for _, k := range []Value{Int(1), Uint(1), Double(1.0)} {
		v, ok := m.Get(k)
		qt.Assert(t, qt.IsTrue(ok), qt.Commentf("key %s", k.Inspect()))
		qt.Assert(t, qt.Equals(v, Value(String("one"))))
	}
	_, ok := m.Get(Double(1.5))
	qt.Assert(t, qt.IsFalse(ok))
	qt.Assert(t, qt.Equals(m.Inspect(), `{1: "one", "k": true}`))
}

func TestKindByName(t *testing.T) {
	for name, want := range map[string]Kind{
		"int":                      IntKind,
		"list":                     ListKind,
		"null_type":                NullKind,
		"type":                     TypeKind,
		"duration":                 DurationKind,
		"google.protobuf.Duration": DurationKind,
	} {
		got, ok := KindByName(name)
		qt.Check(t, qt.IsTrue(ok), qt.Commentf("%s", name))
		qt.Check(t, qt.Equals(got, want), qt.Commentf("%s", name))
	}
	for _, name := range []string{"error", "unknown", "dyn", "message", "enum", "nosuch"} {
		_, ok := KindByName(name)
		qt.Check(t, qt.IsFalse(ok), qt.Commentf("%s", name))
	}
}

func TestMutableListSnapshotIsIsolated(t *testing.T) {
	ml := NewMutableList(0)
	ml.Add(Int(1))
	snap := ml.Snapshot()
	ml.Add(Int(2))
	qt.Assert(t, qt.Equals(snap.Size(), 1))
	qt.Assert(t, qt.Equals(ml.Size(), 2))
}

func TestMutableListAddAllSelf(t *testing.T) {
	ml := NewMutableList(0)
	ml.Add(Int(1))
	ml.Add(Int(2))
	ml.AddAll(ml)
	qt.Assert(t, qt.Equals(ml.Size(), 4))
	qt.Check(t, qt.Equals(ml.Snapshot().Inspect(), "[1, 2, 1, 2]"))
}

func TestMergeUnknowns(t *testing.T) {
	xy := attribute.New("x", attribute.Field("y"))
	x := attribute.New("x")
	z := attribute.New("z")

	merged := MergeUnknowns(NewUnknown(xy, x), nil, NewUnknown(z, xy))
	qt.Assert(t, qt.Equals(merged.Len(), 3))
	// prefixes are not collapsed
	qt.Assert(t, qt.IsTrue(merged.Contains(x)))
	qt.Assert(t, qt.IsTrue(merged.Contains(xy)))
	qt.Assert(t, qt.IsNil(MergeUnknowns()))
	qt.Assert(t, qt.IsTrue(merged.Equal(NewUnknown(z, x, xy))))
}

func TestFromProtoWellKnownTypes(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st, err := structpb.NewStruct(map[string]interface{}{"a": 1.0, "b": []interface{}{"x", true}})
	qt.Assert(t, qt.IsNil(err))

	tests := []struct {
		name     string
		in       Value
		expected Value
	}{
		{"duration", FromProto(durationpb.New(90 * time.Second)), Duration(90 * time.Second)},
		{"timestamp", FromProto(timestamppb.New(ts)), Timestamp{Time: ts}},
		{"wrapper", FromProto(wrapperspb.Int32(7)), Int(7)},
		{"uint wrapper", FromProto(wrapperspb.UInt64(7)), Uint(7)},
		{"struct", FromProto(st), mustMap(t, String("a"), Double(1), String("b"), NewList(String("x"), True))},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.expected, tt.in, valueCmp); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestToStructpb(t *testing.T) {
	m := mustMap(t, String("n"), Int(1<<60), String("d"), Duration(time.Second), String("l"), NewList(Uint(3), NullValue))
	got, err := ToStructpb(m)
	qt.Assert(t, qt.IsNil(err))

	fields := got.GetStructValue().GetFields()
	qt.Assert(t, qt.Equals(fields["n"].GetStringValue(), "1152921504606846976"))
	qt.Assert(t, qt.Equals(fields["d"].GetStringValue(), "1s"))
	qt.Assert(t, qt.Equals(fields["l"].GetListValue().GetValues()[0].GetNumberValue(), 3.0))

	_, err = ToStructpb(NewError(ErrNotFound, "x"))
	qt.Assert(t, qt.IsNotNil(err))
}

func TestNative(t *testing.T) {
	got := Native(map[string]interface{}{
		"i":  3,
		"u":  uint8(4),
		"f":  float32(0.5),
		"s":  []string{"a", "b"},
		"p":  (*int)(nil),
		"by": []byte("z"),
	})
	want := mustMap(t,
		String("i"), Int(3),
		String("u"), Uint(4),
		String("f"), Double(0.5),
		String("s"), NewList(String("a"), String("b")),
		String("p"), NullValue,
		String("by"), Bytes("z"),
	)
	qt.Assert(t, qt.CmpEquals(got, Value(want), valueCmp))

	bad := Native(make(chan int))
	qt.Assert(t, qt.IsTrue(IsError(bad)))

	back := ToNative(want).(map[string]interface{})
	qt.Assert(t, qt.DeepEquals(back["s"], interface{}([]interface{}{"a", "b"})))
	qt.Assert(t, qt.Equals(back["i"], interface{}(int64(3))))
}

func mustMap(t *testing.T, kv ...Value) *Map {
	t.Helper()
	b := NewMapBuilder()
	for i := 0; i < len(kv); i += 2 {
		if err := b.Put(kv[i], kv[i+1]); err != nil {
			t.Fatalf("Put(%s): %s", kv[i].Inspect(), err.Inspect())
		}
	}
	return b.Build()
}
