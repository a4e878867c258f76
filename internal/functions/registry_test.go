package functions

import (
	"errors"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/funvibe/expreval/internal/values"
)

func constant(v values.Value) Impl {
	return func(...values.Value) values.Value { return v }
}

func TestRegisterRejectsMixedStrictness(t *testing.T) {
	r := NewRegistry()
	qt.Assert(t, qt.IsNil(r.Register(&Overload{ID: "f_int", Name: "f", Args: []values.Kind{values.IntKind}, Strict: true, Impl: constant(values.True)})))
	err := r.Register(&Overload{ID: "f_string", Name: "f", Args: []values.Kind{values.StringKind}, Impl: constant(values.True)})
	qt.Assert(t, qt.IsTrue(errors.Is(err, ErrMixedStrictness)))
}

func TestRegisterRejectsDuplicateSignature(t *testing.T) {
	r := NewRegistry()
	o := &Overload{ID: "f_int", Name: "f", Args: []values.Kind{values.IntKind}, Strict: true, Impl: constant(values.True)}
	qt.Assert(t, qt.IsNil(r.Register(o)))
	err := r.Register(&Overload{ID: "f_int_again", Name: "f", Args: []values.Kind{values.IntKind}, Strict: true, Impl: constant(values.False)})
	qt.Assert(t, qt.IsTrue(errors.Is(err, ErrDuplicateOverload)))

	// The receiver-style form is a distinct signature.
	qt.Assert(t, qt.IsNil(r.Register(&Overload{ID: "int_f", Name: "f", ReceiverStyle: true, Args: []values.Kind{values.IntKind}, Strict: true, Impl: constant(values.False)})))
}

func TestDispatch(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		&Overload{ID: "f_int", Name: "f", Args: []values.Kind{values.IntKind}, Strict: true, Impl: func(args ...values.Value) values.Value {
			return args[0].(values.Int) * 10
		}},
		&Overload{ID: "f_dyn_dyn", Name: "f", Args: []values.Kind{values.AnyKind, values.AnyKind}, Strict: true, Impl: constant(values.String("two"))},
	)
	fn, ok := r.Lookup("f")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(fn.Strict()))
	qt.Assert(t, qt.Equals(fn.Overloads(), 2))

	qt.Check(t, qt.Equals[values.Value](fn.Dispatch(false, []values.Value{values.Int(4)}), values.Int(40)))
	qt.Check(t, qt.Equals[values.Value](fn.Dispatch(false, []values.Value{values.Enum{TypeName: "E", Number: 2}}), values.Int(20)))
	qt.Check(t, qt.Equals[values.Value](fn.Dispatch(false, []values.Value{values.True, values.NullValue}), values.String("two")))

	res := fn.Dispatch(false, []values.Value{values.String("x")})
	err, isErr := res.(*values.Error)
	qt.Assert(t, qt.IsTrue(isErr))
	qt.Check(t, qt.Equals(err.Code, values.ErrNoMatchingOverload))
	qt.Check(t, qt.Equals(err.Message, "no matching overload for 'f' applied to [string]"))

	res = fn.Dispatch(true, []values.Value{values.Int(1)})
	qt.Check(t, qt.IsTrue(values.IsError(res)))

	_, ok = r.Lookup("g")
	qt.Check(t, qt.IsFalse(ok))
}

func TestStandardStrictness(t *testing.T) {
	r := Standard()
	fn, ok := r.Lookup("@not_strictly_false")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.IsFalse(fn.Strict()))
	for _, name := range []string{"_+_", "_==_", "size", "optional.of", "matches", "getHours"} {
		fn, ok := r.Lookup(name)
		qt.Assert(t, qt.IsTrue(ok), qt.Commentf("function %s", name))
		qt.Check(t, qt.IsTrue(fn.Strict()), qt.Commentf("function %s", name))
	}
}
