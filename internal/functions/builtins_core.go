package functions

import (
	"math"
	"unicode/utf8"

	"github.com/funvibe/expreval/internal/operators"
	"github.com/funvibe/expreval/internal/values"
)

const dyn = values.AnyKind

// CoreOverloads returns logical, comparison, membership and size functions.
func CoreOverloads() []*Overload {
	overloads := []*Overload{
		{ID: "logical_not", Name: operators.LogicalNot, Args: []values.Kind{values.BoolKind}, Strict: true, Impl: builtinNot},
		{ID: "not_strictly_false", Name: operators.NotStrictlyFalse, Args: []values.Kind{dyn}, Impl: builtinNotStrictlyFalse},
		{ID: "equals", Name: operators.Equals, Args: []values.Kind{dyn, dyn}, Strict: true, Impl: builtinEquals},
		{ID: "not_equals", Name: operators.NotEquals, Args: []values.Kind{dyn, dyn}, Strict: true, Impl: builtinNotEquals},
		{ID: "in_list", Name: operators.In, Args: []values.Kind{dyn, values.ListKind}, Strict: true, Impl: builtinInList},
		{ID: "in_map", Name: operators.In, Args: []values.Kind{dyn, values.MapKind}, Strict: true, Impl: builtinInMap},
		{ID: "type", Name: "type", Args: []values.Kind{dyn}, Strict: true, Impl: builtinType},
		{ID: "dyn", Name: "dyn", Args: []values.Kind{dyn}, Strict: true, Impl: builtinDyn},
	}
	for _, sized := range []values.Kind{values.StringKind, values.BytesKind, values.ListKind, values.MapKind} {
		name := sized.String()
		overloads = append(overloads,
			&Overload{ID: "size_" + name, Name: "size", Args: []values.Kind{sized}, Strict: true, Impl: builtinSize},
			&Overload{ID: name + "_size", Name: "size", ReceiverStyle: true, Args: []values.Kind{sized}, Strict: true, Impl: builtinSize},
		)
	}
	relations := []struct {
		name string
		test func(int) bool
	}{
		{operators.Less, func(c int) bool { return c < 0 }},
		{operators.LessEquals, func(c int) bool { return c <= 0 }},
		{operators.Greater, func(c int) bool { return c > 0 }},
		{operators.GreaterEquals, func(c int) bool { return c >= 0 }},
	}
	for _, rel := range relations {
		overloads = append(overloads, &Overload{
			ID: "relation" + rel.name, Name: rel.name, Args: []values.Kind{dyn, dyn}, Strict: true,
			Impl: relation(rel.name, rel.test),
		})
	}
	return overloads
}

// !_: bool -> bool
func builtinNot(args ...values.Value) values.Value {
	return !args[0].(values.Bool)
}

// @not_strictly_false: any -> bool. Only a concrete false is false; errors
// and unknowns count as true so loop conditions keep iterating.
func builtinNotStrictlyFalse(args ...values.Value) values.Value {
	if b, ok := args[0].(values.Bool); ok {
		return b
	}
	return values.True
}

func builtinEquals(args ...values.Value) values.Value {
	return values.Bool(values.Equal(args[0], args[1]))
}

func builtinNotEquals(args ...values.Value) values.Value {
	return values.Bool(!values.Equal(args[0], args[1]))
}

func relation(name string, test func(int) bool) Impl {
	return func(args ...values.Value) values.Value {
		c, ok := values.Compare(args[0], args[1])
		if !ok {
			if isNaN(args[0]) || isNaN(args[1]) {
				return values.False
			}
			return values.NoMatchingOverload(name, args...)
		}
		return values.Bool(test(c))
	}
}

func isNaN(v values.Value) bool {
	d, ok := v.(values.Double)
	return ok && math.IsNaN(float64(d))
}

// @in: (dyn, list) -> bool
func builtinInList(args ...values.Value) values.Value {
	l := args[1].(values.Lister)
	for i := 0; i < l.Size(); i++ {
		if values.Equal(args[0], l.Get(i)) {
			return values.True
		}
	}
	return values.False
}

// @in: (dyn, map) -> bool
func builtinInMap(args ...values.Value) values.Value {
	_, found := args[1].(values.Mapper).Get(args[0])
	return values.Bool(found)
}

// size: string | bytes | list | map -> int. Strings count code points.
func builtinSize(args ...values.Value) values.Value {
	switch v := args[0].(type) {
	case values.String:
		return values.Int(utf8.RuneCountInString(string(v)))
	case values.Bytes:
		return values.Int(len(v))
	case values.Lister:
		return values.Int(v.Size())
	case values.Mapper:
		return values.Int(v.Size())
	}
	return values.NoMatchingOverload("size", args...)
}

func builtinType(args ...values.Value) values.Value {
	return values.TypeOf(args[0])
}

func builtinDyn(args ...values.Value) values.Value {
	return args[0]
}
