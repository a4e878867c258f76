// Package functions holds the function registry the evaluator dispatches
// calls through, and the standard built-in library.
//
// Strictness is a property of a function name, not of an overload: a strict
// function never sees error or unknown arguments because the evaluator
// propagates them without calling it, while a non-strict function receives
// its arguments raw.
package functions

import (
	"errors"
	"fmt"
	"sync"

	"github.com/funvibe/expreval/internal/values"
)

var (
	ErrMixedStrictness   = errors.New("mixed strictness")
	ErrDuplicateOverload = errors.New("duplicate overload")
)

// Impl computes a call result. Arguments arrive receiver first for
// receiver-style overloads.
type Impl func(args ...values.Value) values.Value

// Overload is one signature of a function.
type Overload struct {
	ID            string
	Name          string
	ReceiverStyle bool
	Args          []values.Kind
	Strict        bool
	Impl          Impl
}

// Function groups the overloads registered under one name.
type Function struct {
	name      string
	strict    bool
	overloads []*Overload
}

func (f *Function) Name() string  { return f.name }
func (f *Function) Strict() bool  { return f.strict }
func (f *Function) Overloads() int { return len(f.overloads) }

// Registry maps function names to their overloads. It is safe for
// concurrent use; evaluation only reads it.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*Function
}

func NewRegistry() *Registry {
	return &Registry{functions: make(map[string]*Function)}
}

// Register adds overloads. All overloads of one name must agree on
// strictness, and no two may share receiver style and argument kinds.
func (r *Registry) Register(overloads ...*Overload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range overloads {
		fn, ok := r.functions[o.Name]
		if !ok {
			fn = &Function{name: o.Name, strict: o.Strict}
			r.functions[o.Name] = fn
		}
		if fn.strict != o.Strict {
			return fmt.Errorf("function %s, overload %s: %w", o.Name, o.ID, ErrMixedStrictness)
		}
		for _, existing := range fn.overloads {
			if existing.ReceiverStyle == o.ReceiverStyle && sameKinds(existing.Args, o.Args) {
				return fmt.Errorf("function %s, overload %s clashes with %s: %w", o.Name, o.ID, existing.ID, ErrDuplicateOverload)
			}
		}
		fn.overloads = append(fn.overloads, o)
	}
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(overloads ...*Overload) {
	if err := r.Register(overloads...); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	return fn, ok
}

// Names returns the registered function names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for n := range r.functions {
		names = append(names, n)
	}
	return names
}

// Dispatch calls the first overload whose receiver style and argument
// kinds accept args. Enum arguments are accepted where int is expected and
// are passed as Int. Without a match the result is a no_matching_overload
// error value.
func (f *Function) Dispatch(receiverStyle bool, args []values.Value) values.Value {
	for _, o := range f.overloads {
		if o.ReceiverStyle != receiverStyle || len(o.Args) != len(args) {
			continue
		}
		if converted, ok := accepts(o.Args, args); ok {
			return o.Impl(converted...)
		}
	}
	return values.NoMatchingOverload(f.name, args...)
}

// HasOverload reports whether some overload takes argc arguments in the
// given call style. Arity is counted with the receiver.
func (f *Function) HasOverload(receiverStyle bool, argc int) bool {
	for _, o := range f.overloads {
		if o.ReceiverStyle == receiverStyle && len(o.Args) == argc {
			return true
		}
	}
	return false
}

func accepts(kinds []values.Kind, args []values.Value) ([]values.Value, bool) {
	out := args
	copied := false
	for i, k := range kinds {
		if k == values.AnyKind {
			continue
		}
		a := args[i]
		if a.Kind() == k {
			continue
		}
		if e, isEnum := a.(values.Enum); isEnum && k == values.IntKind {
			if !copied {
				out = append([]values.Value(nil), args...)
				copied = true
			}
			out[i] = values.Int(e.Number)
			continue
		}
		return nil, false
	}
	return out, true
}

func sameKinds(a, b []values.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
