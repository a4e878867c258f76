// Package activation resolves variable names to values during evaluation.
package activation

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/expreval/internal/values"
)

// Activation binds variable names. Absence is a normal outcome.
type Activation interface {
	FindVariable(name string) (values.Value, bool)
}

// Map is an activation over a fixed set of values.
type Map map[string]values.Value

func (m Map) FindVariable(name string) (values.Value, bool) {
	v, ok := m[name]
	return v, ok
}

// NewMap converts Go data into a Map activation. Each value goes through
// values.Native, so a variable that cannot be converted is bound to a
// type_conversion error value.
func NewMap(vars map[string]interface{}) Map {
	m := make(Map, len(vars))
	for name, v := range vars {
		m[name] = values.Native(v)
	}
	return m
}

// Empty binds nothing.
func Empty() Activation { return Map(nil) }

type hierarchical struct {
	parent, child Activation
}

// Hierarchical consults child first and falls back to parent.
func Hierarchical(parent, child Activation) Activation {
	return &hierarchical{parent: parent, child: child}
}

func (h *hierarchical) FindVariable(name string) (values.Value, bool) {
	if v, ok := h.child.FindVariable(name); ok {
		return v, true
	}
	return h.parent.FindVariable(name)
}

// Func adapts a lookup function.
type Func func(name string) (values.Value, bool)

func (f Func) FindVariable(name string) (values.Value, bool) { return f(name) }

// FromYAML decodes a YAML mapping of variable names to values.
func FromYAML(data []byte) (Map, error) {
	var vars map[string]interface{}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("decode variables: %w", err)
	}
	return FromNode(vars)
}

// FromNode converts already-decoded YAML data, as found inside a larger
// configuration document.
func FromNode(vars map[string]interface{}) (Map, error) {
	m := NewMap(vars)
	for name, v := range m {
		if e, ok := v.(*values.Error); ok {
			return nil, fmt.Errorf("variable %s: %s", name, e.Message)
		}
	}
	return m, nil
}
