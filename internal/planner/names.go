package planner

import (
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/functions"
	"github.com/funvibe/expreval/internal/values"
)

// qualifiedName returns the dotted name spelled by a chain of identifiers
// and plain selects, with the identifier at its root.
func qualifiedName(e ast.Expression) (string, *ast.Identifier, bool) {
	switch n := e.(type) {
	case *ast.Identifier:
		return n.Name, n, true
	case *ast.SelectExpression:
		if n.TestOnly || n.Optional {
			return "", nil, false
		}
		prefix, root, ok := qualifiedName(n.Operand)
		if !ok {
			return "", nil, false
		}
		return prefix + "." + n.Field, root, true
	}
	return "", nil, false
}

// global returns the qualified name spelled by e when its root is not a
// local. A leading dot is dropped.
func (c *compilation) global(e ast.Expression) (string, bool) {
	name, root, ok := qualifiedName(e)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(root.Name, ".") {
		return name[1:], true
	}
	if c.resolveLocal(root.Name) != nil {
		return "", false
	}
	return name, true
}

// constant resolves e to a type name (int, pkg.Msg) or an enum constant
// (pkg.Color.RED).
func (c *compilation) constant(e ast.Expression) (values.Value, bool) {
	name, ok := c.global(e)
	if !ok {
		return nil, false
	}
	if !strings.Contains(name, ".") {
		if k, ok := values.KindByName(name); ok {
			return values.Type{Name: k.String()}, true
		}
	}
	if c.types == nil {
		return nil, false
	}
	if v, ok := c.types.FindEnumValue(name); ok {
		return v, true
	}
	if mt, ok := c.types.FindMessageType(name); ok {
		return values.Type{Name: string(mt.Descriptor().FullName())}, true
	}
	return nil, false
}

// function resolves the callee of n and returns the operands in stack
// order, receiver first. A receiver call whose target spells a qualified
// name may name a namespaced global function such as optional.of.
func (c *compilation) function(n *ast.CallExpression) (*functions.Function, bool, []ast.Expression) {
	name := n.Function
	if n.Target != nil {
		if prefix, ok := c.global(n.Target); ok {
			if fn, found := c.functions.Lookup(prefix + "." + n.Function); found {
				return c.checkArity(n, fn, false, n.Arguments), false, n.Arguments
			}
		}
	}
	args := n.Arguments
	receiver := n.Target != nil
	if receiver {
		args = append([]ast.Expression{n.Target}, n.Arguments...)
	}
	fn, found := c.functions.Lookup(name)
	if !found {
		c.errorf(diagnostics.ErrC004, n.GetToken(), "undeclared reference to function %q", name)
		return nil, receiver, args
	}
	return c.checkArity(n, fn, receiver, args), receiver, args
}

func (c *compilation) checkArity(n *ast.CallExpression, fn *functions.Function, receiver bool, args []ast.Expression) *functions.Function {
	if fn.HasOverload(receiver, len(args)) {
		return fn
	}
	style := "global"
	if receiver {
		style = "receiver"
	}
	c.errorf(diagnostics.ErrC004, n.GetToken(), "no %s overload of %q takes %d arguments", style, fn.Name(), len(args))
	return nil
}

// messageType resolves the type of a struct literal and checks its field
// names.
func (c *compilation) messageType(n *ast.StructLiteral) (protoreflect.MessageType, bool) {
	name := strings.TrimPrefix(n.TypeName, ".")
	var mt protoreflect.MessageType
	if c.types != nil {
		mt, _ = c.types.FindMessageType(name)
	}
	if mt == nil {
		c.errorf(diagnostics.ErrC001, n.GetToken(), "unknown message type %q", name)
		return nil, false
	}
	fields := mt.Descriptor().Fields()
	ok := true
	for _, f := range n.Fields {
		if fields.ByName(protoreflect.Name(f.Name)) == nil {
			c.errorf(diagnostics.ErrC002, f.Token, "message %s has no field %q", name, f.Name)
			ok = false
		}
	}
	return mt, ok
}

func structFields(n *ast.StructLiteral) (names []string, optional []int) {
	names = make([]string, len(n.Fields))
	for i, f := range n.Fields {
		names[i] = f.Name
		if f.Optional {
			optional = append(optional, i)
		}
	}
	return names, optional
}

func mapOptionals(n *ast.MapLiteral) []int {
	var optional []int
	for i, e := range n.Entries {
		if e.Optional {
			optional = append(optional, i)
		}
	}
	return optional
}
