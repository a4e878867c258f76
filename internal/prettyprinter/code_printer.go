// Package prettyprinter renders an expression tree back to source text.
package prettyprinter

import (
	"bytes"
	"strings"

	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/operators"
)

const memberPrecedence = 8

// CodePrinter renders an expression as source. Parentheses are added only
// where precedence requires them, so parsing the output yields the same
// tree. Expanded loop macros have no surface syntax and print in the
// generic __comprehension__ form.
type CodePrinter struct {
	buf bytes.Buffer
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

func (p *CodePrinter) String() string { return p.buf.String() }

// Print is a convenience wrapper returning the rendering of expr.
func Print(expr ast.Expression) string {
	p := NewCodePrinter()
	p.printExpr(expr, 0, false)
	return p.String()
}

func (p *CodePrinter) write(s string) { p.buf.WriteString(s) }

func (p *CodePrinter) VisitLiteral(n *ast.Literal)                   { p.printExpr(n, 0, false) }
func (p *CodePrinter) VisitIdentifier(n *ast.Identifier)             { p.printExpr(n, 0, false) }
func (p *CodePrinter) VisitSelectExpression(n *ast.SelectExpression) { p.printExpr(n, 0, false) }
func (p *CodePrinter) VisitIndexExpression(n *ast.IndexExpression)   { p.printExpr(n, 0, false) }
func (p *CodePrinter) VisitCallExpression(n *ast.CallExpression)     { p.printExpr(n, 0, false) }
func (p *CodePrinter) VisitListLiteral(n *ast.ListLiteral)           { p.printExpr(n, 0, false) }
func (p *CodePrinter) VisitMapLiteral(n *ast.MapLiteral)             { p.printExpr(n, 0, false) }
func (p *CodePrinter) VisitStructLiteral(n *ast.StructLiteral)       { p.printExpr(n, 0, false) }
func (p *CodePrinter) VisitComprehension(n *ast.Comprehension)       { p.printExpr(n, 0, false) }
func (p *CodePrinter) VisitBind(n *ast.Bind)                         { p.printExpr(n, 0, false) }

// precedenceOf returns the binding strength of the node's outermost syntax.
func precedenceOf(expr ast.Expression) int {
	if call, ok := expr.(*ast.CallExpression); ok && call.Target == nil {
		if prec := operators.Precedence(call.Function); prec > 0 {
			return prec
		}
	}
	return memberPrecedence
}

// printExpr prints an expression, adding parentheses only if needed
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int, isRight bool) {
	if expr == nil {
		p.write("<???>")
		return
	}
	prec := precedenceOf(expr)
	needParens := prec < parentPrec || (prec == parentPrec && isRight && prec != 1)
	if needParens {
		p.write("(")
		defer p.write(")")
	}

	switch e := expr.(type) {
	case *ast.Literal:
		p.write(e.Value.Inspect())
	case *ast.Identifier:
		p.write(e.Name)
	case *ast.SelectExpression:
		if e.TestOnly {
			p.write("has(")
			p.printExpr(e.Operand, memberPrecedence, false)
			p.write("." + e.Field + ")")
			return
		}
		p.printExpr(e.Operand, memberPrecedence, false)
		if e.Optional {
			p.write(".?")
		} else {
			p.write(".")
		}
		p.write(e.Field)
	case *ast.IndexExpression:
		p.printExpr(e.Operand, memberPrecedence, false)
		if e.Optional {
			p.write("[?")
		} else {
			p.write("[")
		}
		p.printExpr(e.Index, 0, false)
		p.write("]")
	case *ast.CallExpression:
		p.printCall(e, prec)
	case *ast.ListLiteral:
		p.write("[")
		for i, el := range e.Elements {
			if i > 0 {
				p.write(", ")
			}
			if e.IsOptional(i) {
				p.write("?")
			}
			p.printExpr(el, 0, false)
		}
		p.write("]")
	case *ast.MapLiteral:
		p.write("{")
		for i, entry := range e.Entries {
			if i > 0 {
				p.write(", ")
			}
			if entry.Optional {
				p.write("?")
			}
			p.printExpr(entry.Key, 0, false)
			p.write(": ")
			p.printExpr(entry.Value, 0, false)
		}
		p.write("}")
	case *ast.StructLiteral:
		p.write(e.TypeName + "{")
		for i, f := range e.Fields {
			if i > 0 {
				p.write(", ")
			}
			if f.Optional {
				p.write("?")
			}
			p.write(f.Name + ": ")
			p.printExpr(f.Value, 0, false)
		}
		p.write("}")
	case *ast.Comprehension:
		p.write("__comprehension__(" + e.IterVar + ", ")
		p.printList(e.IterRange, &ast.Identifier{Name: e.AccuVar}, e.AccuInit, e.LoopCondition, e.LoopStep, e.Result)
		p.write(")")
	case *ast.Bind:
		p.write("cel.bind(" + e.Name + ", ")
		p.printList(e.Init, e.Body)
		p.write(")")
	default:
		p.write("<???>")
	}
}

func (p *CodePrinter) printList(exprs ...ast.Expression) {
	for i, e := range exprs {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(e, 0, false)
	}
}

func (p *CodePrinter) printCall(call *ast.CallExpression, prec int) {
	if call.Target != nil {
		p.printExpr(call.Target, memberPrecedence, false)
		p.write("." + call.Function + "(")
		p.printList(call.Arguments...)
		p.write(")")
		return
	}
	op, isOperator := operators.Display(call.Function)
	switch {
	case call.Function == operators.Conditional && len(call.Arguments) == 3:
		p.printExpr(call.Arguments[0], prec+1, false)
		p.write(" ? ")
		p.printExpr(call.Arguments[1], prec+1, false)
		p.write(" : ")
		p.printExpr(call.Arguments[2], prec, true)
	case isOperator && len(call.Arguments) == 1:
		p.write(op)
		p.printExpr(call.Arguments[0], prec, false)
	case isOperator && len(call.Arguments) == 2:
		p.printExpr(call.Arguments[0], prec, false)
		p.write(" " + op + " ")
		p.printExpr(call.Arguments[1], prec, true)
	default:
		p.write(strings.TrimPrefix(call.Function, "@") + "(")
		p.printList(call.Arguments...)
		p.write(")")
	}
}
