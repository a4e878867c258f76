// Package ast defines the expression tree produced by the parser. Macros are
// already expanded: the tree contains only the node kinds below.
package ast

import (
	"github.com/funvibe/expreval/internal/token"
	"github.com/funvibe/expreval/internal/values"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	Accept(v Visitor)
}

// Expression is a Node that produces a value.
type Expression interface {
	Node
	expressionNode()
	GetToken() token.Token
}

// Visitor walks the tree. Implementations recurse explicitly.
type Visitor interface {
	VisitLiteral(n *Literal)
	VisitIdentifier(n *Identifier)
	VisitSelectExpression(n *SelectExpression)
	VisitIndexExpression(n *IndexExpression)
	VisitCallExpression(n *CallExpression)
	VisitListLiteral(n *ListLiteral)
	VisitMapLiteral(n *MapLiteral)
	VisitStructLiteral(n *StructLiteral)
	VisitComprehension(n *Comprehension)
	VisitBind(n *Bind)
}

// Literal is a constant: null, bool, int, uint, double, string or bytes.
type Literal struct {
	Token token.Token
	Value values.Value
}

func (l *Literal) Accept(v Visitor)      { v.VisitLiteral(l) }
func (l *Literal) expressionNode()       {}
func (l *Literal) TokenLiteral() string  { return l.Token.Lexeme }
func (l *Literal) GetToken() token.Token { return l.Token }

// Identifier names a variable, an iteration variable or a bound local. A
// leading dot (.x) is kept in Name and forces root scope resolution.
type Identifier struct {
	Token token.Token
	Name  string
}

func (i *Identifier) Accept(v Visitor)      { v.VisitIdentifier(i) }
func (i *Identifier) expressionNode()       {}
func (i *Identifier) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token { return i.Token }

// SelectExpression is operand.field. TestOnly marks the has() form, Optional
// the operand.?field form.
type SelectExpression struct {
	Token    token.Token
	Operand  Expression
	Field    string
	TestOnly bool
	Optional bool
}

func (s *SelectExpression) Accept(v Visitor)      { v.VisitSelectExpression(s) }
func (s *SelectExpression) expressionNode()       {}
func (s *SelectExpression) TokenLiteral() string  { return s.Token.Lexeme }
func (s *SelectExpression) GetToken() token.Token { return s.Token }

// IndexExpression is operand[index], or operand[?index] when Optional.
type IndexExpression struct {
	Token    token.Token
	Operand  Expression
	Index    Expression
	Optional bool
}

func (ie *IndexExpression) Accept(v Visitor)      { v.VisitIndexExpression(ie) }
func (ie *IndexExpression) expressionNode()       {}
func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IndexExpression) GetToken() token.Token { return ie.Token }

// CallExpression is a global call f(args) or a receiver call target.f(args).
// Operators are calls to their internal names (see package operators).
type CallExpression struct {
	Token     token.Token
	Target    Expression // nil for global calls
	Function  string
	Arguments []Expression
}

func (c *CallExpression) Accept(v Visitor)      { v.VisitCallExpression(c) }
func (c *CallExpression) expressionNode()       {}
func (c *CallExpression) TokenLiteral() string  { return c.Token.Lexeme }
func (c *CallExpression) GetToken() token.Token { return c.Token }

// ListLiteral is [a, ?b, c]. OptionalIndices lists the positions written with
// a leading '?'. Mutable is set only on accumulator initializers generated by
// the map and filter macros.
type ListLiteral struct {
	Token           token.Token
	Elements        []Expression
	OptionalIndices []int
	Mutable         bool
}

func (l *ListLiteral) Accept(v Visitor)      { v.VisitListLiteral(l) }
func (l *ListLiteral) expressionNode()       {}
func (l *ListLiteral) TokenLiteral() string  { return l.Token.Lexeme }
func (l *ListLiteral) GetToken() token.Token { return l.Token }

// IsOptional reports whether element i was written as ?e.
func (l *ListLiteral) IsOptional(i int) bool {
	for _, idx := range l.OptionalIndices {
		if idx == i {
			return true
		}
	}
	return false
}

type MapEntry struct {
	Token    token.Token
	Key      Expression
	Value    Expression
	Optional bool
}

// MapLiteral is {k: v, ?k2: opt}.
type MapLiteral struct {
	Token   token.Token
	Entries []*MapEntry
}

func (m *MapLiteral) Accept(v Visitor)      { v.VisitMapLiteral(m) }
func (m *MapLiteral) expressionNode()       {}
func (m *MapLiteral) TokenLiteral() string  { return m.Token.Lexeme }
func (m *MapLiteral) GetToken() token.Token { return m.Token }

type FieldInitializer struct {
	Token    token.Token
	Name     string
	Value    Expression
	Optional bool
}

// StructLiteral is pkg.Message{field: value}.
type StructLiteral struct {
	Token    token.Token
	TypeName string
	Fields   []*FieldInitializer
}

func (s *StructLiteral) Accept(v Visitor)      { v.VisitStructLiteral(s) }
func (s *StructLiteral) expressionNode()       {}
func (s *StructLiteral) TokenLiteral() string  { return s.Token.Lexeme }
func (s *StructLiteral) GetToken() token.Token { return s.Token }

// Comprehension is the expanded form of every loop macro:
//
//	accu := AccuInit
//	for IterVar in IterRange {
//	    if !LoopCondition { break }
//	    accu = LoopStep
//	}
//	return Result
type Comprehension struct {
	Token         token.Token
	IterVar       string
	IterRange     Expression
	AccuVar       string
	AccuInit      Expression
	LoopCondition Expression
	LoopStep      Expression
	Result        Expression
}

func (c *Comprehension) Accept(v Visitor)      { v.VisitComprehension(c) }
func (c *Comprehension) expressionNode()       {}
func (c *Comprehension) TokenLiteral() string  { return c.Token.Lexeme }
func (c *Comprehension) GetToken() token.Token { return c.Token }

// Bind is cel.bind(Name, Init, Body): Init is evaluated at most once, the
// first time Body references Name.
type Bind struct {
	Token token.Token
	Name  string
	Init  Expression
	Body  Expression
}

func (b *Bind) Accept(v Visitor)      { v.VisitBind(b) }
func (b *Bind) expressionNode()       {}
func (b *Bind) TokenLiteral() string  { return b.Token.Lexeme }
func (b *Bind) GetToken() token.Token { return b.Token }
