package parser

import (
	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/operators"
	"github.com/funvibe/expreval/internal/token"
	"github.com/funvibe/expreval/internal/values"
)

// AccumulatorName is the accumulator variable of expanded loop macros. The
// lexer never produces an identifier starting with '@', so source cannot
// name it.
const AccumulatorName = "@result"

type receiverMacro func(p *Parser, call *ast.CallExpression) ast.Expression

var receiverMacros = map[string]map[int]receiverMacro{
	"all":        {2: expandAll},
	"exists":     {2: expandExists},
	"exists_one": {2: expandExistsOne},
	"map":        {2: expandMap, 3: expandMapFilter},
	"filter":     {2: expandFilter},
	"bind":       {3: expandBind},
}

func (p *Parser) expandGlobalMacro(call *ast.CallExpression) ast.Expression {
	if call.Function != "has" || len(call.Arguments) != 1 {
		return call
	}
	sel, ok := call.Arguments[0].(*ast.SelectExpression)
	if !ok || sel.Optional {
		p.addError(diagnostics.ErrP004, call.Token, "invalid argument to has() macro")
		return nil
	}
	return &ast.SelectExpression{Token: call.Token, Operand: sel.Operand, Field: sel.Field, TestOnly: true}
}

func (p *Parser) expandReceiverMacro(call *ast.CallExpression) ast.Expression {
	byArity, ok := receiverMacros[call.Function]
	if !ok {
		return call
	}
	expand, ok := byArity[len(call.Arguments)]
	if !ok {
		return call
	}
	if call.Function == "bind" {
		if id, isIdent := call.Target.(*ast.Identifier); !isIdent || id.Name != "cel" {
			return call
		}
	}
	return expand(p, call)
}

func (p *Parser) iterVar(call *ast.CallExpression) (string, bool) {
	id, ok := call.Arguments[0].(*ast.Identifier)
	if !ok || id.Name == AccumulatorName || id.Name[0] == '.' {
		p.addError(diagnostics.ErrP004, call.Arguments[0].GetToken(), "argument must be a simple name")
		return "", false
	}
	return id.Name, true
}

func accuIdent(tok token.Token) *ast.Identifier {
	return &ast.Identifier{Token: tok, Name: AccumulatorName}
}

func literal(tok token.Token, v values.Value) *ast.Literal {
	return &ast.Literal{Token: tok, Value: v}
}

func callOf(tok token.Token, fn string, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Token: tok, Function: fn, Arguments: args}
}

func comprehension(call *ast.CallExpression, iterVar string, init, cond, step, result ast.Expression) *ast.Comprehension {
	return &ast.Comprehension{
		Token:         call.Token,
		IterVar:       iterVar,
		IterRange:     call.Target,
		AccuVar:       AccumulatorName,
		AccuInit:      init,
		LoopCondition: cond,
		LoopStep:      step,
		Result:        result,
	}
}

// range.all(x, p)
func expandAll(p *Parser, call *ast.CallExpression) ast.Expression {
	v, ok := p.iterVar(call)
	if !ok {
		return nil
	}
	tok := call.Token
	cond := callOf(tok, operators.NotStrictlyFalse, accuIdent(tok))
	step := callOf(tok, operators.LogicalAnd, accuIdent(tok), call.Arguments[1])
	return comprehension(call, v, literal(tok, values.True), cond, step, accuIdent(tok))
}

// range.exists(x, p)
func expandExists(p *Parser, call *ast.CallExpression) ast.Expression {
	v, ok := p.iterVar(call)
	if !ok {
		return nil
	}
	tok := call.Token
	cond := callOf(tok, operators.NotStrictlyFalse, callOf(tok, operators.LogicalNot, accuIdent(tok)))
	step := callOf(tok, operators.LogicalOr, accuIdent(tok), call.Arguments[1])
	return comprehension(call, v, literal(tok, values.False), cond, step, accuIdent(tok))
}

// range.exists_one(x, p)
func expandExistsOne(p *Parser, call *ast.CallExpression) ast.Expression {
	v, ok := p.iterVar(call)
	if !ok {
		return nil
	}
	tok := call.Token
	step := callOf(tok, operators.Conditional, call.Arguments[1],
		callOf(tok, operators.Add, accuIdent(tok), literal(tok, values.Int(1))),
		accuIdent(tok))
	result := callOf(tok, operators.Equals, accuIdent(tok), literal(tok, values.Int(1)))
	return comprehension(call, v, literal(tok, values.Int(0)), literal(tok, values.True), step, result)
}

// range.map(x, f)
func expandMap(p *Parser, call *ast.CallExpression) ast.Expression {
	v, ok := p.iterVar(call)
	if !ok {
		return nil
	}
	tok := call.Token
	step := appendTo(tok, call.Arguments[1])
	return comprehension(call, v, mutableList(tok), literal(tok, values.True), step, accuIdent(tok))
}

// range.map(x, p, f)
func expandMapFilter(p *Parser, call *ast.CallExpression) ast.Expression {
	v, ok := p.iterVar(call)
	if !ok {
		return nil
	}
	tok := call.Token
	step := callOf(tok, operators.Conditional, call.Arguments[1], appendTo(tok, call.Arguments[2]), accuIdent(tok))
	return comprehension(call, v, mutableList(tok), literal(tok, values.True), step, accuIdent(tok))
}

// range.filter(x, p)
func expandFilter(p *Parser, call *ast.CallExpression) ast.Expression {
	v, ok := p.iterVar(call)
	if !ok {
		return nil
	}
	tok := call.Token
	elem := &ast.Identifier{Token: call.Arguments[0].GetToken(), Name: v}
	step := callOf(tok, operators.Conditional, call.Arguments[1], appendTo(tok, elem), accuIdent(tok))
	return comprehension(call, v, mutableList(tok), literal(tok, values.True), step, accuIdent(tok))
}

func mutableList(tok token.Token) *ast.ListLiteral {
	return &ast.ListLiteral{Token: tok, Elements: []ast.Expression{}, Mutable: true}
}

func appendTo(tok token.Token, elem ast.Expression) ast.Expression {
	return callOf(tok, operators.Add, accuIdent(tok), &ast.ListLiteral{Token: tok, Elements: []ast.Expression{elem}})
}

// cel.bind(name, init, body)
func expandBind(p *Parser, call *ast.CallExpression) ast.Expression {
	v, ok := p.iterVar(call)
	if !ok {
		return nil
	}
	return &ast.Bind{Token: call.Token, Name: v, Init: call.Arguments[1], Body: call.Arguments[2]}
}
