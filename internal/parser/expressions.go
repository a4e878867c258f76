package parser

import (
	"math"

	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/operators"
	"github.com/funvibe/expreval/internal/token"
	"github.com/funvibe/expreval/internal/values"
)

var binaryOperators = map[token.TokenType]string{
	token.OR:       operators.LogicalOr,
	token.AND:      operators.LogicalAnd,
	token.EQ:       operators.Equals,
	token.NOT_EQ:   operators.NotEquals,
	token.LT:       operators.Less,
	token.LTE:      operators.LessEquals,
	token.GT:       operators.Greater,
	token.GTE:      operators.GreaterEquals,
	token.IN:       operators.In,
	token.PLUS:     operators.Add,
	token.MINUS:    operators.Subtract,
	token.ASTERISK: operators.Multiply,
	token.SLASH:    operators.Divide,
	token.PERCENT:  operators.Modulo,
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.addError(diagnostics.ErrP006, p.curToken, "expression too complex: recursion depth limit exceeded")
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	name := p.curToken.Lexeme
	if token.IsReserved(name) {
		p.addError(diagnostics.ErrP005, p.curToken, "reserved identifier: %s", name)
		return nil
	}
	ident := &ast.Identifier{Token: p.curToken, Name: name}
	if p.peekTokenIs(token.LPAREN) {
		return p.parseGlobalCall(ident)
	}
	return ident
}

// parseRootIdentifier parses .name, which resolves name in the root scope.
func (p *Parser) parseRootIdentifier() ast.Expression {
	dot := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	ident := &ast.Identifier{Token: dot, Name: "." + p.curToken.Lexeme}
	if p.peekTokenIs(token.LPAREN) {
		return p.parseGlobalCall(ident)
	}
	return ident
}

func (p *Parser) parseGlobalCall(fn *ast.Identifier) ast.Expression {
	p.nextToken() // (
	args := p.parseExpressionList(token.RPAREN)
	if args == nil {
		return nil
	}
	call := &ast.CallExpression{Token: fn.Token, Function: fn.Name, Arguments: args}
	return p.expandGlobalMacro(call)
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	n := p.curToken.Literal.(uint64)
	if n > math.MaxInt64 {
		p.addError(diagnostics.ErrP003, p.curToken, "integer literal out of range: %s", p.curToken.Lexeme)
		return nil
	}
	return &ast.Literal{Token: p.curToken, Value: values.Int(int64(n))}
}

func (p *Parser) parseUintLiteral() ast.Expression {
	return &ast.Literal{Token: p.curToken, Value: values.Uint(p.curToken.Literal.(uint64))}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	return &ast.Literal{Token: p.curToken, Value: values.Double(p.curToken.Literal.(float64))}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.Literal{Token: p.curToken, Value: values.String(p.curToken.Literal.(string))}
}

func (p *Parser) parseBytesLiteral() ast.Expression {
	return &ast.Literal{Token: p.curToken, Value: values.Bytes(p.curToken.Literal.([]byte))}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.Literal{Token: p.curToken, Value: values.Bool(p.curTokenIs(token.TRUE))}
}

func (p *Parser) parseNull() ast.Expression {
	return &ast.Literal{Token: p.curToken, Value: values.NullValue}
}

// parsePrefixExpression handles ! and unary minus. A minus directly before a
// numeric literal is folded into the literal, which is the only way to
// write math.MinInt64.
func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.curToken
	if tok.Type == token.MINUS {
		switch p.peekToken.Type {
		case token.INT:
			p.nextToken()
			n := p.curToken.Literal.(uint64)
			if n > 1<<63 {
				p.addError(diagnostics.ErrP003, p.curToken, "integer literal out of range: -%s", p.curToken.Lexeme)
				return nil
			}
			lit := &ast.Literal{Token: tok, Value: values.Int(int64(-n))}
			lit.Token.Lexeme = "-" + p.curToken.Lexeme
			return p.continueMember(lit)
		case token.FLOAT:
			p.nextToken()
			lit := &ast.Literal{Token: tok, Value: values.Double(-p.curToken.Literal.(float64))}
			lit.Token.Lexeme = "-" + p.curToken.Lexeme
			return p.continueMember(lit)
		}
	}

	fn := operators.LogicalNot
	if tok.Type == token.MINUS {
		fn = operators.Negate
	}
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	return &ast.CallExpression{Token: tok, Function: fn, Arguments: []ast.Expression{operand}}
}

// continueMember applies member operators to a folded literal so -1.foo()
// still binds the member access tighter than the sign.
func (p *Parser) continueMember(left ast.Expression) ast.Expression {
	for left != nil && p.peekPrecedence() == MEMBER {
		infix := p.infixParseFns[p.peekToken.Type]
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.CallExpression{Token: tok, Function: binaryOperators[tok.Type], Arguments: []ast.Expression{left, right}}
}

// parseConditionalExpression parses c ? a : b. It is right-associative.
func (p *Parser) parseConditionalExpression(cond ast.Expression) ast.Expression {
	tok := p.curToken
	p.nextToken()
	then := p.parseExpression(CONDITIONAL)
	if then == nil || !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	otherwise := p.parseExpression(LOWEST)
	if otherwise == nil {
		return nil
	}
	return &ast.CallExpression{Token: tok, Function: operators.Conditional, Arguments: []ast.Expression{cond, then, otherwise}}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil || !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

// parseMemberExpression handles x.f, x.?f and receiver calls x.f(args).
func (p *Parser) parseMemberExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	optional := false
	if p.peekTokenIs(token.QUESTION) {
		p.nextToken()
		optional = true
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Lexeme

	if !optional && p.peekTokenIs(token.LPAREN) {
		callTok := p.curToken
		p.nextToken()
		args := p.parseExpressionList(token.RPAREN)
		if args == nil {
			return nil
		}
		call := &ast.CallExpression{Token: callTok, Target: left, Function: name, Arguments: args}
		return p.expandReceiverMacro(call)
	}
	return &ast.SelectExpression{Token: tok, Operand: left, Field: name, Optional: optional}
}

// parseIndexExpression handles x[i] and x[?i].
func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	optional := false
	if p.peekTokenIs(token.QUESTION) {
		p.nextToken()
		optional = true
	}
	p.nextToken()
	index := p.parseExpression(LOWEST)
	if index == nil || !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return &ast.IndexExpression{Token: tok, Operand: left, Index: index, Optional: optional}
}

// parseListLiteral parses [a, ?b, c,].
func (p *Parser) parseListLiteral() ast.Expression {
	list := &ast.ListLiteral{Token: p.curToken, Elements: []ast.Expression{}}
	for !p.peekTokenIs(token.RBRACKET) {
		p.nextToken()
		if p.curTokenIs(token.QUESTION) {
			list.OptionalIndices = append(list.OptionalIndices, len(list.Elements))
			p.nextToken()
		}
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		list.Elements = append(list.Elements, elem)
		if !p.peekTokenIs(token.RBRACKET) && !p.expectPeek(token.COMMA) {
			return nil
		}
	}
	p.nextToken()
	return list
}

// parseMapLiteral parses {k: v, ?k2: v2,}.
func (p *Parser) parseMapLiteral() ast.Expression {
	m := &ast.MapLiteral{Token: p.curToken, Entries: []*ast.MapEntry{}}
	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		entry := &ast.MapEntry{Token: p.curToken}
		if p.curTokenIs(token.QUESTION) {
			entry.Optional = true
			p.nextToken()
		}
		entry.Key = p.parseExpression(LOWEST)
		if entry.Key == nil || !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		entry.Value = p.parseExpression(LOWEST)
		if entry.Value == nil {
			return nil
		}
		m.Entries = append(m.Entries, entry)
		if !p.peekTokenIs(token.RBRACE) && !p.expectPeek(token.COMMA) {
			return nil
		}
	}
	p.nextToken()
	return m
}

// parseStructLiteral parses pkg.Type{field: value, ?opt: value}. The
// operand must be a (possibly dotted) type name.
func (p *Parser) parseStructLiteral(left ast.Expression) ast.Expression {
	typeName, ok := qualifiedName(left)
	if !ok {
		p.addError(diagnostics.ErrP001, p.curToken, "unexpected '{': message construction requires a type name")
		return nil
	}
	s := &ast.StructLiteral{Token: left.GetToken(), TypeName: typeName, Fields: []*ast.FieldInitializer{}}
	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		field := &ast.FieldInitializer{Token: p.curToken}
		if p.curTokenIs(token.QUESTION) {
			field.Optional = true
			p.nextToken()
			field.Token = p.curToken
		}
		if !p.curTokenIs(token.IDENT) {
			p.addError(diagnostics.ErrP001, p.curToken, "expected field name, got %s", describe(p.curToken))
			return nil
		}
		field.Name = p.curToken.Lexeme
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		field.Value = p.parseExpression(LOWEST)
		if field.Value == nil {
			return nil
		}
		s.Fields = append(s.Fields, field)
		if !p.peekTokenIs(token.RBRACE) && !p.expectPeek(token.COMMA) {
			return nil
		}
	}
	p.nextToken()
	return s
}

// parseExpressionList parses comma-separated expressions up to end. The
// current token is the opening delimiter. A nil result means an error was
// reported.
func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	for {
		p.nextToken()
		exp := p.parseExpression(LOWEST)
		if exp == nil {
			return nil
		}
		list = append(list, exp)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

// qualifiedName flattens a.b.c into "a.b.c".
func qualifiedName(e ast.Expression) (string, bool) {
	switch n := e.(type) {
	case *ast.Identifier:
		return n.Name, true
	case *ast.SelectExpression:
		if n.TestOnly || n.Optional {
			return "", false
		}
		prefix, ok := qualifiedName(n.Operand)
		if !ok {
			return "", false
		}
		return prefix + "." + n.Field, true
	}
	return "", false
}
