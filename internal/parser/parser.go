// Package parser turns a token stream into an expanded expression tree.
// It is a Pratt parser; macros (has, all, exists, exists_one, map, filter,
// cel.bind) are expanded while parsing.
package parser

import (
	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/token"
)

// MaxRecursionDepth bounds expression nesting.
const MaxRecursionDepth = 250

const (
	_ int = iota
	LOWEST
	CONDITIONAL // ?:
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	RELATION    // == != < <= > >= in
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x
	MEMBER      // x.y x[y] x{...}
)

var precedences = map[token.TokenType]int{
	token.QUESTION: CONDITIONAL,
	token.OR:       LOGICAL_OR,
	token.AND:      LOGICAL_AND,
	token.EQ:       RELATION,
	token.NOT_EQ:   RELATION,
	token.LT:       RELATION,
	token.LTE:      RELATION,
	token.GT:       RELATION,
	token.GTE:      RELATION,
	token.IN:       RELATION,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.DOT:      MEMBER,
	token.LBRACKET: MEMBER,
	token.LBRACE:   MEMBER,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	tokens []token.Token
	pos    int
	ctx    *pipeline.PipelineContext

	curToken  token.Token
	peekToken token.Token

	depth int

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

// New creates a parser over a token slice that ends with EOF. Errors are
// appended to ctx.Errors.
func New(tokens []token.Token, ctx *pipeline.PipelineContext) *Parser {
	p := &Parser{tokens: tokens, ctx: ctx}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:    p.parseIdentifier,
		token.DOT:      p.parseRootIdentifier,
		token.INT:      p.parseIntegerLiteral,
		token.UINT:     p.parseUintLiteral,
		token.FLOAT:    p.parseFloatLiteral,
		token.STRING:   p.parseStringLiteral,
		token.BYTES:    p.parseBytesLiteral,
		token.TRUE:     p.parseBoolean,
		token.FALSE:    p.parseBoolean,
		token.NULL:     p.parseNull,
		token.BANG:     p.parsePrefixExpression,
		token.MINUS:    p.parsePrefixExpression,
		token.LPAREN:   p.parseGroupedExpression,
		token.LBRACKET: p.parseListLiteral,
		token.LBRACE:   p.parseMapLiteral,
	}

	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.QUESTION: p.parseConditionalExpression,
		token.OR:       p.parseInfixExpression,
		token.AND:      p.parseInfixExpression,
		token.EQ:       p.parseInfixExpression,
		token.NOT_EQ:   p.parseInfixExpression,
		token.LT:       p.parseInfixExpression,
		token.LTE:      p.parseInfixExpression,
		token.GT:       p.parseInfixExpression,
		token.GTE:      p.parseInfixExpression,
		token.IN:       p.parseInfixExpression,
		token.PLUS:     p.parseInfixExpression,
		token.MINUS:    p.parseInfixExpression,
		token.ASTERISK: p.parseInfixExpression,
		token.SLASH:    p.parseInfixExpression,
		token.PERCENT:  p.parseInfixExpression,
		token.DOT:      p.parseMemberExpression,
		token.LBRACKET: p.parseIndexExpression,
		token.LBRACE:   p.parseStructLiteral,
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.pos < len(p.tokens) {
		p.peekToken = p.tokens[p.pos]
		p.pos++
	} else {
		p.peekToken = token.Token{Type: token.EOF, Line: p.curToken.Line, Column: p.curToken.Column}
	}
}

// ParseExpression parses the whole token stream as one expression.
func (p *Parser) ParseExpression() ast.Expression {
	if p.curTokenIs(token.EOF) {
		p.addError(diagnostics.ErrP001, p.curToken, "empty expression")
		return nil
	}
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if !p.peekTokenIs(token.EOF) {
		p.addError(diagnostics.ErrP001, p.peekToken, "unexpected %s after end of expression", describe(p.peekToken))
		return nil
	}
	return expr
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) addError(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	err := diagnostics.NewError(code, tok, format, args...)
	err.File = p.ctx.FilePath
	p.ctx.Errors = append(p.ctx.Errors, err)
}

func (p *Parser) peekError(t token.TokenType) {
	p.addError(diagnostics.ErrP001, p.peekToken, "expected next token to be %s, got %s instead", t, describe(p.peekToken))
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	p.addError(diagnostics.ErrP002, tok, "unexpected %s", describe(tok))
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.ILLEGAL:
		if msg, ok := tok.Literal.(string); ok {
			return msg
		}
	}
	return "'" + tok.Lexeme + "'"
}
