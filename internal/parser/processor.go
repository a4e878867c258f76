package parser

import (
	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/lexer"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Tokens == nil {
		err := diagnostics.NewError(diagnostics.ErrP001, token.Token{}, "parser: token stream is nil")
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}

	parser := New(ctx.Tokens, ctx)
	ctx.AstRoot = parser.ParseExpression()
	return ctx
}

// Parse runs the lexer and parser over source and returns the expanded tree.
func Parse(source string) (ast.Expression, error) {
	ctx := pipeline.New(&lexer.LexerProcessor{}, &ParserProcessor{}).Run(pipeline.NewPipelineContext(source))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ctx.AstRoot, nil
}
