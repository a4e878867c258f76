package lexer

import (
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.Tokens = Tokenize(ctx.SourceCode)
	for _, tok := range ctx.Tokens {
		if tok.Type != token.ILLEGAL {
			continue
		}
		msg, _ := tok.Literal.(string)
		err := diagnostics.NewError(diagnostics.ErrL001, tok, "%s", msg)
		err.File = ctx.FilePath
		ctx.Errors = append(ctx.Errors, err)
	}
	return ctx
}
