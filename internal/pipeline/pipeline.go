// Package pipeline chains the front-end stages (lexer, parser, planner) over
// a shared context.
package pipeline

import (
	"github.com/funvibe/expreval/internal/ast"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/token"
	"github.com/funvibe/expreval/internal/values"
)

// Processor is one stage of the pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx *PipelineContext) *PipelineContext

func (f ProcessorFunc) Process(ctx *PipelineContext) *PipelineContext { return f(ctx) }

// PipelineContext is the state threaded through the stages.
type PipelineContext struct {
	SourceCode string
	FilePath   string
	Tokens     []token.Token
	AstRoot    ast.Expression
	Program    *eval.Program
	Result     values.Value
	Errors     []*diagnostics.Error
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{SourceCode: source}
}

// Err returns the collected diagnostics as a single error, or nil.
func (ctx *PipelineContext) Err() error {
	return diagnostics.List(ctx.Errors).Err()
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. A stage that reports errors stops the stages
// after it: a tree with parse errors is never planned.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		if len(ctx.Errors) > 0 {
			break
		}
	}
	return ctx
}
