package backend

import (
	"context"
	"errors"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/token"
)

// ExecutionProcessor implements pipeline.Processor to run a Backend
type ExecutionProcessor struct {
	Backend    Backend
	Activation activation.Activation
	Context    context.Context
}

// NewExecutionProcessor creates a new pipeline step for the given backend
func NewExecutionProcessor(b Backend, act activation.Activation) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b, Activation: act, Context: context.Background()}
}

// Process stores the result in ctx.Result. Error values are results, not
// diagnostics; only a failed evaluation is reported as one.
func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.AstRoot == nil || len(ctx.Errors) > 0 {
		return ctx
	}
	runCtx := p.Context
	if runCtx == nil {
		runCtx = context.Background()
	}

	result, err := p.Backend.Run(runCtx, ctx, p.Activation)
	if err != nil {
		p.handleError(ctx, err)
		return ctx
	}
	ctx.Result = result
	return ctx
}

func (p *ExecutionProcessor) handleError(ctx *pipeline.PipelineContext, err error) {
	var list diagnostics.List
	if errors.As(err, &list) {
		ctx.Errors = append(ctx.Errors, list...)
		return
	}
	ctx.Errors = append(ctx.Errors, diagnostics.NewError(
		diagnostics.ErrR001,
		token.Token{},
		"%s: %v", p.Backend.Name(), err,
	))
}
