package planner

import (
	"errors"

	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/token"
)

// PlannerProcessor is the pipeline stage turning ctx.AstRoot into
// ctx.Program.
type PlannerProcessor struct {
	Planner *Planner
}

func (pp *PlannerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil {
		ctx.Errors = append(ctx.Errors, diagnostics.NewError(diagnostics.ErrC003, token.Token{}, "planner: no expression to plan"))
		return ctx
	}
	prog, err := pp.Planner.Plan(ctx.AstRoot)
	if err != nil {
		var list diagnostics.List
		if errors.As(err, &list) {
			for _, d := range list {
				d.File = ctx.FilePath
			}
			ctx.Errors = append(ctx.Errors, list...)
		} else {
			ctx.Errors = append(ctx.Errors, diagnostics.NewError(diagnostics.ErrC003, token.Token{}, "%v", err))
		}
		return ctx
	}
	ctx.Program = prog
	return ctx
}
