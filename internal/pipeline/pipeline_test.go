package pipeline

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/funvibe/expreval/internal/diagnostics"
	"github.com/funvibe/expreval/internal/token"
)

func TestRunStopsAfterFailingStage(t *testing.T) {
	var ran []string
	stage := func(name string, fail bool) Processor {
		return ProcessorFunc(func(ctx *PipelineContext) *PipelineContext {
			ran = append(ran, name)
			if fail {
				ctx.Errors = append(ctx.Errors, diagnostics.NewError(diagnostics.ErrP001, token.Token{}, "%s failed", name))
			}
			return ctx
		})
	}

	ctx := New(stage("lex", false), stage("parse", true), stage("plan", false)).Run(NewPipelineContext("1"))
	qt.Assert(t, qt.DeepEquals(ran, []string{"lex", "parse"}))
	qt.Assert(t, qt.ErrorMatches(ctx.Err(), `.*parse failed`))
}
