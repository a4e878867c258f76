// Package backend provides an interface for the execution strategies. This
// allows switching between the step interpreter, the direct evaluator and
// the hybrid of both without touching the front end.
package backend

import (
	"context"
	"fmt"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/eval"
	"github.com/funvibe/expreval/internal/functions"
	"github.com/funvibe/expreval/internal/pipeline"
	"github.com/funvibe/expreval/internal/planner"
	"github.com/funvibe/expreval/internal/values"
)

// Backend is the interface for execution backends
type Backend interface {
	// Run evaluates the program in pc against act, planning pc.AstRoot
	// first when pc.Program is nil.
	Run(ctx context.Context, pc *pipeline.PipelineContext, act activation.Activation) (values.Value, error)

	// Name returns the backend name for display
	Name() string

	// Planner returns the planner producing this backend's programs.
	Planner() *planner.Planner

	// Disassemble returns the step listing for debugging
	Disassemble(pc *pipeline.PipelineContext) (string, error)
}

// Config is shared by all backends.
type Config struct {
	Functions *functions.Registry
	Types     planner.TypeProvider
	Options   eval.Options
}

func (c Config) functions() *functions.Registry {
	if c.Functions == nil {
		return functions.Standard()
	}
	return c.Functions
}

// New returns the backend called name: step, direct or hybrid.
func New(name string, cfg Config) (Backend, error) {
	mode, err := planner.ParseMode(name)
	if err != nil {
		return nil, err
	}
	switch mode {
	case planner.DirectMode:
		return NewDirect(cfg), nil
	case planner.HybridMode:
		return NewHybrid(cfg), nil
	}
	return NewStep(cfg), nil
}

// Names lists the available backends.
func Names() []string {
	return []string{planner.StepMode.String(), planner.DirectMode.String(), planner.HybridMode.String()}
}

// runner is the part every backend shares: plan once, evaluate with the
// configured options.
type runner struct {
	planner *planner.Planner
	options eval.Options
}

func newRunner(cfg Config, mode planner.Mode) runner {
	return runner{planner: planner.New(cfg.functions(), cfg.Types, mode), options: cfg.Options}
}

func (r runner) Planner() *planner.Planner { return r.planner }

func (r runner) program(pc *pipeline.PipelineContext) (*eval.Program, error) {
	if pc.Program != nil {
		return pc.Program, nil
	}
	if pc.AstRoot == nil {
		return nil, fmt.Errorf("no expression to evaluate")
	}
	if err := pc.Err(); err != nil {
		return nil, err
	}
	prog, err := r.planner.Plan(pc.AstRoot)
	if err != nil {
		return nil, err
	}
	pc.Program = prog
	return prog, nil
}

func (r runner) Run(ctx context.Context, pc *pipeline.PipelineContext, act activation.Activation) (values.Value, error) {
	prog, err := r.program(pc)
	if err != nil {
		return nil, err
	}
	if act == nil {
		act = activation.Empty()
	}
	return prog.Eval(ctx, act, r.options)
}

func (r runner) Disassemble(pc *pipeline.PipelineContext) (string, error) {
	prog, err := r.program(pc)
	if err != nil {
		return "", fmt.Errorf("planning error: %w", err)
	}
	return eval.Disassemble(prog, "main"), nil
}
