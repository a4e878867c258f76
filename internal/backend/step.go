package backend

import "github.com/funvibe/expreval/internal/planner"

// StepBackend runs flat step programs on the value stack.
type StepBackend struct {
	runner
}

func NewStep(cfg Config) *StepBackend {
	return &StepBackend{runner: newRunner(cfg, planner.StepMode)}
}

// Name returns the backend name
func (b *StepBackend) Name() string {
	return "step"
}
