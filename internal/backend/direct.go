package backend

import "github.com/funvibe/expreval/internal/planner"

// DirectBackend evaluates the whole expression as one recursive tree.
type DirectBackend struct {
	runner
}

func NewDirect(cfg Config) *DirectBackend {
	return &DirectBackend{runner: newRunner(cfg, planner.DirectMode)}
}

// Name returns the backend name
func (b *DirectBackend) Name() string {
	return "direct"
}
