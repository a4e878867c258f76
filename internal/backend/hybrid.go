package backend

import "github.com/funvibe/expreval/internal/planner"

// HybridBackend runs step programs whose loop-free subtrees are direct
// nodes.
type HybridBackend struct {
	runner
}

func NewHybrid(cfg Config) *HybridBackend {
	return &HybridBackend{runner: newRunner(cfg, planner.HybridMode)}
}

func (b *HybridBackend) Name() string {
	return "hybrid"
}
