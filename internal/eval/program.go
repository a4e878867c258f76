// Package eval executes compiled expressions. A Program is a flat list of
// steps driven by a Frame over a value stack; direct nodes evaluate
// subtrees recursively and can be embedded in a program through
// DirectStep. Both paths share one set of operations and produce the same
// values.
package eval

import (
	"context"

	"github.com/funvibe/expreval/internal/activation"
	"github.com/funvibe/expreval/internal/values"
)

// Program is immutable once planned and may be evaluated concurrently.
type Program struct {
	Main           []Step
	Subexpressions [][]Step
	SlotCount      int
}

// Eval runs the program once. Business failures come back as error
// values; a non-nil error means the program is malformed or ctx ended.
func (p *Program) Eval(ctx context.Context, act activation.Activation, opts Options) (values.Value, error) {
	return newFrame(ctx, p, act, opts).run()
}
