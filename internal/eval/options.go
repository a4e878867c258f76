package eval

import "github.com/funvibe/expreval/internal/attribute"

// Options controls one evaluation.
type Options struct {
	// EnableUnknowns turns attributes matching UnknownPatterns into unknown
	// values.
	EnableUnknowns  bool
	UnknownPatterns []attribute.Pattern

	// EnableMissingAttributeErrors turns attributes matching
	// MissingAttributePatterns into missing_attribute errors.
	EnableMissingAttributeErrors bool
	MissingAttributePatterns     []attribute.Pattern

	// ShortCircuiting lets && and || skip their right operand, and lets a
	// comprehension stop once its condition is false.
	ShortCircuiting bool

	// ComprehensionMaxIterations bounds the iterations of all
	// comprehensions in one evaluation. Zero means no limit.
	ComprehensionMaxIterations int

	// MaxCallDepth bounds nested subexpression calls. Zero means
	// DefaultMaxCallDepth.
	MaxCallDepth int
}

const DefaultMaxCallDepth = 64

// DefaultOptions enables short-circuiting and nothing else.
func DefaultOptions() Options {
	return Options{ShortCircuiting: true, MaxCallDepth: DefaultMaxCallDepth}
}
