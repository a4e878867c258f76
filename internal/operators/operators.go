// Package operators names the functions that operator syntax desugars into.
package operators

const (
	LogicalAnd       = "_&&_"
	LogicalOr        = "_||_"
	LogicalNot       = "!_"
	Conditional      = "_?_:_"
	Negate           = "-_"
	Equals           = "_==_"
	NotEquals        = "_!=_"
	Less             = "_<_"
	LessEquals       = "_<=_"
	Greater          = "_>_"
	GreaterEquals    = "_>=_"
	Add              = "_+_"
	Subtract         = "_-_"
	Multiply         = "_*_"
	Divide           = "_/_"
	Modulo           = "_%_"
	In               = "@in"
	NotStrictlyFalse = "@not_strictly_false"
)

var display = map[string]string{
	LogicalAnd:    "&&",
	LogicalOr:     "||",
	LogicalNot:    "!",
	Negate:        "-",
	Equals:        "==",
	NotEquals:     "!=",
	Less:          "<",
	LessEquals:    "<=",
	Greater:       ">",
	GreaterEquals: ">=",
	Add:           "+",
	Subtract:      "-",
	Multiply:      "*",
	Divide:        "/",
	Modulo:        "%",
	In:            "in",
}

// Display returns the source spelling of an operator function, if it has one.
func Display(function string) (string, bool) {
	op, ok := display[function]
	return op, ok
}

// Precedence of binary operators as written in source; higher binds tighter.
func Precedence(function string) int {
	switch function {
	case Conditional:
		return 1
	case LogicalOr:
		return 2
	case LogicalAnd:
		return 3
	case Equals, NotEquals, Less, LessEquals, Greater, GreaterEquals, In:
		return 4
	case Add, Subtract:
		return 5
	case Multiply, Divide, Modulo:
		return 6
	case LogicalNot, Negate:
		return 7
	}
	return 0
}
