package diagnostics

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/funvibe/expreval/internal/token"
)

func TestErrorFormat(t *testing.T) {
	tok := token.Token{Type: token.IDENT, Lexeme: "x", Line: 2, Column: 5}
	err := NewError(ErrP001, tok, "unexpected %s", "x")
	qt.Assert(t, qt.Equals(err.Error(), "2:5: P001: unexpected x"))

	err.File = "rule.expr"
	qt.Assert(t, qt.Equals(err.Error(), "rule.expr:2:5: P001: unexpected x"))
}

func TestListErr(t *testing.T) {
	var l List
	qt.Assert(t, qt.IsNil(l.Err()))

	l = append(l, NewError(ErrP001, token.Token{Line: 1, Column: 1}, "a"), NewError(ErrP002, token.Token{Line: 1, Column: 3}, "b"))
	qt.Assert(t, qt.ErrorMatches(l.Err(), `1:1: P001: a \(and 1 more errors\)`))
}
