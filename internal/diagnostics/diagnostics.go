// Package diagnostics carries positioned front-end errors.
package diagnostics

import (
	"fmt"

	"github.com/funvibe/expreval/internal/token"
)

type ErrorCode string

const (
	// lexer
	ErrL001 ErrorCode = "L001" // illegal character or malformed literal

	// parser
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // no prefix parse function
	ErrP003 ErrorCode = "P003" // integer literal out of range
	ErrP004 ErrorCode = "P004" // invalid macro call
	ErrP005 ErrorCode = "P005" // reserved identifier
	ErrP006 ErrorCode = "P006" // recursion limit

	// planner
	ErrC001 ErrorCode = "C001" // unknown message type
	ErrC002 ErrorCode = "C002" // unknown field
	ErrC003 ErrorCode = "C003" // unsupported construct
	ErrC004 ErrorCode = "C004" // undeclared function

	// runtime
	ErrR001 ErrorCode = "R001" // evaluation aborted
)

// Error is a diagnostic tied to a source position.
type Error struct {
	Code    ErrorCode
	Token   token.Token
	Message string
	File    string
}

func NewError(code ErrorCode, tok token.Token, format string, args ...interface{}) *Error {
	return &Error{Code: code, Token: tok, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Token.Line, e.Token.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", e.Token.Line, e.Token.Column, e.Code, e.Message)
}

// List joins several diagnostics into one Go error.
type List []*Error

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
}

// Err returns nil for an empty list.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
