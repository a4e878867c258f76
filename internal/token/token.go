package token

import "fmt"

type TokenType string

// Token is a single lexical unit produced by the lexer.
type Token struct {
	Type    TokenType
	Lexeme  string      // source text of the token
	Literal interface{} // decoded literal (int64, uint64, float64, string, []byte) or nil
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT  TokenType = "IDENT"
	INT    TokenType = "INT"
	UINT   TokenType = "UINT"
	FLOAT  TokenType = "FLOAT"
	STRING TokenType = "STRING"
	BYTES  TokenType = "BYTES"

	// Keywords
	TRUE  TokenType = "TRUE"
	FALSE TokenType = "FALSE"
	NULL  TokenType = "NULL"
	IN    TokenType = "IN"

	// Operators
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	PERCENT  TokenType = "%"
	BANG     TokenType = "!"
	EQ       TokenType = "=="
	NOT_EQ   TokenType = "!="
	LT       TokenType = "<"
	LTE      TokenType = "<="
	GT       TokenType = ">"
	GTE      TokenType = ">="
	AND      TokenType = "&&"
	OR       TokenType = "||"
	QUESTION TokenType = "?"
	COLON    TokenType = ":"

	// Delimiters
	COMMA    TokenType = ","
	DOT      TokenType = "."
	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"
	LBRACE   TokenType = "{"
	RBRACE   TokenType = "}"
)

var keywords = map[string]TokenType{
	"true":  TRUE,
	"false": FALSE,
	"null":  NULL,
	"in":    IN,
}

// reserved words may not be used as identifiers.
var reserved = map[string]bool{
	"as": true, "break": true, "const": true, "continue": true, "else": true,
	"for": true, "function": true, "if": true, "import": true, "let": true,
	"loop": true, "package": true, "namespace": true, "return": true,
	"var": true, "void": true, "while": true,
}

// LookupIdent classifies an identifier lexeme as a keyword or a plain identifier.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsReserved reports whether ident is reserved for future use.
func IsReserved(ident string) bool {
	return reserved[ident]
}
