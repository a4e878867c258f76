package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/expreval/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) peekAt(offset int) byte {
	if l.position+offset >= len(l.input) {
		return 0
	}
	return l.input[l.position+offset]
}

// Tokenize scans the whole input. The returned slice always ends with EOF.
func Tokenize(input string) []token.Token {
	l := New(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	line, col := l.line, l.column
	two := func(tt token.TokenType) token.Token {
		lexeme := string(l.ch) + string(l.peekChar())
		l.readChar()
		l.readChar()
		return token.Token{Type: tt, Lexeme: lexeme, Line: line, Column: col}
	}
	one := func(tt token.TokenType) token.Token {
		tok := newToken(tt, l.ch, line, col)
		l.readChar()
		return tok
	}

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Line: line, Column: col}
	case '=':
		if l.peekChar() == '=' {
			return two(token.EQ)
		}
		return l.illegal(line, col, "unexpected '=' (did you mean '=='?)")
	case '!':
		if l.peekChar() == '=' {
			return two(token.NOT_EQ)
		}
		return one(token.BANG)
	case '<':
		if l.peekChar() == '=' {
			return two(token.LTE)
		}
		return one(token.LT)
	case '>':
		if l.peekChar() == '=' {
			return two(token.GTE)
		}
		return one(token.GT)
	case '&':
		if l.peekChar() == '&' {
			return two(token.AND)
		}
		return l.illegal(line, col, "unexpected '&'")
	case '|':
		if l.peekChar() == '|' {
			return two(token.OR)
		}
		return l.illegal(line, col, "unexpected '|'")
	case '+':
		return one(token.PLUS)
	case '-':
		return one(token.MINUS)
	case '*':
		return one(token.ASTERISK)
	case '/':
		return one(token.SLASH)
	case '%':
		return one(token.PERCENT)
	case '?':
		return one(token.QUESTION)
	case ':':
		return one(token.COLON)
	case ',':
		return one(token.COMMA)
	case '(':
		return one(token.LPAREN)
	case ')':
		return one(token.RPAREN)
	case '[':
		return one(token.LBRACKET)
	case ']':
		return one(token.RBRACKET)
	case '{':
		return one(token.LBRACE)
	case '}':
		return one(token.RBRACE)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(line, col)
		}
		return one(token.DOT)
	case '"', '\'':
		return l.readString(line, col, false, false)
	}

	if isLetter(l.ch) {
		if prefix, ok := l.stringPrefix(); ok {
			raw := strings.ContainsAny(prefix, "rR")
			bytes := strings.ContainsAny(prefix, "bB")
			for range prefix {
				l.readChar()
			}
			return l.readString(line, col, raw, bytes)
		}
		start := l.position
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		ident := l.input[start:l.position]
		return token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Literal: ident, Line: line, Column: col}
	}
	if isDigit(l.ch) {
		return l.readNumber(line, col)
	}

	ch := l.ch
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Lexeme: string(ch), Literal: fmt.Sprintf("unexpected character %q", ch), Line: line, Column: col}
}

func (l *Lexer) illegal(line, col int, msg string) token.Token {
	ch := l.ch
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Lexeme: string(ch), Literal: msg, Line: line, Column: col}
}

// stringPrefix detects r"", b"", rb"" and br"" literal prefixes.
func (l *Lexer) stringPrefix() (string, bool) {
	for n := 1; n <= 2; n++ {
		q := l.peekAt(n)
		if q != '"' && q != '\'' {
			continue
		}
		prefix := l.input[l.position : l.position+n]
		switch strings.ToLower(prefix) {
		case "r", "b", "rb", "br":
			return prefix, true
		}
		return "", false
	}
	return "", false
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

func (l *Lexer) readNumber(line, col int) token.Token {
	start := l.position
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		digitsStart := l.position
		for isHexDigit(l.ch) {
			l.readChar()
		}
		digits := l.input[digitsStart:l.position]
		return l.finishInteger(line, col, start, digits, 16)
	}

	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	if isFloat {
		lexeme := l.input[start:l.position]
		f, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "invalid float literal: " + lexeme, Line: line, Column: col}
		}
		return token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: f, Line: line, Column: col}
	}
	return l.finishInteger(line, col, start, l.input[start:l.position], 10)
}

// finishInteger parses the magnitude of an integer literal. INT tokens carry a
// uint64 magnitude so the parser can fold a leading minus into MinInt64.
func (l *Lexer) finishInteger(line, col, start int, digits string, base int) token.Token {
	unsigned := false
	if l.ch == 'u' || l.ch == 'U' {
		unsigned = true
		l.readChar()
	}
	lexeme := l.input[start:l.position]
	n, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "integer literal out of range: " + lexeme, Line: line, Column: col}
	}
	if unsigned {
		return token.Token{Type: token.UINT, Lexeme: lexeme, Literal: n, Line: line, Column: col}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: n, Line: line, Column: col}
}

func (l *Lexer) readString(line, col int, raw, bytes bool) token.Token {
	quote := l.ch
	start := l.position
	triple := l.peekAt(1) == byte(quote) && l.peekAt(2) == byte(quote)
	if triple {
		l.readChar()
		l.readChar()
	}
	l.readChar()

	var sb strings.Builder
	for {
		if l.ch == 0 {
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:min(l.position, len(l.input))], Literal: "unterminated string literal", Line: line, Column: col}
		}
		if l.ch == quote {
			if !triple {
				l.readChar()
				break
			}
			if l.peekAt(1) == byte(quote) && l.peekAt(2) == byte(quote) {
				l.readChar()
				l.readChar()
				l.readChar()
				break
			}
		}
		if l.ch == '\n' && !triple {
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:l.position], Literal: "newline in string literal", Line: line, Column: col}
		}
		if l.ch == '\\' && !raw {
			if err := l.readEscape(&sb, bytes); err != nil {
				return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:l.position], Literal: err.Error(), Line: line, Column: col}
			}
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}

	lexeme := l.input[start:l.position]
	if bytes {
		return token.Token{Type: token.BYTES, Lexeme: lexeme, Literal: []byte(sb.String()), Line: line, Column: col}
	}
	if !utf8.ValidString(sb.String()) {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "invalid UTF-8 in string literal", Line: line, Column: col}
	}
	return token.Token{Type: token.STRING, Lexeme: lexeme, Literal: sb.String(), Line: line, Column: col}
}

// readEscape consumes one escape sequence starting at the backslash. Octal and
// \x escapes produce raw bytes, which only bytes literals may carry.
func (l *Lexer) readEscape(sb *strings.Builder, bytes bool) error {
	l.readChar() // consume '\'
	c := l.ch
	l.readChar()
	switch c {
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'v':
		sb.WriteByte('\v')
	case '\\', '\'', '"', '`', '?':
		sb.WriteRune(c)
	case 'x', 'X':
		v, err := l.readHex(2)
		if err != nil {
			return err
		}
		if bytes {
			sb.WriteByte(byte(v))
		} else {
			sb.WriteRune(rune(v))
		}
	case 'u':
		v, err := l.readHex(4)
		if err != nil {
			return err
		}
		sb.WriteRune(rune(v))
	case 'U':
		v, err := l.readHex(8)
		if err != nil {
			return err
		}
		if v > unicode.MaxRune {
			return fmt.Errorf("invalid unicode escape \\U%08x", v)
		}
		sb.WriteRune(rune(v))
	case '0', '1', '2', '3':
		v := uint32(c - '0')
		for i := 0; i < 2; i++ {
			if l.ch < '0' || l.ch > '7' {
				return fmt.Errorf("invalid octal escape")
			}
			v = v*8 + uint32(l.ch-'0')
			l.readChar()
		}
		if bytes {
			sb.WriteByte(byte(v))
		} else {
			sb.WriteRune(rune(v))
		}
	default:
		return fmt.Errorf("invalid escape sequence \\%c", c)
	}
	return nil
}

func (l *Lexer) readHex(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		if !isHexDigit(l.ch) {
			return 0, fmt.Errorf("invalid hex escape")
		}
		d, _ := strconv.ParseUint(string(l.ch), 16, 8)
		v = v*16 + uint32(d)
		l.readChar()
	}
	return v, nil
}

func newToken(tokenType token.TokenType, ch rune, line, col int) token.Token {
	return token.Token{Type: tokenType, Lexeme: string(ch), Line: line, Column: col}
}

func isLetter(ch rune) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}
