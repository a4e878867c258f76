package attribute

import (
	"fmt"
	"strconv"
	"strings"
)

// MatchType is the outcome of matching an attribute against a pattern.
type MatchType int

const (
	MatchNone MatchType = iota
	// MatchPartial: the attribute is a strict prefix of the pattern, so some
	// descendant of the value is covered.
	MatchPartial
	// MatchFull: the pattern covers the attribute itself.
	MatchFull
)

// QualifierPattern matches one qualifier exactly or any qualifier (wildcard).
type QualifierPattern struct {
	wildcard bool
	q        Qualifier
}

func Wildcard() QualifierPattern            { return QualifierPattern{wildcard: true} }
func Exact(q Qualifier) QualifierPattern    { return QualifierPattern{q: q} }
func (p QualifierPattern) IsWildcard() bool { return p.wildcard }
func (p QualifierPattern) Matches(q Qualifier) bool {
	return p.wildcard || p.q.Equal(q)
}

func (p QualifierPattern) String() string {
	if p.wildcard {
		return ".*"
	}
	return p.q.String()
}

// Pattern selects a family of attributes, e.g. request.headers.* .
type Pattern struct {
	variable   string
	qualifiers []QualifierPattern
}

func NewPattern(variable string, qualifiers ...QualifierPattern) Pattern {
	qs := make([]QualifierPattern, len(qualifiers))
	copy(qs, qualifiers)
	return Pattern{variable: variable, qualifiers: qs}
}

func (p Pattern) Variable() string { return p.variable }

func (p Pattern) Match(a Attribute) MatchType {
	if a.variable != p.variable {
		return MatchNone
	}
	n := len(p.qualifiers)
	if len(a.qualifiers) < n {
		n = len(a.qualifiers)
	}
	for i := 0; i < n; i++ {
		if !p.qualifiers[i].Matches(a.qualifiers[i]) {
			return MatchNone
		}
	}
	if len(a.qualifiers) >= len(p.qualifiers) {
		return MatchFull
	}
	return MatchPartial
}

func (p Pattern) String() string {
	var sb strings.Builder
	sb.WriteString(p.variable)
	for _, q := range p.qualifiers {
		sb.WriteString(q.String())
	}
	return sb.String()
}

// ParsePattern reads the textual form used in configuration files:
//
//	x.y            field path
//	x["k"][0][1u]  string, int and uint keys
//	x[true]        bool key
//	x.*  x[*]      wildcard qualifier
func ParsePattern(s string) (Pattern, error) {
	ps := &patternScanner{src: s}
	root := ps.ident()
	if root == "" {
		return Pattern{}, fmt.Errorf("pattern %q: expected variable name", s)
	}
	p := Pattern{variable: root}
	for !ps.done() {
		switch ps.peek() {
		case '.':
			ps.pos++
			if ps.peek() == '*' {
				ps.pos++
				p.qualifiers = append(p.qualifiers, Wildcard())
				continue
			}
			name := ps.ident()
			if name == "" {
				return Pattern{}, fmt.Errorf("pattern %q: expected field name at offset %d", s, ps.pos)
			}
			p.qualifiers = append(p.qualifiers, Exact(Field(name)))
		case '[':
			ps.pos++
			qp, err := ps.key()
			if err != nil {
				return Pattern{}, fmt.Errorf("pattern %q: %w", s, err)
			}
			if ps.peek() != ']' {
				return Pattern{}, fmt.Errorf("pattern %q: expected ']' at offset %d", s, ps.pos)
			}
			ps.pos++
			p.qualifiers = append(p.qualifiers, qp)
		default:
			return Pattern{}, fmt.Errorf("pattern %q: unexpected %q at offset %d", s, ps.peek(), ps.pos)
		}
	}
	return p, nil
}

// MustParsePattern is ParsePattern for static patterns; it panics on error.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePatterns parses a list of pattern strings.
func ParsePatterns(ss []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(ss))
	for _, s := range ss {
		p, err := ParsePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type patternScanner struct {
	src string
	pos int
}

func (ps *patternScanner) done() bool { return ps.pos >= len(ps.src) }

func (ps *patternScanner) peek() byte {
	if ps.done() {
		return 0
	}
	return ps.src[ps.pos]
}

func (ps *patternScanner) ident() string {
	start := ps.pos
	for !ps.done() {
		c := ps.src[ps.pos]
		if c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || (ps.pos > start && '0' <= c && c <= '9') {
			ps.pos++
			continue
		}
		break
	}
	return ps.src[start:ps.pos]
}

func (ps *patternScanner) key() (QualifierPattern, error) {
	switch c := ps.peek(); {
	case c == '*':
		ps.pos++
		return Wildcard(), nil
	case c == '"' || c == '\'':
		end := strings.IndexByte(ps.src[ps.pos+1:], c)
		if end < 0 {
			return QualifierPattern{}, fmt.Errorf("unterminated string key")
		}
		s := ps.src[ps.pos+1 : ps.pos+1+end]
		ps.pos += end + 2
		return Exact(StringKey(s)), nil
	}
	end := strings.IndexByte(ps.src[ps.pos:], ']')
	if end < 0 {
		return QualifierPattern{}, fmt.Errorf("expected ']'")
	}
	lit := ps.src[ps.pos : ps.pos+end]
	ps.pos += end
	switch lit {
	case "true":
		return Exact(BoolKey(true)), nil
	case "false":
		return Exact(BoolKey(false)), nil
	}
	if strings.HasSuffix(lit, "u") {
		u, err := strconv.ParseUint(strings.TrimSuffix(lit, "u"), 10, 64)
		if err != nil {
			return QualifierPattern{}, fmt.Errorf("invalid uint key %q", lit)
		}
		return Exact(UintKey(u)), nil
	}
	i, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return QualifierPattern{}, fmt.Errorf("invalid key %q", lit)
	}
	return Exact(IntKey(i)), nil
}
