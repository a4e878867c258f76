package attribute

import (
	"fmt"
	"strconv"
)

// QualifierKind distinguishes the key types a qualifier may carry.
type QualifierKind int

const (
	StringQualifier QualifierKind = iota // field name or string map key
	IntQualifier
	UintQualifier
	BoolQualifier
)

// Qualifier is one step of an attribute path: a field selection or a map/list key.
// Field names and string keys share a kind, so x.y and x["y"] name the same path.
type Qualifier struct {
	kind QualifierKind
	str  string
	i    int64
	u    uint64
	b    bool
}

func Field(name string) Qualifier  { return Qualifier{kind: StringQualifier, str: name} }
func StringKey(s string) Qualifier { return Qualifier{kind: StringQualifier, str: s} }
func IntKey(i int64) Qualifier     { return Qualifier{kind: IntQualifier, i: i} }
func UintKey(u uint64) Qualifier   { return Qualifier{kind: UintQualifier, u: u} }
func BoolKey(b bool) Qualifier     { return Qualifier{kind: BoolQualifier, b: b} }

func (q Qualifier) Kind() QualifierKind { return q.kind }

// StringValue returns the field name or string key.
func (q Qualifier) StringValue() (string, bool) { return q.str, q.kind == StringQualifier }
func (q Qualifier) IntValue() (int64, bool)     { return q.i, q.kind == IntQualifier }
func (q Qualifier) UintValue() (uint64, bool)   { return q.u, q.kind == UintQualifier }
func (q Qualifier) BoolValue() (bool, bool)     { return q.b, q.kind == BoolQualifier }

func (q Qualifier) Equal(other Qualifier) bool {
	return q == other
}

func (q Qualifier) String() string {
	switch q.kind {
	case IntQualifier:
		return "[" + strconv.FormatInt(q.i, 10) + "]"
	case UintQualifier:
		return "[" + strconv.FormatUint(q.u, 10) + "u]"
	case BoolQualifier:
		return "[" + strconv.FormatBool(q.b) + "]"
	}
	if isIdent(q.str) {
		return "." + q.str
	}
	return fmt.Sprintf("[%q]", q.str)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		letter := c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
		if !letter && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return true
}
