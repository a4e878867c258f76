// Package attribute describes where a value came from: a root variable followed
// by field and key qualifiers. Trails record the path during evaluation and
// patterns declare which paths are unknown or required.
package attribute

import "strings"

// Attribute is a materialized path such as request.headers["x-id"].
type Attribute struct {
	variable   string
	qualifiers []Qualifier
}

func New(variable string, qualifiers ...Qualifier) Attribute {
	qs := make([]Qualifier, len(qualifiers))
	copy(qs, qualifiers)
	return Attribute{variable: variable, qualifiers: qs}
}

func (a Attribute) Variable() string { return a.variable }

// Qualifiers returns a copy of the qualifier path.
func (a Attribute) Qualifiers() []Qualifier {
	qs := make([]Qualifier, len(a.qualifiers))
	copy(qs, a.qualifiers)
	return qs
}

func (a Attribute) Len() int { return len(a.qualifiers) }

func (a Attribute) IsEmpty() bool { return a.variable == "" }

func (a Attribute) Equal(other Attribute) bool {
	if a.variable != other.variable || len(a.qualifiers) != len(other.qualifiers) {
		return false
	}
	for i, q := range a.qualifiers {
		if !q.Equal(other.qualifiers[i]) {
			return false
		}
	}
	return true
}

func (a Attribute) String() string {
	var sb strings.Builder
	sb.WriteString(a.variable)
	for _, q := range a.qualifiers {
		sb.WriteString(q.String())
	}
	return sb.String()
}
