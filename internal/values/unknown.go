package values

import (
	"strings"

	"github.com/funvibe/expreval/internal/attribute"
)

// Unknown is the aggregate of attribute trails whose values could not be
// determined. Attributes are kept in first-seen order and deduplicated by
// exact equality only.
type Unknown struct {
	attrs []attribute.Attribute
}

func NewUnknown(attrs ...attribute.Attribute) *Unknown {
	u := &Unknown{}
	u.add(attrs...)
	return u
}

func (u *Unknown) add(attrs ...attribute.Attribute) {
outer:
	for _, a := range attrs {
		for _, have := range u.attrs {
			if have.Equal(a) {
				continue outer
			}
		}
		u.attrs = append(u.attrs, a)
	}
}

func (u *Unknown) Kind() Kind { return UnknownKind }
func (u *Unknown) Inspect() string {
	parts := make([]string, len(u.attrs))
	for i, a := range u.attrs {
		parts[i] = a.String()
	}
	return "unknown{" + strings.Join(parts, ", ") + "}"
}

// Attributes returns a copy of the contributing attributes.
func (u *Unknown) Attributes() []attribute.Attribute {
	out := make([]attribute.Attribute, len(u.attrs))
	copy(out, u.attrs)
	return out
}

func (u *Unknown) Len() int { return len(u.attrs) }

// Contains reports whether attr is one of the contributing attributes.
func (u *Unknown) Contains(attr attribute.Attribute) bool {
	for _, a := range u.attrs {
		if a.Equal(attr) {
			return true
		}
	}
	return false
}

// Equal reports whether both sets hold the same attributes in any order.
func (u *Unknown) Equal(other *Unknown) bool {
	if len(u.attrs) != len(other.attrs) {
		return false
	}
	for _, a := range u.attrs {
		if !other.Contains(a) {
			return false
		}
	}
	return true
}

// MergeUnknowns returns the union of the given sets, or nil when none is
// given. Nil entries are skipped.
func MergeUnknowns(sets ...*Unknown) *Unknown {
	var merged *Unknown
	for _, s := range sets {
		if s == nil {
			continue
		}
		if merged == nil {
			merged = &Unknown{}
		}
		merged.add(s.attrs...)
	}
	return merged
}
