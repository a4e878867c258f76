package eval

import (
	"github.com/funvibe/expreval/internal/attribute"
	"github.com/funvibe/expreval/internal/values"
)

// AttributeUtility classifies attribute trails against the unknown and
// missing-attribute pattern sets, and folds unknowns together. A pattern
// set is empty when its feature is disabled.
type AttributeUtility struct {
	unknown []attribute.Pattern
	missing []attribute.Pattern
}

func NewAttributeUtility(unknown, missing []attribute.Pattern) *AttributeUtility {
	return &AttributeUtility{unknown: unknown, missing: missing}
}

func newAttributeUtility(opts Options) *AttributeUtility {
	u := &AttributeUtility{}
	if opts.EnableUnknowns {
		u.unknown = opts.UnknownPatterns
	}
	if opts.EnableMissingAttributeErrors {
		u.missing = opts.MissingAttributePatterns
	}
	return u
}

// CheckForUnknown reports whether trail is covered by an unknown pattern.
// With usePartial, a trail that is only a prefix of a pattern counts too.
func (u *AttributeUtility) CheckForUnknown(trail attribute.Trail, usePartial bool) bool {
	if trail.Empty() || len(u.unknown) == 0 {
		return false
	}
	attr := trail.Attribute()
	for _, p := range u.unknown {
		switch p.Match(attr) {
		case attribute.MatchFull:
			return true
		case attribute.MatchPartial:
			if usePartial {
				return true
			}
		}
	}
	return false
}

// CheckForMissingAttribute reports whether trail is covered by a required
// pattern.
func (u *AttributeUtility) CheckForMissingAttribute(trail attribute.Trail) bool {
	if trail.Empty() || len(u.missing) == 0 {
		return false
	}
	attr := trail.Attribute()
	for _, p := range u.missing {
		if p.Match(attr) == attribute.MatchFull {
			return true
		}
	}
	return false
}

// IdentifyAndMergeUnknowns collects every sibling that is an unknown value
// or whose trail is covered by an unknown pattern. It returns nil when
// there is none.
func (u *AttributeUtility) IdentifyAndMergeUnknowns(vals []values.Value, trails []attribute.Trail, usePartial bool) *values.Unknown {
	acc := u.NewAccumulator()
	for i, v := range vals {
		var trail attribute.Trail
		if i < len(trails) {
			trail = trails[i]
		}
		acc.MaybeAdd(v, trail, usePartial)
	}
	return acc.Build()
}

// MergeUnknowns folds the unknown values among vals; nil if there is none.
func (u *AttributeUtility) MergeUnknowns(vals []values.Value) *values.Unknown {
	var sets []*values.Unknown
	for _, v := range vals {
		if unk, ok := v.(*values.Unknown); ok {
			sets = append(sets, unk)
		}
	}
	return values.MergeUnknowns(sets...)
}

func (u *AttributeUtility) CreateUnknownSet(attr attribute.Attribute) *values.Unknown {
	return values.NewUnknown(attr)
}

func (u *AttributeUtility) CreateMissingAttributeError(attr attribute.Attribute) *values.Error {
	return values.NewError(values.ErrMissingAttribute, "MissingAttributeError: %s", attr)
}

// Accumulator gathers unknowns one value at a time, for callers that
// evaluate siblings incrementally.
type Accumulator struct {
	util *AttributeUtility
	sets []*values.Unknown
}

func (u *AttributeUtility) NewAccumulator() *Accumulator {
	return &Accumulator{util: u}
}

// Add records an unknown value; other values are ignored.
func (a *Accumulator) Add(v values.Value) {
	if unk, ok := v.(*values.Unknown); ok {
		a.sets = append(a.sets, unk)
	}
}

// MaybeAdd records v if it is unknown, or its trail if the trail is
// covered by an unknown pattern.
func (a *Accumulator) MaybeAdd(v values.Value, trail attribute.Trail, usePartial bool) {
	if unk, ok := v.(*values.Unknown); ok {
		a.sets = append(a.sets, unk)
		return
	}
	if a.util.CheckForUnknown(trail, usePartial) {
		a.sets = append(a.sets, a.util.CreateUnknownSet(trail.Attribute()))
	}
}

func (a *Accumulator) IsEmpty() bool { return len(a.sets) == 0 }

func (a *Accumulator) Build() *values.Unknown {
	return values.MergeUnknowns(a.sets...)
}
