package attribute

// Trail is an immutable attribute path under construction. Step returns a new
// trail that shares every node of its parent; published trails never change.
// The zero Trail is empty and stays empty under Step, which is how values
// without variable provenance (literals, call results) are represented.
type Trail struct {
	n *trailNode
}

type trailNode struct {
	parent   *trailNode
	variable string
	qual     Qualifier
	depth    int // number of qualifiers up to and including this node
}

// NewTrail starts a trail at a root variable.
func NewTrail(variable string) Trail {
	return Trail{n: &trailNode{variable: variable}}
}

// FromAttribute rebuilds a trail from a materialized attribute.
func FromAttribute(a Attribute) Trail {
	if a.IsEmpty() {
		return Trail{}
	}
	t := NewTrail(a.variable)
	for _, q := range a.qualifiers {
		t = t.Step(q)
	}
	return t
}

func (t Trail) Empty() bool { return t.n == nil }

// Step extends the trail by one qualifier.
func (t Trail) Step(q Qualifier) Trail {
	if t.n == nil {
		return t
	}
	return Trail{n: &trailNode{parent: t.n, variable: t.n.variable, qual: q, depth: t.n.depth + 1}}
}

// Attribute materializes the path.
func (t Trail) Attribute() Attribute {
	if t.n == nil {
		return Attribute{}
	}
	qs := make([]Qualifier, t.n.depth)
	for n := t.n; n.depth > 0; n = n.parent {
		qs[n.depth-1] = n.qual
	}
	return Attribute{variable: t.n.variable, qualifiers: qs}
}

func (t Trail) Equal(other Trail) bool {
	a, b := t.n, other.n
	for a != nil && b != nil {
		if a == b {
			return true
		}
		if a.depth != b.depth || a.variable != b.variable || !a.qual.Equal(b.qual) {
			return false
		}
		if a.depth == 0 {
			return true
		}
		a, b = a.parent, b.parent
	}
	return a == nil && b == nil
}

func (t Trail) String() string {
	if t.n == nil {
		return "<none>"
	}
	return t.Attribute().String()
}
