package queryset

// Q is a tree of lookup conditions combined with AND/OR. Leaves are
// built with Where; trees with And/Or. An empty Q matches everything.
type Q struct {
	connector string
	children  []Q
	leaf      *Lookup
}

// Where builds a leaf condition from a lookup parameter and value.
func Where(param string, value any) Q {
	lk := ParseLookup(param, value)
	return Q{leaf: &lk}
}

// And combines conditions so all must hold.
func And(qs ...Q) Q {
	return Q{connector: "AND", children: qs}
}

// Or combines conditions so any may hold.
func Or(qs ...Q) Q {
	return Q{connector: "OR", children: qs}
}

// IsZero reports whether the Q carries no condition at all.
func (q Q) IsZero() bool {
	return q.leaf == nil && len(q.children) == 0
}

// Leaves returns every lookup in the tree, depth-first.
func (q Q) Leaves() []Lookup {
	if q.leaf != nil {
		return []Lookup{*q.leaf}
	}
	var out []Lookup
	for _, c := range q.children {
		out = append(out, c.Leaves()...)
	}
	return out
}
