package schema

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// FieldError reports a lookup path segment that does not name a field,
// with a closest-match suggestion when one is plausible.
type FieldError struct {
	Model      *Model
	Name       string
	Suggestion string
}

func (e *FieldError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown field %q for model %s (did you mean %q?)", e.Name, e.Model.Table, e.Suggestion)
	}
	return fmt.Sprintf("unknown field %q for model %s", e.Name, e.Model.Table)
}

// JoinStep is one relation hop in a resolved path.
type JoinStep struct {
	From *Model
	// Field is the relation field on From that the path traversed.
	Field *Field
	To    *Model
}

// FieldRef is a resolved lookup path: the terminal field plus the
// relation hops needed to reach it from the root model.
type FieldRef struct {
	Model *Model
	Field *Field
	Joins []JoinStep
	Path  string
}

// Traverses reports whether the path crossed at least one relation.
func (r *FieldRef) Traverses() bool {
	return len(r.Joins) > 0
}

// Resolve walks a "__"-separated lookup path across relations, e.g.
// "year", "author__name", "contributors__id". The terminal segment may
// itself be a relation field, which stands for the related model's
// primary key in filters. Intermediate segments must be relations.
func (m *Model) Resolve(path string) (*FieldRef, error) {
	ref := &FieldRef{Model: m, Path: path}
	current := m
	segments := strings.Split(path, "__")
	for i, seg := range segments {
		f, ok := current.FieldByName(seg)
		if !ok {
			return nil, &FieldError{Model: current, Name: seg, Suggestion: suggestField(current, seg)}
		}
		last := i == len(segments)-1
		if last {
			ref.Field = f
			return ref, nil
		}
		if !f.IsRelation() {
			return nil, fmt.Errorf("cannot traverse field %q of model %s: not a relation", seg, current.Table)
		}
		if err := checkResolved(current, f); err != nil {
			return nil, err
		}
		ref.Joins = append(ref.Joins, JoinStep{From: current, Field: f, To: f.Rel.To})
		current = f.Rel.To
	}
	return nil, &FieldError{Model: m, Name: path}
}

// suggestField returns the closest field name within edit distance 2.
func suggestField(m *Model, name string) string {
	best := ""
	bestDist := 3
	candidates := make([]string, 0, len(m.Fields)+1)
	for _, f := range m.Fields {
		candidates = append(candidates, f.Column)
	}
	candidates = append(candidates, "pk")
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), c)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
