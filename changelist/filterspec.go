package changelist

import (
	"context"
	"fmt"

	"github.com/arthur-debert/changelist/changelist/queryset"
	"github.com/arthur-debert/changelist/changelist/schema"
)

// FilterChoice is one link in a filter's sidebar block.
type FilterChoice struct {
	Selected    bool
	QueryString string
	Display     string
}

// FilterSpec is one built filter: a title and the choice links that
// narrow the list. Most specs filter purely through the query string
// parameters their links set; a spec may instead narrow the query set
// directly through QuerySetOverride and claim its parameters with
// ConsumedParams.
type FilterSpec interface {
	Title() string
	Choices() []FilterChoice

	// HasOutput reports whether the filter is worth rendering.
	HasOutput() bool

	// ConsumedParams names parameters the spec handles itself; they are
	// removed before the remaining parameters are applied as lookups.
	ConsumedParams() []string

	// QuerySetOverride lets the spec narrow the query set directly.
	// It returns the narrowed set and true when it did.
	QuerySetOverride(ctx context.Context, cl *ChangeList, qs *queryset.QuerySet) (*queryset.QuerySet, bool, error)
}

// baseSpec supplies the passive defaults: render, consume nothing,
// leave the query set alone.
type baseSpec struct{}

func (baseSpec) HasOutput() bool { return true }

func (baseSpec) ConsumedParams() []string { return nil }

func (baseSpec) QuerySetOverride(ctx context.Context, cl *ChangeList, qs *queryset.QuerySet) (*queryset.QuerySet, bool, error) {
	return qs, false, nil
}

// FieldSpecTest decides whether a factory handles a field.
type FieldSpecTest func(f *schema.Field) bool

// FieldSpecFactory builds the spec for a matched field.
type FieldSpecFactory func(ctx context.Context, cl *ChangeList, f *schema.Field) (FilterSpec, error)

type fieldSpecEntry struct {
	test    FieldSpecTest
	factory FieldSpecFactory
}

// fieldSpecs holds the (test, factory) registry, first match wins. The
// final entry is the catch-all.
var fieldSpecs []fieldSpecEntry

// RegisterFieldSpec adds a field spec ahead of the catch-all, so it is
// consulted after the built-ins but before the all-values fallback.
func RegisterFieldSpec(test FieldSpecTest, factory FieldSpecFactory) {
	entry := fieldSpecEntry{test: test, factory: factory}
	if n := len(fieldSpecs); n > 0 {
		fieldSpecs = append(fieldSpecs[:n-1], entry, fieldSpecs[n-1])
		return
	}
	fieldSpecs = append(fieldSpecs, entry)
}

// RegisterFieldSpecFront adds a field spec ahead of everything,
// overriding the built-ins for the fields it matches.
func RegisterFieldSpecFront(test FieldSpecTest, factory FieldSpecFactory) {
	fieldSpecs = append([]fieldSpecEntry{{test: test, factory: factory}}, fieldSpecs...)
}

func buildFieldSpec(ctx context.Context, cl *ChangeList, f *schema.Field) (FilterSpec, error) {
	for _, e := range fieldSpecs {
		if e.test(f) {
			return e.factory(ctx, cl, f)
		}
	}
	return nil, fmt.Errorf("no filter spec matches field %q of model %s", f.Column, cl.Model.Table)
}

func init() {
	RegisterFieldSpec(func(f *schema.Field) bool { return f.IsRelation() }, newRelatedSpec)
	RegisterFieldSpec(func(f *schema.Field) bool { return len(f.Choices) > 0 }, newChoicesSpec)
	RegisterFieldSpec(func(f *schema.Field) bool { return f.Kind == schema.Date || f.Kind == schema.DateTime }, newDateSpec)
	RegisterFieldSpec(func(f *schema.Field) bool { return f.Kind == schema.Bool || f.Kind == schema.NullBool }, newBooleanSpec)
	RegisterFieldSpec(func(f *schema.Field) bool { return true }, newAllValuesSpec)
}
