package changelist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/changelist/changelist/display"
	"github.com/arthur-debert/changelist/changelist/schema"
)

// Options configure how one model's change list behaves. The zero
// value lists the primary key only, with no filters or search.
type Options struct {
	// ListDisplay names the columns, in order: schema fields or
	// computed column names. Empty means just the primary key.
	ListDisplay []string

	// ListFilter declares the sidebar filters.
	ListFilter []Filter

	// DateHierarchy names a date field to drill into by year, month,
	// and day.
	DateHierarchy string

	// SearchFields are the fields the search box matches against. A
	// "^" prefix anchors the match at the start, "=" requires an exact
	// (case-insensitive) match, and "@" requests full-text search.
	SearchFields []string

	// ListSelectRelated forces the related-row join even when no
	// foreign key appears in ListDisplay.
	ListSelectRelated bool

	// ListPerPage is the page size; 0 means 100.
	ListPerPage int

	// Ordering overrides the model's default ordering.
	Ordering []string

	// Computed defines derived columns available to ListDisplay.
	Computed []display.Column

	// LookupAllowed vets each query string lookup before it reaches
	// the database. Nil uses the default policy: any lookup on the
	// model itself, and relation traversals only for relations named
	// in ListFilter or DateHierarchy.
	LookupAllowed func(param, value string) bool

	// Now supplies the current time for date filters. Nil means
	// time.Now.
	Now func() time.Time
}

// Filter declares one sidebar filter. FieldName covers the common
// case; implement Filter directly for custom specs.
type Filter interface {
	// Build returns the filter's spec for one request. Specs that
	// cannot decide anything useful may return a spec whose HasOutput
	// is false.
	Build(ctx context.Context, cl *ChangeList) (FilterSpec, error)
}

// FieldName filters on one schema field, picking the spec that matches
// the field's shape: related, choices, date, boolean, or all-values.
type FieldName string

// Build dispatches to the registered field spec factories.
func (f FieldName) Build(ctx context.Context, cl *ChangeList) (FilterSpec, error) {
	field, ok := cl.Model.FieldByName(string(f))
	if !ok {
		return nil, fmt.Errorf("list_filter: %w", &schema.FieldError{Model: cl.Model, Name: string(f)})
	}
	return buildFieldSpec(ctx, cl, field)
}

// column is one compiled list_display entry.
type column struct {
	name  string
	title string
	// field is set for schema columns, eval for computed ones.
	field *schema.Field
	eval  *display.Evaluator
	// orderSpec is the queryset ordering path; empty means the column
	// is not sortable.
	orderSpec string
}

// compileColumns resolves ListDisplay against the model and the
// computed column definitions.
func compileColumns(m *schema.Model, opts Options) ([]column, error) {
	evals := make(map[string]*display.Evaluator, len(opts.Computed))
	for _, c := range opts.Computed {
		e, err := display.NewEvaluator(c)
		if err != nil {
			return nil, err
		}
		if c.OrderField != "" {
			if _, err := m.Resolve(c.OrderField); err != nil {
				return nil, fmt.Errorf("computed column %q: %w", c.Name, err)
			}
		}
		if _, dup := evals[c.Name]; dup {
			return nil, fmt.Errorf("computed column %q is defined twice", c.Name)
		}
		evals[c.Name] = e
	}

	names := opts.ListDisplay
	if len(names) == 0 {
		names = []string{"pk"}
	}
	cols := make([]column, 0, len(names))
	for _, name := range names {
		if e, ok := evals[name]; ok {
			title := e.Column.Title
			if title == "" {
				title = e.Column.Name
			}
			cols = append(cols, column{name: name, title: title, eval: e, orderSpec: e.Column.OrderField})
			continue
		}
		f, ok := m.FieldByName(name)
		if !ok {
			return nil, fmt.Errorf("list_display: %w", &schema.FieldError{Model: m, Name: name})
		}
		if f.Rel != nil && f.Rel.Kind == schema.ManyToMany {
			return nil, fmt.Errorf("list_display: many-to-many field %q is not supported", name)
		}
		cols = append(cols, column{name: name, title: f.Verbose, field: f, orderSpec: f.Column})
	}
	return cols, nil
}

// validateOptions checks everything about Options that does not need a
// request: search fields, ordering, and the date hierarchy field.
func validateOptions(m *schema.Model, opts Options) error {
	for _, sf := range opts.SearchFields {
		path := strings.TrimLeft(sf, "^=@")
		if _, err := m.Resolve(path); err != nil {
			return fmt.Errorf("search_fields: %w", err)
		}
	}
	for _, spec := range opts.Ordering {
		if _, err := m.Resolve(strings.TrimPrefix(spec, "-")); err != nil {
			return fmt.Errorf("ordering: %w", err)
		}
	}
	for _, lf := range opts.ListFilter {
		fn, ok := lf.(FieldName)
		if !ok {
			continue
		}
		if _, found := m.FieldByName(string(fn)); !found {
			return fmt.Errorf("list_filter: %w", &schema.FieldError{Model: m, Name: string(fn)})
		}
	}
	if opts.DateHierarchy != "" {
		f, ok := m.FieldByName(opts.DateHierarchy)
		if !ok {
			return fmt.Errorf("date_hierarchy: %w", &schema.FieldError{Model: m, Name: opts.DateHierarchy})
		}
		if f.Kind != schema.Date && f.Kind != schema.DateTime {
			return fmt.Errorf("date_hierarchy: field %q is not a date field", opts.DateHierarchy)
		}
	}
	return nil
}
