// Package changelist turns query strings into filtered, ordered,
// paginated views over registered models, the way an admin interface
// lists records. A ChangeList owns one request's worth of state:
// the parsed parameters, the filter specs with their choice links,
// the compiled query set, and the page of results.
package changelist

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/changelist/changelist/pagination"
	"github.com/arthur-debert/changelist/changelist/queryset"
	"github.com/arthur-debert/changelist/changelist/schema"
)

// ChangeList is one request's view over a model: parameters, filters,
// query set, and results.
type ChangeList struct {
	Model *schema.Model

	// Root is the unfiltered query set; filters and search narrow it
	// into QuerySet.
	Root     *queryset.QuerySet
	QuerySet *queryset.QuerySet

	// Query is the search box value.
	Query   string
	PageNum int
	ShowAll bool
	IsPopup bool
	ToField string

	// Ordering holds the resolved ordering specs applied to QuerySet.
	Ordering []string

	FilterSpecs []FilterSpec
	HasFilters  bool

	ResultCount     int
	FullResultCount int
	CanShowAll      bool
	MultiPage       bool
	ResultList      []*queryset.Row
	Paginator       *pagination.Paginator

	Title string

	admin  *ModelAdmin
	params map[string]string
}

// PerPage returns the page size in effect.
func (cl *ChangeList) PerPage() int {
	return cl.admin.perPage
}

// controlVars are stripped from the retained parameters before they
// are treated as lookups.
var controlVars = []string{AllVar, OrderVar, OrderTypeVar, SearchVar, IsPopupVar}

// deriveOrdering resolves the ordering for this request: the OrderVar
// indexes into the list columns when given and valid, otherwise the
// admin's ordering, the model's, or the primary key descending.
// OrderTypeVar, when valid, overrides the primary direction.
func (cl *ChangeList) deriveOrdering() []string {
	ordering := cl.admin.opts.Ordering
	if len(ordering) == 0 {
		ordering = cl.Model.Ordering
	}
	if len(ordering) == 0 {
		ordering = []string{"-" + cl.Model.PK.Column}
	}

	if o, ok := cl.params[OrderVar]; ok {
		var specs []string
		for _, part := range strings.Split(o, ",") {
			part = strings.TrimSpace(part)
			desc := strings.HasPrefix(part, "-")
			idx, err := strconv.Atoi(strings.TrimPrefix(part, "-"))
			if err != nil || idx < 0 || idx >= len(cl.admin.columns) {
				continue
			}
			spec := cl.admin.columns[idx].orderSpec
			if spec == "" {
				continue
			}
			if desc {
				spec = "-" + spec
			}
			specs = append(specs, spec)
		}
		if len(specs) > 0 {
			ordering = specs
		}
	}

	if ot := cl.params[OrderTypeVar]; ot == "asc" || ot == "desc" {
		first := strings.TrimPrefix(ordering[0], "-")
		if ot == "desc" {
			first = "-" + first
		}
		ordering = append([]string{first}, ordering[1:]...)
	}
	return ordering
}

// buildFilters constructs the filter specs for this request.
func (cl *ChangeList) buildFilters(ctx context.Context) error {
	for _, f := range cl.admin.opts.ListFilter {
		spec, err := f.Build(ctx, cl)
		if err != nil {
			return err
		}
		cl.FilterSpecs = append(cl.FilterSpecs, spec)
		if spec.HasOutput() {
			cl.HasFilters = true
		}
	}
	return nil
}

// buildQuerySet applies everything the parameters ask for, in order:
// filter spec overrides, the remaining lookup parameters, related-row
// selection, ordering, and search. Lookup failures come back as
// IncorrectLookupParameters; vetoed lookups as ErrDisallowedLookup.
func (cl *ChangeList) buildQuerySet(ctx context.Context) (*queryset.QuerySet, error) {
	qs := cl.Root

	lookupParams := make(map[string]string, len(cl.params))
	for k, v := range cl.params {
		lookupParams[k] = v
	}
	for _, v := range controlVars {
		delete(lookupParams, v)
	}

	for _, spec := range cl.FilterSpecs {
		for _, p := range spec.ConsumedParams() {
			delete(lookupParams, p)
		}
		narrowed, handled, err := spec.QuerySetOverride(ctx, cl, qs)
		if err != nil {
			return nil, &IncorrectLookupParameters{Err: err}
		}
		if handled {
			qs = narrowed
		}
	}

	useDistinct := false
	for _, k := range sortedKeys(lookupParams) {
		v := lookupParams[k]
		if !cl.admin.lookupAllowed(k, v) {
			return nil, fmt.Errorf("filtering by %s: %w", k, ErrDisallowedLookup)
		}
		narrowed, err := qs.Filter(k, v)
		if err != nil {
			return nil, &IncorrectLookupParameters{Err: err}
		}
		qs = narrowed
		if lookupNeedsDistinct(cl.Model, k) {
			useDistinct = true
		}
	}

	if cl.admin.opts.ListSelectRelated {
		qs = qs.SelectRelated()
	} else {
		for _, col := range cl.admin.columns {
			if col.field != nil && col.field.Rel != nil && col.field.Rel.Kind == schema.ManyToOne {
				qs = qs.SelectRelated()
				break
			}
		}
	}

	if len(cl.Ordering) > 0 {
		ordered, err := qs.OrderBy(cl.Ordering...)
		if err != nil {
			return nil, &IncorrectLookupParameters{Err: err}
		}
		qs = ordered
	}

	if cl.Query != "" && len(cl.admin.opts.SearchFields) > 0 {
		for _, bit := range strings.Fields(cl.Query) {
			ors := make([]queryset.Q, 0, len(cl.admin.opts.SearchFields))
			for _, sf := range cl.admin.opts.SearchFields {
				ors = append(ors, queryset.Where(constructSearch(sf), bit))
			}
			narrowed, err := qs.FilterQ(queryset.Or(ors...))
			if err != nil {
				return nil, &IncorrectLookupParameters{Err: err}
			}
			qs = narrowed
		}
		for _, sf := range cl.admin.opts.SearchFields {
			if lookupNeedsDistinct(cl.Model, strings.TrimLeft(sf, "^=@")) {
				useDistinct = true
			}
		}
	}

	if useDistinct {
		qs = qs.Distinct()
	}
	return qs, nil
}

// constructSearch maps a search field's prefix to its lookup operator.
func constructSearch(field string) string {
	switch {
	case strings.HasPrefix(field, "^"):
		return field[1:] + "__istartswith"
	case strings.HasPrefix(field, "="):
		return field[1:] + "__iexact"
	case strings.HasPrefix(field, "@"):
		return field[1:] + "__search"
	default:
		return field + "__icontains"
	}
}

// lookupNeedsDistinct reports whether a lookup parameter can duplicate
// result rows, i.e. whether its path crosses a many-to-many relation.
func lookupNeedsDistinct(m *schema.Model, param string) bool {
	lk := queryset.ParseLookup(param, nil)
	ref, err := m.Resolve(lk.Path)
	if err != nil {
		return false
	}
	for _, step := range ref.Joins {
		if step.Field.Rel.Kind == schema.ManyToMany {
			return true
		}
	}
	return ref.Field.IsRelation() && ref.Field.Rel.Kind == schema.ManyToMany
}

// getResults counts, paginates, and loads the rows to display.
func (cl *ChangeList) getResults(ctx context.Context) error {
	paginator, err := pagination.New(ctx, cl.QuerySet, cl.admin.perPage)
	if err != nil {
		return err
	}
	resultCount := paginator.Count()

	fullResultCount := resultCount
	if cl.QuerySet.IsFiltered() {
		fullResultCount, err = cl.Root.Count(ctx)
		if err != nil {
			return err
		}
	}

	cl.ResultCount = resultCount
	cl.FullResultCount = fullResultCount
	cl.CanShowAll = resultCount <= MaxShowAllAllowed
	cl.MultiPage = resultCount > cl.admin.perPage
	cl.Paginator = paginator

	if (cl.ShowAll && cl.CanShowAll) || !cl.MultiPage {
		cl.ResultList, err = cl.QuerySet.Fetch(ctx)
		return err
	}
	page, err := paginator.Page(cl.PageNum + 1)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPage) {
			return &IncorrectLookupParameters{Err: err}
		}
		return err
	}
	cl.ResultList, err = page.Rows(ctx)
	return err
}

// Header describes one result column for rendering: its label and,
// when sortable, the toggle link.
type Header struct {
	Name     string
	Title    string
	Sortable bool
	// Sorted marks the primary sort column; Ascending gives its
	// current direction.
	Sorted    bool
	Ascending bool
	// QueryString is the link that sorts by this column, toggling the
	// direction when it is already the primary sort.
	QueryString string
}

// Headers returns the list columns with their sort state and toggle
// links.
func (cl *ChangeList) Headers() []Header {
	primary := ""
	if len(cl.Ordering) > 0 {
		primary = cl.Ordering[0]
	}
	headers := make([]Header, 0, len(cl.admin.columns))
	for i, col := range cl.admin.columns {
		h := Header{Name: col.name, Title: col.title, Sortable: col.orderSpec != ""}
		if !h.Sortable {
			headers = append(headers, h)
			continue
		}
		switch primary {
		case col.orderSpec:
			h.Sorted, h.Ascending = true, true
		case "-" + col.orderSpec:
			h.Sorted, h.Ascending = true, false
		}
		next := strconv.Itoa(i)
		if h.Sorted && h.Ascending {
			next = "-" + next
		}
		h.QueryString = cl.QueryString(map[string]*string{OrderVar: Value(next), OrderTypeVar: nil}, nil)
		headers = append(headers, h)
	}
	return headers
}

// RowValue renders one cell: the named column's value for a row,
// formatted for display. NULL renders as EmptyChangeListValue, choice
// fields show their display label, and hydrated foreign keys show the
// related row's label.
func (cl *ChangeList) RowValue(row *queryset.Row, name string) (string, error) {
	for _, col := range cl.admin.columns {
		if col.name != name {
			continue
		}
		if col.eval != nil {
			v, err := col.eval.Evaluate(row.Values)
			if err != nil {
				return "", err
			}
			return formatValue(v), nil
		}
		return fieldValue(col.field, row), nil
	}
	f, ok := cl.Model.FieldByName(name)
	if !ok {
		return "", &schema.FieldError{Model: cl.Model, Name: name}
	}
	return fieldValue(f, row), nil
}

// fieldValue formats a schema field's cell.
func fieldValue(f *schema.Field, row *queryset.Row) string {
	v, _ := row.Get(f.Column)
	if v == nil {
		return EmptyChangeListValue
	}
	if f.IsRelation() {
		if related, ok := row.Related[f.Column]; ok {
			return rowLabel(f.Rel.To, related)
		}
		return formatValue(v)
	}
	if len(f.Choices) > 0 {
		if s, ok := v.(string); ok {
			return f.ChoiceDisplay(s)
		}
	}
	switch f.Kind {
	case schema.Date:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02")
		}
	case schema.DateTime:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02 15:04:05")
		}
	}
	return formatValue(v)
}

// formatValue renders an already-normalized value.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return EmptyChangeListValue
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case string:
		return x
	default:
		return fmt.Sprintf("%v", v)
	}
}

// rowLabel renders a row as a one-line label: its string field when
// the model has one, otherwise the model name and primary key.
func rowLabel(m *schema.Model, row *queryset.Row) string {
	if f := m.StringField(); f != nil && !f.PrimaryKey {
		if v, _ := row.Get(f.Column); v != nil {
			return formatValue(v)
		}
	}
	return fmt.Sprintf("%s %v", m.Name, row.PK)
}

// URLForResult returns the relative link to one result's change page.
func (cl *ChangeList) URLForResult(row *queryset.Row) string {
	return url.PathEscape(fmt.Sprintf("%v", row.PK)) + "/"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
