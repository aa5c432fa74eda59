// Package queryset implements a lazy, chainable query builder over
// database/sql, compiling admin-style lookup parameters
// ("author__name__icontains") into SQL through squirrel.
//
// A QuerySet is immutable: Filter, OrderBy, Distinct, SelectRelated,
// and Slice derive new values, and nothing touches the database until
// Count, Fetch, or DistinctValues runs.
package queryset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/changelist/changelist/schema"
)

// Row is one fetched record: the primary key, the root table's values
// keyed by field column, and related rows keyed by relation field when
// the query ran with SelectRelated.
type Row struct {
	PK      any
	Values  map[string]any
	Related map[string]*Row
}

// Get returns the value for a field column.
func (r *Row) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// QuerySet is a chainable representation of one SELECT over a model.
type QuerySet struct {
	db    *sql.DB
	model *schema.Model

	where         []Q
	ordering      []string
	distinct      bool
	selectRelated bool
	offset        int
	limit         int
}

// New returns an unfiltered query set over the model's table.
func New(db *sql.DB, model *schema.Model) *QuerySet {
	return &QuerySet{db: db, model: model, limit: -1}
}

// Model returns the query set's model.
func (qs *QuerySet) Model() *schema.Model {
	return qs.model
}

// DB returns the underlying database handle.
func (qs *QuerySet) DB() *sql.DB {
	return qs.db
}

func (qs *QuerySet) clone() *QuerySet {
	dup := *qs
	dup.where = append([]Q(nil), qs.where...)
	dup.ordering = append([]string(nil), qs.ordering...)
	return &dup
}

// Filter narrows the set by one lookup parameter. The path and value
// are validated immediately; errors identify the failing parameter.
func (qs *QuerySet) Filter(param string, value any) (*QuerySet, error) {
	return qs.FilterQ(Where(param, value))
}

// FilterQ narrows the set by a Q tree, validating every leaf.
func (qs *QuerySet) FilterQ(q Q) (*QuerySet, error) {
	if q.IsZero() {
		return qs, nil
	}
	if _, err := newCompiler(qs.model).qSqlizer(q); err != nil {
		return nil, err
	}
	dup := qs.clone()
	dup.where = append(dup.where, q)
	return dup, nil
}

// OrderBy replaces the ordering. Specs are column paths with an
// optional leading '-'; "pk" names the primary key.
func (qs *QuerySet) OrderBy(specs ...string) (*QuerySet, error) {
	if _, err := newCompiler(qs.model).orderingColumns(specs); err != nil {
		return nil, err
	}
	dup := qs.clone()
	dup.ordering = append([]string(nil), specs...)
	return dup, nil
}

// Distinct makes the query return distinct rows (and counts count
// distinct primary keys).
func (qs *QuerySet) Distinct() *QuerySet {
	dup := qs.clone()
	dup.distinct = true
	return dup
}

// SelectRelated joins every many-to-one relation and hydrates the
// related rows alongside the results.
func (qs *QuerySet) SelectRelated() *QuerySet {
	dup := qs.clone()
	dup.selectRelated = true
	return dup
}

// Slice bounds the result window. A negative limit means no limit.
func (qs *QuerySet) Slice(offset, limit int) *QuerySet {
	dup := qs.clone()
	dup.offset = offset
	dup.limit = limit
	return dup
}

// IsFiltered reports whether any condition narrows the set.
func (qs *QuerySet) IsFiltered() bool {
	return len(qs.where) > 0
}

// Count executes SELECT COUNT over the current conditions, ignoring
// any slicing.
func (qs *QuerySet) Count(ctx context.Context) (int, error) {
	c := newCompiler(qs.model)
	preds, err := qs.predicates(c)
	if err != nil {
		return 0, err
	}
	col := "COUNT(*)"
	if qs.distinct {
		col = fmt.Sprintf("COUNT(DISTINCT t0.%s)", qs.model.PK.Column)
	}
	b := c.builder.Select(col).From(fmt.Sprintf("%s AS t0", qs.model.Table))
	b = applyJoins(b, c)
	for _, p := range preds {
		b = b.Where(p)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int
	if err := qs.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

// scanCol pairs one selected column expression with the field it
// hydrates; rel is set for select-related columns.
type scanCol struct {
	expr  string
	field *schema.Field
	rel   string
}

// Fetch executes the query and returns the rows.
func (qs *QuerySet) Fetch(ctx context.Context) ([]*Row, error) {
	c := newCompiler(qs.model)
	preds, err := qs.predicates(c)
	if err != nil {
		return nil, err
	}
	order, err := c.orderingColumns(qs.ordering)
	if err != nil {
		return nil, err
	}
	cols := qs.selectPlan(c)

	exprs := make([]string, len(cols))
	for i, col := range cols {
		exprs[i] = col.expr
	}
	b := c.builder.Select(exprs...).From(fmt.Sprintf("%s AS t0", qs.model.Table))
	if qs.distinct {
		b = b.Distinct()
	}
	b = applyJoins(b, c)
	for _, p := range preds {
		b = b.Where(p)
	}
	if len(order) > 0 {
		b = b.OrderBy(order...)
	}
	switch {
	case qs.limit >= 0:
		b = b.Limit(uint64(qs.limit))
		if qs.offset > 0 {
			b = b.Offset(uint64(qs.offset))
		}
	case qs.offset > 0:
		// SQLite requires a LIMIT clause before OFFSET; -1 is unbounded.
		b = b.Suffix("LIMIT -1 OFFSET ?", qs.offset)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}
	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, qs.buildRow(cols, raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return out, nil
}

// DistinctValues returns the ordered distinct values of one field,
// including NULL when present. The field path may cross relations.
func (qs *QuerySet) DistinctValues(ctx context.Context, path string) ([]any, error) {
	c := newCompiler(qs.model)
	preds, err := qs.predicates(c)
	if err != nil {
		return nil, err
	}
	ref, err := qs.model.Resolve(path)
	if err != nil {
		return nil, &LookupError{Param: path, Err: err}
	}
	col := c.columnFor(ref)
	b := c.builder.Select(col).Distinct().From(fmt.Sprintf("%s AS t0", qs.model.Table))
	b = applyJoins(b, c)
	for _, p := range preds {
		b = b.Where(p)
	}
	b = b.OrderBy(col + " ASC")
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build distinct query: %w", err)
	}
	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		out = append(out, normalizeValue(ref.Field, v))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return out, nil
}

// DateValues returns the distinct dates of one date field truncated to
// a level ("year", "month", or "day"), ordered ascending. NULL dates
// are skipped.
func (qs *QuerySet) DateValues(ctx context.Context, path, level string) ([]time.Time, error) {
	layouts := map[string]struct{ sqlite, gotime string }{
		"year":  {"%Y", "2006"},
		"month": {"%Y-%m", "2006-01"},
		"day":   {"%Y-%m-%d", "2006-01-02"},
	}
	layout, ok := layouts[level]
	if !ok {
		return nil, fmt.Errorf("unknown date level %q", level)
	}

	c := newCompiler(qs.model)
	preds, err := qs.predicates(c)
	if err != nil {
		return nil, err
	}
	ref, err := qs.model.Resolve(path)
	if err != nil {
		return nil, &LookupError{Param: path, Err: err}
	}
	if k := ref.Field.Kind; k != schema.Date && k != schema.DateTime {
		return nil, &LookupError{Param: path, Err: fmt.Errorf("%s is not a date field", path)}
	}
	col := c.columnFor(ref)

	expr := fmt.Sprintf("strftime('%s', %s)", layout.sqlite, col)
	b := c.builder.Select(expr).Distinct().From(fmt.Sprintf("%s AS t0", qs.model.Table))
	b = applyJoins(b, c)
	for _, p := range preds {
		b = b.Where(p)
	}
	b = b.Where(col + " IS NOT NULL").OrderBy("1 ASC")
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build dates query: %w", err)
	}
	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dates query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []time.Time
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		d, err := time.Parse(layout.gotime, s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date %q: %w", s, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return out, nil
}

// predicates compiles the accumulated Q trees against one compiler so
// all conditions share join aliases.
func (qs *QuerySet) predicates(c *compiler) ([]sq.Sqlizer, error) {
	preds := make([]sq.Sqlizer, 0, len(qs.where))
	for _, q := range qs.where {
		p, err := c.qSqlizer(q)
		if err != nil {
			return nil, err
		}
		if p != nil {
			preds = append(preds, p)
		}
	}
	return preds, nil
}

// selectPlan lists the columns to select: every scalar column of the
// root table (foreign keys select their key column), plus the related
// tables' columns when select-related is on.
func (qs *QuerySet) selectPlan(c *compiler) []scanCol {
	var cols []scanCol
	for _, f := range qs.model.Fields {
		switch {
		case f.Rel == nil:
			cols = append(cols, scanCol{expr: "t0." + f.Column, field: f})
		case f.Rel.Kind == schema.ManyToOne:
			cols = append(cols, scanCol{expr: "t0." + f.Rel.Column, field: f})
		}
	}
	if qs.selectRelated {
		for _, f := range qs.model.Fields {
			if f.Rel == nil || f.Rel.Kind != schema.ManyToOne || f.Rel.To == nil {
				continue
			}
			alias := c.ensureStep(f.Column, "t0", schema.JoinStep{From: qs.model, Field: f, To: f.Rel.To})
			for _, rf := range f.Rel.To.Fields {
				switch {
				case rf.Rel == nil:
					cols = append(cols, scanCol{expr: alias + "." + rf.Column, field: rf, rel: f.Column})
				case rf.Rel.Kind == schema.ManyToOne:
					cols = append(cols, scanCol{expr: alias + "." + rf.Rel.Column, field: rf, rel: f.Column})
				}
			}
		}
	}
	return cols
}

// buildRow assembles a Row (and its related rows) from scanned values.
func (qs *QuerySet) buildRow(cols []scanCol, raw []any) *Row {
	row := &Row{Values: make(map[string]any)}
	related := make(map[string]*Row)
	for i, col := range cols {
		v := normalizeValue(col.field, raw[i])
		if col.rel == "" {
			row.Values[col.field.Column] = v
			continue
		}
		sub := related[col.rel]
		if sub == nil {
			sub = &Row{Values: make(map[string]any)}
			related[col.rel] = sub
		}
		sub.Values[col.field.Column] = v
	}
	row.PK = row.Values[qs.model.PK.Column]
	for name, sub := range related {
		f, _ := qs.model.FieldByName(name)
		pk := sub.Values[f.Rel.To.PK.Column]
		if pk == nil {
			continue
		}
		sub.PK = pk
		if row.Related == nil {
			row.Related = make(map[string]*Row)
		}
		row.Related[name] = sub
	}
	return row
}

func applyJoins(b sq.SelectBuilder, c *compiler) sq.SelectBuilder {
	for _, clause := range c.clauses {
		b = b.LeftJoin(clause)
	}
	return b
}

// normalizeValue converts driver values into the field's natural Go
// type: int64, float64, bool, string, or time.Time.
func normalizeValue(f *schema.Field, v any) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	kind := f.Kind
	if f.IsRelation() {
		kind = schema.Int
		if f.Rel.To != nil {
			kind = f.Rel.To.PK.Kind
		}
	}
	switch kind {
	case schema.Int:
		switch n := v.(type) {
		case int64:
			return n
		case int:
			return int64(n)
		case float64:
			return int64(n)
		}
	case schema.Float:
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	case schema.Bool, schema.NullBool:
		switch n := v.(type) {
		case bool:
			return n
		case int64:
			return n != 0
		case string:
			return n == "1" || n == "true"
		}
	case schema.Date, schema.DateTime:
		switch n := v.(type) {
		case time.Time:
			return n
		case string:
			for _, layout := range []string{dateTimeLayout, dateLayout, time.RFC3339} {
				if t, err := time.Parse(layout, n); err == nil {
					return t
				}
			}
		}
	case schema.Text:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return v
}
