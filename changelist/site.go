package changelist

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/changelist/changelist/queryset"
	"github.com/arthur-debert/changelist/changelist/schema"
)

// Site holds the registered model admins for one database.
type Site struct {
	db       *sql.DB
	registry *schema.Registry
	admins   map[string]*ModelAdmin
	order    []string
}

// NewSite returns an empty site over db. The registry supplies the
// model graph; admins are added with Register.
func NewSite(db *sql.DB, registry *schema.Registry) *Site {
	return &Site{
		db:       db,
		registry: registry,
		admins:   make(map[string]*ModelAdmin),
	}
}

// DB returns the site's database handle.
func (s *Site) DB() *sql.DB {
	return s.db
}

// Registry returns the site's model registry.
func (s *Site) Registry() *schema.Registry {
	return s.registry
}

// Register attaches change list options to a model. It validates the
// options eagerly so misconfigured admins fail at startup, not per
// request.
func (s *Site) Register(m *schema.Model, opts Options) error {
	admin, err := NewModelAdmin(s.db, m, opts)
	if err != nil {
		return fmt.Errorf("register %s: %w", m.Table, err)
	}
	if _, dup := s.admins[m.Table]; dup {
		return fmt.Errorf("register %s: model already registered", m.Table)
	}
	s.admins[m.Table] = admin
	s.order = append(s.order, m.Table)
	return nil
}

// Admin finds a registered admin by model or table name,
// case-insensitively.
func (s *Site) Admin(name string) (*ModelAdmin, bool) {
	name = strings.ToLower(name)
	for _, a := range s.admins {
		if strings.ToLower(a.model.Table) == name || strings.ToLower(a.model.Name) == name {
			return a, true
		}
	}
	return nil, false
}

// Admins returns the registered admins in registration order.
func (s *Site) Admins() []*ModelAdmin {
	out := make([]*ModelAdmin, 0, len(s.order))
	for _, table := range s.order {
		out = append(out, s.admins[table])
	}
	return out
}

// ModelAdmin is one model's compiled change list configuration.
type ModelAdmin struct {
	db      *sql.DB
	model   *schema.Model
	opts    Options
	columns []column
	perPage int
	now     func() time.Time
}

// NewModelAdmin validates opts against the model and compiles the
// list columns.
func NewModelAdmin(db *sql.DB, m *schema.Model, opts Options) (*ModelAdmin, error) {
	if err := validateOptions(m, opts); err != nil {
		return nil, err
	}
	cols, err := compileColumns(m, opts)
	if err != nil {
		return nil, err
	}
	perPage := opts.ListPerPage
	if perPage <= 0 {
		perPage = 100
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ModelAdmin{db: db, model: m, opts: opts, columns: cols, perPage: perPage, now: now}, nil
}

// Model returns the admin's model.
func (a *ModelAdmin) Model() *schema.Model {
	return a.model
}

// Options returns the admin's options as registered.
func (a *ModelAdmin) Options() Options {
	return a.opts
}

// ChangeList builds the change list for one request's query string: it
// parses the control parameters, builds the filter specs, applies
// lookups, search, and ordering, and loads the page of results.
func (a *ModelAdmin) ChangeList(ctx context.Context, query url.Values) (*ChangeList, error) {
	cl := &ChangeList{
		admin:  a,
		Model:  a.model,
		Root:   queryset.New(a.db, a.model),
		params: make(map[string]string),
	}
	for k, vs := range query {
		if k == PageVar || k == ToFieldVar || k == ErrorFlag {
			continue
		}
		if len(vs) == 0 {
			cl.params[k] = ""
			continue
		}
		cl.params[k] = vs[len(vs)-1]
	}
	cl.PageNum = atoiOrZero(query.Get(PageVar))
	_, cl.ShowAll = cl.params[AllVar]
	_, cl.IsPopup = cl.params[IsPopupVar]
	cl.ToField = query.Get(ToFieldVar)
	cl.Query = query.Get(SearchVar)
	cl.Ordering = cl.deriveOrdering()

	if err := cl.buildFilters(ctx); err != nil {
		return nil, err
	}
	qs, err := cl.buildQuerySet(ctx)
	if err != nil {
		return nil, err
	}
	cl.QuerySet = qs
	if err := cl.getResults(ctx); err != nil {
		return nil, err
	}
	if cl.IsPopup {
		cl.Title = fmt.Sprintf("Select %s", a.model.Verbose)
	} else {
		cl.Title = fmt.Sprintf("Select %s to change", a.model.Verbose)
	}
	return cl, nil
}

// New builds a change list without a site, validating opts first.
func New(ctx context.Context, query url.Values, db *sql.DB, m *schema.Model, opts Options) (*ChangeList, error) {
	admin, err := NewModelAdmin(db, m, opts)
	if err != nil {
		return nil, err
	}
	return admin.ChangeList(ctx, query)
}

// lookupAllowed decides whether a query string lookup may hit the
// database. The default policy allows lookups on the model's own
// fields, and relation traversals only when the relation is declared
// in ListFilter or as the date hierarchy.
func (a *ModelAdmin) lookupAllowed(param, value string) bool {
	if a.opts.LookupAllowed != nil {
		return a.opts.LookupAllowed(param, value)
	}
	lk := queryset.ParseLookup(param, value)
	head, _, traverses := strings.Cut(lk.Path, "__")
	if !traverses {
		return true
	}
	f, ok := a.model.FieldByName(head)
	if !ok || !f.IsRelation() {
		// Not a relation path; let filtering report the real problem.
		return true
	}
	if a.opts.DateHierarchy != "" {
		if dh, found := a.model.FieldByName(a.opts.DateHierarchy); found && dh == f {
			return true
		}
	}
	for _, lf := range a.opts.ListFilter {
		fn, isField := lf.(FieldName)
		if !isField {
			continue
		}
		if ff, found := a.model.FieldByName(string(fn)); found && ff == f {
			return true
		}
	}
	return false
}

// atoiOrZero treats unparseable page numbers as page zero. Negative
// numbers pass through and fail later as an invalid page.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
