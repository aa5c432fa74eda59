package queryset

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/arthur-debert/changelist/changelist/schema"
)

// compiler turns lookups, ordering, and select-related plans into
// squirrel fragments. Join aliases are assigned per lookup path prefix
// so repeated traversals of the same relation share one join.
type compiler struct {
	model   *schema.Model
	builder sq.StatementBuilderType
	aliases map[string]*pathJoin
	clauses []string
	n       int
}

// pathJoin tracks the aliases serving one relation path prefix. Foreign
// keys only need target; many-to-many paths join the link table first.
type pathJoin struct {
	link   string
	target string
}

func newCompiler(m *schema.Model) *compiler {
	return &compiler{
		model:   m,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		aliases: make(map[string]*pathJoin),
	}
}

func (c *compiler) nextAlias() string {
	c.n++
	return fmt.Sprintf("t%d", c.n)
}

func (c *compiler) pathJoinFor(prefix string) *pathJoin {
	pj := c.aliases[prefix]
	if pj == nil {
		pj = &pathJoin{}
		c.aliases[prefix] = pj
	}
	return pj
}

// ensureStep registers the joins for one relation hop and returns the
// alias of the related table.
func (c *compiler) ensureStep(prefix, fromAlias string, step schema.JoinStep) string {
	pj := c.pathJoinFor(prefix)
	rel := step.Field.Rel
	switch rel.Kind {
	case schema.ManyToOne:
		if pj.target == "" {
			pj.target = c.nextAlias()
			c.clauses = append(c.clauses, fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
				rel.To.Table, pj.target, fromAlias, rel.Column, pj.target, rel.To.PK.Column))
		}
	case schema.ManyToMany:
		if pj.link == "" {
			pj.link = c.nextAlias()
			c.clauses = append(c.clauses, fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
				rel.JoinTable, pj.link, fromAlias, step.From.PK.Column, pj.link, rel.JoinFrom))
		}
		if pj.target == "" {
			pj.target = c.nextAlias()
			c.clauses = append(c.clauses, fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
				rel.To.Table, pj.target, pj.link, rel.JoinTo, pj.target, rel.To.PK.Column))
		}
	}
	return pj.target
}

// ensureLink registers only the link-table join for a terminal
// many-to-many segment; the condition runs against the link column.
func (c *compiler) ensureLink(prefix, fromAlias string, from *schema.Model, rel *schema.Rel) string {
	pj := c.pathJoinFor(prefix)
	if pj.link == "" {
		pj.link = c.nextAlias()
		c.clauses = append(c.clauses, fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
			rel.JoinTable, pj.link, fromAlias, from.PK.Column, pj.link, rel.JoinFrom))
	}
	return pj.link
}

// columnFor resolves a FieldRef to a qualified column expression,
// registering whatever joins the path needs. A terminal many-to-one
// relation uses its foreign key column without joining; a terminal
// many-to-many relation uses the link table's target column.
func (c *compiler) columnFor(ref *schema.FieldRef) string {
	alias := "t0"
	prefix := ""
	owner := ref.Model
	for _, step := range ref.Joins {
		if prefix == "" {
			prefix = step.Field.Column
		} else {
			prefix += "__" + step.Field.Column
		}
		alias = c.ensureStep(prefix, alias, step)
		owner = step.To
	}
	f := ref.Field
	if f.IsRelation() {
		rel := f.Rel
		if rel.Kind == schema.ManyToOne {
			return alias + "." + rel.Column
		}
		p := f.Column
		if prefix != "" {
			p = prefix + "__" + f.Column
		}
		link := c.ensureLink(p, alias, owner, rel)
		return link + "." + rel.JoinTo
	}
	return alias + "." + f.Column
}

// lookupSqlizer compiles one lookup into a squirrel condition.
func (c *compiler) lookupSqlizer(lk Lookup) (sq.Sqlizer, error) {
	ref, err := c.model.Resolve(lk.Path)
	if err != nil {
		return nil, &LookupError{Param: lk.Param(), Err: err}
	}
	col := c.columnFor(ref)
	val, err := coerceValue(ref, lk.Op, lk.Value)
	if err != nil {
		return nil, &LookupError{Param: lk.Param(), Err: err}
	}

	switch lk.Op {
	case OpExact:
		return sq.Eq{col: val}, nil
	case OpIExact:
		return sq.Expr("LOWER("+col+") = LOWER(?)", fmt.Sprintf("%v", val)), nil
	case OpContains:
		return likeExpr(col, "%"+escapeLike(val.(string))+"%", false), nil
	case OpIContains, OpSearch:
		return likeExpr(col, "%"+escapeLike(val.(string))+"%", true), nil
	case OpStartsWith:
		return likeExpr(col, escapeLike(val.(string))+"%", false), nil
	case OpIStartsWith:
		return likeExpr(col, escapeLike(val.(string))+"%", true), nil
	case OpEndsWith:
		return likeExpr(col, "%"+escapeLike(val.(string)), false), nil
	case OpIEndsWith:
		return likeExpr(col, "%"+escapeLike(val.(string)), true), nil
	case OpGT:
		return sq.Gt{col: val}, nil
	case OpGTE:
		return sq.GtOrEq{col: val}, nil
	case OpLT:
		return sq.Lt{col: val}, nil
	case OpLTE:
		return sq.LtOrEq{col: val}, nil
	case OpIn:
		return sq.Eq{col: val}, nil
	case OpIsNull:
		if val.(bool) {
			return sq.Eq{col: nil}, nil
		}
		return sq.NotEq{col: nil}, nil
	case OpYear:
		return sq.Expr("CAST(strftime('%Y', "+col+") AS INTEGER) = ?", val), nil
	case OpMonth:
		return sq.Expr("CAST(strftime('%m', "+col+") AS INTEGER) = ?", val), nil
	case OpDay:
		return sq.Expr("CAST(strftime('%d', "+col+") AS INTEGER) = ?", val), nil
	default:
		return nil, &LookupError{Param: lk.Param(), Err: fmt.Errorf("unsupported operator %q", lk.Op)}
	}
}

// qSqlizer compiles a Q tree. Empty branches vanish.
func (c *compiler) qSqlizer(q Q) (sq.Sqlizer, error) {
	if q.leaf != nil {
		return c.lookupSqlizer(*q.leaf)
	}
	var parts []sq.Sqlizer
	for _, child := range q.children {
		if child.IsZero() {
			continue
		}
		p, err := c.qSqlizer(child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	}
	if q.connector == "OR" {
		return sq.Or(parts), nil
	}
	return sq.And(parts), nil
}

// orderingColumns resolves ordering specs ("-year", "author__name",
// "pk") to qualified columns with direction.
func (c *compiler) orderingColumns(specs []string) ([]string, error) {
	out := make([]string, 0, len(specs))
	for _, spec := range specs {
		desc := strings.HasPrefix(spec, "-")
		path := strings.TrimPrefix(spec, "-")
		ref, err := c.model.Resolve(path)
		if err != nil {
			return nil, err
		}
		col := c.columnFor(ref)
		if desc {
			out = append(out, col+" DESC")
		} else {
			out = append(out, col+" ASC")
		}
	}
	return out, nil
}

// likeExpr builds a LIKE condition. SQLite's LIKE is case-insensitive
// for ASCII, so the case-sensitive variants share that limitation.
func likeExpr(col, pattern string, ci bool) sq.Sqlizer {
	if ci {
		return sq.Expr("LOWER("+col+") LIKE ? ESCAPE '\\'", strings.ToLower(pattern))
	}
	return sq.Expr(col+" LIKE ? ESCAPE '\\'", pattern)
}

// escapeLike escapes LIKE wildcards in user-supplied fragments.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
