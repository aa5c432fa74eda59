// Package bookstore is the demo domain wired into the CLI, the web
// surface, and the test fixtures: a small library catalog with the
// relation shapes the change list cares about (nullable scalars,
// choices, booleans, dates, a foreign key, and a many-to-many).
package bookstore

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arthur-debert/changelist/changelist"
	"github.com/arthur-debert/changelist/changelist/display"
	"github.com/arthur-debert/changelist/changelist/schema"
)

//go:embed schema.sql
var SchemaSQL string

//go:embed seed.sql
var SeedSQL string

type Author struct {
	ID   int64
	Name string
	Age  *int
}

func (Author) TableName() string         { return "authors" }
func (Author) DefaultOrdering() []string { return []string{"name"} }

type Contributor struct {
	ID   int64
	Name string
}

func (Contributor) TableName() string         { return "contributors" }
func (Contributor) DefaultOrdering() []string { return []string{"name"} }

type Book struct {
	ID           int64
	Title        string
	Year         *int   `verbose:"publication year"`
	Binding      string `choices:"h=Hardcover,p=Paperback,e=Ebook"`
	InPrint      bool
	Rating       *bool
	Published    *time.Time `kind:"date"`
	CreatedAt    time.Time
	Author       *Author        `fk:"author_id"`
	Contributors []*Contributor `m2m:"book_contributors,book_id,contributor_id"`
}

func (Book) TableName() string         { return "books" }
func (Book) DefaultOrdering() []string { return []string{"-year", "title"} }

// Models bundles the registered demo models.
type Models struct {
	Registry     *schema.Registry
	Books        *schema.Model
	Authors      *schema.Model
	Contributors *schema.Model
}

// Register parses the demo models into a fresh registry.
func Register() (*Models, error) {
	reg := schema.NewRegistry()
	authors, err := reg.Register(Author{})
	if err != nil {
		return nil, err
	}
	contributors, err := reg.Register(Contributor{})
	if err != nil {
		return nil, err
	}
	books, err := reg.Register(Book{})
	if err != nil {
		return nil, err
	}
	return &Models{
		Registry:     reg,
		Books:        books,
		Authors:      authors,
		Contributors: contributors,
	}, nil
}

// Open opens (creating if needed) a SQLite catalog database and applies
// the pragmas the store needs for concurrent readers.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return db, nil
}

// EnsureSchema creates the catalog tables when missing.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Seed loads the fixture rows. It assumes empty tables.
func Seed(db *sql.DB) error {
	if _, err := db.Exec(SeedSQL); err != nil {
		return fmt.Errorf("failed to seed data: %w", err)
	}
	return nil
}

// NewSite registers the demo models and their admin options on a site
// backed by db.
func NewSite(db *sql.DB) (*changelist.Site, *Models, error) {
	models, err := Register()
	if err != nil {
		return nil, nil, err
	}
	site := changelist.NewSite(db, models.Registry)

	if err := site.Register(models.Books, changelist.Options{
		ListDisplay: []string{"title", "year", "author", "binding", "in_print", "published", "availability"},
		ListFilter: []changelist.Filter{
			changelist.FieldName("year"),
			changelist.FieldName("author"),
			changelist.FieldName("contributors"),
			changelist.FieldName("binding"),
			changelist.FieldName("in_print"),
			changelist.FieldName("rating"),
			changelist.FieldName("published"),
		},
		DateHierarchy: "published",
		SearchFields:  []string{"title", "author__name"},
		Computed: []display.Column{
			{
				Name:       "availability",
				Title:      "availability",
				Expr:       `row.in_print ? "in print" : "out of print"`,
				OrderField: "in_print",
			},
		},
	}); err != nil {
		return nil, nil, err
	}

	if err := site.Register(models.Authors, changelist.Options{
		ListDisplay:  []string{"name", "age"},
		ListFilter:   []changelist.Filter{changelist.FieldName("age")},
		SearchFields: []string{"name"},
	}); err != nil {
		return nil, nil, err
	}

	if err := site.Register(models.Contributors, changelist.Options{
		ListDisplay:  []string{"name"},
		SearchFields: []string{"name"},
	}); err != nil {
		return nil, nil, err
	}

	return site, models, nil
}
