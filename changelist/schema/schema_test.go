package schema_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/changelist/changelist/schema"
)

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

func (Contributor) TableName() string { return "contributors" }

type Book struct {
	ID           int64
	Title        string
	Year         *int   `verbose:"publication year"`
	Binding      string `choices:"h=Hardcover,p=Paperback,e=Ebook"`
	InPrint      bool
	Rating       *bool
	Published    *time.Time     `kind:"date"`
	CreatedAt    time.Time
	Author       *Author        `fk:"author_id"`
	Contributors []*Contributor `m2m:"book_contributors,book_id,contributor_id"`
}

func (Book) TableName() string         { return "books" }
func (Book) DefaultOrdering() []string { return []string{"-year", "title"} }

func registerAll(t *testing.T) (*schema.Registry, *schema.Model) {
	t.Helper()
	reg := schema.NewRegistry()
	book, err := reg.Register(Book{})
	if err != nil {
		t.Fatalf("failed to register Book: %v", err)
	}
	if _, err := reg.Register(Author{}); err != nil {
		t.Fatalf("failed to register Author: %v", err)
	}
	if _, err := reg.Register(Contributor{}); err != nil {
		t.Fatalf("failed to register Contributor: %v", err)
	}
	return reg, book
}

func TestParseModelBasics(t *testing.T) {
	_, book := registerAll(t)

	if book.Table != "books" {
		t.Errorf("expected table 'books', got %q", book.Table)
	}
	if book.Verbose != "book" {
		t.Errorf("expected verbose name 'book', got %q", book.Verbose)
	}
	if book.PK == nil || book.PK.Column != "id" {
		t.Fatalf("expected implicit pk 'id', got %+v", book.PK)
	}
	if len(book.Ordering) != 2 || book.Ordering[0] != "-year" {
		t.Errorf("expected default ordering [-year title], got %v", book.Ordering)
	}

	checks := []struct {
		column string
		kind   schema.Kind
		null   bool
	}{
		{"title", schema.Text, false},
		{"year", schema.Int, true},
		{"binding", schema.Text, false},
		{"in_print", schema.Bool, false},
		{"rating", schema.NullBool, true},
		{"published", schema.Date, true},
		{"created_at", schema.DateTime, false},
	}
	for _, c := range checks {
		f, ok := book.FieldByName(c.column)
		if !ok {
			t.Errorf("field %q not found", c.column)
			continue
		}
		if f.Kind != c.kind {
			t.Errorf("field %q: expected kind %s, got %s", c.column, c.kind, f.Kind)
		}
		if f.Null != c.null {
			t.Errorf("field %q: expected null=%v, got %v", c.column, c.null, f.Null)
		}
	}

	year, _ := book.FieldByName("year")
	if year.Verbose != "publication year" {
		t.Errorf("expected verbose 'publication year', got %q", year.Verbose)
	}

	binding, _ := book.FieldByName("binding")
	if len(binding.Choices) != 3 {
		t.Fatalf("expected 3 choices, got %d", len(binding.Choices))
	}
	if binding.ChoiceDisplay("p") != "Paperback" {
		t.Errorf("expected choice display 'Paperback', got %q", binding.ChoiceDisplay("p"))
	}
	if binding.ChoiceDisplay("zzz") != "zzz" {
		t.Errorf("unknown choice value should render as itself")
	}
}

func TestParseModelRelations(t *testing.T) {
	_, book := registerAll(t)

	author, ok := book.FieldByName("author")
	if !ok || !author.IsRelation() {
		t.Fatalf("expected author relation field")
	}
	if author.Rel.Kind != schema.ManyToOne {
		t.Errorf("expected many-to-one relation")
	}
	if author.Rel.Column != "author_id" {
		t.Errorf("expected fk column 'author_id', got %q", author.Rel.Column)
	}
	if author.Rel.To == nil || author.Rel.To.Table != "authors" {
		t.Errorf("expected resolved target 'authors', got %+v", author.Rel.To)
	}

	contribs, ok := book.FieldByName("contributors")
	if !ok || !contribs.IsRelation() {
		t.Fatalf("expected contributors relation field")
	}
	if contribs.Rel.Kind != schema.ManyToMany {
		t.Errorf("expected many-to-many relation")
	}
	if contribs.Rel.JoinTable != "book_contributors" || contribs.Rel.JoinFrom != "book_id" || contribs.Rel.JoinTo != "contributor_id" {
		t.Errorf("unexpected join table config: %+v", contribs.Rel)
	}
}

func TestRegistryLinksInAnyOrder(t *testing.T) {
	reg := schema.NewRegistry()
	book, err := reg.Register(Book{})
	if err != nil {
		t.Fatalf("failed to register Book: %v", err)
	}
	author, _ := book.FieldByName("author")
	if author.Rel.To != nil {
		t.Fatalf("author relation should be unresolved before Author is registered")
	}
	if _, err := book.Resolve("author__name"); err == nil {
		t.Errorf("resolving through an unregistered target should fail")
	}

	if _, err := reg.Register(Author{}); err != nil {
		t.Fatalf("failed to register Author: %v", err)
	}
	if author.Rel.To == nil {
		t.Errorf("author relation should resolve once Author is registered")
	}
}

func TestParseModelErrors(t *testing.T) {
	type NoPK struct {
		Title string
	}
	type TwoPKs struct {
		A int64 `changelist:"pk"`
		B int64 `changelist:"pk"`
	}
	type BareStruct struct {
		ID    int64
		Other Author
	}
	type BareSlice struct {
		ID     int64
		Others []*Author
	}
	type BadChoices struct {
		ID      int64
		Binding string `choices:"h=,p=Paperback"`
	}
	type Unsupported struct {
		ID   int64
		Data map[string]string
	}

	tests := []struct {
		name     string
		model    any
		errorMsg string
	}{
		{"no pk", NoPK{}, "no primary key"},
		{"two pks", TwoPKs{}, "multiple fields tagged pk"},
		{"bare struct field", BareStruct{}, "requires an fk or m2m tag"},
		{"bare slice field", BareSlice{}, "requires an m2m tag"},
		{"bad choices", BadChoices{}, "malformed choices"},
		{"unsupported type", Unsupported{}, "unsupported field type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.ParseModel(tt.model)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestResolvePaths(t *testing.T) {
	_, book := registerAll(t)

	ref, err := book.Resolve("year")
	if err != nil {
		t.Fatalf("resolve year: %v", err)
	}
	if ref.Field.Column != "year" || ref.Traverses() {
		t.Errorf("expected direct field ref, got %+v", ref)
	}

	ref, err = book.Resolve("pk")
	if err != nil {
		t.Fatalf("resolve pk: %v", err)
	}
	if !ref.Field.PrimaryKey {
		t.Errorf("pk alias should resolve to the primary key")
	}

	ref, err = book.Resolve("author__name")
	if err != nil {
		t.Fatalf("resolve author__name: %v", err)
	}
	if len(ref.Joins) != 1 {
		t.Fatalf("expected 1 join, got %d", len(ref.Joins))
	}
	if ref.Joins[0].To.Table != "authors" || ref.Field.Column != "name" {
		t.Errorf("unexpected resolution: %+v", ref)
	}

	ref, err = book.Resolve("contributors__name")
	if err != nil {
		t.Fatalf("resolve contributors__name: %v", err)
	}
	if len(ref.Joins) != 1 || ref.Joins[0].Field.Rel.Kind != schema.ManyToMany {
		t.Errorf("expected m2m join, got %+v", ref)
	}

	// Terminal relation segment stands for the related pk.
	ref, err = book.Resolve("author")
	if err != nil {
		t.Fatalf("resolve author: %v", err)
	}
	if !ref.Field.IsRelation() || ref.Traverses() {
		t.Errorf("bare relation path should return the relation field itself")
	}
}

func TestResolveErrors(t *testing.T) {
	_, book := registerAll(t)

	_, err := book.Resolve("yeer")
	if err == nil {
		t.Fatalf("expected error for unknown field")
	}
	var fieldErr *schema.FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected FieldError, got %T", err)
	}
	if fieldErr.Suggestion != "year" {
		t.Errorf("expected suggestion 'year', got %q", fieldErr.Suggestion)
	}
	if !strings.Contains(err.Error(), "did you mean") {
		t.Errorf("expected a suggestion in the message, got %q", err.Error())
	}

	if _, err := book.Resolve("title__name"); err == nil {
		t.Errorf("expected error traversing a non-relation field")
	}
}
