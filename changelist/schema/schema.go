// Package schema derives admin model metadata from Go struct tags.
//
// A model is a plain struct whose exported fields map to table columns.
// Tags refine the mapping:
//
//	type Book struct {
//	    ID      int64      `changelist:"pk"`
//	    Title   string
//	    Year    *int       `verbose:"publication year"`
//	    Binding string     `choices:"h=Hardcover,p=Paperback,e=Ebook"`
//	    Author  *Author    `fk:"author_id"`
//	    Contributors []*Contributor `m2m:"book_contributors,book_id,contributor_id"`
//	}
//
// Pointer scalar fields are nullable. Relation targets are resolved
// against a Registry, so models may be registered in any order.
package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Kind classifies a field for filtering and rendering.
type Kind int

const (
	Text Kind = iota
	Int
	Float
	Bool
	// NullBool is a three-state boolean (*bool in the struct).
	NullBool
	Date
	DateTime
)

// String returns the lowercase kind name used in CLI output and errors.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case NullBool:
		return "nullbool"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RelKind distinguishes the two supported relation shapes.
type RelKind int

const (
	ManyToOne RelKind = iota
	ManyToMany
)

// Choice is one enumerated value with its human-readable label.
type Choice struct {
	Value   string
	Display string
}

// Rel describes a relation from one model to another.
type Rel struct {
	Kind RelKind
	// To is the related model, resolved by the registry. It is nil
	// until the target type has been registered.
	To *Model
	// Column is the foreign key column on the owning table (many-to-one).
	Column string
	// JoinTable/JoinFrom/JoinTo describe the link table (many-to-many).
	JoinTable string
	JoinFrom  string
	JoinTo    string

	target reflect.Type
}

// Field is the metadata for one column (or relation) of a model.
type Field struct {
	// Name is the Go struct field name.
	Name string
	// Column is the database column, also the name used in lookup paths.
	Column string
	// Verbose is the human-readable name used for filter titles.
	Verbose string
	Kind    Kind
	// Null reports whether the column accepts NULL (pointer field types).
	Null       bool
	PrimaryKey bool
	Choices    []Choice
	// Rel is non-nil for fk/m2m fields.
	Rel *Rel

	index int
}

// IsRelation reports whether the field is a fk or m2m relation.
func (f *Field) IsRelation() bool {
	return f.Rel != nil
}

// ChoiceDisplay returns the display label for a stored choice value,
// or the value itself when it is not a declared choice.
func (f *Field) ChoiceDisplay(value string) string {
	for _, c := range f.Choices {
		if c.Value == value {
			return c.Display
		}
	}
	return value
}

// Tabler overrides the derived table name for a model struct.
type Tabler interface {
	TableName() string
}

// Orderer supplies a model's default ordering, using column names with
// an optional leading '-' for descending order.
type Orderer interface {
	DefaultOrdering() []string
}

// Model is the parsed metadata for one registered struct type.
type Model struct {
	// Name is the struct type name.
	Name string
	// Table is the database table.
	Table string
	// Verbose and VerbosePlural are the human-readable names.
	Verbose       string
	VerbosePlural string
	Fields        []*Field
	PK            *Field
	// Ordering is the default ordering (column names, '-' descends).
	Ordering []string

	typ reflect.Type
}

// Type returns the underlying struct type.
func (m *Model) Type() reflect.Type {
	return m.typ
}

// FieldByName finds a field by column name, Go name, or the "pk" alias.
func (m *Model) FieldByName(name string) (*Field, bool) {
	if name == "pk" {
		return m.PK, m.PK != nil
	}
	for _, f := range m.Fields {
		if f.Column == name || f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// StringField returns the first non-relation text field, used when a
// related row has to be rendered as a label. Falls back to the pk.
func (m *Model) StringField() *Field {
	for _, f := range m.Fields {
		if f.Kind == Text && !f.IsRelation() && !f.PrimaryKey {
			return f
		}
	}
	return m.PK
}

// ParseModel reflects over a struct value (or pointer to struct) and
// builds its Model. Relation targets are left unresolved; use a
// Registry when the model graph has fk/m2m fields.
func ParseModel(v any) (*Model, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, fmt.Errorf("expected struct type, got nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct type, got %s", t.Kind())
	}

	m := &Model{
		Name: t.Name(),
		typ:  t,
	}
	m.Table = toSnakeCase(t.Name())
	m.Verbose = strings.ReplaceAll(toSnakeCase(t.Name()), "_", " ")
	m.VerbosePlural = m.Verbose + "s"

	if tabler, ok := v.(Tabler); ok {
		m.Table = tabler.TableName()
	}
	if orderer, ok := v.(Orderer); ok {
		m.Ordering = orderer.DefaultOrdering()
	}

	var explicitPK *Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		clTag := sf.Tag.Get("changelist")
		if clTag == "-" {
			continue
		}

		f, err := parseField(sf, i)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", t.Name(), err)
		}

		if clTag == "pk" {
			if explicitPK != nil {
				return nil, fmt.Errorf("model %s: multiple fields tagged pk (%s, %s)", t.Name(), explicitPK.Name, f.Name)
			}
			f.PrimaryKey = true
			explicitPK = f
		}
		m.Fields = append(m.Fields, f)
	}

	if len(m.Fields) == 0 {
		return nil, fmt.Errorf("model %s: no usable fields", t.Name())
	}

	m.PK = explicitPK
	if m.PK == nil {
		// A field named ID of integer kind is the implicit primary key.
		for _, f := range m.Fields {
			if f.Name == "ID" && f.Kind == Int && !f.IsRelation() {
				f.PrimaryKey = true
				m.PK = f
				break
			}
		}
	}
	if m.PK == nil {
		return nil, fmt.Errorf("model %s: no primary key (tag a field with changelist:\"pk\" or add an integer ID field)", t.Name())
	}

	return m, nil
}

// parseField builds the Field for one exported struct field.
func parseField(sf reflect.StructField, index int) (*Field, error) {
	f := &Field{
		Name:   sf.Name,
		Column: toSnakeCase(sf.Name),
		index:  index,
	}
	if col := sf.Tag.Get("col"); col != "" {
		f.Column = col
	}
	f.Verbose = strings.ReplaceAll(f.Column, "_", " ")
	if verbose := sf.Tag.Get("verbose"); verbose != "" {
		f.Verbose = verbose
	}

	if choicesTag := sf.Tag.Get("choices"); choicesTag != "" {
		choices, err := parseChoices(choicesTag)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		f.Choices = choices
	}

	ft := sf.Type
	if ft.Kind() == reflect.Ptr && ft.Elem().Kind() != reflect.Struct {
		f.Null = true
		ft = ft.Elem()
	}

	// Relations first: fk on pointer-to-struct, m2m on slice of
	// pointer-to-struct.
	if _, ok := sf.Tag.Lookup("fk"); ok {
		return parseFK(sf, f)
	}
	if _, ok := sf.Tag.Lookup("m2m"); ok {
		return parseM2M(sf, f)
	}

	switch {
	case ft == reflect.TypeOf(time.Time{}):
		f.Kind = DateTime
		if sf.Tag.Get("kind") == "date" {
			f.Kind = Date
		}
		return f, nil
	case ft.Kind() == reflect.String:
		f.Kind = Text
		return f, nil
	case ft.Kind() == reflect.Bool:
		f.Kind = Bool
		if f.Null {
			f.Kind = NullBool
		}
		return f, nil
	case ft.Kind() >= reflect.Int && ft.Kind() <= reflect.Uint64:
		f.Kind = Int
		return f, nil
	case ft.Kind() == reflect.Float32 || ft.Kind() == reflect.Float64:
		f.Kind = Float
		return f, nil
	case ft.Kind() == reflect.Struct, ft.Kind() == reflect.Ptr && ft.Elem().Kind() == reflect.Struct:
		return nil, fmt.Errorf("field %s: struct field requires an fk or m2m tag", sf.Name)
	case ft.Kind() == reflect.Slice:
		return nil, fmt.Errorf("field %s: slice field requires an m2m tag", sf.Name)
	default:
		return nil, fmt.Errorf("field %s: unsupported field type %s", sf.Name, sf.Type)
	}
}

func parseFK(sf reflect.StructField, f *Field) (*Field, error) {
	ft := sf.Type
	if ft.Kind() != reflect.Ptr || ft.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("field %s: fk tag requires a pointer-to-struct field, got %s", sf.Name, sf.Type)
	}
	column := sf.Tag.Get("fk")
	if column == "" {
		column = toSnakeCase(sf.Name) + "_id"
	}
	f.Kind = Int
	f.Null = true // fk columns are nullable unless the schema says otherwise
	f.Rel = &Rel{
		Kind:   ManyToOne,
		Column: column,
		target: ft.Elem(),
	}
	f.Column = toSnakeCase(sf.Name)
	if col := sf.Tag.Get("col"); col != "" {
		f.Column = col
	}
	return f, nil
}

func parseM2M(sf reflect.StructField, f *Field) (*Field, error) {
	ft := sf.Type
	if ft.Kind() != reflect.Slice || ft.Elem().Kind() != reflect.Ptr || ft.Elem().Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("field %s: m2m tag requires a slice-of-pointer-to-struct field, got %s", sf.Name, sf.Type)
	}
	parts := strings.Split(sf.Tag.Get("m2m"), ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("field %s: m2m tag must be \"join_table,from_column,to_column\"", sf.Name)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil, fmt.Errorf("field %s: m2m tag must be \"join_table,from_column,to_column\"", sf.Name)
		}
	}
	f.Kind = Int
	f.Rel = &Rel{
		Kind:      ManyToMany,
		JoinTable: parts[0],
		JoinFrom:  parts[1],
		JoinTo:    parts[2],
		target:    ft.Elem().Elem(),
	}
	return f, nil
}

// parseChoices parses "v=Display,v2=Display Two" choice tags.
func parseChoices(tag string) ([]Choice, error) {
	var choices []Choice
	seen := make(map[string]bool)
	for _, pair := range strings.Split(tag, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed choices tag entry %q", pair)
		}
		value := strings.TrimSpace(parts[0])
		display := strings.TrimSpace(parts[1])
		if value == "" || display == "" {
			return nil, fmt.Errorf("malformed choices tag entry %q", pair)
		}
		if seen[value] {
			return nil, fmt.Errorf("duplicate choice value %q", value)
		}
		seen[value] = true
		choices = append(choices, Choice{Value: value, Display: display})
	}
	return choices, nil
}

// toSnakeCase converts a CamelCase name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	result.Grow(len(s) + 10)

	for i, r := range s {
		if i > 0 && isUpper(r) {
			prevIsLower := isLower(rune(s[i-1]))
			nextIsLower := i+1 < len(s) && isLower(rune(s[i+1]))
			if prevIsLower || nextIsLower {
				result.WriteRune('_')
			}
		}
		result.WriteRune(toLower(r))
	}

	return result.String()
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

func isLower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

func toLower(r rune) rune {
	if isUpper(r) {
		return r + ('a' - 'A')
	}
	return r
}
