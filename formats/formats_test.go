package formats_test

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/changelist/changelist"
	"github.com/arthur-debert/changelist/changelist/testutil"
	"github.com/arthur-debert/changelist/formats"
)

// goldPage searches the fixture for "gold" over a two column list,
// which narrows seven books down to two.
func goldPage(t *testing.T) *formats.Page {
	t.Helper()

	u := testutil.LoadUniverse(t)
	query, err := url.ParseQuery("q=gold")
	if err != nil {
		t.Fatalf("failed to parse query: %v", err)
	}
	cl, err := changelist.New(context.Background(), query, u.DB, u.Models.Books, changelist.Options{
		ListDisplay:  []string{"title", "year"},
		SearchFields: []string{"title"},
	})
	if err != nil {
		t.Fatalf("failed to build change list: %v", err)
	}
	page, err := formats.NewPage(cl)
	if err != nil {
		t.Fatalf("failed to build page: %v", err)
	}
	return page
}

func TestGet(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		extension string
		wantErr   string
	}{
		{name: "table", format: "table", extension: ".txt"},
		{name: "markdown", format: "markdown", extension: ".md"},
		{name: "csv", format: "csv", extension: ".csv"},
		{name: "json", format: "json", extension: ".json"},
		{name: "yaml", format: "yaml", extension: ".yaml"},
		{name: "typo suggests the closest name", format: "tabel", wantErr: `unknown format "tabel" (did you mean "table"?)`},
		{name: "nothing close", format: "bogus", wantErr: `unknown format "bogus"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := formats.Get(tt.format)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error, got format %q", format.Name)
				}
				if err.Error() != tt.wantErr {
					t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if format.Name != tt.format {
				t.Errorf("expected name %q, got %q", tt.format, format.Name)
			}
			if format.Extension != tt.extension {
				t.Errorf("expected extension %q, got %q", tt.extension, format.Extension)
			}
		})
	}
}

func TestList(t *testing.T) {
	names := formats.List()
	expected := []string{"csv", "json", "markdown", "table", "yaml"}

	if len(names) < len(expected) {
		t.Fatalf("expected at least %d formats, got %v", len(expected), names)
	}
	for _, want := range expected {
		found := false
		for _, name := range names {
			if name == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %q in format list %v", want, names)
		}
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("expected sorted names, got %v", names)
		}
	}
}

func TestNewPage(t *testing.T) {
	page := goldPage(t)

	if page.Title != "Select book to change" {
		t.Errorf("expected page title %q, got %q", "Select book to change", page.Title)
	}
	if page.ResultCount != 2 || page.FullResultCount != 7 {
		t.Errorf("expected counts 2/7, got %d/%d", page.ResultCount, page.FullResultCount)
	}
	if page.NumPages != 1 || page.PageNum != 0 {
		t.Errorf("expected page 0 of 1, got %d of %d", page.PageNum, page.NumPages)
	}

	if len(page.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %v", page.Columns)
	}
	if page.Columns[0].Name != "title" || page.Columns[0].Title != "title" {
		t.Errorf("unexpected first column: %+v", page.Columns[0])
	}
	if page.Columns[1].Name != "year" || page.Columns[1].Title != "publication year" {
		t.Errorf("unexpected second column: %+v", page.Columns[1])
	}

	if len(page.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page.Rows))
	}
	if page.Rows[0].PK != "7" || page.Rows[0].Cells[0] != "Crossing the Gold Line" {
		t.Errorf("unexpected first row: %+v", page.Rows[0])
	}
	if page.Rows[1].PK != "5" || page.Rows[1].Cells[1] != "1999" {
		t.Errorf("unexpected second row: %+v", page.Rows[1])
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name     string
		page     formats.Page
		expected string
	}{
		{
			name:     "unfiltered",
			page:     formats.Page{ResultCount: 7, FullResultCount: 7},
			expected: "7 results",
		},
		{
			name:     "filtered shows the total",
			page:     formats.Page{ResultCount: 2, FullResultCount: 7},
			expected: "2 results (7 total)",
		},
		{
			name:     "large counts get separators",
			page:     formats.Page{ResultCount: 1234, FullResultCount: 1234567},
			expected: "1,234 results (1,234,567 total)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.Summary(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTableFormat(t *testing.T) {
	page := goldPage(t)

	got, err := formats.Table.Render(page)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}

	expected := "TITLE                   PUBLICATION YEAR\n" +
		"Crossing the Gold Line  2021\n" +
		"Gold Harbor             1999\n" +
		"\n" +
		"2 results (7 total)\n"
	if got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestMarkdownFormat(t *testing.T) {
	page := goldPage(t)

	got, err := formats.Markdown.Render(page)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}

	expected := "# Select book to change\n" +
		"\n" +
		"| title | publication year |\n" +
		"| --- | --- |\n" +
		"| Crossing the Gold Line | 2021 |\n" +
		"| Gold Harbor | 1999 |\n" +
		"\n" +
		"2 results (7 total)\n"
	if got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestMarkdownFormatEscapesPipes(t *testing.T) {
	page := &formats.Page{
		Columns:         []formats.Column{{Name: "title", Title: "title"}},
		Rows:            []formats.Row{{PK: "1", Cells: []string{"Either|Or"}}},
		ResultCount:     1,
		FullResultCount: 1,
	}

	got, err := formats.Markdown.Render(page)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}
	if !strings.Contains(got, `| Either\|Or |`) {
		t.Errorf("expected escaped pipe in output:\n%s", got)
	}
}

func TestCSVFormat(t *testing.T) {
	page := goldPage(t)

	got, err := formats.CSV.Render(page)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}

	expected := "pk,title,year\n" +
		"7,Crossing the Gold Line,2021\n" +
		"5,Gold Harbor,1999\n"
	if got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestCSVFormatQuotesCells(t *testing.T) {
	page := &formats.Page{
		Columns:         []formats.Column{{Name: "title", Title: "title"}},
		Rows:            []formats.Row{{PK: "1", Cells: []string{`Shorts, "Collected"`}}},
		ResultCount:     1,
		FullResultCount: 1,
	}

	got, err := formats.CSV.Render(page)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}

	expected := "pk,title\n" +
		"1,\"Shorts, \"\"Collected\"\"\"\n"
	if got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestJSONFormat(t *testing.T) {
	page := goldPage(t)

	got, err := formats.JSON.Render(page)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}
	if !strings.HasPrefix(got, "{\n  \"title\"") {
		t.Errorf("expected indented JSON object, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("expected trailing newline, got:\n%s", got)
	}

	var decoded formats.Page
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("failed to decode rendered JSON: %v", err)
	}
	if decoded.Title != page.Title {
		t.Errorf("expected title %q, got %q", page.Title, decoded.Title)
	}
	if decoded.ResultCount != 2 || decoded.FullResultCount != 7 {
		t.Errorf("expected counts 2/7, got %d/%d", decoded.ResultCount, decoded.FullResultCount)
	}
	if len(decoded.Rows) != 2 || decoded.Rows[0].PK != "7" {
		t.Errorf("unexpected rows: %+v", decoded.Rows)
	}
}

func TestYAMLFormat(t *testing.T) {
	page := goldPage(t)

	got, err := formats.YAML.Render(page)
	if err != nil {
		t.Fatalf("failed to render: %v", err)
	}

	var decoded formats.Page
	if err := yaml.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("failed to decode rendered YAML: %v", err)
	}
	if decoded.Title != page.Title {
		t.Errorf("expected title %q, got %q", page.Title, decoded.Title)
	}
	if len(decoded.Columns) != 2 || decoded.Columns[1].Title != "publication year" {
		t.Errorf("unexpected columns: %+v", decoded.Columns)
	}
	if len(decoded.Rows) != 2 || decoded.Rows[1].Cells[0] != "Gold Harbor" {
		t.Errorf("unexpected rows: %+v", decoded.Rows)
	}
}

// Registration mutates the package registry, so this test stays last
// in the file.
func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		format  *formats.PageFormat
		wantErr bool
	}{
		{
			name:    "uppercase name rejected",
			format:  &formats.PageFormat{Name: "Fancy", Extension: ".f"},
			wantErr: true,
		},
		{
			name:    "spaces rejected",
			format:  &formats.PageFormat{Name: "fancy format", Extension: ".f"},
			wantErr: true,
		},
		{
			name:    "empty name rejected",
			format:  &formats.PageFormat{Name: "", Extension: ".f"},
			wantErr: true,
		},
		{
			name:    "duplicate rejected",
			format:  &formats.PageFormat{Name: "table", Extension: ".txt"},
			wantErr: true,
		},
		{
			name:   "extension gains the leading dot",
			format: &formats.PageFormat{Name: "fancy-2", Extension: "f2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := formats.Register(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error registering %q", tt.format.Name)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.format.Extension != ".f2" {
				t.Errorf("expected normalized extension %q, got %q", ".f2", tt.format.Extension)
			}
		})
	}
}
