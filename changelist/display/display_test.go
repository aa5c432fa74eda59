package display_test

import (
	"testing"

	"github.com/arthur-debert/changelist/changelist/display"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		expr string
		row  map[string]any
		want any
	}{
		{
			"conditional on boolean",
			`row.in_print ? "in print" : "out of print"`,
			map[string]any{"in_print": true},
			"in print",
		},
		{
			"conditional false branch",
			`row.in_print ? "in print" : "out of print"`,
			map[string]any{"in_print": false},
			"out of print",
		},
		{
			"arithmetic",
			`row.year + 1`,
			map[string]any{"year": int64(2005)},
			int64(2006),
		},
		{
			"null comparison",
			`row.rating == null ? "unrated" : "rated"`,
			map[string]any{"rating": nil},
			"unrated",
		},
		{
			"string concatenation",
			`row.title + " (" + string(row.year) + ")"`,
			map[string]any{"title": "Gold Harbor", "year": int64(1999)},
			"Gold Harbor (1999)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := display.NewEvaluator(display.Column{Name: "c", Expr: tt.expr})
			if err != nil {
				t.Fatalf("NewEvaluator failed: %v", err)
			}
			got, err := e.Evaluate(tt.row)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestNewEvaluatorErrors(t *testing.T) {
	tests := []struct {
		name string
		col  display.Column
	}{
		{"missing name", display.Column{Expr: "1"}},
		{"missing expression", display.Column{Name: "c"}},
		{"unparseable expression", display.Column{Name: "c", Expr: "row."}},
		{"unknown variable", display.Column{Name: "c", Expr: "record.year"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := display.NewEvaluator(tt.col); err == nil {
				t.Errorf("expected NewEvaluator(%+v) to fail", tt.col)
			}
		})
	}
}

func TestEvaluateError(t *testing.T) {
	e, err := display.NewEvaluator(display.Column{Name: "c", Expr: "row.missing"})
	if err != nil {
		t.Fatalf("NewEvaluator failed: %v", err)
	}
	if _, err := e.Evaluate(map[string]any{"other": 1}); err == nil {
		t.Error("expected evaluation against a row without the key to fail")
	}
}
