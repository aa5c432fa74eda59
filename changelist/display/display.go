// Package display evaluates computed list columns. A column is a CEL
// expression over the variable "row", a map of the record's column
// values, so admins can derive presentation values ("in print" /
// "out of print") without touching the schema.
package display

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Column describes one computed list column.
type Column struct {
	// Name keys the column in list_display.
	Name string
	// Title is the header label; defaults to Name when empty.
	Title string
	// Expr is a CEL expression over the variable "row".
	Expr string
	// OrderField names the schema field the column sorts by, if any.
	// A column without one is not sortable.
	OrderField string
}

// Evaluator is a compiled computed column ready to run against rows.
type Evaluator struct {
	Column  Column
	program cel.Program
}

// NewEvaluator compiles the column's expression. The expression sees a
// single variable "row" holding the record's values keyed by column
// name.
func NewEvaluator(col Column) (*Evaluator, error) {
	if col.Name == "" {
		return nil, fmt.Errorf("computed column needs a name")
	}
	if col.Expr == "" {
		return nil, fmt.Errorf("computed column %q needs an expression", col.Name)
	}

	env, err := cel.NewEnv(
		cel.Variable("row", cel.MapType(cel.StringType, cel.AnyType)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %v", err)
	}

	ast, issues := env.Compile(col.Expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error compiling column %q: %v", col.Name, issues.Err())
	}
	p, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("error creating program for column %q: %v", col.Name, err)
	}
	return &Evaluator{Column: col, program: p}, nil
}

// Evaluate runs the expression against one row's values and returns
// the native Go result.
func (e *Evaluator) Evaluate(row map[string]any) (any, error) {
	out, _, err := e.program.Eval(map[string]any{"row": row})
	if err != nil {
		return nil, fmt.Errorf("error evaluating column %q: %v", e.Column.Name, err)
	}
	return out.Value(), nil
}
