package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/changelist/changelist/schema"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields <model>",
	Short: "Show a model's fields and the lookups they accept",
	Args:  cobra.ExactArgs(1),
	RunE:  runFields,
}

func runFields(cmd *cobra.Command, args []string) error {
	site, db, err := openSite()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	admin, err := adminFor(site, args[0])
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tTYPE\tNULL\tVERBOSE")
	for _, f := range admin.Model().Fields {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Column, fieldType(f), yesNo(f.Null), f.Verbose)
	}
	return w.Flush()
}

// fieldType renders the column type, naming the target model for
// relations.
func fieldType(f *schema.Field) string {
	if f.Rel != nil {
		if f.Rel.Kind == schema.ManyToMany {
			return fmt.Sprintf("m2m(%s)", f.Rel.To.Table)
		}
		return fmt.Sprintf("fk(%s)", f.Rel.To.Table)
	}
	if len(f.Choices) > 0 {
		values := make([]string, len(f.Choices))
		for i, c := range f.Choices {
			values[i] = c.Value
		}
		return fmt.Sprintf("%s(%s)", f.Kind, strings.Join(values, "|"))
	}
	return f.Kind.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
