package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var filtersFilters []string

var filtersCmd = &cobra.Command{
	Use:   "filters <model>",
	Short: "Show a model's sidebar filters and their choices",
	Long: `Show the filter blocks the admin sidebar would render, with the
query string each choice links to. Pass --filter pairs to see how the
choices mark the current selection.`,
	Args: cobra.ExactArgs(1),
	RunE: runFilters,
}

func init() {
	filtersCmd.Flags().StringArrayVar(&filtersFilters, "filter", nil, "field lookup as field=value (repeatable)")
}

func runFilters(cmd *cobra.Command, args []string) error {
	site, db, err := openSite()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	admin, err := adminFor(site, args[0])
	if err != nil {
		return err
	}
	values, err := queryValues(filtersFilters, "", "", 0, false)
	if err != nil {
		return err
	}
	cl, err := admin.ChangeList(cmd.Context(), values)
	if err != nil {
		return err
	}

	if !cl.HasFilters {
		fmt.Fprintf(cmd.OutOrStdout(), "no filters configured for %s\n", cl.Model.Table)
		return nil
	}
	for _, spec := range cl.FilterSpecs {
		if !spec.HasOutput() {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "By %s:\n", spec.Title())
		for _, choice := range spec.Choices() {
			marker := " "
			if choice.Selected {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\t%s\n", marker, choice.Display, choice.QueryString)
		}
	}
	return nil
}
