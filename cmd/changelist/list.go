package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/changelist/changelist"
	"github.com/arthur-debert/changelist/formats"
	"github.com/arthur-debert/changelist/internal/validation"
)

var (
	listFilters []string
	listSearch  string
	listOrder   string
	listPage    int
	listAll     bool
)

var listCmd = &cobra.Command{
	Use:   "list <model>",
	Short: "List records the way the admin change list would",
	Long: `List one page of records, applying the same filtering, search,
ordering, and pagination the admin change list derives from a query
string.

Filters are field lookups: --filter year=2005, --filter year__gte=2000,
--filter author__name__icontains=munro. Ordering uses list column
indexes, with a leading '-' for descending: --order 1,0.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringArrayVar(&listFilters, "filter", nil, "field lookup as field=value (repeatable)")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "search query")
	listCmd.Flags().StringVar(&listOrder, "order", "", "comma-separated column indexes, '-' descends")
	listCmd.Flags().IntVar(&listPage, "page", 0, "zero-based page number")
	listCmd.Flags().BoolVar(&listAll, "all", false, "show all results on one page")
}

// queryValues assembles the change list query string from CLI flags.
func queryValues(filters []string, search, order string, page int, all bool) (url.Values, error) {
	values, err := validation.ParsePairs(filters)
	if err != nil {
		return nil, err
	}
	if search != "" {
		values.Set(changelist.SearchVar, search)
	}
	if order != "" {
		values.Set(changelist.OrderVar, order)
	}
	if page > 0 {
		values.Set(changelist.PageVar, strconv.Itoa(page))
	}
	if all {
		values.Set(changelist.AllVar, "1")
	}
	return values, nil
}

func runList(cmd *cobra.Command, args []string) error {
	site, db, err := openSite()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	admin, err := adminFor(site, args[0])
	if err != nil {
		return err
	}
	values, err := queryValues(listFilters, listSearch, listOrder, listPage, listAll)
	if err != nil {
		return err
	}

	cl, err := admin.ChangeList(cmd.Context(), values)
	if err != nil {
		var lookupErr *changelist.IncorrectLookupParameters
		if errors.As(err, &lookupErr) {
			return fmt.Errorf("invalid lookup parameters: %w", err)
		}
		if errors.Is(err, changelist.ErrDisallowedLookup) {
			return fmt.Errorf("lookup not allowed: %w", err)
		}
		return err
	}
	mainLogger.Debug("built change list",
		"model", cl.Model.Table,
		"results", cl.ResultCount,
		"total", cl.FullResultCount,
		"page", cl.PageNum)

	format, err := formats.Get(viperInst.GetString("format"))
	if err != nil {
		return err
	}
	page, err := formats.NewPage(cl)
	if err != nil {
		return err
	}
	out, err := format.Render(page)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if cl.MultiPage && !viperInst.GetBool("quiet") {
		fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d\n", cl.PageNum+1, cl.Paginator.NumPages())
	}
	return nil
}
