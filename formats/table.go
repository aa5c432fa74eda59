package formats

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Table format implementation: tab-aligned columns with the column
// titles as the header and the summary line underneath.
var Table = &PageFormat{
	Name:      "table",
	Extension: ".txt",
	Render: func(page *Page) (string, error) {
		var b strings.Builder
		w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

		titles := make([]string, len(page.Columns))
		for i, c := range page.Columns {
			titles[i] = strings.ToUpper(c.Title)
		}
		fmt.Fprintln(w, strings.Join(titles, "\t"))
		for _, row := range page.Rows {
			fmt.Fprintln(w, strings.Join(row.Cells, "\t"))
		}
		if err := w.Flush(); err != nil {
			return "", err
		}

		b.WriteString("\n")
		b.WriteString(page.Summary())
		b.WriteString("\n")
		return b.String(), nil
	},
}

func init() {
	if err := Register(Table); err != nil {
		panic(fmt.Sprintf("failed to register Table format: %v", err))
	}
}
