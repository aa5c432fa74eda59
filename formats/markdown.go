package formats

import (
	"fmt"
	"strings"
)

// Markdown format implementation: a pipe table under the page title.
var Markdown = &PageFormat{
	Name:      "markdown",
	Extension: ".md",
	Render: func(page *Page) (string, error) {
		var b strings.Builder
		if page.Title != "" {
			b.WriteString("# ")
			b.WriteString(page.Title)
			b.WriteString("\n\n")
		}

		titles := make([]string, len(page.Columns))
		rules := make([]string, len(page.Columns))
		for i, c := range page.Columns {
			titles[i] = escapePipes(c.Title)
			rules[i] = "---"
		}
		writeMarkdownRow(&b, titles)
		writeMarkdownRow(&b, rules)
		for _, row := range page.Rows {
			cells := make([]string, len(row.Cells))
			for i, cell := range row.Cells {
				cells[i] = escapePipes(cell)
			}
			writeMarkdownRow(&b, cells)
		}

		b.WriteString("\n")
		b.WriteString(page.Summary())
		b.WriteString("\n")
		return b.String(), nil
	},
}

func writeMarkdownRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	if err := Register(Markdown); err != nil {
		panic(fmt.Sprintf("failed to register Markdown format: %v", err))
	}
}
