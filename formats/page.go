package formats

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/arthur-debert/changelist/changelist"
	"github.com/arthur-debert/changelist/changelist/queryset"
)

// Page is one page of change list results, detached from the request
// that produced it so any format can render it.
type Page struct {
	Title           string   `json:"title" yaml:"title"`
	Columns         []Column `json:"columns" yaml:"columns"`
	Rows            []Row    `json:"rows" yaml:"rows"`
	ResultCount     int      `json:"result_count" yaml:"result_count"`
	FullResultCount int      `json:"full_result_count" yaml:"full_result_count"`
	PageNum         int      `json:"page" yaml:"page"`
	NumPages        int      `json:"num_pages" yaml:"num_pages"`
}

// Column is one result column: the lookup name and the display title.
type Column struct {
	Name  string `json:"name" yaml:"name"`
	Title string `json:"title" yaml:"title"`
}

// Row is one result: the primary key and the cells, aligned with the
// page's columns.
type Row struct {
	PK    string   `json:"pk" yaml:"pk"`
	Cells []string `json:"cells" yaml:"cells"`
}

// NewPage snapshots the change list's loaded page of results.
func NewPage(cl *changelist.ChangeList) (*Page, error) {
	return PageOf(cl, cl.ResultList)
}

// PageOf renders an arbitrary row set through the change list's
// columns, for callers that fetch outside the pagination window.
func PageOf(cl *changelist.ChangeList, rows []*queryset.Row) (*Page, error) {
	headers := cl.Headers()
	columns := make([]Column, len(headers))
	for i, h := range headers {
		columns[i] = Column{Name: h.Name, Title: h.Title}
	}

	pageRows := make([]Row, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(headers))
		for i, h := range headers {
			v, err := cl.RowValue(row, h.Name)
			if err != nil {
				return nil, fmt.Errorf("failed to render column %q: %w", h.Name, err)
			}
			cells[i] = v
		}
		pageRows = append(pageRows, Row{PK: fmt.Sprintf("%v", row.PK), Cells: cells})
	}

	page := &Page{
		Title:           cl.Title,
		Columns:         columns,
		Rows:            pageRows,
		ResultCount:     cl.ResultCount,
		FullResultCount: cl.FullResultCount,
		PageNum:         cl.PageNum,
	}
	if cl.Paginator != nil {
		page.NumPages = cl.Paginator.NumPages()
	}
	return page, nil
}

// Summary is the count line rendered under tables: the result count,
// with the unfiltered total when a filter narrowed the list.
func (p *Page) Summary() string {
	results := humanize.Comma(int64(p.ResultCount))
	if p.ResultCount != p.FullResultCount {
		return fmt.Sprintf("%s results (%s total)", results, humanize.Comma(int64(p.FullResultCount)))
	}
	return fmt.Sprintf("%s results", results)
}
