// Package pagination splits a query set into fixed-size, 1-based pages.
package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/arthur-debert/changelist/changelist/queryset"
)

// ErrInvalidPage reports a page number outside the paginator's range.
// Callers test for it with errors.Is.
var ErrInvalidPage = errors.New("invalid page")

// Paginator slices a query set into pages of a fixed size. The total
// count is taken once, when the paginator is built.
type Paginator struct {
	qs      *queryset.QuerySet
	perPage int
	count   int
}

// New counts the query set and returns a paginator over it. perPage
// must be positive.
func New(ctx context.Context, qs *queryset.QuerySet, perPage int) (*Paginator, error) {
	if perPage < 1 {
		return nil, fmt.Errorf("per-page size must be positive, got %d", perPage)
	}
	count, err := qs.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}
	return &Paginator{qs: qs, perPage: perPage, count: count}, nil
}

// Count returns the total number of rows across all pages.
func (p *Paginator) Count() int {
	return p.count
}

// PerPage returns the page size.
func (p *Paginator) PerPage() int {
	return p.perPage
}

// NumPages returns the number of pages. An empty query set still has
// one (empty) page.
func (p *Paginator) NumPages() int {
	if p.count == 0 {
		return 1
	}
	return (p.count + p.perPage - 1) / p.perPage
}

// PageRange returns the page numbers from 1 through NumPages.
func (p *Paginator) PageRange() []int {
	pages := make([]int, p.NumPages())
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// Page returns the 1-based page, or ErrInvalidPage when the number is
// out of range. Page 1 of an empty paginator is valid.
func (p *Paginator) Page(number int) (*Page, error) {
	if number < 1 {
		return nil, fmt.Errorf("page number %d is less than 1: %w", number, ErrInvalidPage)
	}
	if number > p.NumPages() {
		return nil, fmt.Errorf("page %d contains no results: %w", number, ErrInvalidPage)
	}
	return &Page{Number: number, paginator: p}, nil
}

// Page is one window into the paginated query set.
type Page struct {
	Number    int
	paginator *Paginator
}

// Rows fetches the page's slice of the query set.
func (pg *Page) Rows(ctx context.Context) ([]*queryset.Row, error) {
	p := pg.paginator
	return p.qs.Slice((pg.Number-1)*p.perPage, p.perPage).Fetch(ctx)
}

// HasNext reports whether a page follows this one.
func (pg *Page) HasNext() bool {
	return pg.Number < pg.paginator.NumPages()
}

// HasPrevious reports whether a page precedes this one.
func (pg *Page) HasPrevious() bool {
	return pg.Number > 1
}

// HasOtherPages reports whether the results span more than this page.
func (pg *Page) HasOtherPages() bool {
	return pg.HasPrevious() || pg.HasNext()
}

// Start returns the 1-based index of the page's first row within the
// full result set, or 0 when there are no results.
func (pg *Page) Start() int {
	if pg.paginator.count == 0 {
		return 0
	}
	return (pg.Number-1)*pg.paginator.perPage + 1
}

// End returns the 1-based index of the page's last row within the full
// result set.
func (pg *Page) End() int {
	if pg.Number == pg.paginator.NumPages() {
		return pg.paginator.count
	}
	return pg.Number * pg.paginator.perPage
}
