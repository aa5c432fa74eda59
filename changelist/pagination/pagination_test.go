package pagination_test

import (
	"context"
	"errors"
	"testing"

	"github.com/arthur-debert/changelist/changelist/pagination"
	"github.com/arthur-debert/changelist/changelist/queryset"
	"github.com/arthur-debert/changelist/changelist/testutil"
)

func paginate(t *testing.T, qs *queryset.QuerySet, perPage int) *pagination.Paginator {
	t.Helper()
	p, err := pagination.New(context.Background(), qs, perPage)
	if err != nil {
		t.Fatalf("failed to build paginator: %v", err)
	}
	return p
}

func orderedBooks(t *testing.T) *queryset.QuerySet {
	t.Helper()
	u := testutil.LoadUniverse(t)
	qs, err := queryset.New(u.DB, u.Models.Books).OrderBy("pk")
	if err != nil {
		t.Fatalf("OrderBy failed: %v", err)
	}
	return qs
}

func TestPaginatorShape(t *testing.T) {
	p := paginate(t, orderedBooks(t), 3)

	if p.Count() != testutil.BookCount {
		t.Errorf("expected count %d, got %d", testutil.BookCount, p.Count())
	}
	if p.NumPages() != 3 {
		t.Errorf("expected 3 pages, got %d", p.NumPages())
	}
	want := []int{1, 2, 3}
	got := p.PageRange()
	if len(got) != len(want) {
		t.Fatalf("expected page range %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected page range %v, got %v", want, got)
		}
	}
}

func TestPageRows(t *testing.T) {
	p := paginate(t, orderedBooks(t), 3)
	ctx := context.Background()

	tests := []struct {
		number int
		want   []int64
	}{
		{1, []int64{1, 2, 3}},
		{2, []int64{4, 5, 6}},
		{3, []int64{7}},
	}

	for _, tt := range tests {
		page, err := p.Page(tt.number)
		if err != nil {
			t.Fatalf("Page(%d) failed: %v", tt.number, err)
		}
		rows, err := page.Rows(ctx)
		if err != nil {
			t.Fatalf("Rows for page %d failed: %v", tt.number, err)
		}
		testutil.AssertPKs(t, rows, tt.want...)
	}
}

func TestPageNavigation(t *testing.T) {
	p := paginate(t, orderedBooks(t), 3)

	first, err := p.Page(1)
	if err != nil {
		t.Fatalf("Page(1) failed: %v", err)
	}
	if first.HasPrevious() || !first.HasNext() || !first.HasOtherPages() {
		t.Errorf("unexpected navigation flags on first page: prev=%v next=%v", first.HasPrevious(), first.HasNext())
	}
	if first.Start() != 1 || first.End() != 3 {
		t.Errorf("expected first page to span 1-3, got %d-%d", first.Start(), first.End())
	}

	last, err := p.Page(3)
	if err != nil {
		t.Fatalf("Page(3) failed: %v", err)
	}
	if !last.HasPrevious() || last.HasNext() {
		t.Errorf("unexpected navigation flags on last page: prev=%v next=%v", last.HasPrevious(), last.HasNext())
	}
	if last.Start() != 7 || last.End() != 7 {
		t.Errorf("expected last page to span 7-7, got %d-%d", last.Start(), last.End())
	}
}

func TestInvalidPages(t *testing.T) {
	p := paginate(t, orderedBooks(t), 3)

	for _, number := range []int{0, -1, 4, 100} {
		if _, err := p.Page(number); !errors.Is(err, pagination.ErrInvalidPage) {
			t.Errorf("expected Page(%d) to return ErrInvalidPage, got %v", number, err)
		}
	}
}

func TestEmptyResults(t *testing.T) {
	qs, err := orderedBooks(t).Filter("year", "1901")
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	p := paginate(t, qs, 3)

	if p.Count() != 0 {
		t.Errorf("expected count 0, got %d", p.Count())
	}
	if p.NumPages() != 1 {
		t.Errorf("expected a single empty page, got %d", p.NumPages())
	}

	page, err := p.Page(1)
	if err != nil {
		t.Fatalf("expected page 1 of empty results to be valid, got %v", err)
	}
	rows, err := page.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	testutil.AssertRowCount(t, rows, 0)
	if page.Start() != 0 || page.End() != 0 {
		t.Errorf("expected empty page to span 0-0, got %d-%d", page.Start(), page.End())
	}
	if page.HasOtherPages() {
		t.Error("expected no other pages for empty results")
	}

	if _, err := p.Page(2); !errors.Is(err, pagination.ErrInvalidPage) {
		t.Errorf("expected page 2 of empty results to be invalid, got %v", err)
	}
}

func TestBadPerPage(t *testing.T) {
	if _, err := pagination.New(context.Background(), orderedBooks(t), 0); err == nil {
		t.Fatal("expected a zero per-page size to be rejected")
	}
}
