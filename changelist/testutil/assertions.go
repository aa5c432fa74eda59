package testutil

import (
	"sort"
	"testing"

	"github.com/arthur-debert/changelist/changelist/queryset"
)

// PKs returns the primary keys of rows in result order.
func PKs(rows []*queryset.Row) []int64 {
	pks := make([]int64, 0, len(rows))
	for _, row := range rows {
		pk, _ := row.PK.(int64)
		pks = append(pks, pk)
	}
	return pks
}

// AssertPKs checks that rows carry exactly the expected primary keys,
// in order.
func AssertPKs(t *testing.T, rows []*queryset.Row, expected ...int64) {
	t.Helper()

	got := PKs(rows)
	if len(got) != len(expected) {
		t.Errorf("expected %d rows, got %d (pks %v)", len(expected), len(got), got)
		return
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("expected pks %v, got %v", expected, got)
			return
		}
	}
}

// AssertPKSet checks that rows carry exactly the expected primary keys,
// in any order.
func AssertPKSet(t *testing.T, rows []*queryset.Row, expected ...int64) {
	t.Helper()

	got := PKs(rows)
	want := append([]int64(nil), expected...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	if len(got) != len(want) {
		t.Errorf("expected %d rows, got %d (pks %v)", len(want), len(got), got)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected pks %v (any order), got %v", expected, got)
			return
		}
	}
}

// AssertRowCount checks the number of rows returned.
func AssertRowCount(t *testing.T, rows []*queryset.Row, expected int) {
	t.Helper()

	if len(rows) != expected {
		t.Errorf("expected %d rows, got %d (pks %v)", expected, len(rows), PKs(rows))
	}
}
