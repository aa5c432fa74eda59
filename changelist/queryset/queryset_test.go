package queryset_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/changelist/changelist/queryset"
	"github.com/arthur-debert/changelist/changelist/schema"
	"github.com/arthur-debert/changelist/changelist/testutil"
)

func books(t *testing.T) (*queryset.QuerySet, *testutil.Universe) {
	t.Helper()
	u := testutil.LoadUniverse(t)
	return queryset.New(u.DB, u.Models.Books), u
}

func filter(t *testing.T, qs *queryset.QuerySet, param string, value any) *queryset.QuerySet {
	t.Helper()
	out, err := qs.Filter(param, value)
	if err != nil {
		t.Fatalf("Filter(%q, %v) failed: %v", param, value, err)
	}
	return out
}

func fetch(t *testing.T, qs *queryset.QuerySet) []*queryset.Row {
	t.Helper()
	rows, err := qs.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	return rows
}

func TestFilterExact(t *testing.T) {
	qs, _ := books(t)

	tests := []struct {
		name  string
		param string
		value any
		want  []int64
	}{
		{"integer from string", "year", "2005", []int64{testutil.BookBorderCrossings, testutil.BookSignalFires}},
		{"integer from int", "year", 2005, []int64{testutil.BookBorderCrossings, testutil.BookSignalFires}},
		{"choice column", "binding", "h", []int64{testutil.BookBorderCrossings, testutil.BookGoldHarbor, testutil.BookGoldLine}},
		{"boolean from string", "in_print", "1", []int64{1, 2, 4, 6, 7}},
		{"date column", "published", "2014-03-09", []int64{testutil.BookQuietCoast}},
		{"no matches", "year", "1901", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := fetch(t, filter(t, qs, tt.param, tt.value))
			testutil.AssertPKSet(t, rows, tt.want...)
		})
	}
}

func TestFilterAcrossRelations(t *testing.T) {
	qs, _ := books(t)

	tests := []struct {
		name  string
		param string
		value any
		want  []int64
	}{
		{"foreign key by id", "author", "1", []int64{1, 3, 7}},
		{"foreign key pk path", "author__pk", "1", []int64{1, 3, 7}},
		{"joined column", "author__name", "Alice Munro", []int64{1, 3, 7}},
		{"joined column operator", "author__name__icontains", "munro", []int64{1, 3, 7}},
		{"many to many by id", "contributors", "2", []int64{1, 2, 4}},
		{"many to many joined column", "contributors__name", "Ed Park", []int64{1, 2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := fetch(t, filter(t, qs, tt.param, tt.value))
			testutil.AssertPKSet(t, rows, tt.want...)
		})
	}
}

func TestFilterIn(t *testing.T) {
	qs, _ := books(t)

	tests := []struct {
		name  string
		param string
		value any
		want  []int64
	}{
		{"comma separated string", "pk__in", "5,1", []int64{1, 5}},
		{"string slice", "year__in", []string{"1999", "2021"}, []int64{5, 7}},
		{"single element", "pk__in", "3", []int64{3}},
		{"empty slice matches nothing", "pk__in", []string{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := fetch(t, filter(t, qs, tt.param, tt.value))
			testutil.AssertPKSet(t, rows, tt.want...)
		})
	}
}

func TestFilterIsNull(t *testing.T) {
	qs, _ := books(t)

	tests := []struct {
		name  string
		param string
		value string
		want  []int64
	}{
		{"true", "year__isnull", "true", []int64{4}},
		{"one", "year__isnull", "1", []int64{4}},
		{"arbitrary string means null", "year__isnull", "yes", []int64{4}},
		{"false", "year__isnull", "false", []int64{1, 2, 3, 5, 6, 7}},
		{"zero", "year__isnull", "0", []int64{1, 2, 3, 5, 6, 7}},
		{"empty string means not null", "year__isnull", "", []int64{1, 2, 3, 5, 6, 7}},
		{"foreign key", "author__isnull", "True", []int64{5}},
		{"nullable boolean", "rating__isnull", "true", []int64{3, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := fetch(t, filter(t, qs, tt.param, tt.value))
			testutil.AssertPKSet(t, rows, tt.want...)
		})
	}
}

func TestFilterTextOperators(t *testing.T) {
	qs, _ := books(t)

	tests := []struct {
		name  string
		param string
		value string
		want  []int64
	}{
		{"icontains", "title__icontains", "harbor", []int64{5, 6}},
		{"istartswith", "title__istartswith", "gold", []int64{5}},
		{"iendswith", "title__iendswith", "AGAIN", []int64{6}},
		{"iexact", "title__iexact", "gold harbor", []int64{5}},
		{"wildcards are literals", "title__icontains", "100%", nil},
		{"underscore is literal", "title__icontains", "b_rder", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := fetch(t, filter(t, qs, tt.param, tt.value))
			testutil.AssertPKSet(t, rows, tt.want...)
		})
	}
}

func TestFilterDateParts(t *testing.T) {
	qs, _ := books(t)

	tests := []struct {
		name  string
		param string
		value string
		want  []int64
	}{
		{"year of date", "published__year", "2014", []int64{3, 6}},
		{"month", "published__month", "12", []int64{6}},
		{"day", "published__day", "1", []int64{1}},
		{"year of datetime", "created_at__year", "2016", []int64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := fetch(t, filter(t, qs, tt.param, tt.value))
			testutil.AssertPKSet(t, rows, tt.want...)
		})
	}
}

func TestFilterDateRanges(t *testing.T) {
	qs, _ := books(t)

	tests := []struct {
		name  string
		param string
		value string
		want  []int64
	}{
		{"published on or after", "published__gte", "2014-01-01", []int64{3, 6, 7}},
		{"published before", "published__lt", "2005-07-01", []int64{1, 5}},
		{"created on or after instant", "created_at__gte", "2014-12-31 11:05:00", []int64{4, 6, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := fetch(t, filter(t, qs, tt.param, tt.value))
			testutil.AssertPKSet(t, rows, tt.want...)
		})
	}
}

func TestFilterQ(t *testing.T) {
	qs, _ := books(t)

	t.Run("or", func(t *testing.T) {
		filtered, err := qs.FilterQ(queryset.Or(
			queryset.Where("year", "2005"),
			queryset.Where("year__isnull", "true"),
		))
		if err != nil {
			t.Fatalf("FilterQ failed: %v", err)
		}
		testutil.AssertPKSet(t, fetch(t, filtered), 1, 2, 4)
	})

	t.Run("nested and of or", func(t *testing.T) {
		filtered, err := qs.FilterQ(queryset.And(
			queryset.Where("binding", "h"),
			queryset.Or(
				queryset.Where("year", "1999"),
				queryset.Where("year", "2021"),
			),
		))
		if err != nil {
			t.Fatalf("FilterQ failed: %v", err)
		}
		testutil.AssertPKSet(t, fetch(t, filtered), 5, 7)
	})

	t.Run("empty q is a no-op", func(t *testing.T) {
		filtered, err := qs.FilterQ(queryset.And())
		if err != nil {
			t.Fatalf("FilterQ failed: %v", err)
		}
		if filtered.IsFiltered() {
			t.Error("expected empty Q to leave the query set unfiltered")
		}
		testutil.AssertRowCount(t, fetch(t, filtered), testutil.BookCount)
	})
}

func TestOrderBy(t *testing.T) {
	qs, _ := books(t)

	tests := []struct {
		name  string
		specs []string
		want  []int64
	}{
		{"primary key", []string{"pk"}, []int64{1, 2, 3, 4, 5, 6, 7}},
		{"descending year then title, nulls sort last", []string{"-year", "title"}, []int64{7, 6, 3, 1, 2, 5, 4}},
		{"joined column, nulls sort first", []string{"author__name", "pk"}, []int64{5, 1, 3, 7, 2, 6, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered, err := qs.OrderBy(tt.specs...)
			if err != nil {
				t.Fatalf("OrderBy(%v) failed: %v", tt.specs, err)
			}
			testutil.AssertPKs(t, fetch(t, ordered), tt.want...)
		})
	}
}

func TestSlice(t *testing.T) {
	qs, _ := books(t)
	ordered, err := qs.OrderBy("pk")
	if err != nil {
		t.Fatalf("OrderBy failed: %v", err)
	}

	t.Run("offset and limit", func(t *testing.T) {
		testutil.AssertPKs(t, fetch(t, ordered.Slice(2, 3)), 3, 4, 5)
	})

	t.Run("offset without limit", func(t *testing.T) {
		testutil.AssertPKs(t, fetch(t, ordered.Slice(5, -1)), 6, 7)
	})

	t.Run("zero limit", func(t *testing.T) {
		testutil.AssertRowCount(t, fetch(t, ordered.Slice(0, 0)), 0)
	})

	t.Run("slicing does not affect count", func(t *testing.T) {
		n, err := ordered.Slice(2, 3).Count(context.Background())
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != testutil.BookCount {
			t.Errorf("expected count %d, got %d", testutil.BookCount, n)
		}
	})
}

func TestCount(t *testing.T) {
	qs, _ := books(t)

	n, err := qs.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != testutil.BookCount {
		t.Errorf("expected count %d, got %d", testutil.BookCount, n)
	}
	if qs.IsFiltered() {
		t.Error("expected fresh query set to be unfiltered")
	}

	filtered := filter(t, qs, "year", "2005")
	n, err = filtered.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}
	if !filtered.IsFiltered() {
		t.Error("expected filtered query set to report IsFiltered")
	}
}

func TestDistinct(t *testing.T) {
	qs, _ := books(t)
	filtered := filter(t, qs, "contributors__pk__in", "1,2")

	// Books 1 and 4 match through two contributors each, so the plain
	// join yields duplicate rows.
	testutil.AssertRowCount(t, fetch(t, filtered), 6)

	distinct := filtered.Distinct()
	testutil.AssertPKSet(t, fetch(t, distinct), 1, 2, 4, 7)

	n, err := distinct.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected distinct count 4, got %d", n)
	}
}

func TestSelectRelated(t *testing.T) {
	qs, _ := books(t)
	ordered, err := qs.SelectRelated().OrderBy("pk")
	if err != nil {
		t.Fatalf("OrderBy failed: %v", err)
	}
	rows := fetch(t, ordered)
	testutil.AssertRowCount(t, rows, testutil.BookCount)

	first := rows[0]
	author := first.Related["author"]
	if author == nil {
		t.Fatal("expected book 1 to carry its related author row")
	}
	if name, _ := author.Get("name"); name != "Alice Munro" {
		t.Errorf("expected related author name %q, got %v", "Alice Munro", name)
	}
	if author.PK != int64(1) {
		t.Errorf("expected related author pk 1, got %v", author.PK)
	}
	if fk, _ := first.Get("author"); fk != int64(1) {
		t.Errorf("expected foreign key value 1, got %v", fk)
	}

	orphan := rows[4]
	if orphan.PK != testutil.BookGoldHarbor {
		t.Fatalf("expected row 5 to be Gold Harbor, got pk %v", orphan.PK)
	}
	if _, ok := orphan.Related["author"]; ok {
		t.Error("expected authorless book to carry no related author row")
	}
}

func TestSelectRelatedSharesOrderingJoin(t *testing.T) {
	qs, _ := books(t)
	ordered, err := qs.SelectRelated().OrderBy("author__name", "pk")
	if err != nil {
		t.Fatalf("OrderBy failed: %v", err)
	}
	rows := fetch(t, ordered)
	testutil.AssertPKs(t, rows, 5, 1, 3, 7, 2, 6, 4)
	if rows[1].Related["author"] == nil {
		t.Error("expected related author rows to be hydrated")
	}
}

func TestDistinctValues(t *testing.T) {
	qs, _ := books(t)
	ctx := context.Background()

	t.Run("integers include null", func(t *testing.T) {
		got, err := qs.DistinctValues(ctx, "year")
		if err != nil {
			t.Fatalf("DistinctValues failed: %v", err)
		}
		want := []any{nil, int64(1999), int64(2005), int64(2014), int64(2021)}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("strings", func(t *testing.T) {
		got, err := qs.DistinctValues(ctx, "binding")
		if err != nil {
			t.Fatalf("DistinctValues failed: %v", err)
		}
		want := []any{"e", "h", "p"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("joined column", func(t *testing.T) {
		got, err := qs.DistinctValues(ctx, "author__name")
		if err != nil {
			t.Fatalf("DistinctValues failed: %v", err)
		}
		want := []any{nil, "Alice Munro", "Ben Okri", "Carmen Maria"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("dates parse to times", func(t *testing.T) {
		got, err := qs.DistinctValues(ctx, "published")
		if err != nil {
			t.Fatalf("DistinctValues failed: %v", err)
		}
		if len(got) != 7 {
			t.Fatalf("expected 7 distinct values, got %d: %v", len(got), got)
		}
		if got[0] != nil {
			t.Errorf("expected leading null, got %v", got[0])
		}
		want := time.Date(1999, time.January, 20, 0, 0, 0, 0, time.UTC)
		if !want.Equal(got[1].(time.Time)) {
			t.Errorf("expected %v, got %v", want, got[1])
		}
	})

	t.Run("respects filters", func(t *testing.T) {
		got, err := filter(t, qs, "in_print", "1").DistinctValues(ctx, "year")
		if err != nil {
			t.Fatalf("DistinctValues failed: %v", err)
		}
		want := []any{nil, int64(2005), int64(2014), int64(2021)}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

func TestDateValues(t *testing.T) {
	qs, _ := books(t)
	ctx := context.Background()

	t.Run("years skip null", func(t *testing.T) {
		got, err := qs.DateValues(ctx, "published", "year")
		if err != nil {
			t.Fatalf("DateValues failed: %v", err)
		}
		want := []int{1999, 2005, 2014, 2021}
		if len(got) != len(want) {
			t.Fatalf("expected %d years, got %v", len(want), got)
		}
		for i, y := range want {
			if got[i].Year() != y {
				t.Errorf("expected year %d at index %d, got %v", y, i, got[i])
			}
		}
	})

	t.Run("months respect filters", func(t *testing.T) {
		got, err := filter(t, qs, "published__year", "2014").DateValues(ctx, "published", "month")
		if err != nil {
			t.Fatalf("DateValues failed: %v", err)
		}
		want := []time.Time{
			time.Date(2014, time.March, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2014, time.December, 1, 0, 0, 0, 0, time.UTC),
		}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("expected %v at index %d, got %v", want[i], i, got[i])
			}
		}
	})

	t.Run("days", func(t *testing.T) {
		got, err := qs.DateValues(ctx, "published", "day")
		if err != nil {
			t.Fatalf("DateValues failed: %v", err)
		}
		if len(got) != 6 {
			t.Errorf("expected 6 distinct days, got %v", got)
		}
	})

	t.Run("rejects non-date fields", func(t *testing.T) {
		if _, err := qs.DateValues(ctx, "title", "year"); err == nil {
			t.Error("expected DateValues on a text field to fail")
		}
	})

	t.Run("rejects unknown levels", func(t *testing.T) {
		if _, err := qs.DateValues(ctx, "published", "week"); err == nil {
			t.Error("expected an unknown level to fail")
		}
	})
}

func TestFilterErrors(t *testing.T) {
	qs, _ := books(t)

	tests := []struct {
		name     string
		param    string
		value    any
		errorMsg string
	}{
		{"unknown field with suggestion", "yaer", "2005", `did you mean "year"`},
		{"bad integer", "year", "abc", "not an integer"},
		{"bad boolean", "in_print", "maybe", "not a boolean"},
		{"bad date", "published", "last tuesday", "not a date"},
		{"date part of non-date", "title__year", "2014", "requires a date field"},
		{"empty in list", "year__in", "", "not an integer"},
		{"traversing a scalar", "title__name", "x", `cannot traverse field "title"`},
		{"unknown operator suffix", "year__foo", "1", `cannot traverse field "year"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := qs.Filter(tt.param, tt.value)
			if err == nil {
				t.Fatalf("expected Filter(%q, %v) to fail", tt.param, tt.value)
			}
			var lkErr *queryset.LookupError
			if !errors.As(err, &lkErr) {
				t.Fatalf("expected a LookupError, got %T: %v", err, err)
			}
			if lkErr.Param != tt.param {
				t.Errorf("expected param %q, got %q", tt.param, lkErr.Param)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error to mention %q, got: %v", tt.errorMsg, err)
			}
		})
	}

	t.Run("suggestion is typed", func(t *testing.T) {
		_, err := qs.Filter("yaer", "2005")
		var fieldErr *schema.FieldError
		if !errors.As(err, &fieldErr) {
			t.Fatalf("expected a FieldError in the chain, got %v", err)
		}
		if fieldErr.Suggestion != "year" {
			t.Errorf("expected suggestion %q, got %q", "year", fieldErr.Suggestion)
		}
	})

	t.Run("ordering error", func(t *testing.T) {
		if _, err := qs.OrderBy("nope"); err == nil {
			t.Fatal("expected OrderBy of an unknown field to fail")
		}
	})
}

func TestParseLookup(t *testing.T) {
	tests := []struct {
		param    string
		wantPath string
		wantOp   queryset.Operator
	}{
		{"year", "year", queryset.OpExact},
		{"year__gte", "year", queryset.OpGTE},
		{"author__name", "author__name", queryset.OpExact},
		{"author__name__icontains", "author__name", queryset.OpIContains},
		{"published__isnull", "published", queryset.OpIsNull},
		{"__icontains", "__icontains", queryset.OpExact},
	}

	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			lk := queryset.ParseLookup(tt.param, "v")
			if lk.Path != tt.wantPath || lk.Op != tt.wantOp {
				t.Errorf("ParseLookup(%q) = (%q, %q), expected (%q, %q)",
					tt.param, lk.Path, lk.Op, tt.wantPath, tt.wantOp)
			}
			if lk.Param() != tt.param {
				t.Errorf("Param() = %q, expected round-trip of %q", lk.Param(), tt.param)
			}
		})
	}
}
