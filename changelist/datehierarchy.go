package changelist

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// DateHierarchyNav is the drilldown state for the date hierarchy: a
// back link (nil at the top level) and the next level's choices.
type DateHierarchyNav struct {
	Show    bool
	Back    *FilterChoice
	Choices []FilterChoice
}

// DateHierarchy builds the year/month/day drilldown over the admin's
// date hierarchy field, scoped to the current filters. Show is false
// when the admin has no date hierarchy.
func (cl *ChangeList) DateHierarchy(ctx context.Context) (*DateHierarchyNav, error) {
	fieldName := cl.admin.opts.DateHierarchy
	if fieldName == "" {
		return &DateHierarchyNav{}, nil
	}
	f, _ := cl.Model.FieldByName(fieldName)
	yearField := f.Column + "__year"
	monthField := f.Column + "__month"
	dayField := f.Column + "__day"
	generic := f.Column + "__"

	yearVal := cl.params[yearField]
	monthVal := cl.params[monthField]
	dayVal := cl.params[dayField]

	link := func(set map[string]*string) string {
		return cl.QueryString(set, []string{generic})
	}

	switch {
	case yearVal != "" && monthVal != "" && dayVal != "":
		day, err := drillDate(yearVal, monthVal, dayVal)
		if err != nil {
			return nil, &IncorrectLookupParameters{Err: err}
		}
		return &DateHierarchyNav{
			Show: true,
			Back: &FilterChoice{
				QueryString: link(map[string]*string{yearField: Value(yearVal), monthField: Value(monthVal)}),
				Display:     day.Format("January 2006"),
			},
			Choices: []FilterChoice{{Selected: true, Display: day.Format("January 2")}},
		}, nil

	case yearVal != "" && monthVal != "":
		days, err := cl.QuerySet.DateValues(ctx, f.Column, "day")
		if err != nil {
			return nil, err
		}
		choices := make([]FilterChoice, 0, len(days))
		for _, d := range days {
			choices = append(choices, FilterChoice{
				QueryString: link(map[string]*string{
					yearField:  Value(yearVal),
					monthField: Value(monthVal),
					dayField:   Value(strconv.Itoa(d.Day())),
				}),
				Display: d.Format("January 2"),
			})
		}
		return &DateHierarchyNav{
			Show:    true,
			Back:    &FilterChoice{QueryString: link(map[string]*string{yearField: Value(yearVal)}), Display: yearVal},
			Choices: choices,
		}, nil

	case yearVal != "":
		months, err := cl.QuerySet.DateValues(ctx, f.Column, "month")
		if err != nil {
			return nil, err
		}
		choices := make([]FilterChoice, 0, len(months))
		for _, m := range months {
			choices = append(choices, FilterChoice{
				QueryString: link(map[string]*string{
					yearField:  Value(yearVal),
					monthField: Value(strconv.Itoa(int(m.Month()))),
				}),
				Display: m.Format("January 2006"),
			})
		}
		return &DateHierarchyNav{
			Show:    true,
			Back:    &FilterChoice{QueryString: link(nil), Display: "All dates"},
			Choices: choices,
		}, nil

	default:
		years, err := cl.QuerySet.DateValues(ctx, f.Column, "year")
		if err != nil {
			return nil, err
		}
		choices := make([]FilterChoice, 0, len(years))
		for _, y := range years {
			choices = append(choices, FilterChoice{
				QueryString: link(map[string]*string{yearField: Value(strconv.Itoa(y.Year()))}),
				Display:     strconv.Itoa(y.Year()),
			})
		}
		return &DateHierarchyNav{Show: true, Choices: choices}, nil
	}
}

// drillDate validates the drilled-down date parameters.
func drillDate(year, month, day string) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad year %q", year)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("bad month %q", month)
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("bad day %q", day)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}
