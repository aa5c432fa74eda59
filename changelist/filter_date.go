package changelist

import (
	"context"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/changelist/changelist/schema"
)

// dateSpec filters a date field by common ranges relative to today.
type dateSpec struct {
	baseSpec
	title   string
	choices []FilterChoice
}

func newDateSpec(ctx context.Context, cl *ChangeList, f *schema.Field) (FilterSpec, error) {
	generic := f.Column + "__"
	dateParams := make(map[string]string)
	for k, v := range cl.params {
		if strings.HasPrefix(k, generic) {
			dateParams[k] = v
		}
	}

	now := cl.admin.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := today.AddDate(0, 0, -7)
	todayEnd := today.Format("2006-01-02")
	if f.Kind == schema.DateTime {
		todayEnd += " 23:59:59"
	}

	links := []struct {
		display string
		params  map[string]string
	}{
		{"Any date", map[string]string{}},
		{"Today", map[string]string{
			generic + "year":  strconv.Itoa(today.Year()),
			generic + "month": strconv.Itoa(int(today.Month())),
			generic + "day":   strconv.Itoa(today.Day()),
		}},
		{"Past 7 days", map[string]string{
			generic + "gte": weekAgo.Format("2006-01-02"),
			generic + "lte": todayEnd,
		}},
		{"This month", map[string]string{
			generic + "year":  strconv.Itoa(today.Year()),
			generic + "month": strconv.Itoa(int(today.Month())),
		}},
		{"This year", map[string]string{
			generic + "year": strconv.Itoa(today.Year()),
		}},
	}

	choices := make([]FilterChoice, 0, len(links))
	for _, link := range links {
		set := make(map[string]*string, len(link.params))
		for k, v := range link.params {
			set[k] = Value(v)
		}
		choices = append(choices, FilterChoice{
			Selected:    maps.Equal(dateParams, link.params),
			QueryString: cl.QueryString(set, []string{generic}),
			Display:     link.display,
		})
	}
	return &dateSpec{title: f.Verbose, choices: choices}, nil
}

func (s *dateSpec) Title() string { return s.title }

func (s *dateSpec) Choices() []FilterChoice { return s.choices }
