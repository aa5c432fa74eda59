package changelist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/arthur-debert/changelist/changelist/schema"
)

// allValuesSpec is the fallback filter: one choice per distinct value
// the field takes across the whole table, unfiltered.
type allValuesSpec struct {
	baseSpec
	title   string
	choices []FilterChoice
}

func newAllValuesSpec(ctx context.Context, cl *ChangeList, f *schema.Field) (FilterSpec, error) {
	kwarg := f.Column
	isnullKwarg := f.Column + "__isnull"
	val, valSet := cl.params[kwarg]
	isnullVal := cl.params[isnullKwarg]

	values, err := cl.Root.DistinctValues(ctx, f.Column)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s values: %w", f.Column, err)
	}

	choices := make([]FilterChoice, 0, len(values)+1)
	choices = append(choices, FilterChoice{
		Selected:    !valSet && isnullVal == "",
		QueryString: cl.QueryString(nil, []string{kwarg, isnullKwarg}),
		Display:     "All",
	})
	hasNull := false
	for _, v := range values {
		if v == nil {
			hasNull = true
			continue
		}
		s := paramValue(f, v)
		choices = append(choices, FilterChoice{
			Selected:    valSet && val == s,
			QueryString: cl.QueryString(map[string]*string{kwarg: Value(s)}, []string{isnullKwarg}),
			Display:     s,
		})
	}
	if hasNull {
		choices = append(choices, FilterChoice{
			Selected:    isnullVal == "True",
			QueryString: cl.QueryString(map[string]*string{isnullKwarg: Value("True")}, []string{kwarg}),
			Display:     EmptyChangeListValue,
		})
	}
	return &allValuesSpec{title: f.Verbose, choices: choices}, nil
}

func (s *allValuesSpec) Title() string { return s.title }

func (s *allValuesSpec) Choices() []FilterChoice { return s.choices }

// paramValue renders a field value the way it appears in a query
// string parameter, so the resulting lookup matches the row.
func paramValue(f *schema.Field, v any) string {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case time.Time:
		if f.Kind == schema.DateTime {
			return x.Format("2006-01-02 15:04:05")
		}
		return x.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}
