package changelist

import (
	"context"

	"github.com/arthur-debert/changelist/changelist/schema"
)

// booleanSpec filters a boolean field: All, Yes, No, and Unknown when
// the field is nullable.
type booleanSpec struct {
	baseSpec
	title   string
	choices []FilterChoice
}

func newBooleanSpec(ctx context.Context, cl *ChangeList, f *schema.Field) (FilterSpec, error) {
	kwarg := f.Column + "__exact"
	isnullKwarg := f.Column + "__isnull"
	val, valSet := cl.params[kwarg]
	isnullVal := cl.params[isnullKwarg]

	var choices []FilterChoice
	for _, link := range []struct {
		display string
		value   string
	}{
		{"All", ""},
		{"Yes", "1"},
		{"No", "0"},
	} {
		var set map[string]*string
		selected := isnullVal == ""
		if link.value == "" {
			set = map[string]*string{kwarg: nil}
			selected = selected && !valSet
		} else {
			set = map[string]*string{kwarg: Value(link.value)}
			selected = selected && valSet && val == link.value
		}
		choices = append(choices, FilterChoice{
			Selected:    selected,
			QueryString: cl.QueryString(set, []string{isnullKwarg}),
			Display:     link.display,
		})
	}
	if f.Kind == schema.NullBool {
		choices = append(choices, FilterChoice{
			Selected:    isnullVal == "True",
			QueryString: cl.QueryString(map[string]*string{isnullKwarg: Value("True")}, []string{kwarg}),
			Display:     "Unknown",
		})
	}
	return &booleanSpec{title: f.Verbose, choices: choices}, nil
}

func (s *booleanSpec) Title() string { return s.title }

func (s *booleanSpec) Choices() []FilterChoice { return s.choices }
