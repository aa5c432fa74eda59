package changelist

import (
	"context"

	"github.com/arthur-debert/changelist/changelist/schema"
)

// choicesSpec filters a field with a declared choice list, one link
// per choice.
type choicesSpec struct {
	baseSpec
	title   string
	choices []FilterChoice
}

func newChoicesSpec(ctx context.Context, cl *ChangeList, f *schema.Field) (FilterSpec, error) {
	kwarg := f.Column + "__exact"
	val, valSet := cl.params[kwarg]

	choices := make([]FilterChoice, 0, len(f.Choices)+1)
	choices = append(choices, FilterChoice{
		Selected:    !valSet,
		QueryString: cl.QueryString(nil, []string{kwarg}),
		Display:     "All",
	})
	for _, c := range f.Choices {
		choices = append(choices, FilterChoice{
			Selected:    valSet && val == c.Value,
			QueryString: cl.QueryString(map[string]*string{kwarg: Value(c.Value)}, nil),
			Display:     c.Display,
		})
	}
	return &choicesSpec{title: f.Verbose, choices: choices}, nil
}

func (s *choicesSpec) Title() string { return s.title }

func (s *choicesSpec) Choices() []FilterChoice { return s.choices }
