package changelist

import (
	"context"
	"fmt"

	"github.com/arthur-debert/changelist/changelist/queryset"
	"github.com/arthur-debert/changelist/changelist/schema"
)

// relatedSpec filters on a relation, one choice per related row.
type relatedSpec struct {
	baseSpec
	title    string
	choices  []FilterChoice
	objects  int
	nullable bool
}

func newRelatedSpec(ctx context.Context, cl *ChangeList, f *schema.Field) (FilterSpec, error) {
	rel := f.Rel
	if rel.To == nil {
		return nil, fmt.Errorf("field %q of model %s relates to an unregistered model", f.Column, cl.Model.Table)
	}
	to := rel.To

	title := f.Verbose
	if rel.Kind == schema.ManyToMany {
		title = to.Verbose
	}

	kwarg := fmt.Sprintf("%s__%s__exact", f.Column, to.PK.Column)
	isnullKwarg := f.Column + "__isnull"
	val, valSet := cl.params[kwarg]
	isnullVal := cl.params[isnullKwarg]

	ordering := to.Ordering
	if len(ordering) == 0 {
		ordering = []string{to.PK.Column}
	}
	qs, err := queryset.New(cl.admin.db, to).OrderBy(ordering...)
	if err != nil {
		return nil, err
	}
	rows, err := qs.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s choices: %w", f.Column, err)
	}

	// A many-to-many filter always offers (None): rows with no links.
	nullable := f.Null || rel.Kind == schema.ManyToMany
	choices := make([]FilterChoice, 0, len(rows)+2)
	choices = append(choices, FilterChoice{
		Selected:    !valSet && isnullVal == "",
		QueryString: cl.QueryString(nil, []string{kwarg, isnullKwarg}),
		Display:     "All",
	})
	for _, row := range rows {
		pk := fmt.Sprintf("%v", row.PK)
		choices = append(choices, FilterChoice{
			Selected:    valSet && val == pk,
			QueryString: cl.QueryString(map[string]*string{kwarg: Value(pk)}, []string{isnullKwarg}),
			Display:     rowLabel(to, row),
		})
	}
	if nullable {
		choices = append(choices, FilterChoice{
			Selected:    isnullVal == "True",
			QueryString: cl.QueryString(map[string]*string{isnullKwarg: Value("True")}, []string{kwarg}),
			Display:     EmptyChangeListValue,
		})
	}
	return &relatedSpec{title: title, choices: choices, objects: len(rows), nullable: nullable}, nil
}

func (s *relatedSpec) Title() string { return s.title }

func (s *relatedSpec) Choices() []FilterChoice { return s.choices }

// HasOutput hides the filter when there is nothing to choose between.
func (s *relatedSpec) HasOutput() bool { return s.objects > 1 || s.nullable }
