package changelist

import (
	"fmt"
	"html/template"
	"strings"
)

var filterTmpl = template.Must(template.New("filter").Parse(`<h3>By {{ .Title }}:</h3>
<ul>
{{- range .Choices }}
<li{{ if .Selected }} class="selected"{{ end }}><a href="{{ .QueryString }}">{{ .Display }}</a></li>
{{- end }}
</ul>
`))

// RenderFilterSpec renders one filter block: a heading and the choice
// list, with the active choice marked selected.
func RenderFilterSpec(spec FilterSpec) (template.HTML, error) {
	data := struct {
		Title   string
		Choices []FilterChoice
	}{spec.Title(), spec.Choices()}

	var b strings.Builder
	if err := filterTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render filter %q: %w", spec.Title(), err)
	}
	return template.HTML(b.String()), nil
}

// RenderFilters renders every filter spec that has output, in list
// filter order.
func (cl *ChangeList) RenderFilters() (template.HTML, error) {
	var b strings.Builder
	for _, spec := range cl.FilterSpecs {
		if !spec.HasOutput() {
			continue
		}
		block, err := RenderFilterSpec(spec)
		if err != nil {
			return "", err
		}
		b.WriteString(string(block))
	}
	return template.HTML(b.String()), nil
}
