package changelist

import (
	"net/url"
	"strings"
)

// Query string parameters the change list reserves for itself. All
// other parameters are treated as filter lookups.
const (
	// AllVar, when present, asks for the whole result set on one page.
	AllVar = "all"
	// OrderVar holds comma-separated list_display indexes, each with an
	// optional leading "-" for descending order.
	OrderVar = "o"
	// OrderTypeVar ("asc" or "desc") overrides the primary direction.
	OrderTypeVar = "ot"
	// PageVar is the zero-based page number.
	PageVar = "p"
	// SearchVar carries the search query.
	SearchVar = "q"
	// ToFieldVar names the field a popup hands back to its opener.
	ToFieldVar = "t"
	// IsPopupVar marks the list as rendered inside a popup.
	IsPopupVar = "pop"
	// ErrorFlag marks a redirect after invalid lookup parameters, so a
	// second failure can stop the redirect loop.
	ErrorFlag = "e"
)

// MaxShowAllAllowed caps how many results the "show all" link will
// load on a single page.
const MaxShowAllAllowed = 200

// EmptyChangeListValue stands in for NULL in result cells.
const EmptyChangeListValue = "(None)"

// Value wraps a string for QueryString's new-params map.
func Value(s string) *string {
	return &s
}

// Params returns the change list's retained parameters: everything from
// the request except the page number, to-field, and error flag.
func (cl *ChangeList) Params() map[string]string {
	out := make(map[string]string, len(cl.params))
	for k, v := range cl.params {
		out[k] = v
	}
	return out
}

// QueryString rebuilds the list's query string with changes applied.
// Every retained parameter starting with an entry of remove is dropped,
// then new values are set; a nil value deletes its key. The result
// starts with "?" and is sorted by key.
func (cl *ChangeList) QueryString(new map[string]*string, remove []string) string {
	p := make(map[string]string, len(cl.params))
	for k, v := range cl.params {
		p[k] = v
	}
	for _, r := range remove {
		for k := range p {
			if strings.HasPrefix(k, r) {
				delete(p, k)
			}
		}
	}
	for k, v := range new {
		if v == nil {
			delete(p, k)
			continue
		}
		p[k] = *v
	}
	vals := make(url.Values, len(p))
	for k, v := range p {
		vals.Set(k, v)
	}
	return "?" + vals.Encode()
}
