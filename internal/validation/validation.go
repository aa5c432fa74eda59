// Package validation vets raw filter arguments before they become
// change list query parameters.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/arthur-debert/changelist/changelist"
)

// reservedParams maps the control variables the change list claims for
// itself to the CLI flag that sets them, when one exists.
var reservedParams = map[string]string{
	changelist.AllVar:       "--all",
	changelist.OrderVar:     "--order",
	changelist.OrderTypeVar: "--order",
	changelist.PageVar:      "--page",
	changelist.SearchVar:    "--search",
	changelist.ToFieldVar:   "",
	changelist.IsPopupVar:   "",
	changelist.ErrorFlag:    "",
}

// IsReservedParam reports whether name is a change list control
// variable rather than a field lookup.
func IsReservedParam(name string) bool {
	_, ok := reservedParams[name]
	return ok
}

// ValidateParamName checks that a filter key looks like a field lookup
// path: identifier segments separated by "__", none of them reserved.
func ValidateParamName(name string) error {
	if flag, reserved := reservedParams[name]; reserved {
		if flag != "" {
			return fmt.Errorf("%q is a reserved parameter (use %s)", name, flag)
		}
		return fmt.Errorf("%q is a reserved parameter", name)
	}

	if name == "" {
		return fmt.Errorf("empty filter name")
	}
	for _, segment := range strings.Split(name, "__") {
		if !isIdentifier(segment) {
			return fmt.Errorf("invalid filter name %q", name)
		}
	}
	return nil
}

// isIdentifier checks one lookup path segment
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ParsePair splits one "field=value" filter argument.
func ParsePair(arg string) (key, value string, err error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok {
		return "", "", fmt.Errorf("invalid filter %q: expected field=value", arg)
	}
	key = strings.TrimSpace(key)
	if err := ValidateParamName(key); err != nil {
		return "", "", err
	}
	return key, value, nil
}

// ParsePairs folds "field=value" arguments into query values. Repeated
// keys accumulate, matching how a query string carries them.
func ParsePairs(args []string) (url.Values, error) {
	values := make(url.Values, len(args))
	for _, arg := range args {
		key, value, err := ParsePair(arg)
		if err != nil {
			return nil, err
		}
		values.Add(key, value)
	}
	return values, nil
}
