// Package formats renders change list pages in interchangeable output
// formats: an aligned text table, markdown, CSV, JSON, and YAML.
package formats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// PageFormat defines how a change list page renders to text.
type PageFormat struct {
	// Name is the format identifier (alphanumeric, dashes, underscores,
	// lowercase).
	Name string

	// Extension is the file extension including the dot (e.g. ".csv").
	Extension string

	// Render converts a page into the format's output.
	Render func(page *Page) (string, error)
}

// registry holds all available page formats
var registry = make(map[string]*PageFormat)

// Register adds a new page format to the registry
func Register(format *PageFormat) error {
	if !isValidFormatName(format.Name) {
		return fmt.Errorf("invalid format name %q: must be lowercase alphanumeric with dashes and underscores only", format.Name)
	}

	if !strings.HasPrefix(format.Extension, ".") {
		format.Extension = "." + format.Extension
	}

	if _, exists := registry[format.Name]; exists {
		return fmt.Errorf("format %q already registered", format.Name)
	}

	registry[format.Name] = format
	return nil
}

// Get returns a page format by name
func Get(name string) (*PageFormat, error) {
	format, exists := registry[name]
	if !exists {
		if s := suggestFormat(name); s != "" {
			return nil, fmt.Errorf("unknown format %q (did you mean %q?)", name, s)
		}
		return nil, fmt.Errorf("unknown format %q", name)
	}
	return format, nil
}

// List returns all registered format names, sorted.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isValidFormatName checks if a format name is valid
func isValidFormatName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// suggestFormat returns the closest registered name within edit
// distance 2.
func suggestFormat(name string) string {
	best := ""
	bestDist := 3
	for candidate := range registry {
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
