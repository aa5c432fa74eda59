package formats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CSV format implementation. The header row carries the primary key
// followed by the column names, so round-tripping keeps rows addressable.
var CSV = &PageFormat{
	Name:      "csv",
	Extension: ".csv",
	Render: func(page *Page) (string, error) {
		var b strings.Builder
		w := csv.NewWriter(&b)

		header := make([]string, 0, len(page.Columns)+1)
		header = append(header, "pk")
		for _, c := range page.Columns {
			header = append(header, c.Name)
		}
		if err := w.Write(header); err != nil {
			return "", fmt.Errorf("failed to write CSV header: %w", err)
		}

		for _, row := range page.Rows {
			record := make([]string, 0, len(row.Cells)+1)
			record = append(record, row.PK)
			record = append(record, row.Cells...)
			if err := w.Write(record); err != nil {
				return "", fmt.Errorf("failed to write CSV row: %w", err)
			}
		}

		w.Flush()
		if err := w.Error(); err != nil {
			return "", fmt.Errorf("failed to flush CSV output: %w", err)
		}
		return b.String(), nil
	},
}

// JSON format implementation: the page document, indented.
var JSON = &PageFormat{
	Name:      "json",
	Extension: ".json",
	Render: func(page *Page) (string, error) {
		data, err := json.MarshalIndent(page, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal page to JSON: %w", err)
		}
		return string(data) + "\n", nil
	},
}

// YAML format implementation: the page document as a YAML mapping.
var YAML = &PageFormat{
	Name:      "yaml",
	Extension: ".yaml",
	Render: func(page *Page) (string, error) {
		data, err := yaml.Marshal(page)
		if err != nil {
			return "", fmt.Errorf("failed to marshal page to YAML: %w", err)
		}
		return string(data), nil
	},
}

func init() {
	for _, format := range []*PageFormat{CSV, JSON, YAML} {
		if err := Register(format); err != nil {
			panic(fmt.Sprintf("failed to register %s format: %v", format.Name, err))
		}
	}
}
