package export

import (
	"encoding/json"
	"fmt"
)

// JSONExporter renders datasets as an array of objects keyed by header.
type JSONExporter struct {
	Indent bool
}

// NewJSONExporter builds a JSON exporter with indented output.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{Indent: true}
}

// Render produces JSON encoded bytes for the dataset, keeping only declared headers.
func (e *JSONExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("json requires at least one header")
	}
	records := make([]map[string]string, 0, len(data.Rows))
	for _, row := range data.Rows {
		record := make(map[string]string, len(data.Headers))
		for _, header := range data.Headers {
			record[header] = row[header]
		}
		records = append(records, record)
	}
	var (
		out []byte
		err error
	)
	if e.Indent {
		out, err = json.MarshalIndent(records, "", "  ")
	} else {
		out, err = json.Marshal(records)
	}
	if err != nil {
		return nil, fmt.Errorf("encode json export: %w", err)
	}
	return out, nil
}
