package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter writes header fields as label,value pairs, a blank line, the table, a blank line and the footer.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType implements Renderer.
func (e *CSVExporter) ContentType() string { return "text/csv" }

// Extension implements Renderer.
func (e *CSVExporter) Extension() string { return "csv" }

// Render implements Renderer.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Table.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	writeFields := func(fields []Field) error {
		for _, f := range fields {
			if err := w.Write([]string{f.Label, f.Value}); err != nil {
				return err
			}
		}
		if len(fields) > 0 {
			return w.Write([]string{""})
		}
		return nil
	}

	if err := writeFields(doc.Header); err != nil {
		return nil, fmt.Errorf("write csv header fields: %w", err)
	}
	if err := w.Write(doc.Table.Headers); err != nil {
		return nil, fmt.Errorf("write csv columns: %w", err)
	}
	for _, row := range doc.Table.Rows {
		record := make([]string, len(doc.Table.Headers))
		for i, col := range doc.Table.Headers {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	if len(doc.Footer) > 0 {
		if err := w.Write([]string{""}); err != nil {
			return nil, fmt.Errorf("write csv separator: %w", err)
		}
		for _, f := range doc.Footer {
			if err := w.Write([]string{f.Label, f.Value}); err != nil {
				return nil, fmt.Errorf("write csv footer: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
