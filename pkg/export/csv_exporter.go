package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Headers []string
	Labels  map[string]string
	Rows    []map[string]string
}

// HeaderLabels returns the printable header row, falling back to the raw header.
func (d Dataset) HeaderLabels() []string {
	out := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		if label, ok := d.Labels[h]; ok && label != "" {
			out[i] = label
			continue
		}
		out[i] = h
	}
	return out
}

// CSVExporter renders Dataset records into CSV.
type CSVExporter struct {
	// UseLabels writes column labels instead of ids in the header row.
	UseLabels bool
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := e.Write(buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the dataset as CSV into w.
func (e *CSVExporter) Write(w io.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("csv requires at least one header")
	}
	writer := csv.NewWriter(w)
	header := data.Headers
	if e.UseLabels {
		header = data.HeaderLabels()
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, h := range data.Headers {
			record[i] = row[h]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
