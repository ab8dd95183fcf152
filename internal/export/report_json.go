package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"course-dedupe/internal/dedupe"
)

// WriteReportJSON writes the report as indented JSON.
func WriteReportJSON(w io.Writer, r *dedupe.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("export: encode report: %w", err)
	}
	return nil
}

// Document is one rendered report file.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Render produces the JSON and CSV documents for a report, named
// <base>-<runID>.json / .csv.
func Render(base string, r *dedupe.Report) ([]Document, error) {
	if base == "" {
		base = "duplicate-courses"
	}
	stem := base
	if r != nil && r.RunID != "" {
		stem = base + "-" + r.RunID
	}

	var js bytes.Buffer
	if err := WriteReportJSON(&js, r); err != nil {
		return nil, err
	}
	var cs bytes.Buffer
	if err := WriteReportCSV(&cs, r); err != nil {
		return nil, fmt.Errorf("export: write csv: %w", err)
	}

	return []Document{
		{Name: stem + ".json", ContentType: "application/json", Data: js.Bytes()},
		{Name: stem + ".csv", ContentType: "text/csv", Data: cs.Bytes()},
	}, nil
}
