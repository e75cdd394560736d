package store

import (
	"encoding/csv"
	"fmt"
	"os"
)

// readRows reads a CSV file and returns its data rows, skipping the header.
// A missing file yields no rows.
func readRows(path string, wantFields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // Tolerate short rows from older files

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		for len(rec) < wantFields {
			rec = append(rec, "")
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// appendRow appends a single CSV row to the file, creating it with the
// header first if it does not exist.
func appendRow(path string, header, row []string) error {
	if err := ensureHeader(path, header); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

// rewriteFile replaces the file contents with the header and the given rows.
func rewriteFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rewriting %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

// ensureHeader creates the file with just the header row if it is missing.
func ensureHeader(path string, header []string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	return rewriteFile(path, header, nil)
}
