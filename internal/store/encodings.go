package store

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

var encodingsHeader = []string{"Student ID", "Encoding"}

// Encodings is the file-backed face encoding table. Vectors are stored as
// space-separated floats in a single CSV field.
type Encodings struct {
	path string
	mu   sync.Mutex
}

func newEncodings(path string) (*Encodings, error) {
	if err := ensureHeader(path, encodingsHeader); err != nil {
		return nil, err
	}
	return &Encodings{path: path}, nil
}

// Load returns all stored encodings. Rows with a malformed vector are
// skipped rather than failing the whole gallery load.
func (e *Encodings) Load() ([]Encoding, error) {
	rows, err := readRows(e.path, len(encodingsHeader))
	if err != nil {
		return nil, err
	}

	encodings := make([]Encoding, 0, len(rows))
	for _, row := range rows {
		vec, err := parseVector(row[1])
		if err != nil {
			continue
		}
		encodings = append(encodings, Encoding{StudentID: row[0], Vector: vec})
	}
	return encodings, nil
}

// Put stores the encoding for a student, replacing any existing row so
// re-enrollment updates rather than duplicates.
func (e *Encodings) Put(studentID string, vector []float32) error {
	if studentID == "" {
		return fmt.Errorf("student id is required")
	}
	if len(vector) == 0 {
		return fmt.Errorf("empty encoding vector")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := readRows(e.path, len(encodingsHeader))
	if err != nil {
		return err
	}

	encoded := formatVector(vector)
	replaced := false
	for _, row := range rows {
		if row[0] == studentID {
			row[1] = encoded
			replaced = true
		}
	}
	if !replaced {
		rows = append(rows, []string{studentID, encoded})
	}

	return rewriteFile(e.path, encodingsHeader, rows)
}

// Remove deletes the encoding row for a student, if present.
func (e *Encodings) Remove(studentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := readRows(e.path, len(encodingsHeader))
	if err != nil {
		return err
	}

	kept := rows[:0]
	for _, row := range rows {
		if row[0] != studentID {
			kept = append(kept, row)
		}
	}
	if len(kept) == len(rows) {
		return nil
	}

	return rewriteFile(e.path, encodingsHeader, kept)
}

// formatVector renders a vector as space-separated floats.
func formatVector(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, " ")
}

// parseVector parses a space-separated float vector.
func parseVector(s string) ([]float32, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty vector")
	}

	vec := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing vector component %d: %w", i, err)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}
