package store

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var studentsHeader = []string{"Student ID", "Name", "Email", "Phone", "RFID"}

// Students is the file-backed roster. Every read goes back to disk; the
// mutex only serializes writers against the check-then-append sequence.
type Students struct {
	path string
	mu   sync.Mutex
}

func newStudents(path string) (*Students, error) {
	if err := ensureHeader(path, studentsHeader); err != nil {
		return nil, err
	}
	return &Students{path: path}, nil
}

// List returns all roster rows in file order.
func (s *Students) List() ([]Student, error) {
	rows, err := readRows(s.path, len(studentsHeader))
	if err != nil {
		return nil, err
	}

	students := make([]Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, Student{
			ID:    row[0],
			Name:  row[1],
			Email: row[2],
			Phone: row[3],
			RFID:  row[4],
		})
	}
	return students, nil
}

// Get retrieves a student by identifier.
func (s *Students) Get(id string) (*Student, error) {
	students, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range students {
		if students[i].ID == id {
			return &students[i], nil
		}
	}
	return nil, ErrNotFound
}

// FindByRFID retrieves a student by card identifier.
func (s *Students) FindByRFID(rfid string) (*Student, error) {
	if rfid == "" {
		return nil, ErrNotFound
	}
	students, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range students {
		if students[i].RFID == rfid {
			return &students[i], nil
		}
	}
	return nil, ErrNotFound
}

// SearchByName returns students whose name contains the query, ignoring
// case and diacritics (e.g. "novak" matches "Jan Novák").
func (s *Students) SearchByName(query string) ([]Student, error) {
	students, err := s.List()
	if err != nil {
		return nil, err
	}

	q := NormalizeName(query)
	var matched []Student
	for _, st := range students {
		if strings.Contains(NormalizeName(st.Name), q) {
			matched = append(matched, st)
		}
	}
	return matched, nil
}

// Count returns the total roster size.
func (s *Students) Count() (int, error) {
	students, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(students), nil
}

// Add appends a new roster row. Returns ErrDuplicateStudent if the
// identifier already has a row.
func (s *Students) Add(st Student) error {
	if st.ID == "" {
		return fmt.Errorf("student id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.Get(st.ID); err == nil {
		return ErrDuplicateStudent
	} else if err != ErrNotFound {
		return err
	}

	row := []string{st.ID, st.Name, st.Email, st.Phone, st.RFID}
	return appendRow(s.path, studentsHeader, row)
}

// RemoveDiacritics removes diacritical marks from a string (e.g. "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a name for comparison (lowercase, no diacritics).
func NormalizeName(name string) string {
	return strings.ToLower(RemoveDiacritics(name))
}
