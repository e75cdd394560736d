package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a student lookup matches no roster row.
	ErrNotFound = errors.New("student not found")
	// ErrDuplicateStudent is returned when registering an identifier that
	// already has a roster row.
	ErrDuplicateStudent = errors.New("student already registered")
)

// StudentReader provides read-only access to the roster.
type StudentReader interface {
	// List returns all roster rows in file order.
	List() ([]Student, error)
	// Get retrieves a student by identifier.
	Get(id string) (*Student, error)
	// FindByRFID retrieves a student by card identifier.
	FindByRFID(rfid string) (*Student, error)
	// SearchByName returns students whose name contains the query,
	// ignoring case and diacritics.
	SearchByName(query string) ([]Student, error)
	// Count returns the total roster size.
	Count() (int, error)
}

// StudentWriter provides write access to the roster.
type StudentWriter interface {
	StudentReader

	// Add appends a new roster row. Returns ErrDuplicateStudent if the
	// identifier already exists.
	Add(s Student) error
}

// SettingsStore provides access to the key-value settings table.
type SettingsStore interface {
	// All returns every setting.
	All() (map[string]string, error)
	// Get returns a single setting value, or empty string if unset.
	Get(key string) (string, error)
	// Set writes a setting, creating or replacing the row.
	Set(key, value string) error
}

// AttendanceLedger provides access to the date-partitioned attendance log.
type AttendanceLedger interface {
	// Mark records attendance for a student at the given time. Returns
	// true if a new row was written, false if the student was already
	// marked on that day. Idempotent within a day.
	Mark(studentID string, at time.Time) (bool, error)
	// HasMarked reports whether the student has an event on the given day.
	HasMarked(studentID string, day time.Time) (bool, error)
	// EventsOn returns all events recorded on the given day.
	EventsOn(day time.Time) ([]AttendanceEvent, error)
	// CountOn returns the number of events recorded on the given day.
	CountOn(day time.Time) (int, error)
}

// EncodingReader provides read-only access to stored face encodings.
type EncodingReader interface {
	// Load returns all stored encodings.
	Load() ([]Encoding, error)
}

// EncodingWriter provides write access to stored face encodings.
type EncodingWriter interface {
	EncodingReader

	// Put stores the encoding for a student, replacing any existing row.
	Put(studentID string, vector []float32) error
	// Remove deletes the encoding row for a student, if present.
	Remove(studentID string) error
}
