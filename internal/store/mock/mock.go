// Package mock provides in-memory implementations of the store interfaces
// for testing.
package mock

import (
	"strings"
	"sync"
	"time"

	"github.com/ondrejvana/rollcall/internal/store"
)

// MockStudents is an in-memory implementation of store.StudentWriter.
type MockStudents struct {
	mu       sync.RWMutex
	students []store.Student

	// Error injection
	ListError error
	AddError  error
}

// NewMockStudents creates a new mock roster.
func NewMockStudents() *MockStudents {
	return &MockStudents{}
}

// List returns all roster rows.
func (m *MockStudents) List() ([]store.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Student, len(m.students))
	copy(out, m.students)
	return out, nil
}

// Get retrieves a student by identifier.
func (m *MockStudents) Get(id string) (*store.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.students {
		if m.students[i].ID == id {
			st := m.students[i]
			return &st, nil
		}
	}
	return nil, store.ErrNotFound
}

// FindByRFID retrieves a student by card identifier.
func (m *MockStudents) FindByRFID(rfid string) (*store.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	if rfid == "" {
		return nil, store.ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.students {
		if m.students[i].RFID == rfid {
			st := m.students[i]
			return &st, nil
		}
	}
	return nil, store.ErrNotFound
}

// SearchByName returns students whose name contains the query.
func (m *MockStudents) SearchByName(query string) ([]store.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := store.NormalizeName(query)
	var matched []store.Student
	for _, st := range m.students {
		if strings.Contains(store.NormalizeName(st.Name), q) {
			matched = append(matched, st)
		}
	}
	return matched, nil
}

// Count returns the roster size.
func (m *MockStudents) Count() (int, error) {
	if m.ListError != nil {
		return 0, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students), nil
}

// Add appends a roster row.
func (m *MockStudents) Add(s store.Student) error {
	if m.AddError != nil {
		return m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.students {
		if m.students[i].ID == s.ID {
			return store.ErrDuplicateStudent
		}
	}
	m.students = append(m.students, s)
	return nil
}

// MockSettings is an in-memory implementation of store.SettingsStore.
type MockSettings struct {
	mu       sync.RWMutex
	settings map[string]string

	// Error injection
	AllError error
	SetError error
}

// NewMockSettings creates a new mock settings table.
func NewMockSettings() *MockSettings {
	return &MockSettings{settings: make(map[string]string)}
}

// All returns every setting.
func (m *MockSettings) All() (map[string]string, error) {
	if m.AllError != nil {
		return nil, m.AllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

// Get returns a single setting value, or empty string if unset.
func (m *MockSettings) Get(key string) (string, error) {
	if m.AllError != nil {
		return "", m.AllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

// Set writes a setting.
func (m *MockSettings) Set(key, value string) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

// MockLedger is an in-memory implementation of store.AttendanceLedger.
type MockLedger struct {
	mu     sync.Mutex
	events map[string][]store.AttendanceEvent // day -> events

	// Error injection
	MarkError   error
	EventsError error
}

// NewMockLedger creates a new mock ledger.
func NewMockLedger() *MockLedger {
	return &MockLedger{events: make(map[string][]store.AttendanceEvent)}
}

// Mark records attendance, idempotent within a day.
func (m *MockLedger) Mark(studentID string, at time.Time) (bool, error) {
	if m.MarkError != nil {
		return false, m.MarkError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	day := at.Format("2006-01-02")
	for _, ev := range m.events[day] {
		if ev.StudentID == studentID {
			return false, nil
		}
	}
	m.events[day] = append(m.events[day], store.AttendanceEvent{
		StudentID: studentID,
		Date:      day,
		Time:      at.Format("15:04:05"),
	})
	return true, nil
}

// HasMarked reports whether the student has an event on the given day.
func (m *MockLedger) HasMarked(studentID string, day time.Time) (bool, error) {
	events, err := m.EventsOn(day)
	if err != nil {
		return false, err
	}
	for _, ev := range events {
		if ev.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

// EventsOn returns all events recorded on the given day.
func (m *MockLedger) EventsOn(day time.Time) ([]store.AttendanceEvent, error) {
	if m.EventsError != nil {
		return nil, m.EventsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.events[day.Format("2006-01-02")]
	out := make([]store.AttendanceEvent, len(events))
	copy(out, events)
	return out, nil
}

// CountOn returns the number of events recorded on the given day.
func (m *MockLedger) CountOn(day time.Time) (int, error) {
	events, err := m.EventsOn(day)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// MockEncodings is an in-memory implementation of store.EncodingWriter.
type MockEncodings struct {
	mu        sync.RWMutex
	encodings []store.Encoding

	// Error injection
	LoadError error
	PutError  error
}

// NewMockEncodings creates a new mock encoding table.
func NewMockEncodings() *MockEncodings {
	return &MockEncodings{}
}

// Load returns all stored encodings.
func (m *MockEncodings) Load() ([]store.Encoding, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Encoding, len(m.encodings))
	copy(out, m.encodings)
	return out, nil
}

// Put stores an encoding, replacing any existing row.
func (m *MockEncodings) Put(studentID string, vector []float32) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.encodings {
		if m.encodings[i].StudentID == studentID {
			m.encodings[i].Vector = vector
			return nil
		}
	}
	m.encodings = append(m.encodings, store.Encoding{StudentID: studentID, Vector: vector})
	return nil
}

// Remove deletes the encoding row for a student.
func (m *MockEncodings) Remove(studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.encodings[:0]
	for _, enc := range m.encodings {
		if enc.StudentID != studentID {
			kept = append(kept, enc)
		}
	}
	m.encodings = kept
	return nil
}
