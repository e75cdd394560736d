package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

var ledgerHeader = []string{"Student ID", "Time"}

const (
	dayFormat  = "2006-01-02"
	timeFormat = "15:04:05"
)

// Ledger is the append-only attendance log, one CSV file per calendar day.
// Mark holds the mutex across the existence check and the append, so a
// student cannot be marked twice on one day even with concurrent callers.
// The current-day marked set is cached in memory; it stays consistent with
// the file because all writes go through Mark.
type Ledger struct {
	dir string

	mu     sync.Mutex
	day    string          // Day the cache refers to
	marked map[string]bool // Student IDs marked on that day
}

// NewLedger creates a ledger writing into dir.
func NewLedger(dir string) *Ledger {
	return &Ledger{dir: dir}
}

func (l *Ledger) fileFor(day time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("attendance_%s.csv", day.Format(dayFormat)))
}

// loadDay fills the marked cache for the given day. Caller holds l.mu.
func (l *Ledger) loadDay(day string, path string) error {
	if l.day == day && l.marked != nil {
		return nil
	}

	rows, err := readRows(path, len(ledgerHeader))
	if err != nil {
		return err
	}

	marked := make(map[string]bool, len(rows))
	for _, row := range rows {
		marked[row[0]] = true
	}
	l.day = day
	l.marked = marked
	return nil
}

// Mark records attendance for a student at the given time. Returns true if
// a new row was written, false if the student was already marked that day.
func (l *Ledger) Mark(studentID string, at time.Time) (bool, error) {
	if studentID == "" {
		return false, fmt.Errorf("student id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	day := at.Format(dayFormat)
	path := l.fileFor(at)
	if err := l.loadDay(day, path); err != nil {
		return false, err
	}

	if l.marked[studentID] {
		return false, nil
	}

	row := []string{studentID, at.Format(timeFormat)}
	if err := appendRow(path, ledgerHeader, row); err != nil {
		return false, err
	}
	l.marked[studentID] = true
	return true, nil
}

// HasMarked reports whether the student has an event on the given day.
func (l *Ledger) HasMarked(studentID string, day time.Time) (bool, error) {
	events, err := l.EventsOn(day)
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

// EventsOn returns all events recorded on the given day. A day with no
// ledger file yields no events.
func (l *Ledger) EventsOn(day time.Time) ([]AttendanceEvent, error) {
	rows, err := readRows(l.fileFor(day), len(ledgerHeader))
	if err != nil {
		return nil, err
	}

	date := day.Format(dayFormat)
	events := make([]AttendanceEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, AttendanceEvent{
			StudentID: row[0],
			Date:      date,
			Time:      row[1],
		})
	}
	return events, nil
}

// CountOn returns the number of events recorded on the given day.
func (l *Ledger) CountOn(day time.Time) (int, error) {
	events, err := l.EventsOn(day)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}
