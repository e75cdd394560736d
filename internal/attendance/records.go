package attendance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"
)

// Attendance statuses assigned to joined records.
const (
	StatusOnTime = "on_time"
	StatusLate   = "late"
)

// Record is one attendance event left-joined with the roster. Name and
// contact fields stay empty when the id has no roster row.
type Record struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	RFID      string `json:"rfid,omitempty"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Status    string `json:"status"`
}

// RecordsBetween returns the events of every day in [start, end] joined
// with the roster, in date then file order. Events after the
// late_threshold setting are flagged late.
func (s *Service) RecordsBetween(start, end time.Time) ([]Record, error) {
	if end.Before(start) {
		return nil, errors.New("end date must not be before start date")
	}

	students, err := s.students.List()
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	byID := make(map[string]int, len(students))
	for i := range students {
		byID[students[i].ID] = i
	}

	lateAfter, err := s.lateThreshold()
	if err != nil {
		return nil, err
	}

	var records []Record
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		events, err := s.ledger.EventsOn(day)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", day.Format("2006-01-02"), err)
		}

		for _, ev := range events {
			rec := Record{
				StudentID: ev.StudentID,
				Date:      ev.Date,
				Time:      ev.Time,
				Status:    StatusOnTime,
			}
			if i, ok := byID[ev.StudentID]; ok {
				rec.Name = students[i].Name
				rec.Email = students[i].Email
				rec.Phone = students[i].Phone
				rec.RFID = students[i].RFID
			}
			if isLate(ev.Time, lateAfter) {
				rec.Status = StatusLate
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// lateThreshold reads the late_threshold setting (HH:MM). An unset or
// malformed value disables lateness flagging.
func (s *Service) lateThreshold() (string, error) {
	value, err := s.settings.Get("late_threshold")
	if err != nil {
		return "", fmt.Errorf("reading settings: %w", err)
	}
	if _, perr := time.Parse("15:04", value); perr != nil {
		return "", nil
	}
	return value, nil
}

// isLate compares an event time (HH:MM:SS) against the threshold (HH:MM).
// Lexicographic comparison works because both are zero-padded.
func isLate(eventTime, threshold string) bool {
	if threshold == "" || len(eventTime) < len(threshold) {
		return false
	}
	return eventTime[:len(threshold)] > threshold
}

// WriteRecordsCSV renders records in the download format of the records
// page.
func WriteRecordsCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	header := []string{"Student ID", "Name", "Email", "Phone", "RFID", "Date", "Time", "Status"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, rec := range records {
		row := []string{rec.StudentID, rec.Name, rec.Email, rec.Phone, rec.RFID, rec.Date, rec.Time, rec.Status}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
