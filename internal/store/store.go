// Package store implements the flat-file persistence layer: the student
// roster, the settings table, per-day attendance ledgers and the face
// encoding table, all plain CSV files under a single data directory.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	studentsFile  = "students.csv"
	settingsFile  = "settings.csv"
	encodingsDir  = "encodings"
	encodingsFile = "face_encodings.csv"
	ledgerDir     = "attendance_records"
	datasetDir    = "dataset"
)

// Store bundles the file-backed repositories sharing one data directory.
type Store struct {
	dir string

	Students  *Students
	Settings  *Settings
	Ledger    *Ledger
	Encodings *Encodings
}

// Open initializes the data directory layout and returns a Store. Missing
// files are created with their headers; defaults seeds settings.csv on
// first run only.
func Open(dir string, defaults map[string]string) (*Store, error) {
	for _, sub := range []string{"", encodingsDir, ledgerDir, datasetDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	students, err := newStudents(filepath.Join(dir, studentsFile))
	if err != nil {
		return nil, fmt.Errorf("opening roster: %w", err)
	}

	settings, err := newSettings(filepath.Join(dir, settingsFile), defaults)
	if err != nil {
		return nil, fmt.Errorf("opening settings: %w", err)
	}

	encodings, err := newEncodings(filepath.Join(dir, encodingsDir, encodingsFile))
	if err != nil {
		return nil, fmt.Errorf("opening encodings: %w", err)
	}

	return &Store{
		dir:       dir,
		Students:  students,
		Settings:  settings,
		Ledger:    NewLedger(filepath.Join(dir, ledgerDir)),
		Encodings: encodings,
	}, nil
}

// Dir returns the root data directory.
func (s *Store) Dir() string {
	return s.dir
}

// SaveEnrollmentPhoto writes the enrollment photo for a student into the
// dataset directory as <id>.jpg.
func (s *Store) SaveEnrollmentPhoto(studentID string, jpegData []byte) error {
	path := filepath.Join(s.dir, datasetDir, studentID+".jpg")
	if err := os.WriteFile(path, jpegData, 0o644); err != nil {
		return fmt.Errorf("writing enrollment photo: %w", err)
	}
	return nil
}

// EnrollmentPhotoPath returns the dataset path for a student's photo.
// The file may not exist.
func (s *Store) EnrollmentPhotoPath(studentID string) string {
	return filepath.Join(s.dir, datasetDir, studentID+".jpg")
}

// DatasetPhotos lists the enrollment photos present in the dataset
// directory, keyed by student identifier (the file stem).
func (s *Store) DatasetPhotos() (map[string]string, error) {
	pattern := filepath.Join(s.dir, datasetDir, "*.jpg")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing dataset photos: %w", err)
	}

	photos := make(map[string]string, len(matches))
	for _, path := range matches {
		base := filepath.Base(path)
		id := base[:len(base)-len(".jpg")]
		photos[id] = path
	}
	return photos, nil
}
