// Package attendance ties the face matcher, the roster and the daily
// ledger together: recognize-and-mark, registration and reporting.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ondrejvana/rollcall/internal/gallery"
	"github.com/ondrejvana/rollcall/internal/recognizer"
	"github.com/ondrejvana/rollcall/internal/store"
)

// FaceDetector is the part of the embedding service client the service
// needs.
type FaceDetector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*recognizer.DetectResponse, error)
	DetectSingle(ctx context.Context, imageData []byte) (*recognizer.Face, error)
}

// Deps collects the service dependencies.
type Deps struct {
	Students  store.StudentWriter
	Settings  store.SettingsStore
	Ledger    store.AttendanceLedger
	Encodings store.EncodingWriter
	Gallery   *gallery.Gallery
	Detector  FaceDetector

	// SavePhoto persists the enrollment photo; nil disables photo storage.
	SavePhoto func(studentID string, jpegData []byte) error

	// Now overrides the clock for tests; nil means time.Now.
	Now func() time.Time

	// EmbeddingDim, when positive, rejects vectors of any other length.
	EmbeddingDim int
}

// Service implements the attendance operations.
type Service struct {
	students  store.StudentWriter
	settings  store.SettingsStore
	ledger    store.AttendanceLedger
	encodings store.EncodingWriter
	gallery   *gallery.Gallery
	detector  FaceDetector
	savePhoto func(string, []byte) error
	now       func() time.Time
	dim       int
}

// New creates the attendance service.
func New(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		students:  deps.Students,
		settings:  deps.Settings,
		ledger:    deps.Ledger,
		encodings: deps.Encodings,
		gallery:   deps.Gallery,
		detector:  deps.Detector,
		savePhoto: deps.SavePhoto,
		now:       now,
		dim:       deps.EmbeddingDim,
	}
}

// checkDim guards against mixing encodings produced with a different
// embedding model. A zero dim accepts everything.
func (s *Service) checkDim(vec []float32) error {
	if s.dim > 0 && len(vec) != s.dim {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), s.dim)
	}
	return nil
}

// LoadGallery fills the in-memory gallery from the encoding table.
// Encodings whose length does not match the configured embedding
// dimension are skipped rather than poisoning distance calculations.
func (s *Service) LoadGallery() error {
	encodings, err := s.encodings.Load()
	if err != nil {
		return fmt.Errorf("loading encodings: %w", err)
	}
	if s.dim > 0 {
		kept := encodings[:0]
		for _, enc := range encodings {
			if len(enc.Vector) == s.dim {
				kept = append(kept, enc)
			}
		}
		encodings = kept
	}
	s.gallery.Load(encodings)
	return nil
}

// GallerySize returns the number of enrolled encodings.
func (s *Service) GallerySize() int {
	return s.gallery.Size()
}

// RecognitionResult describes one detected face after matching and
// marking.
type RecognitionResult struct {
	Matched   bool      `json:"matched"`
	StudentID string    `json:"student_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Distance  float64   `json:"distance,omitempty"`
	Marked    bool      `json:"marked"` // True when this recognition wrote a ledger row
	BBox      []float64 `json:"bbox,omitempty"`
	DetScore  float64   `json:"det_score,omitempty"`
}

// RecognizeAndMark detects faces in the image, matches each against the
// gallery and marks attendance for matched students. An image with no
// detectable face yields an empty result, not an error.
func (s *Service) RecognizeAndMark(ctx context.Context, imageData []byte) ([]RecognitionResult, error) {
	return s.recognize(ctx, imageData, true)
}

// Recognize matches faces without writing to the ledger.
func (s *Service) Recognize(ctx context.Context, imageData []byte) ([]RecognitionResult, error) {
	return s.recognize(ctx, imageData, false)
}

func (s *Service) recognize(ctx context.Context, imageData []byte, mark bool) ([]RecognitionResult, error) {
	resp, err := s.detector.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("detecting faces: %w", err)
	}

	results := make([]RecognitionResult, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		if err := s.checkDim(face.Embedding); err != nil {
			return nil, fmt.Errorf("detector response: %w", err)
		}
		result := RecognitionResult{BBox: face.BBox, DetScore: face.DetScore}

		match, ok := s.gallery.Match(face.Embedding)
		if ok {
			result.Matched = true
			result.StudentID = match.StudentID
			result.Distance = match.Distance

			if st, err := s.students.Get(match.StudentID); err == nil {
				result.Name = st.Name
			}

			if mark {
				written, err := s.ledger.Mark(match.StudentID, s.now())
				if err != nil {
					return nil, fmt.Errorf("marking %s: %w", match.StudentID, err)
				}
				result.Marked = written
			}
		}

		results = append(results, result)
	}
	return results, nil
}

// MarkResult is the outcome of a direct mark operation.
type MarkResult struct {
	Student *store.Student `json:"student"`
	Marked  bool           `json:"marked"`
}

// MarkByID marks attendance for a known student identifier.
func (s *Service) MarkByID(studentID string) (*MarkResult, error) {
	st, err := s.students.Get(studentID)
	if err != nil {
		return nil, err
	}

	written, err := s.ledger.Mark(st.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("marking %s: %w", st.ID, err)
	}
	return &MarkResult{Student: st, Marked: written}, nil
}

// MarkByRFID marks attendance for the student holding the given card.
func (s *Service) MarkByRFID(rfid string) (*MarkResult, error) {
	st, err := s.students.FindByRFID(rfid)
	if err != nil {
		return nil, err
	}

	written, err := s.ledger.Mark(st.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("marking %s: %w", st.ID, err)
	}
	return &MarkResult{Student: st, Marked: written}, nil
}

// Register enrolls a new student: the photo must contain exactly one
// detectable face, and the identifier must be unused. Nothing is written
// when detection or the roster check fails.
func (s *Service) Register(ctx context.Context, st store.Student, photo []byte) (*store.Student, error) {
	if st.ID == "" || st.Name == "" {
		return nil, errors.New("student id and name are required")
	}

	jpegData, err := recognizer.NormalizeEnrollmentPhoto(photo)
	if err != nil {
		return nil, fmt.Errorf("processing enrollment photo: %w", err)
	}

	face, err := s.detector.DetectSingle(ctx, jpegData)
	if err != nil {
		return nil, err
	}
	if err := s.checkDim(face.Embedding); err != nil {
		return nil, fmt.Errorf("detector response: %w", err)
	}

	if err := s.students.Add(st); err != nil {
		return nil, err
	}

	if err := s.encodings.Put(st.ID, face.Embedding); err != nil {
		return nil, fmt.Errorf("storing encoding: %w", err)
	}

	if s.savePhoto != nil {
		if err := s.savePhoto(st.ID, jpegData); err != nil {
			return nil, fmt.Errorf("saving enrollment photo: %w", err)
		}
	}

	s.gallery.Add(st.ID, face.Embedding)
	return &st, nil
}

// UpdateEncoding re-enrolls an existing student's face from a new photo.
func (s *Service) UpdateEncoding(ctx context.Context, studentID string, photo []byte) error {
	if _, err := s.students.Get(studentID); err != nil {
		return err
	}

	jpegData, err := recognizer.NormalizeEnrollmentPhoto(photo)
	if err != nil {
		return fmt.Errorf("processing enrollment photo: %w", err)
	}

	face, err := s.detector.DetectSingle(ctx, jpegData)
	if err != nil {
		return err
	}
	if err := s.checkDim(face.Embedding); err != nil {
		return fmt.Errorf("detector response: %w", err)
	}

	if err := s.encodings.Put(studentID, face.Embedding); err != nil {
		return fmt.Errorf("storing encoding: %w", err)
	}

	if s.savePhoto != nil {
		if err := s.savePhoto(studentID, jpegData); err != nil {
			return fmt.Errorf("saving enrollment photo: %w", err)
		}
	}

	s.gallery.Add(studentID, face.Embedding)
	return nil
}
