package attendance

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/ondrejvana/rollcall/internal/gallery"
	"github.com/ondrejvana/rollcall/internal/recognizer"
	"github.com/ondrejvana/rollcall/internal/store"
	"github.com/ondrejvana/rollcall/internal/store/mock"
)

var testClock = time.Date(2025, 3, 14, 8, 45, 0, 0, time.Local)

// fakeDetector returns canned faces without talking to the embedding
// service.
type fakeDetector struct {
	faces []recognizer.Face
	err   error
}

func (f *fakeDetector) DetectFaces(ctx context.Context, imageData []byte) (*recognizer.DetectResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &recognizer.DetectResponse{FacesCount: len(f.faces), Faces: f.faces}, nil
}

func (f *fakeDetector) DetectSingle(ctx context.Context, imageData []byte) (*recognizer.Face, error) {
	if f.err != nil {
		return nil, f.err
	}
	switch len(f.faces) {
	case 0:
		return nil, recognizer.ErrNoFace
	case 1:
		face := f.faces[0]
		return &face, nil
	default:
		return nil, recognizer.ErrMultipleFaces
	}
}

// testJPEG returns a small valid JPEG for enrollment calls.
func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

type fixture struct {
	service *Service
	store   *store.Store
	gallery *gallery.Gallery
}

func newFixture(t *testing.T, detector FaceDetector) *fixture {
	t.Helper()
	return newFixtureDim(t, detector, 0)
}

func newFixtureDim(t *testing.T, detector FaceDetector, dim int) *fixture {
	t.Helper()
	st, err := store.Open(t.TempDir(), map[string]string{"late_threshold": "09:00"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	g := gallery.New(0.6)
	svc := New(Deps{
		Students:     st.Students,
		Settings:     st.Settings,
		Ledger:       st.Ledger,
		Encodings:    st.Encodings,
		Gallery:      g,
		Detector:     detector,
		SavePhoto:    st.SaveEnrollmentPhoto,
		Now:          func() time.Time { return testClock },
		EmbeddingDim: dim,
	})
	return &fixture{service: svc, store: st, gallery: g}
}

func (f *fixture) enroll(t *testing.T, id, name string, vec []float32) {
	t.Helper()
	if err := f.store.Students.Add(store.Student{ID: id, Name: name}); err != nil {
		t.Fatalf("failed to add student: %v", err)
	}
	if err := f.store.Encodings.Put(id, vec); err != nil {
		t.Fatalf("failed to put encoding: %v", err)
	}
	f.gallery.Add(id, vec)
}

func TestRecognizeAndMark_MatchMarksOnce(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{
		{Embedding: []float32{1, 0, 0}, BBox: []float64{0, 0, 50, 50}, DetScore: 0.97},
	}}
	f := newFixture(t, detector)
	f.enroll(t, "S001", "Jan Novák", []float32{1, 0, 0})

	results, err := f.service.RecognizeAndMark(context.Background(), []byte{0xFF})
	if err != nil {
		t.Fatalf("failed to recognize: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].Matched || results[0].StudentID != "S001" {
		t.Fatalf("expected match for S001, got %+v", results[0])
	}
	if results[0].Name != "Jan Novák" {
		t.Errorf("expected joined name, got '%s'", results[0].Name)
	}
	if !results[0].Marked {
		t.Error("expected first recognition to mark attendance")
	}

	// The same face in the next frame must not write a second row.
	results, err = f.service.RecognizeAndMark(context.Background(), []byte{0xFF})
	if err != nil {
		t.Fatalf("failed to recognize again: %v", err)
	}
	if results[0].Marked {
		t.Error("expected second recognition to be a ledger no-op")
	}

	count, err := f.store.Ledger.CountOn(testClock)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly 1 ledger row, got %d", count)
	}
}

func TestRecognizeAndMark_UnknownFaceNotMarked(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{
		{Embedding: []float32{-5, 3, 2}},
	}}
	f := newFixture(t, detector)
	f.enroll(t, "S001", "Jan", []float32{1, 0, 0})

	results, err := f.service.RecognizeAndMark(context.Background(), []byte{0xFF})
	if err != nil {
		t.Fatalf("failed to recognize: %v", err)
	}
	if results[0].Matched {
		t.Error("expected no match above threshold")
	}

	count, _ := f.store.Ledger.CountOn(testClock)
	if count != 0 {
		t.Errorf("expected no ledger rows, got %d", count)
	}
}

func TestRecognizeAndMark_NoFacesYieldsEmptyResult(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	f.enroll(t, "S001", "Jan", []float32{1, 0, 0})

	results, err := f.service.RecognizeAndMark(context.Background(), []byte{0xFF})
	if err != nil {
		t.Fatalf("expected no error for empty frame: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d", len(results))
	}
}

func TestRecognizeAndMark_EmptyGallery(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{
		{Embedding: []float32{1, 0, 0}},
	}}
	f := newFixture(t, detector)

	results, err := f.service.RecognizeAndMark(context.Background(), []byte{0xFF})
	if err != nil {
		t.Fatalf("failed to recognize: %v", err)
	}
	if results[0].Matched {
		t.Error("expected no match from empty gallery")
	}
}

func TestRecognizeAndMark_DetectorFailure(t *testing.T) {
	f := newFixture(t, &fakeDetector{err: errors.New("camera offline")})

	if _, err := f.service.RecognizeAndMark(context.Background(), []byte{0xFF}); err == nil {
		t.Error("expected detector failure to surface")
	}
}

func TestRegister_Success(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{
		{Embedding: []float32{0.5, 0.5, 0}, DetScore: 0.99},
	}}
	f := newFixture(t, detector)

	student := store.Student{ID: "S001", Name: "Jan Novák", Email: "jan@example.com"}
	registered, err := f.service.Register(context.Background(), student, testJPEG(t))
	if err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	if registered.ID != "S001" {
		t.Errorf("expected registered id S001, got %s", registered.ID)
	}

	// Roster, encoding table and gallery must all know the student.
	if _, err := f.store.Students.Get("S001"); err != nil {
		t.Errorf("expected roster row: %v", err)
	}
	encodings, err := f.store.Encodings.Load()
	if err != nil {
		t.Fatalf("failed to load encodings: %v", err)
	}
	if len(encodings) != 1 || encodings[0].StudentID != "S001" {
		t.Errorf("expected one encoding for S001, got %+v", encodings)
	}
	if f.gallery.Size() != 1 {
		t.Errorf("expected gallery size 1, got %d", f.gallery.Size())
	}
}

func TestRegister_NoFaceWritesNothing(t *testing.T) {
	f := newFixture(t, &fakeDetector{})

	_, err := f.service.Register(context.Background(), store.Student{ID: "S001", Name: "Jan"}, testJPEG(t))
	if !errors.Is(err, recognizer.ErrNoFace) {
		t.Fatalf("expected ErrNoFace, got %v", err)
	}

	count, err := f.store.Students.Count()
	if err != nil {
		t.Fatalf("failed to count students: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no roster row, got %d", count)
	}
	encodings, _ := f.store.Encodings.Load()
	if len(encodings) != 0 {
		t.Errorf("expected no encoding row, got %d", len(encodings))
	}
}

func TestRegister_MultipleFacesRejected(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{
		{Embedding: []float32{1}},
		{Embedding: []float32{2}},
	}}
	f := newFixture(t, detector)

	_, err := f.service.Register(context.Background(), store.Student{ID: "S001", Name: "Jan"}, testJPEG(t))
	if !errors.Is(err, recognizer.ErrMultipleFaces) {
		t.Errorf("expected ErrMultipleFaces, got %v", err)
	}
}

func TestRegister_DuplicateIDRejected(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{
		{Embedding: []float32{1, 0, 0}},
	}}
	f := newFixture(t, detector)
	f.enroll(t, "S001", "Existing", []float32{0, 1, 0})

	_, err := f.service.Register(context.Background(), store.Student{ID: "S001", Name: "Duplicate"}, testJPEG(t))
	if !errors.Is(err, store.ErrDuplicateStudent) {
		t.Fatalf("expected ErrDuplicateStudent, got %v", err)
	}

	// The existing encoding must be untouched.
	encodings, _ := f.store.Encodings.Load()
	if len(encodings) != 1 || encodings[0].Vector[1] != 1 {
		t.Errorf("expected original encoding preserved, got %+v", encodings)
	}
}

func TestRegister_MissingFieldsRejected(t *testing.T) {
	f := newFixture(t, &fakeDetector{})

	if _, err := f.service.Register(context.Background(), store.Student{ID: "S001"}, testJPEG(t)); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := f.service.Register(context.Background(), store.Student{Name: "Jan"}, testJPEG(t)); err == nil {
		t.Error("expected error for missing id")
	}
}

func TestRegister_UndecodablePhotoRejected(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{{Embedding: []float32{1}}}}
	f := newFixture(t, detector)

	if _, err := f.service.Register(context.Background(), store.Student{ID: "S001", Name: "Jan"}, []byte("not an image")); err == nil {
		t.Error("expected error for undecodable photo")
	}
}

func TestUpdateEncoding_ReplacesVector(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{
		{Embedding: []float32{9, 9, 9}},
	}}
	f := newFixture(t, detector)
	f.enroll(t, "S001", "Jan", []float32{1, 0, 0})

	if err := f.service.UpdateEncoding(context.Background(), "S001", testJPEG(t)); err != nil {
		t.Fatalf("failed to update encoding: %v", err)
	}

	encodings, _ := f.store.Encodings.Load()
	if len(encodings) != 1 {
		t.Fatalf("expected 1 encoding, got %d", len(encodings))
	}
	if encodings[0].Vector[0] != 9 {
		t.Errorf("expected replaced vector, got %v", encodings[0].Vector)
	}
}

func TestUpdateEncoding_UnknownStudent(t *testing.T) {
	f := newFixture(t, &fakeDetector{faces: []recognizer.Face{{Embedding: []float32{1}}}})

	err := f.service.UpdateEncoding(context.Background(), "missing", testJPEG(t))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkByID(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	f.enroll(t, "S001", "Jan", []float32{1})

	result, err := f.service.MarkByID("S001")
	if err != nil {
		t.Fatalf("failed to mark: %v", err)
	}
	if !result.Marked {
		t.Error("expected first mark to write")
	}
	if result.Student.Name != "Jan" {
		t.Errorf("expected student Jan, got %s", result.Student.Name)
	}

	result, err = f.service.MarkByID("S001")
	if err != nil {
		t.Fatalf("failed to mark again: %v", err)
	}
	if result.Marked {
		t.Error("expected repeat mark to be a no-op")
	}
}

func TestMarkByID_UnknownStudent(t *testing.T) {
	f := newFixture(t, &fakeDetector{})

	_, err := f.service.MarkByID("missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkByRFID(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	if err := f.store.Students.Add(store.Student{ID: "S001", Name: "Jan", RFID: "CARD-7"}); err != nil {
		t.Fatalf("failed to add student: %v", err)
	}

	result, err := f.service.MarkByRFID("CARD-7")
	if err != nil {
		t.Fatalf("failed to mark by rfid: %v", err)
	}
	if result.Student.ID != "S001" || !result.Marked {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestMarkByRFID_UnknownCard(t *testing.T) {
	f := newFixture(t, &fakeDetector{})

	_, err := f.service.MarkByRFID("unknown")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadGallery(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	if err := f.store.Encodings.Put("S001", []float32{1, 2}); err != nil {
		t.Fatalf("failed to put encoding: %v", err)
	}
	if err := f.store.Encodings.Put("S002", []float32{3, 4}); err != nil {
		t.Fatalf("failed to put encoding: %v", err)
	}

	if err := f.service.LoadGallery(); err != nil {
		t.Fatalf("failed to load gallery: %v", err)
	}
	if f.service.GallerySize() != 2 {
		t.Errorf("expected gallery size 2, got %d", f.service.GallerySize())
	}
}

// mockService wires the service over the in-memory mock stores for
// error injection.
func mockService(t *testing.T, students *mock.MockStudents, ledger *mock.MockLedger, encodings *mock.MockEncodings) *Service {
	t.Helper()
	return New(Deps{
		Students:  students,
		Settings:  mock.NewMockSettings(),
		Ledger:    ledger,
		Encodings: encodings,
		Gallery:   gallery.New(0.6),
		Detector:  &fakeDetector{},
		Now:       func() time.Time { return testClock },
	})
}

func TestLoadGallery_StoreError(t *testing.T) {
	encodings := mock.NewMockEncodings()
	encodings.LoadError = errors.New("disk gone")
	svc := mockService(t, mock.NewMockStudents(), mock.NewMockLedger(), encodings)

	if err := svc.LoadGallery(); err == nil {
		t.Error("expected encoding load failure to surface")
	}
}

func TestMarkByID_LedgerError(t *testing.T) {
	students := mock.NewMockStudents()
	if err := students.Add(store.Student{ID: "S001", Name: "Jan"}); err != nil {
		t.Fatalf("failed to add student: %v", err)
	}
	ledger := mock.NewMockLedger()
	ledger.MarkError = errors.New("ledger file locked")
	svc := mockService(t, students, ledger, mock.NewMockEncodings())

	if _, err := svc.MarkByID("S001"); err == nil {
		t.Error("expected ledger write failure to surface")
	}
}

func TestRegister_WrongDimensionRejected(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{
		{Embedding: []float32{1, 0, 0}},
	}}
	f := newFixtureDim(t, detector, 4)

	_, err := f.service.Register(context.Background(), store.Student{ID: "S001", Name: "Jan"}, testJPEG(t))
	if err == nil {
		t.Fatal("expected dimension mismatch to fail registration")
	}

	count, _ := f.store.Students.Count()
	if count != 0 {
		t.Errorf("expected no roster row, got %d", count)
	}
	encodings, _ := f.store.Encodings.Load()
	if len(encodings) != 0 {
		t.Errorf("expected no encoding row, got %d", len(encodings))
	}
}

func TestRecognizeAndMark_WrongDimensionRejected(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{
		{Embedding: []float32{1, 0}},
	}}
	f := newFixtureDim(t, detector, 3)
	f.enroll(t, "S001", "Jan", []float32{1, 0, 0})

	if _, err := f.service.RecognizeAndMark(context.Background(), []byte{0xFF}); err == nil {
		t.Error("expected dimension mismatch to surface instead of a silent no-match")
	}
}

func TestLoadGallery_SkipsWrongDimension(t *testing.T) {
	f := newFixtureDim(t, &fakeDetector{}, 3)
	if err := f.store.Encodings.Put("S001", []float32{1, 2, 3}); err != nil {
		t.Fatalf("failed to put encoding: %v", err)
	}
	if err := f.store.Encodings.Put("S002", []float32{4, 5}); err != nil {
		t.Fatalf("failed to put encoding: %v", err)
	}

	if err := f.service.LoadGallery(); err != nil {
		t.Fatalf("failed to load gallery: %v", err)
	}
	if f.service.GallerySize() != 1 {
		t.Errorf("expected only the 3-dim encoding loaded, got size %d", f.service.GallerySize())
	}
}

func TestRecognizeDoesNotMark(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{{Embedding: []float32{1, 0, 0}}}}
	f := newFixture(t, detector)
	f.enroll(t, "S001", "Ada Lovelace", []float32{1, 0, 0})

	results, err := f.service.Recognize(context.Background(), testJPEG(t))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(results) != 1 || !results[0].Matched {
		t.Fatalf("expected one match, got %+v", results)
	}
	if results[0].Marked {
		t.Error("Recognize must not write ledger rows")
	}

	count, err := f.store.Ledger.CountOn(testClock)
	if err != nil {
		t.Fatalf("CountOn failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty ledger, got %d rows", count)
	}
}
