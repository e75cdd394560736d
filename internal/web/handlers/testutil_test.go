package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ondrejvana/rollcall/internal/attendance"
	"github.com/ondrejvana/rollcall/internal/config"
	"github.com/ondrejvana/rollcall/internal/gallery"
	"github.com/ondrejvana/rollcall/internal/recognizer"
	"github.com/ondrejvana/rollcall/internal/store"
)

var testClock = time.Date(2025, 3, 14, 8, 45, 0, 0, time.Local)

// errMockFailure is a generic injected store failure.
var errMockFailure = errors.New("injected store failure")

// testConfig creates a minimal config for handler tests
func testConfig() *config.Config {
	return &config.Config{
		Web: config.WebConfig{
			AdminPassword: "opensesame",
		},
		Camera: config.CameraConfig{
			IntervalMs: 1,
		},
	}
}

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

// fixture bundles a real temp-dir store with an attendance service
// backed by a canned detector.
type fixture struct {
	store    *store.Store
	gallery  *gallery.Gallery
	detector *fakeDetector
	service  *attendance.Service
}

func newFixture(t *testing.T, detector *fakeDetector) *fixture {
	t.Helper()
	st, err := store.Open(t.TempDir(), map[string]string{"late_threshold": "09:00"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	g := gallery.New(0.6)
	service := attendance.New(attendance.Deps{
		Students:  st.Students,
		Settings:  st.Settings,
		Ledger:    st.Ledger,
		Encodings: st.Encodings,
		Gallery:   g,
		Detector:  detector,
		SavePhoto: st.SaveEnrollmentPhoto,
		Now:       func() time.Time { return testClock },
	})
	return &fixture{store: st, gallery: g, detector: detector, service: service}
}

// enroll adds a roster row with a known embedding, bypassing detection.
func (f *fixture) enroll(t *testing.T, id, name string, vector []float32) {
	t.Helper()
	if err := f.store.Students.Add(store.Student{ID: id, Name: name}); err != nil {
		t.Fatalf("failed to add student %s: %v", id, err)
	}
	if err := f.store.Encodings.Put(id, vector); err != nil {
		t.Fatalf("failed to store encoding for %s: %v", id, err)
	}
	f.gallery.Add(id, vector)
}

// testJPEG returns a small valid JPEG for upload bodies.
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

// multipartRequest builds a multipart request with form fields and one
// file part.
func multipartRequest(t *testing.T, path string, fields map[string]string, fileField string, fileData []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, "photo.jpg")
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("failed to write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
