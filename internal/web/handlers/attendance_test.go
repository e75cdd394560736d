package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ondrejvana/rollcall/internal/recognizer"
	"github.com/ondrejvana/rollcall/internal/store"
)

func TestRecognizeMarksMatchedStudent(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{{Embedding: []float32{1, 0, 0}, DetScore: 0.99}}}
	f := newFixture(t, detector)
	f.enroll(t, "S001", "Ada Lovelace", []float32{1, 0, 0})

	invalidated := false
	h := NewAttendanceHandler(f.service, func() { invalidated = true })

	req := multipartRequest(t, "/api/v1/attendance/recognize", nil, "image", testJPEG(t))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Matched != 1 || resp.Marked != 1 {
		t.Errorf("expected one matched and marked face, got %+v", resp)
	}
	if !invalidated {
		t.Error("expected cache invalidation after a mark")
	}

	marked, err := f.store.Ledger.HasMarked("S001", testClock)
	if err != nil {
		t.Fatalf("HasMarked failed: %v", err)
	}
	if !marked {
		t.Error("expected a ledger row for S001")
	}
}

func TestRecognizeSecondFrameDoesNotRemark(t *testing.T) {
	detector := &fakeDetector{faces: []recognizer.Face{{Embedding: []float32{1, 0, 0}}}}
	f := newFixture(t, detector)
	f.enroll(t, "S001", "Ada Lovelace", []float32{1, 0, 0})

	h := NewAttendanceHandler(f.service, nil)

	for i := 0; i < 2; i++ {
		req := multipartRequest(t, "/api/v1/attendance/recognize", nil, "image", testJPEG(t))
		rec := httptest.NewRecorder()
		h.Recognize(rec, req)
		assertStatusCode(t, rec, http.StatusOK)
	}

	count, err := f.store.Ledger.CountOn(testClock)
	if err != nil {
		t.Fatalf("CountOn failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one ledger row, got %d", count)
	}
}

func TestRecognizeNoFaces(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	h := NewAttendanceHandler(f.service, nil)

	req := multipartRequest(t, "/api/v1/attendance/recognize", nil, "image", testJPEG(t))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if len(resp.Faces) != 0 || resp.Matched != 0 {
		t.Errorf("expected empty result, got %+v", resp)
	}
}

func TestRecognizeDetectorFailure(t *testing.T) {
	f := newFixture(t, &fakeDetector{err: errors.New("embedding server down")})
	h := NewAttendanceHandler(f.service, nil)

	req := multipartRequest(t, "/api/v1/attendance/recognize", nil, "image", testJPEG(t))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadGateway)
}

func TestRecognizeMissingImage(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	h := NewAttendanceHandler(f.service, nil)

	req := multipartRequest(t, "/api/v1/attendance/recognize", nil, "", nil)
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func markBody(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/mark", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestMarkByStudentID(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	f.enroll(t, "S001", "Ada Lovelace", []float32{1, 0, 0})

	h := NewAttendanceHandler(f.service, nil)
	rec := httptest.NewRecorder()
	h.Mark(rec, markBody(`{"student_id":"S001"}`))

	assertStatusCode(t, rec, http.StatusOK)
	var resp MarkResponse
	parseJSONResponse(t, rec, &resp)
	if !resp.Marked || resp.Student.ID != "S001" {
		t.Errorf("expected S001 marked, got %+v", resp)
	}

	// Second mark is a no-op.
	rec = httptest.NewRecorder()
	h.Mark(rec, markBody(`{"student_id":"S001"}`))
	parseJSONResponse(t, rec, &resp)
	if resp.Marked {
		t.Error("expected second mark to be a no-op")
	}
}

func TestMarkByRFID(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	if err := f.store.Students.Add(store.Student{ID: "S002", Name: "Grace Hopper", RFID: "CARD42"}); err != nil {
		t.Fatalf("failed to add student: %v", err)
	}

	h := NewAttendanceHandler(f.service, nil)
	rec := httptest.NewRecorder()
	h.Mark(rec, markBody(`{"rfid":"CARD42"}`))

	assertStatusCode(t, rec, http.StatusOK)
	var resp MarkResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Student.ID != "S002" {
		t.Errorf("expected S002, got %+v", resp.Student)
	}
}

func TestMarkUnknownStudent(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	h := NewAttendanceHandler(f.service, nil)

	rec := httptest.NewRecorder()
	h.Mark(rec, markBody(`{"student_id":"NOPE"}`))

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestMarkMissingIdentifier(t *testing.T) {
	f := newFixture(t, &fakeDetector{})
	h := NewAttendanceHandler(f.service, nil)

	rec := httptest.NewRecorder()
	h.Mark(rec, markBody(`{}`))

	assertStatusCode(t, rec, http.StatusBadRequest)
}
