package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ondrejvana/rollcall/internal/attendance"
	"github.com/ondrejvana/rollcall/internal/store"
)

// AttendanceHandler handles recognition and manual marking
type AttendanceHandler struct {
	service  *attendance.Service
	onChange func()
}

// NewAttendanceHandler creates a new attendance handler. onChange is
// called after any mark is written; nil is allowed.
func NewAttendanceHandler(service *attendance.Service, onChange func()) *AttendanceHandler {
	if onChange == nil {
		onChange = func() {}
	}
	return &AttendanceHandler{
		service:  service,
		onChange: onChange,
	}
}

// RecognizeResponse represents the recognition response
type RecognizeResponse struct {
	Faces   []attendance.RecognitionResult `json:"faces"`
	Matched int                            `json:"matched"`
	Marked  int                            `json:"marked"`
}

// Recognize runs face recognition on an uploaded frame and marks
// attendance for every matched student
func (h *AttendanceHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	results, err := h.service.RecognizeAndMark(r.Context(), imageData)
	if err != nil {
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}

	resp := RecognizeResponse{Faces: results}
	if resp.Faces == nil {
		resp.Faces = []attendance.RecognitionResult{}
	}
	for _, face := range results {
		if face.Matched {
			resp.Matched++
		}
		if face.Marked {
			resp.Marked++
		}
	}
	if resp.Marked > 0 {
		h.onChange()
	}
	respondJSON(w, http.StatusOK, resp)
}

// markRequest represents a manual mark request
type markRequest struct {
	StudentID string `json:"student_id"`
	RFID      string `json:"rfid"`
}

// MarkResponse represents the manual mark response
type MarkResponse struct {
	Student store.Student `json:"student"`
	Marked  bool          `json:"marked"`
}

// Mark records attendance for a student by identifier or RFID card
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	var (
		result *attendance.MarkResult
		err    error
	)
	switch {
	case req.StudentID != "":
		result, err = h.service.MarkByID(req.StudentID)
	case req.RFID != "":
		result, err = h.service.MarkByRFID(req.RFID)
	default:
		respondError(w, http.StatusBadRequest, "student_id or rfid is required")
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to mark attendance")
		return
	}

	if result.Marked {
		h.onChange()
	}
	respondJSON(w, http.StatusOK, MarkResponse{Student: *result.Student, Marked: result.Marked})
}
