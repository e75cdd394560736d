package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ondrejvana/rollcall/internal/attendance"
	"github.com/ondrejvana/rollcall/internal/recognizer"
	"github.com/ondrejvana/rollcall/internal/store"
)

// maxUploadSize caps registration photo uploads at 20 MB.
const maxUploadSize = 20 * 1024 * 1024

// StudentsHandler handles roster endpoints
type StudentsHandler struct {
	students store.StudentReader
	service  *attendance.Service
	onChange func()
}

// NewStudentsHandler creates a new students handler. onChange is called
// after a successful registration; nil is allowed.
func NewStudentsHandler(students store.StudentReader, service *attendance.Service, onChange func()) *StudentsHandler {
	if onChange == nil {
		onChange = func() {}
	}
	return &StudentsHandler{
		students: students,
		service:  service,
		onChange: onChange,
	}
}

// StudentsResponse represents the roster list response
type StudentsResponse struct {
	Students []store.Student `json:"students"`
	Count    int             `json:"count"`
}

// List returns the roster, optionally filtered by a name query
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		students []store.Student
		err      error
	)
	if query := r.URL.Query().Get("q"); query != "" {
		students, err = h.students.SearchByName(query)
	} else {
		students, err = h.students.List()
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read roster")
		return
	}
	if students == nil {
		students = []store.Student{}
	}
	respondJSON(w, http.StatusOK, StudentsResponse{Students: students, Count: len(students)})
}

// Get returns a single student by identifier
func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	student, err := h.students.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read roster")
		return
	}
	respondJSON(w, http.StatusOK, student)
}

// Register enrolls a new student from a multipart form with a photo
func (h *StudentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	student := store.Student{
		ID:    r.FormValue("student_id"),
		Name:  r.FormValue("name"),
		Email: r.FormValue("email"),
		Phone: r.FormValue("phone"),
		RFID:  r.FormValue("rfid"),
	}

	if student.ID == "" || student.Name == "" {
		respondError(w, http.StatusBadRequest, "student_id and name are required")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read photo")
		return
	}

	registered, err := h.service.Register(r.Context(), student, photo)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrDuplicateStudent):
		respondError(w, http.StatusConflict, "student already registered")
		return
	case errors.Is(err, recognizer.ErrNoFace):
		respondError(w, http.StatusUnprocessableEntity, "no face detected in photo")
		return
	case errors.Is(err, recognizer.ErrMultipleFaces):
		respondError(w, http.StatusUnprocessableEntity, "photo must contain exactly one face")
		return
	default:
		log.Printf("registration failed for %s: %v", sanitizeForLog(student.ID), err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.onChange()
	respondJSON(w, http.StatusCreated, registered)
}
