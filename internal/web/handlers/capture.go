package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ondrejvana/rollcall/internal/camera"
	"github.com/ondrejvana/rollcall/internal/config"
)

// CaptureHandler manages the camera capture session lifecycle
type CaptureHandler struct {
	config    *config.Config
	manager   *camera.Manager
	newSource func() camera.FrameSource
	recognize camera.Recognizer

	mu      sync.Mutex
	current string // ID of the most recently started session
}

// NewCaptureHandler creates a new capture handler. newSource builds the
// frame source for each session; nil uses the configured snapshot URL.
func NewCaptureHandler(cfg *config.Config, manager *camera.Manager, recognize camera.Recognizer, newSource func() camera.FrameSource) *CaptureHandler {
	if newSource == nil && cfg.Camera.URL != "" {
		newSource = func() camera.FrameSource {
			return camera.NewHTTPFrameSource(cfg.Camera.URL)
		}
	}
	return &CaptureHandler{
		config:    cfg,
		manager:   manager,
		newSource: newSource,
		recognize: recognize,
	}
}

// startRequest represents a capture start request
type startRequest struct {
	IntervalMS int `json:"interval_ms"`
}

// Start launches a new capture session
func (h *CaptureHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.newSource == nil {
		respondError(w, http.StatusUnprocessableEntity, "no camera configured")
		return
	}

	interval := time.Duration(h.config.Camera.IntervalMs) * time.Millisecond
	if r.Body != nil && r.ContentLength != 0 {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		if req.IntervalMS > 0 {
			interval = time.Duration(req.IntervalMS) * time.Millisecond
		}
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	// The conflict check and the add must happen under the same lock,
	// otherwise two concurrent starts can both pass the check.
	h.mu.Lock()
	if running := h.manager.Running(); running != nil {
		h.mu.Unlock()
		respondError(w, http.StatusConflict, "a capture session is already running")
		return
	}

	session := camera.NewSession(uuid.New().String(), h.newSource(), h.recognize, interval)
	h.manager.Add(session)
	// The session outlives the request, so it runs on its own context.
	if err := session.Start(context.Background()); err != nil {
		h.mu.Unlock()
		respondError(w, http.StatusInternalServerError, "failed to start capture")
		return
	}
	h.current = session.ID
	h.mu.Unlock()

	respondJSON(w, http.StatusCreated, session.Snapshot())
}

// Status reports the current capture session
func (h *CaptureHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.currentSession()
	if session == nil {
		respondJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"active":  session.GetStatus() == camera.StatusRunning,
		"session": session.Snapshot(),
	})
}

// Stop ends the current capture session
func (h *CaptureHandler) Stop(w http.ResponseWriter, r *http.Request) {
	session := h.currentSession()
	if session == nil {
		respondError(w, http.StatusNotFound, "no capture session")
		return
	}
	session.Stop()
	respondJSON(w, http.StatusOK, session.Snapshot())
}

// Events streams the current session's events over SSE
func (h *CaptureHandler) Events(w http.ResponseWriter, r *http.Request) {
	session := h.currentSession()
	if session == nil {
		respondError(w, http.StatusNotFound, "no capture session")
		return
	}
	streamSessionEvents(w, r, session)
}

func (h *CaptureHandler) currentSession() *camera.Session {
	h.mu.Lock()
	id := h.current
	h.mu.Unlock()
	if id == "" {
		return nil
	}
	return h.manager.Get(id)
}
