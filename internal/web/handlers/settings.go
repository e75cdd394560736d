package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ondrejvana/rollcall/internal/store"
	"github.com/ondrejvana/rollcall/internal/web/middleware"
)

// SettingsHandler serves the key-value settings table
type SettingsHandler struct {
	settings store.SettingsStore
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings store.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// SettingsResponse represents the settings response
type SettingsResponse struct {
	Settings map[string]string `json:"settings"`
}

// Get returns all settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.All()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	respondJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}

// Update writes the submitted settings, leaving unmentioned keys alone.
// Changes are attributed to the session that made them.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(updates) == 0 {
		respondError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	for key, value := range updates {
		if key == "" {
			respondError(w, http.StatusBadRequest, "setting keys must not be empty")
			return
		}
		if err := h.settings.Set(key, value); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to write settings")
			return
		}
	}

	if session := middleware.SessionFrom(r.Context()); session != nil {
		log.Printf("settings updated by session %s (%d keys)", session.ID, len(updates))
	}

	settings, err := h.settings.All()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	respondJSON(w, http.StatusOK, SettingsResponse{Settings: settings})
}
