package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ondrejvana/rollcall/internal/attendance"
)

const dayFormat = "2006-01-02"

// RecordsHandler serves joined attendance records
type RecordsHandler struct {
	service *attendance.Service
	now     func() time.Time
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(service *attendance.Service) *RecordsHandler {
	return &RecordsHandler{
		service: service,
		now:     time.Now,
	}
}

// RecordsResponse represents the records response
type RecordsResponse struct {
	Records []attendance.Record `json:"records"`
	Count   int                 `json:"count"`
	Start   string              `json:"start"`
	End     string              `json:"end"`
}

// Get returns attendance records over a date range, as JSON or CSV
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.service.RecordsBetween(start, end)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}

	if r.URL.Query().Get("format") == "csv" {
		filename := fmt.Sprintf("attendance_%s_%s.csv", start.Format(dayFormat), end.Format(dayFormat))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		if err := attendance.WriteRecordsCSV(w, records); err != nil {
			// Headers already sent, nothing sensible left to do.
			return
		}
		return
	}

	respondJSON(w, http.StatusOK, RecordsResponse{
		Records: records,
		Count:   len(records),
		Start:   start.Format(dayFormat),
		End:     end.Format(dayFormat),
	})
}

// parseRange reads start and end query parameters, defaulting both to
// today.
func (h *RecordsHandler) parseRange(r *http.Request) (time.Time, time.Time, error) {
	today := h.now()
	start, end := today, today

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.ParseInLocation(dayFormat, raw, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q", raw)
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.ParseInLocation(dayFormat, raw, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q", raw)
		}
		end = parsed
	}
	return start, end, nil
}
