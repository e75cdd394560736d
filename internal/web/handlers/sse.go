package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ondrejvana/rollcall/internal/camera"
)

// sendSSEEvent writes a single server-sent event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}

// streamSessionEvents sets up SSE headers and streams capture session
// events until the session reaches a terminal state or the client
// disconnects.
func streamSessionEvents(w http.ResponseWriter, r *http.Request, session *camera.Session) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sendSSEEvent(w, flusher, "status", session.Snapshot())
	if session.IsTerminal() {
		return
	}

	eventCh := session.AddListener()
	defer session.RemoveListener(eventCh)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
			if session.IsTerminal() {
				return
			}
		}
	}
}
