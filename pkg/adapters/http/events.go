package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// sessionEvents handles GET /api/sessions/{id}/events: a server-sent event
// per change of the session context, as a domain.ContextDiff.
func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	diffs, cancel := s.engine.Subscribe(sessionID)
	defer cancel()

	s.logger.Info("SSE: subscribing to session updates", "session_id", sessionID)
	stream(w, r, diffs)
	s.logger.Info("SSE: client disconnected", "session_id", sessionID)
}

// reloadEvents handles GET /api/events: a server-sent event per graph reload.
func (s *Server) reloadEvents(w http.ResponseWriter, r *http.Request) {
	events, cancel := s.engine.SubscribeReloads()
	defer cancel()

	s.logger.Info("SSE: subscribing to graph reloads")
	stream(w, r, events)
}

// stream writes every message of ch as a JSON data event until the client
// goes away or ch is closed.
func stream[T any](w http.ResponseWriter, r *http.Request, ch <-chan T) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprint(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
