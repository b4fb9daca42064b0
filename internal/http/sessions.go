package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"live-interview-service/internal/service/audio"
	"live-interview-service/internal/service/session"
)

type sessionHandler struct {
	sessions *session.Manager
}

type errorResponse struct {
	Error string `json:"error"`
}

type suggestionsResponse struct {
	Items   []string         `json:"items"`
	Current session.Question `json:"current"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Str("component", "http").Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrSessionEnded):
		status = http.StatusConflict
	case errors.Is(err, audio.ErrDeviceUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *sessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "meetingId"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return s, true
}

func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.List())
}

func (h *sessionHandler) start(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Open(chi.URLParam(r, "meetingId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Start(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *sessionHandler) stop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	s.Stop()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *sessionHandler) close(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "meetingId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *sessionHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *sessionHandler) transcript(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Transcript())
}

func (h *sessionHandler) suggestions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{
		Items:   s.Suggestions(),
		Current: s.CurrentQuestion(),
	})
}

func (h *sessionHandler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.NextQuestion())
}

func (h *sessionHandler) prevQuestion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.PrevQuestion())
}

func (h *sessionHandler) notifications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	since := 0
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "since must be a non-negative integer"})
			return
		}
		since = n
	}
	writeJSON(w, http.StatusOK, s.Notifications(since))
}

func (h *sessionHandler) getNotes(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, notesRequest{Notes: s.Notes()})
}

func (h *sessionHandler) putNotes(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req notesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	s.SetNotes(req.Notes)
	writeJSON(w, http.StatusOK, req)
}
