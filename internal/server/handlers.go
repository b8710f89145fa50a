package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ShayCichocki/validator/internal/console"
	"github.com/ShayCichocki/validator/internal/session"
	"github.com/ShayCichocki/validator/pkg/models"
)

// SessionResponse identifies a created session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	ThreadID  string `json:"thread_id"`
}

// SessionDetail is returned by GET /api/sessions/{id}.
type SessionDetail struct {
	SessionID    string                        `json:"session_id"`
	ThreadID     string                        `json:"thread_id"`
	MessageCount int                           `json:"message_count"`
	AgentResults map[string]models.AgentResult `json:"agent_results"`
}

// SessionSummary is one entry of GET /api/sessions.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	ThreadID     string    `json:"thread_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// AgentInfo is one entry of GET /api/agents.
type AgentInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		s.log.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	s.metrics.sessions.Inc()
	console.PrintSession(s.out, sess.ID)
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: sess.ID, ThreadID: sess.ThreadID})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.List(r.Context())
	if err != nil {
		s.log.Error("list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	out := make([]SessionSummary, 0, len(list))
	for _, sess := range list {
		out = append(out, SessionSummary{
			SessionID:    sess.ID,
			ThreadID:     sess.ThreadID,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: len(sess.Messages),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionDetail{
		SessionID:    sess.ID,
		ThreadID:     sess.ThreadID,
		MessageCount: len(sess.Messages),
		AgentResults: sess.AgentResults,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.Delete(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
	case err != nil:
		s.log.Error("delete session", "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete session")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	all := s.registry.All()
	out := make([]AgentInfo, 0, len(all))
	for _, d := range all {
		out = append(out, AgentInfo{ID: d.ID, Label: d.Label, Description: d.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

// loadSession writes a 404 or 500 and reports false when id cannot be loaded.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request, id string) (*models.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	case err != nil:
		s.log.Error("load session", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load session")
		return nil, false
	}
	return sess, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
