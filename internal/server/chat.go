package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ShayCichocki/validator/internal/api"
	"github.com/ShayCichocki/validator/internal/console"
	"github.com/ShayCichocki/validator/internal/stream"
	"github.com/ShayCichocki/validator/internal/tracing"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SSE payloads.
type (
	messageEvent struct {
		Content string `json:"content"`
		Node    string `json:"node"`
	}
	agentStartEvent struct {
		AgentID     string `json:"agentId"`
		Description string `json:"description"`
	}
	agentResultEvent struct {
		AgentID     string `json:"agentId"`
		Label       string `json:"label"`
		Content     string `json:"content"`
		Attribution string `json:"attribution"`
		Failed      bool   `json:"failed,omitempty"`
	}
	errorEvent struct {
		Message string `json:"message"`
	}
	doneEvent struct {
		Status string `json:"status"`
	}
)

// sseWriter writes named events and flushes after each one.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseWriter) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sess, ok := s.loadSession(w, r, req.SessionID)
	if !ok {
		return
	}

	ctx, span := s.tracer.Start(r.Context(), "api.chat", trace.WithAttributes(tracing.AttrSessionID.String(sess.ID)))
	defer span.End()
	if s.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TurnTimeout)
		defer cancel()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	sse := &sseWriter{w: w, flusher: flusher}

	console.PrintSeparator(s.out)
	console.PrintUser(s.out, req.Message)
	term := console.New(s.out, console.Options{Labels: s.registry.Labels(), Debug: true})

	emit := func(n stream.Notification) error {
		// The terminal log is best effort; the client stream is not.
		_ = term.Render(n)
		s.observe(n)
		return s.sendNotification(sse, n)
	}

	start := time.Now()
	_, err := s.runner.Turn(ctx, sess, req.Message, emit)
	s.metrics.turnDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		s.metrics.turns.WithLabelValues("complete").Inc()
		sse.send("done", doneEvent{Status: "complete"})
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client disconnected; nobody is left to tell.
		s.metrics.turns.WithLabelValues("canceled").Inc()
		s.log.Info("chat client disconnected", "session", sess.ID)
	default:
		s.metrics.turns.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		s.log.Error("chat turn failed", "session", sess.ID, "error", err)
		sse.send("error", errorEvent{Message: err.Error()})
		sse.send("done", doneEvent{Status: "error"})
	}
	console.PrintSeparator(s.out)
}

// sendNotification maps a notification to its SSE event. Boundaries are
// terminal-only; results of tools other than task are not specialist
// answers and stay off the client stream.
func (s *Server) sendNotification(sse *sseWriter, n stream.Notification) error {
	switch v := n.(type) {
	case stream.Text:
		return sse.send("message", messageEvent{Content: v.Content, Node: v.Node})
	case stream.Dispatch:
		if v.Specialist == "" {
			return nil
		}
		return sse.send("agent_start", agentStartEvent{AgentID: v.Specialist, Description: v.Description})
	case stream.Result:
		if v.Tool != "" && v.Tool != api.ToolTask {
			return nil
		}
		ev := agentResultEvent{
			AgentID:     v.Attribution.Specialist,
			Content:     v.Content,
			Attribution: string(v.Attribution.Method),
			Failed:      v.IsError,
		}
		if v.Attribution.Unknown() {
			ev.Label = fmt.Sprintf("agent #%d", v.Seq)
		} else {
			ev.Label = s.registry.Label(v.Attribution.Specialist)
		}
		return sse.send("agent_result", ev)
	}
	return nil
}

func (s *Server) observe(n stream.Notification) {
	switch v := n.(type) {
	case stream.Dispatch:
		if v.Specialist != "" {
			s.metrics.dispatches.WithLabelValues(v.Specialist).Inc()
		}
	case stream.Result:
		s.metrics.results.WithLabelValues(string(v.Attribution.Method)).Inc()
	}
}
