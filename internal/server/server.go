// Package server exposes sessions, the specialist list and a streaming chat
// endpoint over HTTP. Every chat turn is also rendered to the terminal.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/trace"

	"github.com/ShayCichocki/validator/internal/chat"
	"github.com/ShayCichocki/validator/internal/session"
	"github.com/ShayCichocki/validator/internal/specialist"
	"github.com/ShayCichocki/validator/internal/tracing"
)

// Config holds server configuration.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	// TurnTimeout bounds one chat turn. Zero means no limit beyond the
	// client connection.
	TurnTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg      Config
	runner   *chat.Runner
	sessions *session.Manager
	registry *specialist.Registry
	tracer   trace.Tracer
	log      *slog.Logger
	out      io.Writer
	metrics  *metrics
	promReg  *prometheus.Registry
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Tracer trace.Tracer
	Logger *slog.Logger
	// Terminal receives the debug rendering of every turn. Nil means stdout.
	Terminal io.Writer
}

// New creates a server.
func New(cfg Config, runner *chat.Runner, sessions *session.Manager, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.Disabled().Tracer()
	}
	out := opts.Terminal
	if out == nil {
		out = os.Stdout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	promReg := prometheus.NewRegistry()
	return &Server{
		cfg:      cfg,
		runner:   runner,
		sessions: sessions,
		registry: runner.Registry(),
		tracer:   tracer,
		log:      log,
		out:      &lockedWriter{w: out},
		metrics:  newMetrics(promReg),
		promReg:  promReg,
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.metrics.middleware)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{})).Methods("GET")

	r.HandleFunc("/api/sessions", s.handleCreateSession).Methods("POST")
	r.HandleFunc("/api/sessions", s.handleListSessions).Methods("GET")
	r.HandleFunc("/api/sessions/{id}", s.handleGetSession).Methods("GET")
	r.HandleFunc("/api/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	r.HandleFunc("/api/agents", s.handleListAgents).Methods("GET")
	r.HandleFunc("/api/chat", s.handleChat).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("validator serve started", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down server")
	case err := <-errCh:
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("server shutdown error", "error", err)
		return err
	}
	return nil
}

// lockedWriter serialises terminal writes from concurrent turns.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
