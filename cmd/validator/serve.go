package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/validator/internal/console"
	"github.com/ShayCichocki/validator/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

Endpoints:
  POST   /api/sessions        create a session
  GET    /api/sessions        list sessions
  GET    /api/sessions/{id}   session detail with specialist results
  DELETE /api/sessions/{id}   delete a session
  POST   /api/chat            send a message; the reply streams as SSE
  GET    /api/agents          specialist agents
  GET    /health              liveness
  GET    /metrics             Prometheus metrics

Every turn is also traced to the terminal.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close(context.Background())

	console.PrintBanner(cmd.OutOrStdout(), console.Banner{
		Title:       "Venture Validator API",
		Subtitle:    "Listening on " + cfg.Server.Addr,
		Debug:       true,
		TracingHost: d.tracingHost(),
	})

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		TurnTimeout:     cfg.Orchestrator.TurnTimeout,
	}, d.runner, d.sessions, server.Options{
		Tracer:   d.tracing.Tracer(),
		Terminal: cmd.OutOrStdout(),
	})
	return srv.ListenAndServe(ctx)
}
