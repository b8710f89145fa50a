package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ShayCichocki/validator/internal/api"
	"github.com/ShayCichocki/validator/internal/chat"
	"github.com/ShayCichocki/validator/internal/config"
	"github.com/ShayCichocki/validator/internal/search"
	"github.com/ShayCichocki/validator/internal/session"
	"github.com/ShayCichocki/validator/internal/specialist"
	"github.com/ShayCichocki/validator/internal/tracing"
)

// deps holds everything a conversation front end needs.
type deps struct {
	cfg      *config.Config
	registry *specialist.Registry
	sessions *session.Manager
	runner   *chat.Runner
	tracing  *tracing.Provider
	client   *api.Client
}

// buildDeps wires the engine, stores and tracing from cfg.
func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	plan, err := specialist.LoadPlan(cfg.Specialists.QuestionsFile)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	client, err := api.NewClient(api.ClientConfigFrom(cfg))
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}

	tp, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		// Tracing is optional; run without it.
		slog.Warn("tracing disabled", "error", err)
		tp = tracing.Disabled()
	}

	searcher := search.New(cfg)
	if !searcher.Enabled() {
		slog.Info("web search not configured; web_search calls will report it unavailable")
	}

	engine, err := api.NewEngine(api.EngineConfig{
		Client:        client,
		Registry:      reg,
		Plan:          plan,
		Search:        searcher,
		Tracer:        tp.Tracer(),
		MaxIterations: cfg.Orchestrator.MaxIterations,
		MaxTokens:     cfg.Orchestrator.MaxTokens,
		Logger:        slog.Default(),
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("open %s session store: %w", cfg.Session.Store, err)
	}
	sessions := session.NewManager(store)

	runner := chat.NewRunner(chat.Config{
		Engine:           engine,
		Sessions:         sessions,
		Registry:         reg,
		MaxArgumentBytes: cfg.Stream.MaxArgumentBytes,
		RecordDir:        cfg.Server.RecordDir,
		Logger:           slog.Default(),
	})

	return &deps{
		cfg:      cfg,
		registry: reg,
		sessions: sessions,
		runner:   runner,
		tracing:  tp,
		client:   client,
	}, nil
}

// close flushes spans and closes the session store.
func (d *deps) close(ctx context.Context) {
	in, out := d.client.Tracker().Total()
	slog.Debug("token usage", "calls", d.client.Tracker().Calls(), "input", in, "output", out,
		"cost_usd", fmt.Sprintf("%.4f", d.client.Tracker().Cost()))

	if err := d.tracing.Shutdown(ctx); err != nil {
		slog.Warn("flush traces", "error", err)
	}
	if err := d.sessions.Close(); err != nil {
		slog.Warn("close session store", "error", err)
	}
}

// tracingHost returns the Langfuse host when tracing is on.
func (d *deps) tracingHost() string {
	if !d.tracing.Enabled() {
		return ""
	}
	return d.cfg.Tracing.Host
}

func loadRegistry(cfg *config.Config) (*specialist.Registry, error) {
	reg, err := specialist.LoadRegistry(cfg.Specialists.AgentsFile, api.SpecialistToolNames())
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	return reg, nil
}
