// Package chat runs one founder turn end to end: it persists the message,
// drives the engine's event stream through the correlation driver, stores
// attributed specialist results on the session and saves the reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ShayCichocki/validator/internal/api"
	"github.com/ShayCichocki/validator/internal/session"
	"github.com/ShayCichocki/validator/internal/specialist"
	"github.com/ShayCichocki/validator/internal/stream"
	"github.com/ShayCichocki/validator/pkg/models"
)

// ErrEmptyMessage is returned for a blank founder message.
var ErrEmptyMessage = errors.New("message is empty")

// Engine starts conversational turns.
type Engine interface {
	Start(ctx context.Context, turn api.Turn) *api.Run
}

// Config wires a Runner.
type Config struct {
	Engine   Engine
	Sessions *session.Manager
	Registry *specialist.Registry
	// MaxArgumentBytes caps each invocation's argument buffer.
	MaxArgumentBytes int
	// RecordDir, when set, receives one NDJSON event log per turn.
	RecordDir string
	Logger    *slog.Logger
}

// Runner executes turns. It keeps no per-turn state and is safe for
// concurrent use.
type Runner struct {
	cfg Config
	log *slog.Logger
}

// NewRunner returns a runner.
func NewRunner(cfg Config) *Runner {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cfg: cfg, log: log}
}

// Registry returns the specialist registry the runner attributes against.
func (r *Runner) Registry() *specialist.Registry {
	return r.cfg.Registry
}

// Turn sends message on sess and passes every derived notification to emit.
// sess is updated in place and saved before and after the turn. If emit
// fails the turn is cancelled and emit's error is returned.
func (r *Runner) Turn(ctx context.Context, sess *models.Session, message string, emit func(stream.Notification) error) (*stream.Summary, error) {
	if message == "" {
		return nil, ErrEmptyMessage
	}

	history := append([]models.Message(nil), sess.Messages...)
	sess.Append(models.RoleUser, message, r.cfg.Sessions.Now())
	if err := r.cfg.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	rec, closeRec, err := r.recorder(sess.ID)
	if err != nil {
		r.log.Warn("turn recording disabled", "session", sess.ID, "error", err)
	}
	defer closeRec()

	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	run := r.cfg.Engine.Start(turnCtx, api.Turn{
		SessionID: sess.ID,
		ThreadID:  sess.ThreadID,
		History:   history,
		Message:   message,
	})

	d := stream.NewDriver(stream.Options{
		Attributor:       r.cfg.Registry.Attributor(),
		MaxArgumentBytes: r.cfg.MaxArgumentBytes,
	})

	var emitErr error
	deliver := func(notes []stream.Notification) {
		for _, n := range notes {
			if res, ok := n.(stream.Result); ok {
				r.storeResult(sess, res)
			}
			if emitErr != nil {
				continue
			}
			if err := emit(n); err != nil {
				emitErr = err
				cancel()
			}
		}
	}

	// Drain to the end even after a failure so the engine goroutine exits.
	for ev := range run.Events() {
		if rec != nil {
			if err := rec.Record(ev); err != nil {
				r.log.Warn("record event", "session", sess.ID, "error", err)
				rec = nil
			}
		}
		deliver(d.Handle(ev))
	}
	runErr := run.Wait()
	deliver(d.Finish())
	summary := d.Summary()

	if summary.Response != "" {
		sess.Append(models.RoleAssistant, summary.Response, r.cfg.Sessions.Now())
	}
	// Save with a fresh context so a disconnected client still keeps what
	// the turn produced.
	if err := r.cfg.Sessions.Save(context.WithoutCancel(ctx), sess); err != nil {
		r.log.Error("save session after turn", "session", sess.ID, "error", err)
	}

	switch {
	case emitErr != nil:
		return summary, emitErr
	case runErr != nil:
		return summary, runErr
	}
	return summary, nil
}

// storeResult keeps the latest attributed specialist result on sess. Failed
// runs and results of other tools are shown but not stored, so a failure
// never replaces an earlier report.
func (r *Runner) storeResult(sess *models.Session, res stream.Result) {
	if res.Attribution.Unknown() || res.IsError {
		return
	}
	if res.Tool != "" && res.Tool != api.ToolTask {
		return
	}
	id := res.Attribution.Specialist
	sess.StoreResult(models.AgentResult{
		AgentID:     id,
		Label:       r.cfg.Registry.Label(id),
		Content:     res.Content,
		Attribution: models.AttributionMethod(res.Attribution.Method),
		Report:      specialist.ParseReport(res.Content),
		UpdatedAt:   r.cfg.Sessions.Now(),
	})
}

func (r *Runner) recorder(sessionID string) (*stream.Recorder, func(), error) {
	noop := func() {}
	if r.cfg.RecordDir == "" {
		return nil, noop, nil
	}
	if err := os.MkdirAll(r.cfg.RecordDir, 0755); err != nil {
		return nil, noop, fmt.Errorf("create record dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.ndjson", sessionID, r.cfg.Sessions.Now().UTC().Format("20060102T150405.000000000"))
	f, err := os.Create(filepath.Join(r.cfg.RecordDir, name))
	if err != nil {
		return nil, noop, fmt.Errorf("create recording: %w", err)
	}
	return stream.NewRecorder(f), func() { f.Close() }, nil
}
