package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ShayCichocki/validator/internal/chat"
	"github.com/ShayCichocki/validator/internal/console"
	"github.com/ShayCichocki/validator/internal/session"
	"github.com/ShayCichocki/validator/pkg/models"
)

// Backend runs conversation turns for the chat.
type Backend interface {
	// NewSession starts a fresh conversation and returns its id.
	NewSession(ctx context.Context) (string, error)
	// Send runs one turn, writing rendered output to out as it streams.
	Send(ctx context.Context, text string, debug bool, out io.Writer) error
}

// ChatBackend is the Backend that talks to the orchestrator.
type ChatBackend struct {
	runner   *chat.Runner
	sessions *session.Manager

	mu   sync.Mutex
	sess *models.Session
}

// NewChatBackend creates a backend over runner.
func NewChatBackend(runner *chat.Runner, sessions *session.Manager) *ChatBackend {
	return &ChatBackend{runner: runner, sessions: sessions}
}

// NewSession implements Backend.
func (b *ChatBackend) NewSession(ctx context.Context) (string, error) {
	sess, err := b.sessions.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	b.mu.Lock()
	b.sess = sess
	b.mu.Unlock()
	return sess.ID, nil
}

// Send implements Backend.
func (b *ChatBackend) Send(ctx context.Context, text string, debug bool, out io.Writer) error {
	b.mu.Lock()
	sess := b.sess
	b.mu.Unlock()
	if sess == nil {
		return fmt.Errorf("no active session")
	}

	r := console.New(out, console.Options{
		Labels: b.runner.Registry().Labels(),
		Debug:  debug,
	})
	_, err := b.runner.Turn(ctx, sess, text, r.Render)
	return err
}
