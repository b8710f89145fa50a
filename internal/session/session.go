// Package session keeps founder conversations: the transcript and the last
// result each specialist produced. Stores are last-write-wins.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/validator/internal/config"
	"github.com/ShayCichocki/validator/pkg/models"
)

// ErrNotFound is returned when no session has the requested ID.
var ErrNotFound = errors.New("session not found")

// Store persists whole session snapshots.
type Store interface {
	// Save writes s, replacing any stored copy.
	Save(ctx context.Context, s *models.Session) error
	// Load returns a copy of the stored session or ErrNotFound.
	Load(ctx context.Context, id string) (*models.Session, error)
	// List returns all sessions, oldest first.
	List(ctx context.Context) ([]*models.Session, error)
	// Delete removes a session or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewID returns a 12-character hex session ID.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Manager creates and updates sessions on top of a Store.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager returns a manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Create starts and saves an empty session.
func (m *Manager) Create(ctx context.Context) (*models.Session, error) {
	s := models.NewSession(NewID(), m.now())
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(ctx context.Context, id string) (*models.Session, error) {
	return m.store.Load(ctx, id)
}

// List returns all sessions.
func (m *Manager) List(ctx context.Context) ([]*models.Session, error) {
	return m.store.List(ctx)
}

// Delete removes the session with the given ID.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// Save stamps s and writes it back.
func (m *Manager) Save(ctx context.Context, s *models.Session) error {
	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Open builds the store named by cfg.Store.
func Open(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
