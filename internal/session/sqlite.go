package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ShayCichocki/validator/internal/state"
	"github.com/ShayCichocki/validator/pkg/models"
)

// SQLiteStore adapts the state database to the Store interface.
type SQLiteStore struct {
	db state.StateStore
}

// NewSQLiteStore opens and migrates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := state.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session database: %w", err)
	}
	slog.Debug("session database ready", "path", db.Path())
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess *models.Session) error {
	return s.db.SaveSession(ctx, sess)
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*models.Session, error) {
	sess, err := s.db.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.Session, error) {
	return s.db.ListSessions(ctx)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	deleted, err := s.db.DeleteSession(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
