package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/validator/pkg/models"
)

// SaveSession writes a full snapshot of s, replacing any stored transcript
// and agent results. The last save wins.
func (db *DB) SaveSession(ctx context.Context, s *models.Session) error {
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, thread_id, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET thread_id = excluded.thread_id, updated_at = excluded.updated_at
		`, s.ID, s.ThreadID, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", s.ID); err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
		for i, m := range s.Messages {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO messages (session_id, seq, role, content, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, s.ID, i, string(m.Role), m.Content, formatTime(m.CreatedAt))
			if err != nil {
				return fmt.Errorf("save message %d: %w", i, err)
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM agent_results WHERE session_id = ?", s.ID); err != nil {
			return fmt.Errorf("clear agent results: %w", err)
		}
		for id, r := range s.AgentResults {
			var report sql.NullString
			if r.Report != nil {
				data, err := json.Marshal(r.Report)
				if err != nil {
					return fmt.Errorf("encode report for %s: %w", id, err)
				}
				report = sql.NullString{String: string(data), Valid: true}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO agent_results (session_id, agent_id, label, content, attribution, report, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, s.ID, id, r.Label, r.Content, string(r.Attribution), report, formatTime(r.UpdatedAt))
			if err != nil {
				return fmt.Errorf("save agent result %s: %w", id, err)
			}
		}
		return nil
	})
}

// GetSession retrieves a session by ID. It returns nil, nil when no session
// has that ID.
func (db *DB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, thread_id, created_at, updated_at FROM sessions WHERE id = ?
	`, id)

	var s models.Session
	var createdAt, updatedAt string
	err := row.Scan(&s.ID, &s.ThreadID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt, _ = parseTime(createdAt)
	s.UpdatedAt, _ = parseTime(updatedAt)

	if s.Messages, err = db.messages(ctx, id); err != nil {
		return nil, err
	}
	if s.AgentResults, err = db.agentResults(ctx, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns all sessions, oldest first.
func (db *DB) ListSessions(ctx context.Context) ([]*models.Session, error) {
	db.mu.RLock()
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM sessions ORDER BY created_at, id`)
	if err != nil {
		db.mu.RUnlock()
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			db.mu.RUnlock()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	db.mu.RUnlock()

	sessions := make([]*models.Session, 0, len(ids))
	for _, id := range ids {
		s, err := db.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		// Deleted between the two queries.
		if s == nil {
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// DeleteSession deletes a session and its children. It reports whether a
// session was removed.
func (db *DB) DeleteSession(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM messages WHERE session_id = ?",
			"DELETE FROM agent_results WHERE session_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete session children: %w", err)
			}
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

func (db *DB) messages(ctx context.Context, sessionID string) ([]models.Message, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT role, content, created_at FROM messages WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		var role, createdAt string
		if err := rows.Scan(&role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = models.Role(role)
		m.CreatedAt, _ = parseTime(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (db *DB) agentResults(ctx context.Context, sessionID string) (map[string]models.AgentResult, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT agent_id, label, content, attribution, report, updated_at
		FROM agent_results WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list agent results: %w", err)
	}
	defer rows.Close()

	results := map[string]models.AgentResult{}
	for rows.Next() {
		var r models.AgentResult
		var label, report sql.NullString
		var attribution, updatedAt string
		if err := rows.Scan(&r.AgentID, &label, &r.Content, &attribution, &report, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan agent result: %w", err)
		}
		r.Label = label.String
		r.Attribution = models.AttributionMethod(attribution)
		r.UpdatedAt, _ = parseTime(updatedAt)
		if report.Valid {
			var rep models.Report
			if err := json.Unmarshal([]byte(report.String), &rep); err != nil {
				return nil, fmt.Errorf("decode report for %s: %w", r.AgentID, err)
			}
			r.Report = &rep
		}
		results[r.AgentID] = r
	}
	return results, rows.Err()
}
