package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/umputun/eventscope/pkg/db"
)

// SQLiteStore keeps pending confirmations in the shared sqlite database so
// they survive restarts. The payload is stored as JSON, the schema only cares
// about the key.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a store over the shared database
func NewSQLiteStore(database *db.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

// Set stores or replaces the pending confirmation for key
func (s *SQLiteStore) Set(ctx context.Context, key string, p Pending) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending: %w", err)
	}
	query := `INSERT INTO pending_sessions (key, payload) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, created_at = datetime('now')`
	if _, err := s.db.ExecContext(ctx, query, key, string(payload)); err != nil {
		return fmt.Errorf("upsert pending: %w", err)
	}
	return nil
}

// Get returns the pending confirmation for key
func (s *SQLiteStore) Get(ctx context.Context, key string) (Pending, bool, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM pending_sessions WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Pending{}, false, nil
	}
	if err != nil {
		return Pending{}, false, fmt.Errorf("select pending: %w", err)
	}

	var p Pending
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Pending{}, false, fmt.Errorf("unmarshal pending: %w", err)
	}
	return p, true, nil
}

// Delete removes the pending confirmation for key, no-op if absent
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_sessions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete pending: %w", err)
	}
	return nil
}

// Keys returns all stored keys
func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, `SELECT key FROM pending_sessions`); err != nil {
		return nil, fmt.Errorf("select keys: %w", err)
	}
	return keys, nil
}
