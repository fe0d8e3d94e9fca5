// Package session tracks pending confirmations: extractions the gate held
// back until the user replies. One pending event per user and chat,
// last-write-wins, expired entries are dropped lazily on access.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/eventscope/pkg/domain"
)

// Pending is one gated extraction waiting for the user's reply
type Pending struct {
	Candidate       domain.EventCandidate `json:"candidate"`
	ValidationScore float64               `json:"validation_score"`
	Reasons         []domain.GateReason   `json:"reasons"`
	OCRConfidence   float64               `json:"ocr_confidence,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// Store keeps pending confirmations by key. Implementations must be safe for
// concurrent use.
type Store interface {
	Set(ctx context.Context, key string, p Pending) error
	Get(ctx context.Context, key string) (Pending, bool, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Manager wraps a store with TTL handling and the confirmation workflow
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a session manager over the given store
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// Key builds the session key for a user in a chat
func Key(userID string, chatID int64) string {
	return fmt.Sprintf("%s:%d", userID, chatID)
}

// StorePending saves a pending confirmation, replacing any previous one for
// the same user and chat
func (m *Manager) StorePending(ctx context.Context, userID string, chatID int64, p Pending) error {
	p.CreatedAt = m.now()
	if err := m.store.Set(ctx, Key(userID, chatID), p); err != nil {
		return fmt.Errorf("store pending: %w", err)
	}
	lgr.Printf("[DEBUG] stored pending confirmation for %s", Key(userID, chatID))
	return nil
}

// GetPending returns the pending confirmation for a user, dropping it if the
// TTL has passed
func (m *Manager) GetPending(ctx context.Context, userID string, chatID int64) (Pending, bool, error) {
	key := Key(userID, chatID)
	p, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return Pending{}, false, fmt.Errorf("get pending: %w", err)
	}
	if !ok {
		return Pending{}, false, nil
	}
	if m.expired(p) {
		if err := m.store.Delete(ctx, key); err != nil {
			return Pending{}, false, fmt.Errorf("drop expired pending: %w", err)
		}
		lgr.Printf("[DEBUG] pending confirmation for %s expired", key)
		return Pending{}, false, nil
	}
	return p, true, nil
}

// ConfirmAndRemove takes the pending confirmation out of the store and
// returns it for persisting
func (m *Manager) ConfirmAndRemove(ctx context.Context, userID string, chatID int64) (Pending, error) {
	p, ok, err := m.GetPending(ctx, userID, chatID)
	if err != nil {
		return Pending{}, err
	}
	if !ok {
		return Pending{}, fmt.Errorf("no pending confirmation for %s", Key(userID, chatID))
	}
	if err := m.store.Delete(ctx, Key(userID, chatID)); err != nil {
		return Pending{}, fmt.Errorf("remove pending: %w", err)
	}
	return p, nil
}

// Cancel discards the pending confirmation
func (m *Manager) Cancel(ctx context.Context, userID string, chatID int64) error {
	if err := m.store.Delete(ctx, Key(userID, chatID)); err != nil {
		return fmt.Errorf("cancel pending: %w", err)
	}
	return nil
}

// ApplyEdit updates one field of the pending candidate and stores it back,
// keeping the original creation time so edits don't extend the TTL
func (m *Manager) ApplyEdit(ctx context.Context, userID string, chatID int64, field, value string) (Pending, error) {
	p, ok, err := m.GetPending(ctx, userID, chatID)
	if err != nil {
		return Pending{}, err
	}
	if !ok {
		return Pending{}, fmt.Errorf("no pending confirmation for %s", Key(userID, chatID))
	}
	if !p.Candidate.SetField(field, value) {
		return Pending{}, fmt.Errorf("unknown field %q", field)
	}
	if err := m.store.Set(ctx, Key(userID, chatID), p); err != nil {
		return Pending{}, fmt.Errorf("store edited pending: %w", err)
	}
	return p, nil
}

// CleanupExpired sweeps the store and removes entries past their TTL,
// returns the number removed
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := m.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	removed := 0
	for _, key := range keys {
		p, ok, err := m.store.Get(ctx, key)
		if err != nil {
			return removed, fmt.Errorf("get session %s: %w", key, err)
		}
		if !ok || !m.expired(p) {
			continue
		}
		if err := m.store.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("delete session %s: %w", key, err)
		}
		removed++
	}
	if removed > 0 {
		lgr.Printf("[INFO] cleaned up %d expired pending confirmations", removed)
	}
	return removed, nil
}

// Count returns the number of live (unexpired) pending confirmations
func (m *Manager) Count(ctx context.Context) (int, error) {
	keys, err := m.store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	count := 0
	for _, key := range keys {
		p, ok, err := m.store.Get(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("get session %s: %w", key, err)
		}
		if ok && !m.expired(p) {
			count++
		}
	}
	return count, nil
}

func (m *Manager) expired(p Pending) bool {
	return m.now().Sub(p.CreatedAt) > m.ttl
}
