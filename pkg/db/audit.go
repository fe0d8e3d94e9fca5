package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"
)

// Run is one audit log row
type Run struct {
	ID         int64     `db:"id"`
	RunID      string    `db:"run_id"`
	UserID     string    `db:"user_id"`
	InputType  string    `db:"input_type"`
	Method     string    `db:"method"`
	Status     string    `db:"status"`
	Stage      string    `db:"stage"`
	EventTitle string    `db:"event_title"`
	Confidence float64   `db:"confidence"`
	Gated      bool      `db:"gated"`
	Sessions   int       `db:"sessions"`
	Error      string    `db:"error"`
	ElapsedMs  int64     `db:"elapsed_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// Stats aggregates the audit log
type Stats struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
	Failed    int `db:"failed"`
	Gated     int `db:"gated"`
	Skipped   int `db:"skipped"`
}

// Audit records pipeline outcomes
type Audit struct {
	db *DB
}

// NewAudit creates the audit repository
func NewAudit(db *DB) *Audit {
	return &Audit{db: db}
}

// Record inserts one run outcome, retrying on sqlite lock contention
func (a *Audit) Record(ctx context.Context, run Run) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO pipeline_runs
				(run_id, user_id, input_type, method, status, stage, event_title,
				 confidence, gated, sessions, error, elapsed_ms)
			VALUES
				(:run_id, :user_id, :input_type, :method, :status, :stage, :event_title,
				 :confidence, :gated, :sessions, :error, :elapsed_ms)
		`
		if _, err := a.db.NamedExecContext(ctx, query, run); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	})
}

// Recent returns the last n runs, newest first
func (a *Audit) Recent(ctx context.Context, n int) ([]Run, error) {
	var runs []Run
	query := `SELECT * FROM pipeline_runs ORDER BY created_at DESC, id DESC LIMIT ?`
	if err := a.db.SelectContext(ctx, &runs, query, n); err != nil {
		return nil, fmt.Errorf("select recent runs: %w", err)
	}
	return runs, nil
}

// GetStats aggregates run counts by status
func (a *Audit) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	query := `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed,
		       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed,
		       COALESCE(SUM(CASE WHEN gated = 1 THEN 1 ELSE 0 END), 0) AS gated,
		       COALESCE(SUM(CASE WHEN status = 'skipped' THEN 1 ELSE 0 END), 0) AS skipped
		FROM pipeline_runs
	`
	if err := a.db.GetContext(ctx, &stats, query); err != nil {
		return Stats{}, fmt.Errorf("select stats: %w", err)
	}
	return stats, nil
}
