package suggestion

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"household-planner/internal/database"
)

// Repository handles persistence of suggestion pools. The candidate list is a
// JSON column read and written wholesale with the owning row.
type Repository struct {
	q  database.DBTX
	db *sql.DB
}

// NewRepository creates a new suggestion pool repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{q: d, db: d}
}

// WithTx returns a new Repository that runs its queries on the provided
// transaction.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{q: tx, db: r.db}
}

// Create inserts a new pool.
func (r *Repository) Create(ctx context.Context, p *Pool) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = StatusPending
	}

	suggestionsJSON, err := json.Marshal(p.Suggestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO suggestion_pools (id, user_id, start_date, end_date, status,
		    suggestions, visible_count, reasoning, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.StartDate, p.EndDate, p.Status,
		string(suggestionsJSON), p.VisibleCount, p.Reasoning, p.Error, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert suggestion pool: %w", err)
	}
	return nil
}

// Get retrieves a pool by ID. Returns nil when not found.
func (r *Repository) Get(ctx context.Context, id string) (*Pool, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, start_date, end_date, status, suggestions,
		    visible_count, reasoning, error, created_at, updated_at
		 FROM suggestion_pools WHERE id = ?`, id)

	var p Pool
	var suggestionsJSON string
	err := row.Scan(&p.ID, &p.UserID, &p.StartDate, &p.EndDate, &p.Status,
		&suggestionsJSON, &p.VisibleCount, &p.Reasoning, &p.Error, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get suggestion pool: %w", err)
	}

	if err := json.Unmarshal([]byte(suggestionsJSON), &p.Suggestions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggestions: %w", err)
	}
	return &p, nil
}

// Update writes the pool's mutable fields wholesale.
func (r *Repository) Update(ctx context.Context, p *Pool) error {
	p.UpdatedAt = time.Now().UTC()

	suggestionsJSON, err := json.Marshal(p.Suggestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	_, err = r.q.ExecContext(ctx,
		`UPDATE suggestion_pools SET status = ?, suggestions = ?, visible_count = ?,
		    reasoning = ?, error = ?, updated_at = ?
		 WHERE id = ?`,
		p.Status, string(suggestionsJSON), p.VisibleCount, p.Reasoning, p.Error, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update suggestion pool: %w", err)
	}
	return nil
}

// ResolvePending transitions a pool out of pending with the generator's
// outcome. The write applies only while the pool is still pending, so a stale
// generator completing after a retry or an expiry never clobbers newer state;
// the row may also be orphaned by a goBack, which is equally harmless.
func (r *Repository) ResolvePending(ctx context.Context, id string, status PoolStatus, candidates []Candidate, visibleCount int, reasoning, errMsg string) (bool, error) {
	suggestionsJSON, err := json.Marshal(candidates)
	if err != nil {
		return false, fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE suggestion_pools SET status = ?, suggestions = ?, visible_count = ?,
		    reasoning = ?, error = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, string(suggestionsJSON), visibleCount, reasoning, errMsg,
		time.Now().UTC(), id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve suggestion pool: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes a pool.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM suggestion_pools WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete suggestion pool: %w", err)
	}
	return nil
}
