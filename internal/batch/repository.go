package batch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"household-planner/internal/database"
)

// Repository handles persistence of batches.
type Repository struct {
	q  database.DBTX
	db *sql.DB
}

// NewRepository creates a new batch repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{q: d, db: d}
}

// WithTx returns a new Repository that runs its queries on the provided
// transaction.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{q: tx, db: r.db}
}

// Create inserts a new batch.
func (r *Repository) Create(ctx context.Context, b *Batch) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Status == "" {
		b.Status = StatusActive
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO batches (id, user_id, name, start_date, end_date, status,
		    total_meals, completed_meals, rolled_over_meals, discarded_meals, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Name, b.StartDate, b.EndDate, b.Status,
		b.TotalMeals, b.CompletedMeals, b.RolledOverMeals, b.DiscardedMeals, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// Get retrieves a batch by ID. Returns nil when not found.
func (r *Repository) Get(ctx context.Context, id string) (*Batch, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, start_date, end_date, status,
		    total_meals, completed_meals, rolled_over_meals, discarded_meals,
		    created_at, archived_at
		 FROM batches WHERE id = ?`, id)
	return scanBatch(row)
}

// GetActive retrieves the user's active batch, or nil when there is none.
func (r *Repository) GetActive(ctx context.Context, userID string) (*Batch, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, start_date, end_date, status,
		    total_meals, completed_meals, rolled_over_meals, discarded_meals,
		    created_at, archived_at
		 FROM batches WHERE user_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`, userID, StatusActive)
	return scanBatch(row)
}

// Archive marks a batch archived and writes its stat snapshot.
func (r *Repository) Archive(ctx context.Context, id string, stats ArchiveStats) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE batches SET status = ?, total_meals = ?, completed_meals = ?,
		    rolled_over_meals = ?, discarded_meals = ?, archived_at = ?
		 WHERE id = ?`,
		StatusArchived, stats.TotalMeals, stats.CompletedMeals,
		stats.RolledOverMeals, stats.DiscardedMeals, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to archive batch: %w", err)
	}
	return nil
}

// SetStatus updates the lifecycle status of a batch. Restoring a batch to
// active also clears its archive timestamp and snapshot.
func (r *Repository) SetStatus(ctx context.Context, id string, status Status) error {
	var err error
	if status == StatusActive {
		_, err = r.q.ExecContext(ctx,
			`UPDATE batches SET status = ?, archived_at = NULL,
			    total_meals = 0, completed_meals = 0, rolled_over_meals = 0, discarded_meals = 0
			 WHERE id = ?`, status, id)
	} else {
		_, err = r.q.ExecContext(ctx, `UPDATE batches SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("failed to set batch status: %w", err)
	}
	return nil
}

// Delete removes a batch. Its accepted meals go with it via foreign key
// cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

func scanBatch(row *sql.Row) (*Batch, error) {
	var b Batch
	var archivedAt sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.StartDate, &b.EndDate, &b.Status,
		&b.TotalMeals, &b.CompletedMeals, &b.RolledOverMeals, &b.DiscardedMeals,
		&b.CreatedAt, &archivedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	if archivedAt.Valid {
		t := archivedAt.Time
		b.ArchivedAt = &t
	}
	return &b, nil
}
