package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"household-planner/internal/database"

	"github.com/google/uuid"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	q  database.DBTX
	db *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{q: d, db: d}
}

// WithTx returns a new Repository that runs its queries on the provided
// transaction.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{q: tx, db: r.db}
}

// Create inserts a new shopping list and returns it.
func (r *Repository) Create(ctx context.Context, userID, name string, items []Item) (*List, error) {
	now := time.Now().UTC()
	list := &List{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO shopping_lists (id, user_id, name, items, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		list.ID, list.UserID, list.Name, string(itemsJSON), list.CreatedAt, list.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert shopping list: %w", err)
	}
	return list, nil
}

// Get retrieves a shopping list by ID. Returns nil when not found.
func (r *Repository) Get(ctx context.Context, id string) (*List, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, items, created_at, updated_at
		 FROM shopping_lists WHERE id = ?`, id)

	var list List
	var itemsJSON string
	err := row.Scan(&list.ID, &list.UserID, &list.Name, &itemsJSON, &list.CreatedAt, &list.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shopping list: %w", err)
	}

	if err := json.Unmarshal([]byte(itemsJSON), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	return &list, nil
}

// ListByUser retrieves all shopping lists for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]List, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, name, items, created_at, updated_at
		 FROM shopping_lists WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists: %w", err)
	}
	defer rows.Close()

	var lists []List
	for rows.Next() {
		var list List
		var itemsJSON string
		if err := rows.Scan(&list.ID, &list.UserID, &list.Name, &itemsJSON, &list.CreatedAt, &list.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shopping list: %w", err)
		}
		if err := json.Unmarshal([]byte(itemsJSON), &list.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// AppendItems adds items to the end of an existing list.
func (r *Repository) AppendItems(ctx context.Context, id string, items []Item) error {
	list, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if list == nil {
		return fmt.Errorf("shopping list %s not found", id)
	}
	return r.writeItems(ctx, id, append(list.Items, items...))
}

// ReplaceItems overwrites the items of an existing list.
func (r *Repository) ReplaceItems(ctx context.Context, id string, items []Item) error {
	return r.writeItems(ctx, id, items)
}

func (r *Repository) writeItems(ctx context.Context, id string, items []Item) error {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal shopping list items: %w", err)
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE shopping_lists SET items = ?, updated_at = ? WHERE id = ?`,
		string(itemsJSON), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update shopping list items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("shopping list %s not found", id)
	}
	return nil
}

// Delete removes a shopping list.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}
