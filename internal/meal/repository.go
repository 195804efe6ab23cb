package meal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"household-planner/internal/database"
	"household-planner/internal/recipe"

	"github.com/google/uuid"
)

// Repository handles persistence of planned meals.
type Repository struct {
	q  database.DBTX
	db *sql.DB
}

// NewRepository creates a new meal repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{q: d, db: d}
}

// WithTx returns a new Repository that runs its queries on the provided
// transaction.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{q: tx, db: r.db}
}

const mealColumns = `id, batch_id, user_id, pool_id, suggestion_index, meal_date, meal_type,
	recipe_data, servings, is_manual_pick, is_rollover, is_audible,
	shopping_list_generated, completed, rating, created_at`

// Create inserts a new meal.
func (r *Repository) Create(ctx context.Context, m *Meal) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	recipeJSON, err := json.Marshal(m.Recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe snapshot: %w", err)
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO accepted_meals (`+mealColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.BatchID, m.UserID, m.PoolID, m.SuggestionIndex, m.MealDate, m.MealType,
		string(recipeJSON), m.Servings, m.IsManualPick, m.IsRollover, m.IsAudible,
		m.ShoppingListGenerated, m.Completed, m.Rating, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

// Get retrieves a meal by ID. Returns nil when not found.
func (r *Repository) Get(ctx context.Context, id string) (*Meal, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+mealColumns+` FROM accepted_meals WHERE id = ?`, id)
	m, err := scanMeal(row)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetByPoolIndex retrieves the meal materialized from a specific suggestion,
// or nil if acceptance never produced one. Used for idempotent re-accepts.
func (r *Repository) GetByPoolIndex(ctx context.Context, poolID string, index int) (*Meal, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+mealColumns+` FROM accepted_meals WHERE pool_id = ? AND suggestion_index = ?`,
		poolID, index)
	return scanMeal(row)
}

// ListByBatch returns all meals in a batch ordered by date then creation.
func (r *Repository) ListByBatch(ctx context.Context, batchID string) ([]Meal, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+mealColumns+` FROM accepted_meals WHERE batch_id = ?
		 ORDER BY meal_date, created_at`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals by batch: %w", err)
	}
	defer rows.Close()

	var meals []Meal
	for rows.Next() {
		m, err := scanMealRows(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, *m)
	}
	return meals, rows.Err()
}

// DeleteByIDs removes the given meals. A no-op for an empty list.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := r.q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM accepted_meals WHERE id IN (%s)`, placeholders), args...)
	if err != nil {
		return fmt.Errorf("failed to delete meals: %w", err)
	}
	return nil
}

// MarkShoppingGenerated flags the given meals as consumed by a shopping list.
func (r *Repository) MarkShoppingGenerated(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := r.q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE accepted_meals SET shopping_list_generated = 1 WHERE id IN (%s)`, placeholders),
		args...)
	if err != nil {
		return fmt.Errorf("failed to mark meals shopping-generated: %w", err)
	}
	return nil
}

// SetCompleted marks a meal completed with an optional rating.
func (r *Repository) SetCompleted(ctx context.Context, id string, rating *int) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE accepted_meals SET completed = 1, rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return fmt.Errorf("failed to complete meal: %w", err)
	}
	return nil
}

// ClearCompleted undoes completion for the given meals, dropping any rating.
func (r *Repository) ClearCompleted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := r.q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE accepted_meals SET completed = 0, rating = NULL WHERE id IN (%s)`, placeholders),
		args...)
	if err != nil {
		return fmt.Errorf("failed to clear meal completion: %w", err)
	}
	return nil
}

// Replace swaps a planned meal for a different recipe ("audible"): the old
// row is deleted and a replacement is created in the same slot, flagged
// audible so a later wizard run knows it can only be discarded.
func (r *Repository) Replace(ctx context.Context, old *Meal, snap recipe.Snapshot, servings int) (*Meal, error) {
	replacement := &Meal{
		ID:        uuid.NewString(),
		BatchID:   old.BatchID,
		UserID:    old.UserID,
		MealDate:  old.MealDate,
		MealType:  old.MealType,
		Recipe:    snap,
		Servings:  servings,
		IsAudible: true,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM accepted_meals WHERE id = ?`, old.ID); err != nil {
		return nil, fmt.Errorf("failed to delete replaced meal: %w", err)
	}
	if err := r.Create(ctx, replacement); err != nil {
		return nil, err
	}
	return replacement, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeal(row *sql.Row) (*Meal, error) {
	m, err := scanInto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func scanMealRows(rows *sql.Rows) (*Meal, error) {
	return scanInto(rows)
}

func scanInto(s rowScanner) (*Meal, error) {
	var m Meal
	var poolID sql.NullString
	var suggestionIndex, rating sql.NullInt64
	var recipeJSON string

	err := s.Scan(&m.ID, &m.BatchID, &m.UserID, &poolID, &suggestionIndex,
		&m.MealDate, &m.MealType, &recipeJSON, &m.Servings,
		&m.IsManualPick, &m.IsRollover, &m.IsAudible,
		&m.ShoppingListGenerated, &m.Completed, &rating, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan meal: %w", err)
	}

	if poolID.Valid {
		v := poolID.String
		m.PoolID = &v
	}
	if suggestionIndex.Valid {
		v := int(suggestionIndex.Int64)
		m.SuggestionIndex = &v
	}
	if rating.Valid {
		v := int(rating.Int64)
		m.Rating = &v
	}

	if err := json.Unmarshal([]byte(recipeJSON), &m.Recipe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe snapshot: %w", err)
	}
	return &m, nil
}
