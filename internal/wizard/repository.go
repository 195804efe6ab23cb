package wizard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"household-planner/internal/database"

	"github.com/google/uuid"
)

// Repository persists wizard sessions. The list-valued fields live as JSON
// with the row and are always read and written wholesale.
type Repository struct {
	q  database.DBTX
	db *sql.DB
}

func NewRepository(d *sql.DB) *Repository {
	return &Repository{q: d, db: d}
}

// WithTx returns a copy of the repository that runs its queries inside tx.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{q: tx, db: r.db}
}

const sessionColumns = `id, user_id, current_step, meal_dispositions, rollover_count,
	total_meal_count, manual_pick_count, target_meal_count,
	manual_picks, accepted_meals, current_pool_id,
	selected_ingredients, target_list_id, new_batch_id, previous_batch_id,
	created_at, updated_at`

// Create inserts a new session. The user_id unique constraint enforces the
// one-session-per-user rule at the schema level.
func (r *Repository) Create(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	dispositions, picks, accepted, ingredients, err := marshalLists(s)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO wizard_sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, int(s.CurrentStep), dispositions, s.RolloverCount,
		s.TotalMealCount, s.ManualPickCount, s.TargetMealCount,
		picks, accepted, s.CurrentPoolID,
		ingredients, s.TargetListID, s.NewBatchID, s.PreviousBatchID,
		s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert wizard session: %w", err)
	}
	return nil
}

// GetByUser retrieves the user's session, or nil when none exists.
func (r *Repository) GetByUser(ctx context.Context, userID string) (*Session, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM wizard_sessions WHERE user_id = ?`, userID)
	return scanSession(row)
}

// Update rewrites the whole session row.
func (r *Repository) Update(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()

	dispositions, picks, accepted, ingredients, err := marshalLists(s)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx,
		`UPDATE wizard_sessions
		 SET current_step = ?, meal_dispositions = ?, rollover_count = ?,
		     total_meal_count = ?, manual_pick_count = ?, target_meal_count = ?,
		     manual_picks = ?, accepted_meals = ?, current_pool_id = ?,
		     selected_ingredients = ?, target_list_id = ?, new_batch_id = ?,
		     previous_batch_id = ?, updated_at = ?
		 WHERE id = ?`,
		int(s.CurrentStep), dispositions, s.RolloverCount,
		s.TotalMealCount, s.ManualPickCount, s.TargetMealCount,
		picks, accepted, s.CurrentPoolID,
		ingredients, s.TargetListID, s.NewBatchID,
		s.PreviousBatchID, s.UpdatedAt,
		s.ID)
	if err != nil {
		return fmt.Errorf("failed to update wizard session: %w", err)
	}
	return nil
}

// Delete removes the session row. Deleting a missing session is not an
// error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM wizard_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete wizard session: %w", err)
	}
	return nil
}

func marshalLists(s *Session) (dispositions, picks, accepted, ingredients string, err error) {
	d, err := json.Marshal(emptyIfNil(s.MealDispositions))
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal meal dispositions: %w", err)
	}
	p, err := json.Marshal(emptyIfNil(s.ManualPicks))
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal manual picks: %w", err)
	}
	a, err := json.Marshal(emptyIfNil(s.AcceptedMeals))
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal accepted meals: %w", err)
	}
	i, err := json.Marshal(emptyIfNil(s.SelectedIngredients))
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to marshal selected ingredients: %w", err)
	}
	return string(d), string(p), string(a), string(i), nil
}

func emptyIfNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	var step int
	var dispositions, picks, accepted, ingredients string

	err := row.Scan(&s.ID, &s.UserID, &step, &dispositions, &s.RolloverCount,
		&s.TotalMealCount, &s.ManualPickCount, &s.TargetMealCount,
		&picks, &accepted, &s.CurrentPoolID,
		&ingredients, &s.TargetListID, &s.NewBatchID, &s.PreviousBatchID,
		&s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan wizard session: %w", err)
	}
	s.CurrentStep = Step(step)

	if err := json.Unmarshal([]byte(dispositions), &s.MealDispositions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meal dispositions: %w", err)
	}
	if err := json.Unmarshal([]byte(picks), &s.ManualPicks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manual picks: %w", err)
	}
	if err := json.Unmarshal([]byte(accepted), &s.AcceptedMeals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accepted meals: %w", err)
	}
	if err := json.Unmarshal([]byte(ingredients), &s.SelectedIngredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selected ingredients: %w", err)
	}
	return &s, nil
}
