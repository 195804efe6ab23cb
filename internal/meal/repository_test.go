package meal

import (
	"context"
	"path/filepath"
	"testing"

	"household-planner/internal/batch"
	"household-planner/internal/database"
	"household-planner/internal/recipe"

	"github.com/google/uuid"
)

func newTestRepos(t *testing.T) (*Repository, *batch.Repository) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.SQL), batch.NewRepository(db.SQL)
}

func seedBatch(t *testing.T, batches *batch.Repository, userID string) string {
	t.Helper()
	b := &batch.Batch{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      "Week of Aug 24",
		StartDate: "2026-08-24",
		EndDate:   "2026-08-30",
	}
	if err := batches.Create(context.Background(), b); err != nil {
		t.Fatalf("Failed to create batch: %v", err)
	}
	return b.ID
}

func seedMeal(t *testing.T, repo *Repository, batchID, userID, title, date string) *Meal {
	t.Helper()
	m := &Meal{
		BatchID:  batchID,
		UserID:   userID,
		MealDate: date,
		MealType: TypeDinner,
		Recipe: recipe.Snapshot{
			RecipeID: uuid.NewString(),
			Title:    title,
			Ingredients: []recipe.Ingredient{
				{Name: "chicken", Quantity: "1", Unit: "lb"},
			},
		},
		Servings: 2,
	}
	if err := repo.Create(context.Background(), m); err != nil {
		t.Fatalf("Failed to create meal: %v", err)
	}
	return m
}

func TestListByBatchOrdersByDate(t *testing.T) {
	repo, batches := newTestRepos(t)
	ctx := context.Background()
	batchID := seedBatch(t, batches, "user-1")

	seedMeal(t, repo, batchID, "user-1", "Tacos", "2026-08-26")
	seedMeal(t, repo, batchID, "user-1", "Curry", "2026-08-24")

	meals, err := repo.ListByBatch(ctx, batchID)
	if err != nil {
		t.Fatalf("ListByBatch failed: %v", err)
	}
	if len(meals) != 2 {
		t.Fatalf("Expected 2 meals, got %d", len(meals))
	}
	if meals[0].Recipe.Title != "Curry" || meals[1].Recipe.Title != "Tacos" {
		t.Errorf("Expected meals ordered by date, got %s then %s",
			meals[0].Recipe.Title, meals[1].Recipe.Title)
	}
	if len(meals[0].Recipe.Ingredients) != 1 {
		t.Errorf("Recipe snapshot did not round-trip: %+v", meals[0].Recipe)
	}
}

func TestCompletionLifecycle(t *testing.T) {
	repo, batches := newTestRepos(t)
	ctx := context.Background()
	batchID := seedBatch(t, batches, "user-1")
	m := seedMeal(t, repo, batchID, "user-1", "Tacos", "2026-08-24")

	rating := 4
	if err := repo.SetCompleted(ctx, m.ID, &rating); err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}
	got, err := repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Completed || got.Rating == nil || *got.Rating != 4 {
		t.Errorf("Expected completed meal rated 4, got %+v", got)
	}

	if err := repo.ClearCompleted(ctx, []string{m.ID}); err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	got, err = repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get after clear failed: %v", err)
	}
	if got.Completed || got.Rating != nil {
		t.Errorf("Expected completion cleared, got %+v", got)
	}
}

func TestReplaceFlagsAudible(t *testing.T) {
	repo, batches := newTestRepos(t)
	ctx := context.Background()
	batchID := seedBatch(t, batches, "user-1")
	m := seedMeal(t, repo, batchID, "user-1", "Tacos", "2026-08-24")

	snap := recipe.Snapshot{RecipeID: uuid.NewString(), Title: "Pizza"}
	replacement, err := repo.Replace(ctx, m, snap, 3)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if !replacement.IsAudible || replacement.Recipe.Title != "Pizza" || replacement.Servings != 3 {
		t.Errorf("Unexpected replacement: %+v", replacement)
	}
	if replacement.MealDate != m.MealDate || replacement.MealType != m.MealType {
		t.Errorf("Replacement left its slot: %+v", replacement)
	}

	old, err := repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if old != nil {
		t.Errorf("Expected the replaced meal deleted, got %+v", old)
	}
}

func TestBatchDeleteCascadesToMeals(t *testing.T) {
	repo, batches := newTestRepos(t)
	ctx := context.Background()
	batchID := seedBatch(t, batches, "user-1")
	m := seedMeal(t, repo, batchID, "user-1", "Tacos", "2026-08-24")

	if err := batches.Delete(ctx, batchID); err != nil {
		t.Fatalf("Delete batch failed: %v", err)
	}
	got, err := repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected meal removed by cascade, got %+v", got)
	}
}
