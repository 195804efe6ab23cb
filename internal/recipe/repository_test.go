package recipe

import (
	"context"
	"testing"
	"time"

	"household-planner/internal/llm"
)

func seedRecipe(t *testing.T, repo *Repository, id, title string, updatedAt time.Time) {
	t.Helper()
	err := repo.Save(context.Background(), Recipe{
		ID:    id,
		Title: title,
		Ingredients: []Ingredient{
			{Name: "flour", Quantity: "2", Unit: "cups"},
		},
		Instructions: []string{"Mix", "Bake"},
		Tags:         []string{"baking"},
		Servings:     4,
		UpdatedAt:    updatedAt,
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.SQL)
	ctx := context.Background()

	seedRecipe(t, repo, "r1", "Pancakes", time.Now().UTC())

	got, err := repo.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Title != "Pancakes" || len(got.Ingredients) != 1 {
		t.Errorf("Unexpected recipe: %+v", got)
	}

	// Saving again with the same ID overwrites.
	seedRecipe(t, repo, "r1", "Fluffy Pancakes", time.Now().UTC())
	got, err = repo.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get after update failed: %v", err)
	}
	if got.Title != "Fluffy Pancakes" {
		t.Errorf("Expected updated title, got %q", got.Title)
	}

	missing, err := repo.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("Get missing failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing recipe, got %+v", missing)
	}
}

func TestRepositoryGetByIDsAndList(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.SQL)
	ctx := context.Background()

	now := time.Now().UTC()
	seedRecipe(t, repo, "r1", "Older", now.Add(-time.Hour))
	seedRecipe(t, repo, "r2", "Newer", now)

	batch, err := repo.GetByIDs(ctx, []string{"r1", "r2", "missing"})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(batch) != 2 {
		t.Errorf("Expected 2 recipes, got %d", len(batch))
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].Title != "Newer" {
		t.Errorf("Expected newest first, got %+v", all)
	}
}

func TestRepositoryDeleteCascadesEmbedding(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.SQL)
	ctx := context.Background()

	seedRecipe(t, repo, "r1", "Doomed", time.Now().UTC())
	vectorRepo := llm.NewVectorRepository(db.SQL)
	if err := vectorRepo.Save(ctx, "r1", []float32{0.5, 0.5}); err != nil {
		t.Fatalf("Save embedding failed: %v", err)
	}

	if err := repo.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err := repo.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected recipe gone, got %+v", got)
	}

	embedding, err := vectorRepo.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get embedding failed: %v", err)
	}
	if embedding != nil {
		t.Errorf("Expected embedding removed by cascade, got %v", embedding)
	}
}
