package batch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"household-planner/internal/database"

	"github.com/google/uuid"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.SQL)
}

func newBatch(userID string) *Batch {
	return &Batch{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      "Week of Aug 24",
		StartDate: "2026-08-24",
		EndDate:   "2026-08-30",
	}
}

func TestGetActiveReturnsNewest(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older := newBatch("user-1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	newer := newBatch("user-1")
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	active, err := repo.GetActive(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if active == nil || active.ID != newer.ID {
		t.Errorf("Expected the newest active batch, got %+v", active)
	}
	if active.Status != StatusActive {
		t.Errorf("Expected status active by default, got %s", active.Status)
	}

	none, err := repo.GetActive(ctx, "user-2")
	if err != nil {
		t.Fatalf("GetActive for other user failed: %v", err)
	}
	if none != nil {
		t.Errorf("Expected no active batch for another user, got %+v", none)
	}
}

func TestArchiveAndRestore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := newBatch("user-1")
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stats := ArchiveStats{TotalMeals: 5, CompletedMeals: 3, RolledOverMeals: 1, DiscardedMeals: 1}
	if err := repo.Archive(ctx, b.ID, stats); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	got, err := repo.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusArchived || got.ArchivedAt == nil {
		t.Errorf("Expected archived batch with timestamp, got %+v", got)
	}
	if got.TotalMeals != 5 || got.CompletedMeals != 3 {
		t.Errorf("Archive stats not recorded: %+v", got)
	}

	// Restoring to active clears the archive snapshot.
	if err := repo.SetStatus(ctx, b.ID, StatusActive); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, err = repo.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get after restore failed: %v", err)
	}
	if got.Status != StatusActive || got.ArchivedAt != nil || got.TotalMeals != 0 {
		t.Errorf("Expected restored batch with cleared snapshot, got %+v", got)
	}
}

func TestDeleteBatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := newBatch("user-1")
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := repo.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected batch gone, got %+v", got)
	}
}
