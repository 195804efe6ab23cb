package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"household-planner/internal/database"
	"household-planner/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestRecordAndDailyUsage(t *testing.T) {
	store := newTestStore(t)

	err := store.RecordMeta(shared.AgentMeta{
		AgentName: "SuggestionGenerator",
		Usage:     shared.TokenUsage{PromptTokens: 100, CompletionTokens: 50, Model: "gemini-1.5-flash"},
		Latency:   1200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}

	usage, err := store.GetDailyUsage(7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected 1 day of usage, got %d", len(usage))
	}
	if usage[0].TotalPrompt != 100 || usage[0].TotalCompletion != 50 || usage[0].TotalExecution != 1 {
		t.Errorf("Unexpected usage totals: %+v", usage[0])
	}
}

func TestRecordMetaSkipsEmptyUsage(t *testing.T) {
	store := newTestStore(t)

	if err := store.RecordMeta(shared.AgentMeta{AgentName: "SuggestionGenerator"}); err != nil {
		t.Fatalf("RecordMeta failed: %v", err)
	}
	usage, err := store.GetDailyUsage(7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 0 {
		t.Errorf("Expected no rows for zero-token usage, got %+v", usage)
	}
}

func TestCleanup(t *testing.T) {
	store := newTestStore(t)

	old := ExecutionMetric{
		AgentName: "SuggestionGenerator",
		Model:     "gemini-1.5-flash",
		Timestamp: time.Now().AddDate(0, 0, -45),
	}
	if err := store.Record(old); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Record(ExecutionMetric{AgentName: "RecipeImporter", Model: "gemini-1.5-flash"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	deleted, err := store.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted row, got %d", deleted)
	}
}
