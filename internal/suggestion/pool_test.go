package suggestion

import (
	"testing"

	"household-planner/internal/apperr"
	"household-planner/internal/meal"
	"household-planner/internal/recipe"
)

func testPool(total, visible int) *Pool {
	p := &Pool{
		ID:           "pool-1",
		UserID:       "user-1",
		StartDate:    "2026-09-01",
		EndDate:      "2026-09-07",
		Status:       StatusReceived,
		VisibleCount: visible,
	}
	for i := 0; i < total; i++ {
		p.Suggestions = append(p.Suggestions, Candidate{
			MealDate: "2026-09-01",
			MealType: meal.TypeDinner,
			Recipe:   recipe.Snapshot{Title: "Recipe"},
			Servings: 2,
		})
	}
	return p
}

func TestMarkAccepted(t *testing.T) {
	p := testPool(5, 3)

	already, err := p.MarkAccepted(1, nil)
	if err != nil {
		t.Fatalf("MarkAccepted failed: %v", err)
	}
	if already {
		t.Error("Expected already=false on first accept")
	}
	if p.Suggestions[1].Accepted == nil || !*p.Suggestions[1].Accepted {
		t.Error("Expected candidate 1 to be accepted")
	}
	if p.AcceptedCount() != 1 {
		t.Errorf("Expected accepted count 1, got %d", p.AcceptedCount())
	}
}

func TestMarkAcceptedIdempotent(t *testing.T) {
	p := testPool(5, 3)

	if _, err := p.MarkAccepted(0, nil); err != nil {
		t.Fatalf("MarkAccepted failed: %v", err)
	}
	already, err := p.MarkAccepted(0, nil)
	if err != nil {
		t.Fatalf("Second MarkAccepted failed: %v", err)
	}
	if !already {
		t.Error("Expected already=true on repeated accept")
	}
	if p.AcceptedCount() != 1 {
		t.Errorf("Expected accepted count to stay 1, got %d", p.AcceptedCount())
	}
}

func TestMarkAcceptedServingsOverride(t *testing.T) {
	p := testPool(3, 3)
	servings := 4

	if _, err := p.MarkAccepted(2, &servings); err != nil {
		t.Fatalf("MarkAccepted failed: %v", err)
	}
	if p.Suggestions[2].EffectiveServings() != 4 {
		t.Errorf("Expected effective servings 4, got %d", p.Suggestions[2].EffectiveServings())
	}
}

func TestMarkAcceptedOnDeclinedIsValidationError(t *testing.T) {
	p := testPool(5, 3)

	if _, _, err := p.MarkDeclined(0); err != nil {
		t.Fatalf("MarkDeclined failed: %v", err)
	}
	if _, err := p.MarkAccepted(0, nil); !apperr.IsValidation(err) {
		t.Errorf("Expected validation error flipping declined to accepted, got %v", err)
	}
}

func TestMarkAcceptedHiddenIndexIsInvariantError(t *testing.T) {
	p := testPool(5, 3)

	if _, err := p.MarkAccepted(3, nil); !apperr.IsInvariant(err) {
		t.Errorf("Expected invariant error for hidden index, got %v", err)
	}
	if _, err := p.MarkAccepted(7, nil); !apperr.IsInvariant(err) {
		t.Errorf("Expected invariant error for out-of-range index, got %v", err)
	}
}

func TestMarkDeclinedBackfills(t *testing.T) {
	p := testPool(5, 3)

	backfilled, already, err := p.MarkDeclined(1)
	if err != nil {
		t.Fatalf("MarkDeclined failed: %v", err)
	}
	if already {
		t.Error("Expected already=false on first decline")
	}
	if !backfilled {
		t.Error("Expected backfill when a hidden backlog exists")
	}
	if p.VisibleCount != 4 {
		t.Errorf("Expected visible count to grow to exactly 4, got %d", p.VisibleCount)
	}
	// One decline reveals exactly one previously-hidden entry.
	if got := len(p.Visible()); got != 4 {
		t.Errorf("Expected 4 visible candidates, got %d", got)
	}
}

func TestMarkDeclinedNoBacklog(t *testing.T) {
	p := testPool(3, 3)

	backfilled, _, err := p.MarkDeclined(2)
	if err != nil {
		t.Fatalf("MarkDeclined failed: %v", err)
	}
	if backfilled {
		t.Error("Expected no backfill without a backlog")
	}
	if p.VisibleCount != 3 {
		t.Errorf("Expected visible count unchanged at 3, got %d", p.VisibleCount)
	}
}

func TestMarkDeclinedIdempotent(t *testing.T) {
	p := testPool(5, 3)

	if _, _, err := p.MarkDeclined(0); err != nil {
		t.Fatalf("MarkDeclined failed: %v", err)
	}
	visibleAfterFirst := p.VisibleCount

	backfilled, already, err := p.MarkDeclined(0)
	if err != nil {
		t.Fatalf("Second MarkDeclined failed: %v", err)
	}
	if !already {
		t.Error("Expected already=true on repeated decline")
	}
	if backfilled || p.VisibleCount != visibleAfterFirst {
		t.Error("Expected repeated decline to leave the visible window alone")
	}
}

func TestPendingVisibleCount(t *testing.T) {
	p := testPool(6, 3)

	if got := p.PendingVisibleCount(); got != 3 {
		t.Errorf("Expected 3 pending visible, got %d", got)
	}
	p.MarkAccepted(0, nil)
	p.MarkDeclined(1) // backfills, window grows to 4
	if got := p.PendingVisibleCount(); got != 2 {
		t.Errorf("Expected 2 pending visible after accept+decline, got %d", got)
	}
}
