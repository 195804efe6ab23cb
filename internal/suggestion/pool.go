package suggestion

import (
	"time"

	"household-planner/internal/apperr"
	"household-planner/internal/meal"
	"household-planner/internal/recipe"
)

// PoolStatus is the lifecycle state of a suggestion pool.
type PoolStatus string

const (
	StatusPending  PoolStatus = "pending"
	StatusReceived PoolStatus = "received"
	StatusReviewed PoolStatus = "reviewed"
	StatusExpired  PoolStatus = "expired"
)

// Candidate is one AI-proposed meal. Accepted is a tri-state: nil while the
// candidate awaits a decision, then true or false.
type Candidate struct {
	MealDate         string          `json:"meal_date"`
	MealType         meal.Type       `json:"meal_type"`
	Recipe           recipe.Snapshot `json:"recipe"`
	Servings         int             `json:"servings"`
	Accepted         *bool           `json:"accepted"`
	ServingsOverride *int            `json:"servings_override,omitempty"`
	Notes            string          `json:"notes,omitempty"`
}

// Pool is one AI-generation response: an ordered list of candidates
// partitioned into a visible window and a hidden backlog. Only the first
// VisibleCount entries are shown; the rest backfill declines one at a time.
type Pool struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	StartDate    string      `json:"start_date"`
	EndDate      string      `json:"end_date"`
	Status       PoolStatus  `json:"status"`
	Suggestions  []Candidate `json:"suggestions"`
	VisibleCount int         `json:"visible_count"`
	Reasoning    string      `json:"reasoning,omitempty"`
	Error        string      `json:"error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Visible returns the candidates currently shown to the user.
func (p *Pool) Visible() []Candidate {
	n := p.VisibleCount
	if n > len(p.Suggestions) {
		n = len(p.Suggestions)
	}
	return p.Suggestions[:n]
}

// HasBacklog reports whether hidden candidates remain for backfill.
func (p *Pool) HasBacklog() bool {
	return p.VisibleCount < len(p.Suggestions)
}

// AcceptedCount returns how many candidates have been accepted.
func (p *Pool) AcceptedCount() int {
	count := 0
	for i := range p.Suggestions {
		if p.Suggestions[i].Accepted != nil && *p.Suggestions[i].Accepted {
			count++
		}
	}
	return count
}

// PendingVisibleCount returns how many visible candidates still await a
// decision.
func (p *Pool) PendingVisibleCount() int {
	count := 0
	for _, c := range p.Visible() {
		if c.Accepted == nil {
			count++
		}
	}
	return count
}

// checkIndex validates that index addresses a visible candidate. An index
// into the hidden backlog is a programming error, not user input.
func (p *Pool) checkIndex(index int) error {
	if index < 0 || index >= len(p.Suggestions) {
		return apperr.Invariant(apperr.CodeSuggestionIndexInvalid,
			"suggestion index %d out of range (pool has %d)", index, len(p.Suggestions))
	}
	if index >= p.VisibleCount {
		return apperr.Invariant(apperr.CodeSuggestionIndexHidden,
			"suggestion index %d is beyond the visible window (%d)", index, p.VisibleCount)
	}
	return nil
}

// MarkAccepted records acceptance of the candidate at index, with an optional
// servings override. Re-accepting an accepted candidate reports already=true
// and changes nothing; accepting a declined candidate is a validation error.
func (p *Pool) MarkAccepted(index int, servings *int) (already bool, err error) {
	if err := p.checkIndex(index); err != nil {
		return false, err
	}

	c := &p.Suggestions[index]
	if c.Accepted != nil {
		if *c.Accepted {
			return true, nil
		}
		return false, apperr.Validation(apperr.CodeSuggestionStateFlip,
			"suggestion %d was already declined", index)
	}

	accepted := true
	c.Accepted = &accepted
	if servings != nil {
		c.ServingsOverride = servings
	}
	return false, nil
}

// MarkDeclined records a decline of the candidate at index. When a hidden
// backlog remains the visible window grows by one in the same step, so the
// decline and its backfill are never observable separately. Re-declining is a
// no-op; declining an accepted candidate is a validation error. Declining
// with no backlog is also fine: the caller surfaces "request more" instead.
func (p *Pool) MarkDeclined(index int) (backfilled bool, already bool, err error) {
	if err := p.checkIndex(index); err != nil {
		return false, false, err
	}

	c := &p.Suggestions[index]
	if c.Accepted != nil {
		if !*c.Accepted {
			return false, true, nil
		}
		return false, false, apperr.Validation(apperr.CodeSuggestionStateFlip,
			"suggestion %d was already accepted", index)
	}

	declined := false
	c.Accepted = &declined

	if p.HasBacklog() {
		p.VisibleCount++
		return true, false, nil
	}
	return false, false, nil
}

// EffectiveServings returns the servings to use when materializing the
// candidate at index into a meal.
func (c Candidate) EffectiveServings() int {
	if c.ServingsOverride != nil {
		return *c.ServingsOverride
	}
	if c.Servings > 0 {
		return c.Servings
	}
	return 2
}
