package suggestion

import (
	"context"
	"log"
	"time"

	"household-planner/internal/meal"
	"household-planner/internal/shared"

	"github.com/google/uuid"
)

// Notifier signals clients that something changed and they should refetch.
// The payload carries no authoritative state.
type Notifier interface {
	Notify(userID, scope string)
}

// MetricsRecorder records generator execution metadata.
type MetricsRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// Service owns the asynchronous suggestion-generation protocol: requesting a
// pool returns immediately with the row in pending status, and a background
// task resolves it to received (possibly with an error message) or, past the
// timeout, expired. Nothing ever blocks a request on the generator.
type Service struct {
	repo     *Repository
	gen      Generator
	notifier Notifier
	metrics  MetricsRecorder
	timeout  time.Duration
	backlog  int
}

// NewService creates a suggestion service. notifier and metrics may be nil.
func NewService(repo *Repository, gen Generator, notifier Notifier, metrics MetricsRecorder, timeout time.Duration, backlog int) *Service {
	return &Service{
		repo:     repo,
		gen:      gen,
		notifier: notifier,
		metrics:  metrics,
		timeout:  timeout,
		backlog:  backlog,
	}
}

// Request creates a new pending pool for count visible candidates and hands
// generation off to a background task. The returned pool is in pending
// status; callers poll or subscribe for the resolution.
func (s *Service) Request(ctx context.Context, userID, startDate, endDate string, mealTypes []meal.Type, count int) (*Pool, error) {
	pool := &Pool{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    StatusPending,
	}
	if err := s.repo.Create(ctx, pool); err != nil {
		return nil, err
	}

	constraints := Constraints{
		UserID:    userID,
		StartDate: startDate,
		EndDate:   endDate,
		MealTypes: mealTypes,
		Count:     count + s.backlog,
	}
	go s.generate(pool.ID, userID, constraints, 0, count, nil)

	return pool, nil
}

// RequestMore appends freshly generated candidates to an existing received
// pool. The pool flips back to pending while generation runs; the existing
// decisions and visible window are preserved, and the window only grows if
// the visible set currently has a shortfall of pending cards.
func (s *Service) RequestMore(ctx context.Context, pool *Pool, count int) error {
	pool.Status = StatusPending
	if err := s.repo.Update(ctx, pool); err != nil {
		return err
	}

	constraints := Constraints{
		UserID:    pool.UserID,
		StartDate: pool.StartDate,
		EndDate:   pool.EndDate,
		Count:     count + s.backlog,
		Exclude:   acceptedRecipeIDs(pool),
	}
	existing := make([]Candidate, len(pool.Suggestions))
	copy(existing, pool.Suggestions)
	go s.generate(pool.ID, pool.UserID, constraints, pool.VisibleCount, count, existing)

	return nil
}

// generate runs the generator under a bounded timeout and resolves the pool.
// It runs detached from the request context: the user navigating away, or
// even discarding the pool via goBack, must not cancel or fail it.
func (s *Service) generate(poolID, userID string, constraints Constraints, currentVisible, visibleTarget int, existing []Candidate) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	set, meta, err := s.gen.Generate(ctx, constraints)

	if s.metrics != nil && meta.AgentName != "" {
		if recErr := s.metrics.RecordMeta(meta); recErr != nil {
			log.Printf("suggestion: failed to record generation metrics: %v", recErr)
		}
	}

	resolveCtx, resolveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer resolveCancel()

	var applied bool
	switch {
	case err != nil && ctx.Err() == context.DeadlineExceeded:
		log.Printf("suggestion: generation for pool %s timed out: %v", poolID, err)
		applied, err = s.repo.ResolvePending(resolveCtx, poolID, StatusExpired, existing, currentVisible, "", "generation timed out")
	case err != nil:
		log.Printf("suggestion: generation for pool %s failed: %v", poolID, err)
		applied, err = s.repo.ResolvePending(resolveCtx, poolID, StatusReceived, existing, currentVisible, "", err.Error())
	default:
		candidates := append(existing, set.Candidates...)
		applied, err = s.repo.ResolvePending(resolveCtx, poolID, StatusReceived, candidates, visibleWindow(candidates, currentVisible, visibleTarget), set.Reasoning, "")
	}
	if err != nil {
		log.Printf("suggestion: failed to resolve pool %s: %v", poolID, err)
		return
	}
	if !applied {
		// The pool moved on without us (expired by a sweeper, replaced by a
		// retry, or orphaned by goBack). The result is simply dropped.
		log.Printf("suggestion: pool %s no longer pending, dropping generation result", poolID)
		return
	}

	if s.notifier != nil {
		s.notifier.Notify(userID, "suggestions")
	}
}

// visibleWindow computes the new visible count: enough to show target
// pending cards past the decided ones, never shrinking the current window,
// capped at the candidate count.
func visibleWindow(candidates []Candidate, current, target int) int {
	decided := 0
	for _, c := range candidates {
		if c.Accepted != nil {
			decided++
		}
	}
	v := decided + target
	if v < current {
		v = current
	}
	if v > len(candidates) {
		v = len(candidates)
	}
	return v
}

func acceptedRecipeIDs(p *Pool) []string {
	var ids []string
	for _, c := range p.Suggestions {
		if c.Accepted != nil && *c.Accepted && c.Recipe.RecipeID != "" {
			ids = append(ids, c.Recipe.RecipeID)
		}
	}
	return ids
}
