package wizard

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"household-planner/internal/apperr"
	"household-planner/internal/batch"
	"household-planner/internal/meal"
	"household-planner/internal/recipe"
	"household-planner/internal/shopping"
	"household-planner/internal/suggestion"

	"github.com/google/uuid"
)

// GoBackTarget names the sub-step a backward navigation lands on.
type GoBackTarget string

const (
	BackToStep1  GoBackTarget = "step1"
	BackToStep2a GoBackTarget = "step2a"
	BackToStep2b GoBackTarget = "step2b"
	BackToStep2c GoBackTarget = "step2c"
	BackToStep3  GoBackTarget = "step3"
)

const defaultServings = 2

// Notifier tells clients to refetch session state. It carries no payload
// beyond the scope name.
type Notifier interface {
	Notify(userID, scope string)
}

// Controller drives the planning wizard: one resumable session per user
// walking dispose -> fill -> shopping -> done, with backward navigation that
// cleans up exactly the session's own work. Every mutating operation runs as
// a single transaction over the session row and its dependent meal and pool
// rows.
type Controller struct {
	db       *sql.DB
	sessions *Repository
	batches  *batch.Repository
	meals    *meal.Repository
	pools    *suggestion.Repository
	suggest  *suggestion.Service
	recipes  *recipe.Repository
	lists    *shopping.Repository
	notifier Notifier
}

// NewController wires the wizard over its collaborators. notifier may be nil.
func NewController(db *sql.DB, sessions *Repository, batches *batch.Repository,
	meals *meal.Repository, pools *suggestion.Repository, suggest *suggestion.Service,
	recipes *recipe.Repository, lists *shopping.Repository, notifier Notifier) *Controller {
	return &Controller{
		db:       db,
		sessions: sessions,
		batches:  batches,
		meals:    meals,
		pools:    pools,
		suggest:  suggest,
		recipes:  recipes,
		lists:    lists,
		notifier: notifier,
	}
}

func (c *Controller) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *Controller) notify(userID string) {
	if c.notifier != nil {
		c.notifier.Notify(userID, "session")
	}
}

// Start resumes the user's in-progress session, or creates a fresh one
// pointed at the currently active batch.
func (c *Controller) Start(ctx context.Context, userID string) (*Session, error) {
	if existing, err := c.sessions.GetByUser(ctx, userID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	s := &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		CurrentStep: StepDispose,
	}
	active, err := c.batches.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		s.PreviousBatchID = &active.ID
	}

	if err := c.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession returns the user's session, or a not-found error when no wizard
// is in progress.
func (c *Controller) GetSession(ctx context.Context, userID string) (*Session, error) {
	s, err := c.sessions.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperr.NotFound(apperr.CodeWizardNoSession, "no wizard session in progress")
	}
	return s, nil
}

// Abandon discards the session from any step. Batches and meals already
// created stay as they are; only the wizard bookkeeping disappears. Calling
// it with no session is a no-op.
func (c *Controller) Abandon(ctx context.Context, userID string) error {
	s, err := c.sessions.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	if err := c.sessions.Delete(ctx, s.ID); err != nil {
		return err
	}
	c.notify(userID)
	return nil
}

// SetMealDispositions records the user's decision for every leftover meal of
// the previous batch. The list is submitted wholesale: each remaining meal
// must appear exactly once, and an audible swap may only be discarded.
func (c *Controller) SetMealDispositions(ctx context.Context, userID string, dispositions []MealDisposition) (*Session, error) {
	s, err := c.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.CurrentStep != StepDispose {
		return nil, apperr.Validation(apperr.CodeWizardBadStep,
			"dispositions can only be set in step 1 (current step %d)", s.CurrentStep)
	}

	leftovers, err := c.previousBatchMeals(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := validateDispositions(dispositions, leftovers); err != nil {
		return nil, err
	}

	s.MealDispositions = dispositions
	if err := c.sessions.Update(ctx, s); err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

func (c *Controller) previousBatchMeals(ctx context.Context, s *Session) ([]meal.Meal, error) {
	if s.PreviousBatchID == nil {
		return nil, nil
	}
	meals, err := c.meals.ListByBatch(ctx, *s.PreviousBatchID)
	if err != nil {
		return nil, err
	}
	remaining := meals[:0]
	for _, m := range meals {
		if !m.Completed {
			remaining = append(remaining, m)
		}
	}
	return remaining, nil
}

func validateDispositions(dispositions []MealDisposition, leftovers []meal.Meal) error {
	byID := make(map[string]meal.Meal, len(leftovers))
	for _, m := range leftovers {
		byID[m.ID] = m
	}

	seen := make(map[string]bool, len(dispositions))
	for _, d := range dispositions {
		m, ok := byID[d.MealID]
		if !ok {
			return apperr.Validation(apperr.CodeWizardBadDisposition,
				"meal %s is not part of the previous batch", d.MealID)
		}
		if seen[d.MealID] {
			return apperr.Validation(apperr.CodeWizardBadDisposition,
				"meal %s has more than one disposition", d.MealID)
		}
		seen[d.MealID] = true

		switch d.Disposition {
		case DispositionCompleted, DispositionRollover, DispositionDiscard:
		default:
			return apperr.Validation(apperr.CodeWizardBadDisposition,
				"unknown disposition %q for meal %s", d.Disposition, d.MealID)
		}
		if m.IsAudible && d.Disposition != DispositionDiscard {
			return apperr.Validation(apperr.CodeWizardBadDisposition,
				"meal %s was an audible swap and can only be discarded", d.MealID)
		}
	}
	if len(seen) != len(byID) {
		return apperr.Validation(apperr.CodeWizardBadDisposition,
			"every remaining meal needs a disposition (%d given, %d remaining)",
			len(seen), len(byID))
	}
	return nil
}

// CompleteStep1 closes out the previous batch and opens the new one. In one
// transaction it creates the batch, applies the recorded dispositions
// (marking completed meals, carrying rollovers into the new batch), archives
// the previous batch with its stat snapshot, and advances to step 2.
//
// An empty name or date range falls back to a week starting today.
func (c *Controller) CompleteStep1(ctx context.Context, userID, name, startDate, endDate string) (*Session, error) {
	s, err := c.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.CurrentStep != StepDispose {
		return nil, apperr.Validation(apperr.CodeWizardBadStep,
			"step 1 already completed (current step %d)", s.CurrentStep)
	}

	leftovers, err := c.previousBatchMeals(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := validateDispositions(s.MealDispositions, leftovers); err != nil {
		return nil, err
	}

	if startDate == "" {
		startDate = time.Now().UTC().Format("2006-01-02")
	}
	if endDate == "" {
		start, _ := time.Parse("2006-01-02", startDate)
		endDate = start.AddDate(0, 0, 6).Format("2006-01-02")
	}
	if name == "" {
		name = "Meal plan " + startDate
	}

	leftoverByID := make(map[string]meal.Meal, len(leftovers))
	for _, m := range leftovers {
		leftoverByID[m.ID] = m
	}

	newBatch := &batch.Batch{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    batch.StatusActive,
	}

	err = c.inTx(ctx, func(tx *sql.Tx) error {
		batches := c.batches.WithTx(tx)
		meals := c.meals.WithTx(tx)

		rollovers := 0
		completed := 0
		discarded := 0
		for _, d := range s.MealDispositions {
			old := leftoverByID[d.MealID]
			switch d.Disposition {
			case DispositionCompleted:
				completed++
				if err := meals.SetCompleted(ctx, d.MealID, nil); err != nil {
					return err
				}
			case DispositionRollover:
				rollovers++
				carried := &meal.Meal{
					BatchID:    newBatch.ID,
					UserID:     userID,
					MealDate:   old.MealDate,
					MealType:   old.MealType,
					Recipe:     old.Recipe,
					Servings:   old.Servings,
					IsRollover: true,
				}
				if err := meals.Create(ctx, carried); err != nil {
					return err
				}
			case DispositionDiscard:
				discarded++
			}
		}

		if err := batches.Create(ctx, newBatch); err != nil {
			return err
		}
		if s.PreviousBatchID != nil {
			prev, err := batches.Get(ctx, *s.PreviousBatchID)
			if err != nil {
				return err
			}
			if prev == nil {
				return apperr.NotFound(apperr.CodeStorageNotFound,
					"previous batch %s no longer exists", *s.PreviousBatchID)
			}
			all, err := meals.ListByBatch(ctx, prev.ID)
			if err != nil {
				return err
			}
			priorCompleted := len(all) - len(leftovers)
			if err := batches.Archive(ctx, prev.ID, batch.ArchiveStats{
				TotalMeals:      len(all),
				CompletedMeals:  priorCompleted + completed,
				RolledOverMeals: rollovers,
				DiscardedMeals:  discarded,
			}); err != nil {
				return err
			}
		}

		s.NewBatchID = &newBatch.ID
		s.RolloverCount = rollovers
		s.CurrentStep = StepFill
		return c.sessions.WithTx(tx).Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

// SetMealCounts records step 2a: how many meals the new batch should hold
// and how many of those the user will pick by hand. The AI quota is derived
// as total minus manual picks minus rollovers.
func (c *Controller) SetMealCounts(ctx context.Context, userID string, total, manualPicks int) (*Session, error) {
	s, err := c.fillStepSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	if total < 0 || manualPicks < 0 {
		return nil, apperr.Validation(apperr.CodeWizardBadTarget, "meal counts cannot be negative")
	}
	if manualPicks > total {
		return nil, apperr.Validation(apperr.CodeWizardBadTarget,
			"manual pick count %d exceeds total meal count %d", manualPicks, total)
	}
	target := total - manualPicks - s.RolloverCount
	if target < 0 {
		return nil, apperr.Validation(apperr.CodeWizardBadTarget,
			"total meal count %d does not cover %d rollovers and %d manual picks",
			total, s.RolloverCount, manualPicks)
	}

	s.TotalMealCount = &total
	s.ManualPickCount = &manualPicks
	s.TargetMealCount = &target
	if err := c.sessions.Update(ctx, s); err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

func (c *Controller) fillStepSession(ctx context.Context, userID string) (*Session, error) {
	return fillStepSessionIn(ctx, c.sessions, userID)
}

// fillStepSessionIn loads and validates the session from the given repository.
// Accept and decline pass a transaction-bound repository so the copy they
// mutate is the one the transaction serializes on, not a stale pre-read.
func fillStepSessionIn(ctx context.Context, sessions *Repository, userID string) (*Session, error) {
	s, err := sessions.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperr.NotFound(apperr.CodeWizardNoSession, "no wizard session in progress")
	}
	if s.CurrentStep != StepFill {
		return nil, apperr.Validation(apperr.CodeWizardBadStep,
			"operation requires step 2 (current step %d)", s.CurrentStep)
	}
	return s, nil
}

// AddManualPick adds a library recipe to the step-2b selection, up to the
// configured quota.
func (c *Controller) AddManualPick(ctx context.Context, userID, recipeID string, servings int) (*Session, error) {
	s, err := c.fillStepSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.ManualPickCount == nil || *s.ManualPickCount == 0 {
		return nil, apperr.Validation(apperr.CodeWizardBadStep, "no manual picks configured for this session")
	}
	if len(s.ManualPicks) >= *s.ManualPickCount {
		return nil, apperr.Validation(apperr.CodeWizardQuotaExceeded,
			"manual pick quota of %d already reached", *s.ManualPickCount)
	}
	for _, p := range s.ManualPicks {
		if p.RecipeID == recipeID {
			return nil, apperr.Validation(apperr.CodeWizardQuotaExceeded,
				"recipe %s is already picked", recipeID)
		}
	}

	rec, err := c.recipes.Get(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound(apperr.CodeStorageNotFound, "recipe %s not found", recipeID)
	}
	if servings <= 0 {
		servings = defaultServings
	}

	s.ManualPicks = append(s.ManualPicks, ManualPick{
		RecipeID:   recipeID,
		RecipeName: rec.Title,
		Servings:   servings,
		AddedAt:    time.Now().UTC(),
	})
	if err := c.sessions.Update(ctx, s); err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

// RemoveManualPick drops a recipe from the step-2b selection.
func (c *Controller) RemoveManualPick(ctx context.Context, userID, recipeID string) (*Session, error) {
	s, err := c.fillStepSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := s.ManualPicks[:0]
	found := false
	for _, p := range s.ManualPicks {
		if p.RecipeID == recipeID {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return nil, apperr.Validation(apperr.CodeWizardBadTarget,
			"recipe %s is not among the manual picks", recipeID)
	}

	s.ManualPicks = kept
	if err := c.sessions.Update(ctx, s); err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

// CompleteManualPicks materializes every pick into a meal of the new batch.
// The new entries go to the front of the accepted-meal list so manual meals
// always precede AI meals.
func (c *Controller) CompleteManualPicks(ctx context.Context, userID string) (*Session, error) {
	var s *Session
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		sessions := c.sessions.WithTx(tx)
		meals := c.meals.WithTx(tx)

		var err error
		s, err = fillStepSessionIn(ctx, sessions, userID)
		if err != nil {
			return err
		}
		if s.ManualPickCount == nil {
			return apperr.Validation(apperr.CodeWizardBadStep, "meal counts have not been set")
		}
		if len(s.ManualPicks) != *s.ManualPickCount {
			return apperr.Validation(apperr.CodeWizardQuotaUnmet,
				"%d of %d manual picks selected", len(s.ManualPicks), *s.ManualPickCount)
		}
		if len(s.ManualRefs()) > 0 {
			return apperr.Validation(apperr.CodeWizardBadStep, "manual picks already committed")
		}

		refs := make([]AcceptedMealRef, 0, len(s.ManualPicks)+len(s.AcceptedMeals))
		for _, p := range s.ManualPicks {
			rec, err := c.recipes.Get(ctx, p.RecipeID)
			if err != nil {
				return err
			}
			if rec == nil {
				return apperr.NotFound(apperr.CodeStorageNotFound,
					"recipe %s disappeared from the library", p.RecipeID)
			}
			m := &meal.Meal{
				BatchID:      *s.NewBatchID,
				UserID:       userID,
				MealDate:     "",
				MealType:     meal.TypeDinner,
				Recipe:       rec.Snapshot(),
				Servings:     p.Servings,
				IsManualPick: true,
			}
			if err := meals.Create(ctx, m); err != nil {
				return err
			}
			refs = append(refs, AcceptedMealRef{MealID: m.ID, Source: SourceManual})
		}

		s.AcceptedMeals = append(refs, s.AcceptedMeals...)
		return sessions.Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

// SetTargetCount overrides the AI suggestion quota directly and recomputes
// the total to keep total = rollovers + manual + target.
func (c *Controller) SetTargetCount(ctx context.Context, userID string, count int) (*Session, error) {
	s, err := c.fillStepSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, apperr.Validation(apperr.CodeWizardBadTarget, "target count cannot be negative")
	}

	manual := 0
	if s.ManualPickCount != nil {
		manual = *s.ManualPickCount
	}
	total := s.RolloverCount + manual + count

	s.TargetMealCount = &count
	s.TotalMealCount = &total
	if s.ManualPickCount == nil {
		s.ManualPickCount = &manual
	}
	if err := c.sessions.Update(ctx, s); err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

// RequestMoreSuggestions asks the generator for candidates. The first call
// creates the session's pool sized to the AI quota; later calls top up an
// already resolved pool. A still-pending pool rejects the request instead of
// stacking generations.
func (c *Controller) RequestMoreSuggestions(ctx context.Context, userID, startDate, endDate string, mealTypes []meal.Type) (*Session, error) {
	s, err := c.fillStepSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.TargetMealCount == nil || *s.TargetMealCount == 0 {
		return nil, apperr.Validation(apperr.CodeWizardBadTarget, "no AI suggestion quota configured")
	}

	if len(mealTypes) == 0 {
		mealTypes = []meal.Type{meal.TypeDinner}
	}

	if s.CurrentPoolID == nil {
		pool, err := c.suggest.Request(ctx, userID, startDate, endDate, mealTypes, *s.TargetMealCount)
		if err != nil {
			return nil, err
		}
		s.CurrentPoolID = &pool.ID
		if err := c.sessions.Update(ctx, s); err != nil {
			return nil, err
		}
		c.notify(userID)
		return s, nil
	}

	pool, err := c.pools.Get(ctx, *s.CurrentPoolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, apperr.NotFound(apperr.CodeSuggestionNoPool, "suggestion pool %s not found", *s.CurrentPoolID)
	}
	if pool.Status == suggestion.StatusPending {
		return nil, apperr.Validation(apperr.CodeSuggestionNotReady,
			"a generation is already in progress")
	}

	shortfall := *s.TargetMealCount - len(s.AIRefs())
	if shortfall < 1 {
		shortfall = 1
	}
	if err := c.suggest.RequestMore(ctx, pool, shortfall); err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

// AcceptSuggestion accepts the visible candidate at index and materializes it
// as a meal of the new batch. Re-accepting the same index returns the
// already-created meal without creating another row. Session and pool are
// read inside the transaction so overlapping accepts from two tabs serialize
// instead of both seeing the index unaccepted.
func (c *Controller) AcceptSuggestion(ctx context.Context, userID, poolID string, index int, servings *int) (*meal.Meal, error) {
	var accepted *meal.Meal
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		sessions := c.sessions.WithTx(tx)
		pools := c.pools.WithTx(tx)
		meals := c.meals.WithTx(tx)

		s, err := fillStepSessionIn(ctx, sessions, userID)
		if err != nil {
			return err
		}
		pool, err := sessionPoolIn(ctx, pools, s, poolID)
		if err != nil {
			return err
		}

		already, err := pool.MarkAccepted(index, servings)
		if err != nil {
			return err
		}
		if already {
			existing, err := meals.GetByPoolIndex(ctx, pool.ID, index)
			if err != nil {
				return err
			}
			if existing == nil {
				return apperr.Invariant(apperr.CodeSuggestionIndexInvalid,
					"suggestion %d of pool %s is accepted but has no meal", index, pool.ID)
			}
			accepted = existing
			return nil
		}

		cand := pool.Suggestions[index]
		m := &meal.Meal{
			BatchID:         *s.NewBatchID,
			UserID:          userID,
			PoolID:          &pool.ID,
			SuggestionIndex: &index,
			MealDate:        cand.MealDate,
			MealType:        cand.MealType,
			Recipe:          cand.Recipe,
			Servings:        cand.EffectiveServings(),
		}
		if err := meals.Create(ctx, m); err != nil {
			return err
		}
		accepted = m

		s.AcceptedMeals = append(s.AcceptedMeals, AcceptedMealRef{MealID: m.ID, Source: SourceAI})
		if err := pools.Update(ctx, pool); err != nil {
			return err
		}
		return sessions.Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	c.notify(userID)
	return accepted, nil
}

// DeclineSuggestion declines the visible candidate at index, revealing the
// next backlog entry in the same transaction when one remains. The pool is
// read inside the transaction: a decline racing an accept on another index
// must not write back a copy that predates the accept.
func (c *Controller) DeclineSuggestion(ctx context.Context, userID, poolID string, index int) (*suggestion.Pool, error) {
	var pool *suggestion.Pool
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		s, err := fillStepSessionIn(ctx, c.sessions.WithTx(tx), userID)
		if err != nil {
			return err
		}
		pools := c.pools.WithTx(tx)
		pool, err = sessionPoolIn(ctx, pools, s, poolID)
		if err != nil {
			return err
		}

		_, already, err := pool.MarkDeclined(index)
		if err != nil {
			return err
		}
		if already {
			return nil
		}
		return pools.Update(ctx, pool)
	})
	if err != nil {
		return nil, err
	}
	c.notify(userID)
	return pool, nil
}

func sessionPoolIn(ctx context.Context, pools *suggestion.Repository, s *Session, poolID string) (*suggestion.Pool, error) {
	if s.CurrentPoolID == nil || *s.CurrentPoolID != poolID {
		return nil, apperr.Validation(apperr.CodeSuggestionNoPool,
			"pool %s is not the session's current pool", poolID)
	}
	pool, err := pools.Get(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, apperr.NotFound(apperr.CodeSuggestionNoPool, "suggestion pool %s not found", poolID)
	}
	if pool.Status != suggestion.StatusReceived {
		return nil, apperr.Validation(apperr.CodeSuggestionNotReady,
			"suggestion pool is %s, not ready for decisions", pool.Status)
	}
	return pool, nil
}

// SuggestionView is the poll target for step 2c. Status "none" means no pool
// has been requested yet; "pending" is not an error, the client keeps
// polling.
type SuggestionView struct {
	PoolID     string                 `json:"pool_id,omitempty"`
	Status     string                 `json:"status"`
	Visible    []suggestion.Candidate `json:"visible,omitempty"`
	Reasoning  string                 `json:"reasoning,omitempty"`
	Error      string                 `json:"error,omitempty"`
	HasBacklog bool                   `json:"has_backlog"`
}

// GetCurrentSuggestion reports the current pool without ever erroring for
// "not ready yet".
func (c *Controller) GetCurrentSuggestion(ctx context.Context, userID string) (*SuggestionView, error) {
	s, err := c.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.CurrentPoolID == nil {
		return &SuggestionView{Status: "none"}, nil
	}
	pool, err := c.pools.Get(ctx, *s.CurrentPoolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return &SuggestionView{Status: "none"}, nil
	}
	return &SuggestionView{
		PoolID:     pool.ID,
		Status:     string(pool.Status),
		Visible:    pool.Visible(),
		Reasoning:  pool.Reasoning,
		Error:      pool.Error,
		HasBacklog: pool.HasBacklog(),
	}, nil
}

// SuggestionProgress counts accepted AI meals against the quota.
type SuggestionProgress struct {
	Accepted  int `json:"accepted"`
	Target    int `json:"target"`
	Remaining int `json:"remaining"`
}

// GetSuggestionProgress reports how many AI meals are still needed before
// step 2 can complete.
func (c *Controller) GetSuggestionProgress(ctx context.Context, userID string) (*SuggestionProgress, error) {
	s, err := c.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	target := 0
	if s.TargetMealCount != nil {
		target = *s.TargetMealCount
	}
	accepted := len(s.AIRefs())
	remaining := target - accepted
	if remaining < 0 {
		remaining = 0
	}
	return &SuggestionProgress{Accepted: accepted, Target: target, Remaining: remaining}, nil
}

// CompleteStep2 closes the fill step once enough AI suggestions were
// accepted. Declined and backlog candidates never block completion.
func (c *Controller) CompleteStep2(ctx context.Context, userID string) (*Session, error) {
	s, err := c.fillStepSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.TotalMealCount == nil || s.TargetMealCount == nil {
		return nil, apperr.Validation(apperr.CodeWizardBadStep, "meal counts have not been set")
	}
	if accepted := len(s.AIRefs()); accepted < *s.TargetMealCount {
		return nil, apperr.Validation(apperr.CodeWizardQuotaUnmet,
			"%d of %d AI suggestions accepted", accepted, *s.TargetMealCount)
	}

	err = c.inTx(ctx, func(tx *sql.Tx) error {
		if s.CurrentPoolID != nil {
			pool, err := c.pools.WithTx(tx).Get(ctx, *s.CurrentPoolID)
			if err != nil {
				return err
			}
			if pool != nil && pool.Status == suggestion.StatusReceived {
				pool.Status = suggestion.StatusReviewed
				if err := c.pools.WithTx(tx).Update(ctx, pool); err != nil {
					return err
				}
			}
		}
		s.CurrentStep = StepShopping
		return c.sessions.WithTx(tx).Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

// GetShoppingPreview aggregates the ingredients of every non-rollover meal
// in the new batch. Rollover meals were already shopped for in a previous
// cycle.
func (c *Controller) GetShoppingPreview(ctx context.Context, userID string) ([]shopping.AggregatedIngredient, error) {
	s, err := c.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.CurrentStep < StepShopping {
		return nil, apperr.Validation(apperr.CodeWizardBadStep,
			"shopping preview requires step 3 (current step %d)", s.CurrentStep)
	}
	return c.newBatchAggregate(ctx, s)
}

func (c *Controller) newBatchAggregate(ctx context.Context, s *Session) ([]shopping.AggregatedIngredient, error) {
	if s.NewBatchID == nil {
		return nil, apperr.Invariant(apperr.CodeWizardBadStep, "session reached step 3 without a batch")
	}
	all, err := c.meals.ListByBatch(ctx, *s.NewBatchID)
	if err != nil {
		return nil, err
	}
	fresh := all[:0]
	for _, m := range all {
		if !m.IsRollover {
			fresh = append(fresh, m)
		}
	}
	return shopping.Aggregate(fresh), nil
}

// CompleteStep3 writes the selected ingredients to a shopping list and marks
// the contributing meals. selected names an ingredient subset of the
// preview; an empty selection takes everything.
func (c *Controller) CompleteStep3(ctx context.Context, userID string, selected []string,
	action shopping.ListAction, listID, newListName string) (*Session, error) {
	s, err := c.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.CurrentStep != StepShopping {
		return nil, apperr.Validation(apperr.CodeWizardBadStep,
			"shopping commit requires step 3 (current step %d)", s.CurrentStep)
	}

	switch action {
	case shopping.ActionNew:
		if newListName == "" {
			return nil, apperr.Validation(apperr.CodeShoppingBadAction, "a new list needs a name")
		}
	case shopping.ActionAppend, shopping.ActionReplace:
		if listID == "" {
			return nil, apperr.Validation(apperr.CodeShoppingListMissing,
				"action %q needs an existing list", action)
		}
		existing, err := c.lists.Get(ctx, listID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, apperr.NotFound(apperr.CodeShoppingListMissing, "shopping list %s not found", listID)
		}
	default:
		return nil, apperr.Validation(apperr.CodeShoppingBadAction, "unknown list action %q", action)
	}

	aggregated, err := c.newBatchAggregate(ctx, s)
	if err != nil {
		return nil, err
	}
	chosen, mealIDs := filterSelection(aggregated, selected)
	items := shopping.ToItems(chosen)

	err = c.inTx(ctx, func(tx *sql.Tx) error {
		lists := c.lists.WithTx(tx)

		targetID := listID
		switch action {
		case shopping.ActionNew:
			list, err := lists.Create(ctx, userID, newListName, items)
			if err != nil {
				return err
			}
			targetID = list.ID
		case shopping.ActionAppend:
			if err := lists.AppendItems(ctx, listID, items); err != nil {
				return err
			}
		case shopping.ActionReplace:
			if err := lists.ReplaceItems(ctx, listID, items); err != nil {
				return err
			}
		}

		if err := c.meals.WithTx(tx).MarkShoppingGenerated(ctx, mealIDs); err != nil {
			return err
		}

		s.SelectedIngredients = selectionNames(chosen)
		s.TargetListID = &targetID
		s.CurrentStep = StepDone
		return c.sessions.WithTx(tx).Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	c.notify(userID)
	return s, nil
}

func filterSelection(aggregated []shopping.AggregatedIngredient, selected []string) ([]shopping.AggregatedIngredient, []string) {
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		want[name] = true
	}

	var chosen []shopping.AggregatedIngredient
	mealIDSet := make(map[string]bool)
	for _, agg := range aggregated {
		if len(selected) > 0 && !want[agg.Name] {
			continue
		}
		chosen = append(chosen, agg)
		for _, id := range agg.MealIDs {
			mealIDSet[id] = true
		}
	}

	mealIDs := make([]string, 0, len(mealIDSet))
	for id := range mealIDSet {
		mealIDs = append(mealIDs, id)
	}
	return chosen, mealIDs
}

func selectionNames(chosen []shopping.AggregatedIngredient) []string {
	names := make([]string, len(chosen))
	for i, agg := range chosen {
		names[i] = agg.Name
	}
	return names
}

// CompletionSummary is the read-only step 4 view.
type CompletionSummary struct {
	Batch          *batch.Batch `json:"batch"`
	TotalMeals     int          `json:"total_meals"`
	ManualMeals    int          `json:"manual_meals"`
	AIMeals        int          `json:"ai_meals"`
	RolloverMeals  int          `json:"rollover_meals"`
	ShoppingListID *string      `json:"shopping_list_id,omitempty"`
}

// GetCompletionSummary describes what the wizard produced.
func (c *Controller) GetCompletionSummary(ctx context.Context, userID string) (*CompletionSummary, error) {
	s, err := c.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.NewBatchID == nil {
		return nil, apperr.Validation(apperr.CodeWizardBadStep, "the wizard has not created a batch yet")
	}
	b, err := c.batches.Get(ctx, *s.NewBatchID)
	if err != nil {
		return nil, err
	}
	meals, err := c.meals.ListByBatch(ctx, *s.NewBatchID)
	if err != nil {
		return nil, err
	}

	summary := &CompletionSummary{
		Batch:          b,
		TotalMeals:     len(meals),
		ShoppingListID: s.TargetListID,
	}
	for _, m := range meals {
		switch {
		case m.IsRollover:
			summary.RolloverMeals++
		case m.IsManualPick:
			summary.ManualMeals++
		default:
			summary.AIMeals++
		}
	}
	return summary, nil
}

// FinishWizard ends the session. The batch and its meals persist.
func (c *Controller) FinishWizard(ctx context.Context, userID string) error {
	s, err := c.GetSession(ctx, userID)
	if err != nil {
		return err
	}
	if s.CurrentStep != StepDone {
		return apperr.Validation(apperr.CodeWizardBadStep,
			"finishing requires step 4 (current step %d)", s.CurrentStep)
	}
	if err := c.sessions.Delete(ctx, s.ID); err != nil {
		return err
	}
	c.notify(userID)
	return nil
}

// GoBack rewinds the wizard, destroying only this session's own work. Each
// target deletes the meals created past that point and nulls the fields the
// user will re-enter; rollover meals and the previous batch's history are
// never touched except by the full step-1 rewind, which deletes the new
// batch outright and reactivates the previous one.
//
// An unmet precondition is a validation error and mutates nothing.
func (c *Controller) GoBack(ctx context.Context, userID string, target GoBackTarget) (*Session, error) {
	s, err := c.GetSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch target {
	case BackToStep1:
		return c.goBackToStep1(ctx, s)
	case BackToStep2a:
		if s.CurrentStep < StepFill {
			return nil, goBackPrecondition(target, "step 1 is not complete")
		}
		return c.rewindFill(ctx, s, func(s *Session) {
			s.TotalMealCount = nil
			s.ManualPickCount = nil
			s.TargetMealCount = nil
			s.ManualPicks = nil
		}, allSources)
	case BackToStep2b:
		if s.CurrentStep < StepFill || s.TotalMealCount == nil {
			return nil, goBackPrecondition(target, "meal counts are not set")
		}
		if s.ManualPickCount == nil || *s.ManualPickCount == 0 {
			return nil, goBackPrecondition(target, "no manual picks configured")
		}
		return c.rewindFill(ctx, s, func(s *Session) {
			s.TargetMealCount = nil
			s.ManualPicks = nil
		}, allSources)
	case BackToStep2c:
		if s.CurrentStep < StepFill || s.TotalMealCount == nil {
			return nil, goBackPrecondition(target, "meal counts are not set")
		}
		return c.rewindFill(ctx, s, func(s *Session) {
			s.TargetMealCount = nil
		}, aiOnly)
	case BackToStep3:
		if s.CurrentStep < StepShopping {
			return nil, goBackPrecondition(target, "step 3 has not been reached")
		}
		s.CurrentStep = StepShopping
		if err := c.sessions.Update(ctx, s); err != nil {
			return nil, err
		}
		c.notify(s.UserID)
		return s, nil
	default:
		return nil, apperr.Validation(apperr.CodeWizardBadTarget, "unknown goBack target %q", target)
	}
}

func goBackPrecondition(target GoBackTarget, reason string) error {
	return apperr.Validation(apperr.CodeWizardBadStep, "cannot go back to %s: %s", target, reason)
}

type refFilter int

const (
	allSources refFilter = iota
	aiOnly
)

// rewindFill deletes the session's own meals per the filter and resets the
// given fields, landing back on step 2. The pool pointer is always dropped;
// an in-flight generation writing to the orphaned pool later is harmless.
func (c *Controller) rewindFill(ctx context.Context, s *Session, reset func(*Session), filter refFilter) (*Session, error) {
	var doomed []string
	var kept []AcceptedMealRef
	for _, ref := range s.AcceptedMeals {
		if filter == allSources || ref.Source == SourceAI {
			doomed = append(doomed, ref.MealID)
		} else {
			kept = append(kept, ref)
		}
	}

	err := c.inTx(ctx, func(tx *sql.Tx) error {
		if err := c.meals.WithTx(tx).DeleteByIDs(ctx, doomed); err != nil {
			return err
		}
		reset(s)
		s.AcceptedMeals = kept
		s.CurrentPoolID = nil
		s.CurrentStep = StepFill
		return c.sessions.WithTx(tx).Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	c.notify(s.UserID)
	return s, nil
}

// goBackToStep1 is the full rewind: the new batch and everything in it go
// away, and the previously archived batch becomes active again.
func (c *Controller) goBackToStep1(ctx context.Context, s *Session) (*Session, error) {
	if s.CurrentStep < StepFill || s.NewBatchID == nil {
		return nil, goBackPrecondition(BackToStep1, "step 1 is not complete")
	}

	err := c.inTx(ctx, func(tx *sql.Tx) error {
		batches := c.batches.WithTx(tx)

		if err := batches.Delete(ctx, *s.NewBatchID); err != nil {
			return err
		}
		if s.PreviousBatchID != nil {
			if err := batches.SetStatus(ctx, *s.PreviousBatchID, batch.StatusActive); err != nil {
				return err
			}
			// Undo the completion flags this session set in step 1, so the
			// restored batch reads as it did before the wizard touched it.
			var completed []string
			for _, d := range s.MealDispositions {
				if d.Disposition == DispositionCompleted {
					completed = append(completed, d.MealID)
				}
			}
			if err := c.meals.WithTx(tx).ClearCompleted(ctx, completed); err != nil {
				return err
			}
		}

		s.NewBatchID = nil
		s.RolloverCount = 0
		s.TotalMealCount = nil
		s.ManualPickCount = nil
		s.TargetMealCount = nil
		s.ManualPicks = nil
		s.AcceptedMeals = nil
		s.CurrentPoolID = nil
		s.SelectedIngredients = nil
		s.TargetListID = nil
		s.CurrentStep = StepDispose
		return c.sessions.WithTx(tx).Update(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	c.notify(s.UserID)
	return s, nil
}
