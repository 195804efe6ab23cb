package server

import (
	"net/http"

	"household-planner/internal/apperr"
	"household-planner/internal/batch"
	"household-planner/internal/meal"
)

// The batch/meal endpoints cover day-to-day use between wizard runs: seeing
// the current plan, ticking meals off, and swapping a planned meal for
// something else ("calling an audible"). The audible flag matters later: the
// next wizard's step 1 only lets swapped meals be discarded.

type currentBatchResponse struct {
	Batch *batch.Batch `json:"batch"`
	Meals []meal.Meal  `json:"meals"`
}

func (s *Server) handleCurrentBatch(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	b, err := s.batches.GetActive(r.Context(), userID)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	if b == nil {
		writeError(w, apperr.NotFound(apperr.CodeStorageNotFound, "no active batch"), 0)
		return
	}
	meals, err := s.meals.ListByBatch(r.Context(), b.ID)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, currentBatchResponse{Batch: b, Meals: meals})
}

func (s *Server) handleCompleteMeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MealID string `json:"meal_id"`
		Rating *int   `json:"rating"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}

	m, err := s.ownedMeal(r, req.MealID)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		writeError(w, apperr.Validation(apperr.CodeWizardBadTarget, "rating must be 1-5"), 0)
		return
	}
	if err := s.meals.SetCompleted(r.Context(), m.ID, req.Rating); err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSwapMeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MealID   string `json:"meal_id"`
		RecipeID string `json:"recipe_id"`
		Servings int    `json:"servings"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}

	m, err := s.ownedMeal(r, req.MealID)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	if m.Completed {
		writeError(w, apperr.Validation(apperr.CodeWizardBadTarget, "cannot swap a completed meal"), 0)
		return
	}

	rec, err := s.recipes.Get(r.Context(), req.RecipeID)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	if rec == nil {
		writeError(w, apperr.NotFound(apperr.CodeStorageNotFound, "recipe %s not found", req.RecipeID), 0)
		return
	}

	servings := req.Servings
	if servings <= 0 {
		servings = m.Servings
	}
	replacement, err := s.meals.Replace(r.Context(), m, rec.Snapshot(), servings)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, replacement)
}

func (s *Server) ownedMeal(r *http.Request, mealID string) (*meal.Meal, error) {
	if mealID == "" {
		return nil, apperr.Validation(apperr.CodeRequestBadBody, "meal_id is required")
	}
	m, err := s.meals.Get(r.Context(), mealID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.UserID != UserID(r.Context()) {
		return nil, apperr.NotFound(apperr.CodeStorageNotFound, "meal %s not found", mealID)
	}
	return m, nil
}
