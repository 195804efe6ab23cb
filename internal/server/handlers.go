package server

import (
	"net/http"

	"household-planner/internal/meal"
	"household-planner/internal/shopping"
	"household-planner/internal/wizard"
)

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	session, err := s.wizard.Start(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.wizard.GetSession(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.wizard.Abandon(r.Context(), UserID(r.Context())); err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSetMealDispositions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dispositions []wizard.MealDisposition `json:"dispositions"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	session, err := s.wizard.SetMealDispositions(r.Context(), UserID(r.Context()), req.Dispositions)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCompleteStep1(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	session, err := s.wizard.CompleteStep1(r.Context(), UserID(r.Context()), req.Name, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSetMealCounts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TotalMealCount  int `json:"total_meal_count"`
		ManualPickCount int `json:"manual_pick_count"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	session, err := s.wizard.SetMealCounts(r.Context(), UserID(r.Context()), req.TotalMealCount, req.ManualPickCount)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAddManualPick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipeID string `json:"recipe_id"`
		Servings int    `json:"servings"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	session, err := s.wizard.AddManualPick(r.Context(), UserID(r.Context()), req.RecipeID, req.Servings)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRemoveManualPick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipeID string `json:"recipe_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	session, err := s.wizard.RemoveManualPick(r.Context(), UserID(r.Context()), req.RecipeID)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleCompleteManualPicks(w http.ResponseWriter, r *http.Request) {
	session, err := s.wizard.CompleteManualPicks(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSetTargetCount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	session, err := s.wizard.SetTargetCount(r.Context(), UserID(r.Context()), req.Count)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleRequestMoreSuggestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string      `json:"start_date"`
		EndDate   string      `json:"end_date"`
		MealTypes []meal.Type `json:"meal_types"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	session, err := s.wizard.RequestMoreSuggestions(r.Context(), UserID(r.Context()), req.StartDate, req.EndDate, req.MealTypes)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PoolID   string `json:"pool_id"`
		Index    int    `json:"index"`
		Servings *int   `json:"servings"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	accepted, err := s.wizard.AcceptSuggestion(r.Context(), UserID(r.Context()), req.PoolID, req.Index, req.Servings)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, accepted)
}

func (s *Server) handleDeclineSuggestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PoolID string `json:"pool_id"`
		Index  int    `json:"index"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	pool, err := s.wizard.DeclineSuggestion(r.Context(), UserID(r.Context()), req.PoolID, req.Index)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

func (s *Server) handleGetCurrentSuggestion(w http.ResponseWriter, r *http.Request) {
	view, err := s.wizard.GetCurrentSuggestion(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetSuggestionProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.wizard.GetSuggestionProgress(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleCompleteStep2(w http.ResponseWriter, r *http.Request) {
	session, err := s.wizard.CompleteStep2(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetShoppingPreview(w http.ResponseWriter, r *http.Request) {
	preview, err := s.wizard.GetShoppingPreview(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleCompleteStep3(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SelectedIngredients []string            `json:"selected_ingredients"`
		ListAction          shopping.ListAction `json:"list_action"`
		ListID              string              `json:"list_id"`
		NewListName         string              `json:"new_list_name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	session, err := s.wizard.CompleteStep3(r.Context(), UserID(r.Context()),
		req.SelectedIngredients, req.ListAction, req.ListID, req.NewListName)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetCompletionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.wizard.GetCompletionSummary(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleFinishWizard(w http.ResponseWriter, r *http.Request) {
	if err := s.wizard.FinishWizard(r.Context(), UserID(r.Context())); err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleGoBack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target wizard.GoBackTarget `json:"target"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	session, err := s.wizard.GoBack(r.Context(), UserID(r.Context()), req.Target)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.recipes.List(r.Context())
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) handleImportRecipe(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		http.NotFound(w, r)
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	imported, meta, err := s.importer.ImportURL(r.Context(), req.URL)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	if s.metrics != nil {
		if err := s.metrics.RecordMeta(meta); err != nil {
			writeError(w, err, 0)
			return
		}
	}
	writeJSON(w, http.StatusOK, imported)
}

func (s *Server) handleShoppingLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.lists.ListByUser(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleDailyUsage(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	var req struct {
		Days int `json:"days"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	if req.Days <= 0 {
		req.Days = 7
	}
	usage, err := s.metrics.GetDailyUsage(req.Days)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
