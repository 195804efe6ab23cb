// Package server exposes the planner over HTTP. The API is RPC flavored:
// every operation is a POST to /api/<service>.<operation> with a JSON body,
// mirroring how the web client calls it. A WebSocket endpoint pushes
// "refetch" events so clients do not have to poll suggestion generation.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"household-planner/internal/apperr"
	"household-planner/internal/batch"
	"household-planner/internal/meal"
	"household-planner/internal/metrics"
	"household-planner/internal/notify"
	"household-planner/internal/recipe"
	"household-planner/internal/shopping"
	"household-planner/internal/wizard"
)

// Server routes planner requests to the wizard controller and its
// collaborators.
type Server struct {
	jwtSecret string

	wizard   *wizard.Controller
	recipes  *recipe.Repository
	importer *recipe.Importer
	lists    *shopping.Repository
	batches  *batch.Repository
	meals    *meal.Repository
	metrics  *metrics.Store
	hub      *notify.Hub
	dataPath string
}

// New builds the server. importer, metrics and hub may be nil; the matching
// endpoints then report not found or serve empty data.
func New(jwtSecret string, w *wizard.Controller, recipes *recipe.Repository,
	importer *recipe.Importer, lists *shopping.Repository,
	batches *batch.Repository, meals *meal.Repository,
	store *metrics.Store, hub *notify.Hub, dataPath string) *Server {
	return &Server{
		jwtSecret: jwtSecret,
		wizard:    w,
		recipes:   recipes,
		importer:  importer,
		lists:     lists,
		batches:   batches,
		meals:     meals,
		metrics:   store,
		hub:       hub,
		dataPath:  dataPath,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	rpc := map[string]http.HandlerFunc{
		"wizard.start":                  s.handleStart,
		"wizard.getSession":             s.handleGetSession,
		"wizard.abandon":                s.handleAbandon,
		"wizard.setMealDispositions":    s.handleSetMealDispositions,
		"wizard.completeStep1":          s.handleCompleteStep1,
		"wizard.setMealCounts":          s.handleSetMealCounts,
		"wizard.addManualPick":          s.handleAddManualPick,
		"wizard.removeManualPick":       s.handleRemoveManualPick,
		"wizard.completeManualPicks":    s.handleCompleteManualPicks,
		"wizard.setTargetCount":         s.handleSetTargetCount,
		"wizard.requestMoreSuggestions": s.handleRequestMoreSuggestions,
		"wizard.acceptSuggestion":       s.handleAcceptSuggestion,
		"wizard.declineSuggestion":      s.handleDeclineSuggestion,
		"wizard.getCurrentSuggestion":   s.handleGetCurrentSuggestion,
		"wizard.getSuggestionProgress":  s.handleGetSuggestionProgress,
		"wizard.completeStep2":          s.handleCompleteStep2,
		"wizard.getShoppingPreview":     s.handleGetShoppingPreview,
		"wizard.completeStep3":          s.handleCompleteStep3,
		"wizard.getCompletionSummary":   s.handleGetCompletionSummary,
		"wizard.finishWizard":           s.handleFinishWizard,
		"wizard.goBack":                 s.handleGoBack,
		"batches.current":               s.handleCurrentBatch,
		"meals.complete":                s.handleCompleteMeal,
		"meals.swap":                    s.handleSwapMeal,
		"recipes.list":                  s.handleListRecipes,
		"recipes.import":                s.handleImportRecipe,
		"shopping.lists":                s.handleShoppingLists,
		"metrics.dailyUsage":            s.handleDailyUsage,
	}
	for name, h := range rpc {
		mux.HandleFunc("POST /api/"+name, s.requireAuth(h))
	}

	mux.HandleFunc("GET /ws", s.requireAuth(s.handleWebSocket))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.NotFound(w, r)
		return
	}
	s.hub.HandleConnection(w, r, UserID(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.GetSysHealth(s.dataPath))
}

// writeJSON writes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("server: failed to encode response: %v", err)
		}
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps the error taxonomy onto HTTP statuses: validation 400,
// not-found 404, invariant violations and everything unexpected 500.
// statusOverride, when nonzero, wins.
func writeError(w http.ResponseWriter, err error, statusOverride int) {
	status := statusOverride
	if status == 0 {
		switch {
		case apperr.IsValidation(err):
			status = http.StatusBadRequest
		case apperr.IsNotFound(err):
			status = http.StatusNotFound
		default:
			status = http.StatusInternalServerError
		}
	}

	var appErr *apperr.Error
	detail := errorDetail{Code: "internal", Message: "internal server error"}
	if errors.As(err, &appErr) {
		detail = errorDetail{Code: appErr.Code, Message: appErr.Message}
	}
	if status >= 500 {
		log.Printf("server: %v", err)
	}

	writeJSON(w, status, errorBody{Error: detail})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation(apperr.CodeRequestBadBody, "invalid request body: %v", err)
	}
	return nil
}
