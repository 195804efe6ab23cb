package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"household-planner/internal/batch"
	"household-planner/internal/database"
	"household-planner/internal/meal"
	"household-planner/internal/metrics"
	"household-planner/internal/recipe"
	"household-planner/internal/shared"
	"household-planner/internal/shopping"
	"household-planner/internal/suggestion"
	"household-planner/internal/wizard"
)

const testSecret = "test-secret"

type stubGenerator struct{}

func (g *stubGenerator) Generate(ctx context.Context, c suggestion.Constraints) (suggestion.GeneratedSet, shared.AgentMeta, error) {
	set := suggestion.GeneratedSet{Reasoning: "stub"}
	for i := 0; i < c.Count; i++ {
		set.Candidates = append(set.Candidates, suggestion.Candidate{
			MealDate: c.StartDate,
			MealType: meal.TypeDinner,
			Recipe:   recipe.Snapshot{Title: "Generated dish"},
			Servings: 2,
		})
	}
	return set, shared.AgentMeta{AgentName: "stub"}, nil
}

type testDeps struct {
	batches *batch.Repository
	meals   *meal.Repository
	recipes *recipe.Repository
}

func newTestServer(t *testing.T) (*httptest.Server, testDeps) {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := wizard.NewRepository(db.SQL)
	batches := batch.NewRepository(db.SQL)
	meals := meal.NewRepository(db.SQL)
	pools := suggestion.NewRepository(db.SQL)
	recipes := recipe.NewRepository(db.SQL)
	lists := shopping.NewRepository(db.SQL)
	store := metrics.NewStore(db.SQL)

	svc := suggestion.NewService(pools, &stubGenerator{}, nil, store, 5*time.Second, 4)
	ctrl := wizard.NewController(db.SQL, sessions, batches, meals, pools, svc, recipes, lists, nil)

	srv := New(testSecret, ctrl, recipes, nil, lists, batches, meals, store, nil, dir)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, testDeps{batches: batches, meals: meals, recipes: recipes}
}

func call(t *testing.T, ts *httptest.Server, token, op string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/"+op, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func testToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := IssueToken(testSecret, userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return token
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := call(t, ts, "", "wizard.start", map[string]string{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", resp.StatusCode)
	}

	bad, err := IssueToken("other-secret", "u1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	resp = call(t, ts, bad, "wizard.start", map[string]string{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a token signed with the wrong secret, got %d", resp.StatusCode)
	}
}

func TestWizardFlowOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t)
	token := testToken(t, "u1")

	resp := call(t, ts, token, "wizard.start", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wizard.start returned %d", resp.StatusCode)
	}
	var session wizard.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	if session.CurrentStep != wizard.StepDispose {
		t.Errorf("Expected step 1, got %d", session.CurrentStep)
	}

	resp = call(t, ts, token, "wizard.completeStep1", map[string]string{
		"start_date": "2026-09-01", "end_date": "2026-09-07",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wizard.completeStep1 returned %d", resp.StatusCode)
	}

	resp = call(t, ts, token, "wizard.setMealCounts", map[string]int{
		"total_meal_count": 1, "manual_pick_count": 0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wizard.setMealCounts returned %d", resp.StatusCode)
	}

	resp = call(t, ts, token, "wizard.requestMoreSuggestions", map[string]string{
		"start_date": "2026-09-01", "end_date": "2026-09-07",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wizard.requestMoreSuggestions returned %d", resp.StatusCode)
	}

	// Poll until generation resolves.
	var view struct {
		PoolID  string                 `json:"pool_id"`
		Status  string                 `json:"status"`
		Visible []suggestion.Candidate `json:"visible"`
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp = call(t, ts, token, "wizard.getCurrentSuggestion", map[string]string{})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("wizard.getCurrentSuggestion returned %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
			t.Fatalf("Failed to decode view: %v", err)
		}
		if view.Status == "received" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if view.Status != "received" || len(view.Visible) != 1 {
		t.Fatalf("Suggestions never resolved: %+v", view)
	}

	resp = call(t, ts, token, "wizard.acceptSuggestion", map[string]interface{}{
		"pool_id": view.PoolID, "index": 0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wizard.acceptSuggestion returned %d", resp.StatusCode)
	}

	resp = call(t, ts, token, "wizard.completeStep2", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wizard.completeStep2 returned %d", resp.StatusCode)
	}

	resp = call(t, ts, token, "wizard.completeStep3", map[string]interface{}{
		"list_action": "new", "new_list_name": "Groceries",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wizard.completeStep3 returned %d", resp.StatusCode)
	}

	resp = call(t, ts, token, "wizard.finishWizard", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wizard.finishWizard returned %d", resp.StatusCode)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	ts, _ := newTestServer(t)
	token := testToken(t, "u1")

	// No session yet: not found.
	resp := call(t, ts, token, "wizard.getSession", map[string]string{})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 with no session, got %d", resp.StatusCode)
	}

	call(t, ts, token, "wizard.start", map[string]string{})
	call(t, ts, token, "wizard.completeStep1", map[string]string{"start_date": "2026-09-01", "end_date": "2026-09-07"})

	// Invalid counts: validation.
	resp = call(t, ts, token, "wizard.setMealCounts", map[string]int{
		"total_meal_count": 1, "manual_pick_count": 5,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for manual > total, got %d", resp.StatusCode)
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	if body.Error.Code != "wizard.bad_target" {
		t.Errorf("Expected stable error code, got %q", body.Error.Code)
	}
	if body.Error.Message == "" {
		t.Error("Expected the validation message surfaced verbatim")
	}
}

func TestUsersAreIsolated(t *testing.T) {
	ts, _ := newTestServer(t)
	alice := testToken(t, "alice")
	bob := testToken(t, "bob")

	resp := call(t, ts, alice, "wizard.start", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("wizard.start returned %d", resp.StatusCode)
	}
	resp = call(t, ts, bob, "wizard.getSession", map[string]string{})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected bob to have no session, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	var health metrics.SysHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health: %v", err)
	}
	if health.Goroutines == 0 {
		t.Error("Expected a goroutine count")
	}
}

func TestMealCompleteAndSwap(t *testing.T) {
	ts, deps := newTestServer(t)
	ctx := context.Background()
	token := testToken(t, "u1")

	b := &batch.Batch{ID: "b1", UserID: "u1", Name: "This week", StartDate: "2026-08-24", EndDate: "2026-08-30"}
	if err := deps.batches.Create(ctx, b); err != nil {
		t.Fatalf("Failed to seed batch: %v", err)
	}
	m := &meal.Meal{BatchID: b.ID, UserID: "u1", MealDate: "2026-08-25", MealType: meal.TypeDinner,
		Recipe: recipe.Snapshot{Title: "Pasta"}, Servings: 2}
	if err := deps.meals.Create(ctx, m); err != nil {
		t.Fatalf("Failed to seed meal: %v", err)
	}
	r := recipe.Recipe{ID: "r1", Title: "Pizza"}
	if err := deps.recipes.Save(ctx, r); err != nil {
		t.Fatalf("Failed to seed recipe: %v", err)
	}

	resp := call(t, ts, token, "batches.current", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("batches.current returned %d", resp.StatusCode)
	}
	var current struct {
		Batch *batch.Batch `json:"batch"`
		Meals []meal.Meal  `json:"meals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&current); err != nil {
		t.Fatalf("Failed to decode current batch: %v", err)
	}
	if current.Batch.ID != "b1" || len(current.Meals) != 1 {
		t.Fatalf("Unexpected current batch: %+v", current)
	}

	// Swap the meal; the replacement must be flagged audible.
	resp = call(t, ts, token, "meals.swap", map[string]interface{}{
		"meal_id": m.ID, "recipe_id": "r1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("meals.swap returned %d", resp.StatusCode)
	}
	var swapped meal.Meal
	if err := json.NewDecoder(resp.Body).Decode(&swapped); err != nil {
		t.Fatalf("Failed to decode swapped meal: %v", err)
	}
	if !swapped.IsAudible || swapped.Recipe.Title != "Pizza" {
		t.Errorf("Unexpected replacement meal: %+v", swapped)
	}
	if old, _ := deps.meals.Get(ctx, m.ID); old != nil {
		t.Error("Expected the original meal row gone after the swap")
	}

	rating := 4
	resp = call(t, ts, token, "meals.complete", map[string]interface{}{
		"meal_id": swapped.ID, "rating": rating,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("meals.complete returned %d", resp.StatusCode)
	}
	done, _ := deps.meals.Get(ctx, swapped.ID)
	if !done.Completed || done.Rating == nil || *done.Rating != 4 {
		t.Errorf("Expected a completed rated meal, got %+v", done)
	}

	// Another user cannot touch it.
	other := testToken(t, "intruder")
	resp = call(t, ts, other, "meals.complete", map[string]interface{}{"meal_id": swapped.ID})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for a foreign meal, got %d", resp.StatusCode)
	}
}
