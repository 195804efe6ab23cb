package recipe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"household-planner/internal/database"
	"household-planner/internal/llm"
)

type fakeTextGen struct {
	response string
	prompt   string
}

func (g *fakeTextGen) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	g.prompt = prompt
	return llm.ContentResponse{Content: g.response}, nil
}

type fakeEmbedGen struct{}

func (g *fakeEmbedGen) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const recipePage = `<html><head><title>Best Tacos</title>
<script>trackEverything()</script></head>
<body><nav>Home</nav>
<h1>Best Tacos</h1><p>Brown the beef, fill the shells.</p>
<footer>Newsletter</footer></body></html>`

func TestImportURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recipePage))
	}))
	defer srv.Close()

	db := newTestDB(t)
	repo := NewRepository(db.SQL)
	vectorRepo := llm.NewVectorRepository(db.SQL)

	textGen := &fakeTextGen{response: `{
		"title": "Best Tacos",
		"ingredients": [{"name": "ground beef", "quantity": "1", "unit": "lb"}],
		"instructions": ["Brown the beef", "Fill the shells"],
		"tags": ["mexican"],
		"prep_time": "20 mins",
		"servings": 4
	}`}

	importer := NewImporter(textGen, &fakeEmbedGen{}, repo, vectorRepo)

	rec, meta, err := importer.ImportURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ImportURL failed: %v", err)
	}
	if rec.Title != "Best Tacos" || len(rec.Ingredients) != 1 || rec.Servings != 4 {
		t.Errorf("Unexpected recipe: %+v", rec)
	}
	if rec.SourceURL != srv.URL {
		t.Errorf("Expected source URL recorded, got %q", rec.SourceURL)
	}
	if meta.AgentName != "RecipeImporter" {
		t.Errorf("Unexpected agent name %q", meta.AgentName)
	}

	// Script, nav and footer content must not reach the LLM.
	for _, junk := range []string{"trackEverything", "Newsletter"} {
		if strings.Contains(textGen.prompt, junk) {
			t.Errorf("Prompt contains stripped content %q", junk)
		}
	}
	if !strings.Contains(textGen.prompt, "Brown the beef") {
		t.Error("Prompt is missing the page body")
	}

	saved, err := repo.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if saved == nil || saved.Title != "Best Tacos" {
		t.Errorf("Recipe was not persisted: %+v", saved)
	}

	embedding, err := vectorRepo.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Get embedding failed: %v", err)
	}
	if len(embedding) != 3 {
		t.Errorf("Expected the embedding persisted, got %v", embedding)
	}
}

func TestImportURLRejectsBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recipePage))
	}))
	defer srv.Close()

	db := newTestDB(t)
	importer := NewImporter(&fakeTextGen{response: "sorry, no recipe here"}, &fakeEmbedGen{},
		NewRepository(db.SQL), llm.NewVectorRepository(db.SQL))

	if _, _, err := importer.ImportURL(context.Background(), srv.URL); err == nil {
		t.Fatal("Expected an error for a non-JSON model response")
	}
}
