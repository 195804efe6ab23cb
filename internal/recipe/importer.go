package recipe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"household-planner/internal/llm"
	"household-planner/internal/shared"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// Importer fetches a recipe page, extracts structured data with an LLM, and
// saves the result to the library with an embedding for similarity search.
type Importer struct {
	textGen    llm.TextGenerator
	embedGen   llm.EmbeddingGenerator
	repo       *Repository
	vectorRepo *llm.VectorRepository
	httpClient *http.Client
}

// NewImporter creates a new Importer instance.
func NewImporter(textGen llm.TextGenerator, embedGen llm.EmbeddingGenerator, repo *Repository, vectorRepo *llm.VectorRepository) *Importer {
	return &Importer{
		textGen:    textGen,
		embedGen:   embedGen,
		repo:       repo,
		vectorRepo: vectorRepo,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// extractedRecipe is the shape the LLM is asked to return.
type extractedRecipe struct {
	Title        string       `json:"title"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	Tags         []string     `json:"tags"`
	PrepTime     string       `json:"prep_time"`
	Servings     int          `json:"servings"`
}

// ImportURL fetches the URL, extracts the recipe using the LLM, and saves it
// to the library.
func (im *Importer) ImportURL(ctx context.Context, url string) (*Recipe, shared.AgentMeta, error) {
	start := time.Now()

	content, err := im.fetchAndCleanHTML(url)
	if err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("failed to fetch content: %w", err)
	}

	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe details from the following page content.
Return the result strictly as a JSON object with this structure:
{
  "title": "Recipe Title",
  "ingredients": [{"name": "flour", "quantity": "2", "unit": "cups"}, ...],
  "instructions": ["Step 1 description", "Step 2 description", ...],
  "tags": ["tag1", "tag2"],
  "prep_time": "e.g. 30 mins",
  "servings": 4
}

Ensure the output is valid JSON. Do not include any other text in your response.

Page Content:
%s
`, content)

	llmResponse, err := im.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, shared.AgentMeta{}, fmt.Errorf("ai extraction failed: %w", err)
	}

	meta := shared.AgentMeta{
		AgentName: "RecipeImporter",
		Usage:     llmResponse.Usage,
		Latency:   time.Since(start),
	}

	var extracted extractedRecipe
	if err := json.Unmarshal([]byte(llmResponse.Content), &extracted); err != nil {
		return nil, meta, fmt.Errorf("failed to parse AI response: %w. Response: %s", err, llmResponse.Content)
	}

	rec := Recipe{
		ID:           uuid.NewString(),
		Title:        extracted.Title,
		Ingredients:  extracted.Ingredients,
		Instructions: extracted.Instructions,
		Tags:         extracted.Tags,
		PrepTime:     extracted.PrepTime,
		Servings:     extracted.Servings,
		SourceURL:    url,
		UpdatedAt:    time.Now().UTC(),
	}

	embedding, err := im.embedGen.GenerateEmbedding(ctx, rec.ToEmbeddingText())
	if err != nil {
		return nil, meta, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := im.repo.Save(ctx, rec); err != nil {
		return nil, meta, fmt.Errorf("failed to save recipe: %w", err)
	}
	if err := im.vectorRepo.Save(ctx, rec.ID, embedding); err != nil {
		return nil, meta, fmt.Errorf("failed to save embedding: %w", err)
	}

	return &rec, meta, nil
}

func (im *Importer) fetchAndCleanHTML(url string) (string, error) {
	resp, err := im.httpClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save LLM tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}
