package suggestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"household-planner/internal/llm"
	"household-planner/internal/meal"
	"household-planner/internal/recipe"
	"household-planner/internal/shared"
)

// Constraints describes what the generator is asked for.
type Constraints struct {
	UserID    string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	MealTypes []meal.Type
	Count     int
	// Exclude lists recipe IDs already planned so the generator avoids
	// proposing them again.
	Exclude []string
}

// GeneratedSet is the generator's output: an ordered candidate list and the
// model's reasoning.
type GeneratedSet struct {
	Candidates []Candidate
	Reasoning  string
}

// Generator produces candidate meals for a date range. Implementations may
// take seconds to minutes; callers run it under a bounded context off the
// request path.
type Generator interface {
	Generate(ctx context.Context, c Constraints) (GeneratedSet, shared.AgentMeta, error)
}

// llmGenerator grounds the LLM with the most relevant library recipes,
// retrieved by embedding similarity, and asks for a JSON candidate list.
type llmGenerator struct {
	textGen    llm.TextGenerator
	embedGen   llm.EmbeddingGenerator
	vectorRepo *llm.VectorRepository
	recipeRepo *recipe.Repository
}

// NewLLMGenerator creates a Generator backed by the configured LLM provider.
func NewLLMGenerator(textGen llm.TextGenerator, embedGen llm.EmbeddingGenerator, vectorRepo *llm.VectorRepository, recipeRepo *recipe.Repository) Generator {
	return &llmGenerator{
		textGen:    textGen,
		embedGen:   embedGen,
		vectorRepo: vectorRepo,
		recipeRepo: recipeRepo,
	}
}

// generatedCandidate is the shape the LLM is asked to return per suggestion.
type generatedCandidate struct {
	MealDate     string              `json:"meal_date"`
	MealType     string              `json:"meal_type"`
	RecipeID     string              `json:"recipe_id,omitempty"`
	Title        string              `json:"title"`
	Ingredients  []recipe.Ingredient `json:"ingredients"`
	Instructions []string            `json:"instructions"`
	PrepTime     string              `json:"prep_time,omitempty"`
	Servings     int                 `json:"servings,omitempty"`
	Notes        string              `json:"notes,omitempty"`
}

func (g *llmGenerator) Generate(ctx context.Context, c Constraints) (GeneratedSet, shared.AgentMeta, error) {
	start := time.Now()

	mealTypes := c.MealTypes
	if len(mealTypes) == 0 {
		mealTypes = []meal.Type{meal.TypeDinner}
	}
	typeNames := make([]string, len(mealTypes))
	for i, t := range mealTypes {
		typeNames[i] = string(t)
	}

	// Retrieve relevant library recipes as grounding context. Without an
	// embedding provider the generator still works, just ungrounded.
	var libraryRecipes []recipe.Recipe
	if g.embedGen != nil {
		query := fmt.Sprintf("Meal ideas (%s) for %s to %s", strings.Join(typeNames, ", "), c.StartDate, c.EndDate)
		queryEmbedding, err := g.embedGen.GenerateEmbedding(ctx, query)
		if err != nil {
			return GeneratedSet{}, shared.AgentMeta{}, fmt.Errorf("failed to generate embedding for request: %w", err)
		}

		similarIDs, err := g.vectorRepo.FindSimilar(ctx, queryEmbedding, 15, c.Exclude)
		if err != nil {
			return GeneratedSet{}, shared.AgentMeta{}, fmt.Errorf("failed to retrieve similar recipes: %w", err)
		}
		libraryRecipes, err = g.recipeRepo.GetByIDs(ctx, similarIDs)
		if err != nil {
			return GeneratedSet{}, shared.AgentMeta{}, fmt.Errorf("failed to load library recipes: %w", err)
		}
	}

	prompt := buildGeneratorPrompt(c, typeNames, libraryRecipes)

	resp, err := g.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return GeneratedSet{}, shared.AgentMeta{}, fmt.Errorf("failed to generate suggestions from LLM: %w", err)
	}

	meta := shared.AgentMeta{
		AgentName: "SuggestionGenerator",
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}

	var parsed struct {
		Reasoning   string               `json:"reasoning"`
		Suggestions []generatedCandidate `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return GeneratedSet{}, meta, fmt.Errorf("failed to parse suggestions JSON: %w. Response: %s", err, resp.Content)
	}
	if len(parsed.Suggestions) == 0 {
		return GeneratedSet{}, meta, fmt.Errorf("generator returned no suggestions")
	}

	library := make(map[string]recipe.Recipe, len(libraryRecipes))
	for _, r := range libraryRecipes {
		library[r.ID] = r
	}

	candidates := make([]Candidate, 0, len(parsed.Suggestions))
	for _, gc := range parsed.Suggestions {
		var snap recipe.Snapshot
		if lib, ok := library[gc.RecipeID]; ok {
			snap = lib.Snapshot()
		} else {
			snap = recipe.Snapshot{
				Title:        gc.Title,
				Ingredients:  gc.Ingredients,
				Instructions: gc.Instructions,
				PrepTime:     gc.PrepTime,
			}
		}

		servings := gc.Servings
		if servings <= 0 {
			servings = 2
		}

		candidates = append(candidates, Candidate{
			MealDate: gc.MealDate,
			MealType: meal.Type(gc.MealType),
			Recipe:   snap,
			Servings: servings,
			Notes:    gc.Notes,
		})
	}

	return GeneratedSet{Candidates: candidates, Reasoning: parsed.Reasoning}, meta, nil
}

func buildGeneratorPrompt(c Constraints, typeNames []string, library []recipe.Recipe) string {
	var contextBuilder strings.Builder
	for i, r := range library {
		names := make([]string, 0, len(r.Ingredients))
		for _, ing := range r.Ingredients {
			names = append(names, ing.Name)
		}
		fmt.Fprintf(&contextBuilder, "Recipe %d:\nID: %s\nTitle: %s\nTags: %v\nIngredients: %v\nPrep Time: %s\n\n",
			i+1, r.ID, r.Title, r.Tags, names, r.PrepTime)
	}

	return fmt.Sprintf(`
You are an expert household meal planner. Propose %d meal candidates for the
dates %s through %s, covering these meal types: %s.

Prefer recipes from the household library below when they fit; reference them
by their ID. You may also invent new recipes when the library falls short;
leave recipe_id empty for those and provide full ingredients and instructions.

Household Library:
%s

Return the result strictly as a JSON object with this structure:
{
  "reasoning": "One short paragraph on how the set was chosen",
  "suggestions": [
    {
      "meal_date": "YYYY-MM-DD",
      "meal_type": "dinner",
      "recipe_id": "library id or empty",
      "title": "Recipe Name",
      "ingredients": [{"name": "flour", "quantity": "2", "unit": "cups"}],
      "instructions": ["Step 1", "Step 2"],
      "prep_time": "30 mins",
      "servings": 2,
      "notes": "Why this fits"
    }
  ]
}

Spread the meals across the date range. Do not include any other text in your
response.
`, c.Count, c.StartDate, c.EndDate, strings.Join(typeNames, ", "), contextBuilder.String())
}
