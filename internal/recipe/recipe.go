package recipe

import (
	"fmt"
	"strings"
	"time"
)

// Ingredient is a single structured ingredient line.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
}

// Recipe is a library recipe owned by a household.
type Recipe struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	Tags         []string     `json:"tags,omitempty"`
	PrepTime     string       `json:"prep_time,omitempty"`
	Servings     int          `json:"servings,omitempty"`
	SourceURL    string       `json:"source_url,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Snapshot is the denormalized copy of a recipe stored on a planned meal.
// Meals keep their own copy so later edits to the library never rewrite
// history.
type Snapshot struct {
	RecipeID     string       `json:"recipe_id"`
	Title        string       `json:"title"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	PrepTime     string       `json:"prep_time,omitempty"`
}

// Snapshot builds the denormalized meal snapshot for this recipe.
func (r Recipe) Snapshot() Snapshot {
	return Snapshot{
		RecipeID:     r.ID,
		Title:        r.Title,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
		PrepTime:     r.PrepTime,
	}
}

// ToEmbeddingText builds a semantic string representation of the recipe for
// the embedding model.
func (r Recipe) ToEmbeddingText() string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	return fmt.Sprintf("Title: %s\nTags: %s\nIngredients: %s\nPrep Time: %s",
		r.Title, strings.Join(r.Tags, ", "), strings.Join(names, ", "), r.PrepTime)
}
