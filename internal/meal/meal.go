package meal

import (
	"time"

	"household-planner/internal/recipe"
)

// Type is the slot a meal occupies in the day.
type Type string

const (
	TypeBreakfast Type = "breakfast"
	TypeLunch     Type = "lunch"
	TypeDinner    Type = "dinner"
)

// Meal is a concrete planned meal belonging to a batch. It is created by the
// wizard (manual pick commit, suggestion acceptance, or rollover
// carry-forward) or by a post-wizard swap.
type Meal struct {
	ID      string `json:"id"`
	BatchID string `json:"batch_id"`
	UserID  string `json:"user_id"`

	// Provenance when the meal came from an accepted AI suggestion.
	PoolID          *string `json:"pool_id,omitempty"`
	SuggestionIndex *int    `json:"suggestion_index,omitempty"`

	MealDate string          `json:"meal_date"` // YYYY-MM-DD
	MealType Type            `json:"meal_type"`
	Recipe   recipe.Snapshot `json:"recipe"`
	Servings int             `json:"servings"`

	IsManualPick          bool `json:"is_manual_pick"`
	IsRollover            bool `json:"is_rollover"`
	IsAudible             bool `json:"is_audible"`
	ShoppingListGenerated bool `json:"shopping_list_generated"`
	Completed             bool `json:"completed"`
	Rating                *int `json:"rating,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
