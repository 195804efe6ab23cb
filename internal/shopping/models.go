package shopping

import "time"

// Item is a single shopping list entry.
type Item struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Checked  bool   `json:"checked"`
}

// List is a user's shopping list. Items are stored as an ordered JSON list
// with the owning row.
type List struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListAction selects how step-3 output lands on a list.
type ListAction string

const (
	ActionNew     ListAction = "new"
	ActionAppend  ListAction = "append"
	ActionReplace ListAction = "replace"
)

// AggregatedIngredient is one line of the step-3 preview: an ingredient name
// combined across meals, with the quantities it appeared as and the meals
// that need it.
type AggregatedIngredient struct {
	Name       string   `json:"name"`
	Unit       string   `json:"unit,omitempty"`
	Quantities []string `json:"quantities,omitempty"`
	MealIDs    []string `json:"meal_ids"`
}
