package wizard

import "time"

// Step numbers the wizard's top-level phases. Step 2 has three sub-steps
// (counts, manual picks, AI suggestions) rendered by the client from which
// session fields are still null.
type Step int

const (
	StepDispose  Step = 1
	StepFill     Step = 2
	StepShopping Step = 3
	StepDone     Step = 4
)

// Disposition is the user's decision for one leftover meal of the previous
// batch.
type Disposition string

const (
	DispositionCompleted Disposition = "completed"
	DispositionRollover  Disposition = "rollover"
	DispositionDiscard   Disposition = "discard"
)

// MealDisposition pairs a previous-batch meal with its decision.
type MealDisposition struct {
	MealID      string      `json:"meal_id"`
	Disposition Disposition `json:"disposition"`
}

// ManualPick is a recipe the user selected by hand in step 2. It is session
// bookkeeping only; the meal row materializes when the picks are committed.
type ManualPick struct {
	RecipeID   string    `json:"recipe_id"`
	RecipeName string    `json:"recipe_name"`
	Servings   int       `json:"servings"`
	AddedAt    time.Time `json:"added_at"`
}

// MealSource tags how a session meal came to exist.
type MealSource string

const (
	SourceManual MealSource = "manual"
	SourceAI     MealSource = "ai"
)

// AcceptedMealRef is one entry of the session's ordered accepted-meal list.
// The explicit Source tag is what backward navigation filters on when it
// deletes only the AI-sourced meals; the list additionally keeps all manual
// entries before all AI entries.
type AcceptedMealRef struct {
	MealID string     `json:"meal_id"`
	Source MealSource `json:"source"`
}

// Session is one user's in-progress planning wizard. At most one session
// exists per user; finishing or abandoning deletes the row while the batches
// and meals it produced persist.
//
// The nullable count fields double as sub-step markers: TotalMealCount nil
// means step 2a has not completed, TargetMealCount nil means 2b has not.
type Session struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	CurrentStep Step   `json:"current_step"`

	MealDispositions []MealDisposition `json:"meal_dispositions"`
	RolloverCount    int               `json:"rollover_count"`

	TotalMealCount  *int `json:"total_meal_count"`
	ManualPickCount *int `json:"manual_pick_count"`
	TargetMealCount *int `json:"target_meal_count"`

	ManualPicks   []ManualPick      `json:"manual_picks"`
	AcceptedMeals []AcceptedMealRef `json:"accepted_meals"`
	CurrentPoolID *string           `json:"current_pool_id"`

	SelectedIngredients []string `json:"selected_ingredients"`
	TargetListID        *string  `json:"target_list_id"`

	NewBatchID      *string `json:"new_batch_id"`
	PreviousBatchID *string `json:"previous_batch_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ManualRefs returns the manual-pick entries of the accepted-meal list.
func (s *Session) ManualRefs() []AcceptedMealRef {
	var refs []AcceptedMealRef
	for _, ref := range s.AcceptedMeals {
		if ref.Source == SourceManual {
			refs = append(refs, ref)
		}
	}
	return refs
}

// AIRefs returns the AI-sourced entries of the accepted-meal list.
func (s *Session) AIRefs() []AcceptedMealRef {
	var refs []AcceptedMealRef
	for _, ref := range s.AcceptedMeals {
		if ref.Source == SourceAI {
			refs = append(refs, ref)
		}
	}
	return refs
}

// AllMealIDs returns every meal id the session's accepted-meal list refers
// to, in order.
func (s *Session) AllMealIDs() []string {
	ids := make([]string, len(s.AcceptedMeals))
	for i, ref := range s.AcceptedMeals {
		ids[i] = ref.MealID
	}
	return ids
}
