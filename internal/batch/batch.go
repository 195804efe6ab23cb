package batch

import "time"

// Status is the lifecycle state of a batch.
type Status string

const (
	StatusActive    Status = "active"
	StatusArchived  Status = "archived"
	StatusAbandoned Status = "abandoned"
)

// Batch is a named date range of planned meals for one user. Its lifecycle is
// independent of the wizard that builds it.
type Batch struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
	Status    Status `json:"status"`

	// Stat snapshot, computed when the batch is archived.
	TotalMeals      int `json:"total_meals"`
	CompletedMeals  int `json:"completed_meals"`
	RolledOverMeals int `json:"rolled_over_meals"`
	DiscardedMeals  int `json:"discarded_meals"`

	CreatedAt  time.Time  `json:"created_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// ArchiveStats is the snapshot written when a batch is closed out.
type ArchiveStats struct {
	TotalMeals      int
	CompletedMeals  int
	RolledOverMeals int
	DiscardedMeals  int
}
