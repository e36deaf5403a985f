package models

import (
	"time"

	"github.com/google/uuid"
)

// Completion records a single verified task execution by an earner.
// The (EarnerID, TaskID) pair is unique; its existence is the sole gate
// against paying the same earner twice for the same task.
type Completion struct {
	ID          uuid.UUID `json:"id"`
	EarnerID    uuid.UUID `json:"earner_id"`
	TaskID      uuid.UUID `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
}
