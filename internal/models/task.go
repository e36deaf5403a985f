package models

import (
	"time"

	"github.com/google/uuid"
)

// Task lifecycle statuses.
const (
	TaskStatusPendingApproval = "pending_approval"
	TaskStatusActive          = "active"
	TaskStatusRejected        = "rejected"
	TaskStatusExhausted       = "exhausted"
)

// Platforms the marketplace supports.
var Platforms = map[string]bool{
	"Instagram": true,
	"Twitter":   true,
	"YouTube":   true,
	"Facebook":  true,
	"TikTok":    true,
	"LinkedIn":  true,
}

// Task engagement types.
var TaskTypes = map[string]bool{
	"Follow":    true,
	"Like":      true,
	"Comment":   true,
	"Subscribe": true,
	"Share":     true,
	"Retweet":   true,
}

// Task is one advertiser campaign. TotalCost is fixed at creation
// (Quantity * UnitReward) and escrowed from the advertiser's balance there
// and then; Remaining counts down by exactly one per paid completion and
// never goes negative.
type Task struct {
	ID           uuid.UUID `json:"id"`
	AdvertiserID uuid.UUID `json:"advertiser_id"`
	Platform     string    `json:"platform"`
	Type         string    `json:"type"`
	URL          string    `json:"url"`
	ProofTitle   string    `json:"proof_title"`
	Guide        string    `json:"guide"`
	UnitReward   int64     `json:"unit_reward_kobo"`
	Quantity     int       `json:"quantity"`
	Remaining    int       `json:"remaining"`
	TotalCost    int64     `json:"total_cost_kobo"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Completed is a per-viewer flag set by task listings for earners.
	// It is not persisted.
	Completed bool `json:"completed,omitempty"`
}
