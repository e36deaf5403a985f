package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleEarner     = "earner"
	RoleAdvertiser = "advertiser"
	RoleAdmin      = "admin"
)

// AdminAccountID is the seeded platform administrator account.
var AdminAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

// Account is one party on the platform. All amounts are int64 kobo
// (minor currency units). Balance never goes below zero; every debit is
// guarded at the store boundary. Accounts are soft-retained for audit and
// never deleted.
type Account struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           string     `json:"role"`
	PasswordHash   string     `json:"-"`
	Balance        int64      `json:"balance_kobo"`
	LifetimeEarned int64      `json:"lifetime_earned_kobo"`
	Referrals      int        `json:"referrals"`
	ReferredBy     *uuid.UUID `json:"referred_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
