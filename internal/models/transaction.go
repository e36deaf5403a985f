package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction kinds. Amounts are always stored positive; the kind implies
// the direction relative to the account.
const (
	TxKindEarning       = "earning"
	TxKindWithdrawal    = "withdrawal"
	TxKindReferralBonus = "referral_bonus"
	TxKindDeposit       = "deposit"
	TxKindAdSpend       = "ad_spend"
	TxKindRefund        = "refund"
)

// Transaction statuses. Only withdrawal entries ever leave pending.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusRejected  = "rejected"
)

// Transaction is one append-only log entry for a balance-affecting event.
// Entries are immutable after append except for withdrawal status
// resolution (pending -> completed | rejected).
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	Kind        string    `json:"kind"`
	Amount      int64     `json:"amount_kobo"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SignedAmount returns the delta this entry represents for its account.
// Withdrawals and ad spend debit; everything else credits. A pending
// withdrawal counts as a debit because the balance is held at request
// time; a rejected one counts as zero because the hold was returned.
func (t *Transaction) SignedAmount() int64 {
	switch t.Kind {
	case TxKindWithdrawal:
		if t.Status == TxStatusRejected {
			return 0
		}
		return -t.Amount
	case TxKindAdSpend:
		return -t.Amount
	default:
		return t.Amount
	}
}
