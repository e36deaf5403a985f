package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/mediaearn/backend/internal/models"
)

// AccountStore holds each party's spendable balance and lifetime-earned
// counter. Debit is the only operation that can fail on funds; the guard is
// enforced atomically by the implementation, not by a read-then-write in the
// caller.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	Get(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	// Debit subtracts amount from the balance and returns the new balance.
	// Fails with ErrInsufficientFunds if the result would be negative.
	Debit(ctx context.Context, id uuid.UUID, amount int64) (int64, error)
	// Credit adds amount to the balance and returns the new balance.
	Credit(ctx context.Context, id uuid.UUID, amount int64) (int64, error)
	// AddLifetimeEarned bumps the monotonic earned counter. amount >= 0.
	AddLifetimeEarned(ctx context.Context, id uuid.UUID, amount int64) error
	IncrementReferrals(ctx context.Context, id uuid.UUID) error
	// TopEarners returns earner accounts ordered by lifetime earnings,
	// highest first.
	TopEarners(ctx context.Context, limit int) ([]*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
}

// TaskStore holds each task's remaining quota, per-unit reward, and
// lifecycle status.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	// DecrementRemaining takes one unit off the task's remaining quota and
	// returns the task as of after the decrement. Fails with ErrTaskNotFound,
	// ErrTaskNotActive (status != active), or ErrTaskExhausted (remaining = 0).
	DecrementRemaining(ctx context.Context, id uuid.UUID) (*models.Task, error)
	// UpdateStatus transitions the task from -> to. Fails with
	// ErrInvalidTransition if the task is not currently in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	ListByStatus(ctx context.Context, status string) ([]*models.Task, error)
	ListByAdvertiser(ctx context.Context, advertiserID uuid.UUID) ([]*models.Task, error)
}

// CompletionStore records which (earner, task) pairs have been paid.
// Record is check-and-insert atomic with respect to concurrent attempts for
// the same pair.
type CompletionStore interface {
	Exists(ctx context.Context, earnerID, taskID uuid.UUID) (bool, error)
	// Record inserts the completion. Fails with ErrAlreadyCompleted if a
	// record already exists for the pair.
	Record(ctx context.Context, c *models.Completion) error
	CountByEarner(ctx context.Context, earnerID uuid.UUID) (int, error)
	CountByTasks(ctx context.Context, taskIDs []uuid.UUID) (int, error)
	TaskIDsByEarner(ctx context.Context, earnerID uuid.UUID) ([]uuid.UUID, error)
}

// TransactionLog is the append-only record of every balance-affecting event.
type TransactionLog interface {
	Append(ctx context.Context, t *models.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	// UpdateStatus moves the entry from -> to. Fails with
	// ErrInvalidTransition if the entry is not currently in from. The
	// withdrawal-only rule is enforced by the service.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	// ListByAccount returns the account's entries, most recent first.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error)
	// ListAll returns every entry, most recent first.
	ListAll(ctx context.Context) ([]*models.Transaction, error)
}

// Store bundles the four stores behind a single unit-of-work boundary.
// Mutations made inside RunInTx become visible to other callers only when
// the callback returns nil; any error rolls the whole unit back.
type Store interface {
	Accounts() AccountStore
	Tasks() TaskStore
	Completions() CompletionStore
	Transactions() TransactionLog

	// RunInTx executes fn against a transactional view of the store with
	// isolation equivalent to serializable on the entities fn touches.
	RunInTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
