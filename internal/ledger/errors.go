package ledger

import "errors"

// Every failure the ledger can return to a caller. Callers match with
// errors.Is; none of these are wrapped away inside the service.
var (
	// ErrInsufficientFunds is returned when a debit would take a balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned when the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTaskNotFound is returned when the referenced task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotActive is returned when a completion is attempted against a
	// task that is not in the active status.
	ErrTaskNotActive = errors.New("task is not active")

	// ErrTaskExhausted is returned when a completion is attempted against a
	// task whose remaining quota is zero.
	ErrTaskExhausted = errors.New("task quota exhausted")

	// ErrAlreadyCompleted is returned when an earner attempts a second payout
	// for the same task.
	ErrAlreadyCompleted = errors.New("task already completed by this earner")

	// ErrInvalidTransition is returned for an illegal task or transaction
	// status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTransactionNotFound is returned when the referenced log entry does
	// not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidQuantity is returned when a task is funded below the policy
	// minimum quantity.
	ErrInvalidQuantity = errors.New("quantity below policy minimum")

	// ErrUnsupportedPlatform is returned when a task targets a platform the
	// marketplace does not support.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrUnsupportedType is returned for an unknown engagement type.
	ErrUnsupportedType = errors.New("unsupported task type")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrBelowMinimum is returned for withdrawal requests under the policy
	// minimum.
	ErrBelowMinimum = errors.New("amount below withdrawal minimum")
)
