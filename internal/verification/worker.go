// Package verification runs the simulated completion check. Submitting a
// completion enqueues a job scheduled a fixed delay in the future; the
// worker then settles the payout through the ledger. The interactive
// "visit the link" step happens before the job exists, so no transaction
// spans user interaction.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/mediaearn/backend/internal/ledger"
)

// DefaultDelay matches the original platform's simulated verification wait.
const DefaultDelay = 2 * time.Second

type VerifyCompletionArgs struct {
	TaskID   uuid.UUID `json:"task_id"`
	EarnerID uuid.UUID `json:"earner_id"`
}

func (VerifyCompletionArgs) Kind() string { return "verify_completion" }

// Settler is the slice of the ledger the worker needs.
type Settler interface {
	CompleteTask(ctx context.Context, earnerID, taskID uuid.UUID) (int64, error)
}

type VerifyCompletionWorker struct {
	river.WorkerDefaults[VerifyCompletionArgs]
	ledger Settler
	log    *slog.Logger
}

func NewVerifyCompletionWorker(l Settler, log *slog.Logger) *VerifyCompletionWorker {
	if log == nil {
		log = slog.Default()
	}
	return &VerifyCompletionWorker{ledger: l, log: log}
}

// Work settles one verified completion. Ledger rejections are final
// business outcomes, not infrastructure faults, so they are logged and the
// job is discarded instead of retried.
func (w *VerifyCompletionWorker) Work(ctx context.Context, job *river.Job[VerifyCompletionArgs]) error {
	args := job.Args
	balance, err := w.ledger.CompleteTask(ctx, args.EarnerID, args.TaskID)
	if err != nil {
		if isBusinessRejection(err) {
			w.log.Info("completion rejected",
				"task_id", args.TaskID, "earner_id", args.EarnerID, "reason", err)
			return nil
		}
		return fmt.Errorf("settle completion: %w", err)
	}
	w.log.Info("completion paid",
		"task_id", args.TaskID, "earner_id", args.EarnerID, "new_balance", balance)
	return nil
}

func isBusinessRejection(err error) bool {
	return errors.Is(err, ledger.ErrAlreadyCompleted) ||
		errors.Is(err, ledger.ErrTaskExhausted) ||
		errors.Is(err, ledger.ErrTaskNotActive) ||
		errors.Is(err, ledger.ErrTaskNotFound) ||
		errors.Is(err, ledger.ErrAccountNotFound)
}
