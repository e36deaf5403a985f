package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/models"
)

// CompletionRepo implements ledger.CompletionStore. The completions table
// carries UNIQUE (earner_id, task_id); Record maps that constraint to
// ErrAlreadyCompleted so the check-then-insert is race-free.
type CompletionRepo struct {
	q querier
}

func (r *CompletionRepo) Exists(ctx context.Context, earnerID, taskID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM completions WHERE earner_id = $1 AND task_id = $2)
	`, earnerID, taskID).Scan(&exists)
	return exists, err
}

func (r *CompletionRepo) Record(ctx context.Context, c *models.Completion) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO completions (id, earner_id, task_id)
		VALUES ($1, $2, $3)
		RETURNING completed_at
	`, c.ID, c.EarnerID, c.TaskID).Scan(&c.CompletedAt)
	if isUniqueViolation(err) {
		return ledger.ErrAlreadyCompleted
	}
	return err
}

func (r *CompletionRepo) CountByEarner(ctx context.Context, earnerID uuid.UUID) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM completions WHERE earner_id = $1`, earnerID).Scan(&n)
	return n, err
}

func (r *CompletionRepo) CountByTasks(ctx context.Context, taskIDs []uuid.UUID) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM completions WHERE task_id = ANY($1)`, taskIDs).Scan(&n)
	return n, err
}

func (r *CompletionRepo) TaskIDsByEarner(ctx context.Context, earnerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q.Query(ctx, `SELECT task_id FROM completions WHERE earner_id = $1`, earnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
