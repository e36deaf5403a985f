package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/models"
)

const taskColumns = `id, advertiser_id, platform, type, url, proof_title, guide, unit_reward, quantity, remaining, total_cost, status, created_at, updated_at`

// TaskRepo implements ledger.TaskStore.
type TaskRepo struct {
	q querier
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.AdvertiserID, &t.Platform, &t.Type, &t.URL, &t.ProofTitle, &t.Guide, &t.UnitReward, &t.Quantity, &t.Remaining, &t.TotalCost, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO tasks (id, advertiser_id, platform, type, url, proof_title, guide, unit_reward, quantity, remaining, total_cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, t.ID, t.AdvertiserID, t.Platform, t.Type, t.URL, t.ProofTitle, t.Guide, t.UnitReward, t.Quantity, t.Remaining, t.TotalCost, t.Status).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, err := scanTask(r.q.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrTaskNotFound
	}
	return t, err
}

// DecrementRemaining takes one unit off the quota in a single conditional
// UPDATE; when no row matches, a follow-up read explains why.
func (r *TaskRepo) DecrementRemaining(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t, err := scanTask(r.q.QueryRow(ctx, `
		UPDATE tasks SET remaining = remaining - 1, updated_at = now()
		WHERE id = $1 AND status = $2 AND remaining > 0
		RETURNING `+taskColumns+`
	`, id, models.TaskStatusActive))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var status string
	var remaining int
	err = r.q.QueryRow(ctx, `SELECT status, remaining FROM tasks WHERE id = $1`, id).Scan(&status, &remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if status == models.TaskStatusExhausted || remaining == 0 {
		return nil, ledger.ErrTaskExhausted
	}
	return nil, ledger.ErrTaskNotActive
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE tasks SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ledger.ErrTaskNotFound
		}
		return ledger.ErrInvalidTransition
	}
	return nil
}

func (r *TaskRepo) ListByStatus(ctx context.Context, status string) ([]*models.Task, error) {
	rows, err := r.q.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY created_at DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *TaskRepo) ListByAdvertiser(ctx context.Context, advertiserID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.q.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE advertiser_id = $1 ORDER BY created_at DESC`, advertiserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]*models.Task, error) {
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
