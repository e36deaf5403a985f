package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/models"
)

const txColumns = `id, account_id, kind, amount, status, description, created_at`

// TransactionRepo implements ledger.TransactionLog. The table is
// append-only; the only UPDATE is the guarded withdrawal status change.
type TransactionRepo struct {
	q querier
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Amount, &t.Status, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) Append(ctx context.Context, t *models.Transaction) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO transactions (id, account_id, kind, amount, status, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.AccountID, t.Kind, t.Amount, t.Status, t.Description).Scan(&t.CreatedAt)
}

func (r *TransactionRepo) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	t, err := scanTransaction(r.q.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrTransactionNotFound
	}
	return t, err
}

func (r *TransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE transactions SET status = $3 WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ledger.ErrTransactionNotFound
		}
		return ledger.ErrInvalidTransition
	}
	return nil
}

func (r *TransactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+txColumns+` FROM transactions WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *TransactionRepo) ListAll(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := r.q.Query(ctx, `SELECT `+txColumns+` FROM transactions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	var list []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
