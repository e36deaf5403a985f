package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/models"
)

const accountColumns = `id, email, name, role, password_hash, balance, lifetime_earned, referrals, referred_by, created_at, updated_at`

// AccountRepo implements ledger.AccountStore.
type AccountRepo struct {
	q querier
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.Balance, &a.LifetimeEarned, &a.Referrals, &a.ReferredBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO accounts (id, email, name, role, password_hash, balance, lifetime_earned, referrals, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, a.ID, a.Email, a.Name, a.Role, a.PasswordHash, a.Balance, a.LifetimeEarned, a.Referrals, a.ReferredBy).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepo) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	return a, err
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, err := scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledger.ErrAccountNotFound
	}
	return a, err
}

// Debit subtracts amount only when the balance covers it; the conditional
// UPDATE is the non-negative guard and takes the row lock.
func (r *AccountRepo) Debit(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	var newBalance int64
	err := r.q.QueryRow(ctx, `
		UPDATE accounts SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, ledger.ErrAccountNotFound
		}
		return 0, ledger.ErrInsufficientFunds
	}
	return newBalance, err
}

func (r *AccountRepo) Credit(ctx context.Context, id uuid.UUID, amount int64) (int64, error) {
	var newBalance int64
	err := r.q.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ledger.ErrAccountNotFound
	}
	return newBalance, err
}

func (r *AccountRepo) AddLifetimeEarned(ctx context.Context, id uuid.UUID, amount int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE accounts SET lifetime_earned = lifetime_earned + $1, updated_at = now()
		WHERE id = $2
	`, amount, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepo) IncrementReferrals(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE accounts SET referrals = referrals + 1, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepo) TopEarners(ctx context.Context, limit int) ([]*models.Account, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE role = $1 ORDER BY lifetime_earned DESC LIMIT $2
	`, models.RoleEarner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *AccountRepo) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]*models.Account, error) {
	var list []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
