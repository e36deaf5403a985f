// Package repository is the Postgres-backed ledger.Store. Repos run against
// either the pool or an open transaction through the shared querier
// interface; RunInTx rebinds every repo to the transaction so the compound
// ledger operations commit or roll back as one unit. Balance and quota
// guards are single conditional UPDATEs, so concurrent units serialize on
// the row locks of exactly the entities they touch.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediaearn/backend/internal/ledger"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements ledger.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

// New returns a Postgres-backed ledger store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) Accounts() ledger.AccountStore       { return &AccountRepo{q: s.q} }
func (s *Store) Tasks() ledger.TaskStore             { return &TaskRepo{q: s.q} }
func (s *Store) Completions() ledger.CompletionStore { return &CompletionRepo{q: s.q} }
func (s *Store) Transactions() ledger.TransactionLog { return &TransactionRepo{q: s.q} }

// RunInTx executes fn inside a database transaction. A nested call reuses
// the open transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, st ledger.Store) error) error {
	if _, ok := s.q.(pgx.Tx); ok {
		return fn(ctx, s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(ctx, &Store{pool: s.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
