// Package memstore is the in-memory ledger.Store implementation. It backs
// unit tests and database-free development. RunInTx runs the callback
// against a deep copy of the state under an exclusive lock and swaps the
// copy in only on success, which gives both rollback-on-error and
// serializable isolation (one unit of work at a time).
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/models"
)

type completionKey struct {
	earnerID uuid.UUID
	taskID   uuid.UUID
}

// state is the whole ledger. Transaction order is preserved in txOrder so
// listings can return entries most recent first without depending on
// timestamps with equal values.
type state struct {
	accounts    map[uuid.UUID]*models.Account
	tasks       map[uuid.UUID]*models.Task
	completions map[completionKey]*models.Completion
	txs         map[uuid.UUID]*models.Transaction
	txOrder     []uuid.UUID
}

func newState() *state {
	return &state{
		accounts:    make(map[uuid.UUID]*models.Account),
		tasks:       make(map[uuid.UUID]*models.Task),
		completions: make(map[completionKey]*models.Completion),
		txs:         make(map[uuid.UUID]*models.Transaction),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, a := range s.accounts {
		cp := *a
		c.accounts[id] = &cp
	}
	for id, t := range s.tasks {
		cp := *t
		c.tasks[id] = &cp
	}
	for k, cm := range s.completions {
		cp := *cm
		c.completions[k] = &cp
	}
	for id, tx := range s.txs {
		cp := *tx
		c.txs[id] = &cp
	}
	c.txOrder = append([]uuid.UUID(nil), s.txOrder...)
	return c
}

// Store is the in-memory ledger.Store.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{st: newState()}
}

var _ ledger.Store = (*Store)(nil)

func (m *Store) Accounts() ledger.AccountStore       { return &accounts{m: m} }
func (m *Store) Tasks() ledger.TaskStore             { return &tasks{m: m} }
func (m *Store) Completions() ledger.CompletionStore { return &completions{m: m} }
func (m *Store) Transactions() ledger.TransactionLog { return &txlog{m: m} }

// RunInTx clones the state, runs fn against the clone, and publishes the
// clone on success. Nested units reuse the caller's clone.
func (m *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, s ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.st.clone()
	if err := fn(ctx, &txStore{st: work}); err != nil {
		return err
	}
	m.st = work
	return nil
}

// txStore operates directly on the working copy; the parent's lock is
// already held for the duration of the unit.
type txStore struct {
	st *state
}

var _ ledger.Store = (*txStore)(nil)

func (t *txStore) Accounts() ledger.AccountStore       { return &accounts{st: t.st} }
func (t *txStore) Tasks() ledger.TaskStore             { return &tasks{st: t.st} }
func (t *txStore) Completions() ledger.CompletionStore { return &completions{st: t.st} }
func (t *txStore) Transactions() ledger.TransactionLog { return &txlog{st: t.st} }

func (t *txStore) RunInTx(ctx context.Context, fn func(ctx context.Context, s ledger.Store) error) error {
	return fn(ctx, t)
}

// Each substore reads either the transactional working copy (st set, lock
// already held by RunInTx) or the live state under the parent's lock. view
// and mutable return the state plus a release func the caller must defer.

type accounts struct {
	m  *Store
	st *state
}

func (a *accounts) view() (*state, func()) {
	if a.st != nil {
		return a.st, func() {}
	}
	a.m.mu.RLock()
	return a.m.st, a.m.mu.RUnlock
}

func (a *accounts) mutable() (*state, func()) {
	if a.st != nil {
		return a.st, func() {}
	}
	a.m.mu.Lock()
	return a.m.st, a.m.mu.Unlock
}

func (a *accounts) Create(_ context.Context, acc *models.Account) error {
	st, done := a.mutable()
	defer done()
	cp := *acc
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	st.accounts[cp.ID] = &cp
	acc.CreatedAt = now
	acc.UpdatedAt = now
	return nil
}

func (a *accounts) Get(_ context.Context, id uuid.UUID) (*models.Account, error) {
	st, done := a.view()
	defer done()
	acc, ok := st.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (a *accounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	st, done := a.view()
	defer done()
	for _, acc := range st.accounts {
		if acc.Email == email {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, ledger.ErrAccountNotFound
}

func (a *accounts) Debit(_ context.Context, id uuid.UUID, amount int64) (int64, error) {
	st, done := a.mutable()
	defer done()
	acc, ok := st.accounts[id]
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}
	if acc.Balance < amount {
		return 0, ledger.ErrInsufficientFunds
	}
	acc.Balance -= amount
	acc.UpdatedAt = time.Now()
	return acc.Balance, nil
}

func (a *accounts) Credit(_ context.Context, id uuid.UUID, amount int64) (int64, error) {
	st, done := a.mutable()
	defer done()
	acc, ok := st.accounts[id]
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}
	acc.Balance += amount
	acc.UpdatedAt = time.Now()
	return acc.Balance, nil
}

func (a *accounts) AddLifetimeEarned(_ context.Context, id uuid.UUID, amount int64) error {
	st, done := a.mutable()
	defer done()
	acc, ok := st.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	acc.LifetimeEarned += amount
	acc.UpdatedAt = time.Now()
	return nil
}

func (a *accounts) IncrementReferrals(_ context.Context, id uuid.UUID) error {
	st, done := a.mutable()
	defer done()
	acc, ok := st.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	acc.Referrals++
	acc.UpdatedAt = time.Now()
	return nil
}

func (a *accounts) TopEarners(_ context.Context, limit int) ([]*models.Account, error) {
	st, done := a.view()
	defer done()
	var out []*models.Account
	for _, acc := range st.accounts {
		if acc.Role != models.RoleEarner {
			continue
		}
		cp := *acc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LifetimeEarned > out[j].LifetimeEarned })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *accounts) List(_ context.Context) ([]*models.Account, error) {
	st, done := a.view()
	defer done()
	out := make([]*models.Account, 0, len(st.accounts))
	for _, acc := range st.accounts {
		cp := *acc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type tasks struct {
	m  *Store
	st *state
}

func (t *tasks) view() (*state, func()) {
	if t.st != nil {
		return t.st, func() {}
	}
	t.m.mu.RLock()
	return t.m.st, t.m.mu.RUnlock
}

func (t *tasks) mutable() (*state, func()) {
	if t.st != nil {
		return t.st, func() {}
	}
	t.m.mu.Lock()
	return t.m.st, t.m.mu.Unlock
}

func (t *tasks) Create(_ context.Context, task *models.Task) error {
	st, done := t.mutable()
	defer done()
	cp := *task
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	st.tasks[cp.ID] = &cp
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

func (t *tasks) Get(_ context.Context, id uuid.UUID) (*models.Task, error) {
	st, done := t.view()
	defer done()
	task, ok := st.tasks[id]
	if !ok {
		return nil, ledger.ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

func (t *tasks) DecrementRemaining(_ context.Context, id uuid.UUID) (*models.Task, error) {
	st, done := t.mutable()
	defer done()
	task, ok := st.tasks[id]
	if !ok {
		return nil, ledger.ErrTaskNotFound
	}
	if task.Status == models.TaskStatusExhausted || task.Remaining == 0 {
		return nil, ledger.ErrTaskExhausted
	}
	if task.Status != models.TaskStatusActive {
		return nil, ledger.ErrTaskNotActive
	}
	task.Remaining--
	task.UpdatedAt = time.Now()
	cp := *task
	return &cp, nil
}

func (t *tasks) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) error {
	st, done := t.mutable()
	defer done()
	task, ok := st.tasks[id]
	if !ok {
		return ledger.ErrTaskNotFound
	}
	if task.Status != from {
		return ledger.ErrInvalidTransition
	}
	task.Status = to
	task.UpdatedAt = time.Now()
	return nil
}

func (t *tasks) ListByStatus(_ context.Context, status string) ([]*models.Task, error) {
	st, done := t.view()
	defer done()
	var out []*models.Task
	for _, task := range st.tasks {
		if task.Status != status {
			continue
		}
		cp := *task
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *tasks) ListByAdvertiser(_ context.Context, advertiserID uuid.UUID) ([]*models.Task, error) {
	st, done := t.view()
	defer done()
	var out []*models.Task
	for _, task := range st.tasks {
		if task.AdvertiserID != advertiserID {
			continue
		}
		cp := *task
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type completions struct {
	m  *Store
	st *state
}

func (c *completions) view() (*state, func()) {
	if c.st != nil {
		return c.st, func() {}
	}
	c.m.mu.RLock()
	return c.m.st, c.m.mu.RUnlock
}

func (c *completions) mutable() (*state, func()) {
	if c.st != nil {
		return c.st, func() {}
	}
	c.m.mu.Lock()
	return c.m.st, c.m.mu.Unlock
}

func (c *completions) Exists(_ context.Context, earnerID, taskID uuid.UUID) (bool, error) {
	st, done := c.view()
	defer done()
	_, ok := st.completions[completionKey{earnerID, taskID}]
	return ok, nil
}

func (c *completions) Record(_ context.Context, cm *models.Completion) error {
	st, done := c.mutable()
	defer done()
	key := completionKey{cm.EarnerID, cm.TaskID}
	if _, ok := st.completions[key]; ok {
		return ledger.ErrAlreadyCompleted
	}
	cp := *cm
	cp.CompletedAt = time.Now()
	st.completions[key] = &cp
	cm.CompletedAt = cp.CompletedAt
	return nil
}

func (c *completions) CountByEarner(_ context.Context, earnerID uuid.UUID) (int, error) {
	st, done := c.view()
	defer done()
	n := 0
	for key := range st.completions {
		if key.earnerID == earnerID {
			n++
		}
	}
	return n, nil
}

func (c *completions) CountByTasks(_ context.Context, taskIDs []uuid.UUID) (int, error) {
	st, done := c.view()
	defer done()
	want := make(map[uuid.UUID]bool, len(taskIDs))
	for _, id := range taskIDs {
		want[id] = true
	}
	n := 0
	for key := range st.completions {
		if want[key.taskID] {
			n++
		}
	}
	return n, nil
}

func (c *completions) TaskIDsByEarner(_ context.Context, earnerID uuid.UUID) ([]uuid.UUID, error) {
	st, done := c.view()
	defer done()
	var out []uuid.UUID
	for key := range st.completions {
		if key.earnerID == earnerID {
			out = append(out, key.taskID)
		}
	}
	return out, nil
}

type txlog struct {
	m  *Store
	st *state
}

func (l *txlog) view() (*state, func()) {
	if l.st != nil {
		return l.st, func() {}
	}
	l.m.mu.RLock()
	return l.m.st, l.m.mu.RUnlock
}

func (l *txlog) mutable() (*state, func()) {
	if l.st != nil {
		return l.st, func() {}
	}
	l.m.mu.Lock()
	return l.m.st, l.m.mu.Unlock
}

func (l *txlog) Append(_ context.Context, entry *models.Transaction) error {
	st, done := l.mutable()
	defer done()
	cp := *entry
	cp.CreatedAt = time.Now()
	st.txs[cp.ID] = &cp
	st.txOrder = append(st.txOrder, cp.ID)
	entry.CreatedAt = cp.CreatedAt
	return nil
}

func (l *txlog) Get(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	st, done := l.view()
	defer done()
	entry, ok := st.txs[id]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	cp := *entry
	return &cp, nil
}

func (l *txlog) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) error {
	st, done := l.mutable()
	defer done()
	entry, ok := st.txs[id]
	if !ok {
		return ledger.ErrTransactionNotFound
	}
	if entry.Status != from {
		return ledger.ErrInvalidTransition
	}
	entry.Status = to
	return nil
}

func (l *txlog) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*models.Transaction, error) {
	st, done := l.view()
	defer done()
	var out []*models.Transaction
	for i := len(st.txOrder) - 1; i >= 0; i-- {
		entry := st.txs[st.txOrder[i]]
		if entry.AccountID != accountID {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}
	return out, nil
}

func (l *txlog) ListAll(_ context.Context) ([]*models.Transaction, error) {
	st, done := l.view()
	defer done()
	out := make([]*models.Transaction, 0, len(st.txOrder))
	for i := len(st.txOrder) - 1; i >= 0; i-- {
		cp := *st.txs[st.txOrder[i]]
		out = append(out, &cp)
	}
	return out, nil
}
