package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediaearn/backend/internal/models"
)

// Marketplace policy.
const (
	// MinTaskQuantity is the smallest audience an advertiser can buy.
	MinTaskQuantity = 10
	// MinWithdrawal is the smallest payout an earner can request (kobo).
	MinWithdrawal = 500_000 // NGN 5,000
	// ReferralBonus is paid to the referrer once the referred earner has
	// completed ReferralBonusCompletions tasks (kobo).
	ReferralBonus            = 50_000 // NGN 500
	ReferralBonusCompletions = 5
	// MaxAmount is the largest single ledger movement (kobo). The cap keeps
	// every total comfortably inside int64 so arithmetic cannot wrap.
	MaxAmount = 100_000_000_000 // NGN 1 billion
)

// FundTaskParams carries the advertiser's campaign request.
type FundTaskParams struct {
	Platform   string
	Type       string
	URL        string
	ProofTitle string
	Guide      string
	Quantity   int
	UnitReward int64
}

// AdvertiserStats summarises an advertiser's campaigns.
type AdvertiserStats struct {
	TasksCount        int `json:"tasks_count"`
	TotalInteractions int `json:"total_interactions"`
}

// Service orchestrates atomic multi-entity operations across the account
// store, task store, completion registry, and transaction log. Every
// compound operation is all-or-nothing: a failure leaves no observable
// side effects.
type Service interface {
	FundTask(ctx context.Context, advertiserID uuid.UUID, p FundTaskParams) (*models.Task, error)
	CompleteTask(ctx context.Context, earnerID, taskID uuid.UUID) (int64, error)
	Deposit(ctx context.Context, accountID uuid.UUID, amount int64) (int64, error)
	RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64) (*models.Transaction, error)
	ResolveWithdrawal(ctx context.Context, transactionID uuid.UUID, approve bool) error
	ApproveTask(ctx context.Context, taskID uuid.UUID) error
	RejectTask(ctx context.Context, taskID uuid.UUID) error

	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListOpenTasks(ctx context.Context, earnerID uuid.UUID) ([]*models.Task, error)
	ListAdvertiserTasks(ctx context.Context, advertiserID uuid.UUID) ([]*models.Task, error)
	ListTasksByStatus(ctx context.Context, status string) ([]*models.Task, error)
	AdvertiserStats(ctx context.Context, advertiserID uuid.UUID) (*AdvertiserStats, error)
	Statement(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error)
	AllTransactions(ctx context.Context) ([]*models.Transaction, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	TopEarners(ctx context.Context, limit int) ([]*models.Account, error)
}

type service struct {
	store Store
}

// NewService returns a ledger service backed by the given store.
func NewService(store Store) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

// FundTask escrows quantity*unitReward from the advertiser, creates the task
// in pending_approval, and logs the ad spend. Validation happens before any
// store is touched; the debit itself is the funds guard.
func (s *service) FundTask(ctx context.Context, advertiserID uuid.UUID, p FundTaskParams) (*models.Task, error) {
	if !models.Platforms[p.Platform] {
		return nil, ErrUnsupportedPlatform
	}
	if !models.TaskTypes[p.Type] {
		return nil, ErrUnsupportedType
	}
	if p.Quantity < MinTaskQuantity {
		return nil, ErrInvalidQuantity
	}
	// Checked before multiplying: quantity*reward above MaxAmount would
	// otherwise overflow int64 and turn the escrow debit into a credit.
	if p.UnitReward <= 0 || p.UnitReward > MaxAmount/int64(p.Quantity) {
		return nil, ErrInvalidAmount
	}
	total := int64(p.Quantity) * p.UnitReward

	task := &models.Task{
		ID:           uuid.New(),
		AdvertiserID: advertiserID,
		Platform:     p.Platform,
		Type:         p.Type,
		URL:          p.URL,
		ProofTitle:   p.ProofTitle,
		Guide:        p.Guide,
		UnitReward:   p.UnitReward,
		Quantity:     p.Quantity,
		Remaining:    p.Quantity,
		TotalCost:    total,
		Status:       models.TaskStatusPendingApproval,
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.Accounts().Debit(ctx, advertiserID, total); err != nil {
			return err
		}
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return err
		}
		return tx.Transactions().Append(ctx, &models.Transaction{
			ID:          uuid.New(),
			AccountID:   advertiserID,
			Kind:        models.TxKindAdSpend,
			Amount:      total,
			Status:      models.TxStatusCompleted,
			Description: fmt.Sprintf("Get Audience: %s on %s", p.Type, p.Platform),
		})
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CompleteTask pays the earner for one verified execution. The completion
// record is the at-most-once gate; the remaining-quota decrement is the
// budget gate. Both are checked inside the same unit of work so a failure at
// any step leaves no partial state.
func (s *service) CompleteTask(ctx context.Context, earnerID, taskID uuid.UUID) (int64, error) {
	var newBalance int64
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		task, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		switch {
		case task.Status == models.TaskStatusExhausted || task.Remaining == 0:
			return ErrTaskExhausted
		case task.Status != models.TaskStatusActive:
			return ErrTaskNotActive
		}
		done, err := tx.Completions().Exists(ctx, earnerID, taskID)
		if err != nil {
			return err
		}
		if done {
			return ErrAlreadyCompleted
		}
		if err := tx.Completions().Record(ctx, &models.Completion{
			ID:       uuid.New(),
			EarnerID: earnerID,
			TaskID:   taskID,
		}); err != nil {
			return err
		}

		task, err = tx.Tasks().DecrementRemaining(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Remaining == 0 {
			if err := tx.Tasks().UpdateStatus(ctx, taskID, models.TaskStatusActive, models.TaskStatusExhausted); err != nil {
				return err
			}
		}

		newBalance, err = tx.Accounts().Credit(ctx, earnerID, task.UnitReward)
		if err != nil {
			return err
		}
		if err := tx.Accounts().AddLifetimeEarned(ctx, earnerID, task.UnitReward); err != nil {
			return err
		}
		if err := tx.Transactions().Append(ctx, &models.Transaction{
			ID:          uuid.New(),
			AccountID:   earnerID,
			Kind:        models.TxKindEarning,
			Amount:      task.UnitReward,
			Status:      models.TxStatusCompleted,
			Description: fmt.Sprintf("%s on %s", task.Type, task.Platform),
		}); err != nil {
			return err
		}

		return s.maybePayReferralBonus(ctx, tx, earnerID)
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// maybePayReferralBonus pays the referrer once, on the referred earner's
// fifth completion. Runs inside the caller's unit of work.
func (s *service) maybePayReferralBonus(ctx context.Context, tx Store, earnerID uuid.UUID) error {
	n, err := tx.Completions().CountByEarner(ctx, earnerID)
	if err != nil {
		return err
	}
	if n != ReferralBonusCompletions {
		return nil
	}
	earner, err := tx.Accounts().Get(ctx, earnerID)
	if err != nil {
		return err
	}
	if earner.ReferredBy == nil {
		return nil
	}
	if _, err := tx.Accounts().Credit(ctx, *earner.ReferredBy, ReferralBonus); err != nil {
		return err
	}
	return tx.Transactions().Append(ctx, &models.Transaction{
		ID:          uuid.New(),
		AccountID:   *earner.ReferredBy,
		Kind:        models.TxKindReferralBonus,
		Amount:      ReferralBonus,
		Status:      models.TxStatusCompleted,
		Description: "Referral bonus: referred member active",
	})
}

// Deposit credits external funds to the account.
func (s *service) Deposit(ctx context.Context, accountID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 || amount > MaxAmount {
		return 0, ErrInvalidAmount
	}
	var newBalance int64
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		var err error
		newBalance, err = tx.Accounts().Credit(ctx, accountID, amount)
		if err != nil {
			return err
		}
		return tx.Transactions().Append(ctx, &models.Transaction{
			ID:          uuid.New(),
			AccountID:   accountID,
			Kind:        models.TxKindDeposit,
			Amount:      amount,
			Status:      models.TxStatusCompleted,
			Description: "Funds Added via Bank/Card",
		})
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// RequestWithdrawal holds the funds immediately: the balance is debited at
// request time and the pending entry records the hold. Approval therefore
// changes only the status; rejection returns the hold.
func (s *service) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount int64) (*models.Transaction, error) {
	if amount <= 0 || amount > MaxAmount {
		return nil, ErrInvalidAmount
	}
	if amount < MinWithdrawal {
		return nil, ErrBelowMinimum
	}
	entry := &models.Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Kind:        models.TxKindWithdrawal,
		Amount:      amount,
		Status:      models.TxStatusPending,
		Description: "Withdrawal to bank account",
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.Accounts().Debit(ctx, accountID, amount); err != nil {
			return err
		}
		return tx.Transactions().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ResolveWithdrawal settles a pending withdrawal. The conditional status
// update means two concurrent resolutions cannot both win.
func (s *service) ResolveWithdrawal(ctx context.Context, transactionID uuid.UUID, approve bool) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		entry, err := tx.Transactions().Get(ctx, transactionID)
		if err != nil {
			return err
		}
		if entry.Kind != models.TxKindWithdrawal {
			return ErrInvalidTransition
		}
		if approve {
			return tx.Transactions().UpdateStatus(ctx, transactionID, models.TxStatusPending, models.TxStatusCompleted)
		}
		if err := tx.Transactions().UpdateStatus(ctx, transactionID, models.TxStatusPending, models.TxStatusRejected); err != nil {
			return err
		}
		_, err = tx.Accounts().Credit(ctx, entry.AccountID, entry.Amount)
		return err
	})
}

// ApproveTask activates a pending campaign.
func (s *service) ApproveTask(ctx context.Context, taskID uuid.UUID) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		return tx.Tasks().UpdateStatus(ctx, taskID, models.TaskStatusPendingApproval, models.TaskStatusActive)
	})
}

// RejectTask declines a pending campaign and returns the escrowed budget to
// the advertiser. Pending tasks cannot have completions, so the refund is
// always the full TotalCost.
func (s *service) RejectTask(ctx context.Context, taskID uuid.UUID) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		task, err := tx.Tasks().Get(ctx, taskID)
		if err != nil {
			return err
		}
		if err := tx.Tasks().UpdateStatus(ctx, taskID, models.TaskStatusPendingApproval, models.TaskStatusRejected); err != nil {
			return err
		}
		if _, err := tx.Accounts().Credit(ctx, task.AdvertiserID, task.TotalCost); err != nil {
			return err
		}
		return tx.Transactions().Append(ctx, &models.Transaction{
			ID:          uuid.New(),
			AccountID:   task.AdvertiserID,
			Kind:        models.TxKindRefund,
			Amount:      task.TotalCost,
			Status:      models.TxStatusCompleted,
			Description: fmt.Sprintf("Refund: %s campaign on %s rejected", task.Type, task.Platform),
		})
	})
}

func (s *service) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.store.Accounts().Get(ctx, id)
}

func (s *service) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return s.store.Tasks().Get(ctx, id)
}

// ListOpenTasks returns every active task, flagging the ones this earner
// has already been paid for.
func (s *service) ListOpenTasks(ctx context.Context, earnerID uuid.UUID) ([]*models.Task, error) {
	tasks, err := s.store.Tasks().ListByStatus(ctx, models.TaskStatusActive)
	if err != nil {
		return nil, err
	}
	doneIDs, err := s.store.Completions().TaskIDsByEarner(ctx, earnerID)
	if err != nil {
		return nil, err
	}
	done := make(map[uuid.UUID]bool, len(doneIDs))
	for _, id := range doneIDs {
		done[id] = true
	}
	for _, t := range tasks {
		t.Completed = done[t.ID]
	}
	return tasks, nil
}

func (s *service) ListAdvertiserTasks(ctx context.Context, advertiserID uuid.UUID) ([]*models.Task, error) {
	return s.store.Tasks().ListByAdvertiser(ctx, advertiserID)
}

func (s *service) ListTasksByStatus(ctx context.Context, status string) ([]*models.Task, error) {
	return s.store.Tasks().ListByStatus(ctx, status)
}

func (s *service) AdvertiserStats(ctx context.Context, advertiserID uuid.UUID) (*AdvertiserStats, error) {
	tasks, err := s.store.Tasks().ListByAdvertiser(ctx, advertiserID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	interactions := 0
	if len(ids) > 0 {
		interactions, err = s.store.Completions().CountByTasks(ctx, ids)
		if err != nil {
			return nil, err
		}
	}
	return &AdvertiserStats{TasksCount: len(tasks), TotalInteractions: interactions}, nil
}

func (s *service) Statement(ctx context.Context, accountID uuid.UUID) ([]*models.Transaction, error) {
	return s.store.Transactions().ListByAccount(ctx, accountID)
}

func (s *service) AllTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return s.store.Transactions().ListAll(ctx)
}

func (s *service) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.store.Accounts().List(ctx)
}

func (s *service) TopEarners(ctx context.Context, limit int) ([]*models.Account, error) {
	return s.store.Accounts().TopEarners(ctx, limit)
}
