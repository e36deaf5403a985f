package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/memstore"
	"github.com/mediaearn/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestLedger() (ledger.Service, *memstore.Store) {
	store := memstore.New()
	return ledger.NewService(store), store
}

func seedAccount(t *testing.T, store *memstore.Store, role string, balance int64) *models.Account {
	t.Helper()
	a := &models.Account{
		ID:      uuid.New(),
		Email:   fmt.Sprintf("%s@example.com", uuid.New()),
		Name:    "Test " + role,
		Role:    role,
		Balance: balance,
	}
	if err := store.Accounts().Create(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func balance(t *testing.T, store *memstore.Store, id uuid.UUID) int64 {
	t.Helper()
	a, err := store.Accounts().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return a.Balance
}

func fundParams(quantity int, unitReward int64) ledger.FundTaskParams {
	return ledger.FundTaskParams{
		Platform:   "Instagram",
		Type:       "Follow",
		URL:        "https://instagram.com/someone",
		ProofTitle: "Screenshot of follow",
		Guide:      "Open the profile and tap Follow",
		Quantity:   quantity,
		UnitReward: unitReward,
	}
}

// seedActiveTask funds a campaign and approves it so earners can work it.
func seedActiveTask(t *testing.T, svc ledger.Service, advertiserID uuid.UUID, quantity int, unitReward int64) *models.Task {
	t.Helper()
	ctx := context.Background()
	task, err := svc.FundTask(ctx, advertiserID, fundParams(quantity, unitReward))
	if err != nil {
		t.Fatalf("FundTask: %v", err)
	}
	if err := svc.ApproveTask(ctx, task.ID); err != nil {
		t.Fatalf("ApproveTask: %v", err)
	}
	return task
}

func entriesByKind(t *testing.T, store *memstore.Store, accountID uuid.UUID, kind string) []*models.Transaction {
	t.Helper()
	txs, err := store.Transactions().ListByAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	var out []*models.Transaction
	for _, tx := range txs {
		if tx.Kind == kind {
			out = append(out, tx)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// 1. Funding
// ---------------------------------------------------------------------------

func TestFundTask(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 10_000)

	task, err := svc.FundTask(ctx, adv.ID, fundParams(10, 500))
	if err != nil {
		t.Fatalf("FundTask: %v", err)
	}

	// Budget escrowed up front.
	if got := balance(t, store, adv.ID); got != 5_000 {
		t.Errorf("advertiser balance: got %d, want 5000", got)
	}
	if task.TotalCost != 5_000 {
		t.Errorf("total cost: got %d, want 5000", task.TotalCost)
	}
	if task.Status != models.TaskStatusPendingApproval {
		t.Errorf("status: got %q, want %q", task.Status, models.TaskStatusPendingApproval)
	}
	if task.Remaining != 10 {
		t.Errorf("remaining: got %d, want 10", task.Remaining)
	}

	spends := entriesByKind(t, store, adv.ID, models.TxKindAdSpend)
	if len(spends) != 1 || spends[0].Amount != 5_000 {
		t.Fatalf("ad_spend entries: got %v", spends)
	}
	if spends[0].Description != "Get Audience: Follow on Instagram" {
		t.Errorf("description: got %q", spends[0].Description)
	}
}

func TestFundTask_InsufficientFunds(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 4_999)

	_, err := svc.FundTask(ctx, adv.ID, fundParams(10, 500))
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got: %v", err)
	}

	// Nothing happened: balance intact, no task, no ledger entry.
	if got := balance(t, store, adv.ID); got != 4_999 {
		t.Errorf("balance after failed funding: got %d, want 4999", got)
	}
	tasks, err := svc.ListTasksByStatus(ctx, models.TaskStatusPendingApproval)
	if err != nil {
		t.Fatalf("ListTasksByStatus: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
	if txs := entriesByKind(t, store, adv.ID, models.TxKindAdSpend); len(txs) != 0 {
		t.Errorf("expected no ad_spend entries, got %d", len(txs))
	}
}

func TestFundTask_Validation(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()
	adv := seedAccount(t, store, models.RoleAdvertiser, 1_000_000)

	if _, err := svc.FundTask(ctx, adv.ID, fundParams(9, 500)); !errors.Is(err, ledger.ErrInvalidQuantity) {
		t.Errorf("quantity 9: expected ErrInvalidQuantity, got: %v", err)
	}
	if _, err := svc.FundTask(ctx, adv.ID, fundParams(10, 0)); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("reward 0: expected ErrInvalidAmount, got: %v", err)
	}

	badPlatform := fundParams(10, 500)
	badPlatform.Platform = "MySpace"
	if _, err := svc.FundTask(ctx, adv.ID, badPlatform); !errors.Is(err, ledger.ErrUnsupportedPlatform) {
		t.Errorf("unknown platform: expected ErrUnsupportedPlatform, got: %v", err)
	}
	badType := fundParams(10, 500)
	badType.Type = "Bribe"
	if _, err := svc.FundTask(ctx, adv.ID, badType); !errors.Is(err, ledger.ErrUnsupportedType) {
		t.Errorf("unknown type: expected ErrUnsupportedType, got: %v", err)
	}
}

// A quantity*reward product past int64 would wrap negative and make the
// escrow debit mint money. The cap must reject it before any arithmetic.
func TestFundTask_OverflowRejected(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()
	adv := seedAccount(t, store, models.RoleAdvertiser, 0)

	cases := []struct {
		name       string
		quantity   int
		unitReward int64
	}{
		{"product wraps int64", 10, math.MaxInt64/10 + 1},
		{"product above policy cap", 1_000_000, ledger.MaxAmount},
		{"reward alone above policy cap", 10, ledger.MaxAmount + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.FundTask(ctx, adv.ID, fundParams(tc.quantity, tc.unitReward))
			if !errors.Is(err, ledger.ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got: %v", err)
			}
		})
	}

	// Nothing moved: a wrapped total must never credit the advertiser.
	if got := balance(t, store, adv.ID); got != 0 {
		t.Errorf("balance after rejected funding: got %d, want 0", got)
	}
	tasks, err := svc.ListTasksByStatus(ctx, models.TaskStatusPendingApproval)
	if err != nil {
		t.Fatalf("ListTasksByStatus: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
	if got := balance(t, store, adv.ID); got != 1_000_000 {
		t.Errorf("balance should be untouched: got %d", got)
	}
}

// ---------------------------------------------------------------------------
// 2. Completion and settlement
// ---------------------------------------------------------------------------

func TestCompleteTask(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 100_000)
	earner := seedAccount(t, store, models.RoleEarner, 0)
	task := seedActiveTask(t, svc, adv.ID, 10, 500)

	newBalance, err := svc.CompleteTask(ctx, earner.ID, task.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if newBalance != 500 {
		t.Errorf("new balance: got %d, want 500", newBalance)
	}
	if got := balance(t, store, earner.ID); got != 500 {
		t.Errorf("stored balance: got %d, want 500", got)
	}

	got, err := svc.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Remaining != 9 {
		t.Errorf("remaining: got %d, want 9", got.Remaining)
	}

	a, err := store.Accounts().Get(ctx, earner.ID)
	if err != nil {
		t.Fatalf("get earner: %v", err)
	}
	if a.LifetimeEarned != 500 {
		t.Errorf("lifetime earned: got %d, want 500", a.LifetimeEarned)
	}

	earnings := entriesByKind(t, store, earner.ID, models.TxKindEarning)
	if len(earnings) != 1 || earnings[0].Amount != 500 {
		t.Fatalf("earning entries: got %v", earnings)
	}
}

func TestCompleteTask_Duplicate(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 100_000)
	earner := seedAccount(t, store, models.RoleEarner, 0)
	task := seedActiveTask(t, svc, adv.ID, 10, 500)

	if _, err := svc.CompleteTask(ctx, earner.ID, task.ID); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	if _, err := svc.CompleteTask(ctx, earner.ID, task.ID); !errors.Is(err, ledger.ErrAlreadyCompleted) {
		t.Fatalf("second completion: expected ErrAlreadyCompleted, got: %v", err)
	}

	// The rejection must not pay again or burn quota.
	if got := balance(t, store, earner.ID); got != 500 {
		t.Errorf("balance after duplicate: got %d, want 500", got)
	}
	got, _ := svc.GetTask(ctx, task.ID)
	if got.Remaining != 9 {
		t.Errorf("remaining after duplicate: got %d, want 9", got.Remaining)
	}
}

func TestCompleteTask_Exhaustion(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 100_000)
	task := seedActiveTask(t, svc, adv.ID, 10, 100)

	for i := 0; i < 10; i++ {
		earner := seedAccount(t, store, models.RoleEarner, 0)
		if _, err := svc.CompleteTask(ctx, earner.ID, task.ID); err != nil {
			t.Fatalf("completion %d: %v", i+1, err)
		}
	}

	got, err := svc.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != models.TaskStatusExhausted {
		t.Errorf("status after last completion: got %q, want %q", got.Status, models.TaskStatusExhausted)
	}
	if got.Remaining != 0 {
		t.Errorf("remaining: got %d, want 0", got.Remaining)
	}

	// Exhausted wins over any other rejection reason.
	late := seedAccount(t, store, models.RoleEarner, 0)
	if _, err := svc.CompleteTask(ctx, late.ID, task.ID); !errors.Is(err, ledger.ErrTaskExhausted) {
		t.Fatalf("expected ErrTaskExhausted, got: %v", err)
	}
}

func TestCompleteTask_NotActive(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 100_000)
	earner := seedAccount(t, store, models.RoleEarner, 0)

	task, err := svc.FundTask(ctx, adv.ID, fundParams(10, 500))
	if err != nil {
		t.Fatalf("FundTask: %v", err)
	}

	// Still pending approval.
	if _, err := svc.CompleteTask(ctx, earner.ID, task.ID); !errors.Is(err, ledger.ErrTaskNotActive) {
		t.Fatalf("pending task: expected ErrTaskNotActive, got: %v", err)
	}
	if _, err := svc.CompleteTask(ctx, earner.ID, uuid.New()); !errors.Is(err, ledger.ErrTaskNotFound) {
		t.Fatalf("unknown task: expected ErrTaskNotFound, got: %v", err)
	}
}

// Concurrent completions must settle exactly Remaining times, never more.
func TestCompleteTask_ConcurrentQuota(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	const quantity = 10
	const unitReward = 250
	const contenders = 25

	adv := seedAccount(t, store, models.RoleAdvertiser, 1_000_000)
	task := seedActiveTask(t, svc, adv.ID, quantity, unitReward)

	earners := make([]*models.Account, contenders)
	for i := range earners {
		earners[i] = seedAccount(t, store, models.RoleEarner, 0)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CompleteTask(ctx, earners[i].ID, task.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ledger.ErrTaskExhausted):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != quantity {
		t.Fatalf("successful completions: got %d, want %d", succeeded, quantity)
	}

	// Total payout never exceeds the escrowed budget.
	var paid int64
	for _, e := range earners {
		paid += balance(t, store, e.ID)
	}
	if paid != quantity*unitReward {
		t.Errorf("total paid: got %d, want %d", paid, quantity*unitReward)
	}
}

// Same earner racing themselves gets paid at most once.
func TestCompleteTask_ConcurrentDuplicate(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 100_000)
	earner := seedAccount(t, store, models.RoleEarner, 0)
	task := seedActiveTask(t, svc, adv.ID, 10, 500)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CompleteTask(ctx, earner.ID, task.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ledger.ErrAlreadyCompleted) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("successful completions: got %d, want 1", succeeded)
	}
	if got := balance(t, store, earner.ID); got != 500 {
		t.Errorf("balance: got %d, want 500", got)
	}
}

// ---------------------------------------------------------------------------
// 3. Deposits and withdrawals
// ---------------------------------------------------------------------------

func TestDeposit(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()
	acc := seedAccount(t, store, models.RoleAdvertiser, 1_000)

	newBalance, err := svc.Deposit(ctx, acc.ID, 50_000)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if newBalance != 51_000 {
		t.Errorf("balance: got %d, want 51000", newBalance)
	}
	deposits := entriesByKind(t, store, acc.ID, models.TxKindDeposit)
	if len(deposits) != 1 || deposits[0].Description != "Funds Added via Bank/Card" {
		t.Fatalf("deposit entries: got %v", deposits)
	}

	if _, err := svc.Deposit(ctx, acc.ID, 0); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("zero deposit: expected ErrInvalidAmount, got: %v", err)
	}
}

// Single movements are capped so repeated deposits cannot wrap a balance
// past int64 and under zero.
func TestDeposit_CappedAtMaxAmount(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()
	acc := seedAccount(t, store, models.RoleAdvertiser, 0)

	if _, err := svc.Deposit(ctx, acc.ID, ledger.MaxAmount+1); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("over-cap deposit: expected ErrInvalidAmount, got: %v", err)
	}
	if _, err := svc.Deposit(ctx, acc.ID, math.MaxInt64-1); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("near-MaxInt64 deposit: expected ErrInvalidAmount, got: %v", err)
	}
	if got := balance(t, store, acc.ID); got != 0 {
		t.Errorf("balance after rejected deposits: got %d, want 0", got)
	}

	// The cap itself is accepted.
	if _, err := svc.Deposit(ctx, acc.ID, ledger.MaxAmount); err != nil {
		t.Fatalf("cap-sized deposit: %v", err)
	}
	if got := balance(t, store, acc.ID); got != ledger.MaxAmount {
		t.Errorf("balance: got %d, want %d", got, int64(ledger.MaxAmount))
	}
}

func TestWithdrawal_Lifecycle(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()
	earner := seedAccount(t, store, models.RoleEarner, 600_000)

	entry, err := svc.RequestWithdrawal(ctx, earner.ID, 500_000)
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	if entry.Status != models.TxStatusPending {
		t.Errorf("entry status: got %q, want pending", entry.Status)
	}

	// Funds held at request time.
	if got := balance(t, store, earner.ID); got != 100_000 {
		t.Errorf("balance after request: got %d, want 100000", got)
	}

	if err := svc.ResolveWithdrawal(ctx, entry.ID, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := store.Transactions().Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Status != models.TxStatusCompleted {
		t.Errorf("status after approve: got %q, want completed", got.Status)
	}
	// Approval does not move money again.
	if b := balance(t, store, earner.ID); b != 100_000 {
		t.Errorf("balance after approve: got %d, want 100000", b)
	}

	// A second resolution must lose the conditional update.
	if err := svc.ResolveWithdrawal(ctx, entry.ID, false); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("double resolve: expected ErrInvalidTransition, got: %v", err)
	}
}

func TestWithdrawal_Rejected(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()
	earner := seedAccount(t, store, models.RoleEarner, 600_000)

	entry, err := svc.RequestWithdrawal(ctx, earner.ID, 500_000)
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}
	if err := svc.ResolveWithdrawal(ctx, entry.ID, false); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// Hold returned in full.
	if got := balance(t, store, earner.ID); got != 600_000 {
		t.Errorf("balance after reject: got %d, want 600000", got)
	}
	got, _ := store.Transactions().Get(ctx, entry.ID)
	if got.Status != models.TxStatusRejected {
		t.Errorf("status: got %q, want rejected", got.Status)
	}
	// A rejected withdrawal contributes zero to the signed sum.
	if s := got.SignedAmount(); s != 0 {
		t.Errorf("signed amount of rejected withdrawal: got %d, want 0", s)
	}
}

func TestWithdrawal_Guards(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()
	earner := seedAccount(t, store, models.RoleEarner, 600_000)

	if _, err := svc.RequestWithdrawal(ctx, earner.ID, 499_999); !errors.Is(err, ledger.ErrBelowMinimum) {
		t.Errorf("below minimum: expected ErrBelowMinimum, got: %v", err)
	}
	if _, err := svc.RequestWithdrawal(ctx, earner.ID, ledger.MaxAmount+1); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Errorf("over cap: expected ErrInvalidAmount, got: %v", err)
	}
	if _, err := svc.RequestWithdrawal(ctx, earner.ID, 700_000); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("over balance: expected ErrInsufficientFunds, got: %v", err)
	}
	if got := balance(t, store, earner.ID); got != 600_000 {
		t.Errorf("balance after failed requests: got %d, want 600000", got)
	}
}

// ---------------------------------------------------------------------------
// 4. Approval and rejection of campaigns
// ---------------------------------------------------------------------------

func TestRejectTask_Refunds(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()
	adv := seedAccount(t, store, models.RoleAdvertiser, 10_000)

	task, err := svc.FundTask(ctx, adv.ID, fundParams(10, 500))
	if err != nil {
		t.Fatalf("FundTask: %v", err)
	}
	if err := svc.RejectTask(ctx, task.ID); err != nil {
		t.Fatalf("RejectTask: %v", err)
	}

	// Full budget returned.
	if got := balance(t, store, adv.ID); got != 10_000 {
		t.Errorf("balance after rejection: got %d, want 10000", got)
	}
	refunds := entriesByKind(t, store, adv.ID, models.TxKindRefund)
	if len(refunds) != 1 || refunds[0].Amount != 5_000 {
		t.Fatalf("refund entries: got %v", refunds)
	}

	got, _ := svc.GetTask(ctx, task.ID)
	if got.Status != models.TaskStatusRejected {
		t.Errorf("task status: got %q, want rejected", got.Status)
	}

	// Rejecting twice cannot refund twice.
	if err := svc.RejectTask(ctx, task.ID); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("double reject: expected ErrInvalidTransition, got: %v", err)
	}
	if got := balance(t, store, adv.ID); got != 10_000 {
		t.Errorf("balance after double reject: got %d, want 10000", got)
	}
}

func TestApproveTask_Transitions(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()
	adv := seedAccount(t, store, models.RoleAdvertiser, 10_000)

	task, err := svc.FundTask(ctx, adv.ID, fundParams(10, 500))
	if err != nil {
		t.Fatalf("FundTask: %v", err)
	}
	if err := svc.ApproveTask(ctx, task.ID); err != nil {
		t.Fatalf("ApproveTask: %v", err)
	}
	if err := svc.ApproveTask(ctx, task.ID); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("double approve: expected ErrInvalidTransition, got: %v", err)
	}
	if err := svc.RejectTask(ctx, task.ID); !errors.Is(err, ledger.ErrInvalidTransition) {
		t.Errorf("reject active: expected ErrInvalidTransition, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 5. Referral bonus
// ---------------------------------------------------------------------------

func TestReferralBonus_PaidOnFifthCompletion(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	referrer := seedAccount(t, store, models.RoleEarner, 0)
	referred := &models.Account{
		ID:         uuid.New(),
		Email:      "referred@example.com",
		Name:       "Referred Earner",
		Role:       models.RoleEarner,
		ReferredBy: &referrer.ID,
	}
	if err := store.Accounts().Create(ctx, referred); err != nil {
		t.Fatalf("create referred: %v", err)
	}

	adv := seedAccount(t, store, models.RoleAdvertiser, 1_000_000)
	for i := 0; i < 6; i++ {
		task := seedActiveTask(t, svc, adv.ID, 10, 100)
		if _, err := svc.CompleteTask(ctx, referred.ID, task.ID); err != nil {
			t.Fatalf("completion %d: %v", i+1, err)
		}

		wantBonus := int64(0)
		if i+1 >= ledger.ReferralBonusCompletions {
			wantBonus = ledger.ReferralBonus
		}
		if got := balance(t, store, referrer.ID); got != wantBonus {
			t.Errorf("after completion %d: referrer balance got %d, want %d", i+1, got, wantBonus)
		}
	}

	// Exactly one bonus entry, never a sixth-completion repeat.
	bonuses := entriesByKind(t, store, referrer.ID, models.TxKindReferralBonus)
	if len(bonuses) != 1 || bonuses[0].Amount != ledger.ReferralBonus {
		t.Fatalf("referral_bonus entries: got %v", bonuses)
	}
}

func TestReferralBonus_NoReferrer(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	earner := seedAccount(t, store, models.RoleEarner, 0)
	adv := seedAccount(t, store, models.RoleAdvertiser, 1_000_000)

	for i := 0; i < 5; i++ {
		task := seedActiveTask(t, svc, adv.ID, 10, 100)
		if _, err := svc.CompleteTask(ctx, earner.ID, task.ID); err != nil {
			t.Fatalf("completion %d: %v", i+1, err)
		}
	}
	if bonuses := entriesByKind(t, store, earner.ID, models.TxKindReferralBonus); len(bonuses) != 0 {
		t.Errorf("expected no bonus entries, got %d", len(bonuses))
	}
}

// ---------------------------------------------------------------------------
// 6. Ledger integrity
//    Full cycle: deposit → fund → approve → complete → withdraw → resolve.
//    SUM(signed entries per account) + initial == current balance.
// ---------------------------------------------------------------------------

func TestLedgerIntegrity(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 0)
	earnerA := seedAccount(t, store, models.RoleEarner, 400_000)
	earnerB := seedAccount(t, store, models.RoleEarner, 500_000)

	if _, err := svc.Deposit(ctx, adv.ID, 2_000_000); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	task := seedActiveTask(t, svc, adv.ID, 10, 10_000)

	if _, err := svc.CompleteTask(ctx, earnerA.ID, task.ID); err != nil {
		t.Fatalf("complete A: %v", err)
	}
	if _, err := svc.CompleteTask(ctx, earnerB.ID, task.ID); err != nil {
		t.Fatalf("complete B: %v", err)
	}

	wA, err := svc.RequestWithdrawal(ctx, earnerA.ID, 405_000)
	if err != nil {
		t.Fatalf("withdraw A: %v", err)
	}
	if err := svc.ResolveWithdrawal(ctx, wA.ID, true); err != nil {
		t.Fatalf("approve A: %v", err)
	}
	wB, err := svc.RequestWithdrawal(ctx, earnerB.ID, 500_000)
	if err != nil {
		t.Fatalf("withdraw B: %v", err)
	}
	if err := svc.ResolveWithdrawal(ctx, wB.ID, false); err != nil {
		t.Fatalf("reject B: %v", err)
	}

	initials := map[uuid.UUID]int64{
		adv.ID:     0,
		earnerA.ID: 400_000,
		earnerB.ID: 500_000,
	}
	for id, initial := range initials {
		txs, err := store.Transactions().ListByAccount(ctx, id)
		if err != nil {
			t.Fatalf("ListByAccount: %v", err)
		}
		var sum int64
		for _, tx := range txs {
			sum += tx.SignedAmount()
		}
		if got := balance(t, store, id); got != initial+sum {
			t.Errorf("account %s: balance %d != initial %d + signed sum %d", id, got, initial, sum)
		}
	}

	// A rejected withdrawal holds no money: earner B is whole again.
	if got := balance(t, store, earnerB.ID); got != 510_000 {
		t.Errorf("earner B balance: got %d, want 510000", got)
	}
}

// ---------------------------------------------------------------------------
// 7. Read models
// ---------------------------------------------------------------------------

func TestListOpenTasks_CompletedFlag(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 1_000_000)
	earner := seedAccount(t, store, models.RoleEarner, 0)

	done := seedActiveTask(t, svc, adv.ID, 10, 100)
	open := seedActiveTask(t, svc, adv.ID, 10, 100)
	if _, err := svc.CompleteTask(ctx, earner.ID, done.ID); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	tasks, err := svc.ListOpenTasks(ctx, earner.ID)
	if err != nil {
		t.Fatalf("ListOpenTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("open tasks: got %d, want 2", len(tasks))
	}
	flags := map[uuid.UUID]bool{}
	for _, task := range tasks {
		flags[task.ID] = task.Completed
	}
	if !flags[done.ID] {
		t.Error("completed task should be flagged")
	}
	if flags[open.ID] {
		t.Error("untouched task must not be flagged")
	}
}

func TestAdvertiserStats(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 1_000_000)
	t1 := seedActiveTask(t, svc, adv.ID, 10, 100)
	t2 := seedActiveTask(t, svc, adv.ID, 10, 100)

	for i := 0; i < 3; i++ {
		e := seedAccount(t, store, models.RoleEarner, 0)
		if _, err := svc.CompleteTask(ctx, e.ID, t1.ID); err != nil {
			t.Fatalf("complete t1: %v", err)
		}
	}
	e := seedAccount(t, store, models.RoleEarner, 0)
	if _, err := svc.CompleteTask(ctx, e.ID, t2.ID); err != nil {
		t.Fatalf("complete t2: %v", err)
	}

	stats, err := svc.AdvertiserStats(ctx, adv.ID)
	if err != nil {
		t.Fatalf("AdvertiserStats: %v", err)
	}
	if stats.TasksCount != 2 {
		t.Errorf("tasks count: got %d, want 2", stats.TasksCount)
	}
	if stats.TotalInteractions != 4 {
		t.Errorf("interactions: got %d, want 4", stats.TotalInteractions)
	}
}

func TestTopEarners(t *testing.T) {
	svc, store := newTestLedger()
	ctx := context.Background()

	adv := seedAccount(t, store, models.RoleAdvertiser, 1_000_000)
	low := seedAccount(t, store, models.RoleEarner, 0)
	high := seedAccount(t, store, models.RoleEarner, 0)

	cheap := seedActiveTask(t, svc, adv.ID, 10, 100)
	rich := seedActiveTask(t, svc, adv.ID, 10, 900)

	if _, err := svc.CompleteTask(ctx, low.ID, cheap.ID); err != nil {
		t.Fatalf("complete cheap: %v", err)
	}
	if _, err := svc.CompleteTask(ctx, high.ID, rich.ID); err != nil {
		t.Fatalf("complete rich: %v", err)
	}

	top, err := svc.TopEarners(ctx, 10)
	if err != nil {
		t.Fatalf("TopEarners: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top earners: got %d, want 2", len(top))
	}
	if top[0].ID != high.ID {
		t.Errorf("first place should be the bigger lifetime earner")
	}
	// Advertisers never appear on the leaderboard.
	for _, a := range top {
		if a.Role != models.RoleEarner {
			t.Errorf("non-earner on leaderboard: %s", a.Role)
		}
	}
}
