package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/models"
)

// Handler serves the admin console endpoints. Role enforcement happens in
// the router middleware; everything here assumes an admin caller.
type Handler struct {
	Ledger ledger.Service
	Logger *slog.Logger
}

// PendingTasks handles GET /api/v1/admin/tasks.
func (h *Handler) PendingTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Ledger.ListTasksByStatus(r.Context(), models.TaskStatusPendingApproval)
	if err != nil {
		h.Logger.Error("list pending tasks failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ApproveTask handles POST /api/v1/admin/tasks/{id}/approve.
func (h *Handler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	h.reviewTask(w, r, true)
}

// RejectTask handles POST /api/v1/admin/tasks/{id}/reject. Rejection
// refunds the full escrowed budget to the advertiser.
func (h *Handler) RejectTask(w http.ResponseWriter, r *http.Request) {
	h.reviewTask(w, r, false)
}

func (h *Handler) reviewTask(w http.ResponseWriter, r *http.Request, approve bool) {
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}
	if approve {
		err = h.Ledger.ApproveTask(r.Context(), taskID)
	} else {
		err = h.Ledger.RejectTask(r.Context(), taskID)
	}
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrTaskNotFound):
			http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		case errors.Is(err, ledger.ErrInvalidTransition):
			http.Error(w, `{"error":"task is not pending approval"}`, http.StatusConflict)
		default:
			h.Logger.Error("task review failed", "task_id", taskID, "approve", approve, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	status := models.TaskStatusActive
	if !approve {
		status = models.TaskStatusRejected
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

type resolveWithdrawalRequest struct {
	Approve bool `json:"approve"`
}

// ResolveWithdrawal handles POST /api/v1/admin/withdrawals/{id}/resolve.
func (h *Handler) ResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid transaction id"}`, http.StatusBadRequest)
		return
	}
	var req resolveWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := h.Ledger.ResolveWithdrawal(r.Context(), txID, req.Approve); err != nil {
		switch {
		case errors.Is(err, ledger.ErrTransactionNotFound):
			http.Error(w, `{"error":"withdrawal not found"}`, http.StatusNotFound)
		case errors.Is(err, ledger.ErrInvalidTransition):
			http.Error(w, `{"error":"withdrawal already resolved"}`, http.StatusConflict)
		default:
			h.Logger.Error("resolve withdrawal failed", "transaction_id", txID, "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"approved": req.Approve})
}

// Users handles GET /api/v1/admin/users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Ledger.ListAccounts(r.Context())
	if err != nil {
		h.Logger.Error("list accounts failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// Transactions handles GET /api/v1/admin/transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Ledger.AllTransactions(r.Context())
	if err != nil {
		h.Logger.Error("list transactions failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
