package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/middleware"
)

// Handler serves the wallet endpoints: statement, deposits, and
// withdrawal requests.
type Handler struct {
	Ledger ledger.Service
	Logger *slog.Logger
}

type amountRequest struct {
	Amount int64 `json:"amount_kobo"`
}

type balanceResponse struct {
	Balance int64 `json:"balance_kobo"`
}

// Transactions handles GET /api/v1/wallet/transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	txs, err := h.Ledger.Statement(r.Context(), ident.AccountID)
	if err != nil {
		h.Logger.Error("statement failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// Deposit handles POST /api/v1/wallet/deposit. Payment provider
// integration is out of scope; the credit is applied directly.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	balance, err := h.Ledger.Deposit(r.Context(), ident.AccountID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
		case errors.Is(err, ledger.ErrAccountNotFound):
			http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)
		default:
			h.Logger.Error("deposit failed", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

// Withdraw handles POST /api/v1/wallet/withdraw. The amount is held
// immediately; an admin later approves or rejects the request.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	entry, err := h.Ledger.RequestWithdrawal(r.Context(), ident.AccountID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
		case errors.Is(err, ledger.ErrBelowMinimum):
			msg := fmt.Sprintf(`{"error":"minimum withdrawal is %d kobo"}`, ledger.MinWithdrawal)
			http.Error(w, msg, http.StatusBadRequest)
		case errors.Is(err, ledger.ErrInsufficientFunds):
			http.Error(w, `{"error":"insufficient funds"}`, http.StatusPaymentRequired)
		default:
			h.Logger.Error("withdrawal request failed", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
