package dashboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mediaearn/backend/internal/advice"
	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/middleware"
	"github.com/mediaearn/backend/internal/models"
)

const defaultLeaderboardSize = 10

// Handler serves profile, leaderboard, and advisory endpoints.
type Handler struct {
	Ledger ledger.Service
	Advice advice.Generator
	Logger *slog.Logger
}

// Me handles GET /api/v1/account/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	account, err := h.Ledger.GetAccount(r.Context(), ident.AccountID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("get account failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Leaderboard handles GET /api/v1/leaderboard: earners ranked by
// lifetime earnings.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, `{"error":"limit must be between 1 and 100"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	top, err := h.Ledger.TopEarners(r.Context(), limit)
	if err != nil {
		h.Logger.Error("leaderboard failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

type adviceResponse struct {
	Text string `json:"text"`
}

// EarningTips handles GET /api/v1/advice/earnings.
func (h *Handler) EarningTips(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	balance := int64(0)
	completed := 0
	if account, err := h.Ledger.GetAccount(r.Context(), ident.AccountID); err == nil {
		balance = account.Balance
	}
	if txs, err := h.Ledger.Statement(r.Context(), ident.AccountID); err == nil {
		for _, tx := range txs {
			if tx.Kind == models.TxKindEarning {
				completed++
			}
		}
	}
	writeJSON(w, http.StatusOK, adviceResponse{Text: h.Advice.EarningTips(r.Context(), balance, completed)})
}

type engagementRequest struct {
	Type     string `json:"type"`
	Platform string `json:"platform"`
}

// EngagementCopy handles POST /api/v1/advice/engagement.
func (h *Handler) EngagementCopy(w http.ResponseWriter, r *http.Request) {
	var req engagementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Type == "" || req.Platform == "" {
		http.Error(w, `{"error":"type and platform are required"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, adviceResponse{Text: h.Advice.EngagementCopy(r.Context(), req.Type, req.Platform)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
