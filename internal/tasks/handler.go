package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/middleware"
	"github.com/mediaearn/backend/internal/models"
	"github.com/mediaearn/backend/internal/validation"
	"github.com/mediaearn/backend/internal/verification"
)

// EnqueueVerificationFunc schedules the simulated verification check.
// Provided by main as a closure over river.Client.Insert.
type EnqueueVerificationFunc func(ctx context.Context, args verification.VerifyCompletionArgs, runAt time.Time) error

// Handler serves the task marketplace endpoints.
type Handler struct {
	Ledger      ledger.Service
	Validator   *validation.Validator
	Enqueue     EnqueueVerificationFunc
	VerifyDelay time.Duration
	Logger      *slog.Logger
}

type fundTaskRequest struct {
	Platform   string `json:"platform"`
	Type       string `json:"type"`
	Link       string `json:"link"`
	ProofTitle string `json:"proof_title"`
	Guide      string `json:"guide"`
	Quantity   int    `json:"quantity"`
	UnitReward int64  `json:"unit_reward_kobo"`
}

// Create handles POST /api/v1/tasks: the advertiser funds a campaign.
// Auth -> role check -> schema validation -> FundTask -> 201.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if ident.Role != models.RoleAdvertiser {
		http.Error(w, `{"error":"only advertisers can fund tasks"}`, http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return
	}
	if err := h.Validator.Validate(validation.SchemaFundTask, body); err != nil {
		h.Logger.Info("fund task payload rejected", "error", err)
		http.Error(w, `{"error":"invalid task payload"}`, http.StatusBadRequest)
		return
	}
	var req fundTaskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Ledger.FundTask(r.Context(), ident.AccountID, ledger.FundTaskParams{
		Platform:   req.Platform,
		Type:       req.Type,
		URL:        req.Link,
		ProofTitle: req.ProofTitle,
		Guide:      req.Guide,
		Quantity:   req.Quantity,
		UnitReward: req.UnitReward,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			http.Error(w, `{"error":"insufficient funds"}`, http.StatusPaymentRequired)
		case errors.Is(err, ledger.ErrInvalidQuantity):
			http.Error(w, `{"error":"minimum 10 people"}`, http.StatusBadRequest)
		case errors.Is(err, ledger.ErrInvalidAmount):
			http.Error(w, `{"error":"reward must be positive"}`, http.StatusBadRequest)
		case errors.Is(err, ledger.ErrUnsupportedPlatform), errors.Is(err, ledger.ErrUnsupportedType):
			http.Error(w, `{"error":"unsupported platform or task type"}`, http.StatusBadRequest)
		default:
			h.Logger.Error("fund task failed", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// List handles GET /api/v1/tasks: active tasks with the caller's
// completed flag set.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	tasks, err := h.Ledger.ListOpenTasks(r.Context(), ident.AccountID)
	if err != nil {
		h.Logger.Error("list tasks failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Mine handles GET /api/v1/tasks/mine: the advertiser's own campaigns.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	tasks, err := h.Ledger.ListAdvertiserTasks(r.Context(), ident.AccountID)
	if err != nil {
		h.Logger.Error("list advertiser tasks failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Verify handles POST /api/v1/tasks/{id}/verify: the earner reports the
// interactive step done and the simulated check is scheduled. Settlement
// happens in the verification worker, never in this request.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if ident.Role != models.RoleEarner {
		http.Error(w, `{"error":"only earners can complete tasks"}`, http.StatusForbidden)
		return
	}
	taskID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	// Reject obviously dead submissions up front; the worker re-checks
	// everything authoritatively inside the settlement transaction.
	task, err := h.Ledger.GetTask(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, ledger.ErrTaskNotFound) {
			http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("verify precheck failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if task.Status != models.TaskStatusActive {
		http.Error(w, `{"error":"task is not active"}`, http.StatusConflict)
		return
	}

	args := verification.VerifyCompletionArgs{TaskID: taskID, EarnerID: ident.AccountID}
	if err := h.Enqueue(r.Context(), args, time.Now().Add(h.VerifyDelay)); err != nil {
		h.Logger.Error("enqueue verification failed", "error", err)
		http.Error(w, `{"error":"failed to schedule verification"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "verifying"})
}

// Stats handles GET /api/v1/advertiser/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	stats, err := h.Ledger.AdvertiserStats(r.Context(), ident.AccountID)
	if err != nil {
		h.Logger.Error("advertiser stats failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
