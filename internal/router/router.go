package router

import (
	"net/http"

	"github.com/mediaearn/backend/internal/admin"
	"github.com/mediaearn/backend/internal/auth"
	"github.com/mediaearn/backend/internal/dashboard"
	"github.com/mediaearn/backend/internal/middleware"
	"github.com/mediaearn/backend/internal/models"
	"github.com/mediaearn/backend/internal/tasks"
	"github.com/mediaearn/backend/internal/wallet"
)

// New returns an http.Handler serving the API under /api/v1.
// Middleware chain: RequireAuth -> (RequireRole where needed) -> handler.
func New(
	authSvc auth.Service,
	authHandler *auth.Handler,
	taskHandler *tasks.Handler,
	walletHandler *wallet.Handler,
	adminHandler *admin.Handler,
	dashHandler *dashboard.Handler,
) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	requireAuth := middleware.RequireAuth(authSvc)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	mux.Handle("GET "+base+"/tasks", authed(taskHandler.List))
	mux.Handle("POST "+base+"/tasks", authed(taskHandler.Create))
	mux.Handle("GET "+base+"/tasks/mine", authed(taskHandler.Mine))
	mux.Handle("POST "+base+"/tasks/{id}/verify", authed(taskHandler.Verify))
	mux.Handle("GET "+base+"/advertiser/stats", authed(taskHandler.Stats))

	mux.Handle("GET "+base+"/wallet/transactions", authed(walletHandler.Transactions))
	mux.Handle("POST "+base+"/wallet/deposit", authed(walletHandler.Deposit))
	mux.Handle("POST "+base+"/wallet/withdraw", authed(walletHandler.Withdraw))

	mux.Handle("GET "+base+"/account/me", authed(dashHandler.Me))
	mux.Handle("GET "+base+"/leaderboard", authed(dashHandler.Leaderboard))
	mux.Handle("GET "+base+"/advice/earnings", authed(dashHandler.EarningTips))
	mux.Handle("POST "+base+"/advice/engagement", authed(dashHandler.EngagementCopy))

	mux.Handle("GET "+base+"/admin/tasks", requireAuth(adminOnly(http.HandlerFunc(adminHandler.PendingTasks))))
	mux.Handle("POST "+base+"/admin/tasks/{id}/approve", requireAuth(adminOnly(http.HandlerFunc(adminHandler.ApproveTask))))
	mux.Handle("POST "+base+"/admin/tasks/{id}/reject", requireAuth(adminOnly(http.HandlerFunc(adminHandler.RejectTask))))
	mux.Handle("POST "+base+"/admin/withdrawals/{id}/resolve", requireAuth(adminOnly(http.HandlerFunc(adminHandler.ResolveWithdrawal))))
	mux.Handle("GET "+base+"/admin/users", requireAuth(adminOnly(http.HandlerFunc(adminHandler.Users))))
	mux.Handle("GET "+base+"/admin/transactions", requireAuth(adminOnly(http.HandlerFunc(adminHandler.Transactions))))

	return mux
}
