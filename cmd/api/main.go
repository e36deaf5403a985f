package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"
	"golang.org/x/crypto/bcrypt"

	"github.com/mediaearn/backend/internal/admin"
	"github.com/mediaearn/backend/internal/advice"
	"github.com/mediaearn/backend/internal/auth"
	"github.com/mediaearn/backend/internal/config"
	"github.com/mediaearn/backend/internal/dashboard"
	"github.com/mediaearn/backend/internal/ledger"
	"github.com/mediaearn/backend/internal/models"
	"github.com/mediaearn/backend/internal/repository"
	"github.com/mediaearn/backend/internal/router"
	"github.com/mediaearn/backend/internal/tasks"
	"github.com/mediaearn/backend/internal/validation"
	"github.com/mediaearn/backend/internal/verification"
	"github.com/mediaearn/backend/internal/wallet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	store := repository.New(pool)
	ledgerSvc := ledger.NewService(store)

	if err := seedAdmin(ctx, store, cfg.AdminEmail, cfg.AdminPass); err != nil {
		slog.Error("Failed to seed admin account", "error", err)
		os.Exit(1)
	}

	authSvc := auth.NewService(store, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	// Verification worker settles completions through the ledger.
	workers := river.NewWorkers()
	river.AddWorker(workers, verification.NewVerifyCompletionWorker(ledgerSvc, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	enqueue := func(ctx context.Context, args verification.VerifyCompletionArgs, runAt time.Time) error {
		_, err := riverClient.Insert(ctx, args, &river.InsertOpts{ScheduledAt: runAt})
		return err
	}

	validator, err := validation.New(cfg.SchemaDir)
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}

	var generator advice.Generator = advice.Static{}
	if cfg.AdviceAPIURL != "" {
		generator = advice.NewClient(cfg.AdviceAPIURL, cfg.AdviceAPIKey, logger)
	}

	verifyDelay := cfg.VerifyDelay
	if verifyDelay <= 0 {
		verifyDelay = verification.DefaultDelay
	}

	taskHandler := &tasks.Handler{
		Ledger:      ledgerSvc,
		Validator:   validator,
		Enqueue:     enqueue,
		VerifyDelay: verifyDelay,
		Logger:      logger,
	}
	walletHandler := &wallet.Handler{Ledger: ledgerSvc, Logger: logger}
	adminHandler := &admin.Handler{Ledger: ledgerSvc, Logger: logger}
	dashHandler := &dashboard.Handler{Ledger: ledgerSvc, Advice: generator, Logger: logger}

	apiRouter := router.New(authSvc, authHandler, taskHandler, walletHandler, adminHandler, dashHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (processes scheduled verification jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}

// seedAdmin ensures the reserved admin account exists. Admins cannot be
// created through registration.
func seedAdmin(ctx context.Context, store ledger.Store, email, password string) error {
	_, err := store.Accounts().Get(ctx, models.AdminAccountID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return store.Accounts().Create(ctx, &models.Account{
		ID:           models.AdminAccountID,
		Email:        email,
		Name:         "Platform Admin",
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
	})
}
