package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/clinicore/clinicore/internal/app"
	"github.com/clinicore/clinicore/internal/auth"
	jobmetrics "github.com/clinicore/clinicore/internal/jobs"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/superadmin"
	"github.com/clinicore/clinicore/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	authRepo := auth.NewRepository(pool)
	adminRepo := superadmin.NewRepository(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := jobmetrics.NewMetrics(nil)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPurgeSessions, Handler: jobs.NewPurgeSessionsHandler(jobs.TaskPurgeSessions, authRepo, metrics, logger)},
			{Type: jobs.TaskPurgeAdminSessions, Handler: jobs.NewPurgeSessionsHandler(jobs.TaskPurgeAdminSessions, adminRepo, metrics, logger)},
			{Type: jobs.TaskPurgeResetTokens, Handler: jobs.NewPurgeResetTokensHandler(authRepo, metrics, logger)},
			{Type: jobs.TaskPurgeIdempotencyKeys, Handler: jobs.NewPurgeIdempotencyHandler(idempotencyStore, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: asynq.NewTask(jobs.TaskPurgeSessions, nil)},
			{Spec: "*/30 * * * *", Task: asynq.NewTask(jobs.TaskPurgeAdminSessions, nil)},
			{Spec: "15 * * * *", Task: asynq.NewTask(jobs.TaskPurgeResetTokens, nil)},
			{Spec: "45 3 * * *", Task: asynq.NewTask(jobs.TaskPurgeIdempotencyKeys, nil)},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
