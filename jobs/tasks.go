package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/clinicore/clinicore/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurgeSessions removes expired browser sessions.
	TaskPurgeSessions = "sessions:purge_expired"
	// TaskPurgeAdminSessions removes expired operator sessions.
	TaskPurgeAdminSessions = "sessions:purge_admin_expired"
	// TaskPurgeResetTokens removes expired password reset tokens.
	TaskPurgeResetTokens = "reset_tokens:purge"
	// TaskPurgeIdempotencyKeys removes stale idempotency records.
	TaskPurgeIdempotencyKeys = "idempotency:purge"
)

// SessionPurger deletes expired session rows.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// ResetTokenPurger deletes expired password reset tokens.
type ResetTokenPurger interface {
	DeleteExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// IdempotencyPurger deletes idempotency keys older than a retention window.
type IdempotencyPurger interface {
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}

// NewPurgeSessionsHandler builds a handler purging expired sessions for
// one namespace. taskType names the task for metrics and logs, so the
// user and operator purges stay distinguishable.
func NewPurgeSessionsHandler(taskType string, purger SessionPurger, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(taskType)
		removed, err := purger.DeleteExpiredSessions(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("purge sessions", slog.String("task", taskType), slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddPurged(taskType, removed)
		logger.Info("purged expired sessions", slog.String("task", taskType), slog.Int64("removed", removed))
		return tracker.End(nil)
	}
}

// NewPurgeResetTokensHandler builds the handler for TaskPurgeResetTokens.
func NewPurgeResetTokensHandler(purger ResetTokenPurger, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskPurgeResetTokens)
		removed, err := purger.DeleteExpiredResetTokens(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("purge reset tokens", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddPurged(TaskPurgeResetTokens, removed)
		logger.Info("purged expired reset tokens", slog.Int64("removed", removed))
		return tracker.End(nil)
	}
}

// NewPurgeIdempotencyHandler builds the handler for TaskPurgeIdempotencyKeys.
// Keys are retained for a day so that client retries stay deduplicated.
func NewPurgeIdempotencyHandler(purger IdempotencyPurger, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskPurgeIdempotencyKeys)
		removed, err := purger.Cleanup(ctx, time.Now().UTC().Add(-24*time.Hour))
		if err != nil {
			logger.Error("purge idempotency keys", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddPurged(TaskPurgeIdempotencyKeys, removed)
		logger.Info("purged idempotency keys", slog.Int64("removed", removed))
		return tracker.End(nil)
	}
}
