package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SessionPurger removes expired session records.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// SessionCleanupJob prunes stale session rows from postgres.
type SessionCleanupJob struct {
	Purger SessionPurger
	Logger *slog.Logger
}

// NewSessionCleanupJob initialises the cleanup handler.
func NewSessionCleanupJob(purger SessionPurger, logger *slog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{Purger: purger, Logger: logger}
}

// Handle executes the cleanup.
func (j *SessionCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Purger == nil {
		return errors.New("session cleanup: handler not configured")
	}
	removed, err := j.Purger.PurgeExpiredSessions(ctx)
	if err != nil {
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("session cleanup completed", slog.Int64("removed", removed))
	}
	return nil
}
