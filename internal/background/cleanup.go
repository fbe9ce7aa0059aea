package background

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const cleanupTimeout = 30 * time.Second

// AttemptPruner deletes ledger rows older than a cutoff
type AttemptPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager prunes the attempt ledger on a cron schedule
type CleanupManager struct {
	pruner    AttemptPruner
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	cron      *cron.Cron
	now       func() time.Time
}

// NewCleanupManager creates a new cleanup manager. schedule is a standard
// five-field cron expression.
func NewCleanupManager(pruner AttemptPruner, retention time.Duration, schedule string, logger *slog.Logger) *CleanupManager {
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	return &CleanupManager{
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
		cron:      c,
		now:       time.Now,
	}
}

// Start runs one cleanup immediately, then schedules the rest. It returns
// once the job is scheduled; call Stop to end it.
func (cm *CleanupManager) Start(ctx context.Context) error {
	_, err := cm.cron.AddFunc(cm.schedule, func() {
		cm.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", cm.schedule, err)
	}

	cm.RunOnce(ctx)
	cm.cron.Start()
	cm.logger.Info("attempt cleanup scheduled",
		slog.String("schedule", cm.schedule),
		slog.Duration("retention", cm.retention))
	return nil
}

// RunOnce deletes attempts older than the retention horizon
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	cutoff := cm.now().Add(-cm.retention)
	rowsDeleted, err := cm.pruner.DeleteOlderThan(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to prune pin attempts", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("pin attempt cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop stops the scheduler and waits for a running job to finish
func (cm *CleanupManager) Stop() {
	<-cm.cron.Stop().Done()
	cm.logger.Info("cleanup manager stopped")
}
