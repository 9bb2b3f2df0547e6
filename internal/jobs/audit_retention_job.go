package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuditRetentionJobName is the name of the audit purge job
const AuditRetentionJobName = "audit-retention"

// AuditPurger deletes audit entries older than a retention window
type AuditPurger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditRetentionJob keeps the intent audit table within its retention window
type AuditRetentionJob struct {
	purger    AuditPurger
	retention time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

func NewAuditRetentionJob(purger AuditPurger, retention, timeout time.Duration, logger *zap.Logger) *AuditRetentionJob {
	return &AuditRetentionJob{
		purger:    purger,
		retention: retention,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run deletes expired audit rows. A zero retention keeps everything.
func (j *AuditRetentionJob) Run() {
	if j.retention <= 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	removed, err := j.purger.Purge(ctx, j.retention)
	if err != nil {
		j.logger.Error("audit retention purge failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("audit retention purge completed",
		zap.Int64("removed", removed),
		zap.Duration("retention", j.retention),
		zap.Duration("duration", time.Since(start)))
}

// RegisterAuditRetentionJob registers the audit purge job with the scheduler
func RegisterAuditRetentionJob(scheduler *Scheduler, purger AuditPurger, logger *zap.Logger, cronExpr string, retention, timeout time.Duration) error {
	job := NewAuditRetentionJob(purger, retention, timeout, logger)
	return scheduler.AddJob(AuditRetentionJobName, cronExpr, job.Run)
}
