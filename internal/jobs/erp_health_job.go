package jobs

import (
	"context"
	"time"

	"github.com/straye-as/sales-assistant/internal/erp"
	"go.uber.org/zap"
)

// ERPHealthJobName is the name of the ERP ping job
const ERPHealthJobName = "erp-health"

// ERPPinger reports ERP reachability
type ERPPinger interface {
	HealthCheck(ctx context.Context) *erp.HealthStatus
}

// ERPHealthJob pings the ERP so connectivity problems show up in the logs
// before a sales rep hits them
type ERPHealthJob struct {
	erp     ERPPinger
	timeout time.Duration
	logger  *zap.Logger

	// last holds the previous status so only transitions are logged at Info
	last string
}

func NewERPHealthJob(pinger ERPPinger, timeout time.Duration, logger *zap.Logger) *ERPHealthJob {
	return &ERPHealthJob{
		erp:     pinger,
		timeout: timeout,
		logger:  logger,
	}
}

// Run pings the ERP once. SkipIfStillRunning keeps runs from overlapping.
func (j *ERPHealthJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	status := j.erp.HealthCheck(ctx)
	fields := []zap.Field{
		zap.String("status", status.Status),
		zap.Duration("latency", status.Latency),
		zap.String("server_version", status.ServerVersion),
		zap.Bool("authenticated", status.Authenticated),
	}

	switch {
	case status.Status != "healthy":
		j.logger.Warn("ERP unreachable", append(fields, zap.String("error", status.Error))...)
	case j.last != status.Status:
		j.logger.Info("ERP reachable", fields...)
	default:
		j.logger.Debug("ERP reachable", fields...)
	}
	j.last = status.Status
}

// RegisterERPHealthJob registers the ERP ping job with the scheduler
func RegisterERPHealthJob(scheduler *Scheduler, pinger ERPPinger, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewERPHealthJob(pinger, timeout, logger)
	return scheduler.AddJob(ERPHealthJobName, cronExpr, job.Run)
}
