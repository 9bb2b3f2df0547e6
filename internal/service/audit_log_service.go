package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// auditWriteTimeout bounds a single background audit insert
const auditWriteTimeout = 5 * time.Second

// AuditLogService records handled chat messages. A service built without a
// repository is disabled and every method is a no-op.
type AuditLogService struct {
	auditRepo *repository.IntentAuditRepository
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewAuditLogService creates a new audit log service. auditRepo may be nil.
func NewAuditLogService(auditRepo *repository.IntentAuditRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Enabled reports whether entries are persisted
func (s *AuditLogService) Enabled() bool {
	return s != nil && s.auditRepo != nil
}

// Record persists one entry
func (s *AuditLogService) Record(ctx context.Context, entry *domain.IntentAuditLog) error {
	if !s.Enabled() {
		return nil
	}
	return s.auditRepo.Create(ctx, entry)
}

// RecordAsync persists one entry in the background. Failures are only logged.
func (s *AuditLogService) RecordAsync(ctx context.Context, entry *domain.IntentAuditLog) {
	if !s.Enabled() {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
		defer cancel()

		if err := s.Record(writeCtx, entry); err != nil {
			s.logger.Error("Failed to record intent audit entry",
				zap.String("request_id", entry.RequestID),
				zap.String("action", entry.Action),
				zap.Error(err),
			)
		}
	}()
}

// GetByID returns one recorded entry. A disabled service reports gorm.ErrRecordNotFound.
func (s *AuditLogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.IntentAuditLog, error) {
	if !s.Enabled() {
		return nil, gorm.ErrRecordNotFound
	}
	return s.auditRepo.GetByID(ctx, id)
}

// Wait blocks until background writes have finished
func (s *AuditLogService) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// List returns recorded entries, newest first
func (s *AuditLogService) List(ctx context.Context, filter *repository.IntentAuditFilter, page, pageSize int) ([]domain.IntentAuditLog, int64, error) {
	if !s.Enabled() {
		return nil, 0, nil
	}
	return s.auditRepo.List(ctx, filter, page, pageSize)
}

// Stats counts outcomes over the last window
func (s *AuditLogService) Stats(ctx context.Context, window time.Duration) (map[domain.AuditOutcome]int64, error) {
	if !s.Enabled() {
		return map[domain.AuditOutcome]int64{}, nil
	}
	end := time.Now().UTC()
	return s.auditRepo.CountByOutcome(ctx, end.Add(-window), end)
}

// Purge deletes entries older than retention and returns how many were removed
func (s *AuditLogService) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if !s.Enabled() || retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-retention)
	removed, err := s.auditRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Purged intent audit entries",
		zap.Int64("removed", removed),
		zap.Time("cutoff", cutoff),
	)
	return removed, nil
}
