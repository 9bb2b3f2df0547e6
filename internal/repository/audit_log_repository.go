package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/sales-assistant/internal/domain"
	"gorm.io/gorm"
)

// IntentAuditFilter represents filter options for querying intent audit logs
type IntentAuditFilter struct {
	SalesRep  string
	Action    string
	Outcome   *domain.AuditOutcome
	RequestID string
	StartTime *time.Time
	EndTime   *time.Time
}

// IntentAuditRepository handles intent audit log data access
type IntentAuditRepository struct {
	db *gorm.DB
}

// NewIntentAuditRepository creates a new intent audit repository
func NewIntentAuditRepository(db *gorm.DB) *IntentAuditRepository {
	return &IntentAuditRepository{db: db}
}

// Create inserts a new audit entry (append-only)
func (r *IntentAuditRepository) Create(ctx context.Context, log *domain.IntentAuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// GetByID retrieves an audit entry by ID
func (r *IntentAuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.IntentAuditLog, error) {
	var log domain.IntentAuditLog
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// List retrieves audit entries with pagination and optional filters, newest first
func (r *IntentAuditRepository) List(ctx context.Context, filter *IntentAuditFilter, page, pageSize int) ([]domain.IntentAuditLog, int64, error) {
	var logs []domain.IntentAuditLog
	var total int64

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.IntentAuditLog{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&logs).Error

	return logs, total, err
}

// CountByOutcome counts audit entries grouped by outcome within a time range
func (r *IntentAuditRepository) CountByOutcome(ctx context.Context, start, end time.Time) (map[domain.AuditOutcome]int64, error) {
	type result struct {
		Outcome domain.AuditOutcome
		Count   int64
	}

	var results []result
	err := r.db.WithContext(ctx).Model(&domain.IntentAuditLog{}).
		Select("outcome, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("outcome").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.AuditOutcome]int64, len(results))
	for _, res := range results {
		counts[res.Outcome] = res.Count
	}
	return counts, nil
}

// DeleteOlderThan removes audit entries created before cutoff and returns how many were removed
func (r *IntentAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.IntentAuditLog{})
	return result.RowsAffected, result.Error
}

func (r *IntentAuditRepository) applyFilters(query *gorm.DB, filter *IntentAuditFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.SalesRep != "" {
		query = query.Where("sales_rep = ?", filter.SalesRep)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Outcome != nil {
		query = query.Where("outcome = ?", *filter.Outcome)
	}
	if filter.RequestID != "" {
		query = query.Where("request_id = ?", filter.RequestID)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}
	return query
}
