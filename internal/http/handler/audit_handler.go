package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultAuditPageSize = 20
	maxAuditPageSize     = 100
	defaultStatsWindow   = 24 * time.Hour
)

// AuditReader is the read side of the intent audit log
type AuditReader interface {
	Enabled() bool
	List(ctx context.Context, filter *repository.IntentAuditFilter, page, pageSize int) ([]domain.IntentAuditLog, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.IntentAuditLog, error)
	Stats(ctx context.Context, window time.Duration) (map[domain.AuditOutcome]int64, error)
}

// AuditHandler exposes recorded chat intents to operators
type AuditHandler struct {
	audit  AuditReader
	logger *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit AuditReader, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// AuditLogDTO represents an intent audit entry for API response
type AuditLogDTO struct {
	ID         string `json:"id"`
	RequestID  string `json:"requestId,omitempty"`
	SalesRep   string `json:"salesRep,omitempty"`
	Message    string `json:"message"`
	Action     string `json:"action,omitempty"`
	Outcome    string `json:"outcome"`
	Reply      string `json:"reply,omitempty"`
	DurationMs int64  `json:"durationMs"`
	CreatedAt  string `json:"createdAt"`
}

// AuditLogListResponse represents a paginated list of audit entries
type AuditLogListResponse struct {
	Data       []AuditLogDTO `json:"data"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
	// Enabled is false when no audit database is configured
	Enabled bool `json:"enabled"`
}

// AuditStatsResponse counts outcomes over a trailing window
type AuditStatsResponse struct {
	OutcomeCounts map[string]int64 `json:"outcomeCounts"`
	Window        string           `json:"window"`
	Enabled       bool             `json:"enabled"`
}

// List godoc
// @Summary List intent audit entries
// @Description Returns a paginated list of handled chat messages, newest first
// @Tags Audit
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param action query string false "Filter by action"
// @Param outcome query string false "Filter by outcome"
// @Param salesRep query string false "Filter by sales rep"
// @Param requestId query string false "Filter by request ID"
// @Param startTime query string false "Filter by start time (RFC3339)"
// @Param endTime query string false "Filter by end time (RFC3339)"
// @Success 200 {object} AuditLogListResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {string} string "Unauthorized"
// @Failure 403 {string} string "Forbidden"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parseIntQuery(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := parseIntQuery(r, "pageSize", defaultAuditPageSize)
	if pageSize < 1 {
		pageSize = defaultAuditPageSize
	}
	if pageSize > maxAuditPageSize {
		pageSize = maxAuditPageSize
	}

	q := r.URL.Query()
	filter := &repository.IntentAuditFilter{
		Action:    q.Get("action"),
		SalesRep:  q.Get("salesRep"),
		RequestID: q.Get("requestId"),
	}
	if outcome := q.Get("outcome"); outcome != "" {
		o := domain.AuditOutcome(outcome)
		filter.Outcome = &o
	}

	var err error
	if filter.StartTime, err = parseTimeQuery(r, "startTime"); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid startTime format, expected RFC3339")
		return
	}
	if filter.EndTime, err = parseTimeQuery(r, "endTime"); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid endTime format, expected RFC3339")
		return
	}

	logs, total, err := h.audit.List(r.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.Error("failed to list audit logs", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "failed to retrieve audit logs")
		return
	}

	dtos := make([]AuditLogDTO, len(logs))
	for i, log := range logs {
		dtos[i] = toAuditDTO(log)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	respondJSON(w, http.StatusOK, AuditLogListResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Enabled:    h.audit.Enabled(),
	})
}

// GetByID godoc
// @Summary Get intent audit entry by ID
// @Tags Audit
// @Produce json
// @Param id path string true "Audit entry ID"
// @Success 200 {object} AuditLogDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/audit/{id} [get]
func (h *AuditHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid audit log ID")
		return
	}

	log, err := h.audit.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(w, http.StatusNotFound, "audit log not found")
			return
		}
		h.logger.Error("failed to get audit log", zap.String("id", idStr), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "failed to retrieve audit log")
		return
	}

	respondJSON(w, http.StatusOK, toAuditDTO(*log))
}

// GetStats godoc
// @Summary Get intent outcome statistics
// @Description Counts outcomes over a trailing window such as 24h or 30m
// @Tags Audit
// @Produce json
// @Param window query string false "Trailing window as a Go duration (default: 24h)"
// @Success 200 {object} AuditStatsResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /api/v1/audit/stats [get]
func (h *AuditHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	window := defaultStatsWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondWithError(w, http.StatusBadRequest, "invalid window, expected a positive duration such as 24h")
			return
		}
		window = d
	}

	stats, err := h.audit.Stats(r.Context(), window)
	if err != nil {
		h.logger.Error("failed to get audit stats", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "failed to retrieve statistics")
		return
	}

	counts := make(map[string]int64, len(stats))
	for outcome, count := range stats {
		counts[string(outcome)] = count
	}

	respondJSON(w, http.StatusOK, AuditStatsResponse{
		OutcomeCounts: counts,
		Window:        window.String(),
		Enabled:       h.audit.Enabled(),
	})
}

func toAuditDTO(log domain.IntentAuditLog) AuditLogDTO {
	return AuditLogDTO{
		ID:         log.ID.String(),
		RequestID:  log.RequestID,
		SalesRep:   log.SalesRep,
		Message:    log.Message,
		Action:     log.Action,
		Outcome:    string(log.Outcome),
		Reply:      log.Reply,
		DurationMs: log.DurationMs,
		CreatedAt:  log.CreatedAt.Format(time.RFC3339),
	}
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
