package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const readinessTimeout = 5 * time.Second

// ERPHealthChecker reports whether the ERP answers
type ERPHealthChecker interface {
	HealthCheck(ctx context.Context) *erp.HealthStatus
}

type HealthHandler struct {
	erp    ERPHealthChecker
	db     *gorm.DB
	logger *zap.Logger
}

// NewHealthHandler creates the probe handler. db is nil when auditing is disabled.
func NewHealthHandler(erpChecker ERPHealthChecker, db *gorm.DB, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		erp:    erpChecker,
		db:     db,
		logger: logger,
	}
}

// Root godoc
// @Summary Service banner
// @Tags Health
// @Produce json
// @Success 200 {object} domain.StatusResponse
// @Router / [get]
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, domain.StatusResponse{Message: "Sales assistant API is running"})
}

// Live godoc
// @Summary Liveness probe
// @Tags Health
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Ready godoc
// @Summary Readiness probe
// @Description Checks the ERP connection and, when auditing is enabled, the audit database
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]interface{})
	allHealthy := true

	erpStatus := h.erp.HealthCheck(ctx)
	checks["erp"] = erpStatus
	if erpStatus.Status != "healthy" {
		allHealthy = false
	}

	if h.db != nil {
		if err := pingDB(ctx, h.db); err != nil {
			h.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{"status": "healthy"}
		}
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
