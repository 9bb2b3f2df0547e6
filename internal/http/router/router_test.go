package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/straye-as/sales-assistant/internal/auth"
	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
	"github.com/straye-as/sales-assistant/internal/http/handler"
	"github.com/straye-as/sales-assistant/internal/http/middleware"
	"github.com/straye-as/sales-assistant/internal/http/router"
	"github.com/straye-as/sales-assistant/internal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type echoChat struct{}

func (echoChat) Handle(_ context.Context, requestID string, req *domain.ChatRequest) *domain.ChatResponse {
	return &domain.ChatResponse{Reply: req.Message}
}

type healthyERP struct{}

func (healthyERP) HealthCheck(context.Context) *erp.HealthStatus {
	return &erp.HealthStatus{Status: "healthy"}
}

func newHandler(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	log := zap.NewNop()
	return router.NewRouter(
		cfg,
		log,
		auth.NewMiddleware(&cfg.Auth, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		handler.NewChatHandler(echoChat{}, log),
		handler.NewHealthHandler(healthyERP{}, nil, log),
		handler.NewAuditHandler(service.NewAuditLogService(nil, log), log),
	).Setup()
}

func do(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	h := newHandler(t, &config.Config{})

	tests := []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/swagger/index.html", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(h, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestRouter_ChatRoutesOpen(t *testing.T) {
	h := newHandler(t, &config.Config{})

	for _, path := range []string{"/api/v1/chat", "/chat"} {
		t.Run(path, func(t *testing.T) {
			rec := do(h, http.MethodPost, path, `{"message":"xin chào"}`, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"reply":"xin chào"}`, rec.Body.String())
		})
	}

	rec := do(h, http.MethodGet, "/api/v1/chat", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_ChatRequiresAuthWhenEnabled(t *testing.T) {
	h := newHandler(t, &config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "k"}})

	rec := do(h, http.MethodPost, "/chat", `{"message":"hi"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodPost, "/chat", `{"message":"hi"}`, map[string]string{"x-api-key": "k"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Swagger(t *testing.T) {
	h := newHandler(t, &config.Config{Server: config.ServerConfig{EnableSwagger: true}})

	rec := do(h, http.MethodGet, "/swagger/doc.json", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/chat")
	assert.Contains(t, rec.Body.String(), "/api/v1/audit/stats")
}

func TestRouter_AuditRequiresRole(t *testing.T) {
	h := newHandler(t, &config.Config{Auth: config.AuthConfig{APIKey: "k"}})

	rec := do(h, http.MethodGet, "/api/v1/audit", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "audit needs credentials even when chat is open")

	for _, path := range []string{"/api/v1/audit", "/api/v1/audit/stats"} {
		rec = do(h, http.MethodGet, path, "", map[string]string{"x-api-key": "k"})
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `"enabled":false`)
	}
}

func TestRouter_AuditRoleNotGranted(t *testing.T) {
	h := newHandler(t, &config.Config{Auth: config.AuthConfig{APIKey: "k", AuditRoles: []string{"Audit.Read"}}})

	rec := do(h, http.MethodGet, "/api/v1/audit", "", map[string]string{"x-api-key": "k"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
