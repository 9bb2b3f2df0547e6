package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/straye-as/sales-assistant/internal/auth"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/erp"
	"github.com/straye-as/sales-assistant/internal/erp/erptest"
	"github.com/straye-as/sales-assistant/internal/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingResponder struct {
	requestID string
	req       *domain.ChatRequest
}

func (r *recordingResponder) Handle(_ context.Context, requestID string, req *domain.ChatRequest) *domain.ChatResponse {
	r.requestID = requestID
	r.req = req
	return &domain.ChatResponse{Reply: "Xin chào " + req.SalesRepName}
}

func postChat(t *testing.T, h http.HandlerFunc, body string, ctx context.Context) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body))
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestChatHandler_Success(t *testing.T) {
	responder := &recordingResponder{}
	h := handler.NewChatHandler(responder, zap.NewNop())

	rec := postChat(t, h.Chat, `{"message":"giá iPhone 15","history":[{"role":"user","content":"hi"}],"sales_rep_name":"Lan"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Xin chào Lan", resp.Reply)
	assert.Equal(t, "giá iPhone 15", responder.req.Message)
	require.Len(t, responder.req.History, 1)
	assert.Equal(t, "user", responder.req.History[0].Role)
}

func TestChatHandler_SalesRepFromCaller(t *testing.T) {
	responder := &recordingResponder{}
	h := handler.NewChatHandler(responder, zap.NewNop())
	ctx := auth.WithCaller(context.Background(), &auth.Caller{ID: "u-1", DisplayName: "Chị Lan"})

	rec := postChat(t, h.Chat, `{"message":"xem đơn"}`, ctx)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Chị Lan", responder.req.SalesRepName)

	rec = postChat(t, h.Chat, `{"message":"xem đơn","sales_rep_name":"Tuấn"}`, ctx)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tuấn", responder.req.SalesRepName)
}

func TestChatHandler_AnonymousLeavesSalesRepEmpty(t *testing.T) {
	responder := &recordingResponder{}
	h := handler.NewChatHandler(responder, zap.NewNop())

	rec := postChat(t, h.Chat, `{"message":"xem đơn"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, responder.req.SalesRepName)
}

func TestChatHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"empty body", ``, ""},
		{"malformed json", `{"message":`, ""},
		{"wrong type", `{"message":42}`, ""},
		{"missing message", `{"history":[]}`, "message"},
		{"blank message", `{"message":"   "}`, "message"},
		{"history without role", `{"message":"hi","history":[{"content":"x"}]}`, "history[0].role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responder := &recordingResponder{}
			h := handler.NewChatHandler(responder, zap.NewNop())

			rec := postChat(t, h.Chat, tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, responder.req)

			var problem domain.APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, http.StatusBadRequest, problem.Status)
			if tt.wantField != "" {
				assert.Equal(t, domain.ErrorTypeValidation, problem.Type)
				assert.Contains(t, problem.Errors, tt.wantField)
			}
		})
	}
}

type stubChecker struct{ status string }

func (s stubChecker) HealthCheck(context.Context) *erp.HealthStatus {
	return &erp.HealthStatus{Status: s.status}
}

func TestHealthHandler_RootAndLive(t *testing.T) {
	h := handler.NewHealthHandler(stubChecker{"healthy"}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Sales assistant API is running"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHealthHandler_Ready(t *testing.T) {
	srv := erptest.NewServer(t)
	client, err := erp.NewClient(srv.Config(), zap.NewNop())
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	h := handler.NewHealthHandler(client, db, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string                            `json:"status"`
		Checks map[string]map[string]interface{} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["erp"]["status"])
	assert.Equal(t, "17.0", body.Checks["erp"]["server_version"])
	assert.Equal(t, "healthy", body.Checks["database"]["status"])
}

func TestHealthHandler_ReadyUnhealthy(t *testing.T) {
	h := handler.NewHealthHandler(stubChecker{"unhealthy"}, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.NotContains(t, rec.Body.String(), "database")
}
