package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/straye-as/sales-assistant/internal/auth"
	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/http/middleware"
	"go.uber.org/zap"
)

const maxChatBodyBytes = 1 << 20

// ChatResponder answers one chat message. It never fails; errors are part of the reply.
type ChatResponder interface {
	Handle(ctx context.Context, requestID string, req *domain.ChatRequest) *domain.ChatResponse
}

type ChatHandler struct {
	chat   ChatResponder
	logger *zap.Logger
}

func NewChatHandler(chat ChatResponder, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
	}
}

// Chat godoc
// @Summary Send a chat message
// @Description Classifies the message into a sales action, runs it against the ERP and returns the reply text.
// @Description Business failures (unknown customer, ambiguous product, locked order, ERP errors) are returned as a 200 reply.
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body domain.ChatRequest true "Message with optional history"
// @Success 200 {object} domain.ChatResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 429 {object} domain.APIError
// @Security ApiKeyAuth
// @Security BearerAuth
// @Router /api/v1/chat [post]
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			respondWithError(w, http.StatusBadRequest, "Request body is empty")
		default:
			respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		}
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondProblem(w, domain.APIError{
			Type:   domain.ErrorTypeValidation,
			Title:  "Validation Error",
			Status: http.StatusBadRequest,
			Detail: "One or more fields failed validation",
			Errors: map[string]string{"message": "message is required"},
		})
		return
	}

	if strings.TrimSpace(req.SalesRepName) == "" {
		req.SalesRepName = auth.DisplayNameFromContext(r.Context())
	}

	resp := h.chat.Handle(r.Context(), middleware.RequestIDFromContext(r.Context()), &req)
	respondJSON(w, http.StatusOK, resp)
}
