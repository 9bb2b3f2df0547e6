package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/straye-as/sales-assistant/internal/domain"
	"github.com/straye-as/sales-assistant/internal/intent"
	"go.uber.org/zap"
)

// BusyReply is shown when the language model cannot be reached
const BusyReply = "Hệ thống đang bận, vui lòng thử lại sau."

// DefaultSalesRep is used when neither the request nor the caller names a sales rep
const DefaultSalesRep = "Admin"

// remoteReplyFormats holds the user-facing text for an ERP failure, keyed by the
// action being handled rather than the ERP call that failed
var remoteReplyFormats = map[intent.Action]string{
	intent.ActionCreateQuotation:   "❌ Lỗi khi tạo báo giá: %s",
	intent.ActionConfirmQuotation:  "❌ Lỗi khi xác nhận báo giá: %s",
	intent.ActionUpdateQuotation:   "❌ Lỗi khi cập nhật báo giá: %s",
	intent.ActionCreateOrder:       "❌ Lỗi khi tạo đơn hàng: %s. Vui lòng liên hệ quản trị viên.",
	intent.ActionCheckOrders:       "❌ Lỗi tra cứu: %s",
	intent.ActionCancelOrder:       "❌ Lỗi khi hủy đơn hàng: %s",
	intent.ActionCreateOpportunity: "❌ Lỗi khi tạo CRM Opportunity: %s",
}

const systemErrorFormat = "❌ Lỗi hệ thống: %s"

// Classifier turns a message and its history into the model's raw JSON answer
type Classifier interface {
	Classify(ctx context.Context, history []domain.HistoryMessage, message string) (string, error)
}

// ChatService handles one chat message: classify, dispatch, reply.
// Every failure becomes a reply; nothing is returned as an error.
type ChatService struct {
	classifier      Classifier
	dispatcher      *Dispatcher
	audit           *AuditLogService
	defaultSalesRep string
	logger          *zap.Logger
}

func NewChatService(
	classifier Classifier,
	dispatcher *Dispatcher,
	audit *AuditLogService,
	defaultSalesRep string,
	logger *zap.Logger,
) *ChatService {
	if defaultSalesRep == "" {
		defaultSalesRep = DefaultSalesRep
	}
	return &ChatService{
		classifier:      classifier,
		dispatcher:      dispatcher,
		audit:           audit,
		defaultSalesRep: defaultSalesRep,
		logger:          logger,
	}
}

// Handle answers one message. requestID ties the audit entry to the HTTP request log.
func (s *ChatService) Handle(ctx context.Context, requestID string, req *domain.ChatRequest) *domain.ChatResponse {
	start := time.Now()
	salesRep := strings.TrimSpace(req.SalesRepName)
	if salesRep == "" {
		salesRep = s.defaultSalesRep
	}

	action, replyText, err := s.handle(ctx, req, salesRep)
	if err != nil {
		replyText = ReplyFor(action, err)
	}
	outcome := OutcomeOf(err)

	log := s.logger.With(
		zap.String("request_id", requestID),
		zap.String("action", string(action)),
		zap.String("outcome", string(outcome)),
		zap.Duration("duration", time.Since(start)),
	)
	switch outcome {
	case domain.OutcomeOK:
		log.Info("Chat message handled")
	case domain.OutcomeRemoteFailure:
		log.Error("Chat message failed", zap.Error(err))
	default:
		log.Info("Chat message rejected", zap.Error(err))
	}

	s.audit.RecordAsync(ctx, &domain.IntentAuditLog{
		RequestID:  requestID,
		SalesRep:   salesRep,
		Message:    req.Message,
		Action:     string(action),
		Outcome:    outcome,
		Reply:      replyText,
		DurationMs: time.Since(start).Milliseconds(),
	})

	return &domain.ChatResponse{Reply: replyText}
}

func (s *ChatService) handle(ctx context.Context, req *domain.ChatRequest, salesRep string) (intent.Action, string, error) {
	content, err := s.classifier.Classify(ctx, req.History, req.Message)
	if err != nil {
		var rf *domain.RemoteFailure
		if !errors.As(err, &rf) {
			err = &domain.RemoteFailure{Op: OpClassify, Err: err}
		}
		return "", "", err
	}

	in, err := intent.Parse(content)
	if err != nil {
		s.logger.Debug("Model output rejected", zap.String("content", content), zap.Error(err))
		return "", "", err
	}

	text, err := s.dispatcher.Dispatch(ctx, in, salesRep)
	return in.Action, text, err
}

// ReplyFor renders any error raised while handling action as the text shown to the user
func ReplyFor(action intent.Action, err error) string {
	var (
		unrecognized *intent.UnrecognizedError
		inputErr     *domain.InputError
		notFoundErr  *domain.NotFoundError
		ambiguousErr *domain.AmbiguousError
		conflictErr  *domain.StateConflictError
		remoteErr    *domain.RemoteFailure
	)

	switch {
	case errors.As(err, &unrecognized):
		return unrecognized.Message()
	case errors.As(err, &inputErr):
		return inputErr.Error()
	case errors.As(err, &notFoundErr):
		return notFoundErr.Error()
	case errors.As(err, &ambiguousErr):
		return ambiguousErr.Error()
	case errors.As(err, &conflictErr):
		return conflictErr.Error()
	case errors.As(err, &remoteErr):
		if remoteErr.Op == OpClassify {
			return BusyReply
		}
		format, ok := remoteReplyFormats[action]
		if !ok {
			format = systemErrorFormat
		}
		return fmt.Sprintf(format, faultDetail(remoteErr.Err))
	default:
		return fmt.Sprintf(systemErrorFormat, err.Error())
	}
}

// OutcomeOf classifies how a request ended, for the audit trail
func OutcomeOf(err error) domain.AuditOutcome {
	var unrecognized *intent.UnrecognizedError
	if errors.As(err, &unrecognized) {
		return domain.OutcomeUnrecognized
	}

	switch Kind(err) {
	case nil:
		return domain.OutcomeOK
	case ErrMissingInput:
		return domain.OutcomeInputError
	case ErrNotFound:
		return domain.OutcomeNotFound
	case ErrAmbiguous:
		return domain.OutcomeAmbiguous
	case ErrStateConflict:
		return domain.OutcomeStateConflict
	default:
		return domain.OutcomeRemoteFailure
	}
}
