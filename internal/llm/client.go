// Package llm classifies chat messages with an OpenAI-compatible completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/straye-as/sales-assistant/internal/config"
	"github.com/straye-as/sales-assistant/internal/domain"
	"go.uber.org/zap"
)

const defaultTimeout = 60 * time.Second

// ErrEmptyCompletion is returned when the model answers without any content
var ErrEmptyCompletion = errors.New("completion has no content")

// Client sends one classification request per chat message
type Client struct {
	api    *openai.Client
	model  string
	temp   float32
	logger *zap.Logger
}

// NewClient creates a completion client from configuration
func NewClient(cfg *config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is not configured")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is not configured")
	}

	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	logger.Info("LLM client configured",
		zap.String("base_url", clientCfg.BaseURL),
		zap.String("model", cfg.Model),
	)

	return &Client{
		api:    openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		temp:   cfg.Temperature,
		logger: logger,
	}, nil
}

// Classify asks the model for the action JSON describing message.
// The raw completion content is returned for intent.Parse.
func (c *Client) Classify(ctx context.Context, history []domain.HistoryMessage, message string) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    BuildMessages(history, message),
		Temperature: c.temp,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Warn("LLM completion failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return "", &domain.RemoteFailure{Op: "llm.classify", Err: err}
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &domain.RemoteFailure{Op: "llm.classify", Err: ErrEmptyCompletion}
	}

	c.logger.Debug("LLM completion received",
		zap.Duration("duration", time.Since(start)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// BuildMessages prepends the system prompt and maps history roles.
// The "bot" role becomes assistant; every other role is treated as the user.
func BuildMessages(history []domain.HistoryMessage, message string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt})

	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == "bot" || h.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}

	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
}
