package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sai-aakash/ragserve/internal/domain"
	"github.com/sai-aakash/ragserve/internal/metrics"
)

// ChatModel is a hosted chat-completion client over an OpenAI-compatible API.
// Gemini and Groq both expose such endpoints.
type ChatModel struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
	logger      *zap.Logger
}

// ChatConfig holds chat provider settings.
type ChatConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Logger      *zap.Logger
}

// NewChatModel creates a chat-completion client.
func NewChatModel(cfg *ChatConfig) *ChatModel {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &ChatModel{
		client:      openai.NewClientWithConfig(clientCfg),
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

// Provider returns the resolved provider name ("gemini" or "groq").
func (m *ChatModel) Provider() string {
	return m.provider
}

// Model returns the configured model name.
func (m *ChatModel) Model() string {
	return m.model
}

// Complete implements domain.ChatModel. The rendered prompt is sent as a
// single user message and the model's text output is returned verbatim.
func (m *ChatModel) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: m.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()

	resp, err := m.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(m.provider, m.model, "error").Inc()
		return "", parseAPIError(err, domain.ErrChatProviderError)
	}

	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(m.provider, m.model, "error").Inc()
		return "", fmt.Errorf("empty chat completion response: %w", domain.ErrChatProviderError)
	}

	metrics.ChatRequestsTotal.WithLabelValues(m.provider, m.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(m.provider, m.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.ChatTokensTotal.WithLabelValues(m.provider, m.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.ChatTokensTotal.WithLabelValues(m.provider, m.model, "completion").
			Add(float64(resp.Usage.CompletionTokens))
	}

	return resp.Choices[0].Message.Content, nil
}
