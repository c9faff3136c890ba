// Package connectors — адаптеры к внешним системам. Сейчас единственная
// внешняя система — chat-completion API (deepseek-совместимый).
package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/infra"
)

// ChatProvider — то, что нужно остальному коду от LLM: один обмен
// prompt -> text, без стриминга.
type ChatProvider interface {
	Chat(ctx context.Context, prompt, systemInstruction string) (string, error)
}

// ErrNoCredential — ключ провайдера не сконфигурирован. Обработчик
// AI-прокси транслирует это в HTTP 500 (по контракту фронта).
var ErrNoCredential = errors.New("llm: api key is not configured")

// UnconfiguredProvider — заглушка на случай пустого ключа: сервис
// поднимается, но каждый вызов честно отвечает ErrNoCredential
// (AI-прокси отдаст 500, конвейер анализа деградирует).
type UnconfiguredProvider struct{}

func (UnconfiguredProvider) Chat(ctx context.Context, prompt, systemInstruction string) (string, error) {
	return "", ErrNoCredential
}

type OpenAIConnector struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIConnector собирает клиента под произвольный OpenAI-совместимый
// endpoint (deepseek, openai, локальный прокси).
func NewOpenAIConnector(cfg infra.AIConfig, logger *zap.Logger) (*OpenAIConnector, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoCredential
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIConnector{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger.Named("llm-connector"),
	}, nil
}

func (c *OpenAIConnector) Chat(ctx context.Context, prompt, systemInstruction string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		// 429 от провайдера превращаем в ThrottleError: ретраи возьмут
		// паузу вместо немедленного повторного удара
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", &ThrottleError{RetryAfter: DefaultRetryAfter, Cause: err}
		}
		return "", fmt.Errorf("llm call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
