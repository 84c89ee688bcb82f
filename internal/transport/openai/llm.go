package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/homelens/homelens/internal/domain"
	"github.com/homelens/homelens/internal/metrics"
)

// LLM is the chat-completion client used for constraint extraction and query
// splitting. Calls go through a circuit breaker so a degraded model endpoint
// fails fast into the caller's fallback path instead of burning the per-query
// timeout on every request.
type LLM struct {
	client   *openai.Client
	model    string
	provider string
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker[string]
	logger   *zap.Logger
}

// LLMConfig holds the language model client settings.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Provider        string
	Timeout         time.Duration // per-call deadline
	BreakerFailures int           // consecutive failures before the breaker opens
	Logger          *zap.Logger
}

const defaultLLMTimeout = 8 * time.Second

// NewLLM creates an OpenAI-compatible chat-completion client.
func NewLLM(cfg *LLMConfig) *LLM {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 5
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "llm-" + cfg.Provider,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &LLM{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		timeout:  timeout,
		breaker:  breaker,
		logger:   logger,
	}
}

// Complete sends one system+user prompt pair and returns the raw response
// text. The model is forced into JSON-object output; callers still must
// validate the payload as untrusted input. task labels metrics only. Each
// call carries the configured deadline.
func (l *LLM) Complete(ctx context.Context, task, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()

	content, err := l.breaker.Execute(func() (string, error) {
		resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       l.model,
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty completion response")
		}
		return resp.Choices[0].Message.Content, nil
	})

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(l.provider, l.model, task, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("llm breaker open: %w", domain.ErrLLMProviderError)
		}
		return "", fmt.Errorf("llm completion: %w", errors.Join(err, domain.ErrLLMProviderError))
	}

	metrics.LLMRequestsTotal.WithLabelValues(l.provider, l.model, task, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(l.provider, l.model, task).Observe(duration.Seconds())

	return content, nil
}
