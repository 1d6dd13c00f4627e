package inference

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"reviewpulse/internal/adapters/observability"
	"reviewpulse/internal/domain"
)

const defaultTimeout = 60 * time.Second

// Client talks to an OpenAI-compatible chat-completion endpoint. It owns the
// timeout so a slow model can never stall the pipeline: on expiry the caller
// gets an InferenceError and falls back.
type Client struct {
	cl      *openai.Client
	model   string
	timeout time.Duration
}

func New(apiKey, baseURL, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{cl: openai.NewClientWithConfig(cfg), model: model, timeout: timeout}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.cl.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: 0.2,
	})
	observability.ObserveInference(err)
	observability.ObserveExternal("inference", "chat_completions", statusOf(err), time.Since(start))
	if err != nil {
		return "", &domain.InferenceError{Stage: "request", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &domain.InferenceError{Stage: "request", Err: errors.New("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}

func statusOf(err error) int {
	if err == nil {
		return 200
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	return 0
}
