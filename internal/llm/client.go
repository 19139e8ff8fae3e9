// Package llm provides the chat-completion client used by the semantic
// splitter (component D) and the config connectivity check (component H,
// POST /api/config/test-llm). Adapted from the OpenAI provider idiom in
// the retrieved pack's MrWong99-glyphoxa repo (pkg/provider/llm/openai),
// trimmed to the single non-streaming chat call this pipeline needs — no
// tool calling or streaming, since the splitter just wants one JSON-ish
// completion per long sentence.
package llm

import (
	"context"
	"fmt"
	"time"

	oai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"github.com/dechogo/hearing-gateway/internal/apperrors"
	"github.com/dechogo/hearing-gateway/internal/config"
	"github.com/dechogo/hearing-gateway/internal/metrics"
)

// Client wraps an OpenAI-compatible chat-completions endpoint. BaseURL lets
// this point at OpenRouter or any other OpenAI-compatible gateway, matching
// the source's configurable LLM_BASE_URL.
type Client struct {
	inner oai.Client
	model string
}

// NewClient builds a client from the resolved LLM configuration.
func NewClient(cfg config.LLMConfig) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(60 * time.Second),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{inner: oai.NewClient(opts...), model: cfg.Model}
}

// ChatCompletion sends one system+user exchange and returns the assistant's
// message content.
func (c *Client) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(userPrompt),
		},
		Temperature: param.NewOpt(0.2),
	}

	resp, err := c.inner.Chat.Completions.New(ctx, params)
	if err != nil {
		metrics.Errors.WithLabelValues("llm", "request").Inc()
		return "", &apperrors.ConfigError{Msg: "llm request failed: " + err.Error()}
	}
	if len(resp.Choices) == 0 {
		metrics.Errors.WithLabelValues("llm", "empty").Inc()
		return "", fmt.Errorf("llm: empty choices in response")
	}

	metrics.StageDuration.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	return resp.Choices[0].Message.Content, nil
}

// Test performs a minimal round trip against the configured endpoint,
// backing POST /api/config/test-llm.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.ChatCompletion(ctx, "Reply with OK.", "ping")
	return err
}
