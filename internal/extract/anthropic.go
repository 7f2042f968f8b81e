package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// AnthropicConfig configures the Anthropic-backed Completer.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string
	// MaxRetries is passed to the SDK; negative keeps the SDK default.
	MaxRetries int
	// Timeout bounds each completion; zero leaves only the caller's deadline.
	Timeout time.Duration
}

// AnthropicCompleter implements Completer with the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAnthropicCompleter creates a Completer bound to cfg.
//
// Precondition: cfg.Model must be non-empty and cfg.MaxTokens > 0.
func NewAnthropicCompleter(cfg AnthropicConfig, logger *zap.Logger) *AnthropicCompleter {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &AnthropicCompleter{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Complete implements Completer. The schema is embedded in the prompt and the
// model is asked to answer with JSON only, at temperature zero.
func (c *AnthropicCompleter) Complete(ctx context.Context, system, prompt string, schema map[string]any) ([]byte, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	user := fmt.Sprintf("%s\n\nRespond with a single JSON object matching this JSON schema and nothing else:\n%s", prompt, schemaJSON)

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	c.logger.Debug("completion received",
		zap.String("model", c.model),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	if b.Len() == 0 {
		return nil, ErrNoJSON
	}
	return []byte(b.String()), nil
}
