package anthropic

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"trident/pkg/config"
	providertypes "trident/pkg/provider/types"

	asdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"
)

const (
	defaultAPIKeyEnv = "ANTHROPIC_API_KEY"

	// statusOverloaded is Anthropic's non-standard overload status.
	statusOverloaded = 529

	errorMessagePath = "error.message"
	maxErrorExcerpt  = 300
)

type Client struct {
	client         asdk.Client
	requestTimeout time.Duration
}

func New(cfg config.ProviderConfig) (*Client, error) {
	apiKey := resolveAPIKey(cfg)
	if apiKey == "" {
		return nil, providertypes.NewConfigurationError(providertypes.BackendAnthropic, "providers.anthropic.api_key_env is required or ANTHROPIC_API_KEY must be set")
	}

	// Retries are owned by the provider client's per-backend policy.
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		client:         asdk.NewClient(opts...),
		requestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}, nil
}

func (c *Client) Backend() providertypes.Backend {
	return providertypes.BackendAnthropic
}

func (c *Client) Complete(ctx context.Context, req providertypes.Request) (providertypes.Completion, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "messages", "agent", req.Agent, "model", req.Model)
	startedAt := time.Now()
	log.Debug("provider request started", "prompt_length", len(req.Prompt))

	message, err := c.client.Messages.New(ctx, buildParams(req))
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.Completion{}, classifyError(err)
	}

	completion, err := toCompletion(message, req.Agent)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.Completion{}, err
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(completion.Text))

	return completion, nil
}

// buildParams sends the system prompt as the top-level system field and the
// question as the only user turn.
func buildParams(req providertypes.Request) asdk.MessageNewParams {
	params := asdk.MessageNewParams{
		Model:       asdk.Model(req.Model),
		MaxTokens:   req.MaxOutputTokens,
		Messages:    []asdk.MessageParam{asdk.NewUserMessage(asdk.NewTextBlock(req.Prompt))},
		Temperature: asdk.Float(req.Temperature),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []asdk.TextBlockParam{{Text: system}}
	}

	return params
}

func toCompletion(message *asdk.Message, agentName string) (providertypes.Completion, error) {
	if message == nil {
		return providertypes.Completion{}, providertypes.NewEmptyResponseError(providertypes.BackendAnthropic, agentName)
	}

	parts := make([]string, 0, len(message.Content))
	for _, block := range message.Content {
		if block.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(block.Text); text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return providertypes.Completion{}, providertypes.NewEmptyResponseError(providertypes.BackendAnthropic, agentName)
	}

	return providertypes.Completion{
		Text: text,
		Usage: providertypes.TokenUsage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
			TotalTokens:      message.Usage.InputTokens + message.Usage.OutputTokens,
		},
	}, nil
}

func classifyError(err error) error {
	var apiErr *asdk.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		return providertypes.NewTransportError(providertypes.BackendAnthropic, status, errorMessage(apiErr.RawJSON()), isRetryableStatus(status), err)
	}

	return providertypes.NewTransportError(providertypes.BackendAnthropic, 0, "", false, err)
}

// errorMessage extracts error.message from an error body, falling back to an
// excerpt of the raw body.
func errorMessage(body string) string {
	if message := strings.TrimSpace(gjson.Get(body, errorMessagePath).String()); message != "" {
		return message
	}

	return providertypes.Excerpt(strings.TrimSpace(body), maxErrorExcerpt)
}

func isRetryableStatus(status int) bool {
	return status == statusOverloaded || providertypes.IsServerError(status)
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.anthropic")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func resolveAPIKey(cfg config.ProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv(defaultAPIKeyEnv))
}
