package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"trident/pkg/config"
	providertypes "trident/pkg/provider/types"

	osdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultAPIKeyEnv = "OPENAI_API_KEY"

// reasoningModelPrefixes name the model families that reject temperature and
// take max_completion_tokens instead of max_tokens.
var reasoningModelPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

type Client struct {
	client         osdk.Client
	requestTimeout time.Duration
}

func New(cfg config.ProviderConfig) (*Client, error) {
	apiKey := resolveAPIKey(cfg)
	if apiKey == "" {
		return nil, providertypes.NewConfigurationError(providertypes.BackendOpenAI, "providers.openai.api_key_env is required or OPENAI_API_KEY must be set")
	}

	// Retries are owned by the provider client's per-backend policy.
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if requestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(requestTimeout))
	}

	return &Client{
		client:         osdk.NewClient(opts...),
		requestTimeout: requestTimeout,
	}, nil
}

func (c *Client) Backend() providertypes.Backend {
	return providertypes.BackendOpenAI
}

func (c *Client) Complete(ctx context.Context, req providertypes.Request) (providertypes.Completion, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "chat_completion", "agent", req.Agent, "model", req.Model)
	startedAt := time.Now()
	log.Debug("provider request started", "prompt_length", len(req.Prompt))

	completion, err := c.client.Chat.Completions.New(ctx, buildParams(req))
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.Completion{}, classifyError(err)
	}

	var text string
	if len(completion.Choices) > 0 {
		text = strings.TrimSpace(completion.Choices[0].Message.Content)
	}
	if text == "" {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no output text")
		return providertypes.Completion{}, providertypes.NewEmptyResponseError(providertypes.BackendOpenAI, req.Agent)
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(text))

	return providertypes.Completion{
		Text: text,
		Usage: providertypes.TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}, nil
}

func buildParams(req providertypes.Request) osdk.ChatCompletionNewParams {
	params := osdk.ChatCompletionNewParams{
		Model: osdk.ChatModel(req.Model),
		Messages: []osdk.ChatCompletionMessageParamUnion{
			osdk.SystemMessage(req.System),
			osdk.UserMessage(req.Prompt),
		},
	}

	if IsReasoningModel(req.Model) {
		params.MaxCompletionTokens = osdk.Int(req.MaxOutputTokens)
		return params
	}

	params.MaxTokens = osdk.Int(req.MaxOutputTokens)
	params.Temperature = osdk.Float(req.Temperature)
	return params
}

// IsReasoningModel reports whether model belongs to a family that needs the
// reasoning-style request shape.
func IsReasoningModel(model string) bool {
	model = strings.ToLower(strings.TrimSpace(model))
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}

	return false
}

func classifyError(err error) error {
	var apiErr *osdk.Error
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		retryable := status == http.StatusTooManyRequests || providertypes.IsServerError(status)
		message := strings.TrimSpace(apiErr.Message)
		return providertypes.NewTransportError(providertypes.BackendOpenAI, status, message, retryable, err)
	}

	return providertypes.NewTransportError(providertypes.BackendOpenAI, 0, "", false, err)
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.openai")
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
