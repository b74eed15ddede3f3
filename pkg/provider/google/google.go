package google

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"trident/pkg/agent"
	"trident/pkg/config"
	providertypes "trident/pkg/provider/types"

	"google.golang.org/genai"
)

const responseMIMEType = "application/json"

var apiKeyEnvFallbacks = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

type Client struct {
	client *genai.Client
}

func New(cfg config.ProviderConfig) (*Client, error) {
	apiKey := resolveAPIKey(cfg)
	if apiKey == "" {
		return nil, providertypes.NewConfigurationError(providertypes.BackendGoogle, "providers.google.api_key_env is required or GEMINI_API_KEY must be set")
	}

	httpClient := &http.Client{}
	if cfg.RequestTimeoutSeconds > 0 {
		httpClient.Timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientConfig.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, providertypes.NewConfigurationError(providertypes.BackendGoogle, err.Error())
	}

	return &Client{client: client}, nil
}

func (c *Client) Backend() providertypes.Backend {
	return providertypes.BackendGoogle
}

func (c *Client) Complete(ctx context.Context, req providertypes.Request) (providertypes.Completion, error) {
	log := providerLogger().With("operation", "generate_content", "agent", req.Agent, "model", req.Model)
	startedAt := time.Now()
	log.Debug("provider request started", "prompt_length", len(req.Prompt))

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), buildConfig(req))
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.Completion{}, classifyError(err)
	}

	completion, err := toCompletion(resp, req.Agent)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.Completion{}, err
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(completion.Text))

	return completion, nil
}

func buildConfig(req providertypes.Request) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens:  int32(req.MaxOutputTokens),
		ResponseMIMEType: responseMIMEType,
		ResponseSchema:   responseSchema(),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		out.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	return out
}

// responseSchema constrains output to the judge contract with vote limited
// to the fixed enumeration.
func responseSchema() *genai.Schema {
	votes := make([]string, 0, len(agent.Votes()))
	for _, v := range agent.Votes() {
		votes = append(votes, string(v))
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"vote":      {Type: genai.TypeString, Enum: votes},
			"reasoning": {Type: genai.TypeString},
			"summary":   {Type: genai.TypeString},
		},
		Required: []string{"vote", "reasoning", "summary"},
	}
}

func toCompletion(resp *genai.GenerateContentResponse, agentName string) (providertypes.Completion, error) {
	var parts []string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p == nil || p.Thought {
				continue
			}
			if text := strings.TrimSpace(p.Text); text != "" {
				parts = append(parts, text)
			}
		}
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return providertypes.Completion{}, providertypes.NewEmptyResponseError(providertypes.BackendGoogle, agentName)
	}

	var usage providertypes.TokenUsage
	if meta := resp.UsageMetadata; meta != nil {
		usage.PromptTokens = int64(meta.PromptTokenCount)
		usage.CompletionTokens = int64(meta.CandidatesTokenCount)
		usage.TotalTokens = int64(meta.TotalTokenCount)
		if usage.TotalTokens == 0 {
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		}
	}

	return providertypes.Completion{Text: text, Usage: usage}, nil
}

func classifyError(err error) error {
	if apiErr, ok := asAPIError(err); ok {
		status := apiErr.Code
		message := strings.TrimSpace(apiErr.Message)
		if message == "" {
			message = apiErr.Status
		}
		return providertypes.NewTransportError(providertypes.BackendGoogle, status, message, isRetryableStatus(status), err)
	}

	return providertypes.NewTransportError(providertypes.BackendGoogle, 0, "", false, err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var pointer *genai.APIError
	if errors.As(err, &pointer) && pointer != nil {
		return *pointer, true
	}

	return genai.APIError{}, false
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || providertypes.IsServerError(status)
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.google")
}

func resolveAPIKey(cfg config.ProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	for _, env := range apiKeyEnvFallbacks {
		if apiKey := strings.TrimSpace(os.Getenv(env)); apiKey != "" {
			return apiKey
		}
	}

	return ""
}
