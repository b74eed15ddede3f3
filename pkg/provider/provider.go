package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"trident/pkg/agent"
	"trident/pkg/config"
	provideranthropic "trident/pkg/provider/anthropic"
	providergoogle "trident/pkg/provider/google"
	provideropenai "trident/pkg/provider/openai"
	providertypes "trident/pkg/provider/types"
	"trident/pkg/usage"
)

// Adapter is one backend's request/response translation.
type Adapter interface {
	Backend() providertypes.Backend
	Complete(ctx context.Context, req providertypes.Request) (providertypes.Completion, error)
}

// AdapterFactory builds an adapter from its backend settings.
type AdapterFactory func(cfg config.ProviderConfig) (Adapter, error)

// DefaultFactories is the backend dispatch table.
func DefaultFactories() map[providertypes.Backend]AdapterFactory {
	return map[providertypes.Backend]AdapterFactory{
		providertypes.BackendOpenAI: func(cfg config.ProviderConfig) (Adapter, error) {
			client, err := provideropenai.New(cfg)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		providertypes.BackendAnthropic: func(cfg config.ProviderConfig) (Adapter, error) {
			client, err := provideranthropic.New(cfg)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		providertypes.BackendGoogle: func(cfg config.ProviderConfig) (Adapter, error) {
			client, err := providergoogle.New(cfg)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

// Client queries judges through whichever backend their route selects.
// Adapters are built lazily, once per backend, so credentials are only
// required for backends a session actually uses.
type Client struct {
	providers config.ProvidersConfig
	presets   map[string]Preset
	factories map[providertypes.Backend]AdapterFactory

	mu       sync.Mutex
	adapters map[providertypes.Backend]Adapter
}

// Option customizes a Client.
type Option func(*Client)

// WithFactory replaces the constructor for one backend.
func WithFactory(backend providertypes.Backend, factory AdapterFactory) Option {
	return func(c *Client) {
		c.factories[backend] = factory
	}
}

func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	presets, err := Presets(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		providers: cfg.Providers,
		presets:   presets,
		factories: DefaultFactories(),
		adapters:  make(map[providertypes.Backend]Adapter),
	}
	for _, opt := range opts {
		opt(c)
	}

	slog.Default().With("component", "provider.factory").Debug("Provider client ready", "presets", strings.Join(PresetNames(presets), ","))
	return c, nil
}

// Route resolves where agentName's queries go under target.
func (c *Client) Route(target Target, agentName string) (Route, error) {
	route, err := resolveRoute(c.presets, target, agentName)
	if err != nil {
		if providertypes.KindOf(err) == "" {
			return Route{}, providertypes.NewConfigurationError("", err.Error())
		}
		return Route{}, err
	}

	return route, nil
}

// Prepare resolves every agent's route and builds the adapters they need, so
// configuration errors surface before any remote call is issued.
func (c *Client) Prepare(target Target, agents []agent.Agent) error {
	for _, a := range agents {
		route, err := c.Route(target, a.Name)
		if err != nil {
			return err
		}
		if _, err := c.adapter(route.Backend); err != nil {
			return err
		}
	}

	return nil
}

// Query asks one agent one prompt and returns its structured vote. The call's
// usage is recorded on tracker. Malformed model output becomes an abstain
// vote; configuration, empty-response and exhausted transport failures are
// returned as errors.
func (c *Client) Query(ctx context.Context, a agent.Agent, prompt string, target Target, tracker *usage.Tracker) (agent.Response, error) {
	route, err := c.Route(target, a.Name)
	if err != nil {
		return agent.Response{}, err
	}

	adapter, err := c.adapter(route.Backend)
	if err != nil {
		return agent.Response{}, err
	}

	settings := c.settings(route.Backend)
	req := providertypes.Request{
		Agent:           a.Name,
		Model:           route.Model,
		System:          a.SystemPrompt,
		Prompt:          prompt,
		MaxOutputTokens: int64(settings.MaxOutputTokens),
		Temperature:     config.DefaultTemperature,
	}
	if req.MaxOutputTokens <= 0 {
		req.MaxOutputTokens = config.DefaultMaxOutputTokens
	}
	if settings.Temperature != nil {
		req.Temperature = *settings.Temperature
	}

	log := slog.Default().With("component", "provider.client", "agent", a.Name, "backend", route.Backend, "model", route.Model)

	var completion providertypes.Completion
	policy := RetryPolicyFromConfig(settings.Retry)
	err = policy.Execute(ctx, log, func(ctx context.Context, attempt int) error {
		log.Debug("Querying agent", "attempt", attempt)
		var callErr error
		completion, callErr = adapter.Complete(ctx, req)
		return callErr
	})
	if err != nil {
		return agent.Response{}, fmt.Errorf("query %s via %s: %w", a.Name, route, err)
	}

	tracker.Record(completion.Usage)

	if strings.TrimSpace(completion.Text) == "" {
		return agent.Response{}, fmt.Errorf("query %s via %s: %w", a.Name, route, providertypes.NewEmptyResponseError(route.Backend, a.Name))
	}

	resp, parseErr := NormalizeResponse(completion.Text)
	if parseErr != nil {
		log.Warn("Agent returned malformed output", "error", parseErr)
	}

	return resp, nil
}

func (c *Client) adapter(backend providertypes.Backend) (Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if adapter, ok := c.adapters[backend]; ok {
		return adapter, nil
	}

	factory, ok := c.factories[backend]
	if !ok {
		return nil, providertypes.NewConfigurationError(backend, "unsupported provider")
	}

	adapter, err := factory(c.settings(backend))
	if err != nil {
		return nil, err
	}
	if got := adapter.Backend(); got != backend {
		return nil, providertypes.NewConfigurationError(backend, fmt.Sprintf("factory built a %s adapter", got))
	}
	c.adapters[backend] = adapter

	return adapter, nil
}

func (c *Client) settings(backend providertypes.Backend) config.ProviderConfig {
	switch backend {
	case providertypes.BackendOpenAI:
		return c.providers.OpenAI
	case providertypes.BackendAnthropic:
		return c.providers.Anthropic
	case providertypes.BackendGoogle:
		return c.providers.Google
	default:
		return config.ProviderConfig{}
	}
}
