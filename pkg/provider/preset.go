package provider

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"trident/pkg/config"
	providertypes "trident/pkg/provider/types"
)

// Route is the backend/model pair one agent is sent to.
type Route struct {
	Backend providertypes.Backend `json:"provider"`
	Model   string                `json:"model"`
}

func (r Route) String() string {
	return string(r.Backend) + "/" + r.Model
}

// Preset maps upper-cased agent names to routes.
type Preset map[string]Route

// Target selects routing for a session: a single-model override, or a named
// multi-provider preset. Model wins when both are set.
type Target struct {
	Model  string `json:"model,omitempty"`
	Preset string `json:"preset,omitempty"`
}

// TargetFromConfig reads the session's routing choice.
func TargetFromConfig(cfg config.SessionConfig) Target {
	return Target{
		Model:  strings.TrimSpace(cfg.Model),
		Preset: strings.TrimSpace(cfg.Preset),
	}
}

func (t Target) String() string {
	if t.Model != "" {
		return "model:" + t.Model
	}
	return "preset:" + t.Preset
}

var builtinPresets = map[string]Preset{
	"balanced": {
		"MELCHIOR":  {Backend: providertypes.BackendOpenAI, Model: "gpt-4o-mini"},
		"BALTHASAR": {Backend: providertypes.BackendAnthropic, Model: "claude-3-5-haiku-latest"},
		"CASPER":    {Backend: providertypes.BackendGoogle, Model: "gemini-2.0-flash"},
	},
	"premium": {
		"MELCHIOR":  {Backend: providertypes.BackendOpenAI, Model: "gpt-4o"},
		"BALTHASAR": {Backend: providertypes.BackendAnthropic, Model: "claude-sonnet-4-20250514"},
		"CASPER":    {Backend: providertypes.BackendGoogle, Model: "gemini-2.5-pro"},
	},
	"openai": {
		"MELCHIOR":  {Backend: providertypes.BackendOpenAI, Model: "gpt-4o-mini"},
		"BALTHASAR": {Backend: providertypes.BackendOpenAI, Model: "gpt-4o-mini"},
		"CASPER":    {Backend: providertypes.BackendOpenAI, Model: "gpt-4o-mini"},
	},
}

// Presets merges user presets from config over the built-ins.
func Presets(cfg *config.Config) (map[string]Preset, error) {
	out := make(map[string]Preset, len(builtinPresets))
	for name, preset := range builtinPresets {
		out[name] = maps.Clone(preset)
	}
	if cfg == nil {
		return out, nil
	}

	for name, entries := range cfg.Presets {
		preset := make(Preset, len(entries))
		for agentName, entry := range entries {
			backend, err := providertypes.ParseBackend(entry.Provider)
			if err != nil {
				return nil, fmt.Errorf("presets.%s.%s: %w", name, agentName, err)
			}
			model := strings.TrimSpace(entry.Model)
			if model == "" {
				return nil, fmt.Errorf("presets.%s.%s: model is required", name, agentName)
			}
			preset[strings.ToUpper(strings.TrimSpace(agentName))] = Route{Backend: backend, Model: model}
		}
		out[strings.TrimSpace(name)] = preset
	}

	return out, nil
}

// PresetNames lists preset names in sorted order.
func PresetNames(presets map[string]Preset) []string {
	return slices.Sorted(maps.Keys(presets))
}

// ParseModel reads "backend/model" or a bare model id. Bare ids are routed by
// family name, falling back to openai.
func ParseModel(model string) (Route, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return Route{}, errors.New("model is required")
	}

	if backendID, modelID, ok := strings.Cut(model, "/"); ok {
		backendID = strings.TrimSpace(backendID)
		modelID = strings.TrimSpace(modelID)
		if backendID == "" || modelID == "" {
			return Route{}, fmt.Errorf("model %q is invalid", model)
		}
		backend, err := providertypes.ParseBackend(backendID)
		if err != nil {
			return Route{}, err
		}
		return Route{Backend: backend, Model: modelID}, nil
	}

	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "claude"):
		return Route{Backend: providertypes.BackendAnthropic, Model: model}, nil
	case strings.HasPrefix(lower, "gemini"):
		return Route{Backend: providertypes.BackendGoogle, Model: model}, nil
	default:
		return Route{Backend: providertypes.BackendOpenAI, Model: model}, nil
	}
}

// resolveRoute picks the route for one agent under target.
func resolveRoute(presets map[string]Preset, target Target, agentName string) (Route, error) {
	if target.Model != "" {
		return ParseModel(target.Model)
	}

	name := target.Preset
	if name == "" {
		name = config.DefaultPreset
	}
	preset, ok := presets[name]
	if !ok {
		return Route{}, providertypes.NewConfigurationError("", fmt.Sprintf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(presets), ", ")))
	}

	route, ok := preset[strings.ToUpper(agentName)]
	if !ok {
		return Route{}, providertypes.NewConfigurationError("", fmt.Sprintf("preset %q has no route for agent %s", name, agentName))
	}

	return route, nil
}
