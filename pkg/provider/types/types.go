package types

import (
	"fmt"
	"strings"
)

// Backend tags one remote LLM API family.
type Backend string

const (
	BackendOpenAI    Backend = "openai"
	BackendAnthropic Backend = "anthropic"
	BackendGoogle    Backend = "google"
)

// ParseBackend normalizes a backend tag. "gemini" is accepted for google.
func ParseBackend(input string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "openai":
		return BackendOpenAI, nil
	case "anthropic":
		return BackendAnthropic, nil
	case "google", "gemini":
		return BackendGoogle, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", input)
	}
}

// Request is the backend-neutral shape of one judge query.
type Request struct {
	Agent           string
	Model           string
	System          string
	Prompt          string
	MaxOutputTokens int64
	Temperature     float64
}

// Completion is the normalized provider reply before structural parsing.
type Completion struct {
	Text  string
	Usage TokenUsage
}

// TokenUsage captures token accounting for one call, or a running total
// when Calls is used.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	Calls            int64 `json:"calls"`
}

// Add returns the element-wise sum of u and delta.
func (u TokenUsage) Add(delta TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + delta.PromptTokens,
		CompletionTokens: u.CompletionTokens + delta.CompletionTokens,
		TotalTokens:      u.TotalTokens + delta.TotalTokens,
		Calls:            u.Calls + delta.Calls,
	}
}

// Excerpt returns at most limit runes of s, never splitting a multi-byte
// character.
func Excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
