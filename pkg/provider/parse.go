package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"trident/pkg/agent"
	providertypes "trident/pkg/provider/types"
)

const (
	parseErrorPrefix    = "[Parse error] Raw response: "
	parseFailureSummary = "Failed to parse structured response"
	rawExcerptRunes     = 200
	codeFence           = "```"
)

type rawResponse struct {
	Vote      string `json:"vote"`
	Reasoning string `json:"reasoning"`
	Summary   string `json:"summary"`
}

// NormalizeResponse turns raw model output into a judge response. Malformed
// content still yields a usable response: an abstain vote carrying an
// excerpt of what the model actually said. The parse error, if any, is
// returned alongside it for logging.
func NormalizeResponse(content string) (agent.Response, error) {
	resp, err := ParseResponse(content)
	if err != nil {
		return fallbackResponse(content), err
	}

	return resp, nil
}

func fallbackResponse(content string) agent.Response {
	return agent.Response{
		Vote:      agent.VoteAbstain,
		Reasoning: parseErrorPrefix + providertypes.Excerpt(strings.TrimSpace(content), rawExcerptRunes),
		Summary:   parseFailureSummary,
	}
}

// ParseResponse strictly decodes the {vote, reasoning, summary} contract,
// tolerating a Markdown code fence around the JSON.
func ParseResponse(content string) (agent.Response, error) {
	cleaned := StripCodeFence(content)
	if cleaned == "" {
		return agent.Response{}, errors.New("response is empty")
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return agent.Response{}, fmt.Errorf("decode response: %w", err)
	}

	vote, err := agent.ParseVote(raw.Vote)
	if err != nil {
		return agent.Response{}, err
	}

	return agent.Response{
		Vote:      vote,
		Reasoning: strings.TrimSpace(raw.Reasoning),
		Summary:   strings.TrimSpace(raw.Summary),
	}, nil
}

// StripCodeFence removes one ```json ... ``` (or bare ```) wrapper.
func StripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, codeFence) {
		return s
	}

	s = strings.TrimPrefix(s, codeFence)
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	s = strings.TrimPrefix(s, "\r")
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, codeFence)

	return strings.TrimSpace(s)
}
