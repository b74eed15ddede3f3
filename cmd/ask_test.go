package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"trident/pkg/agent"
	"trident/pkg/config"
	"trident/pkg/consensus"
	"trident/pkg/deliberation"
	providertypes "trident/pkg/provider/types"
)

func TestResolveQuestion(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "single arg", args: []string{"Ship it?"}, want: "Ship it?"},
		{name: "joined args", args: []string{"Ship", "it?"}, want: "Ship it?"},
		{name: "trimmed", args: []string{"  Ship it?  "}, want: "Ship it?"},
		{name: "empty", args: nil, wantErr: true},
		{name: "blank", args: []string{"   "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveQuestion(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveQuestion(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("resolveQuestion(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Model = "gpt-4o"

	err := applyFlags(cfg, askOptions{rounds: 1, preset: "premium", verbose: true})
	if err != nil {
		t.Fatalf("applyFlags error: %v", err)
	}
	if cfg.Session.Rounds != 1 {
		t.Fatalf("rounds = %d, want 1", cfg.Session.Rounds)
	}
	if cfg.Session.Preset != "premium" || cfg.Session.Model != "" {
		t.Fatalf("session = %+v, want preset premium and no model override", cfg.Session)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging level = %q, want debug", cfg.Logging.Level)
	}

	if err := applyFlags(config.Default(), askOptions{rounds: 2}); err == nil {
		t.Fatal("expected error for 2 rounds")
	}
}

func TestApplyFlagsModelWinsOverPreset(t *testing.T) {
	cfg := config.Default()
	if err := applyFlags(cfg, askOptions{model: "claude-3-5-haiku-latest", preset: "premium"}); err != nil {
		t.Fatalf("applyFlags error: %v", err)
	}
	if cfg.Session.Model != "claude-3-5-haiku-latest" {
		t.Fatalf("model = %q", cfg.Session.Model)
	}
}

func TestWithHint(t *testing.T) {
	cfgErr := providertypes.NewConfigurationError(providertypes.BackendAnthropic, "ANTHROPIC_API_KEY must be set")
	got := withHint(cfgErr)
	if !errors.Is(got, cfgErr) {
		t.Fatal("expected hint to wrap the original error")
	}
	if !strings.Contains(got.Error(), "hint:") {
		t.Fatalf("error = %q, want hint", got.Error())
	}

	plain := errors.New("boom")
	if got := withHint(plain); got != plain {
		t.Fatalf("withHint(plain) = %v, want unchanged", got)
	}
}

func TestShowProgress(t *testing.T) {
	var buf bytes.Buffer
	if showProgress(askOptions{}, &buf) {
		t.Fatal("expected no progress view for a non-terminal writer")
	}
	if showProgress(askOptions{jsonOutput: true}, os.Stderr) {
		t.Fatal("expected no progress view with --json")
	}
	if showProgress(askOptions{noProgress: true}, os.Stderr) {
		t.Fatal("expected no progress view with --no-progress")
	}
}

func TestRenderResult(t *testing.T) {
	melchior := agent.Agent{Name: "MELCHIOR", Codename: "Scientist", Icon: "🔴"}
	casper := agent.Agent{Name: "CASPER", Codename: "Maverick", Icon: "🔵"}

	first := []consensus.Ballot{
		{Agent: melchior, Response: agent.Response{Vote: agent.VoteApprove, Reasoning: "early reasoning", Summary: "early yes"}},
		{Agent: casper, Response: agent.Response{Vote: agent.VoteReject, Reasoning: "early doubt", Summary: "early no"}},
	}
	final := []consensus.Ballot{
		{Agent: melchior, Response: agent.Response{Vote: agent.VoteApprove, Reasoning: "final reasoning", Summary: "yes"}},
		{Agent: casper, Response: agent.Response{Vote: agent.VoteApprove, Reasoning: "came around", Summary: "fine"}},
	}
	result := &deliberation.Result{
		SessionID:  "session-1",
		Verdict:    consensus.VerdictApprove,
		Rounds:     []deliberation.RoundResult{{Round: 1, Label: "Independent Analysis", Ballots: first}, {Round: 2, Label: "Final Vote", Ballots: final}},
		FinalVotes: final,
		Summary:    "APPROVED (🔴 MELCHIOR: APPROVE / 🔵 CASPER: APPROVE)",
		Usage:      providertypes.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, Calls: 4},
	}

	out := renderResult(result, false)
	for _, want := range []string{"Round 1", "Independent Analysis", "MELCHIOR (Scientist)", "APPROVE", "final reasoning", "APPROVED (", "calls: 4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "early reasoning") {
		t.Fatalf("non-verbose output should only show final reasoning:\n%s", out)
	}
	if strings.Contains(out, "session-1") {
		t.Fatalf("non-verbose output should not show the session id:\n%s", out)
	}

	verbose := renderResult(result, true)
	if !strings.Contains(verbose, "early reasoning") || !strings.Contains(verbose, "session-1") {
		t.Fatalf("verbose output missing details:\n%s", verbose)
	}

	if renderResult(nil, false) != "" {
		t.Fatal("expected empty output for nil result")
	}
}

func TestRunAskJSONEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(fakeBackends))
	t.Cleanup(server.Close)

	writeTestConfig(t, server.URL)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("GEMINI_API_KEY", "gm-test")

	var stdout, stderr bytes.Buffer
	err := runAsk(context.Background(), &stdout, &stderr, "Should we adopt Go?", askOptions{rounds: 1, jsonOutput: true})
	require.NoError(t, err, stderr.String())

	var result deliberation.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	require.Equal(t, "Should we adopt Go?", result.Question)
	require.Equal(t, consensus.VerdictApprove, result.Verdict)
	require.Len(t, result.Rounds, 1)
	require.Len(t, result.FinalVotes, 3)
	require.Equal(t, agent.VoteReject, result.FinalVotes[1].Response.Vote)
	require.Equal(t, "APPROVED (🔴 MELCHIOR: APPROVE / 🟡 BALTHASAR: REJECT / 🔵 CASPER: APPROVE)", result.Summary)
	require.EqualValues(t, 3, result.Usage.Calls)
	require.EqualValues(t, 45, result.Usage.TotalTokens)
}

func TestRunAskMissingCredentialFailsBeforeAnyCall(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fakeBackends(w, r)
	}))
	t.Cleanup(server.Close)

	writeTestConfig(t, server.URL)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gm-test")

	var stdout, stderr bytes.Buffer
	err := runAsk(context.Background(), &stdout, &stderr, "Q?", askOptions{rounds: 1, jsonOutput: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	require.Contains(t, err.Error(), "hint:")
	require.Zero(t, calls)
	require.Empty(t, stdout.String())
}

func writeTestConfig(t *testing.T, baseURL string) {
	t.Helper()

	cfg := map[string]any{
		"providers": map[string]any{
			"openai":    map[string]any{"base_url": baseURL + "/v1"},
			"anthropic": map[string]any{"base_url": baseURL + "/", "retry": map[string]any{"max_attempts": 1}},
			"google":    map[string]any{"base_url": baseURL + "/"},
		},
		"session": map[string]any{"rounds": 1, "preset": "balanced"},
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "trident.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	t.Setenv("TRIDENT_CONFIG", path)
	t.Setenv("TRIDENT_MODEL", "")
	t.Setenv("TRIDENT_PRESET", "")
	t.Setenv("TRIDENT_ROUNDS", "")
}

// fakeBackends answers the three provider APIs: openai approves, anthropic
// rejects, google approves.
func fakeBackends(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": `{"vote":"approve","reasoning":"Numbers add up.","summary":"Yes."}`},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	case r.URL.Path == "/v1/messages":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-sonnet-4-20250514",
			"stop_reason": "end_turn",
			"content":     []any{map[string]any{"type": "text", "text": "```json\n{\"vote\":\"reject\",\"reasoning\":\"Too risky.\",\"summary\":\"No.\"}\n```"}},
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	case strings.HasSuffix(r.URL.Path, ":generateContent"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": `{"vote":"approve","reasoning":"Why not.","summary":"Go for it."}`}}},
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15},
		})
	default:
		http.NotFound(w, r)
	}
}
