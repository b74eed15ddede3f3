package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		input   string
		want    Backend
		wantErr bool
	}{
		{input: "openai", want: BackendOpenAI},
		{input: " Anthropic ", want: BackendAnthropic},
		{input: "gemini", want: BackendGoogle},
		{input: "google", want: BackendGoogle},
		{input: "opencode", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseBackend(tt.input)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseBackend(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseBackend(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTokenUsageAdd(t *testing.T) {
	var total TokenUsage
	total = total.Add(TokenUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7, Calls: 1})
	total = total.Add(TokenUsage{PromptTokens: 10, CompletionTokens: 1, TotalTokens: 11, Calls: 1})

	want := TokenUsage{PromptTokens: 13, CompletionTokens: 5, TotalTokens: 18, Calls: 2}
	if total != want {
		t.Fatalf("total = %+v, want %+v", total, want)
	}
}

func TestErrorClassification(t *testing.T) {
	base := NewTransportError(BackendAnthropic, 529, "Overloaded", true, nil)
	wrapped := fmt.Errorf("query BALTHASAR: %w", base)

	if !IsRetryable(wrapped) {
		t.Fatal("expected wrapped transport error to stay retryable")
	}
	if KindOf(wrapped) != KindTransport {
		t.Fatalf("KindOf = %q, want %q", KindOf(wrapped), KindTransport)
	}
	if !strings.Contains(wrapped.Error(), "status 529") {
		t.Fatalf("error text %q does not mention status", wrapped.Error())
	}

	if IsRetryable(errors.New("plain")) {
		t.Fatal("uncategorized errors are never retryable")
	}
	if KindOf(NewConfigurationError(BackendOpenAI, "missing key")) != KindConfiguration {
		t.Fatal("expected configuration kind")
	}
	if KindOf(NewEmptyResponseError(BackendGoogle, "CASPER")) != KindEmptyResponse {
		t.Fatal("expected empty response kind")
	}
}

func TestIsServerError(t *testing.T) {
	for status, want := range map[int]bool{499: false, 500: true, 503: true, 529: true, 600: false} {
		if got := IsServerError(status); got != want {
			t.Fatalf("IsServerError(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestExcerptKeepsWholeRunes(t *testing.T) {
	tests := []struct {
		input string
		limit int
		want  string
	}{
		{input: "short", limit: 10, want: "short"},
		{input: "abcdef", limit: 3, want: "abc"},
		{input: "héllo wörld", limit: 2, want: "hé"},
		{input: "日本語のエラー", limit: 3, want: "日本語"},
	}

	for _, tt := range tests {
		got := Excerpt(tt.input, tt.limit)
		if got != tt.want {
			t.Fatalf("Excerpt(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("Excerpt(%q, %d) = %q is not valid UTF-8", tt.input, tt.limit, got)
		}
	}
}
