package agent

import (
	"strings"
	"testing"
)

func TestDefaultsOrderAndPersonas(t *testing.T) {
	agents, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults error: %v", err)
	}

	wantNames := []string{"MELCHIOR", "BALTHASAR", "CASPER"}
	if len(agents) != len(wantNames) {
		t.Fatalf("len(agents) = %d, want %d", len(agents), len(wantNames))
	}
	for i, want := range wantNames {
		if agents[i].Name != want {
			t.Fatalf("agents[%d].Name = %q, want %q", i, agents[i].Name, want)
		}
		if !strings.Contains(agents[i].SystemPrompt, want) {
			t.Fatalf("persona for %s does not mention its name", want)
		}
		if !strings.Contains(agents[i].SystemPrompt, `"vote"`) {
			t.Fatalf("persona for %s does not describe the vote field", want)
		}
	}
}

func TestDefaultsReturnsCopy(t *testing.T) {
	first, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults error: %v", err)
	}
	first[0].Name = "mutated"

	second, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults error: %v", err)
	}
	if second[0].Name != "MELCHIOR" {
		t.Fatalf("Defaults leaked mutation: %q", second[0].Name)
	}
}

func TestParseVote(t *testing.T) {
	tests := []struct {
		input   string
		want    Vote
		wantErr bool
	}{
		{input: "approve", want: VoteApprove},
		{input: " REJECT ", want: VoteReject},
		{input: "Abstain", want: VoteAbstain},
		{input: "maybe", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseVote(tt.input)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseVote(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseVote(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTemplatePath(t *testing.T) {
	if got := templatePath("casper"); got != "templates/casper.md" {
		t.Fatalf("templatePath(casper) = %q, want %q", got, "templates/casper.md")
	}
}
