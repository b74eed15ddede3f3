package deliberation

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"trident/pkg/consensus"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

const (
	promptIndependent  = "independent"
	promptDeliberation = "deliberation"
	promptFinal        = "final"
)

// promptSet holds the parsed per-round prompt templates.
type promptSet struct {
	templates map[string]*template.Template
}

func loadPrompts() (*promptSet, error) {
	set := &promptSet{templates: make(map[string]*template.Template)}

	err := fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}

		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		name := strings.TrimSuffix(strings.TrimPrefix(path, "prompts/"), ".md.tmpl")
		tmpl, err := template.New(name).Funcs(template.FuncMap{"upper": strings.ToUpper}).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse prompt %s: %w", name, err)
		}
		set.templates[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, name := range []string{promptIndependent, promptDeliberation, promptFinal} {
		if _, ok := set.templates[name]; !ok {
			return nil, fmt.Errorf("prompt template %q is missing", name)
		}
	}

	return set, nil
}

type independentParams struct {
	Question string
}

type deliberationParams struct {
	Question string
	Others   []consensus.Ballot
}

type finalParams struct {
	Question     string
	Own          consensus.Ballot
	Deliberation []consensus.Ballot
}

// independent builds the round-one prompt: the question alone.
func (p *promptSet) independent(question string) (string, error) {
	return p.render(promptIndependent, independentParams{Question: question})
}

// deliberation builds agentName's round-two prompt from every other agent's
// round-one ballot.
func (p *promptSet) deliberation(question, agentName string, first []consensus.Ballot) (string, error) {
	others := make([]consensus.Ballot, 0, len(first))
	for _, b := range first {
		if b.Agent.Name == agentName {
			continue
		}
		others = append(others, b)
	}

	return p.render(promptDeliberation, deliberationParams{Question: question, Others: others})
}

// final builds agentName's round-three prompt from its own round-one ballot
// and all round-two ballots, its own included.
func (p *promptSet) final(question, agentName string, first, second []consensus.Ballot) (string, error) {
	own, ok := findBallot(first, agentName)
	if !ok {
		return "", fmt.Errorf("no round 1 ballot for %s", agentName)
	}

	return p.render(promptFinal, finalParams{Question: question, Own: own, Deliberation: second})
}

func (p *promptSet) render(name string, params any) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template %q is missing", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

func findBallot(ballots []consensus.Ballot, agentName string) (consensus.Ballot, bool) {
	for _, b := range ballots {
		if b.Agent.Name == agentName {
			return b, true
		}
	}
	return consensus.Ballot{}, false
}
