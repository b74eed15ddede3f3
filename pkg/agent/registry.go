package agent

import (
	"embed"
	"fmt"
	"strings"
	"sync"
)

//go:embed templates/*.md
var templatesFS embed.FS

type descriptor struct {
	name     string
	codename string
	icon     string
	role     string
	template string
}

var builtins = []descriptor{
	{name: "MELCHIOR", codename: "Scientist", icon: "🔴", role: "Logic, data, and efficiency", template: "melchior"},
	{name: "BALTHASAR", codename: "Guardian", icon: "🟡", role: "Ethics, safety, and user experience", template: "balthasar"},
	{name: "CASPER", codename: "Maverick", icon: "🔵", role: "Intuition, creativity, and risk-taking", template: "casper"},
}

var (
	defaultsOnce sync.Once
	defaults     []Agent
	defaultsErr  error
)

// Defaults returns the three built-in judges in their fixed order.
// The returned slice is a copy; callers may reorder it freely.
func Defaults() ([]Agent, error) {
	defaultsOnce.Do(func() {
		defaults, defaultsErr = loadBuiltins()
	})
	if defaultsErr != nil {
		return nil, defaultsErr
	}

	out := make([]Agent, len(defaults))
	copy(out, defaults)
	return out, nil
}

func loadBuiltins() ([]Agent, error) {
	agents := make([]Agent, 0, len(builtins))
	for _, d := range builtins {
		prompt, err := loadPersona(d.template)
		if err != nil {
			return nil, err
		}
		agents = append(agents, Agent{
			Name:         d.name,
			Codename:     d.codename,
			Icon:         d.icon,
			Role:         d.role,
			SystemPrompt: prompt,
		})
	}

	return agents, nil
}

func loadPersona(templateName string) (string, error) {
	content, err := templatesFS.ReadFile(templatePath(templateName))
	if err != nil {
		return "", fmt.Errorf("load %s persona template: %w", templateName, err)
	}

	persona := strings.TrimSpace(string(content))
	if persona == "" {
		return "", fmt.Errorf("persona template %q is empty", templateName)
	}

	return persona, nil
}

func templatePath(templateName string) string {
	return "templates/" + strings.TrimSpace(templateName) + ".md"
}
