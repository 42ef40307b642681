// Package domain carries the CRM business context handed to the model:
// view documentation, table relationships, stage rules, and example queries.
// The context lives in a versionable YAML file rather than in agent code, so
// domain heuristics (such as what counts as "open work") can change without
// a rebuild.
package domain

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type ViewDoc struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Example struct {
	Question string `yaml:"question"`
	SQL      string `yaml:"sql"`
}

type Context struct {
	Relationships []string  `yaml:"relationships"`
	Views         []ViewDoc `yaml:"views"`
	Rules         []string  `yaml:"rules"`
	Examples      []Example `yaml:"examples"`
	Caveats       []string  `yaml:"caveats"`
}

// Load reads the context from path, or falls back to the embedded default
// when path is empty.
func Load(path string) (Context, error) {
	raw := defaultYAML
	if strings.TrimSpace(path) != "" {
		fileBytes, err := os.ReadFile(path)
		if err != nil {
			return Context{}, fmt.Errorf("read domain context: %w", err)
		}
		raw = fileBytes
	}

	var ctx Context
	if err := yaml.Unmarshal(raw, &ctx); err != nil {
		return Context{}, fmt.Errorf("parse domain context: %w", err)
	}
	return ctx, nil
}

// Render formats the context as prompt text. The output is deterministic for
// a given Context value.
func (c Context) Render() string {
	var b strings.Builder
	b.WriteString("Business context and table relationships:\n")

	if len(c.Relationships) > 0 {
		b.WriteString("\nKey relationships:\n")
		for _, rel := range c.Relationships {
			fmt.Fprintf(&b, "- %s\n", rel)
		}
	}
	if len(c.Views) > 0 {
		b.WriteString("\nImportant views (prefer these for common questions):\n")
		for _, view := range c.Views {
			fmt.Fprintf(&b, "- %s: %s\n", view.Name, view.Description)
		}
	}
	if len(c.Rules) > 0 {
		b.WriteString("\nBusiness rules:\n")
		for _, rule := range c.Rules {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
	}
	if len(c.Examples) > 0 {
		b.WriteString("\nExample queries:\n")
		for _, example := range c.Examples {
			fmt.Fprintf(&b, "\nQ: %s\nA: %s\n", example.Question, example.SQL)
		}
	}
	for _, caveat := range c.Caveats {
		fmt.Fprintf(&b, "\nCRITICAL: %s\n", caveat)
	}
	return b.String()
}
