// Package specialist loads specialist agent definitions and the orchestrator
// interview plan from YAML. Definitions are read once at startup and are
// immutable afterwards.
package specialist

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/validator/internal/stream"
)

//go:embed defaults/agents.yaml defaults/questions.yaml
var defaultFiles embed.FS

// DefaultModel is used when agents.yaml names no default model.
const DefaultModel = "claude-haiku-4-5-20251001"

// ErrUnknownTool is returned when an agent lists a tool that does not exist.
var ErrUnknownTool = errors.New("unknown tool")

// Descriptor describes one specialist agent.
type Descriptor struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Description  string   `json:"description"`
	SystemPrompt string   `json:"-"`
	Tools        []string `json:"tools"`
	Model        string   `json:"model"`
}

// Registry is the immutable, ordered set of specialists.
type Registry struct {
	order []string
	byID  map[string]Descriptor
	rules []stream.KeywordRule
}

type agentsFile struct {
	Defaults struct {
		Model string `yaml:"model"`
	} `yaml:"defaults"`
	Agents      yaml.Node            `yaml:"agents"`
	Attribution []stream.KeywordRule `yaml:"attribution"`
}

type agentEntry struct {
	Label        string   `yaml:"label"`
	Description  string   `yaml:"description"`
	SystemPrompt string   `yaml:"system_prompt"`
	Tools        []string `yaml:"tools"`
	Model        string   `yaml:"model"`
}

// LoadRegistry reads agent definitions from path, or the built-in definitions
// when path is empty. Every tool an agent lists must appear in knownTools.
func LoadRegistry(path string, knownTools []string) (*Registry, error) {
	data, err := readFile(path, "defaults/agents.yaml")
	if err != nil {
		return nil, err
	}
	return ParseRegistry(data, knownTools)
}

// ParseRegistry builds a registry from agents.yaml content.
func ParseRegistry(data []byte, knownTools []string) (*Registry, error) {
	var raw agentsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse agents: %w", err)
	}

	defaultModel := raw.Defaults.Model
	if defaultModel == "" {
		defaultModel = DefaultModel
	}

	known := make(map[string]bool, len(knownTools))
	for _, t := range knownTools {
		known[t] = true
	}

	if raw.Agents.Kind != yaml.MappingNode || len(raw.Agents.Content) == 0 {
		return nil, fmt.Errorf("parse agents: no agents defined")
	}

	reg := &Registry{byID: make(map[string]Descriptor)}

	// Mapping node content alternates key, value; iterating it keeps file order.
	for i := 0; i+1 < len(raw.Agents.Content); i += 2 {
		id := raw.Agents.Content[i].Value
		var entry agentEntry
		if err := raw.Agents.Content[i+1].Decode(&entry); err != nil {
			return nil, fmt.Errorf("parse agent %q: %w", id, err)
		}

		if entry.Description == "" {
			return nil, fmt.Errorf("agent %q: description is required", id)
		}
		if strings.TrimSpace(entry.SystemPrompt) == "" {
			return nil, fmt.Errorf("agent %q: system_prompt is required", id)
		}
		for _, t := range entry.Tools {
			if !known[t] {
				return nil, fmt.Errorf("agent %q: %w %q (available: %s)", id, ErrUnknownTool, t, strings.Join(knownTools, ", "))
			}
		}

		d := Descriptor{
			ID:           id,
			Label:        entry.Label,
			Description:  strings.TrimSpace(entry.Description),
			SystemPrompt: strings.TrimSpace(entry.SystemPrompt),
			Tools:        append([]string(nil), entry.Tools...),
			Model:        entry.Model,
		}
		if d.Label == "" {
			d.Label = id
		}
		if d.Model == "" {
			d.Model = defaultModel
		}
		if _, dup := reg.byID[id]; dup {
			return nil, fmt.Errorf("agent %q defined twice", id)
		}
		reg.byID[id] = d
		reg.order = append(reg.order, id)
	}

	if raw.Attribution == nil {
		reg.rules = stream.DefaultKeywordRules()
	} else {
		for _, r := range raw.Attribution {
			if _, ok := reg.byID[r.Specialist]; !ok {
				return nil, fmt.Errorf("attribution rule for unknown agent %q", r.Specialist)
			}
		}
		reg.rules = raw.Attribution
	}

	return reg, nil
}

// IDs returns specialist ids in definition order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// All returns every descriptor in definition order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Label returns the display label for id, or id itself when unknown.
func (r *Registry) Label(id string) string {
	if d, ok := r.byID[id]; ok {
		return d.Label
	}
	return id
}

// Labels maps every id to its label.
func (r *Registry) Labels() map[string]string {
	out := make(map[string]string, len(r.byID))
	for id, d := range r.byID {
		out[id] = d.Label
	}
	return out
}

// KeywordRules returns the result attribution fallback table in order.
func (r *Registry) KeywordRules() []stream.KeywordRule {
	// Non-nil even when empty: an empty table disables the fallback.
	rules := make([]stream.KeywordRule, len(r.rules))
	copy(rules, r.rules)
	return rules
}

// Attributor returns a result attributor using the registry's keyword table.
func (r *Registry) Attributor() *stream.Attributor {
	return stream.NewAttributor(r.KeywordRules())
}

func readFile(path, fallback string) ([]byte, error) {
	if path == "" {
		data, err := defaultFiles.ReadFile(fallback)
		if err != nil {
			return nil, fmt.Errorf("read built-in %s: %w", fallback, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// DefaultAgentsYAML returns the built-in agents.yaml, for `validator init`.
func DefaultAgentsYAML() []byte {
	data, _ := defaultFiles.ReadFile("defaults/agents.yaml")
	return data
}

// DefaultQuestionsYAML returns the built-in questions.yaml.
func DefaultQuestionsYAML() []byte {
	data, _ := defaultFiles.ReadFile("defaults/questions.yaml")
	return data
}
