package specialist

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultOrchestratorModel is used when questions.yaml names no model.
const DefaultOrchestratorModel = "claude-sonnet-4-5-20250929"

// Question is one item the orchestrator should cover in the interview.
type Question struct {
	ID             string   `yaml:"id"`
	Prompt         string   `yaml:"prompt"`
	Required       bool     `yaml:"required"`
	TriggersAgents []string `yaml:"triggers_agents"`
}

// Plan is the orchestrator's interview plan.
type Plan struct {
	Orchestrator struct {
		SystemPrompt string `yaml:"system_prompt"`
		Model        string `yaml:"model"`
	} `yaml:"orchestrator"`
	Questions []Question `yaml:"questions"`
}

// LoadPlan reads questions.yaml from path, or the built-in plan when path is
// empty.
func LoadPlan(path string) (*Plan, error) {
	data, err := readFile(path, "defaults/questions.yaml")
	if err != nil {
		return nil, err
	}
	return ParsePlan(data)
}

// ParsePlan parses questions.yaml content.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	if strings.TrimSpace(p.Orchestrator.SystemPrompt) == "" {
		return nil, fmt.Errorf("parse questions: orchestrator.system_prompt is required")
	}
	if p.Orchestrator.Model == "" {
		p.Orchestrator.Model = DefaultOrchestratorModel
	}
	for i, q := range p.Questions {
		if q.ID == "" || q.Prompt == "" {
			return nil, fmt.Errorf("parse questions: question %d needs an id and a prompt", i)
		}
	}
	return &p, nil
}

// Model returns the orchestrator model.
func (p *Plan) Model() string {
	return p.Orchestrator.Model
}

// SystemPrompt combines the base orchestrator prompt with the question list
// and the specialists available for dispatch.
func (p *Plan) SystemPrompt(reg *Registry) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.Orchestrator.SystemPrompt))

	b.WriteString("\n\n## Questions to Cover\n\n")
	for _, q := range p.Questions {
		required := "optional"
		if q.Required {
			required = "REQUIRED"
		}
		triggers := "none yet"
		if len(q.TriggersAgents) > 0 {
			labels := make([]string, 0, len(q.TriggersAgents))
			for _, id := range q.TriggersAgents {
				labels = append(labels, reg.Label(id))
			}
			triggers = strings.Join(labels, ", ")
		}
		fmt.Fprintf(&b, "- **%s** (%s): %s\n  Triggers: %s\n", q.ID, required, q.Prompt, triggers)
	}

	b.WriteString("\n## Available Specialist Agents\n\n")
	for _, d := range reg.All() {
		fmt.Fprintf(&b, "- `%s`: %s\n", d.ID, d.Label)
	}

	b.WriteString("\nWhen dispatching agents, use the task tool. Provide each agent with " +
		"the FULL context gathered so far. You can dispatch multiple agents in parallel.\n")

	return b.String()
}
