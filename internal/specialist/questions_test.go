package specialist

import (
	"strings"
	"testing"
)

func TestLoadPlan_Defaults(t *testing.T) {
	plan, err := LoadPlan("")
	if err != nil {
		t.Fatalf("LoadPlan failed: %v", err)
	}
	if plan.Model() != "claude-sonnet-4-5-20250929" {
		t.Errorf("Model() = %q", plan.Model())
	}
	if len(plan.Questions) == 0 {
		t.Fatal("expected built-in questions")
	}

	required := 0
	for _, q := range plan.Questions {
		if q.Required {
			required++
		}
	}
	if required == 0 {
		t.Error("expected at least one required question")
	}
}

func TestPlanSystemPrompt(t *testing.T) {
	reg, err := ParseRegistry([]byte(`
agents:
  market:
    label: Market Sizing
    description: d
    system_prompt: p
  risks:
    label: Risk Analysis
    description: d
    system_prompt: p
`), nil)
	if err != nil {
		t.Fatalf("ParseRegistry failed: %v", err)
	}

	plan, err := ParsePlan([]byte(`
orchestrator:
  system_prompt: |
    Base prompt.
questions:
  - id: idea
    prompt: What are you building?
    required: true
    triggers_agents: [market, risks]
  - id: team
    prompt: Who is on the team?
`))
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}

	got := plan.SystemPrompt(reg)

	wants := []string{
		"Base prompt.\n\n## Questions to Cover\n\n",
		"- **idea** (REQUIRED): What are you building?\n  Triggers: Market Sizing, Risk Analysis\n",
		"- **team** (optional): Who is on the team?\n  Triggers: none yet\n",
		"## Available Specialist Agents\n\n- `market`: Market Sizing\n- `risks`: Risk Analysis\n",
		"use the task tool",
	}
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("SystemPrompt() missing %q\n---\n%s", w, got)
		}
	}

	if plan.Model() != DefaultOrchestratorModel {
		t.Errorf("Model() = %q, want default", plan.Model())
	}
}

func TestParsePlan_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no prompt", "questions: []\n"},
		{"question without id", "orchestrator:\n  system_prompt: p\nquestions:\n  - prompt: q\n"},
		{"bad yaml", "orchestrator: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePlan([]byte(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
