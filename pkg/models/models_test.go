package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRoleValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleUser, true},
		{RoleAssistant, true},
		{Role("system"), false},
		{Role(""), false},
	}

	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestAttributionMethodValid(t *testing.T) {
	for _, m := range []AttributionMethod{AttributionInvocation, AttributionKeyword, AttributionUnknown} {
		if !m.Valid() {
			t.Errorf("%q.Valid() = false, want true", m)
		}
	}
	if AttributionMethod("guess").Valid() {
		t.Error(`"guess".Valid() = true, want false`)
	}
}

func TestReportValid(t *testing.T) {
	tests := []struct {
		name   string
		report *Report
		want   bool
	}{
		{"nil", nil, false},
		{"empty summary", &Report{Score: 50}, false},
		{"score too high", &Report{Summary: "s", Score: 101}, false},
		{"negative score", &Report{Summary: "s", Score: -1}, false},
		{"ok", &Report{Summary: "s", Score: 72}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Report{Summary: "s", Score: 60, ScoreLabel: "Moderate"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := fields["scoreLabel"]; !ok {
		t.Errorf("expected scoreLabel key in %s", data)
	}
	if _, ok := fields["bullets"]; ok {
		t.Errorf("expected empty bullets to be omitted in %s", data)
	}
}

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSession("abc123def456", now)

	if s.ThreadID != "thread_abc123def456" {
		t.Errorf("ThreadID = %q, want thread_abc123def456", s.ThreadID)
	}
	if !s.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", s.CreatedAt, now)
	}
	if s.Messages == nil || s.AgentResults == nil {
		t.Error("expected non-nil transcript and results")
	}
}

func TestSessionStoreResult(t *testing.T) {
	s := NewSession("id", time.Now())
	s.StoreResult(AgentResult{AgentID: "market", Content: "first"})
	s.StoreResult(AgentResult{AgentID: "market", Content: "second"})
	s.StoreResult(AgentResult{Content: "nobody"})

	if len(s.AgentResults) != 1 {
		t.Fatalf("AgentResults len = %d, want 1", len(s.AgentResults))
	}
	if got := s.AgentResults["market"].Content; got != "second" {
		t.Errorf("market content = %q, want last write", got)
	}
}

func TestSessionClone(t *testing.T) {
	s := NewSession("id", time.Now())
	s.Append(RoleUser, "hello", time.Now())
	s.StoreResult(AgentResult{AgentID: "risks", Report: &Report{Summary: "s", Score: 3, Tags: []string{"a"}}})

	c := s.Clone()
	c.Append(RoleAssistant, "hi", time.Now())
	c.AgentResults["risks"].Report.Tags[0] = "changed"
	delete(c.AgentResults, "risks")

	if len(s.Messages) != 1 {
		t.Errorf("original Messages len = %d, want 1", len(s.Messages))
	}
	r, ok := s.AgentResults["risks"]
	if !ok {
		t.Fatal("original lost risks result")
	}
	if r.Report.Tags[0] != "a" {
		t.Errorf("original tag = %q, want a", r.Report.Tags[0])
	}
}
