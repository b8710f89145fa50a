package models

import "time"

// AttributionMethod records how a result was matched to a specialist.
type AttributionMethod string

const (
	// AttributionInvocation means the tool call's own arguments named the specialist.
	AttributionInvocation AttributionMethod = "invocation"
	// AttributionKeyword means the keyword fallback matched the result text.
	AttributionKeyword AttributionMethod = "keyword"
	// AttributionUnknown means no specialist could be identified.
	AttributionUnknown AttributionMethod = "unknown"
)

// Valid returns true if the method is a known value.
func (m AttributionMethod) Valid() bool {
	switch m {
	case AttributionInvocation, AttributionKeyword, AttributionUnknown:
		return true
	default:
		return false
	}
}

// AgentResult is the latest output a specialist produced for a session.
type AgentResult struct {
	// AgentID is the specialist identifier, e.g. "market".
	AgentID string `json:"agent_id"`
	// Label is the specialist's display name.
	Label string `json:"label,omitempty"`
	// Content is the raw result text.
	Content string `json:"content"`
	// Attribution records how AgentID was determined.
	Attribution AttributionMethod `json:"attribution"`
	// Report is the structured form of Content, when the specialist emitted one.
	Report *Report `json:"report,omitempty"`
	// UpdatedAt is when this result was stored.
	UpdatedAt time.Time `json:"updated_at"`
}

// Report is the structured summary a specialist may embed in its result.
type Report struct {
	Summary        string   `json:"summary"`
	Score          int      `json:"score"`
	ScoreLabel     string   `json:"scoreLabel,omitempty"`
	Bullets        []string `json:"bullets,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Valid reports whether the report has the minimum fields and a 0-100 score.
func (r *Report) Valid() bool {
	return r != nil && r.Summary != "" && r.Score >= 0 && r.Score <= 100
}
