package models

import "time"

// Session is one founder conversation with the orchestrator.
type Session struct {
	// ID is a short hex identifier.
	ID string `json:"session_id"`
	// ThreadID names the conversation thread used for tracing.
	ThreadID string `json:"thread_id"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the session was last saved.
	UpdatedAt time.Time `json:"updated_at"`
	// Messages is the transcript in order.
	Messages []Message `json:"messages"`
	// AgentResults holds the last result stored per specialist id.
	AgentResults map[string]AgentResult `json:"agent_results"`
}

// ThreadPrefix is prepended to a session ID to form its thread ID.
const ThreadPrefix = "thread_"

// NewSession returns an empty session with the given ID.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		ThreadID:     ThreadPrefix + id,
		CreatedAt:    now,
		UpdatedAt:    now,
		Messages:     []Message{},
		AgentResults: map[string]AgentResult{},
	}
}

// Append adds a message to the transcript.
func (s *Session) Append(role Role, content string, at time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, CreatedAt: at})
}

// StoreResult records r as the latest result for its specialist.
// Results with no AgentID are ignored.
func (s *Session) StoreResult(r AgentResult) {
	if r.AgentID == "" {
		return
	}
	if s.AgentResults == nil {
		s.AgentResults = map[string]AgentResult{}
	}
	s.AgentResults[r.AgentID] = r
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	c.AgentResults = make(map[string]AgentResult, len(s.AgentResults))
	for k, v := range s.AgentResults {
		if v.Report != nil {
			r := *v.Report
			r.Bullets = append([]string(nil), r.Bullets...)
			r.Tags = append([]string(nil), r.Tags...)
			v.Report = &r
		}
		c.AgentResults[k] = v
	}
	return &c
}
