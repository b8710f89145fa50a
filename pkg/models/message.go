package models

import "time"

// Role identifies who authored a conversation message.
type Role string

const (
	// RoleUser marks messages typed by the founder.
	RoleUser Role = "user"
	// RoleAssistant marks orchestrator replies.
	RoleAssistant Role = "assistant"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is one role-tagged entry in a session transcript.
type Message struct {
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// CreatedAt is when the message was appended.
	CreatedAt time.Time `json:"created_at"`
}
