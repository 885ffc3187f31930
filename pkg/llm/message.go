// Package llm holds the conversation model shared by the chat client, the
// reading orchestrators and the HTTP API.
package llm

import "strings"

// Role is the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ParseRole maps a case-insensitive role name onto a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Message represents a single message in a conversation.
//
// Thinking carries the reasoning segment split out of an assistant reply. It
// is kept for display and archival only and is never sent back upstream.
type Message struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`
}

// NewTextMessage creates a message with the given role and content.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}

// System, User and Assistant are shorthands for NewTextMessage.
func System(text string) Message    { return NewTextMessage(RoleSystem, text) }
func User(text string) Message      { return NewTextMessage(RoleUser, text) }
func Assistant(text string) Message { return NewTextMessage(RoleAssistant, text) }

// LastContent returns the content of the final message, or "" for an empty
// history.
func LastContent(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Content
}
