package types

import "fmt"

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single conversation message. Messages are immutable
// once constructed; the execution core never mutates them.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ChatHistory is an ordered sequence of messages. Insertion order is
// significant: it models the conversation sent to the backend.
type ChatHistory []Message

// NewMessage creates a new message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// WithName returns a copy of the message carrying the optional speaker name.
func (m Message) WithName(name string) Message {
	m.Name = name
	return m
}

// ValidRole reports whether r is one of the supported roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ValidateHistory checks that a history is non-empty and every message has a
// supported role and non-empty content.
func ValidateHistory(history ChatHistory) error {
	if len(history) == 0 {
		return NewError(ErrConfiguration, "chat history must contain at least one message")
	}
	for i, msg := range history {
		if !ValidRole(msg.Role) {
			return NewError(ErrConfiguration, fmt.Sprintf("message %d has invalid role %q", i, msg.Role))
		}
		if msg.Content == "" {
			return NewError(ErrConfiguration, fmt.Sprintf("message %d has empty content", i))
		}
	}
	return nil
}
