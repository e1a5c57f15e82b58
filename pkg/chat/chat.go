package chat

import (
	"fmt"
	"strings"
)

const (
	ChatRoleUser   = "user"      // Player turn
	ChatRoleAgent  = "assistant" // Model reply
	ChatRoleSystem = "system"    // Instructions
)

// ChatMessage is a single message sent to a text model.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleSystem, Content: content}
}

// User builds a user message.
func User(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleUser, Content: content}
}

// Validate checks that the message has a known role and content.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case ChatRoleUser, ChatRoleAgent, ChatRoleSystem:
	default:
		return fmt.Errorf("unknown role %q", m.Role)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	return nil
}

// Split separates system messages from the rest. Providers that take the
// system prompt as a separate field use it; the system parts are joined
// with blank lines.
func Split(messages []ChatMessage) (string, []ChatMessage) {
	var system []string
	var rest []ChatMessage
	for _, m := range messages {
		if m.Role == ChatRoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
