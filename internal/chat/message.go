// Package chat holds chat sessions and messages and orchestrates
// streaming query results into them.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle is the title of a session before its first message
const DefaultTitle = "New Chat"

// maxTitleLen is the number of visible characters kept from the first
// user utterance when deriving a session title
const maxTitleLen = 50

// Message is a single chat message. A user message is immutable after
// creation; an assistant message's content may grow while Streaming is
// true, and Streaming flips to false exactly once, on completion or
// error.
type Message struct {
	ID              string
	Role            string // "user" or "assistant"
	Content         string
	GeneratedCode   string
	ExecutionResult string
	Timestamp       time.Time
	Streaming       bool
}

// Session is one chat conversation. Messages are in insertion order,
// which is chronological order; they are never reordered.
type Session struct {
	ID        string
	Title     string
	Messages  []Message
	CreatedAt time.Time
}

// NewUserMessage creates an immutable user message
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewAssistantPlaceholder creates an empty assistant message that is
// still streaming
func NewAssistantPlaceholder() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		Streaming: true,
	}
}

// clone returns a deep copy of the session
func (s *Session) clone() Session {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}

// TruncateTitle derives a session title from the first user utterance:
// at most 50 visible characters, with an ellipsis marker when truncated.
func TruncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleLen {
		return text
	}
	return string(runes[:maxTitleLen]) + "..."
}
