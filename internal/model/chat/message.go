package chat

import "time"

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TranscriptMessage is one replayed turn of a conversation.
type TranscriptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Message persists individual turns on the development backend.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Transcript strips backend bookkeeping fields.
func (m Message) Transcript() TranscriptMessage {
	return TranscriptMessage{Role: m.Role, Content: m.Content}
}

// Conversation is the development backend's view of a widget session.
type Conversation struct {
	ID           string    `json:"sessionId"`
	CustomerID   string    `json:"customerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}
