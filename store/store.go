// Package store defines conversation persistence and implementations.
package store

import (
	"context"
	"time"
)

// Message is one entry in a conversation's history.
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SessionID      string    `json:"session_id,omitempty"`
	Role           string    `json:"role"` // user, assistant
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// TranscriptEntry mirrors one platform transcript item for persistence.
type TranscriptEntry struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SessionEnd is the persisted summary of a finished session.
type SessionEnd struct {
	SessionID      string            `json:"session_id"`
	ConversationID string            `json:"conversation_id"`
	AgentID        string            `json:"agent_id,omitempty"`
	StartedAt      string            `json:"started_at,omitempty"`
	EndedAt        string            `json:"ended_at,omitempty"`
	DurationMs     int64             `json:"duration_ms,omitempty"`
	Transcript     []TranscriptEntry `json:"transcript,omitempty"`
	RecordedAt     time.Time         `json:"recorded_at"`
}

// Store persists conversation history across webhook deliveries.
type Store interface {
	AppendMessages(ctx context.Context, messages []Message) error
	GetMessages(ctx context.Context, conversationID string) ([]Message, error)
	RecordSessionEnd(ctx context.Context, end *SessionEnd) error
	GetSessionEnd(ctx context.Context, sessionID string) (*SessionEnd, error)
	Close() error
}
