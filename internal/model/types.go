package model

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User is an account row, created lazily on first session association.
type User struct {
	ID          string    `json:"id"`
	DisplayName *string   `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Session groups an ordered sequence of messages.
type Session struct {
	ID             string    `json:"id"`
	UserID         *string   `json:"userId,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// Message is one immutable conversation turn. Text is nil for audio-only turns.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Text      *string   `json:"text,omitempty"`
	AudioURL  *string   `json:"audioUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MemoryItem is an immutable long-term memory record. SessionID is nil for
// global memories.
type MemoryItem struct {
	ID         string                 `json:"id"`
	SessionID  *string                `json:"sessionId,omitempty"`
	Text       string                 `json:"text"`
	Tags       []string               `json:"tags"`
	Source     string                 `json:"source"`
	TrustScore float64                `json:"trustScore"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	AddedAt    time.Time              `json:"addedAt"`
}

// MemoryHit is a ranked semantic search result. Score is the raw index
// distance: lower means more similar, and only the ordering is authoritative
// across backends.
type MemoryHit struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Score    float64                `json:"score"`
}
