package models

import (
	"time"
)

// Message is a chat message. The same shape travels over the REST API and as
// the body of a push frame, so one type serves both.
type Message struct {
	ID              string     `json:"id"`               // Unique within a conversation
	ConversationID  string     `json:"conversationId"`   // ID of the owning conversation
	SenderID        string     `json:"senderId"`         // ID of the sending user
	SenderName      string     `json:"senderName"`       // Display name snapshot at send time
	SenderAvatarURL string     `json:"senderAvatarUrl"`  // Avatar snapshot at send time
	Content         string     `json:"content"`          // Message text
	CreatedAt       time.Time  `json:"createdAt"`        // Timestamp of message creation
	ReadAt          *time.Time `json:"readAt,omitempty"` // Set once the recipient has read it
}

// Before reports whether m sorts ahead of other: ascending creation time,
// ties broken by id so the order is total.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
