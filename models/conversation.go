package models

import "time"

// ConversationKind distinguishes 1:1 threads from named groups.
type ConversationKind string

const (
	KindDirect ConversationKind = "DIRECT"
	KindGroup  ConversationKind = "GROUP"
)

func (k ConversationKind) IsValid() bool {
	switch k {
	case KindDirect, KindGroup:
		return true
	}
	return false
}

// Participant is a member of a conversation as the server reported it.
type Participant struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	AvatarURL  string     `json:"avatarUrl,omitempty"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

// Conversation is one thread in the user's conversation list.
type Conversation struct {
	ID           string           `json:"id"`
	Kind         ConversationKind `json:"kind"`
	Name         string           `json:"name,omitempty"` // Group name; empty for direct threads
	AvatarURL    string           `json:"avatarUrl,omitempty"`
	CreatorID    string           `json:"creatorId,omitempty"` // Set for groups only
	Participants []Participant    `json:"participants"`
	LastMessage  *Message         `json:"lastMessage,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// DisplayName is the name shown in the list: the group name for groups, the
// other participant's name for direct threads.
func (c *Conversation) DisplayName(localUserID string) string {
	if c.Kind == KindGroup {
		return c.Name
	}
	for _, p := range c.Participants {
		if p.ID != localUserID {
			return p.Name
		}
	}
	return c.Name
}

// Peer returns the other participant of a direct conversation, or nil for
// groups and degenerate threads.
func (c *Conversation) Peer(localUserID string) *Participant {
	if c.Kind != KindDirect {
		return nil
	}
	for i := range c.Participants {
		if c.Participants[i].ID != localUserID {
			return &c.Participants[i]
		}
	}
	return nil
}
