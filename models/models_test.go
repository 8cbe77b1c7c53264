package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageOrdering(t *testing.T) {
	t1 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	a := &Message{ID: "a", CreatedAt: t1}
	b := &Message{ID: "b", CreatedAt: t1}
	later := &Message{ID: "0", CreatedAt: t1.Add(time.Second)}

	assert.True(t, a.Before(b), "same instant, id breaks the tie")
	assert.False(t, b.Before(a))
	assert.True(t, a.Before(later))
	assert.False(t, later.Before(a), "creation time beats id")
}

func TestDisplayName(t *testing.T) {
	direct := &Conversation{
		Kind: KindDirect,
		Participants: []Participant{
			{ID: "u1", Name: "Me"},
			{ID: "u2", Name: "Ada"},
		},
	}
	assert.Equal(t, "Ada", direct.DisplayName("u1"))
	assert.Equal(t, "Me", direct.DisplayName("u2"))

	group := &Conversation{Kind: KindGroup, Name: "Study Circle"}
	assert.Equal(t, "Study Circle", group.DisplayName("u1"))
}

func TestPeer(t *testing.T) {
	direct := &Conversation{
		Kind: KindDirect,
		Participants: []Participant{
			{ID: "u1", Name: "Me"},
			{ID: "u2", Name: "Ada"},
		},
	}
	peer := direct.Peer("u1")
	assert.NotNil(t, peer)
	assert.Equal(t, "u2", peer.ID)

	group := &Conversation{Kind: KindGroup}
	assert.Nil(t, group.Peer("u1"))
}

func TestConversationKindValidation(t *testing.T) {
	assert.True(t, KindDirect.IsValid())
	assert.True(t, KindGroup.IsValid())
	assert.False(t, ConversationKind("CHANNEL").IsValid())
}
