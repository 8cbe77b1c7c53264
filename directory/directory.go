package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campushub/chatkit/models"
)

// api is the slice of the collaborator API the directory needs.
type api interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	CreateDirect(ctx context.Context, userID string) (*models.Conversation, error)
	CreateGroup(ctx context.Context, name string, memberIDs []string, avatarURL string) (*models.Conversation, error)
	RemoveParticipant(ctx context.Context, conversationID, userID string) error
}

// Directory owns the user's conversation list. The list is refreshed by
// polling and by optimistic insert on creation; the server is authoritative
// for conversation metadata, so a refresh replaces the list wholesale except
// for conversations created locally that the server has not echoed back yet.
type Directory struct {
	api         api
	localUserID string
	log         *zap.SugaredLogger

	mu       sync.Mutex
	convos   []*models.Conversation
	pending  map[string]bool // created locally, not yet seen in a refresh
	onChange func()
}

func New(api api, localUserID string, log *zap.SugaredLogger) *Directory {
	return &Directory{
		api:         api,
		localUserID: localUserID,
		log:         log,
		pending:     make(map[string]bool),
	}
}

// SetOnChange registers a callback invoked after every visible list change.
func (d *Directory) SetOnChange(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

// Conversations returns a snapshot of the current list.
func (d *Directory) Conversations() []*models.Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*models.Conversation, len(d.convos))
	copy(out, d.convos)
	return out
}

// Get returns the conversation with the given id, or nil.
func (d *Directory) Get(conversationID string) *models.Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findLocked(conversationID)
}

// Refresh fetches the full list and replaces the local one. Conversations
// inserted optimistically but not yet confirmed by the server survive the
// replacement; everything else is last-write-wins from the server. A failed
// refresh leaves the previous list untouched.
func (d *Directory) Refresh(ctx context.Context) error {
	fetched, err := d.api.ListConversations(ctx)
	if err != nil {
		d.log.Debugw("refresh failed, keeping previous list", "err", err)
		return fmt.Errorf("refresh conversations: %w", err)
	}

	d.mu.Lock()

	next := make([]*models.Conversation, 0, len(fetched))
	seen := make(map[string]bool, len(fetched))
	for i := range fetched {
		next = append(next, &fetched[i])
		seen[fetched[i].ID] = true
		// The server now knows this conversation; it no longer needs
		// protection from replacement.
		delete(d.pending, fetched[i].ID)
	}

	// Keep unconfirmed optimistic inserts at the front, newest first.
	var kept []*models.Conversation
	for _, c := range d.convos {
		if d.pending[c.ID] && !seen[c.ID] {
			kept = append(kept, c)
		}
	}
	d.convos = append(kept, next...)
	onChange := d.onChange
	d.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return nil
}

// Poll refreshes the list on the given cadence until ctx is cancelled.
// Failed ticks are swallowed; the next tick is the retry.
func (d *Directory) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				d.log.Debugw("poll tick failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// CreateDirect opens the 1:1 conversation with the given user and puts it at
// the top of the list. The server resolves repeated attempts to the same
// conversation, so inserting deduplicates by id: two racing calls end with
// one row. Failures propagate to the caller; nothing is inserted.
func (d *Directory) CreateDirect(ctx context.Context, userID string) (*models.Conversation, error) {
	conv, err := d.api.CreateDirect(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create direct conversation: %w", err)
	}
	return d.insert(conv), nil
}

// CreateGroup creates a group conversation and puts it at the top of the list.
func (d *Directory) CreateGroup(ctx context.Context, name string, memberIDs []string, avatarURL string) (*models.Conversation, error) {
	conv, err := d.api.CreateGroup(ctx, name, memberIDs, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("create group conversation: %w", err)
	}
	return d.insert(conv), nil
}

// LeaveGroup removes the local user from a group and drops the conversation
// from the list. This is the only client-side removal path.
func (d *Directory) LeaveGroup(ctx context.Context, conversationID string) error {
	if err := d.api.RemoveParticipant(ctx, conversationID, d.localUserID); err != nil {
		return fmt.Errorf("leave group %s: %w", conversationID, err)
	}

	d.mu.Lock()
	for i, c := range d.convos {
		if c.ID == conversationID {
			d.convos = append(d.convos[:i], d.convos[i+1:]...)
			break
		}
	}
	delete(d.pending, conversationID)
	onChange := d.onChange
	d.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return nil
}

func (d *Directory) insert(conv *models.Conversation) *models.Conversation {
	d.mu.Lock()

	if existing := d.findLocked(conv.ID); existing != nil {
		d.mu.Unlock()
		return existing
	}
	d.convos = append([]*models.Conversation{conv}, d.convos...)
	d.pending[conv.ID] = true
	onChange := d.onChange
	d.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return conv
}

func (d *Directory) findLocked(conversationID string) *models.Conversation {
	for _, c := range d.convos {
		if c.ID == conversationID {
			return c
		}
	}
	return nil
}
