package stream

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushub/chatkit/models"
)

// api is the slice of the collaborator API the stream needs.
type api interface {
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	SendMessage(ctx context.Context, conversationID, content string) (*models.Message, error)
}

// Listener is notified for every message appended to the transcript after
// the history baseline is in place.
type Listener func(msg *models.Message)

// Stream holds the visible transcript of one conversation.
//
// The transcript is always non-decreasing in creation time. Until LoadHistory
// has set the baseline, inbound frames are buffered rather than appended, so
// a frame racing the history fetch can never land ahead of older messages.
//
// Frames from the local user are dropped: the local copy was appended
// optimistically at send time, and the push echo of it may carry a different
// id, so the filter goes by sender id alone.
type Stream struct {
	conversationID string
	localUserID    string
	api            api
	log            *zap.SugaredLogger

	// OnSendFailed, when set, receives the original text of a send that the
	// server rejected, so the input can be restored for a retry.
	OnSendFailed func(content string)

	mu       sync.Mutex
	ready    bool
	buffered []*models.Message
	msgs     []*models.Message
	listener Listener
}

func New(conversationID, localUserID string, api api, log *zap.SugaredLogger) *Stream {
	return &Stream{
		conversationID: conversationID,
		localUserID:    localUserID,
		api:            api,
		log:            log,
	}
}

func (s *Stream) ConversationID() string { return s.conversationID }

// SetListener registers the append callback. At most one listener is live;
// the two UI surfaces share it through the coordinator rather than each
// registering their own.
func (s *Stream) SetListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Ready reports whether the history baseline has been set.
func (s *Stream) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Messages returns a snapshot of the transcript.
func (s *Stream) Messages() []*models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// LoadHistory fetches the conversation's message history and installs it as
// the transcript baseline, then replays what arrived while the fetch was in
// flight: frames buffered by OnPush, and the local user's own sends, which
// live in the transcript already and may not have reached the server's
// snapshot yet. Entries already present in the baseline (matched by id) are
// skipped during the replay.
func (s *Stream) LoadHistory(ctx context.Context) error {
	history, err := s.api.ListMessages(ctx, s.conversationID)
	if err != nil {
		return fmt.Errorf("load history for %s: %w", s.conversationID, err)
	}

	msgs := make([]*models.Message, len(history))
	for i := range history {
		msgs[i] = &history[i]
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Before(msgs[j]) })

	s.mu.Lock()
	defer s.mu.Unlock()

	prior := s.msgs
	s.msgs = msgs
	s.ready = true

	for _, m := range prior {
		if m.SenderID != s.localUserID || s.containsLocked(m.ID) {
			continue
		}
		s.insertLocked(m)
	}
	for _, frame := range s.buffered {
		if s.containsLocked(frame.ID) {
			continue
		}
		s.insertLocked(frame)
	}
	s.buffered = nil
	return nil
}

// OnPush handles one inbound frame for this conversation.
func (s *Stream) OnPush(frame *models.Message) {
	if frame.ConversationID != s.conversationID {
		return
	}
	if frame.SenderID == s.localUserID {
		// Echo of an optimistic send; already on screen.
		s.log.Debugw("filtered self echo", "conversation", s.conversationID, "id", frame.ID)
		return
	}

	s.mu.Lock()
	if !s.ready {
		s.buffered = append(s.buffered, frame)
		s.mu.Unlock()
		return
	}
	s.insertLocked(frame)
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(frame)
	}
}

// Send appends an optimistic copy immediately and posts the message to the
// server. On failure the optimistic copy is rolled back and the original text
// is handed to OnSendFailed so the input can be restored; it is never
// silently dropped.
func (s *Stream) Send(ctx context.Context, content string) (*models.Message, error) {
	optimistic := &models.Message{
		ID:             "local-" + uuid.NewString(),
		ConversationID: s.conversationID,
		SenderID:       s.localUserID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.insertLocked(optimistic)
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(optimistic)
	}

	confirmed, err := s.api.SendMessage(ctx, s.conversationID, content)
	if err != nil {
		s.mu.Lock()
		s.removeLocked(optimistic.ID)
		s.mu.Unlock()
		if s.OnSendFailed != nil {
			s.OnSendFailed(content)
		}
		return nil, fmt.Errorf("send to %s: %w", s.conversationID, err)
	}

	// Swap the optimistic entry for the server's confirmed copy so a later
	// history reload matches it by id instead of duplicating it.
	replacement := *confirmed
	if replacement.CreatedAt.IsZero() {
		replacement.CreatedAt = optimistic.CreatedAt
	}
	s.mu.Lock()
	if s.containsLocked(optimistic.ID) {
		s.removeLocked(optimistic.ID)
		s.insertLocked(&replacement)
	}
	s.mu.Unlock()
	return confirmed, nil
}

// insertLocked places a message at its ordered position. Most frames arrive
// in order, so the scan from the tail is usually a single comparison.
func (s *Stream) insertLocked(m *models.Message) {
	i := len(s.msgs)
	for i > 0 && m.Before(s.msgs[i-1]) {
		i--
	}
	s.msgs = append(s.msgs, nil)
	copy(s.msgs[i+1:], s.msgs[i:])
	s.msgs[i] = m
}

func (s *Stream) removeLocked(id string) {
	for i, m := range s.msgs {
		if m.ID == id {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			return
		}
	}
}

func (s *Stream) containsLocked(id string) bool {
	for _, m := range s.msgs {
		if m.ID == id {
			return true
		}
	}
	return false
}
