package coordinator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/campushub/chatkit/models"
	"github.com/campushub/chatkit/push"
	"github.com/campushub/chatkit/stream"
	"github.com/campushub/chatkit/unread"
)

// Surface identifies which UI surface currently owns the transcript.
type Surface int

const (
	SurfaceNone Surface = iota
	SurfaceFullPage
	SurfaceFloating
)

func (s Surface) String() string {
	switch s {
	case SurfaceFullPage:
		return "full-page"
	case SurfaceFloating:
		return "floating"
	}
	return "none"
}

// transport is the slice of the push transport the coordinator drives.
type transport interface {
	Subscribe(conversationID string, h push.Handler) error
	Unsubscribe(conversationID string)
}

// api is the slice of the collaborator API handed to each stream.
type api interface {
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	SendMessage(ctx context.Context, conversationID, content string) (*models.Message, error)
}

// Coordinator owns the single shared active-conversation slot and arbitrates
// between the two UI surfaces: the dedicated full-page thread view and the
// floating widget. Surfaces are pure renderers of the coordinator's state;
// neither subscribes on its own, which is what rules out duplicate delivery.
//
// Switching the active conversation runs, in order: unsubscribe the previous
// topic, discard the old transcript, subscribe the new topic, fetch history.
// Subscribing before the history fetch completes is safe because the stream
// buffers frames until its baseline is set.
type Coordinator struct {
	transport   transport
	api         api
	ledger      *unread.Ledger
	localUserID string
	log         *zap.SugaredLogger

	// OnTranscriptReady, when set, fires once a newly activated
	// conversation's history baseline is in place and still relevant.
	OnTranscriptReady func(conversationID string)

	mu        sync.Mutex
	active    *models.Conversation
	str       *stream.Stream
	epoch     int64 // bumped on every activation change; guards stale fetches
	fullPage  bool
	floating  bool // floating surface visible
	minimized bool // floating's own toggle; survives navigation
}

func New(tr transport, api api, ledger *unread.Ledger, localUserID string, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{
		transport:   tr,
		api:         api,
		ledger:      ledger,
		localUserID: localUserID,
		log:         log,
	}
}

// Activate makes the given conversation the active selection for both
// surfaces, clears its unread counter and starts its transcript. Activating
// the conversation that is already active only re-clears the counter.
func (c *Coordinator) Activate(ctx context.Context, conv *models.Conversation) error {
	c.mu.Lock()

	if c.active != nil && c.active.ID == conv.ID {
		c.mu.Unlock()
		c.ledger.Clear(conv.ID)
		return nil
	}

	prev := ""
	if c.active != nil {
		prev = c.active.ID
	}

	c.epoch++
	ep := c.epoch

	s := stream.New(conv.ID, c.localUserID, c.api, c.log)
	c.active = conv
	c.str = s
	if !c.fullPage {
		c.floating = true
	}
	c.mu.Unlock()

	c.ledger.Clear(conv.ID)

	if prev != "" {
		c.transport.Unsubscribe(prev)
	}
	if err := c.transport.Subscribe(conv.ID, c.HandleFrame); err != nil {
		// Roll the slot back; a failed activation must not leave a selection
		// with no subscription and no transcript behind it.
		c.mu.Lock()
		if c.epoch == ep {
			c.epoch++
			c.active = nil
			c.str = nil
			c.floating = false
		}
		c.mu.Unlock()
		return err
	}

	go c.loadHistory(ctx, s, ep)

	c.log.Infow("conversation activated", "conversation", conv.ID, "previous", prev)
	return nil
}

// loadHistory fetches the baseline for s and reports readiness, unless the
// user has navigated on in the meantime, in which case the response is
// discarded against the stale selection.
func (c *Coordinator) loadHistory(ctx context.Context, s *stream.Stream, ep int64) {
	err := s.LoadHistory(ctx)

	c.mu.Lock()
	relevant := c.epoch == ep && c.str == s
	c.mu.Unlock()

	if !relevant {
		return
	}
	if err != nil {
		// Stale transcript is acceptable; a later manual refresh recovers.
		c.log.Warnw("history load failed", "conversation", s.ConversationID(), "err", err)
		return
	}
	if c.OnTranscriptReady != nil {
		c.OnTranscriptReady(s.ConversationID())
	}
}

// Deactivate clears the shared slot, tears down the subscription and hides
// the floating surface entirely.
func (c *Coordinator) Deactivate() {
	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return
	}
	id := c.active.ID
	c.epoch++
	c.active = nil
	c.str = nil
	c.floating = false
	c.mu.Unlock()

	c.transport.Unsubscribe(id)
	c.log.Infow("conversation deactivated", "conversation", id)
}

// SetFullPage records whether the user is on the dedicated thread view.
// Entering it shifts transcript ownership away from the floating surface
// without resetting any state; leaving it hands ownership back.
func (c *Coordinator) SetFullPage(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fullPage = open
	if open {
		c.floating = false
	} else if c.active != nil {
		c.floating = true
	}
}

// SetMinimized flips the floating widget's own toggle. The toggle is
// independent of which conversation is active and survives navigation.
// Expanding reveals the transcript, so the active counter clears.
func (c *Coordinator) SetMinimized(min bool) {
	c.mu.Lock()
	active := c.active
	c.minimized = min
	c.mu.Unlock()

	if !min && active != nil {
		c.ledger.Clear(active.ID)
	}
}

func (c *Coordinator) Minimized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minimized
}

// Active returns the shared selection, or nil.
func (c *Coordinator) Active() *models.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Stream returns the active conversation's transcript stream, or nil.
func (c *Coordinator) Stream() *stream.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.str
}

// Owner reports which surface renders the active transcript right now. By
// construction it is a single value, so the two surfaces can never both
// render the same thread.
func (c *Coordinator) Owner() Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.active == nil:
		return SurfaceNone
	case c.fullPage:
		return SurfaceFullPage
	case c.floating:
		return SurfaceFloating
	}
	return SurfaceNone
}

// Send posts into the active conversation through its stream.
func (c *Coordinator) Send(ctx context.Context, content string) (*models.Message, error) {
	c.mu.Lock()
	s := c.str
	c.mu.Unlock()
	if s == nil {
		return nil, ErrNoActiveConversation
	}
	return s.Send(ctx, content)
}

// HandleFrame routes one inbound push frame. Frames for the active
// conversation feed the transcript; they additionally bump the unread
// counter when the consuming surface is minimized. Frames for any other
// conversation only bump that conversation's counter. The local user's own
// echoes never count as unread.
func (c *Coordinator) HandleFrame(frame *models.Message) {
	c.mu.Lock()
	s := c.str
	activeID := ""
	if c.active != nil {
		activeID = c.active.ID
	}
	hidden := !c.fullPage && c.minimized
	c.mu.Unlock()

	if frame.ConversationID == activeID && s != nil {
		s.OnPush(frame)
		if hidden && frame.SenderID != c.localUserID {
			c.ledger.Increment(frame.ConversationID)
		}
		return
	}
	if frame.SenderID != c.localUserID {
		c.ledger.Increment(frame.ConversationID)
	}
}
