package push

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/campushub/chatkit/config"
	"github.com/campushub/chatkit/models"
)

// Handler receives every decoded frame arriving on a subscribed
// conversation's subject.
type Handler func(msg *models.Message)

// subscription is the minimal surface the transport needs from a live
// subscription, so tests can stand in for NATS.
type subscription interface {
	Unsubscribe() error
}

type conn interface {
	Subscribe(subject string, cb nats.MsgHandler) (subscription, error)
	IsConnected() bool
	Close()
}

// Transport is the push side of the conversation layer: a persistent,
// auto-reconnecting connection carrying one subject per conversation.
// It holds no conversation-domain state beyond which subjects are live;
// routing a frame to transcript or unread counter is the caller's job.
//
// The channel is receive-only. Sends go through the REST API, and frames
// published while the connection is down are lost; a history reload is the
// recovery path.
type Transport struct {
	conn conn
	log  *zap.SugaredLogger

	mu   sync.Mutex
	subs map[string]subscription
}

// New dials the push endpoint. Connection-level failures reconnect forever
// with a fixed delay; subscriptions that were live before a drop are
// re-established by the client on reconnect.
func New(url string, log *zap.SugaredLogger) (*Transport, error) {
	nc, err := nats.Connect(url,
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warnw("push channel disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infow("push channel reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to push endpoint: %w", err)
	}
	return &Transport{conn: natsConn{nc}, log: log, subs: make(map[string]subscription)}, nil
}

// Close drops every live subscription and the connection.
func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, sub := range t.subs {
		_ = sub.Unsubscribe()
		delete(t.subs, id)
	}
	t.conn.Close()
}

// Connected reports whether the underlying connection is currently up.
func (t *Transport) Connected() bool {
	return t.conn.IsConnected()
}

// Subscribe starts delivering frames for the given conversation to handler.
// At most one subscription per conversation id is live at a time; calling
// Subscribe for an id that already has one replaces it, so a frame is never
// delivered twice.
func (t *Transport) Subscribe(conversationID string, handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.subs[conversationID]; ok {
		_ = prev.Unsubscribe()
		delete(t.subs, conversationID)
	}

	subject := Subject(conversationID)
	sub, err := t.conn.Subscribe(subject, func(m *nats.Msg) {
		var msg models.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			// Malformed frames are dropped; they must never kill the stream.
			t.log.Warnw("dropping malformed frame", "subject", m.Subject, "err", err)
			return
		}
		handler(&msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", subject, err)
	}

	t.subs[conversationID] = sub
	t.log.Debugw("subscribed", "subject", subject)
	return nil
}

// Unsubscribe tears down the subscription for one conversation. Unknown ids
// are a no-op.
func (t *Transport) Unsubscribe(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sub, ok := t.subs[conversationID]
	if !ok {
		return
	}
	_ = sub.Unsubscribe()
	delete(t.subs, conversationID)
	t.log.Debugw("unsubscribed", "subject", Subject(conversationID))
}

// ActiveSubscriptions returns the conversation ids with a live subscription.
func (t *Transport) ActiveSubscriptions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	return ids
}

// Subject generates the push subject for a conversation.
func Subject(conversationID string) string {
	return fmt.Sprintf("%s.%s", config.SubjectPrefix, conversationID)
}

type natsConn struct{ nc *nats.Conn }

func (c natsConn) Subscribe(subject string, cb nats.MsgHandler) (subscription, error) {
	return c.nc.Subscribe(subject, cb)
}

func (c natsConn) IsConnected() bool { return c.nc.IsConnected() }

func (c natsConn) Close() { c.nc.Close() }
