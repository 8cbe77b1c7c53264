package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/chatkit/models"
)

type fakeAPI struct {
	history  []models.Message
	listErr  error
	sendErr  error
	sent     []string
	sendResp *models.Message
}

func (f *fakeAPI) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.history, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, conversationID, content string) (*models.Message, error) {
	f.sent = append(f.sent, content)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.sendResp != nil {
		return f.sendResp, nil
	}
	return &models.Message{ID: "srv-" + content, ConversationID: conversationID, SenderID: "me", Content: content, CreatedAt: time.Now()}, nil
}

func at(sec int) time.Time {
	return time.Date(2025, 3, 10, 12, 0, sec, 0, time.UTC)
}

func msg(id, sender string, sec int) models.Message {
	return models.Message{ID: id, ConversationID: "c7", SenderID: sender, Content: "msg " + id, CreatedAt: at(sec)}
}

func frame(id, sender string, sec int) *models.Message {
	m := msg(id, sender, sec)
	return &m
}

func ids(msgs []*models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func newStream(api *fakeAPI) *Stream {
	return New("c7", "me", api, zap.NewNop().Sugar())
}

func TestLoadHistoryOrdersBaseline(t *testing.T) {
	api := &fakeAPI{history: []models.Message{
		msg("m3", "u2", 30),
		msg("m1", "u2", 10),
		msg("m2b", "u2", 20),
		msg("m2a", "u2", 20), // same instant as m2b, id breaks the tie
	}}
	s := newStream(api)

	require.NoError(t, s.LoadHistory(context.Background()))
	assert.Equal(t, []string{"m1", "m2a", "m2b", "m3"}, ids(s.Messages()))
}

func TestFramesBeforeBaselineAreBuffered(t *testing.T) {
	api := &fakeAPI{history: []models.Message{msg("m1", "u2", 10), msg("m2", "u2", 20)}}
	s := newStream(api)

	// Push wins the race against the history fetch.
	s.OnPush(frame("m3", "u2", 30))
	assert.Empty(t, s.Messages(), "nothing visible before the baseline")

	require.NoError(t, s.LoadHistory(context.Background()))
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(s.Messages()))
}

func TestBufferedFrameAlreadyInBaselineIsSkipped(t *testing.T) {
	api := &fakeAPI{history: []models.Message{msg("m1", "u2", 10), msg("m2", "u2", 20)}}
	s := newStream(api)

	// The frame raced the fetch and the server included it in the history.
	s.OnPush(frame("m2", "u2", 20))

	require.NoError(t, s.LoadHistory(context.Background()))
	assert.Equal(t, []string{"m1", "m2"}, ids(s.Messages()))
}

func TestTranscriptStaysNonDecreasing(t *testing.T) {
	api := &fakeAPI{}
	s := newStream(api)
	require.NoError(t, s.LoadHistory(context.Background()))

	s.OnPush(frame("m5", "u2", 50))
	s.OnPush(frame("m2", "u2", 20)) // late delivery of an older frame
	s.OnPush(frame("m7", "u2", 70))

	got := s.Messages()
	assert.Equal(t, []string{"m2", "m5", "m7"}, ids(got))
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.Before(got[i-1].CreatedAt))
	}
}

func TestSelfEchoIsFiltered(t *testing.T) {
	api := &fakeAPI{}
	s := newStream(api)
	require.NoError(t, s.LoadHistory(context.Background()))

	sent, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.NotNil(t, sent)

	// The push echo of the send carries the server id, not the optimistic
	// one. It must still be dropped, because the filter goes by sender.
	s.OnPush(&models.Message{ID: sent.ID, ConversationID: "c7", SenderID: "me", Content: "hello", CreatedAt: at(1)})

	msgs := s.Messages()
	require.Len(t, msgs, 1, "echo must not duplicate the optimistic copy")
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestDistinctRemoteMessagesAreNotFiltered(t *testing.T) {
	api := &fakeAPI{}
	s := newStream(api)
	require.NoError(t, s.LoadHistory(context.Background()))

	// Two genuinely distinct messages from the same remote sender in quick
	// succession must both land; only the local user's echoes are filtered.
	s.OnPush(frame("r1", "u2", 10))
	s.OnPush(frame("r2", "u2", 11))

	assert.Equal(t, []string{"r1", "r2"}, ids(s.Messages()))
}

func TestSendFailureRollsBackAndRestoresInput(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("boom")}
	s := newStream(api)
	require.NoError(t, s.LoadHistory(context.Background()))

	var restored string
	s.OnSendFailed = func(content string) { restored = content }

	_, err := s.Send(context.Background(), "my draft")
	require.Error(t, err)

	assert.Empty(t, s.Messages(), "no optimistic entry may survive a failed send")
	assert.Equal(t, "my draft", restored, "original text goes back to the input")
}

func TestSendBeforeBaselineSurvivesHistoryInstall(t *testing.T) {
	api := &fakeAPI{history: []models.Message{msg("m1", "u2", 10)}}
	s := newStream(api)

	// The send completes while the history fetch is still in flight, so the
	// server's snapshot does not include it yet.
	sent, err := s.Send(context.Background(), "racing the fetch")
	require.NoError(t, err)

	require.NoError(t, s.LoadHistory(context.Background()))

	assert.Equal(t, []string{"m1", sent.ID}, ids(s.Messages()), "own send must survive the baseline install")
}

func TestBaselineContainingConfirmedSendIsNotDuplicated(t *testing.T) {
	api := &fakeAPI{}
	s := newStream(api)

	sent, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)

	// By the time the history lands, the server has persisted the send.
	api.history = []models.Message{{ID: sent.ID, ConversationID: "c7", SenderID: "me", Content: "hello", CreatedAt: at(1)}}
	require.NoError(t, s.LoadHistory(context.Background()))

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, sent.ID, msgs[0].ID)
}

func TestConfirmedSendAdoptsServerID(t *testing.T) {
	api := &fakeAPI{}
	s := newStream(api)
	require.NoError(t, s.LoadHistory(context.Background()))

	sent, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, sent.ID, msgs[0].ID, "transcript carries the server id once confirmed")
}

func TestSendIsOptimistic(t *testing.T) {
	api := &fakeAPI{}
	s := newStream(api)
	require.NoError(t, s.LoadHistory(context.Background()))

	var appended []string
	s.SetListener(func(m *models.Message) { appended = append(appended, m.Content) })

	_, err := s.Send(context.Background(), "instant")
	require.NoError(t, err)

	assert.Equal(t, []string{"instant"}, appended, "optimistic copy is visible immediately")
	assert.Equal(t, []string{"instant"}, api.sent)
}

func TestForeignConversationFrameIgnored(t *testing.T) {
	api := &fakeAPI{}
	s := newStream(api)
	require.NoError(t, s.LoadHistory(context.Background()))

	s.OnPush(&models.Message{ID: "x", ConversationID: "other", SenderID: "u2", CreatedAt: at(1)})
	assert.Empty(t, s.Messages())
}
