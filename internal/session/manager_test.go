package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/extract"
	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/pkg/logger"
)

type recordingSink struct {
	mu      sync.Mutex
	records []*model.ConversationRecord
	ctxErrs []error
}

func (r *recordingSink) Merge(ctx context.Context, rec *model.ConversationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func chatTurn(role, text string) *dom.Node {
	return &dom.Node{
		Tag: "div",
		Attrs: map[string]string{
			"data-testid":              "conversation-turn",
			"data-message-author-role": role,
		},
		Text: text,
	}
}

func chatTree(turns ...*dom.Node) *dom.Node {
	return &dom.Node{Tag: "main", Children: turns}
}

func newTestManager(sink *recordingSink) (*Manager, *extract.ManualScheduler) {
	sched := extract.NewManualScheduler()
	return NewManager(sink, sink, sched, DefaultIdleTimeout, logger.NewNop()), sched
}

func TestCreateDetectsPlatform(t *testing.T) {
	m, _ := newTestManager(&recordingSink{})

	s, err := m.Create(context.Background(), "https://chat.openai.com/c/abc123")
	require.NoError(t, err)
	assert.Equal(t, model.PlatformChatGPT, s.Profile.ID)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Count())
}

func TestCreateUnknownHostGetsGenericProfile(t *testing.T) {
	m, _ := newTestManager(&recordingSink{})

	s, err := m.Create(context.Background(), "https://chat.example.org/room/1")
	require.NoError(t, err)
	assert.Equal(t, model.PlatformUnknown, s.Profile.ID)
}

func TestCreateRejectsBadURL(t *testing.T) {
	m, _ := newTestManager(&recordingSink{})
	_, err := m.Create(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestSnapshotDrivesExtraction(t *testing.T) {
	sink := &recordingSink{}
	m, sched := newTestManager(sink)

	s, err := m.Create(context.Background(), "https://chat.openai.com/c/abc")
	require.NoError(t, err)

	// First automatic attempt ran against the empty document and is waiting
	// on its retry delay.
	state, err := m.PushSnapshot(s.ID, chatTree(
		chatTurn("user", "What is the capital of France exactly?"),
		chatTurn("assistant", "The capital of France is Paris."),
	))
	require.NoError(t, err)
	assert.Equal(t, extract.StateRetryPending, state)

	// Container discovery fires at 2s, the extraction retry at 3s.
	sched.Advance(3 * time.Second)
	require.Equal(t, 1, sink.count())
	assert.Equal(t, extract.StateSucceeded, s.Extractor.State())
	assert.True(t, s.Watcher.Observing())

	rec := sink.records[0]
	assert.Equal(t, model.PlatformChatGPT, rec.Platform)
	assert.Equal(t, 2, rec.TurnCount)
	assert.Equal(t, model.RoleUser, rec.Turns[0].Role)
	assert.Equal(t, model.RoleAI, rec.Turns[1].Role)
}

func TestGrowingSnapshotTriggersReExtraction(t *testing.T) {
	sink := &recordingSink{}
	m, sched := newTestManager(sink)

	s, err := m.Create(context.Background(), "https://chat.openai.com/c/abc")
	require.NoError(t, err)

	_, err = m.PushSnapshot(s.ID, chatTree(
		chatTurn("user", "Tell me about Go's scheduler please."),
		chatTurn("assistant", "The scheduler multiplexes goroutines onto OS threads."),
	))
	require.NoError(t, err)
	sched.Advance(3 * time.Second)
	require.Equal(t, 1, sink.count())

	// A new assistant turn streams in: the watcher sees node growth and
	// re-extracts without any scheduler involvement.
	_, err = m.PushSnapshot(s.ID, chatTree(
		chatTurn("user", "Tell me about Go's scheduler please."),
		chatTurn("assistant", "The scheduler multiplexes goroutines onto OS threads."),
		chatTurn("assistant", "It uses work stealing to keep processors busy."),
	))
	require.NoError(t, err)
	require.Equal(t, 2, sink.count())
	assert.Equal(t, 3, sink.records[1].TurnCount)
}

func TestPersistenceOutlivesCreatingContext(t *testing.T) {
	sink := &recordingSink{}
	m, sched := newTestManager(sink)

	// The HTTP request context that created the session ends long before the
	// page delivers content.
	reqCtx, cancelReq := context.WithCancel(context.Background())
	s, err := m.Create(reqCtx, "https://chat.openai.com/c/abc")
	require.NoError(t, err)
	cancelReq()

	_, err = m.PushSnapshot(s.ID, chatTree(
		chatTurn("user", "What is the capital of France exactly?"),
		chatTurn("assistant", "The capital of France is Paris."),
	))
	require.NoError(t, err)
	sched.Advance(3 * time.Second)

	require.Equal(t, 1, sink.count())
	require.NoError(t, sink.ctxErrs[0], "persist must run on the session's context, not the request's")

	// Closing the session is what ends its context.
	require.NoError(t, m.Close(s.ID))
}

func TestCloseRemovesSession(t *testing.T) {
	m, _ := newTestManager(&recordingSink{})

	s, err := m.Create(context.Background(), "https://claude.ai/chat/xyz")
	require.NoError(t, err)

	require.NoError(t, m.Close(s.ID))
	assert.Zero(t, m.Count())

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID), ErrSessionNotFound)
}

func TestPushSnapshotUnknownSession(t *testing.T) {
	m, _ := newTestManager(&recordingSink{})
	_, err := m.PushSnapshot("nope", chatTree())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReapIdleSessions(t *testing.T) {
	m, _ := newTestManager(&recordingSink{})

	current := time.Unix(1000, 0).UTC()
	m.now = func() time.Time { return current }

	s, err := m.Create(context.Background(), "https://claude.ai/chat/xyz")
	require.NoError(t, err)

	current = current.Add(DefaultIdleTimeout + time.Minute)
	m.reapIdle()

	assert.Zero(t, m.Count())
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
