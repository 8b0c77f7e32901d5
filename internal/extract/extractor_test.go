package extract

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/internal/platform"
	"github.com/mzhang055/twirl/pkg/logger"
)

type recordingSink struct {
	mu      sync.Mutex
	records []*model.ConversationRecord
}

func (s *recordingSink) Merge(_ context.Context, rec *model.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) all() []*model.ConversationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.ConversationRecord(nil), s.records...)
}

// swapDoc is a document whose root can be replaced between passes.
type swapDoc struct {
	mu   sync.Mutex
	root *dom.Node
}

func (d *swapDoc) Root() *dom.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

func (d *swapDoc) set(root *dom.Node) {
	if root != nil {
		root.Link()
	}
	d.mu.Lock()
	d.root = root
	d.mu.Unlock()
}

func turnNode(role, text string) *dom.Node {
	return &dom.Node{
		Tag: "div",
		Attrs: map[string]string{
			"data-testid":              "conversation-turn",
			"data-message-author-role": role,
		},
		Children: []*dom.Node{
			{Tag: "div", Attrs: map[string]string{"class": "whitespace-pre-wrap"}, Text: text},
		},
	}
}

func conversationTree(turns ...*dom.Node) *dom.Node {
	root := &dom.Node{Tag: "body", Children: []*dom.Node{
		{Tag: "main", Children: turns},
	}}
	root.Link()
	return root
}

func TestExtractorSucceedsOnFirstAttempt(t *testing.T) {
	sink := &recordingSink{}
	doc := &swapDoc{}
	doc.set(conversationTree(
		turnNode("user", "what is a goroutine exactly?"),
		turnNode("assistant", "a goroutine is a lightweight thread managed by the runtime"),
	))
	sched := NewManualScheduler()
	p := platform.ByID(model.PlatformChatGPT)

	e := New(p, doc, sink, sched, logger.NewNop(), "https://chatgpt.com/c/1")
	e.Start(context.Background())

	assert.Equal(t, StateSucceeded, e.State())
	assert.Equal(t, 1, e.Attempts())
	assert.Zero(t, sched.Pending())

	recs := sink.all()
	require.Len(t, recs, 1)
	require.Len(t, recs[0].Turns, 2)
	assert.Equal(t, model.RoleUser, recs[0].Turns[0].Role)
	assert.Equal(t, model.RoleAI, recs[0].Turns[1].Role)
	assert.Equal(t, model.PlatformChatGPT, recs[0].Platform)
	assert.Equal(t, "https://chatgpt.com/c/1", recs[0].URL)
}

func TestExtractorRetriesUntilContentAppears(t *testing.T) {
	sink := &recordingSink{}
	doc := &swapDoc{}
	doc.set(conversationTree())
	sched := NewManualScheduler()
	p := platform.ByID(model.PlatformChatGPT)

	e := New(p, doc, sink, sched, logger.NewNop(), "https://chatgpt.com/c/2")
	e.Start(context.Background())

	assert.Equal(t, StateRetryPending, e.State())
	assert.Equal(t, 1, sched.Pending())

	// Still empty after one delay.
	sched.Advance(p.RetryDelay)
	assert.Equal(t, StateRetryPending, e.State())
	assert.Equal(t, 2, e.Attempts())

	// Content renders before the next retry fires.
	doc.set(conversationTree(
		turnNode("user", "hello, are you there today?"),
	))
	sched.Advance(p.RetryDelay)

	assert.Equal(t, StateSucceeded, e.State())
	assert.Equal(t, 3, e.Attempts())
	assert.Len(t, sink.all(), 1)
}

func TestExtractorExhaustsAfterMaxAttempts(t *testing.T) {
	sink := &recordingSink{}
	doc := &swapDoc{}
	doc.set(conversationTree())
	sched := NewManualScheduler()
	p := platform.ByID(model.PlatformChatGPT)

	e := New(p, doc, sink, sched, logger.NewNop(), "https://chatgpt.com/c/3", WithMaxAttempts(3))
	e.Start(context.Background())
	sched.Advance(10 * p.RetryDelay)

	assert.Equal(t, StateExhausted, e.State())
	assert.Equal(t, 3, e.Attempts())
	assert.Zero(t, sched.Pending())
	assert.Empty(t, sink.all())
}

func TestTriggerIfIdleAfterExhaustion(t *testing.T) {
	sink := &recordingSink{}
	doc := &swapDoc{}
	doc.set(conversationTree())
	sched := NewManualScheduler()
	p := platform.ByID(model.PlatformChatGPT)

	e := New(p, doc, sink, sched, logger.NewNop(), "https://chatgpt.com/c/4", WithMaxAttempts(1))
	e.Start(context.Background())
	require.Equal(t, StateExhausted, e.State())

	doc.set(conversationTree(
		turnNode("user", "finally the page rendered something"),
	))
	assert.True(t, e.TriggerIfIdle(context.Background()))

	assert.Equal(t, StateSucceeded, e.State())
	assert.Len(t, sink.all(), 1)
	// Mutation-driven passes never count as automatic attempts.
	assert.Equal(t, 1, e.Attempts())
}

func TestTriggerIfIdleRestoresStateOnEmptyPass(t *testing.T) {
	sink := &recordingSink{}
	doc := &swapDoc{}
	doc.set(conversationTree())
	sched := NewManualScheduler()
	p := platform.ByID(model.PlatformChatGPT)

	e := New(p, doc, sink, sched, logger.NewNop(), "https://chatgpt.com/c/5", WithMaxAttempts(1))
	e.Start(context.Background())
	require.Equal(t, StateExhausted, e.State())

	assert.True(t, e.TriggerIfIdle(context.Background()))
	assert.Equal(t, StateExhausted, e.State())
	assert.Empty(t, sink.all())
}

func TestExtractorCloseCancelsRetry(t *testing.T) {
	sink := &recordingSink{}
	doc := &swapDoc{}
	doc.set(conversationTree())
	sched := NewManualScheduler()
	p := platform.ByID(model.PlatformChatGPT)

	e := New(p, doc, sink, sched, logger.NewNop(), "https://chatgpt.com/c/6")
	e.Start(context.Background())
	require.Equal(t, StateRetryPending, e.State())

	e.Close()
	assert.Zero(t, sched.Pending())

	sched.Advance(time.Minute)
	assert.Equal(t, 1, e.Attempts())
	assert.False(t, e.TriggerIfIdle(context.Background()))
}

type panicDoc struct{}

func (panicDoc) Root() *dom.Node { panic("snapshot decode raced a swap") }

func TestExtractorSurvivesPanicDuringPass(t *testing.T) {
	sink := &recordingSink{}
	sched := NewManualScheduler()
	p := platform.ByID(model.PlatformChatGPT)

	e := New(p, panicDoc{}, sink, sched, logger.NewNop(), "https://chatgpt.com/c/7")
	e.Start(context.Background())

	// A panicking pass counts as an empty one.
	assert.Equal(t, StateRetryPending, e.State())
	assert.Equal(t, 1, sched.Pending())
}

func TestBuildTurnsFiltersShortTurns(t *testing.T) {
	p := platform.ByID(model.PlatformChatGPT)
	root := conversationTree(
		turnNode("user", "ok"),
		turnNode("assistant", "glad that worked for you"),
		turnNode("user", "exactly10!"),
	)

	turns := BuildTurns(p, root)
	require.Len(t, turns, 1)
	assert.Equal(t, "glad that worked for you", turns[0].Text)
	assert.Equal(t, model.RoleAI, turns[0].Role)
}

func TestBuildTurnsTextSelectorFallback(t *testing.T) {
	p := platform.ByID(model.PlatformChatGPT)
	// No text-selector child at all; the turn's own subtree text is used.
	bare := &dom.Node{
		Tag:   "div",
		Attrs: map[string]string{"data-testid": "conversation-turn", "data-message-author-role": "user"},
		Children: []*dom.Node{
			{Tag: "span", Text: "plain span content here"},
		},
	}
	root := conversationTree(bare)

	turns := BuildTurns(p, root)
	require.Len(t, turns, 1)
	assert.Equal(t, "plain span content here", turns[0].Text)
}

func TestBuildTurnsNilRoot(t *testing.T) {
	p := platform.ByID(model.PlatformChatGPT)
	assert.Empty(t, BuildTurns(p, nil))
}
