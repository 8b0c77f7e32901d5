package extract

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/internal/platform"
	"github.com/mzhang055/twirl/pkg/logger"
	"github.com/mzhang055/twirl/pkg/metrics"
)

// DefaultMaxAttempts bounds the automatic retry loop for a page that has not
// rendered its messages yet.
const DefaultMaxAttempts = 10

// State is the extractor's position in its per-page lifecycle.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateRetryPending
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateRetryPending:
		return "retry_pending"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// Sink receives the conversation records an extractor produces.
type Sink interface {
	Merge(ctx context.Context, rec *model.ConversationRecord) error
}

// Extractor runs the selection/classification/normalization pipeline for one
// page, retrying on a delay while the document is still rendering. All
// attempts are serialized through the state field; the reentrancy guard is
// modeled state, not a stray boolean.
type Extractor struct {
	profile *platform.Profile
	doc     dom.Document
	sink    Sink
	sched   Scheduler
	log     *logger.Logger
	pageURL string

	maxAttempts int
	now         func() time.Time

	mu          sync.Mutex
	state       State
	attempts    int
	cancelRetry CancelFunc
	closed      bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxAttempts overrides the retry cap.
func WithMaxAttempts(n int) Option {
	return func(e *Extractor) { e.maxAttempts = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New builds an extractor for one page.
func New(p *platform.Profile, doc dom.Document, sink Sink, sched Scheduler, log *logger.Logger, pageURL string, opts ...Option) *Extractor {
	e := &Extractor{
		profile:     p,
		doc:         doc,
		sink:        sink,
		sched:       sched,
		log:         log.WithPlatform(string(p.ID)),
		pageURL:     pageURL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildTurns runs one selection/classification/normalization pass over a
// snapshot. It is the stateless core shared by the retry loop and the
// one-shot extraction path.
func BuildTurns(p *platform.Profile, root *dom.Node) []model.Turn {
	nodes := Resolve(root, p.MessageTiers)
	var turns []model.Turn
	for i, n := range nodes {
		text := Normalize(p, nodeText(p, n))
		if len(text) <= minTurnLength {
			continue
		}
		role := ClassifyRole(p, n, i)
		turns = append(turns, model.Turn{Role: role, Text: text})
		metrics.RecordTurn(string(p.ID), string(role))
	}
	return turns
}

// nodeText pulls clean text out of a message element via the profile's nested
// selector fallbacks, else the element's own subtree text.
func nodeText(p *platform.Profile, n *dom.Node) string {
	for _, sel := range p.TextSelectors {
		child, err := dom.Query(n, sel)
		if err != nil || child == nil {
			continue
		}
		return child.TextContent()
	}
	return n.TextContent()
}

// Start begins the attempt loop. Safe to call once per page load.
func (e *Extractor) Start(ctx context.Context) {
	e.attempt(ctx, true)
}

// TriggerIfIdle runs a single extraction pass on behalf of a mutation event.
// It refuses to overlap an in-flight attempt and never schedules retries of
// its own: after exhaustion only these mutation-driven passes run. Returns
// false when an attempt was already in flight.
func (e *Extractor) TriggerIfIdle(ctx context.Context) bool {
	e.mu.Lock()
	if e.closed || e.state == StateAttempting {
		e.mu.Unlock()
		return false
	}
	prev := e.state
	e.state = StateAttempting
	e.mu.Unlock()

	turns := e.safeBuildTurns()

	e.mu.Lock()
	if len(turns) > 0 {
		e.state = StateSucceeded
	} else {
		e.state = prev
	}
	e.mu.Unlock()

	if len(turns) > 0 {
		e.persist(ctx, turns)
	}
	return true
}

// attempt is one pass of the retry loop.
func (e *Extractor) attempt(ctx context.Context, scheduleRetries bool) {
	e.mu.Lock()
	if e.closed || e.state == StateAttempting {
		e.mu.Unlock()
		return
	}
	e.state = StateAttempting
	e.attempts++
	attempt := e.attempts
	e.mu.Unlock()

	e.log.Debug("extraction attempt",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", e.maxAttempts),
	)

	turns := e.safeBuildTurns()

	e.mu.Lock()
	switch {
	case len(turns) > 0:
		e.state = StateSucceeded
		e.mu.Unlock()
		metrics.RecordExtraction(string(e.profile.ID), "succeeded")
		e.log.Info("extraction succeeded", zap.Int("turns", len(turns)))
		e.persist(ctx, turns)
	case scheduleRetries && attempt < e.maxAttempts:
		e.state = StateRetryPending
		e.cancelRetry = e.sched.Schedule(e.profile.RetryDelay, func() {
			e.attempt(ctx, true)
		})
		e.mu.Unlock()
		metrics.RecordExtraction(string(e.profile.ID), "empty")
	default:
		e.state = StateExhausted
		e.mu.Unlock()
		metrics.RecordExtraction(string(e.profile.ID), "exhausted")
		e.log.Info("extraction attempts exhausted, observing only")
	}
}

// safeBuildTurns runs one pass, converting any panic into a zero-turn result
// so a single bad snapshot never kills the retry sequence.
func (e *Extractor) safeBuildTurns() (turns []model.Turn) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("extraction pass failed", zap.Any("panic", r))
			turns = nil
		}
	}()
	root := e.doc.Root()
	if root == nil {
		return nil
	}
	return BuildTurns(e.profile, root)
}

func (e *Extractor) persist(ctx context.Context, turns []model.Turn) {
	rec := model.NewRecord(e.profile.ID, e.profile.DisplayName, e.pageURL, turns, e.now())
	if err := e.sink.Merge(ctx, rec); err != nil {
		e.log.Warn("failed to persist conversation", zap.Error(err))
	}
}

// State returns the current lifecycle state.
func (e *Extractor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Attempts returns how many automatic attempts have run.
func (e *Extractor) Attempts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts
}

// Close cancels any pending retry; the page navigated away.
func (e *Extractor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.cancelRetry != nil {
		e.cancelRetry()
		e.cancelRetry = nil
	}
}
