package paste

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/pkg/logger"
	"github.com/mzhang055/twirl/pkg/metrics"
)

var (
	// ErrNotConversational means the text failed the conversation heuristic.
	ErrNotConversational = errors.New("text is not conversational")
	// ErrDuplicatePaste means identical text was already processed on this
	// page.
	ErrDuplicatePaste = errors.New("paste already processed")
	// ErrEmptyParse means the heuristic accepted the text but no labeled
	// turns could be segmented out of it.
	ErrEmptyParse = errors.New("no turns parsed from paste")
)

// Sink receives records built from accepted pastes.
type Sink interface {
	Merge(ctx context.Context, rec *model.ConversationRecord) error
}

// Monitor applies the conversation heuristic to paste and input events,
// deduplicates by content hash, and persists accepted conversations under the
// pasted pseudo-platform. Dedupe state lives for the monitor's lifetime,
// which tracks the page's.
type Monitor struct {
	sink Sink
	log  *logger.Logger
	now  func() time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMonitor builds a paste monitor.
func NewMonitor(sink Sink, log *logger.Logger) *Monitor {
	return &Monitor{
		sink: sink,
		log:  log.WithPlatform(string(model.PlatformPasted)),
		now:  time.Now,
		seen: make(map[string]struct{}),
	}
}

// HandlePaste processes a direct paste event and returns the stored record.
func (m *Monitor) HandlePaste(ctx context.Context, text, pageURL string) (*model.ConversationRecord, error) {
	return m.handle(ctx, "paste", text, pageURL)
}

// HandleInput processes an input-change event. Short content is ignored
// outright so the heuristic does not run on every keystroke.
func (m *Monitor) HandleInput(ctx context.Context, text, pageURL string) (*model.ConversationRecord, error) {
	if len(text) <= InputLengthThreshold {
		metrics.PasteChecks.WithLabelValues("input", "below_threshold").Inc()
		return nil, ErrNotConversational
	}
	return m.handle(ctx, "input", text, pageURL)
}

func (m *Monitor) handle(ctx context.Context, trigger, text, pageURL string) (*model.ConversationRecord, error) {
	if !IsConversational(text) {
		metrics.PasteChecks.WithLabelValues(trigger, "rejected").Inc()
		return nil, ErrNotConversational
	}

	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])

	m.mu.Lock()
	if _, dup := m.seen[hash]; dup {
		m.mu.Unlock()
		metrics.PasteChecks.WithLabelValues(trigger, "duplicate").Inc()
		return nil, ErrDuplicatePaste
	}
	m.seen[hash] = struct{}{}
	m.mu.Unlock()

	turns := Parse(text)
	if len(turns) == 0 {
		metrics.PasteChecks.WithLabelValues(trigger, "empty_parse").Inc()
		return nil, ErrEmptyParse
	}

	rec := model.NewRecord(model.PlatformPasted, "Pasted", pageURL, turns, m.now())
	if err := m.sink.Merge(ctx, rec); err != nil {
		return nil, err
	}
	metrics.PasteChecks.WithLabelValues(trigger, "accepted").Inc()
	m.log.Info("pasted conversation captured",
		zap.String("id", rec.ID),
		zap.Int("turns", len(turns)),
		zap.String("trigger", trigger),
	)
	return rec, nil
}
