package session

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/extract"
	"github.com/mzhang055/twirl/internal/paste"
	"github.com/mzhang055/twirl/internal/platform"
	"github.com/mzhang055/twirl/internal/watch"
	"github.com/mzhang055/twirl/pkg/logger"
	"github.com/mzhang055/twirl/pkg/metrics"
)

// DefaultIdleTimeout reaps sessions whose host stopped pushing snapshots.
const DefaultIdleTimeout = 10 * time.Minute

// ErrSessionNotFound means the session id is unknown or already closed.
var ErrSessionNotFound = errors.New("session not found")

// Session is the live extraction state for one observed page.
type Session struct {
	ID        string
	Profile   *platform.Profile
	PageURL   string
	Doc       *LiveDocument
	Extractor *extract.Extractor
	Watcher   *watch.Watcher
	Monitor   *paste.Monitor
	CreatedAt time.Time

	cancel context.CancelFunc

	mu         sync.Mutex
	lastActive time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

// LastActive returns when the session last received a snapshot.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Manager owns all live sessions and reaps idle ones.
type Manager struct {
	sink        extract.Sink
	pasteSink   paste.Sink
	sched       extract.Scheduler
	log         *logger.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a session manager. sink receives extracted conversations,
// pasteSink the ones captured from paste events; usually both are the store.
func NewManager(sink extract.Sink, pasteSink paste.Sink, sched extract.Scheduler, idleTimeout time.Duration, log *logger.Logger) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		sink:        sink,
		pasteSink:   pasteSink,
		sched:       sched,
		log:         log,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Create opens a session for a page, detecting the platform profile from the
// URL host and starting the extraction and watch loops. Unknown hosts get the
// generic profile.
func (m *Manager) Create(ctx context.Context, pageURL string) (*Session, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, errors.New("invalid page url")
	}

	profile := platform.Detect(u.Hostname())
	doc := NewLiveDocument()
	ext := extract.New(profile, doc, m.sink, m.sched, m.log, pageURL)
	watcher := watch.New(profile, doc, doc, ext, m.sched, m.log)

	// Retry and mutation callbacks outlive the creating request, so the
	// session owns a context detached from the caller's cancellation. It is
	// canceled on teardown.
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	now := m.now()
	s := &Session{
		ID:         uuid.New().String(),
		Profile:    profile,
		PageURL:    pageURL,
		Doc:        doc,
		Extractor:  ext,
		Watcher:    watcher,
		Monitor:    paste.NewMonitor(m.pasteSink, m.log),
		CreatedAt:  now,
		cancel:     cancel,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	ext.Start(sessCtx)
	watcher.Start(sessCtx)

	m.log.Info("session created",
		zap.String("session_id", s.ID),
		zap.String("platform", string(profile.ID)),
		zap.String("url", pageURL),
	)
	return s, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// PushSnapshot replaces the session's document tree. The watcher reacts to
// node growth; the returned state tells the host where extraction stands.
func (m *Manager) PushSnapshot(id string, root *dom.Node) (extract.State, error) {
	s, err := m.Get(id)
	if err != nil {
		return extract.StateIdle, err
	}
	s.Doc.Replace(root)
	s.touch(m.now())
	return s.Extractor.State(), nil
}

// Close tears one session down.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.teardown(s)
	return nil
}

// CloseAll tears every session down, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		m.teardown(s)
	}
}

func (m *Manager) teardown(s *Session) {
	s.Watcher.Close()
	s.Extractor.Close()
	s.cancel()
	metrics.ActiveSessions.Dec()
	m.log.Info("session closed", zap.String("session_id", s.ID))
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run reaps idle sessions until the context ends.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reapIdle()
		}
	}
}

func (m *Manager) reapIdle() {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.log.Info("reaping idle session", zap.String("session_id", s.ID))
		m.teardown(s)
	}
}
