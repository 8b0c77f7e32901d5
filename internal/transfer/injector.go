package transfer

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/extract"
	"github.com/mzhang055/twirl/pkg/logger"
)

const (
	// surfaceMaxAttempts bounds the wait for a target input surface that is
	// still rendering.
	surfaceMaxAttempts = 20
	// surfaceRetryDelay is the pause between surface lookups.
	surfaceRetryDelay = time.Second
)

// ErrSurfaceUnavailable means no input surface appeared within the wait
// window.
var ErrSurfaceUnavailable = errors.New("input surface not available")

// InputSurface is the editable target the formatted conversation is placed
// into. After SetText the injector calls NotifyInput so the host page reacts
// to the programmatic change, then focuses and moves the caret to the end.
type InputSurface interface {
	Text() string
	SetText(text string)
	Focus()
	MoveCaretEnd()
	NotifyInput()
}

// SurfaceFinder locates the current input surface, returning nil while the
// page has not rendered one yet.
type SurfaceFinder func() InputSurface

// Injector waits for the target page's input surface and writes formatted
// conversation text into it exactly once per page load.
type Injector struct {
	find      SurfaceFinder
	sched     extract.Scheduler
	log       *logger.Logger
	maxLength int

	mu          sync.Mutex
	injected    bool
	closed      bool
	cancelRetry extract.CancelFunc
}

// InjectorOption configures an Injector.
type InjectorOption func(*Injector)

// WithMaxLength overrides the injected-text length cap, normally the
// configured maximum chat length.
func WithMaxLength(n int) InjectorOption {
	return func(i *Injector) { i.maxLength = n }
}

// NewInjector builds an injector for one target page.
func NewInjector(find SurfaceFinder, sched extract.Scheduler, log *logger.Logger, opts ...InjectorOption) *Injector {
	i := &Injector{
		find:      find,
		sched:     sched,
		log:       log,
		maxLength: DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inject starts the wait-and-write sequence. done is called once with the
// outcome; it may run synchronously when the surface already exists.
func (i *Injector) Inject(text string, done func(error)) {
	i.attempt(text, 0, done)
}

func (i *Injector) attempt(text string, attempts int, done func(error)) {
	i.mu.Lock()
	if i.closed || i.injected {
		i.mu.Unlock()
		return
	}
	i.mu.Unlock()

	if attempts >= surfaceMaxAttempts {
		i.log.Warn("gave up waiting for input surface", zap.Int("attempts", attempts))
		if done != nil {
			done(ErrSurfaceUnavailable)
		}
		return
	}

	surface := i.find()
	if surface == nil {
		i.mu.Lock()
		if !i.closed {
			i.cancelRetry = i.sched.Schedule(surfaceRetryDelay, func() {
				i.attempt(text, attempts+1, done)
			})
		}
		i.mu.Unlock()
		return
	}

	i.mu.Lock()
	if i.closed || i.injected {
		i.mu.Unlock()
		return
	}
	i.injected = true
	i.mu.Unlock()

	surface.SetText(truncate(text, i.maxLength))
	surface.NotifyInput()
	surface.Focus()
	surface.MoveCaretEnd()
	i.log.Info("conversation injected", zap.Int("attempts", attempts+1))
	if done != nil {
		done(nil)
	}
}

// Injected reports whether the write happened.
func (i *Injector) Injected() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.injected
}

// Close cancels any pending surface wait.
func (i *Injector) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	if i.cancelRetry != nil {
		i.cancelRetry()
		i.cancelRetry = nil
	}
}
