// Package watch re-runs extraction when the conversation area of a document
// changes.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/extract"
	"github.com/mzhang055/twirl/internal/platform"
	"github.com/mzhang055/twirl/pkg/logger"
)

// discoveryRetryDelay is how long to wait before looking for the conversation
// container again. Discovery retries indefinitely; the bound is page lifetime.
const discoveryRetryDelay = 2 * time.Second

// Observable delivers batched notifications that descendants of the observed
// tree changed, reporting how many nodes were added. It is the engine's only
// coupling to whatever mutation-observation API the host provides.
type Observable interface {
	Subscribe(fn func(added int)) (cancel func())
}

// Watcher locates the conversation container through the profile's fallback
// list and, once found, triggers a full re-extraction on every batch of added
// nodes. Extraction is not incremental: the extractor re-scans from scratch
// and relies on id-stable merging to avoid duplicate growth.
type Watcher struct {
	profile *platform.Profile
	doc     dom.Document
	obs     Observable
	ext     *extract.Extractor
	sched   extract.Scheduler
	log     *logger.Logger

	mu          sync.Mutex
	closed      bool
	cancelRetry extract.CancelFunc
	cancelSub   func()
}

// New builds a watcher for one page.
func New(p *platform.Profile, doc dom.Document, obs Observable, ext *extract.Extractor, sched extract.Scheduler, log *logger.Logger) *Watcher {
	return &Watcher{
		profile: p,
		doc:     doc,
		obs:     obs,
		ext:     ext,
		sched:   sched,
		log:     log.WithPlatform(string(p.ID)),
	}
}

// Start begins container discovery and, once a container exists, subscribes
// to change notifications.
func (w *Watcher) Start(ctx context.Context) {
	w.discover(ctx)
}

func (w *Watcher) discover(ctx context.Context) {
	w.mu.Lock()
	if w.closed || w.cancelSub != nil {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	if w.findContainer() == nil {
		w.mu.Lock()
		if !w.closed {
			w.cancelRetry = w.sched.Schedule(discoveryRetryDelay, func() {
				w.discover(ctx)
			})
		}
		w.mu.Unlock()
		return
	}

	cancel := w.obs.Subscribe(func(added int) {
		if added <= 0 {
			return
		}
		if !w.ext.TriggerIfIdle(ctx) {
			w.log.Debug("mutation ignored, extraction in flight")
		}
	})

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		cancel()
		return
	}
	w.cancelSub = cancel
	w.mu.Unlock()
	w.log.Debug("observing conversation container")
}

// findContainer walks the profile's container fallback list.
func (w *Watcher) findContainer() *dom.Node {
	root := w.doc.Root()
	if root == nil {
		return nil
	}
	for _, sel := range w.profile.ContainerSelectors {
		n, err := dom.Query(root, sel)
		if err != nil {
			continue
		}
		if n != nil {
			return n
		}
	}
	return nil
}

// Observing reports whether a container was found and subscribed.
func (w *Watcher) Observing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancelSub != nil
}

// Close stops discovery and unsubscribes.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.cancelRetry != nil {
		w.cancelRetry()
		w.cancelRetry = nil
	}
	if w.cancelSub != nil {
		w.cancelSub()
		w.cancelSub = nil
	}
}
