// Package session manages live extraction sessions, one per observed page.
// Hosts push document snapshots; each push drives the extraction/watch
// machinery the way rendered-tree mutations would.
package session

import (
	"sync"

	"github.com/mzhang055/twirl/internal/dom"
)

// LiveDocument holds the latest snapshot of one page's tree and notifies
// subscribers when it is replaced. It serves as both the extractor's document
// and the watcher's change source.
type LiveDocument struct {
	mu     sync.RWMutex
	root   *dom.Node
	size   int
	nextID int
	subs   map[int]func(added int)
}

// NewLiveDocument returns an empty live document.
func NewLiveDocument() *LiveDocument {
	return &LiveDocument{subs: make(map[int]func(added int))}
}

// Root returns the current snapshot root, nil before the first push.
func (d *LiveDocument) Root() *dom.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root
}

// Replace installs a new snapshot, links it and notifies subscribers with the
// node-count growth since the previous snapshot. Shrinking or equal-size
// replacements report zero added nodes.
func (d *LiveDocument) Replace(root *dom.Node) {
	var size int
	if root != nil {
		root.Link()
		size = root.Size()
	}

	d.mu.Lock()
	added := size - d.size
	if added < 0 {
		added = 0
	}
	d.root = root
	d.size = size
	subs := make([]func(added int), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	for _, fn := range subs {
		fn(added)
	}
}

// Subscribe registers a change callback and returns its cancel.
func (d *LiveDocument) Subscribe(fn func(added int)) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.subs[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}
