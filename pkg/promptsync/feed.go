package promptsync

import (
	"sync"
)

// CatalogFeed is the subscription-backed read model over one community
// catalog. Every backend delivery carries the entire current result set; the
// feed decodes it (dropping malformed documents), replaces its cached
// snapshot wholesale, and fans the new snapshot out to consumers. There is no
// per-item change granularity; consumers treat each snapshot as authoritative
// at that instant. A single goroutine writes the snapshot; any number of
// readers observe it.
type CatalogFeed struct {
	kind CatalogKind
	sub  Subscription

	mu        sync.RWMutex
	snapshot  []*CatalogItem
	consumers map[int]chan []*CatalogItem
	nextID    int
	closed    bool
	done      chan struct{}
}

func newCatalogFeed(kind CatalogKind, sub Subscription) *CatalogFeed {
	f := &CatalogFeed{
		kind:      kind,
		sub:       sub,
		consumers: make(map[int]chan []*CatalogItem),
		done:      make(chan struct{}),
	}
	go f.run()
	return f
}

// Kind returns the catalog kind this feed observes.
func (f *CatalogFeed) Kind() CatalogKind {
	return f.kind
}

// Snapshot returns the latest decoded result set. The returned slice is
// shared; callers must not modify it.
func (f *CatalogFeed) Snapshot() []*CatalogItem {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot
}

// Subscribe registers a consumer channel. Delivery is latest-wins: a slow
// consumer observes only the newest snapshot, never a backlog. The returned
// cancel func unregisters the consumer and closes its channel.
func (f *CatalogFeed) Subscribe() (<-chan []*CatalogItem, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan []*CatalogItem, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.consumers[id] = ch
	if f.snapshot != nil {
		ch <- f.snapshot
	}

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.consumers[id]; ok {
			delete(f.consumers, id)
			close(c)
		}
	}
	return ch, cancel
}

// Close tears down the feed and the underlying store subscription. Long-lived
// feeds must be closed by their owner to release server-side listener
// resources. Safe to call more than once.
func (f *CatalogFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for id, ch := range f.consumers {
		delete(f.consumers, id)
		close(ch)
	}
	f.mu.Unlock()

	err := f.sub.Close()
	<-f.done
	return err
}

func (f *CatalogFeed) run() {
	defer close(f.done)
	for docs := range f.sub.Updates() {
		items := decodeCatalogItems(f.kind, docs)

		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return
		}
		f.snapshot = items
		for _, ch := range f.consumers {
			// Drop the stale snapshot if the consumer has not drained it.
			select {
			case <-ch:
			default:
			}
			ch <- items
		}
		f.mu.Unlock()
	}
}
