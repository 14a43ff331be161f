package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/promptkit/promptsync/pkg/promptsync"
)

// Store implements promptsync.DocumentStore using in-memory maps. It is the
// backend used by tests and the default server configuration. Subscriptions
// are delivered synchronously on every mutation of the watched collection.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]promptsync.Document
	subs        map[string][]*subscription
}

// New creates a new in-memory document store
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]promptsync.Document),
		subs:        make(map[string][]*subscription),
	}
}

func (s *Store) Get(ctx context.Context, collection, key string) (promptsync.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.collections[collection][key]
	if !exists {
		return nil, nil
	}
	return copyDocument(doc), nil
}

func (s *Store) Set(ctx context.Context, collection, key string, doc promptsync.Document) error {
	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]promptsync.Document)
	}
	s.collections[collection][key] = copyDocument(doc)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) SetField(ctx context.Context, collection, key, field string, value any) error {
	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]promptsync.Document)
	}
	doc, exists := s.collections[collection][key]
	if !exists {
		doc = make(promptsync.Document)
		s.collections[collection][key] = doc
	}
	doc[field] = value
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

// Delete removes the document at key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	_, existed := s.collections[collection][key]
	delete(s.collections[collection], key)
	s.mu.Unlock()

	if existed {
		s.notify(collection)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q promptsync.Query) ([]promptsync.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked(collection, q), nil
}

// Increment atomically adds delta to a numeric field. An absent document or
// field is treated as zero, so incrementing always succeeds.
func (s *Store) Increment(ctx context.Context, collection, key, field string, delta int64) error {
	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]promptsync.Document)
	}
	doc, exists := s.collections[collection][key]
	if !exists {
		doc = make(promptsync.Document)
		s.collections[collection][key] = doc
	}

	var current int64
	switch n := doc[field].(type) {
	case int64:
		current = n
	case int:
		current = int64(n)
	case float64:
		current = int64(n)
	}
	doc[field] = current + delta
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, q promptsync.Query) (promptsync.Subscription, error) {
	sub := &subscription{
		store:      s,
		collection: collection,
		query:      q,
		ch:         make(chan []promptsync.Document, 1),
	}

	s.mu.Lock()
	s.subs[collection] = append(s.subs[collection], sub)
	// Initial delivery: the full current result set.
	sub.deliver(s.queryLocked(collection, q))
	s.mu.Unlock()

	return sub, nil
}

// notify re-runs every live query on the mutated collection and delivers the
// full result set, matching the push model of the remote backend: consumers
// get snapshots, never diffs.
func (s *Store) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs[collection] {
		sub.deliver(s.queryLocked(collection, sub.query))
	}
}

func (s *Store) queryLocked(collection string, q promptsync.Query) []promptsync.Document {
	var result []promptsync.Document
	for _, doc := range s.collections[collection] {
		if matchesFilters(doc, q.Filters) {
			result = append(result, copyDocument(doc))
		}
	}

	if q.OrderBy.Field != "" {
		field, desc := q.OrderBy.Field, q.OrderBy.Descending
		sort.SliceStable(result, func(i, j int) bool {
			c := compareValues(result[i][field], result[j][field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result
}

func (s *Store) removeSub(collection string, target *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subs[collection]
	for i, sub := range subs {
		if sub == target {
			s.subs[collection] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

type subscription struct {
	store      *Store
	collection string
	query      promptsync.Query
	ch         chan []promptsync.Document

	closeOnce sync.Once
}

func (sub *subscription) Updates() <-chan []promptsync.Document {
	return sub.ch
}

func (sub *subscription) Close() error {
	sub.store.removeSub(sub.collection, sub)
	sub.closeOnce.Do(func() { close(sub.ch) })
	return nil
}

// deliver replaces any undrained snapshot with the newest one. Called with
// the store lock held, which also serializes senders.
func (sub *subscription) deliver(docs []promptsync.Document) {
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- docs
}

func matchesFilters(doc promptsync.Document, filters []promptsync.Filter) bool {
	for _, f := range filters {
		if !matchesFilter(doc, f) {
			return false
		}
	}
	return true
}

func matchesFilter(doc promptsync.Document, f promptsync.Filter) bool {
	v, exists := doc[f.Field]
	switch f.Op {
	case promptsync.OpEqual:
		return exists && compareValues(v, f.Value) == 0
	case promptsync.OpGreaterOrEqual:
		return exists && compareValues(v, f.Value) >= 0
	case promptsync.OpLess:
		return exists && compareValues(v, f.Value) < 0
	case promptsync.OpArrayContains:
		return arrayContains(v, f.Value)
	}
	return false
}

func arrayContains(v, target any) bool {
	switch arr := v.(type) {
	case []any:
		for _, entry := range arr {
			if compareValues(entry, target) == 0 {
				return true
			}
		}
	case []string:
		for _, entry := range arr {
			if s, ok := target.(string); ok && entry == s {
				return true
			}
		}
	}
	return false
}

// compareValues orders two document values of like type. Numeric types
// compare numerically regardless of width; everything else falls back to
// string comparison where possible.
func compareValues(a, b any) int {
	if an, aok := asFloat(a); aok {
		if bn, bok := asFloat(b); bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
			return 0
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		switch {
		case ab == bb:
			return 0
		case bb:
			return -1
		}
		return 1
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func copyDocument(doc promptsync.Document) promptsync.Document {
	out := make(promptsync.Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case promptsync.Document:
		return copyDocument(val)
	case map[string]any:
		return copyDocument(promptsync.Document(val))
	case []any:
		out := make([]any, len(val))
		for i, entry := range val {
			out[i] = copyValue(entry)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	}
	return v
}
