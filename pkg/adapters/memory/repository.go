// Package memory provides an in-process core.Repository, used by tests and
// dry runs that must not touch the filesystem.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/strata/pkg/core"
)

// Repository keeps documents in a map keyed by collection and ID.
// Stored metadata is cloned on the way in and out.
type Repository struct {
	mu       sync.RWMutex
	docs     map[string]map[string]core.Document
	watchers []*watcher
	readOnly bool
}

type watcher struct {
	ctx     context.Context
	pattern string
	ch      chan core.Event
}

// Option configures the in-memory repository.
type Option func(*Repository)

// WithReadOnly rejects every write with core.ErrReadOnly.
func WithReadOnly(readOnly bool) Option {
	return func(r *Repository) { r.readOnly = readOnly }
}

// WithDocuments seeds the repository.
func WithDocuments(docs ...core.Document) Option {
	return func(r *Repository) {
		for _, d := range docs {
			r.put(d)
		}
	}
}

// NewRepository creates an empty in-memory repository.
func NewRepository(opts ...Option) *Repository {
	r := &Repository{docs: make(map[string]map[string]core.Document)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Initialize(ctx context.Context) error { return nil }

func (r *Repository) put(doc core.Document) core.EventType {
	coll, ok := r.docs[doc.Collection]
	if !ok {
		coll = make(map[string]core.Document)
		r.docs[doc.Collection] = coll
	}
	_, exists := coll[doc.ID]
	doc.Metadata = cloneMetadata(doc.Metadata)
	coll[doc.ID] = doc
	if exists {
		return core.EventModify
	}
	return core.EventCreate
}

func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if r.readOnly {
		return core.ErrReadOnly
	}
	if doc.ID == "" || doc.Collection == "" {
		return fmt.Errorf("%w: %q", core.ErrInvalidID, doc.Key())
	}
	if doc.Version.IsZero() {
		return fmt.Errorf("%s: %w", doc.Key(), core.ErrMissingVersion)
	}

	r.mu.Lock()
	eType := r.put(doc)
	watchers := r.watchers
	r.mu.Unlock()

	notify(watchers, core.Event{Type: eType, Collection: doc.Collection, ID: doc.ID, Timestamp: time.Now().Unix()})
	return nil
}

func (r *Repository) Get(ctx context.Context, collection, id string) (core.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[collection][id]
	if !ok {
		return core.Document{}, fmt.Errorf("%s/%s: %w", collection, id, core.ErrNotFound)
	}
	doc.Metadata = cloneMetadata(doc.Metadata)
	return doc, nil
}

func (r *Repository) List(ctx context.Context, collection string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.docs[collection]))
	for id := range r.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Repository) Delete(ctx context.Context, collection, id string) error {
	if r.readOnly {
		return core.ErrReadOnly
	}

	r.mu.Lock()
	if _, ok := r.docs[collection][id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, core.ErrNotFound)
	}
	delete(r.docs[collection], id)
	watchers := r.watchers
	r.mu.Unlock()

	notify(watchers, core.Event{Type: core.EventDelete, Collection: collection, ID: id, Timestamp: time.Now().Unix()})
	return nil
}

// Watch delivers events for matching keys until ctx is done. Slow consumers
// block writers for at most the lifetime of their context.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	w := &watcher{ctx: ctx, pattern: pattern, ch: make(chan core.Event, 16)}

	r.mu.Lock()
	r.watchers = append(r.watchers, w)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		kept := make([]*watcher, 0, len(r.watchers))
		for _, other := range r.watchers {
			if other != w {
				kept = append(kept, other)
			}
		}
		r.watchers = kept
		close(w.ch)
	}()

	return w.ch, nil
}

// notify runs outside the lock. A send racing with unregistration is dropped.
func notify(watchers []*watcher, e core.Event) {
	key := e.Collection + "/" + e.ID
	for _, w := range watchers {
		if ok, _ := doublestar.Match(w.pattern, key); !ok {
			continue
		}
		w.send(e)
	}
}

func (w *watcher) send(e core.Event) {
	defer func() { _ = recover() }()
	select {
	case w.ch <- e:
	case <-w.ctx.Done():
	}
}

func cloneMetadata(m core.Metadata) core.Metadata {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

var _ core.Repository = (*Repository)(nil)
var _ core.Watchable = (*Repository)(nil)
