// Package store loads and saves domain records through their migration chains.
//
// Reads always return records in the current shape. A record whose stored
// form cannot be migrated is reported as a *LoadError, which callers may
// treat like a missing record; it never aborts a listing of its siblings.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/migrate"
	"github.com/aretw0/strata/pkg/version"
)

// Codec converts between stored documents and domain records of one kind.
// *migrate.Chain implements it.
type Codec[D any] interface {
	Kind() entity.Kind
	Current() version.Version
	Load(ctx context.Context, doc core.Document) (D, error)
	Save(id string, rec D) (core.Document, error)
}

// Keyed is implemented by records whose storage key derives from their
// content. They are always stored under StorageKey, and a copy found under
// any other key is moved there on save.
type Keyed interface {
	// StorageKey returns the canonical key, or "" when none is assigned yet.
	StorageKey() string
}

func storageKey(id string, rec any) string {
	if k, ok := rec.(Keyed); ok {
		if key := k.StorageKey(); key != "" {
			return key
		}
	}
	return id
}

// Entry is one successfully loaded record.
type Entry[D any] struct {
	ID     string
	Record D
	// Stored is the version the record had on disk before migration.
	Stored version.Version
}

// Store is the typed loader/saver for one entity kind.
type Store[D any] struct {
	repo   core.Repository
	codec  Codec[D]
	logger *slog.Logger

	mu       sync.RWMutex
	onChange []func()
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report skipped records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a store over repo using codec.
func New[D any](repo core.Repository, codec Codec[D], opts ...Option) *Store[D] {
	o := buildOptions(opts)
	return &Store[D]{repo: repo, codec: codec, logger: o.logger}
}

// ForKind creates a store for the chain registered under kind.
func ForKind[D any](repo core.Repository, reg *migrate.Registry, kind entity.Kind, opts ...Option) (*Store[D], error) {
	m, err := reg.Chain(kind)
	if err != nil {
		return nil, err
	}
	codec, ok := m.(Codec[D])
	if !ok {
		return nil, fmt.Errorf("%s chain does not produce %v", kind.Name(), reflect.TypeFor[D]())
	}
	return New(repo, codec, opts...), nil
}

// Kind returns the entity kind served by the store.
func (s *Store[D]) Kind() entity.Kind {
	return s.codec.Kind()
}

func (s *Store[D]) collection() string {
	return s.codec.Kind().Collection()
}

// OnChange registers fn to run after every write made through the store.
func (s *Store[D]) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Store[D]) changed() {
	s.mu.RLock()
	hooks := s.onChange
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

// Get loads and migrates one record. A stored record that cannot be
// migrated yields a *LoadError.
func (s *Store[D]) Get(ctx context.Context, id string) (D, error) {
	var zero D

	doc, err := s.repo.Get(ctx, s.collection(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return zero, err
		}
		return zero, newLoadError(s.Kind(), id, version.Version{}, err)
	}

	rec, err := s.codec.Load(ctx, doc)
	if err != nil {
		return zero, newLoadError(s.Kind(), id, doc.Version, err)
	}
	return rec, nil
}

// Save writes rec in the current shape, tagged with the current version.
// A Keyed record is written under its own key and the copy under id, if
// different, is removed.
func (s *Store[D]) Save(ctx context.Context, id string, rec D) error {
	key := storageKey(id, rec)
	doc, err := s.codec.Save(key, rec)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return err
	}
	defer s.changed()

	if key != id && id != "" {
		if err := s.repo.Delete(ctx, s.collection(), id); err != nil && !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("remove %s %q after move to %q: %w", s.Kind().Name(), id, key, err)
		}
		s.logger.Info("record moved to canonical key", "kind", s.Kind().Name(), "from", id, "to", key)
	}
	return nil
}

// Delete removes a record.
func (s *Store[D]) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, s.collection(), id); err != nil {
		return err
	}
	s.changed()
	return nil
}

// List returns the ids of every stored record, loadable or not.
func (s *Store[D]) List(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx, s.collection())
}

// LoadAll loads every record of the kind. Records that fail to load are
// returned separately and logged; only a failure to list is fatal.
func (s *Store[D]) LoadAll(ctx context.Context) ([]Entry[D], []*LoadError, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", s.collection(), err)
	}

	entries := make([]Entry[D], 0, len(ids))
	var failed []*LoadError
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return entries, failed, err
		}

		doc, err := s.repo.Get(ctx, s.collection(), id)
		if err != nil {
			le := newLoadError(s.Kind(), id, version.Version{}, err)
			s.logSkipped(le)
			failed = append(failed, le)
			continue
		}
		rec, err := s.codec.Load(ctx, doc)
		if err != nil {
			le := newLoadError(s.Kind(), id, doc.Version, err)
			s.logSkipped(le)
			failed = append(failed, le)
			continue
		}
		entries = append(entries, Entry[D]{ID: id, Record: rec, Stored: doc.Version})
	}
	return entries, failed, nil
}

func (s *Store[D]) logSkipped(le *LoadError) {
	s.logger.Warn("skipping unloadable record",
		"kind", le.Kind.Name(),
		"id", le.ID,
		"version", le.Version.String(),
		"error", le.Err,
	)
}

// Upgrade rewrites every stored record older than the current version.
func (s *Store[D]) Upgrade(ctx context.Context, dryRun bool) (*Report, error) {
	report, err := upgrade(ctx, s.repo, s.Kind(), s.codec.Current(), dryRun, s.logger,
		func(ctx context.Context, doc core.Document) (any, error) { return s.codec.Load(ctx, doc) },
		func(id string, rec any) (core.Document, error) { return s.codec.Save(id, rec.(D)) },
	)
	if report != nil && !dryRun && len(report.Upgraded) > 0 {
		s.changed()
	}
	return report, err
}
