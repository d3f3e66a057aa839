package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/version"
)

// Migrator is the kind-erased view of a Chain held by a Registry.
// It is implemented by *Chain only.
type Migrator interface {
	Kind() entity.Kind
	Current() version.Version
	Oldest() version.Version
	Steps() []Step
	Plan(from version.Version) ([]Step, error)
	LoadRecord(ctx context.Context, doc core.Document) (any, error)
	SaveRecord(id string, rec any) (core.Document, error)

	setLogger(*slog.Logger)
}

// Registry is the single registration point mapping every entity kind to its chain.
type Registry struct {
	chains map[entity.Kind]Migrator
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used by the registry and all of its chains.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry registers chains and checks that the result covers entity.All()
// exactly once per kind.
func NewRegistry(chains []Migrator, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		chains: make(map[entity.Kind]Migrator, len(chains)),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, c := range chains {
		if c == nil || reflect.ValueOf(c).IsNil() {
			return nil, fmt.Errorf("nil chain: %w", ErrAmbiguousRegistration)
		}
		if _, dup := r.chains[c.Kind()]; dup {
			return nil, registrationErrorf(c.Kind(), "more than one chain registered")
		}
		if !c.Kind().Valid() {
			return nil, registrationErrorf(c.Kind(), "unknown entity kind")
		}
		c.setLogger(r.logger.With("component", "migrate"))
		r.chains[c.Kind()] = c
	}

	for _, k := range entity.All() {
		if _, ok := r.chains[k]; !ok {
			return nil, registrationErrorf(k, "no migration chain registered")
		}
	}

	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
// Called at startup so an incomplete registry never processes a document.
func MustRegistry(chains []Migrator, opts ...RegistryOption) *Registry {
	r, err := NewRegistry(chains, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Chain returns the chain registered for kind.
func (r *Registry) Chain(kind entity.Kind) (Migrator, error) {
	c, ok := r.chains[kind]
	if !ok {
		return nil, fmt.Errorf("no chain for %s", kind.Name())
	}
	return c, nil
}

// LoadEntity migrates a raw document of kind to its current domain record.
func (r *Registry) LoadEntity(ctx context.Context, kind entity.Kind, doc core.Document) (any, error) {
	c, err := r.Chain(kind)
	if err != nil {
		return nil, err
	}
	if doc.Collection != "" && doc.Collection != kind.Collection() {
		return nil, fmt.Errorf("document %s does not belong to %s", doc.Key(), kind.Name())
	}
	return c.LoadRecord(ctx, doc)
}

// SaveEntity encodes a domain record of kind as a raw document tagged with the current version.
func (r *Registry) SaveEntity(kind entity.Kind, id string, rec any) (core.Document, error) {
	c, err := r.Chain(kind)
	if err != nil {
		return core.Document{}, err
	}
	return c.SaveRecord(id, rec)
}

// Load is the typed form of Registry.LoadEntity.
func Load[D any](ctx context.Context, r *Registry, kind entity.Kind, doc core.Document) (D, error) {
	var zero D
	rec, err := r.LoadEntity(ctx, kind, doc)
	if err != nil {
		return zero, err
	}
	typed, ok := rec.(D)
	if !ok {
		return zero, fmt.Errorf("%s chain returns %T, not %v", kind.Name(), rec, reflect.TypeFor[D]())
	}
	return typed, nil
}

// Save is the typed form of Registry.SaveEntity.
func Save[D any](r *Registry, kind entity.Kind, id string, rec D) (core.Document, error) {
	return r.SaveEntity(kind, id, rec)
}
