package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/entity/persona"
	"github.com/aretw0/strata/pkg/entity/session"
)

// Catalog serves the current persona list to session migrations.
// The list is loaded once and reused until a persona is written through
// the store, Invalidate is called, or a watched persona document changes.
type Catalog struct {
	personas *Store[persona.Persona]
	logger   *slog.Logger

	mu     sync.RWMutex
	cached []persona.Persona
	loaded bool
}

// NewCatalog creates a catalog over the persona store.
func NewCatalog(personas *Store[persona.Persona], opts ...Option) *Catalog {
	o := buildOptions(opts)
	c := &Catalog{personas: personas, logger: o.logger}
	personas.OnChange(c.Invalidate)
	return c
}

// ListPersonas returns every loadable persona. Personas that fail to load
// are left out; a session key naming one of them stays unresolved.
func (c *Catalog) ListPersonas(ctx context.Context) ([]persona.Persona, error) {
	c.mu.RLock()
	if c.loaded {
		out := slices.Clone(c.cached)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return slices.Clone(c.cached), nil
	}

	entries, failed, err := c.personas.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("persona catalog: %w", err)
	}
	if len(failed) > 0 {
		c.logger.Warn("persona catalog is missing unloadable personas", "count", len(failed))
	}

	list := make([]persona.Persona, 0, len(entries))
	for _, e := range entries {
		list = append(list, e.Record)
	}
	c.cached = list
	c.loaded = true
	c.logger.Debug("persona catalog loaded", "count", len(list))
	return slices.Clone(list), nil
}

// Invalidate drops the cached list; the next call reloads it.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
	c.loaded = false
}

// Watch invalidates the catalog whenever a persona document changes in w.
// It returns once the subscription is in place; the listener stops with ctx.
func (c *Catalog) Watch(ctx context.Context, w core.Watchable) error {
	events, err := w.Watch(ctx, entity.KindPersona.Collection()+"/*")
	if err != nil {
		return fmt.Errorf("watch personas: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				c.logger.Debug("persona changed, invalidating catalog", "event", e.String())
				c.Invalidate()
			}
		}
	})
	return nil
}

var _ session.Catalog = (*Catalog)(nil)
