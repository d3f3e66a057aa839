package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/version"
)

// Definition declares the full version history of one entity kind.
//
// D is the domain record handed to the application and C the snapshot type
// of the Current version. Steps may be listed in any order; they are sorted
// and validated by NewChain.
type Definition[D, C any] struct {
	Kind       entity.Kind
	Current    version.Version
	Steps      []Step
	IntoDomain func(C) (D, error)
	FromDomain func(D) C
	Logger     *slog.Logger
}

// Chain migrates documents of one kind from any supported version to the
// current one and encodes domain records back in the current shape.
// A Chain is immutable after construction and safe for concurrent use.
type Chain[D, C any] struct {
	kind       entity.Kind
	current    version.Version
	steps      []Step
	byFrom     map[version.Version]int
	intoDomain func(C) (D, error)
	fromDomain func(D) C
	logger     *slog.Logger
}

// NewChain validates def and returns the chain.
// It fails with ErrAmbiguousRegistration when the steps do not form one
// unbroken path from the oldest version to def.Current.
func NewChain[D, C any](def Definition[D, C]) (*Chain[D, C], error) {
	if !def.Kind.Valid() {
		return nil, registrationErrorf(def.Kind, "unknown entity kind")
	}
	if def.Current.IsZero() {
		return nil, registrationErrorf(def.Kind, "current version is not set")
	}
	if def.IntoDomain == nil || def.FromDomain == nil {
		return nil, registrationErrorf(def.Kind, "domain conversions are required")
	}

	steps := slices.Clone(def.Steps)
	slices.SortFunc(steps, func(a, b Step) int {
		return a.From.Compare(b.From)
	})

	byFrom := make(map[version.Version]int, len(steps))
	for i, s := range steps {
		if s.apply == nil {
			return nil, registrationErrorf(def.Kind, "step %s was not built with NewStep", s)
		}
		if !s.From.Less(s.To) {
			return nil, registrationErrorf(def.Kind, "step %s -> %s does not advance the version", s.From, s.To)
		}
		if _, dup := byFrom[s.From]; dup {
			return nil, registrationErrorf(def.Kind, "more than one step starts at %s", s.From)
		}
		if def.Current.Less(s.To) {
			return nil, registrationErrorf(def.Kind, "step %s -> %s goes past current version %s", s.From, s.To, def.Current)
		}
		if i > 0 {
			prev := steps[i-1]
			if !prev.To.Equal(s.From) {
				return nil, registrationErrorf(def.Kind, "gap between %s and %s", prev.To, s.From)
			}
			if prev.out != s.in {
				return nil, registrationErrorf(def.Kind, "step %s -> %s produces %v but the next step expects %v", prev.From, prev.To, prev.out, s.in)
			}
		}
		byFrom[s.From] = i
	}

	if n := len(steps); n > 0 {
		last := steps[n-1]
		if !last.To.Equal(def.Current) {
			return nil, registrationErrorf(def.Kind, "chain ends at %s but current version is %s", last.To, def.Current)
		}
		if want := reflect.TypeFor[C](); last.out != want {
			return nil, registrationErrorf(def.Kind, "last step produces %v but the current snapshot is %v", last.out, want)
		}
	}

	logger := def.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Chain[D, C]{
		kind:       def.Kind,
		current:    def.Current,
		steps:      steps,
		byFrom:     byFrom,
		intoDomain: def.IntoDomain,
		fromDomain: def.FromDomain,
		logger:     logger,
	}, nil
}

// MustChain is like NewChain but panics on error. Intended for startup wiring.
func MustChain[D, C any](def Definition[D, C]) *Chain[D, C] {
	c, err := NewChain(def)
	if err != nil {
		panic(err)
	}
	return c
}

// Kind returns the entity kind the chain migrates.
func (c *Chain[D, C]) Kind() entity.Kind { return c.kind }

// Current returns the version documents are upgraded to.
func (c *Chain[D, C]) Current() version.Version { return c.current }

// Oldest returns the oldest supported version.
func (c *Chain[D, C]) Oldest() version.Version {
	if len(c.steps) == 0 {
		return c.current
	}
	return c.steps[0].From
}

// Steps returns the registered steps in application order.
func (c *Chain[D, C]) Steps() []Step {
	return slices.Clone(c.steps)
}

// Plan returns the steps a document tagged from would go through.
// An empty plan means the document is already current.
func (c *Chain[D, C]) Plan(from version.Version) ([]Step, error) {
	var plan []Step
	for v := from; !v.Equal(c.current); {
		i, ok := c.byFrom[v]
		if !ok {
			return nil, &VersionError{Kind: c.kind, Version: from, Current: c.current}
		}
		plan = append(plan, c.steps[i])
		v = c.steps[i].To
	}
	return plan, nil
}

// Upgrade walks doc through every step from its declared version to the
// current one and returns the current snapshot. Nothing is returned on
// failure, so a partially migrated snapshot is never observed.
func (c *Chain[D, C]) Upgrade(ctx context.Context, doc core.Document) (C, error) {
	var zero C

	if doc.Version.IsZero() {
		return zero, fmt.Errorf("%s %q: %w", c.kind.Name(), doc.ID, core.ErrMissingVersion)
	}

	plan, err := c.Plan(doc.Version)
	if err != nil {
		return zero, err
	}
	if len(plan) == 0 {
		snap, err := decodeSnapshot[C](doc.Metadata)
		if err != nil {
			return zero, fmt.Errorf("%s %q: %w", c.kind.Name(), doc.ID, err)
		}
		return snap, nil
	}

	snap, err := plan[0].decode(doc.Metadata)
	if err != nil {
		return zero, fmt.Errorf("%s %q: %w", c.kind.Name(), doc.ID, err)
	}

	v := doc.Version
	for _, step := range plan {
		if !step.CanMigrate(v) {
			return zero, &VersionError{Kind: c.kind, Version: v, Current: c.current}
		}
		c.logger.Debug("applying migration step",
			"kind", c.kind.Name(),
			"id", doc.ID,
			"from", step.From.String(),
			"to", step.To.String(),
			"step", step.Description,
		)
		snap, err = step.Migrate(ctx, snap)
		if err != nil {
			return zero, fmt.Errorf("%s %q: %w", c.kind.Name(), doc.ID, err)
		}
		v = step.To
	}

	out, ok := snap.(C)
	if !ok {
		return zero, fmt.Errorf("%s %q: chain produced %T, want %v", c.kind.Name(), doc.ID, snap, reflect.TypeFor[C]())
	}
	return out, nil
}

// Load migrates doc to the current version and converts it into the domain record.
func (c *Chain[D, C]) Load(ctx context.Context, doc core.Document) (D, error) {
	var zero D

	snap, err := c.Upgrade(ctx, doc)
	if err != nil {
		return zero, err
	}
	rec, err := c.intoDomain(snap)
	if err != nil {
		return zero, fmt.Errorf("%s %q: into domain: %w", c.kind.Name(), doc.ID, err)
	}
	return rec, nil
}

// Save encodes rec in the current snapshot shape, tagged with the current version.
func (c *Chain[D, C]) Save(id string, rec D) (core.Document, error) {
	meta, err := encodeSnapshot(c.fromDomain(rec))
	if err != nil {
		return core.Document{}, fmt.Errorf("%s %q: %w", c.kind.Name(), id, err)
	}
	return core.Document{
		Collection: c.kind.Collection(),
		ID:         id,
		Version:    c.current,
		Metadata:   meta,
	}, nil
}

// LoadRecord implements Migrator.
func (c *Chain[D, C]) LoadRecord(ctx context.Context, doc core.Document) (any, error) {
	return c.Load(ctx, doc)
}

// SaveRecord implements Migrator.
func (c *Chain[D, C]) SaveRecord(id string, rec any) (core.Document, error) {
	typed, ok := rec.(D)
	if !ok {
		return core.Document{}, fmt.Errorf("%s: cannot save %T, want %v", c.kind.Name(), rec, reflect.TypeFor[D]())
	}
	return c.Save(id, typed)
}

func (c *Chain[D, C]) setLogger(l *slog.Logger) {
	c.logger = l
}
