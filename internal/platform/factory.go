package platform

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/entity/persona"
	"github.com/aretw0/strata/pkg/entity/session"
	"github.com/aretw0/strata/pkg/migrate"
	"github.com/aretw0/strata/pkg/store"
)

// Runtime is a fully wired set of stores over one repository.
type Runtime struct {
	Repo     core.Repository
	Registry *migrate.Registry
	Catalog  *store.Catalog
	Personas *store.Store[persona.Persona]
	Sessions *store.Store[session.Session]
	Logger   *slog.Logger
}

// New opens the data root at uri and registers every entity kind.
// Background work started by WithWatch stops when ctx is done.
//
//	rt, err := strata.New(ctx, "./data", strata.WithFormat(".yaml"))
func New(ctx context.Context, uri string, opts ...Option) (*Runtime, error) {
	o := buildOptions(opts)

	repo, err := initRepository(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	storeOpts := []store.Option{store.WithLogger(o.logger)}

	personaChain := persona.Chain()
	personas := store.New[persona.Persona](repo, personaChain, storeOpts...)
	catalog := store.NewCatalog(personas, storeOpts...)

	registry, err := migrate.NewRegistry([]migrate.Migrator{
		personaChain,
		session.Chain(catalog, o.logger),
	}, migrate.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	sessions, err := store.ForKind[session.Session](repo, registry, entity.KindSession, storeOpts...)
	if err != nil {
		return nil, err
	}

	if o.watch {
		w, ok := repo.(core.Watchable)
		if !ok {
			return nil, fmt.Errorf("repository %s does not support watching", describe(repo))
		}
		if err := catalog.Watch(ctx, w); err != nil {
			return nil, err
		}
	}

	o.logger.Debug("runtime ready", "repository", describe(repo))

	return &Runtime{
		Repo:     repo,
		Registry: registry,
		Catalog:  catalog,
		Personas: personas,
		Sessions: sessions,
		Logger:   o.logger,
	}, nil
}

// Get loads one record of kind in its current shape.
func (r *Runtime) Get(ctx context.Context, kind entity.Kind, id string) (any, error) {
	switch kind {
	case entity.KindPersona:
		return r.Personas.Get(ctx, id)
	case entity.KindSession:
		return r.Sessions.Get(ctx, id)
	}
	return nil, fmt.Errorf("unknown kind %v", kind)
}

// Upgrade rewrites outdated records of the given kinds (all kinds when
// empty). Personas are always upgraded before sessions so that session key
// resolution reads canonical persona ids.
func (r *Runtime) Upgrade(ctx context.Context, kinds []entity.Kind, dryRun bool) ([]*store.Report, error) {
	if len(kinds) == 0 {
		kinds = entity.All()
	}
	ordered := slices.Clone(kinds)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	reports := make([]*store.Report, 0, len(ordered))
	for _, k := range ordered {
		m, err := r.Registry.Chain(k)
		if err != nil {
			return reports, err
		}
		report, err := store.UpgradeKind(ctx, r.Repo, m, dryRun, r.Logger)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)

		if k == entity.KindPersona && !dryRun && len(report.Upgraded) > 0 {
			r.Catalog.Invalidate()
		}
	}
	return reports, nil
}
