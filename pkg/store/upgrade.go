package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/migrate"
	"github.com/aretw0/strata/pkg/version"
)

// Report summarizes an upgrade (or a dry run of one) over a collection.
type Report struct {
	Kind     entity.Kind
	Current  version.Version
	DryRun   bool
	Upgraded []string // rewritten, or would be in a dry run
	UpToDate []string
	Failed   []*LoadError
	// Moved maps the stored key of a Keyed record to the canonical key it
	// was (or would be) rewritten under.
	Moved map[string]string
}

// Total returns the number of records inspected.
func (r *Report) Total() int {
	return len(r.Upgraded) + len(r.UpToDate) + len(r.Failed)
}

// UpgradeKind runs an upgrade for the kind-erased chain m.
func UpgradeKind(ctx context.Context, repo core.Repository, m migrate.Migrator, dryRun bool, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return upgrade(ctx, repo, m.Kind(), m.Current(), dryRun, logger, m.LoadRecord, m.SaveRecord)
}

// upgrade loads every record of kind and, unless dryRun, saves back those
// stored below current. Records already current are never rewritten unless
// they are Keyed and stored under a stale key, in which case they move.
func upgrade(
	ctx context.Context,
	repo core.Repository,
	kind entity.Kind,
	current version.Version,
	dryRun bool,
	logger *slog.Logger,
	load func(context.Context, core.Document) (any, error),
	save func(string, any) (core.Document, error),
) (*Report, error) {
	report := &Report{Kind: kind, Current: current, DryRun: dryRun}
	collection := kind.Collection()

	ids, err := repo.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		doc, err := repo.Get(ctx, collection, id)
		if err != nil {
			report.Failed = append(report.Failed, newLoadError(kind, id, version.Version{}, err))
			continue
		}
		rec, err := load(ctx, doc)
		if err != nil {
			report.Failed = append(report.Failed, newLoadError(kind, id, doc.Version, err))
			continue
		}
		key := storageKey(id, rec)
		if doc.Version.Equal(current) && key == id {
			report.UpToDate = append(report.UpToDate, id)
			continue
		}

		if key != id {
			if _, err := repo.Get(ctx, collection, key); !errors.Is(err, core.ErrNotFound) {
				err = fmt.Errorf("%w: %s", ErrKeyConflict, key)
				report.Failed = append(report.Failed, newLoadError(kind, id, doc.Version, err))
				continue
			}
		}

		if !dryRun {
			if err := rewrite(ctx, repo, collection, id, key, rec, save); err != nil {
				report.Failed = append(report.Failed, newLoadError(kind, id, doc.Version, err))
				continue
			}
		}
		logger.Info("record upgraded",
			"kind", kind.Name(),
			"id", id,
			"key", key,
			"from", doc.Version.String(),
			"to", current.String(),
			"dry_run", dryRun,
		)
		report.Upgraded = append(report.Upgraded, id)
		if key != id {
			if report.Moved == nil {
				report.Moved = make(map[string]string)
			}
			report.Moved[id] = key
		}
	}
	return report, nil
}

// rewrite saves rec under key and drops the copy under id when they differ.
func rewrite(
	ctx context.Context,
	repo core.Repository,
	collection, id, key string,
	rec any,
	save func(string, any) (core.Document, error),
) error {
	out, err := save(key, rec)
	if err != nil {
		return err
	}
	if err := repo.Save(ctx, out); err != nil {
		return err
	}
	if key == id {
		return nil
	}
	if err := repo.Delete(ctx, collection, id); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("remove stale key after move to %s: %w", key, err)
	}
	return nil
}
