package session

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/migrate"
)

// Chain returns the migration chain for sessions. Legacy persona references
// are resolved against catalog. logger may be nil.
func Chain(catalog Catalog, logger *slog.Logger) *migrate.Chain[Session, SnapshotV020] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &v010ToV020{catalog: catalog, logger: logger.With("kind", entity.KindSession.Name())}

	return migrate.MustChain(migrate.Definition[Session, SnapshotV020]{
		Kind:    entity.KindSession,
		Current: Current,
		Steps: []migrate.Step{
			migrate.NewStep(V010, V020, "rename name to title, default created_at, resolve persona keys", m.migrate),
		},
		IntoDomain: intoDomain,
		FromDomain: fromDomain,
	})
}

type v010ToV020 struct {
	catalog Catalog
	logger  *slog.Logger
}

func (m *v010ToV020) migrate(ctx context.Context, in SnapshotV010) (SnapshotV020, error) {
	out := SnapshotV020{
		ID:        in.ID,
		Title:     in.Name,
		UpdatedAt: in.UpdatedAt,
	}

	// The true creation time of legacy sessions is lost; the last update is
	// the closest lower bound we have.
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		out.CreatedAt = *in.CreatedAt
	} else {
		out.CreatedAt = in.UpdatedAt
	}

	refs := append(slices.Collect(maps.Keys(in.History)), in.ActivePersona)
	res := newResolver(nil, m.logger)
	if needsCatalog(refs) {
		if m.catalog == nil {
			return SnapshotV020{}, fmt.Errorf("no persona catalog configured")
		}
		personas, err := m.catalog.ListPersonas(ctx)
		if err != nil {
			return SnapshotV020{}, fmt.Errorf("list personas: %w", err)
		}
		res = newResolver(personas, m.logger)
	}

	out.ActivePersona = resolveRef(res, in.ActivePersona)
	out.History = rekeyHistory(res, in.History)
	return out, nil
}

func resolveRef(res *resolver, ref string) string {
	if ref == UserKey {
		return ref
	}
	return res.resolve(ref)
}

// rekeyHistory rewrites history keys through res. No key is ever dropped;
// keys that collapse onto the same id have their messages merged.
func rekeyHistory(res *resolver, history map[string][]Message) map[string][]Message {
	if history == nil {
		return nil
	}

	out := make(map[string][]Message, len(history))
	merged := make(map[string]bool)
	for _, key := range slices.Sorted(maps.Keys(history)) {
		id := resolveRef(res, key)
		if _, exists := out[id]; exists {
			merged[id] = true
		}
		out[id] = append(out[id], history[key]...)
	}

	for id := range merged {
		res.logger.Info("merged history buckets resolving to the same persona", "id", id)
		sortByTime(out[id])
	}
	return out
}

// sortByTime orders msgs chronologically when every message carries a timestamp.
func sortByTime(msgs []Message) {
	for _, m := range msgs {
		if m.At.IsZero() {
			return
		}
	}
	slices.SortStableFunc(msgs, func(a, b Message) int {
		return a.At.Compare(b.At)
	})
}
