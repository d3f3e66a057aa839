package session

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/aretw0/strata/pkg/entity/persona"
)

// Catalog lists the current persona records. Implementations must return the
// full catalogue and must not mutate shared state.
type Catalog interface {
	ListPersonas(ctx context.Context) ([]persona.Persona, error)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(ctx context.Context) ([]persona.Persona, error)

func (f CatalogFunc) ListPersonas(ctx context.Context) ([]persona.Persona, error) {
	return f(ctx)
}

// matchers are tried in order; the first tier with a hit wins.
var matchers = []struct {
	name  string
	match func(name, ref string) bool
}{
	{"exact", func(name, ref string) bool { return name == ref }},
	{"case-insensitive", strings.EqualFold},
	{"normalized", func(name, ref string) bool {
		n := normalize(ref)
		return n != "" && normalize(name) == n
	}},
}

// normalize folds case and treats runs of '-', '_' and whitespace as one space.
func normalize(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	return strings.ToLower(strings.Join(fields, " "))
}

// resolver rewrites legacy persona references to canonical ids.
type resolver struct {
	personas []persona.Persona
	logger   *slog.Logger
}

func newResolver(personas []persona.Persona, logger *slog.Logger) *resolver {
	sorted := slices.Clone(personas)
	slices.SortFunc(sorted, func(a, b persona.Persona) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return &resolver{personas: sorted, logger: logger}
}

// resolve returns the canonical id for ref, or ref unchanged when it already
// is canonical or matches no persona.
func (r *resolver) resolve(ref string) string {
	if ref == "" || persona.IsCanonicalID(ref) {
		return ref
	}
	for _, m := range matchers {
		var hits []persona.Persona
		for _, p := range r.personas {
			if m.match(p.Name, ref) {
				hits = append(hits, p)
			}
		}
		if len(hits) == 0 {
			continue
		}
		if len(hits) > 1 {
			r.logger.Warn("persona reference matches several personas, using lowest id",
				"ref", ref,
				"match", m.name,
				"candidates", len(hits),
				"id", hits[0].ID.String(),
			)
		}
		return hits[0].ID.String()
	}
	return ref
}

// needsCatalog reports whether any reference would have to be looked up.
func needsCatalog(refs []string) bool {
	for _, ref := range refs {
		if ref != "" && ref != UserKey && !persona.IsCanonicalID(ref) {
			return true
		}
	}
	return false
}
