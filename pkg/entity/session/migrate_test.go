package session_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity/persona"
	"github.com/aretw0/strata/pkg/entity/session"
	"github.com/aretw0/strata/pkg/migrate"
)

func staticCatalog(personas ...persona.Persona) session.Catalog {
	return session.CatalogFunc(func(context.Context) ([]persona.Persona, error) {
		return personas, nil
	})
}

func legacyDoc(meta core.Metadata) core.Document {
	return core.Document{Collection: "sessions", ID: "s1", Version: session.V010, Metadata: meta}
}

func msgs(contents ...string) []any {
	out := make([]any, 0, len(contents))
	for _, c := range contents {
		out = append(out, map[string]any{"role": "assistant", "content": c})
	}
	return out
}

func TestMigrate_RewritesOnlyNameMatchedKeys(t *testing.T) {
	mai := persona.Persona{ID: uuid.New(), Name: "Mai"}
	canonical := uuid.NewString()

	chain := session.Chain(staticCatalog(mai), nil)
	got, err := chain.Load(context.Background(), legacyDoc(core.Metadata{
		"id":         "s1",
		"name":       "Evening chat",
		"updated_at": "2024-01-01T00:00:00Z",
		"history": map[string]any{
			"mai":     msgs("hello"),
			"user":    msgs("hi"),
			canonical: msgs("from elsewhere"),
		},
	}))
	require.NoError(t, err)

	assert.Len(t, got.History, 3)
	assert.Contains(t, got.History, mai.ID.String())
	assert.Contains(t, got.History, "user")
	assert.Contains(t, got.History, canonical)
	assert.NotContains(t, got.History, "mai")
	assert.Equal(t, "hello", got.History[mai.ID.String()][0].Content)
	assert.Equal(t, "hi", got.History["user"][0].Content)
}

func TestMigrate_RenamesAndDefaultsCreatedAt(t *testing.T) {
	chain := session.Chain(staticCatalog(), nil)
	got, err := chain.Load(context.Background(), legacyDoc(core.Metadata{
		"id":         "s1",
		"name":       "Morning chat",
		"updated_at": "2024-01-01T00:00:00Z",
	}))
	require.NoError(t, err)

	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Morning chat", got.Title)
	assert.True(t, want.Equal(got.CreatedAt), "created_at = %s", got.CreatedAt)
	assert.True(t, want.Equal(got.UpdatedAt))
}

func TestMigrate_KeepsExistingCreatedAt(t *testing.T) {
	chain := session.Chain(staticCatalog(), nil)
	got, err := chain.Load(context.Background(), legacyDoc(core.Metadata{
		"name":       "chat",
		"created_at": "2023-06-01T12:00:00Z",
		"updated_at": "2024-01-01T00:00:00Z",
	}))
	require.NoError(t, err)
	assert.True(t, time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC).Equal(got.CreatedAt))
}

func TestMigrate_ResolvesActivePersona(t *testing.T) {
	mai := persona.Persona{ID: uuid.New(), Name: "Mai"}
	chain := session.Chain(staticCatalog(mai), nil)

	tests := []struct {
		ref  string
		want string
	}{
		{ref: "Mai", want: mai.ID.String()},
		{ref: "MAI", want: mai.ID.String()},
		{ref: " mai ", want: mai.ID.String()},
		{ref: "ghost", want: "ghost"},
		{ref: "user", want: "user"},
		{ref: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := chain.Load(context.Background(), legacyDoc(core.Metadata{
				"name":           "chat",
				"updated_at":     "2024-01-01T00:00:00Z",
				"active_persona": tt.ref,
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ActivePersona)
		})
	}
}

func TestMigrate_MatchTiers(t *testing.T) {
	exact := persona.Persona{ID: uuid.MustParse("ffffffff-ffff-4fff-bfff-ffffffffffff"), Name: "Dr-Who"}
	folded := persona.Persona{ID: uuid.MustParse("00000000-0000-4000-8000-000000000001"), Name: "dr-who"}
	spaced := persona.Persona{ID: uuid.MustParse("00000000-0000-4000-8000-000000000000"), Name: "Dr Who"}

	chain := session.Chain(staticCatalog(exact, folded, spaced), nil)
	load := func(ref string) string {
		got, err := chain.Load(context.Background(), legacyDoc(core.Metadata{
			"name": "chat", "updated_at": "2024-01-01T00:00:00Z", "active_persona": ref,
		}))
		require.NoError(t, err)
		return got.ActivePersona
	}

	// Exact beats case-insensitive even with a higher id.
	assert.Equal(t, exact.ID.String(), load("Dr-Who"))
	// Two case-insensitive hits: lowest id wins, independent of catalogue order.
	assert.Equal(t, folded.ID.String(), load("DR-WHO"))
	// Only the normalized tier matches.
	assert.Equal(t, spaced.ID.String(), load("dr_who"))
}

func TestMigrate_UserBucketNeverRewritten(t *testing.T) {
	user := persona.Persona{ID: uuid.New(), Name: "User"}
	chain := session.Chain(staticCatalog(user), nil)

	got, err := chain.Load(context.Background(), legacyDoc(core.Metadata{
		"name": "chat", "updated_at": "2024-01-01T00:00:00Z",
		"history": map[string]any{"user": msgs("hi")},
	}))
	require.NoError(t, err)
	assert.Contains(t, got.History, "user")
}

func TestMigrate_MergesCollidingKeys(t *testing.T) {
	mai := persona.Persona{ID: uuid.New(), Name: "Mai"}
	chain := session.Chain(staticCatalog(mai), nil)

	got, err := chain.Load(context.Background(), legacyDoc(core.Metadata{
		"name": "chat", "updated_at": "2024-01-01T00:00:00Z",
		"history": map[string]any{
			"mai": []any{map[string]any{"role": "assistant", "content": "second", "at": "2024-01-01T10:00:00Z"}},
			"Mai": []any{map[string]any{"role": "assistant", "content": "first", "at": "2024-01-01T09:00:00Z"}},
		},
	}))
	require.NoError(t, err)

	require.Len(t, got.History, 1)
	bucket := got.History[mai.ID.String()]
	require.Len(t, bucket, 2)
	assert.Equal(t, "first", bucket[0].Content)
	assert.Equal(t, "second", bucket[1].Content)
}

func TestMigrate_CatalogFailureAborts(t *testing.T) {
	offline := errors.New("persona store offline")
	chain := session.Chain(session.CatalogFunc(func(context.Context) ([]persona.Persona, error) {
		return nil, offline
	}), nil)

	got, err := chain.Load(context.Background(), legacyDoc(core.Metadata{
		"name": "chat", "updated_at": "2024-01-01T00:00:00Z",
		"history": map[string]any{"mai": msgs("hello")},
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, offline)
	assert.ErrorIs(t, err, migrate.ErrStepFailed)
	assert.Equal(t, session.Session{}, got)
}

func TestMigrate_SkipsCatalogWhenAllCanonical(t *testing.T) {
	var calls atomic.Int32
	chain := session.Chain(session.CatalogFunc(func(context.Context) ([]persona.Persona, error) {
		calls.Add(1)
		return nil, errors.New("must not be called")
	}), nil)

	id := uuid.NewString()
	got, err := chain.Load(context.Background(), legacyDoc(core.Metadata{
		"name": "chat", "updated_at": "2024-01-01T00:00:00Z",
		"active_persona": id,
		"history":        map[string]any{id: msgs("x"), "user": msgs("y")},
	}))
	require.NoError(t, err)
	assert.Equal(t, id, got.ActivePersona)
	assert.Zero(t, calls.Load())
}

func TestChain_CurrentIsIdentity(t *testing.T) {
	chain := session.Chain(nil, nil)
	s := session.Session{
		ID:            "s2",
		Title:         "current",
		CreatedAt:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
		ActivePersona: uuid.NewString(),
		History: map[string][]session.Message{
			"user": {{Role: "user", Content: "hi", At: time.Date(2024, 2, 1, 1, 0, 0, 0, time.UTC)}},
		},
	}

	raw, err := chain.Save(s.ID, s)
	require.NoError(t, err)
	assert.Equal(t, session.Current, raw.Version)
	assert.Equal(t, "current", raw.Metadata["title"])
	assert.NotContains(t, raw.Metadata, "name")

	back, err := chain.Load(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, s.Title, back.Title)
	assert.True(t, s.CreatedAt.Equal(back.CreatedAt))
	assert.Equal(t, s.ActivePersona, back.ActivePersona)
	require.Len(t, back.History["user"], 1)
	assert.Equal(t, "hi", back.History["user"][0].Content)
}
