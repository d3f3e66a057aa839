package migrate_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/migrate"
	"github.com/aretw0/strata/pkg/version"
)

type label struct {
	Text string `json:"text"`
}

func labelChain(t *testing.T) *migrate.Chain[label, label] {
	t.Helper()
	chain, err := migrate.NewChain(migrate.Definition[label, label]{
		Kind:       entity.KindPersona,
		Current:    version.MustParse("1.0.0"),
		IntoDomain: func(l label) (label, error) { return l, nil },
		FromDomain: func(l label) label { return l },
	})
	require.NoError(t, err)
	return chain
}

func TestRegistry_RequiresEveryKind(t *testing.T) {
	_, err := migrate.NewRegistry([]migrate.Migrator{labelChain(t)})
	require.Error(t, err)
	assert.ErrorIs(t, err, migrate.ErrAmbiguousRegistration)
	assert.Contains(t, err.Error(), entity.KindSession.Name())

	assert.Panics(t, func() {
		migrate.MustRegistry([]migrate.Migrator{labelChain(t)})
	})
}

func TestRegistry_RejectsDuplicateKind(t *testing.T) {
	notes := migrate.MustChain(noteDefinition(renameStep(nil), tagStep(nil)))
	_, err := migrate.NewRegistry([]migrate.Migrator{labelChain(t), notes, labelChain(t)})
	assert.ErrorIs(t, err, migrate.ErrAmbiguousRegistration)
}

func TestRegistry_RejectsNilChain(t *testing.T) {
	var missing *migrate.Chain[label, label]
	_, err := migrate.NewRegistry([]migrate.Migrator{missing})
	assert.ErrorIs(t, err, migrate.ErrAmbiguousRegistration)
}

func TestRegistry_LoadAndSave(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	notes := migrate.MustChain(noteDefinition(renameStep(nil), tagStep(nil)))
	reg, err := migrate.NewRegistry([]migrate.Migrator{labelChain(t), notes}, migrate.WithLogger(logger))
	require.NoError(t, err)

	ctx := context.Background()
	got, err := migrate.Load[note](ctx, reg, entity.KindSession, doc(v010, core.Metadata{"name": "legacy"}))
	require.NoError(t, err)
	assert.Equal(t, "legacy", got.Title)
	assert.Contains(t, buf.String(), "applying migration step")

	raw, err := migrate.Save(reg, entity.KindSession, "n1", got)
	require.NoError(t, err)
	assert.Equal(t, v030, raw.Version)

	_, err = migrate.Load[label](ctx, reg, entity.KindSession, doc(v010, core.Metadata{"name": "legacy"}))
	assert.Error(t, err, "wrong domain type must be reported")

	_, err = reg.SaveEntity(entity.KindSession, "n1", label{Text: "nope"})
	assert.Error(t, err)

	wrong := doc(v030, core.Metadata{"title": "t"})
	wrong.Collection = "personas"
	_, err = reg.LoadEntity(ctx, entity.KindSession, wrong)
	assert.Error(t, err)
}

func TestRegistry_State(t *testing.T) {
	notes := migrate.MustChain(noteDefinition(renameStep(nil), tagStep(nil)))
	reg := migrate.MustRegistry([]migrate.Migrator{notes, labelChain(t)})

	state, ok := reg.State().(migrate.RegistryState)
	require.True(t, ok)
	require.Len(t, state.Chains, 2)

	// Ordered like entity.All().
	assert.Equal(t, "Persona", state.Chains[0].Kind)
	assert.Equal(t, "1.0.0", state.Chains[0].Current)
	assert.Empty(t, state.Chains[0].Steps)

	assert.Equal(t, "Session", state.Chains[1].Kind)
	assert.Equal(t, "0.1.0", state.Chains[1].Oldest)
	assert.Len(t, state.Chains[1].Steps, 2)
	assert.Equal(t, "migration-registry", reg.ComponentType())
}
