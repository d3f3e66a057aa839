package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/internal/platform"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/entity"
	"github.com/aretw0/strata/pkg/entity/persona"
	"github.com/aretw0/strata/pkg/entity/session"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// seedLegacy writes a 0.1.0 data root with mixed formats.
func seedLegacy(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "personas/mai.toml", `version = "0.1.0"
id = "mai"
name = "Mai"
prompt = "be kind"
`)
	writeFile(t, root, "personas/kuro.yaml", `version: 0.1.0
id: kuro
name: Kuro
`)
	writeFile(t, root, "sessions/s1.json", `{
  "version": "0.1.0",
  "id": "s1",
  "name": "First chat",
  "updated_at": "2024-01-01T00:00:00Z",
  "active_persona": "mai",
  "history": {
    "MAI": [{"role": "assistant", "content": "hi", "at": "2024-01-01T00:00:00Z"}],
    "user": [{"role": "user", "content": "hello", "at": "2024-01-01T00:00:00Z"}],
    "ghost": [{"role": "assistant", "content": "boo"}]
  }
}
`)
	writeFile(t, root, "sessions/future.toml", `version = "7.0.0"
id = "future"
`)
	return root
}

func TestRuntimeLoadsLegacyData(t *testing.T) {
	root := seedLegacy(t)
	ctx := context.Background()

	rt, err := platform.New(ctx, root)
	require.NoError(t, err)

	p, err := rt.Personas.Get(ctx, "kuro")
	require.NoError(t, err)
	assert.Equal(t, persona.IDFromName("Kuro"), p.ID)

	s, err := rt.Sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "First chat", s.Title)
	assert.True(t, s.CreatedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	mai := persona.IDFromName("Mai").String()
	assert.Equal(t, mai, s.ActivePersona)
	assert.Len(t, s.History, 3)
	assert.Contains(t, s.History, mai)
	assert.Contains(t, s.History, session.UserKey)
	assert.Contains(t, s.History, "ghost")

	_, err = rt.Sessions.Get(ctx, "future")
	assert.ErrorIs(t, err, core.ErrNotFound)

	entries, failed, err := rt.Sessions.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, failed, 1)
}

func TestRuntimeUpgrade(t *testing.T) {
	root := seedLegacy(t)
	ctx := context.Background()

	rt, err := platform.New(ctx, root)
	require.NoError(t, err)

	// Requested out of order; personas still go first.
	reports, err := rt.Upgrade(ctx, []entity.Kind{entity.KindSession, entity.KindPersona}, false)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, entity.KindPersona, reports[0].Kind)
	assert.ElementsMatch(t, []string{"kuro", "mai"}, reports[0].Upgraded)
	assert.Equal(t, []string{"s1"}, reports[1].Upgraded)
	require.Len(t, reports[1].Failed, 1)
	assert.Equal(t, "future", reports[1].Failed[0].ID)

	// Rewritten under the canonical id in the default format; legacy copies are gone.
	kuro := persona.IDFromName("Kuro").String()
	assert.Equal(t, kuro, reports[0].Moved["kuro"])
	_, err = os.Stat(filepath.Join(root, "personas", kuro+".toml"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "personas", "kuro.yaml"))
	assert.True(t, os.IsNotExist(err))

	p, err := rt.Personas.Get(ctx, kuro)
	require.NoError(t, err)
	assert.Equal(t, "Kuro", p.Name)

	doc, err := rt.Repo.Get(ctx, "sessions", "s1")
	require.NoError(t, err)
	assert.Equal(t, session.Current, doc.Version)
	assert.Equal(t, "First chat", doc.Metadata["title"])

	before, err := rt.Sessions.Get(ctx, "s1")
	require.NoError(t, err)

	again, err := rt.Upgrade(ctx, nil, false)
	require.NoError(t, err)
	for _, r := range again {
		assert.Empty(t, r.Upgraded, r.Kind.Name())
	}

	after, err := rt.Sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, before.History, after.History)
}

func TestRuntimeLoadsYAMLWithNumericHistoryKeys(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sessions/y1.yaml", `version: 0.1.0
id: y1
name: Numbers
updated_at: "2024-01-01T00:00:00Z"
history:
  42:
    - role: assistant
      content: answer
  user:
    - role: user
      content: question
`)
	ctx := context.Background()

	rt, err := platform.New(ctx, root)
	require.NoError(t, err)

	s, err := rt.Sessions.Get(ctx, "y1")
	require.NoError(t, err)
	assert.Equal(t, "Numbers", s.Title)
	assert.Contains(t, s.History, "42")
	assert.Contains(t, s.History, session.UserKey)

	reports, err := rt.Upgrade(ctx, []entity.Kind{entity.KindSession}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"y1"}, reports[0].Upgraded)
	assert.Empty(t, reports[0].Failed)
}

func TestRuntimeGetByKind(t *testing.T) {
	rt, err := platform.New(context.Background(), seedLegacy(t))
	require.NoError(t, err)

	rec, err := rt.Get(context.Background(), entity.KindPersona, "mai")
	require.NoError(t, err)
	assert.IsType(t, persona.Persona{}, rec)
}

func TestRuntimeWithWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := platform.New(ctx, t.TempDir(), platform.WithWatch(true))
	require.NoError(t, err)
	assert.NotNil(t, rt.Catalog)
}
