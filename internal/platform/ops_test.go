package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/internal/platform"
	"github.com/aretw0/strata/pkg/adapters/fs"
	"github.com/aretw0/strata/pkg/adapters/memory"
	"github.com/aretw0/strata/pkg/core"
)

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates Directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data")

		repo, err := platform.Init(ctx, path)
		require.NoError(t, err)

		fsRepo, ok := repo.(*fs.Repository)
		require.True(t, ok, "expected fs repository, got %T", repo)
		assert.Equal(t, path, fsRepo.Path)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MustExist Fails if Directory Missing", func(t *testing.T) {
		_, err := platform.Init(ctx, filepath.Join(t.TempDir(), "missing"), platform.WithMustExist(true))
		assert.Error(t, err)
	})

	t.Run("ReadOnly Does Not Create Directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing")
		_, err := platform.Init(ctx, path, platform.WithReadOnly(true))
		assert.Error(t, err)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("Format Applies to Writes", func(t *testing.T) {
		path := t.TempDir()
		repo, err := platform.Init(ctx, path, platform.WithFormat("yaml"))
		require.NoError(t, err)

		state := repo.(*fs.Repository).State().(fs.RepositoryState)
		assert.Equal(t, ".yaml", state.Format)
	})

	t.Run("Injected Repository", func(t *testing.T) {
		mem := memory.NewRepository()
		repo, err := platform.Init(ctx, "ignored", platform.WithRepository(mem))
		require.NoError(t, err)
		assert.Same(t, core.Repository(mem), repo)
	})
}
