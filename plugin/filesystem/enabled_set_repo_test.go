package filesystem_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
	"github.com/reglet-dev/reglet-addon-host/plugin/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileEnabledSetRepository(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	setPath := filepath.Join(tmpDir, "enabled.yaml")
	repo := filesystem.NewFileEnabledSetRepository()
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		set := entities.NewEnabledSet()
		set.Generated = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, set.Add(entities.EnabledAddon{ID: "studio.core", Version: "2.1.0"}))
		require.NoError(t, set.Add(entities.EnabledAddon{ID: "studio.tools", Version: "1.0.0", Source: "/addons/tools.yaml"}))

		require.NoError(t, repo.Save(ctx, set, setPath))

		exists, err := repo.Exists(ctx, setPath)
		require.NoError(t, err)
		assert.True(t, exists)

		loaded, err := repo.Load(ctx, setPath)
		require.NoError(t, err)
		require.NotNil(t, loaded)

		assert.Equal(t, set.Version, loaded.Version)
		assert.Equal(t, set.Generated.Unix(), loaded.Generated.Unix())
		assert.Equal(t, []string{"studio.core", "studio.tools"}, loaded.IDs())
		assert.Equal(t, "/addons/tools.yaml", loaded.Get("studio.tools").Source)
	})

	t.Run("Load non-existent", func(t *testing.T) {
		loaded, err := repo.Load(ctx, filepath.Join(tmpDir, "missing.yaml"))
		require.NoError(t, err)
		assert.Nil(t, loaded)

		loaded, err = repo.Load(ctx, filepath.Join(tmpDir, "nodir", "enabled.yaml"))
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("Save ensures directory", func(t *testing.T) {
		subPath := filepath.Join(tmpDir, "subdir", "enabled.yaml")
		require.NoError(t, repo.Save(ctx, entities.NewEnabledSet(), subPath))

		exists, err := repo.Exists(ctx, subPath)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Load rejects invalid content", func(t *testing.T) {
		bad := filepath.Join(tmpDir, "bad.yaml")
		content := "enabled_version: 1\ngenerated: 2025-01-01T00:00:00Z\naddons:\n  - id: a\n"
		require.NoError(t, os.WriteFile(bad, []byte(content), 0o600))

		_, err := repo.Load(ctx, bad)
		assert.ErrorContains(t, err, "version is required")
	})
}

func TestFileManifestRepository(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := filesystem.NewFileManifestRepository()
	ctx := context.Background()

	yamlPath := filepath.Join(dir, "addon.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("id: studio.tools\nversion: 1.0.0\nhost_version_min: 4.2.0\n"), 0o600))

	m, err := repo.LoadManifest(ctx, yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "studio.tools", m.ID)

	_, err = repo.LoadManifest(ctx, filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = repo.LoadManifest(ctx, filepath.Join(dir, "addon.txt"))
	assert.Error(t, err)
}
