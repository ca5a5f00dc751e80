package resolvers_test

import (
	"errors"
	"testing"

	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
	"github.com/reglet-dev/reglet-addon-host/plugin/resolvers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifest(id string, deps ...string) *entities.Manifest {
	m := &entities.Manifest{ID: id, Version: "1.0.0", HostVersionMin: "4.0.0"}
	for _, d := range deps {
		m.Dependencies = append(m.Dependencies, entities.ParseDependency(d))
	}
	return m
}

func TestDependencyResolver_Check(t *testing.T) {
	t.Parallel()

	r := resolvers.NewDependencyResolver()
	m := manifest("studio.tools", "numpy >= 1.20", "studio.core ^2.0", "studio.ui")

	t.Run("all satisfied", func(t *testing.T) {
		t.Parallel()
		err := r.Check(m, map[string]string{"numpy": "1.24.0", "studio.core": "2.3.1", "studio.ui": "0.1.0"})
		assert.NoError(t, err)
	})

	t.Run("reports every unsatisfied dependency", func(t *testing.T) {
		t.Parallel()
		err := r.Check(m, map[string]string{"numpy": "1.19.0", "studio.ui": "0.1.0"})
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrDependencyUnsatisfied)
		assert.Contains(t, err.Error(), "numpy >= 1.20: found 1.19.0")
		assert.Contains(t, err.Error(), "studio.core ^2.0: not enabled")

		var depErr *entities.DependencyError
		require.True(t, errors.As(err, &depErr))
		assert.Equal(t, "studio.tools", depErr.AddonID)
	})

	t.Run("no dependencies", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, r.Check(manifest("solo"), nil))
	})
}

func TestDependencyResolver_CheckHost(t *testing.T) {
	t.Parallel()

	r := resolvers.NewDependencyResolver()
	m := manifest("studio.tools")
	m.HostVersionMin = "4.2.0"
	m.HostVersionMax = "4.5.0"

	tests := []struct {
		host    string
		wantErr error
	}{
		{"4.1.9", entities.ErrIncompatibleHost},
		{"4.2.0", nil},
		{"4.4", nil},
		{"4.5.0", nil},
		{"4.6.0", entities.ErrIncompatibleHost},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			err := r.CheckHost(m, tt.host)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	open := manifest("open")
	open.HostVersionMin = "4.2.0"
	assert.NoError(t, r.CheckHost(open, "9.0.0"))
	assert.Error(t, r.CheckHost(open, "latest"))
}

func TestDependents(t *testing.T) {
	t.Parallel()

	all := []*entities.Manifest{
		manifest("core"),
		manifest("ui", "core"),
		manifest("tools", "core >= 1.0", "ui"),
	}
	assert.Equal(t, []string{"tools", "ui"}, resolvers.Dependents("core", all))
	assert.Equal(t, []string{"tools"}, resolvers.Dependents("ui", all))
	assert.Empty(t, resolvers.Dependents("tools", all))
}

func TestOrder(t *testing.T) {
	t.Parallel()

	ids := func(ms []*entities.Manifest) []string {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.ID
		}
		return out
	}

	ordered, err := resolvers.Order([]*entities.Manifest{
		manifest("tools", "ui", "core"),
		manifest("ui", "core"),
		manifest("standalone", "external >= 1"),
		manifest("core"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"standalone", "core", "ui", "tools"}, ids(ordered))

	_, err = resolvers.Order([]*entities.Manifest{
		manifest("a", "b"),
		manifest("b", "a"),
		manifest("c"),
	})
	assert.ErrorIs(t, err, resolvers.ErrDependencyCycle)
	assert.Contains(t, err.Error(), "a, b")
}
