package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/host"
	"github.com/reglet-dev/reglet-addon-host/plugin"
	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
	"github.com/reglet-dev/reglet-addon-host/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(h plugin.Host, opts ...plugin.AddonServiceOption) *plugin.AddonService {
	opts = append([]plugin.AddonServiceOption{
		plugin.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		plugin.WithClock(func() time.Time { return testTime }),
	}, opts...)
	return plugin.NewAddonService(h, "4.2.0", opts...)
}

func manifest(id, version string, deps ...string) *entities.Manifest {
	m := &entities.Manifest{ID: id, Version: version, HostVersionMin: "4.0.0"}
	for _, d := range deps {
		m.Dependencies = append(m.Dependencies, entities.ParseDependency(d))
	}
	return m
}

func addon(id string) host.Addon {
	return host.AddonFunc{Name: id, Fn: func(context.Context, *host.Registrar) error { return nil }}
}

func TestAddonService_Enable(t *testing.T) {
	t.Parallel()

	t.Run("no permissions skips the gatekeeper", func(t *testing.T) {
		t.Parallel()
		h := new(plugin.MockHost)
		h.On("Enable", mock.Anything, mock.Anything, capability.NewPermissionSet()).Return(nil)

		svc := newTestService(h)
		require.NoError(t, svc.Enable(context.Background(), manifest("studio.core", "2.1.0"), addon("studio.core"), ""))

		h.AssertExpectations(t)
		enabled := svc.Enabled()
		require.Len(t, enabled, 1)
		assert.Equal(t, "studio.core", enabled[0].ID)
		assert.Equal(t, testTime, enabled[0].EnabledAt)
	})

	t.Run("granted permissions reach the host", func(t *testing.T) {
		t.Parallel()
		m := manifest("studio.net", "1.0.0")
		m.Permissions = map[string]string{"network": "fetch presets"}
		granted := capability.NewPermissionSet(capability.PermNetwork)

		gk := new(plugin.MockGatekeeper)
		gk.On("GrantPermissions", mock.MatchedBy(func(r capability.Requirement) bool {
			return r.AddonID == "studio.net" && r.Requested.Has(capability.PermNetwork)
		}), true).Return(granted, nil)
		h := new(plugin.MockHost)
		h.On("Enable", mock.Anything, mock.Anything, granted).Return(nil)

		svc := newTestService(h, plugin.WithGatekeeper(gk), plugin.WithTrustAll(true))
		require.NoError(t, svc.Enable(context.Background(), m, addon("studio.net"), ""))

		gk.AssertExpectations(t)
		h.AssertExpectations(t)
	})

	t.Run("denied permissions stop the enable", func(t *testing.T) {
		t.Parallel()
		m := manifest("studio.net", "1.0.0")
		m.Permissions = map[string]string{"network": "fetch presets"}

		gk := new(plugin.MockGatekeeper)
		gk.On("GrantPermissions", mock.Anything, false).Return(nil, capability.ErrPermissionDenied)
		h := new(plugin.MockHost)

		svc := newTestService(h, plugin.WithGatekeeper(gk))
		err := svc.Enable(context.Background(), m, addon("studio.net"), "")

		require.ErrorIs(t, err, capability.ErrPermissionDenied)
		h.AssertNotCalled(t, "Enable", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, svc.Enabled())
	})

	t.Run("permissions without a gatekeeper are refused", func(t *testing.T) {
		t.Parallel()
		m := manifest("studio.net", "1.0.0")
		m.Permissions = map[string]string{"network": "fetch presets"}

		err := newTestService(new(plugin.MockHost)).Enable(context.Background(), m, addon("studio.net"), "")
		assert.ErrorIs(t, err, capability.ErrPermissionDenied)
	})

	t.Run("invalid manifest", func(t *testing.T) {
		t.Parallel()
		err := newTestService(new(plugin.MockHost)).Enable(context.Background(), manifest("studio.core", "two"), addon("studio.core"), "")
		assert.ErrorIs(t, err, validation.ErrInvalidManifest)
	})

	t.Run("code does not match manifest", func(t *testing.T) {
		t.Parallel()
		err := newTestService(new(plugin.MockHost)).Enable(context.Background(), manifest("studio.core", "1.0.0"), addon("studio.other"), "")
		assert.ErrorContains(t, err, "does not match")
	})

	t.Run("incompatible host", func(t *testing.T) {
		t.Parallel()
		m := manifest("studio.core", "1.0.0")
		m.HostVersionMin = "5.0.0"
		err := newTestService(new(plugin.MockHost)).Enable(context.Background(), m, addon("studio.core"), "")
		assert.ErrorIs(t, err, entities.ErrIncompatibleHost)
	})

	t.Run("missing dependency", func(t *testing.T) {
		t.Parallel()
		err := newTestService(new(plugin.MockHost)).Enable(context.Background(),
			manifest("studio.tools", "1.0.0", "studio.core ^2.0"), addon("studio.tools"), "")
		assert.ErrorIs(t, err, entities.ErrDependencyUnsatisfied)
	})

	t.Run("host failure leaves nothing enabled", func(t *testing.T) {
		t.Parallel()
		h := new(plugin.MockHost)
		h.On("Enable", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))
		svc := newTestService(h)

		require.Error(t, svc.Enable(context.Background(), manifest("studio.core", "1.0.0"), addon("studio.core"), ""))
		_, ok := svc.Manifest("studio.core")
		assert.False(t, ok)
	})
}

func TestAddonService_EnablePersists(t *testing.T) {
	t.Parallel()

	h := new(plugin.MockHost)
	h.On("Enable", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo := new(plugin.MockEnabledSetRepository)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(s *entities.EnabledSet) bool {
		return s.Get("studio.core") != nil && s.Get("studio.core").Source == "addons/core.yaml"
	}), "enabled.yaml").Return(nil)

	svc := newTestService(h, plugin.WithEnabledSet(repo, "enabled.yaml"))
	require.NoError(t, svc.Enable(context.Background(), manifest("studio.core", "2.0.0"), addon("studio.core"), "addons/core.yaml"))

	repo.AssertExpectations(t)
}

func TestAddonService_EnableFile(t *testing.T) {
	t.Parallel()

	h := new(plugin.MockHost)
	h.On("Enable", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	manifests := new(plugin.MockManifestRepository)
	manifests.On("LoadManifest", mock.Anything, "core.yaml").Return(manifest("studio.core", "2.0.0"), nil)

	svc := newTestService(h, plugin.WithManifestRepository(manifests))
	require.NoError(t, svc.EnableFile(context.Background(), "core.yaml", addon("studio.core")))
	assert.Equal(t, "core.yaml", svc.Enabled()[0].Source)

	err := newTestService(h).EnableFile(context.Background(), "core.yaml", addon("studio.core"))
	assert.ErrorContains(t, err, "no manifest repository")
}

func TestAddonService_Disable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := new(plugin.MockHost)
	h.On("Enable", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.On("Disable", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(h)
	require.NoError(t, svc.Enable(ctx, manifest("studio.core", "2.1.0"), addon("studio.core"), ""))
	require.NoError(t, svc.Enable(ctx, manifest("studio.tools", "1.0.0", "studio.core ^2.0"), addon("studio.tools"), ""))

	err := svc.Disable(ctx, "studio.core")
	var dependents *entities.DependentsError
	require.ErrorAs(t, err, &dependents)
	assert.Equal(t, []string{"studio.tools"}, dependents.Dependents)

	require.NoError(t, svc.Disable(ctx, "studio.tools"))
	require.NoError(t, svc.Disable(ctx, "studio.core"))
	assert.Empty(t, svc.Enabled())

	assert.ErrorIs(t, svc.Disable(ctx, "studio.core"), entities.ErrAddonNotFound)
	h.AssertNumberOfCalls(t, "Disable", 2)
}

func TestAddonService_Restore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nothing saved", func(t *testing.T) {
		t.Parallel()
		repo := new(plugin.MockEnabledSetRepository)
		repo.On("Load", mock.Anything, "enabled.yaml").Return(nil, nil)

		svc := newTestService(new(plugin.MockHost), plugin.WithEnabledSet(repo, "enabled.yaml"))
		assert.NoError(t, svc.Restore(ctx, plugin.StaticCatalog{}))
	})

	t.Run("dependencies come back first", func(t *testing.T) {
		t.Parallel()
		saved := entities.NewEnabledSet()
		require.NoError(t, saved.Add(entities.EnabledAddon{ID: "studio.tools", Version: "1.0.0", Source: "tools.yaml"}))
		require.NoError(t, saved.Add(entities.EnabledAddon{ID: "studio.core", Version: "2.1.0", Source: "core.yaml"}))
		require.NoError(t, saved.Add(entities.EnabledAddon{ID: "studio.gone", Version: "1.0.0", Source: "gone.yaml"}))

		repo := new(plugin.MockEnabledSetRepository)
		repo.On("Load", mock.Anything, "enabled.yaml").Return(saved, nil)
		repo.On("Save", mock.Anything, mock.Anything, "enabled.yaml").Return(nil)

		manifests := new(plugin.MockManifestRepository)
		manifests.On("LoadManifest", mock.Anything, "tools.yaml").Return(manifest("studio.tools", "1.0.0", "studio.core ^2.0"), nil)
		manifests.On("LoadManifest", mock.Anything, "core.yaml").Return(manifest("studio.core", "2.1.0"), nil)
		manifests.On("LoadManifest", mock.Anything, "gone.yaml").Return(manifest("studio.gone", "1.0.0"), nil)

		var order []string
		h := new(plugin.MockHost)
		h.On("Enable", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { order = append(order, args.Get(1).(host.Addon).ID()) }).
			Return(nil)

		svc := newTestService(h, plugin.WithEnabledSet(repo, "enabled.yaml"), plugin.WithManifestRepository(manifests))
		err := svc.Restore(ctx, plugin.StaticCatalog{
			"studio.core":  addon("studio.core"),
			"studio.tools": addon("studio.tools"),
		})

		require.ErrorIs(t, err, entities.ErrAddonNotFound)
		assert.Equal(t, []string{"studio.core", "studio.tools"}, order)
		assert.Len(t, svc.Enabled(), 2)
	})

	t.Run("load failure", func(t *testing.T) {
		t.Parallel()
		repo := new(plugin.MockEnabledSetRepository)
		repo.On("Load", mock.Anything, "enabled.yaml").Return(nil, errors.New("corrupt"))

		svc := newTestService(new(plugin.MockHost), plugin.WithEnabledSet(repo, "enabled.yaml"))
		assert.ErrorContains(t, svc.Restore(ctx, plugin.StaticCatalog{}), "corrupt")
	})
}

