package plugin

import (
	"context"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/host"
	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
	"github.com/stretchr/testify/mock"
)

// MockHost is a testify mock of Host.
type MockHost struct {
	mock.Mock
}

func (m *MockHost) Enable(ctx context.Context, a host.Addon, perms capability.PermissionSet) error {
	args := m.Called(ctx, a, perms)
	return args.Error(0)
}

func (m *MockHost) Disable(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockGatekeeper is a testify mock of capability.GatekeeperPort.
type MockGatekeeper struct {
	mock.Mock
}

func (m *MockGatekeeper) GrantPermissions(req capability.Requirement, trustAll bool) (capability.PermissionSet, error) {
	args := m.Called(req, trustAll)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(capability.PermissionSet), args.Error(1)
}

// MockEnabledSetRepository is a testify mock of ports.EnabledSetRepository.
type MockEnabledSetRepository struct {
	mock.Mock
}

func (m *MockEnabledSetRepository) Load(ctx context.Context, path string) (*entities.EnabledSet, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EnabledSet), args.Error(1)
}

func (m *MockEnabledSetRepository) Save(ctx context.Context, set *entities.EnabledSet, path string) error {
	args := m.Called(ctx, set, path)
	return args.Error(0)
}

func (m *MockEnabledSetRepository) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

// MockManifestRepository is a testify mock of ports.ManifestRepository.
type MockManifestRepository struct {
	mock.Mock
}

func (m *MockManifestRepository) LoadManifest(ctx context.Context, source string) (*entities.Manifest, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Manifest), args.Error(1)
}
