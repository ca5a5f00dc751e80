// Package plugin orchestrates the add-on lifecycle: validation, permission
// grants, dependency and host checks, registration into the host session and
// persistence of the enabled set.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reglet-dev/reglet-addon-host/capability"
	"github.com/reglet-dev/reglet-addon-host/host"
	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
	"github.com/reglet-dev/reglet-addon-host/plugin/ports"
	"github.com/reglet-dev/reglet-addon-host/plugin/resolvers"
	"github.com/reglet-dev/reglet-addon-host/validation"
)

// Host is the registration surface the service drives. *host.Session
// implements it.
type Host interface {
	Enable(ctx context.Context, a host.Addon, perms capability.PermissionSet) error
	Disable(ctx context.Context, id string) error
}

// Catalog finds the code of an add-on by id when restoring.
type Catalog interface {
	Lookup(id string) (host.Addon, bool)
}

// StaticCatalog is a Catalog backed by a map.
type StaticCatalog map[string]host.Addon

// Lookup implements Catalog.
func (c StaticCatalog) Lookup(id string) (host.Addon, bool) {
	a, ok := c[id]
	return a, ok
}

// AddonService orchestrates add-on lifecycle use cases.
// Must be used from the host loop, like the Host it drives.
type AddonService struct {
	host        Host
	gatekeeper  capability.GatekeeperPort
	enabledRepo ports.EnabledSetRepository
	manifests   ports.ManifestRepository
	deps        *resolvers.DependencyResolver
	logger      *slog.Logger
	now         func() time.Time

	active map[string]*entities.Manifest
	set    *entities.EnabledSet

	hostVersion string
	enabledPath string
	trustAll    bool
}

// AddonServiceOption configures an AddonService.
type AddonServiceOption func(*AddonService)

// NewAddonService creates a service for a host reporting hostVersion.
func NewAddonService(h Host, hostVersion string, opts ...AddonServiceOption) *AddonService {
	s := &AddonService{
		host:        h,
		hostVersion: hostVersion,
		deps:        resolvers.NewDependencyResolver(),
		logger:      slog.Default(),
		now:         time.Now,
		active:      make(map[string]*entities.Manifest),
		set:         entities.NewEnabledSet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithGatekeeper sets who approves requested permissions. Without one,
// add-ons that request permissions are refused.
func WithGatekeeper(g capability.GatekeeperPort) AddonServiceOption {
	return func(s *AddonService) { s.gatekeeper = g }
}

// WithEnabledSet persists the enabled add-ons at path.
func WithEnabledSet(repo ports.EnabledSetRepository, path string) AddonServiceOption {
	return func(s *AddonService) {
		s.enabledRepo = repo
		s.enabledPath = path
	}
}

// WithManifestRepository sets where manifests are loaded from.
func WithManifestRepository(r ports.ManifestRepository) AddonServiceOption {
	return func(s *AddonService) { s.manifests = r }
}

// WithTrustAll grants every requested permission without asking.
func WithTrustAll(trust bool) AddonServiceOption {
	return func(s *AddonService) { s.trustAll = trust }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) AddonServiceOption {
	return func(s *AddonService) { s.logger = l }
}

// WithClock overrides the enable timestamp source.
func WithClock(now func() time.Time) AddonServiceOption {
	return func(s *AddonService) { s.now = now }
}

// Enable is the main use case: it validates m, checks host compatibility
// and dependencies, obtains permission grants, registers the add-on into the
// host and records it in the enabled set. source is remembered for Restore.
func (s *AddonService) Enable(ctx context.Context, m *entities.Manifest, addon host.Addon, source string) error {
	if err := validation.Err(validation.Validate(m)); err != nil {
		return err
	}
	if addon.ID() != m.ID {
		return fmt.Errorf("add-on code %q does not match manifest %q", addon.ID(), m.ID)
	}
	if err := s.deps.CheckHost(m, s.hostVersion); err != nil {
		return err
	}
	if err := s.deps.Check(m, s.enabledVersions()); err != nil {
		return fmt.Errorf("enable %s: %w", m.ID, err)
	}

	perms, err := s.grant(m)
	if err != nil {
		return fmt.Errorf("enable %s: %w", m.ID, err)
	}

	if err := s.host.Enable(ctx, addon, perms); err != nil {
		return err
	}
	s.active[m.ID] = m
	s.logger.Info("add-on enabled", "addon", m.ID, "version", m.Version, "permissions", perms.Sorted())

	if err := s.set.Add(entities.EnabledAddon{
		ID:        m.ID,
		Version:   m.Version,
		Source:    source,
		EnabledAt: s.now().UTC(),
	}); err != nil {
		return err
	}
	return s.persist(ctx)
}

// EnableFile loads the manifest at path and enables addon with it.
func (s *AddonService) EnableFile(ctx context.Context, path string, addon host.Addon) error {
	if s.manifests == nil {
		return errors.New("no manifest repository configured")
	}
	m, err := s.manifests.LoadManifest(ctx, path)
	if err != nil {
		return err
	}
	return s.Enable(ctx, m, addon, path)
}

func (s *AddonService) grant(m *entities.Manifest) (capability.PermissionSet, error) {
	req, err := capability.Extract(m.ID, m.Permissions)
	if err != nil {
		return nil, err
	}
	if req.Requested.IsEmpty() {
		return capability.NewPermissionSet(), nil
	}
	if s.gatekeeper == nil {
		return nil, fmt.Errorf("%w: no gatekeeper configured", capability.ErrPermissionDenied)
	}
	return s.gatekeeper.GrantPermissions(req, s.trustAll)
}

// Disable unregisters an add-on and drops it from the enabled set. It fails
// while other enabled add-ons depend on it.
func (s *AddonService) Disable(ctx context.Context, id string) error {
	if _, ok := s.active[id]; !ok {
		return &entities.AddonNotFoundError{ID: id}
	}
	if dependents := resolvers.Dependents(id, s.others(id)); len(dependents) > 0 {
		return &entities.DependentsError{AddonID: id, Dependents: dependents}
	}

	hostErr := s.host.Disable(ctx, id)
	delete(s.active, id)
	s.set.Remove(id)
	s.logger.Info("add-on disabled", "addon", id)

	return errors.Join(hostErr, s.persist(ctx))
}

// Restore re-enables the persisted add-ons, dependencies first. Add-ons that
// fail to come back are reported together and stay in the enabled set.
func (s *AddonService) Restore(ctx context.Context, catalog Catalog) error {
	if s.enabledRepo == nil {
		return nil
	}
	loaded, err := s.enabledRepo.Load(ctx, s.enabledPath)
	if err != nil {
		return fmt.Errorf("loading enabled set: %w", err)
	}
	if loaded == nil {
		return nil
	}

	var errs []error
	var manifests []*entities.Manifest
	sources := make(map[string]string, loaded.Count())
	for _, entry := range loaded.Addons {
		if s.manifests == nil || entry.Source == "" {
			errs = append(errs, fmt.Errorf("restore %s: manifest source unknown", entry.ID))
			continue
		}
		m, err := s.manifests.LoadManifest(ctx, entry.Source)
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", entry.ID, err))
			continue
		}
		manifests = append(manifests, m)
		sources[m.ID] = entry.Source
	}

	ordered, err := resolvers.Order(manifests)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}

	s.set = loaded
	for _, m := range ordered {
		addon, ok := catalog.Lookup(m.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("restore %s: %w", m.ID, &entities.AddonNotFoundError{ID: m.ID}))
			continue
		}
		if err := s.Enable(ctx, m, addon, sources[m.ID]); err != nil {
			s.logger.Warn("add-on not restored", "addon", m.ID, "error", err)
			errs = append(errs, fmt.Errorf("restore %s: %w", m.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Manifest returns the manifest of an enabled add-on.
func (s *AddonService) Manifest(id string) (*entities.Manifest, bool) {
	m, ok := s.active[id]
	return m, ok
}

// Enabled returns the enabled set in enable order.
func (s *AddonService) Enabled() []entities.EnabledAddon {
	var out []entities.EnabledAddon
	for _, a := range s.set.Addons {
		if _, ok := s.active[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

func (s *AddonService) enabledVersions() map[string]string {
	out := make(map[string]string, len(s.active))
	for id, m := range s.active {
		out[id] = m.Version
	}
	return out
}

func (s *AddonService) others(id string) []*entities.Manifest {
	out := make([]*entities.Manifest, 0, len(s.active))
	for other, m := range s.active {
		if other != id {
			out = append(out, m)
		}
	}
	return out
}

func (s *AddonService) persist(ctx context.Context) error {
	if s.enabledRepo == nil {
		return nil
	}
	s.set.Generated = s.now().UTC()
	if err := s.enabledRepo.Save(ctx, s.set, s.enabledPath); err != nil {
		return fmt.Errorf("saving enabled set: %w", err)
	}
	return nil
}
