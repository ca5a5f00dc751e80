// Package ports declares the persistence boundaries of the add-on lifecycle.
package ports

import (
	"context"

	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
)

// VersionResolver converts version constraints to exact versions.
type VersionResolver interface {
	Resolve(constraint string, available []string) (string, error)
}

// EnabledSetRepository manages persistence of the enabled add-on list.
type EnabledSetRepository interface {
	// Load returns nil, nil when nothing has been saved yet.
	Load(ctx context.Context, path string) (*entities.EnabledSet, error)
	Save(ctx context.Context, set *entities.EnabledSet, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}

// ManifestRepository loads manifests from their source location.
type ManifestRepository interface {
	LoadManifest(ctx context.Context, source string) (*entities.Manifest, error)
}
