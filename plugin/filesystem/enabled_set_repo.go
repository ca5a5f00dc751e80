// Package filesystem provides file-based repositories for the add-on lifecycle.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/reglet-dev/reglet-addon-host/parser"
	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
)

// FileEnabledSetRepository implements ports.EnabledSetRepository using the
// local filesystem.
type FileEnabledSetRepository struct{}

// NewFileEnabledSetRepository creates a new FileEnabledSetRepository.
func NewFileEnabledSetRepository() *FileEnabledSetRepository {
	return &FileEnabledSetRepository{}
}

// Load reads an enabled set from the given path.
func (r *FileEnabledSetRepository) Load(ctx context.Context, path string) (*entities.EnabledSet, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	// Security: os.OpenRoot keeps the read inside dir.
	root, err := os.OpenRoot(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open directory %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	file, err := root.Open(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open enabled set %q: %w", base, err)
	}
	defer func() { _ = file.Close() }()

	var out EnabledSet
	decoder := yaml.NewDecoder(file)
	if err := decoder.DecodeContext(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding enabled set YAML: %w", err)
	}

	set := out.ToEntity()
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enabled set: %w", err)
	}

	return set, nil
}

// Save writes an enabled set to the given path.
func (r *FileEnabledSetRepository) Save(ctx context.Context, set *entities.EnabledSet, path string) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("invalid enabled set: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("opening directory for write %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	base := filepath.Base(path)

	file, err := root.OpenFile(base, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating enabled set %q: %w", base, err)
	}
	defer func() { _ = file.Close() }()

	encoder := yaml.NewEncoder(file)
	defer func() { _ = encoder.Close() }()

	if err := encoder.EncodeContext(ctx, FromEntity(set)); err != nil {
		return fmt.Errorf("encoding enabled set: %w", err)
	}

	return nil
}

// Exists checks if an enabled set exists at the given path.
func (r *FileEnabledSetRepository) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// FileManifestRepository implements ports.ManifestRepository for manifest
// files on disk. The format follows the file extension.
type FileManifestRepository struct{}

// NewFileManifestRepository creates a new FileManifestRepository.
func NewFileManifestRepository() *FileManifestRepository {
	return &FileManifestRepository{}
}

// LoadManifest reads and decodes the manifest at source.
func (r *FileManifestRepository) LoadManifest(_ context.Context, source string) (*entities.Manifest, error) {
	p, err := parser.ForPath(source)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decoding manifest %q: %w", source, err)
	}
	return m, nil
}
