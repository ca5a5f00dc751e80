// Package grantstore keeps the permission grants of add-ons in a YAML file.
package grantstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/reglet-dev/reglet-addon-host/capability"
	"gopkg.in/yaml.v3"
)

// FileStore reads and writes capability.Grants as YAML, one rule per add-on
// id pattern. All file access goes through an os.Root on the file's
// directory.
type FileStore struct {
	path     string
	dirPerm  fs.FileMode
	filePerm fs.FileMode
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithPath sets the grants file. An empty path keeps the default.
func WithPath(path string) FileStoreOption {
	return func(s *FileStore) {
		if path != "" {
			s.path = path
		}
	}
}

// WithFilePermissions sets the mode of a newly written grants file.
func WithFilePermissions(perm fs.FileMode) FileStoreOption {
	return func(s *FileStore) { s.filePerm = perm }
}

// WithDirPermissions sets the mode of directories created on save.
func WithDirPermissions(perm fs.FileMode) FileStoreOption {
	return func(s *FileStore) { s.dirPerm = perm }
}

// NewFileStore creates a store for ~/.addon-host/grants.yaml unless
// WithPath says otherwise.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		path:     filepath.Join(os.Getenv("HOME"), ".addon-host", "grants.yaml"),
		dirPerm:  0o755,
		filePerm: 0o600,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stored grants. A missing file or directory yields an
// empty set; rules with bad patterns or unknown permissions are an error.
func (s *FileStore) Load() (*capability.Grants, error) {
	dir, base := filepath.Split(s.path)
	root, err := os.OpenRoot(filepath.Clean(dir))
	if errors.Is(err, fs.ErrNotExist) {
		return &capability.Grants{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open grants directory: %w", err)
	}
	defer func() { _ = root.Close() }()

	data, err := root.ReadFile(base)
	if errors.Is(err, fs.ErrNotExist) {
		return &capability.Grants{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read grants %s: %w", s.path, err)
	}

	grants := &capability.Grants{}
	if err := yaml.Unmarshal(data, grants); err != nil {
		return nil, fmt.Errorf("decode grants %s: %w", s.path, err)
	}
	if err := check(grants); err != nil {
		return nil, fmt.Errorf("invalid grants %s: %w", s.path, err)
	}
	return grants, nil
}

// Save merges rules for the same pattern and replaces the file. The new
// content is written next to it first, so readers never see a partial file.
func (s *FileStore) Save(grants *capability.Grants) error {
	merged := grants.Clone()
	merged.Deduplicate()
	data, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode grants: %w", err)
	}

	dir, base := filepath.Split(s.path)
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return fmt.Errorf("create grants directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("open grants directory: %w", err)
	}
	defer func() { _ = root.Close() }()

	tmp := base + ".tmp"
	if err := root.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale %s: %w", tmp, err)
	}
	if err := root.WriteFile(tmp, data, s.filePerm); err != nil {
		return fmt.Errorf("write grants: %w", err)
	}
	if err := root.Rename(tmp, base); err != nil {
		_ = root.Remove(tmp)
		return fmt.Errorf("replace grants %s: %w", s.path, err)
	}
	return nil
}

// ConfigPath returns the grants file path.
func (s *FileStore) ConfigPath() string { return s.path }

// check reports every bad rule at once.
func check(grants *capability.Grants) error {
	var errs []error
	for i, r := range grants.Rules {
		if !doublestar.ValidatePattern(r.Addon) {
			errs = append(errs, fmt.Errorf("rule %d: bad add-on pattern %q", i, r.Addon))
		}
		for _, p := range r.Permissions {
			if _, err := capability.ParsePermission(string(p)); err != nil {
				errs = append(errs, fmt.Errorf("rule %d: %w", i, err))
			}
		}
	}
	return errors.Join(errs...)
}
