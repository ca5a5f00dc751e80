package cli

import (
	"os"

	"github.com/reglet-dev/reglet-addon-host/parser"
	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
	"github.com/reglet-dev/reglet-addon-host/validation"
)

// loadManifest reads and checks the manifest at path. Problems with the
// manifest itself come back as the second result; the error is reserved for
// files that cannot be read or decoded.
func loadManifest(path string) (*entities.Manifest, []validation.ValidationError, error) {
	format, err := parser.FormatForPath(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, path, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "reading manifest", err)
	}
	m, problems, err := validation.ValidateDocument(raw, format)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, path, err)
	}
	return m, problems, nil
}
