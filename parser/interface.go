// Package parser decodes add-on manifests from YAML or JSON documents.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
)

// Format names a manifest document encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ManifestParser parses raw manifest bytes into a Manifest.
type ManifestParser interface {
	// Parse unmarshals manifest bytes into a Manifest struct.
	Parse(data []byte) (*entities.Manifest, error)
	// Document decodes the bytes into generic JSON-compatible values
	// (maps, slices, strings, float64, bool, nil) for schema checks.
	Document(data []byte) (any, error)
}

// ForFormat returns the parser for format.
func ForFormat(format Format) (ManifestParser, error) {
	switch format {
	case FormatYAML:
		return NewYamlManifestParser(), nil
	case FormatJSON:
		return NewJSONManifestParser(), nil
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("cannot infer manifest format from %q", path)
	}
}

// ForPath returns the parser matching the file extension of path.
func ForPath(path string) (ManifestParser, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	return ForFormat(format)
}
