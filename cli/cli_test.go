package cli_test

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-addon-host/cli"
	"github.com/reglet-dev/reglet-addon-host/config"
	"github.com/reglet-dev/reglet-addon-host/validation"
)

var testConfig = config.Config{
	GrantsPath:  filepath.Join("testdata", "grants.yaml"),
	EnabledPath: filepath.Join("testdata", "enabled.yaml"),
}

func execute(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	return executeWith(t, testConfig, args...)
}

func executeWith(t *testing.T, cfg config.Config, args ...string) ([]byte, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := cli.NewRootCommand(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.Bytes(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRootCommand(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCommand(config.Config{}, nil)
	assert.Equal(t, "addonctl", cmd.Use)

	for _, name := range []string{"validate", "risk", "schema", "grants", "enabled"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestValidate_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
		format   string
		wantCode int
	}{
		{"validate_valid_text", "valid.yaml", "text", cli.ExitSuccess},
		{"validate_valid_json", "valid.yaml", "json", cli.ExitSuccess},
		{"validate_invalid_text", "invalid.yaml", "text", cli.ExitFailure},
		{"validate_invalid_json", "invalid.yaml", "json", cli.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := execute(t, "validate", "--format", tt.format, filepath.Join("testdata", tt.manifest))
			assert.Equal(t, tt.wantCode, cli.GetExitCode(err))
			newGoldie(t).Assert(t, tt.name, out)
		})
	}
}

func TestValidate_SchemaProblems(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "validate", filepath.Join("testdata", "unstructured.yaml"))
	assert.Equal(t, cli.ExitFailure, cli.GetExitCode(err))
	assert.Contains(t, string(out), "testdata/unstructured.yaml")
	assert.Contains(t, string(out), "problem(s)")
}

func TestValidate_CommandErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing file", []string{"validate", filepath.Join("testdata", "absent.yaml")}, cli.ExitCommandError},
		{"unknown extension", []string{"validate", filepath.Join("testdata", "golden", "risk_text.golden")}, cli.ExitCommandError},
		{"bad format flag", []string{"validate", "--format", "xml", filepath.Join("testdata", "valid.yaml")}, cli.ExitFailure},
		{"no argument", []string{"validate"}, cli.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, cli.GetExitCode(err))
		})
	}
}

func TestRisk_Golden(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"text", "json"} {
		t.Run(format, func(t *testing.T) {
			t.Parallel()
			out, err := execute(t, "risk", "--format", format, filepath.Join("testdata", "risky.json"))
			require.NoError(t, err)
			newGoldie(t).Assert(t, "risk_"+format, out)
		})
	}
}

func TestRisk_InvalidManifest(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "risk", filepath.Join("testdata", "invalid.yaml"))
	assert.ErrorIs(t, err, validation.ErrInvalidManifest)
	assert.Equal(t, cli.ExitFailure, cli.GetExitCode(err))
}

func TestSchema(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Equal(t, validation.ManifestSchema(), out)
}

func TestState_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"grants_text", []string{"grants"}},
		{"enabled_text", []string{"enabled"}},
		{"enabled_json", []string{"enabled", "--format", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			newGoldie(t).Assert(t, tt.name, out)
		})
	}
}

func TestState_NothingStored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.Config{
		GrantsPath:  filepath.Join(dir, "grants.yaml"),
		EnabledPath: filepath.Join(dir, "enabled.yaml"),
	}

	out, err := executeWith(t, cfg, "grants")
	require.NoError(t, err)
	assert.Equal(t, "no stored grants\n", string(out))

	out, err = executeWith(t, cfg, "enabled")
	require.NoError(t, err)
	assert.Equal(t, "no enabled add-ons\n", string(out))

	out, err = executeWith(t, cfg, "enabled", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": [], "status": "ok"}`, string(out))
}

func TestState_Corrupt(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		GrantsPath:  filepath.Join("testdata", "risky.json"),
		EnabledPath: filepath.Join("testdata", "enabled_corrupt.yaml"),
	}

	_, err := executeWith(t, cfg, "enabled")
	assert.Equal(t, cli.ExitCommandError, cli.GetExitCode(err))
}
