package validation_test

import (
	"errors"
	"testing"

	"github.com/reglet-dev/reglet-addon-host/parser"
	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
	"github.com/reglet-dev/reglet-addon-host/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validManifest() *entities.Manifest {
	return &entities.Manifest{
		ID:             "studio.tools",
		Version:        "1.2.0",
		HostVersionMin: "4.2.0",
		HostVersionMax: "5.0.0",
		Dependencies:   []entities.Dependency{entities.ParseDependency("numpy >= 1.20")},
		Permissions:    map[string]string{"network": "fetch presets"},
	}
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	assert.Empty(t, validation.Validate(validManifest()))

	minimal := &entities.Manifest{ID: "x", Version: "1.0.0", HostVersionMin: "4.2.0"}
	assert.Empty(t, validation.Validate(minimal))
}

func TestValidate_MalformedDependencyIsTheOnlyError(t *testing.T) {
	t.Parallel()

	m := &entities.Manifest{
		ID:             "x",
		Version:        "1.0.0",
		HostVersionMin: "4.2.0",
		Dependencies:   []entities.Dependency{entities.ParseDependency("numpy >= abc")},
	}

	errs := validation.Validate(m)
	require.Len(t, errs, 1)
	assert.Equal(t, "dependencies[0].version", errs[0].Field)
	assert.Contains(t, errs[0].Message, "numpy")
}

func TestValidate_CollectsEveryError(t *testing.T) {
	t.Parallel()

	m := &entities.Manifest{
		ID:             "1bad",
		Version:        "one",
		HostVersionMin: "",
		HostVersionMax: "nope",
		Dependencies: []entities.Dependency{
			{Name: "", Constraint: "*"},
			{Name: "numpy", Constraint: ">= abc"},
		},
		Permissions: map[string]string{
			"network":  "",
			"teleport": "because",
		},
	}

	errs := validation.Validate(m)
	assert.ElementsMatch(t, []string{
		"id",
		"version",
		"host_version_min",
		"host_version_max",
		"dependencies[0].name",
		"dependencies[1].version",
		"permissions.network",
		"permissions.teleport",
	}, validation.Errors(errs).Fields())
}

func TestValidate_Cases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*entities.Manifest)
		field  string
	}{
		{"empty id", func(m *entities.Manifest) { m.ID = " " }, "id"},
		{"missing version", func(m *entities.Manifest) { m.Version = "" }, "version"},
		{"inverted host range", func(m *entities.Manifest) { m.HostVersionMax = "4.0.0" }, "host_version_max"},
		{"self dependency", func(m *entities.Manifest) {
			m.Dependencies = append(m.Dependencies, entities.Dependency{Name: "studio.tools", Constraint: "*"})
		}, "dependencies[1].name"},
		{"duplicate dependency", func(m *entities.Manifest) {
			m.Dependencies = append(m.Dependencies, entities.ParseDependency("numpy"))
		}, "dependencies[1].name"},
		{"unknown permission", func(m *entities.Manifest) { m.Permissions["gpu"] = "render" }, "permissions.gpu"},
		{"empty justification", func(m *entities.Manifest) { m.Permissions["clipboard"] = "  " }, "permissions.clipboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := validManifest()
			tt.mutate(m)
			errs := validation.Validate(m)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_OpenEndedHostRange(t *testing.T) {
	t.Parallel()

	m := validManifest()
	m.HostVersionMax = ""
	assert.Empty(t, validation.Validate(m))

	m.HostVersionMax = m.HostVersionMin
	assert.Empty(t, validation.Validate(m))
}

func TestErrors(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validation.Err(nil))

	err := validation.Err([]validation.ValidationError{{Field: "id", Message: "is required"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, validation.ErrInvalidManifest))
	assert.Equal(t, "invalid manifest: id: is required", err.Error())

	var list validation.Errors
	require.ErrorAs(t, err, &list)
	assert.Len(t, list, 1)
}

func TestValidateDocument(t *testing.T) {
	t.Parallel()

	t.Run("valid yaml", func(t *testing.T) {
		t.Parallel()

		doc := "id: studio.tools\nversion: 1.2.0\nhost_version_min: 4.2.0\ndependencies:\n  - numpy >= 1.20\n"
		m, errs, err := validation.ValidateDocument([]byte(doc), parser.FormatYAML)
		require.NoError(t, err)
		assert.Empty(t, errs)
		require.NotNil(t, m)
		assert.Equal(t, "studio.tools", m.ID)
	})

	t.Run("semantic errors after schema passes", func(t *testing.T) {
		t.Parallel()

		doc := `{"id": "x", "version": "1.0.0", "host_version_min": "4.2.0", "dependencies": ["numpy >= abc"]}`
		m, errs, err := validation.ValidateDocument([]byte(doc), parser.FormatJSON)
		require.NoError(t, err)
		require.NotNil(t, m)
		require.Len(t, errs, 1)
		assert.Equal(t, "dependencies[0].version", errs[0].Field)
	})

	t.Run("structural errors", func(t *testing.T) {
		t.Parallel()

		doc := "id: studio.tools\nversion: 1.2.0\ncolour: red\ndependencies:\n  - name: numpy\n    extra: true\n"
		m, errs, err := validation.ValidateDocument([]byte(doc), parser.FormatYAML)
		require.NoError(t, err)
		assert.Nil(t, m)
		require.NotEmpty(t, errs)

		var messages []string
		for _, e := range errs {
			messages = append(messages, e.Error())
		}
		assert.Contains(t, validation.Errors(errs).Error(), "colour")
		assert.Contains(t, validation.Errors(errs).Error(), "host_version_min")
		assert.Contains(t, validation.Errors(errs).Fields(), "dependencies[0]", messages)
	})

	t.Run("structural and semantic errors together", func(t *testing.T) {
		t.Parallel()

		doc := "id: studio.tools\nversion: abc\nhost_version_min: 4.2.0\nhomepage: https://example.com\ndependencies:\n  - numpy >= abc\n"
		m, errs, err := validation.ValidateDocument([]byte(doc), parser.FormatYAML)
		require.NoError(t, err)
		assert.Nil(t, m)

		assert.Contains(t, validation.Errors(errs).Error(), "homepage")
		assert.Subset(t, validation.Errors(errs).Fields(), []string{"version", "dependencies[0].version"})
		assert.Len(t, errs, 3)
	})

	t.Run("missing fields reported once", func(t *testing.T) {
		t.Parallel()

		doc := `{"id": "x", "version": "1.0.0"}`
		_, errs, err := validation.ValidateDocument([]byte(doc), parser.FormatJSON)
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Message, "host_version_min")
	})

	t.Run("undecodable", func(t *testing.T) {
		t.Parallel()

		_, _, err := validation.ValidateDocument([]byte("{"), parser.FormatJSON)
		assert.Error(t, err)
		_, _, err = validation.ValidateDocument([]byte("id: x"), "toml")
		assert.Error(t, err)
	})
}

func TestManifestSchema(t *testing.T) {
	t.Parallel()

	assert.Contains(t, string(validation.ManifestSchema()), `"host_version_min"`)
}
