package values

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewAddonID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"flat", "numpy", "numpy", false},
		{"namespaced", "studio.node_tools", "studio.node_tools", false},
		{"hyphen", "io-import-fbx", "io-import-fbx", false},
		{"trims whitespace", "  studio  ", "studio", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"leading digit", "3d_tools", "", true},
		{"double dot", "studio..tools", "", true},
		{"trailing dot", "studio.", "", true},
		{"path separator", "studio/tools", "", true},
		{"invalid char @", "tools@1.0", "", true},
		{"too long", strings.Repeat("a", 65), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewAddonID(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, id.String())
			}
		})
	}
}

func Test_MustNewAddonID_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNewAddonID("")
	})
}

func Test_AddonID_Accessors(t *testing.T) {
	id := MustNewAddonID("studio.node_tools")
	assert.Equal(t, "studio", id.Namespace())
	assert.Equal(t, "", MustNewAddonID("numpy").Namespace())
	assert.True(t, AddonID{}.IsEmpty())
	assert.True(t, id.Equals(MustNewAddonID("studio.node_tools")))
}

func Test_AddonID_JSON(t *testing.T) {
	data, err := json.Marshal(MustNewAddonID("studio.tools"))
	require.NoError(t, err)
	assert.Equal(t, `"studio.tools"`, string(data))

	var id AddonID
	require.NoError(t, json.Unmarshal(data, &id))
	assert.Equal(t, "studio.tools", id.String())

	assert.Error(t, json.Unmarshal([]byte(`"../etc"`), &id))
	assert.Error(t, json.Unmarshal([]byte(`42`), &id))
}
