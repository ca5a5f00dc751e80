package schema_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/reglet-dev/reglet-addon-host/hostctx"
	"github.com/reglet-dev/reglet-addon-host/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolSettings(t *testing.T) *schema.Definition {
	t.Helper()

	def := schema.NewDefinition("tool_settings")
	require.NoError(t, def.Declare(schema.Descriptor{Name: "count", Type: schema.Int, Default: 10, Range: &schema.Range{Min: 1, Max: 100}}))
	require.NoError(t, def.Declare(schema.Descriptor{Name: "strength", Type: schema.Float, Default: 0.5, Range: &schema.Range{Min: 0, Max: 1}}))
	require.NoError(t, def.Declare(schema.Descriptor{Name: "mode", Type: schema.Enum, Items: []string{"A", "B"}}))
	require.NoError(t, def.Declare(schema.Descriptor{Name: "label", Type: schema.String, Default: "untitled"}))
	require.NoError(t, def.Declare(schema.Descriptor{Name: "enabled", Type: schema.Bool}))
	require.NoError(t, def.Declare(schema.Descriptor{Name: "offset", Type: schema.Vector, Size: 3, Range: &schema.Range{Min: -1, Max: 1}}))
	return def
}

func TestDefinition_Declare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		desc    schema.Descriptor
		wantErr error
	}{
		{"duplicate", schema.Descriptor{Name: "count", Type: schema.Int}, schema.ErrDuplicateProperty},
		{"empty name", schema.Descriptor{Type: schema.Int}, schema.ErrInvalidDescriptor},
		{"min above max", schema.Descriptor{Name: "x", Type: schema.Float, Range: &schema.Range{Min: 2, Max: 1}}, schema.ErrInvalidDescriptor},
		{"enum without items", schema.Descriptor{Name: "x", Type: schema.Enum}, schema.ErrInvalidDescriptor},
		{"enum default outside items", schema.Descriptor{Name: "x", Type: schema.Enum, Items: []string{"A"}, Default: "Z"}, schema.ErrInvalidDescriptor},
		{"zero size vector", schema.Descriptor{Name: "x", Type: schema.Vector}, schema.ErrInvalidDescriptor},
		{"unknown type", schema.Descriptor{Name: "x"}, schema.ErrInvalidDescriptor},
		{"valid", schema.Descriptor{Name: "x", Type: schema.String}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			def := schema.NewDefinition("s")
			require.NoError(t, def.Declare(schema.Descriptor{Name: "count", Type: schema.Int}))

			err := def.Declare(tt.desc)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefinition_DefaultIsClamped(t *testing.T) {
	t.Parallel()

	def := schema.NewDefinition("s")
	require.NoError(t, def.Declare(schema.Descriptor{Name: "n", Type: schema.Int, Default: 500, Range: &schema.Range{Min: 0, Max: 10}}))

	d, ok := def.Descriptor("n")
	require.True(t, ok)
	assert.Equal(t, int64(10), d.Default)
}

func TestBind_AppliesDefaults(t *testing.T) {
	t.Parallel()

	inst, err := schema.Bind(toolSettings(t), hostctx.New("scene"))
	require.NoError(t, err)

	assert.Equal(t, int64(10), inst.Int("count"))
	assert.Equal(t, 0.5, inst.Float("strength"))
	assert.Equal(t, "A", inst.String("mode"))
	assert.Equal(t, "untitled", inst.String("label"))
	assert.False(t, inst.Bool("enabled"))
	assert.Equal(t, []float64{0, 0, 0}, inst.Vector("offset"))
}

func TestBind_OncePerContext(t *testing.T) {
	t.Parallel()

	def := toolSettings(t)
	ctx := hostctx.New("scene")

	first, err := schema.Bind(def, ctx)
	require.NoError(t, err)

	_, err = schema.Bind(def, ctx)
	assert.ErrorIs(t, err, schema.ErrAlreadyBound)

	found, ok := schema.Lookup(def, ctx)
	require.True(t, ok)
	assert.Same(t, first, found)

	other, err := schema.Bind(def, hostctx.New("other"))
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestInstance_Set(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		property string
		value    any
		want     any
		wantErr  bool
	}{
		{"int in range", "count", 42, int64(42), false},
		{"int clamped high", "count", 150, int64(100), false},
		{"int clamped low", "count", -5, int64(1), false},
		{"int from integral float", "count", 7.0, int64(7), false},
		{"int rejects fraction", "count", 7.5, nil, true},
		{"int rejects string", "count", "7", nil, true},
		{"float clamped", "strength", 3.0, 1.0, false},
		{"float from int", "strength", 0, 0.0, false},
		{"enum member", "mode", "B", "B", false},
		{"enum outside set", "mode", "Z", nil, true},
		{"string", "label", "brush", "brush", false},
		{"string rejects int", "label", 3, nil, true},
		{"bool", "enabled", true, true, false},
		{"vector clamped", "offset", []float64{2, -2, 0.5}, []float64{1, -1, 0.5}, false},
		{"vector from ints", "offset", []int{0, 1, 0}, []float64{0, 1, 0}, false},
		{"vector wrong size", "offset", []float64{1}, nil, true},
		{"unknown property", "missing", 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst, err := schema.Bind(toolSettings(t), hostctx.New("scene"))
			require.NoError(t, err)
			before, _ := inst.Get(tt.property)

			err = inst.Set(tt.property, tt.value)
			got, _ := inst.Get(tt.property)

			if tt.wantErr {
				var cerr *schema.ConstraintError
				require.True(t, errors.As(err, &cerr))
				assert.ErrorIs(t, err, schema.ErrConstraint)
				assert.Equal(t, tt.property, cerr.Property)
				assert.Equal(t, before, got, "value must be unchanged after a rejected write")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstance_SetIntKeepsPrecision(t *testing.T) {
	t.Parallel()

	def := schema.NewDefinition("counters")
	require.NoError(t, def.Declare(schema.Descriptor{Name: "seed", Type: schema.Int}))
	require.NoError(t, def.Declare(schema.Descriptor{Name: "count", Type: schema.Int, Default: 10, Range: &schema.Range{Min: 1, Max: 100}}))
	require.NoError(t, def.Declare(schema.Descriptor{Name: "half", Type: schema.Int, Default: 2, Range: &schema.Range{Min: 0.5, Max: 3.5}}))

	tests := []struct {
		name     string
		property string
		value    any
		want     any
		wantErr  bool
	}{
		{"max int64", "seed", int64(math.MaxInt64), int64(math.MaxInt64), false},
		{"min int64", "seed", int64(math.MinInt64), int64(math.MinInt64), false},
		{"past 2^53", "seed", int64(1<<53 + 1), int64(1<<53 + 1), false},
		{"uint64 within int64", "seed", uint64(1<<62 + 3), int64(1<<62 + 3), false},
		{"uint64 past int64", "seed", uint64(math.MaxUint64), nil, true},
		{"unranged infinity", "seed", math.Inf(1), nil, true},
		{"nan", "seed", math.NaN(), nil, true},
		{"max int64 clamped", "count", int64(math.MaxInt64), int64(100), false},
		{"min int64 clamped", "count", int64(math.MinInt64), int64(1), false},
		{"uint64 past int64 clamped", "count", uint64(math.MaxUint64), int64(100), false},
		{"positive infinity clamped", "count", math.Inf(1), int64(100), false},
		{"negative infinity clamped", "count", math.Inf(-1), int64(1), false},
		{"huge float clamped", "count", 1e300, int64(100), false},
		{"fractional bounds round inward high", "half", 10, int64(3), false},
		{"fractional bounds round inward low", "half", -10, int64(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			inst, err := schema.Bind(def, hostctx.New("scene"))
			require.NoError(t, err)

			err = inst.Set(tt.property, tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, schema.ErrConstraint)
				return
			}
			require.NoError(t, err)
			got, _ := inst.Get(tt.property)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstance_VectorIsCopied(t *testing.T) {
	t.Parallel()

	inst, err := schema.Bind(toolSettings(t), hostctx.New("scene"))
	require.NoError(t, err)

	in := []float64{0.1, 0.2, 0.3}
	require.NoError(t, inst.Set("offset", in))
	in[0] = 0.9

	out := inst.Vector("offset")
	assert.Equal(t, 0.1, out[0])
	out[1] = 0.9
	assert.Equal(t, 0.2, inst.Vector("offset")[1])
}

func TestInstance_Apply(t *testing.T) {
	t.Parallel()

	inst, err := schema.Bind(toolSettings(t), hostctx.New("scene"))
	require.NoError(t, err)

	err = inst.Apply(map[string]any{"count": 5, "mode": "Z", "bogus": true})
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrConstraint)
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "bogus")
	assert.Equal(t, int64(5), inst.Int("count"))
	assert.Equal(t, "A", inst.String("mode"))

	require.NoError(t, inst.Reset("count"))
	assert.Equal(t, int64(10), inst.Int("count"))
}

func TestInstance_Values(t *testing.T) {
	t.Parallel()

	inst, err := schema.Bind(toolSettings(t), hostctx.New("scene"))
	require.NoError(t, err)

	var names []string
	for _, v := range inst.Values() {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"count", "strength", "mode", "label", "enabled", "offset"}, names)
	assert.Equal(t, "untitled", inst.Map()["label"])
}

func TestInstance_Detach(t *testing.T) {
	t.Parallel()

	def := toolSettings(t)
	ctx := hostctx.New("scene")
	inst, err := schema.Bind(def, ctx)
	require.NoError(t, err)

	require.NoError(t, inst.Detach())
	assert.True(t, inst.Detached())
	assert.Nil(t, inst.Context())
	assert.Empty(t, ctx.Attachments())

	assert.ErrorIs(t, inst.Detach(), schema.ErrDetached)
	assert.ErrorIs(t, inst.Set("count", 3), schema.ErrDetached)
	assert.Equal(t, int64(10), inst.Int("count"), "reads still work after detach")

	_, err = schema.Bind(def, ctx)
	assert.NoError(t, err, "a detached slot can be bound again")
}

func TestDefinition_JSONSchema(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(toolSettings(t).JSONSchema())
	require.NoError(t, err)

	var doc struct {
		Title      string `json:"title"`
		Type       string `json:"type"`
		Properties map[string]struct {
			Type     string `json:"type"`
			Minimum  any    `json:"minimum"`
			Maximum  any    `json:"maximum"`
			Enum     []any  `json:"enum"`
			MinItems int    `json:"minItems"`
			Default  any    `json:"default"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "tool_settings", doc.Title)
	assert.Equal(t, "object", doc.Type)
	assert.Equal(t, "integer", doc.Properties["count"].Type)
	assert.EqualValues(t, 1, doc.Properties["count"].Minimum)
	assert.EqualValues(t, 100, doc.Properties["count"].Maximum)
	assert.Equal(t, []any{"A", "B"}, doc.Properties["mode"].Enum)
	assert.Equal(t, "array", doc.Properties["offset"].Type)
	assert.Equal(t, 3, doc.Properties["offset"].MinItems)
	assert.Equal(t, "untitled", doc.Properties["label"].Default)
}
