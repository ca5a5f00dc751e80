package schema

import (
	"fmt"
	"math"
	"slices"
)

// ValueType is the type of a property value.
type ValueType int

const (
	String ValueType = iota + 1
	Int
	Float
	Bool
	Enum
	Vector
)

func (t ValueType) String() string {
	switch t {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Enum:
		return "enum"
	case Vector:
		return "vector"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// Range bounds numeric values and vector components, inclusive.
type Range struct {
	Min float64
	Max float64
}

// Descriptor declares one typed property.
//
// Stored values use a canonical Go type per ValueType: string, int64,
// float64, bool, string (enum item) and []float64 (vector).
type Descriptor struct {
	Default     any
	Range       *Range
	Name        string
	Label       string
	Description string
	Items       []string
	Size        int
	Type        ValueType
}

// normalize validates the descriptor and returns a copy whose default is
// coerced to the canonical type.
func (d Descriptor) normalize() (Descriptor, error) {
	if d.Name == "" {
		return d, fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	}
	if d.Range != nil {
		if math.IsNaN(d.Range.Min) || math.IsNaN(d.Range.Max) || d.Range.Min > d.Range.Max {
			return d, fmt.Errorf("%w: %s: min %v > max %v", ErrInvalidDescriptor, d.Name, d.Range.Min, d.Range.Max)
		}
		r := *d.Range
		d.Range = &r
	}

	switch d.Type {
	case String, Bool, Int, Float:
	case Enum:
		if len(d.Items) == 0 {
			return d, fmt.Errorf("%w: %s: enum without items", ErrInvalidDescriptor, d.Name)
		}
		d.Items = slices.Clone(d.Items)
		if d.Default == nil {
			d.Default = d.Items[0]
		}
	case Vector:
		if d.Size <= 0 {
			return d, fmt.Errorf("%w: %s: vector size must be positive", ErrInvalidDescriptor, d.Name)
		}
		if d.Default == nil {
			d.Default = make([]float64, d.Size)
		}
	default:
		return d, fmt.Errorf("%w: %s: unknown type %v", ErrInvalidDescriptor, d.Name, d.Type)
	}

	if d.Default == nil {
		d.Default = d.zero()
	}
	def, reason := d.coerce(d.Default)
	if reason != "" {
		return d, fmt.Errorf("%w: %s: default %v: %s", ErrInvalidDescriptor, d.Name, d.Default, reason)
	}
	d.Default = def
	return d, nil
}

func (d Descriptor) zero() any {
	switch d.Type {
	case String:
		return ""
	case Int:
		return int64(0)
	case Float:
		return 0.0
	case Bool:
		return false
	}
	return nil
}

// coerce converts v to the canonical type and applies constraints.
// A non-empty reason means the value is rejected.
func (d Descriptor) coerce(v any) (any, string) {
	switch d.Type {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Sprintf("expected string, got %T", v)
		}
		return s, ""

	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Sprintf("expected bool, got %T", v)
		}
		return b, ""

	case Int:
		return d.coerceInt(v)

	case Float:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Sprintf("expected float, got %T", v)
		}
		if math.IsNaN(f) {
			return nil, "NaN is not a valid value"
		}
		return d.clamp(f), ""

	case Enum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Sprintf("expected enum item, got %T", v)
		}
		if !slices.Contains(d.Items, s) {
			return nil, fmt.Sprintf("%q is not one of %v", s, d.Items)
		}
		return s, ""

	case Vector:
		comps, ok := toFloats(v)
		if !ok {
			return nil, fmt.Sprintf("expected numeric vector, got %T", v)
		}
		if len(comps) != d.Size {
			return nil, fmt.Sprintf("expected %d components, got %d", d.Size, len(comps))
		}
		for i, c := range comps {
			if math.IsNaN(c) {
				return nil, "NaN is not a valid component"
			}
			comps[i] = d.clamp(c)
		}
		return comps, ""
	}
	return nil, "unknown type"
}

// coerceInt works in integer space so that values past 2^53 keep their
// precision. Values beyond int64, infinities included, saturate to the range
// when there is one and are rejected otherwise.
func (d Descriptor) coerceInt(v any) (any, string) {
	n, overflow, reason := toInt64(v)
	if reason != "" {
		return nil, reason
	}
	if d.Range == nil {
		if overflow != 0 {
			return nil, "value out of int64 range"
		}
		return n, ""
	}

	lo, hi := saturate(math.Ceil(d.Range.Min)), saturate(math.Floor(d.Range.Max))
	if lo > hi {
		return nil, fmt.Sprintf("range [%v, %v] holds no integer", d.Range.Min, d.Range.Max)
	}
	switch {
	case overflow > 0:
		n = hi
	case overflow < 0:
		n = lo
	}
	return min(max(n, lo), hi), ""
}

// toInt64 converts an integral number. overflow is +1 or -1 when v lies
// beyond int64 in that direction; n is meaningless then.
func toInt64(v any) (n int64, overflow int, reason string) {
	switch x := v.(type) {
	case int:
		return int64(x), 0, ""
	case int8:
		return int64(x), 0, ""
	case int16:
		return int64(x), 0, ""
	case int32:
		return int64(x), 0, ""
	case int64:
		return x, 0, ""
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return int64(x), 0, ""
	case uint16:
		return int64(x), 0, ""
	case uint32:
		return int64(x), 0, ""
	case uint64:
		return fromUint(x)
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	}
	return 0, 0, fmt.Sprintf("expected int, got %T", v)
}

func fromUint(u uint64) (int64, int, string) {
	if u > math.MaxInt64 {
		return 0, 1, ""
	}
	return int64(u), 0, ""
}

func fromFloat(f float64) (int64, int, string) {
	switch {
	case math.IsNaN(f):
		return 0, 0, "NaN is not a valid value"
	case math.IsInf(f, 1):
		return 0, 1, ""
	case math.IsInf(f, -1):
		return 0, -1, ""
	case f != math.Trunc(f):
		return 0, 0, "expected an integral value"
	case f >= math.MaxInt64:
		return 0, 1, ""
	case f < math.MinInt64:
		return 0, -1, ""
	}
	return int64(f), 0, ""
}

// saturate converts an integral float to int64, pinning it to the int64
// bounds.
func saturate(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func (d Descriptor) clamp(f float64) float64 {
	if d.Range == nil {
		return f
	}
	return math.Min(math.Max(f, d.Range.Min), d.Range.Max)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// toFloats always returns a fresh slice.
func toFloats(v any) ([]float64, bool) {
	switch vs := v.(type) {
	case []float64:
		return slices.Clone(vs), true
	case []float32:
		out := make([]float64, len(vs))
		for i, c := range vs {
			out[i] = float64(c)
		}
		return out, true
	case []int:
		out := make([]float64, len(vs))
		for i, c := range vs {
			out[i] = float64(c)
		}
		return out, true
	case []any:
		out := make([]float64, len(vs))
		for i, c := range vs {
			f, ok := toFloat(c)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

// clone copies vector values so callers cannot alias stored state.
func clone(v any) any {
	if vs, ok := v.([]float64); ok {
		return slices.Clone(vs)
	}
	return v
}
