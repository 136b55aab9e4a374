package uniforms

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUniformParse is returned when an override document is not valid.
	ErrUniformParse = errors.New("malformed uniform document")

	// ErrUniformType is returned when an override does not match the kind of the built-in it replaces.
	ErrUniformType = errors.New("uniform type mismatch")
)

// Names of the built-in uniforms every shader may declare.
const (
	Time       = "time"
	Resolution = "resolution"
	Mouse      = "mouse"
)

// Kind identifies which member of the value union is populated.
type Kind int

const (
	KindFloat Kind = iota + 1
	KindVec2
	KindVec3
	KindVec4
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindVec2:
		return "vec2"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Components returns how many floats a value of this kind carries.
func (k Kind) Components() int {
	if k < KindFloat || k > KindVec4 {
		return 0
	}
	return int(k)
}

// Value is a float, vec2, vec3 or vec4 uniform value.
type Value struct {
	kind Kind
	v    [4]float32
}

func Float(x float32) Value         { return Value{kind: KindFloat, v: [4]float32{x}} }
func Vec2(x, y float32) Value       { return Value{kind: KindVec2, v: [4]float32{x, y}} }
func Vec3(x, y, z float32) Value    { return Value{kind: KindVec3, v: [4]float32{x, y, z}} }
func Vec4(x, y, z, w float32) Value { return Value{kind: KindVec4, v: [4]float32{x, y, z, w}} }

// FromComponents builds a value from 1 to 4 floats.
func FromComponents(c []float32) (Value, error) {
	if len(c) < 1 || len(c) > 4 {
		return Value{}, fmt.Errorf("%w: expected 1 to 4 components, got %d", ErrUniformParse, len(c))
	}
	val := Value{kind: Kind(len(c))}
	copy(val.v[:], c)
	return val, nil
}

func (v Value) Kind() Kind { return v.kind }

// Components returns a copy of the populated components.
func (v Value) Components() []float32 {
	n := v.kind.Components()
	out := make([]float32, n)
	copy(out, v.v[:n])
	return out
}

func (v Value) String() string {
	parts := make([]string, 0, 4)
	for _, c := range v.Components() {
		parts = append(parts, fmt.Sprintf("%g", c))
	}
	if v.kind == KindFloat {
		return parts[0]
	}
	return fmt.Sprintf("%s(%s)", v.kind, strings.Join(parts, ", "))
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat {
		return json.Marshal(v.v[0])
	}
	return json.Marshal(v.Components())
}

// Set maps uniform names to values. A Set is never mutated after construction.
type Set struct {
	values map[string]Value
}

// NewSet copies m into a new Set.
func NewSet(m map[string]Value) Set {
	values := make(map[string]Value, len(m))
	for k, v := range m {
		values[k] = v
	}
	return Set{values: values}
}

// Defaults returns the built-in uniforms for a render of width x height.
func Defaults(width, height int) Set {
	return NewSet(map[string]Value{
		Time:       Float(0),
		Resolution: Vec2(float32(width), float32(height)),
		Mouse:      Vec2(float32(width)*0.5, float32(height)*0.5),
	})
}

func (s Set) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s Set) Len() int { return len(s.values) }

// Names returns the uniform names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of s with name set to v.
func (s Set) With(name string, v Value) Set {
	out := NewSet(s.values)
	out.values[name] = v
	return out
}

// WithTime derives the per-frame set.
func (s Set) WithTime(t float64) Set {
	return s.With(Time, Float(float32(t)))
}

// Accept returns the overrides that may be applied on top of defaults.
// Overrides of a name already present in defaults must have the same kind;
// mismatches are left out and reported together in the returned error.
func Accept(defaults, overrides Set) (Set, error) {
	accepted := NewSet(nil)
	var errs []error
	for _, name := range overrides.Names() {
		ov := overrides.values[name]
		if dv, ok := defaults.values[name]; ok && dv.kind != ov.kind {
			errs = append(errs, fmt.Errorf("%w: %q is %s, override is %s", ErrUniformType, name, dv.kind, ov.kind))
			continue
		}
		accepted.values[name] = ov
	}
	return accepted, errors.Join(errs...)
}

// Merge overlays the accepted overrides on defaults. Unknown names pass
// through as additional uniforms.
func Merge(defaults, overrides Set) (Set, error) {
	accepted, err := Accept(defaults, overrides)
	merged := NewSet(defaults.values)
	for name, v := range accepted.values {
		merged.values[name] = v
	}
	return merged, err
}

// MarshalJSON writes the canonical override document: numbers for floats and
// arrays for vectors, keys sorted.
func (s Set) MarshalJSON() ([]byte, error) {
	if len(s.values) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(s.values)
}
