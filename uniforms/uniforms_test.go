package uniforms

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	set := Defaults(600, 400)

	assert.Equal(t, []string{Mouse, Resolution, Time}, set.Names())

	v, ok := set.Get(Resolution)
	require.True(t, ok)
	assert.Equal(t, KindVec2, v.Kind())
	assert.Equal(t, []float32{600, 400}, v.Components())

	v, _ = set.Get(Mouse)
	assert.Equal(t, []float32{300, 200}, v.Components())

	v, _ = set.Get(Time)
	assert.Equal(t, KindFloat, v.Kind())
	assert.Equal(t, []float32{0}, v.Components())
}

func TestParseOverrides(t *testing.T) {
	set, err := ParseOverrides(`{
		"speed": 2.5,
		"tint": [1, 0.5, 0.25],
		"origin": {"x": 3, "y": 4},
		"wrapped": {"type": "v4", "value": [1, 2, 3, 4]},
		"wrappedFloat": {"type": "f", "value": 0.75}
	}`)
	require.NoError(t, err)

	cases := map[string]Value{
		"speed":        Float(2.5),
		"tint":         Vec3(1, 0.5, 0.25),
		"origin":       Vec2(3, 4),
		"wrapped":      Vec4(1, 2, 3, 4),
		"wrappedFloat": Float(0.75),
	}
	assert.Equal(t, len(cases), set.Len())
	for name, want := range cases {
		got, ok := set.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestParseOverridesEmpty(t *testing.T) {
	for _, doc := range []string{"", "  ", "{}"} {
		set, err := ParseOverrides(doc)
		require.NoError(t, err, doc)
		assert.Equal(t, 0, set.Len())
	}
}

func TestParseOverridesMalformed(t *testing.T) {
	docs := []string{
		`{"time": 1`,
		`[1, 2]`,
		`null`,
		`{"a": "red"}`,
		`{"a": [1]}`,
		`{"a": [1, 2, 3, 4, 5]}`,
		`{"a": {"x": 1}}`,
		`{"a": {"x": 1, "y": 2, "q": 3}}`,
		`{"a": 1} {"b": 2}`,
	}
	for _, doc := range docs {
		_, err := ParseOverrides(doc)
		assert.ErrorIs(t, err, ErrUniformParse, doc)
	}
}

func TestMalformedDocumentFallsBackToDefaults(t *testing.T) {
	defaults := Defaults(4, 4)

	overrides, err := ParseOverrides(`{not json`)
	require.ErrorIs(t, err, ErrUniformParse)

	merged, err := Merge(defaults, overrides)
	require.NoError(t, err)
	assert.Equal(t, defaults, merged)
}

func TestMergeRejectsTypeMismatch(t *testing.T) {
	defaults := Defaults(10, 20)
	overrides := NewSet(map[string]Value{
		Time:       Vec2(1, 2),
		Resolution: Vec2(64, 32),
		"extra":    Vec3(1, 2, 3),
	})

	merged, err := Merge(defaults, overrides)
	require.ErrorIs(t, err, ErrUniformType)
	assert.Contains(t, err.Error(), `"time"`)

	v, _ := merged.Get(Time)
	assert.Equal(t, Float(0), v, "mismatched override must not replace the built-in")
	v, _ = merged.Get(Resolution)
	assert.Equal(t, Vec2(64, 32), v)
	v, ok := merged.Get("extra")
	require.True(t, ok, "unknown keys pass through")
	assert.Equal(t, Vec3(1, 2, 3), v)

	accepted, _ := Accept(defaults, overrides)
	assert.Equal(t, []string{"extra", Resolution}, accepted.Names())
}

func TestWithTimeDoesNotMutate(t *testing.T) {
	base := Defaults(8, 8)
	next := base.WithTime(1.25)

	v, _ := base.Get(Time)
	assert.Equal(t, Float(0), v)
	v, _ = next.Get(Time)
	assert.Equal(t, Float(1.25), v)
}

func TestCanonicalDocumentReparses(t *testing.T) {
	set := NewSet(map[string]Value{
		"a": Float(1.5),
		"b": Vec4(1, 2, 3, 4),
	})
	doc, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1.5, "b": [1, 2, 3, 4]}`, string(doc))

	empty, err := json.Marshal(NewSet(nil))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "0.5", Float(0.5).String())
	assert.Equal(t, "vec3(1, 2, 3)", Vec3(1, 2, 3).String())
}
