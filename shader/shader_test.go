package shader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeWebGL1(t *testing.T) {
	src := strings.Join([]string{
		"#extension GL_OES_standard_derivatives : enable",
		"precision mediump float;",
		"uniform float time;",
		"uniform sampler2D tex;",
		"varying vec2 vUv;",
		"void main() {",
		"  gl_FragColor = texture2D(tex, vUv) * time;",
		"}",
	}, "\n")

	out := Upgrade(src)

	require.True(t, strings.HasPrefix(out, "#version 300 es\n"))
	assert.Contains(t, out, "out highp vec4 "+FragColorName+";")
	assert.Contains(t, out, FragColorName+" = texture(tex, vUv) * time;")
	assert.Contains(t, out, "in vec2 vUv;")
	assert.NotContains(t, out, "gl_FragColor")
	assert.NotContains(t, out, "GL_OES_standard_derivatives")

	// user lines keep their numbers after the #line directive
	_, user, found := strings.Cut(out, "#line 1\n")
	require.True(t, found)
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(user, "\n"))
	assert.Equal(t, "uniform float time;", strings.Split(user, "\n")[2])
}

func TestUpgradeKeepsES300(t *testing.T) {
	src := "// header\n#version 300 es\nprecision highp float;\nout vec4 c;\nvoid main(){ c = vec4(1.0); }\n"
	assert.Equal(t, src, Upgrade(src))
}

func TestUpgradeBlanksOtherVersions(t *testing.T) {
	out := Upgrade("#version 100\nvoid main(){ gl_FragColor = vec4(1.0); }")
	_, user, _ := strings.Cut(out, "#line 1\n")
	lines := strings.Split(user, "\n")
	assert.Equal(t, "", lines[0])
	assert.Contains(t, lines[1], FragColorName)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "wave.glsl")
	code := "uniform float time;\nvoid main() { gl_FragColor = vec4(time, 0.0, 0.0, 1.0); }\n"
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, code, src.Code)
	assert.Equal(t, "GLSL", src.Language)
	assert.True(t, src.IsGLSL())

	empty := filepath.Join(dir, "empty.frag")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	src, err = Load(empty)
	require.NoError(t, err)
	assert.Equal(t, DefaultFragmentShader, src.Code)

	_, err = Load(filepath.Join(dir, "missing.frag"))
	assert.Error(t, err)
}

func TestIsGLSL(t *testing.T) {
	assert.True(t, Source{}.IsGLSL())
	assert.False(t, Source{Language: "Python"}.IsGLSL())
}

func TestVertexShaderVariants(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateVertexShader(false), "#version 410 core"))
	assert.True(t, strings.HasPrefix(GenerateVertexShader(true), "#version 300 es"))
	for _, src := range []string{GenerateVertexShader(false), GenerateVertexShader(true)} {
		assert.Contains(t, src, "projectionMatrix")
		assert.Contains(t, src, "modelViewMatrix")
	}
}

func TestErrorLines(t *testing.T) {
	log := "ERROR: 0:7: 'foo' : undeclared identifier\n" +
		"0:3(12): error: syntax error\n" +
		"ERROR: 0:7: 'bar' : undeclared identifier\n"
	assert.Equal(t, []int{3, 7}, ErrorLines(log))
	assert.Empty(t, ErrorLines("link failed"))
}

func TestExcerpt(t *testing.T) {
	code := "a\nb\nc\nd\ne"
	out := Excerpt(code, 3, 1, false)
	assert.Equal(t, "     2 | b\n>    3 | c\n     4 | d\n", out)

	assert.Equal(t, "", Excerpt(code, 0, 1, false))
	assert.Equal(t, "", Excerpt(code, 9, 1, false))

	colored := Excerpt(code, 1, 0, true)
	assert.Equal(t, 1, strings.Count(colored, "\n"))
	assert.Contains(t, colored, ">    1 | ")
}
