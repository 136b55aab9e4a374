package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	enry "github.com/go-enry/go-enry/v2"
)

// ────────────────────────────────── Vertex stage ──────────────────────────────────

// The vertex stage transforms the plane by the camera the renderer builds, the
// same contract a three.js ShaderMaterial gives its vertex shader.
const vertexShaderSourceGL = `#version 410 core
layout (location = 0) in vec3 position;
uniform mat4 projectionMatrix;
uniform mat4 modelViewMatrix;
void main() {
    gl_Position = projectionMatrix * modelViewMatrix * vec4(position, 1.0);
}
`

const vertexShaderSourceGLES = `#version 300 es
layout (location = 0) in vec3 position;
uniform mat4 projectionMatrix;
uniform mat4 modelViewMatrix;
void main() {
    gl_Position = projectionMatrix * modelViewMatrix * vec4(position, 1.0);
}
`

// ───────────────────────────────── Fragment stage ─────────────────────────────────

// DefaultFragmentShader is rendered when the input file is empty.
const DefaultFragmentShader = `uniform vec2 resolution;
uniform float time;
void main() {
  vec2 pos = gl_FragCoord.xy / resolution.xy;
  float d = distance(pos, vec2(0.5)) + sin(time) * 0.1;
  float c = 1.0 - smoothstep(0.5, 0.501, d);
  gl_FragColor = vec4(0.0, c, c, 1.0);
}
`

// FragColorName is the output variable that replaces gl_FragColor.
const FragColorName = "shadergif_FragColor"

const fragmentPreamble = `#version 300 es
precision highp float;
precision highp int;
out highp vec4 ` + FragColorName + `;
#line 1
`

var (
	versionRe     = regexp.MustCompile(`^\s*#version\s+(\d+)(\s+es)?`)
	derivativesRe = regexp.MustCompile(`^\s*#extension\s+GL_OES_standard_derivatives\b`)
	fragColorRe   = regexp.MustCompile(`\bgl_FragColor\b`)
	texture2DRe   = regexp.MustCompile(`\b(texture2D|textureCube)\b`)
	varyingRe     = regexp.MustCompile(`\bvarying\b`)
)

// Source is a fragment program read from disk.
type Source struct {
	Path     string
	Code     string
	Language string // as detected from the file name and content, may be empty
}

// Load reads a fragment shader. An empty file yields the default shader.
func Load(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read shader: %w", err)
	}
	src := Source{
		Path:     path,
		Code:     string(data),
		Language: enry.GetLanguage(filepath.Base(path), data),
	}
	if strings.TrimSpace(src.Code) == "" {
		src.Code = DefaultFragmentShader
		src.Language = "GLSL"
	}
	return src, nil
}

// IsGLSL reports whether the detected language is GLSL or could not be determined.
func (s Source) IsGLSL() bool {
	return s.Language == "" || s.Language == "GLSL"
}

// GenerateVertexShader returns the fixed vertex stage for a desktop or ES context.
func GenerateVertexShader(isGLES bool) string {
	if isGLES {
		return vertexShaderSourceGLES
	}
	return vertexShaderSourceGL
}

// Upgrade rewrites a WebGL 1 style fragment shader into GLSL ES 3.00 so it can
// go through the WebGL2 translator. Shaders already declaring "#version 300 es"
// are returned unchanged. Removed directives are blanked rather than dropped so
// compiler line numbers still match the user's file.
func Upgrade(code string) string {
	lines := strings.Split(code, "\n")
	for _, line := range lines {
		if m := versionRe.FindStringSubmatch(line); m != nil {
			if m[1] == "300" && m[2] != "" {
				return code
			}
			break
		}
		if strings.TrimSpace(line) != "" && !strings.HasPrefix(strings.TrimSpace(line), "//") {
			break
		}
	}

	for i, line := range lines {
		if versionRe.MatchString(line) || derivativesRe.MatchString(line) {
			lines[i] = ""
			continue
		}
		line = fragColorRe.ReplaceAllString(line, FragColorName)
		line = texture2DRe.ReplaceAllString(line, "texture")
		lines[i] = varyingRe.ReplaceAllString(line, "in")
	}
	return fragmentPreamble + strings.Join(lines, "\n")
}
