package translator

import (
	"context"
	"fmt"

	gst "github.com/richinsley/goshadertranslator"
)

// Translator turns WebGL2 fragment shaders into source the acquired context
// can compile, and reports the names ANGLE assigned to each uniform.
type Translator struct {
	gst *gst.ShaderTranslator
}

// Fragment is a translated fragment stage.
type Fragment struct {
	Code string
	// Uniforms maps names as written in the shader to the names in Code.
	Uniforms map[string]string
}

// New loads a translator. Each frame render owns its own instance.
func New(ctx context.Context) (*Translator, error) {
	t, err := gst.NewShaderTranslator(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shader translator: %w", err)
	}
	return &Translator{gst: t}, nil
}

// TranslateFragment validates and translates a GLSL ES 3.00 fragment shader.
func (t *Translator) TranslateFragment(source string, isGLES bool) (*Fragment, error) {
	outputFormat := gst.OutputFormatGLSL410
	if isGLES {
		outputFormat = gst.OutputFormatESSL
	}
	fs, err := t.gst.TranslateShader(source, "fragment", gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("fragment shader translation failed: %w", err)
	}
	frag := &Fragment{
		Code:     fs.Code,
		Uniforms: make(map[string]string, len(fs.Variables)),
	}
	for name, v := range fs.Variables {
		frag.Uniforms[name] = v.MappedName
	}
	return frag, nil
}
