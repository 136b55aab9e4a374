package offscreen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goshadergif/glfwcontext"
	"github.com/richinsley/goshadergif/graphics"
	"github.com/richinsley/goshadergif/headless"
	"github.com/richinsley/goshadergif/renderer"
	"github.com/richinsley/goshadergif/translator"
	"github.com/richinsley/goshadergif/uniforms"
)

// Surface renders into an RGBA8 framebuffer object owned by its own context.
type Surface struct {
	context    graphics.Context
	translator *translator.Translator

	width             int
	height            int
	fbo               uint32
	textureID         uint32
	depthRenderbuffer uint32
	quadVAO           uint32
	quadVBO           uint32

	program      uint32
	uniformNames map[string]string
}

// Open acquires a new context and framebuffer of width x height. It tries a
// headless EGL context first and falls back to a hidden GLFW window.
func Open(ctx context.Context, width, height int) (renderer.Surface, error) {
	gctx, err := acquireContext(width, height)
	if err != nil {
		return nil, err
	}

	s := &Surface{
		context: gctx,
		width:   width,
		height:  height,
	}
	if err := s.createTarget(); err != nil {
		s.Destroy()
		return nil, err
	}

	s.translator, err = translator.New(ctx)
	if err != nil {
		s.Destroy()
		return nil, err
	}
	return s, nil
}

func acquireContext(width, height int) (graphics.Context, error) {
	var errs []error

	egl, err := headless.New(width, height)
	if err == nil {
		if err = initGL(egl); err == nil {
			return egl, nil
		}
		egl.Shutdown()
	}
	errs = append(errs, fmt.Errorf("egl: %w", err))
	log.Printf("Headless EGL unavailable (%v), falling back to a hidden GLFW window.", err)

	win, err := glfwcontext.New(width, height)
	if err == nil {
		if err = initGL(win); err == nil {
			return win, nil
		}
		win.Shutdown()
	}
	errs = append(errs, fmt.Errorf("glfw: %w", err))
	return nil, errors.Join(errs...)
}

func initGL(c graphics.Context) error {
	c.MakeCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	return nil
}

func (s *Surface) createTarget() error {
	gl.GenFramebuffers(1, &s.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)
	gl.GenTextures(1, &s.textureID)
	gl.BindTexture(gl.TEXTURE_2D, s.textureID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(s.width), int32(s.height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, s.textureID, 0)
	gl.GenRenderbuffers(1, &s.depthRenderbuffer)
	gl.BindRenderbuffer(gl.RENDERBUFFER, s.depthRenderbuffer)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(s.width), int32(s.height))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, s.depthRenderbuffer)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("offscreen fbo is not complete: 0x%x", status)
	}

	gl.GenVertexArrays(1, &s.quadVAO)
	gl.GenBuffers(1, &s.quadVBO)
	return nil
}

func (s *Surface) IsGLES() bool { return s.context.IsGLES() }

// Compile translates the fragment stage and links it with vertexSource.
func (s *Surface) Compile(vertexSource, fragmentSource string) error {
	frag, err := s.translator.TranslateFragment(fragmentSource, s.IsGLES())
	if err != nil {
		return err
	}
	program, err := newProgram(vertexSource, frag.Code)
	if err != nil {
		return err
	}
	if s.program != 0 {
		gl.DeleteProgram(s.program)
	}
	s.program = program
	s.uniformNames = frag.Uniforms
	return nil
}

// Draw rasterizes call.Vertices with the compiled program into the framebuffer.
func (s *Surface) Draw(call renderer.DrawCall) error {
	if s.program == 0 {
		return errors.New("no program compiled")
	}

	gl.BindVertexArray(s.quadVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(call.Vertices)*4, gl.Ptr(call.Vertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, gl.PtrOffset(0))

	gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)
	gl.Viewport(0, 0, int32(s.width), int32(s.height))
	gl.ClearColor(0, 0, 0, 0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(s.program)
	if loc := s.location("projectionMatrix"); loc != -1 {
		gl.UniformMatrix4fv(loc, 1, false, &call.Projection[0])
	}
	if loc := s.location("modelViewMatrix"); loc != -1 {
		gl.UniformMatrix4fv(loc, 1, false, &call.ModelView[0])
	}
	s.updateUniforms(call.Uniforms)

	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(call.Vertices)/3))
	gl.Finish()

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x", code)
	}
	return nil
}

// updateUniforms sets every uniform the program kept after translation.
// Names the shader never declared, or that the compiler optimized out, are skipped.
func (s *Surface) updateUniforms(set uniforms.Set) {
	for _, name := range set.Names() {
		mapped, ok := s.uniformNames[name]
		if !ok {
			continue
		}
		loc := s.location(mapped)
		if loc == -1 {
			continue
		}
		v, _ := set.Get(name)
		c := v.Components()
		switch v.Kind() {
		case uniforms.KindFloat:
			gl.Uniform1f(loc, c[0])
		case uniforms.KindVec2:
			gl.Uniform2f(loc, c[0], c[1])
		case uniforms.KindVec3:
			gl.Uniform3f(loc, c[0], c[1], c[2])
		case uniforms.KindVec4:
			gl.Uniform4f(loc, c[0], c[1], c[2], c[3])
		}
	}
}

func (s *Surface) location(name string) int32 {
	return gl.GetUniformLocation(s.program, gl.Str(name+"\x00"))
}

// ReadPixels copies the framebuffer into dst, bottom row first.
func (s *Surface) ReadPixels(dst []byte) error {
	size := s.width * s.height * 4
	if len(dst) < size {
		return fmt.Errorf("buffer too small: %d < %d", len(dst), size)
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, s.fbo)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(s.width), int32(s.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&dst[0]))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("glReadPixels: gl error 0x%x", code)
	}
	return nil
}

// Destroy releases every GL object and then the context itself.
func (s *Surface) Destroy() {
	if s.context == nil {
		return
	}
	if s.program != 0 {
		gl.DeleteProgram(s.program)
	}
	gl.DeleteVertexArrays(1, &s.quadVAO)
	gl.DeleteBuffers(1, &s.quadVBO)
	gl.DeleteFramebuffers(1, &s.fbo)
	gl.DeleteTextures(1, &s.textureID)
	gl.DeleteRenderbuffers(1, &s.depthRenderbuffer)
	s.context.Shutdown()
	s.context = nil
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", strings.TrimRight(logText, "\x00"))
	}
	return shader, nil
}
