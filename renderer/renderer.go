package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goshadergif/uniforms"
)

var (
	ErrContextAcquisition = errors.New("offscreen context acquisition failed")
	ErrShaderCompile      = errors.New("shader compilation failed")
	ErrDraw               = errors.New("draw failed")
	ErrReadback           = errors.New("pixel readback failed")
)

// DrawCall is everything a Surface needs to rasterize one frame.
type DrawCall struct {
	// Vertices holds xyz triples, drawn as a triangle list.
	Vertices   []float32
	Projection mgl32.Mat4
	ModelView  mgl32.Mat4
	Uniforms   uniforms.Set
}

// Surface is a single-use offscreen render target together with the context
// that owns it. ReadPixels returns rows in the rasterizer's native
// bottom-to-top order.
type Surface interface {
	// IsGLES reports whether the context speaks GLSL ES rather than desktop GLSL.
	IsGLES() bool
	Compile(vertexSource, fragmentSource string) error
	Draw(call DrawCall) error
	ReadPixels(dst []byte) error
	Destroy()
}

// Opener acquires a fresh Surface of the given size.
type Opener func(ctx context.Context, width, height int) (Surface, error)

// VertexSourceFunc picks a vertex stage for the kind of context acquired.
type VertexSourceFunc func(isGLES bool) string

// Request describes one frame.
type Request struct {
	Vertex   VertexSourceFunc
	Fragment string
	Uniforms uniforms.Set
	Width    int
	Height   int
}

// Render acquires a new surface, draws the fragment program over a plane that
// fills the view, and returns the top-to-bottom pixels. The surface is always
// destroyed before Render returns.
func Render(ctx context.Context, open Opener, req Request) (*image.NRGBA, error) {
	if req.Width <= 0 || req.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", req.Width, req.Height)
	}

	surface, err := open(ctx, req.Width, req.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextAcquisition, err)
	}
	defer surface.Destroy()

	if err := surface.Compile(req.Vertex(surface.IsGLES()), req.Fragment); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}

	cam := NewCamera(req.Width, req.Height)
	call := DrawCall{
		Vertices:   PlaneVertices(cam.Aspect),
		Projection: cam.Projection,
		ModelView:  cam.View,
		Uniforms:   req.Uniforms,
	}
	if err := surface.Draw(call); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDraw, err)
	}

	native := make([]byte, req.Width*req.Height*4)
	if err := surface.ReadPixels(native); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadback, err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, req.Width, req.Height))
	FlipRows(img.Pix, native, req.Width, req.Height)
	return img, nil
}
