// Package renderertest provides a software Surface for exercising the frame
// pipeline without a GPU.
package renderertest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/richinsley/goshadergif/renderer"
	"github.com/richinsley/goshadergif/uniforms"
)

// CompileErrorMarker makes Compile fail when present in the fragment source.
const CompileErrorMarker = "#error"

// ShadeFunc computes the colour of the fragment at (x+0.5, y+0.5) in native
// coordinates, y=0 being the bottom row.
type ShadeFunc func(x, y int, u uniforms.Set) [4]float32

// Surface evaluates a ShadeFunc for every pixel. It is deterministic.
type Surface struct {
	Width, Height int
	GLES          bool
	Shade         ShadeFunc

	Vertex    string
	Fragment  string
	Calls     []renderer.DrawCall
	Destroyed bool

	pixels []byte
}

// Opener returns an Opener handing out fresh software surfaces. Each surface
// is appended to *opened when opened is non-nil.
func Opener(shade ShadeFunc, opened *[]*Surface) renderer.Opener {
	return func(ctx context.Context, width, height int) (renderer.Surface, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := &Surface{Width: width, Height: height, Shade: shade}
		if opened != nil {
			*opened = append(*opened, s)
		}
		return s, nil
	}
}

// FailingOpener always fails to acquire a context.
func FailingOpener(err error) renderer.Opener {
	return func(context.Context, int, int) (renderer.Surface, error) {
		return nil, err
	}
}

func (s *Surface) IsGLES() bool { return s.GLES }

func (s *Surface) Compile(vertexSource, fragmentSource string) error {
	if strings.Contains(fragmentSource, CompileErrorMarker) {
		return fmt.Errorf("ERROR: 0:1: '%s' : compilation terminated", CompileErrorMarker)
	}
	s.Vertex = vertexSource
	s.Fragment = fragmentSource
	return nil
}

func (s *Surface) Draw(call renderer.DrawCall) error {
	if s.Fragment == "" {
		return errors.New("no program")
	}
	s.Calls = append(s.Calls, call)
	s.pixels = make([]byte, s.Width*s.Height*4)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			c := s.Shade(x, y, call.Uniforms)
			i := (y*s.Width + x) * 4
			for ch := 0; ch < 4; ch++ {
				s.pixels[i+ch] = Quantize(c[ch])
			}
		}
	}
	return nil
}

func (s *Surface) ReadPixels(dst []byte) error {
	if s.pixels == nil {
		return errors.New("nothing drawn")
	}
	if len(dst) < len(s.pixels) {
		return fmt.Errorf("buffer too small: %d < %d", len(dst), len(s.pixels))
	}
	copy(dst, s.pixels)
	return nil
}

func (s *Surface) Destroy() { s.Destroyed = true }

// Quantize converts a normalized channel to 8 bits the way GL does for UNORM targets.
func Quantize(v float32) byte {
	if v <= 0 || math.IsNaN(float64(v)) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(math.Round(float64(v) * 255))
}

// TimeRed shades every pixel vec4(time, 0, 0, 1).
func TimeRed(_, _ int, u uniforms.Set) [4]float32 {
	var red float32
	if t, ok := u.Get(uniforms.Time); ok && t.Kind() == uniforms.KindFloat {
		red = t.Components()[0]
	}
	return [4]float32{red, 0, 0, 1}
}

// RowGradient encodes the native row index in the green channel and the
// column in the red channel, which makes orientation visible.
func RowGradient(x, y int, _ uniforms.Set) [4]float32 {
	return [4]float32{float32(x) / 255, float32(y) / 255, 0, 1}
}
