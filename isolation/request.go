// Package isolation runs each frame render behind a process boundary so a
// crash, hang or corrupted driver state only ever costs that one frame.
package isolation

import (
	"context"
	"fmt"
	"strconv"
)

// WorkerCommand is the subcommand the binary answers to when it is started as
// an isolation unit.
const WorkerCommand = "render-frame"

// Request is the narrow input contract of one isolation unit.
type Request struct {
	Width      int
	Height     int
	ShaderPath string
	Time       float64
	Uniforms   string // canonical JSON override document
	OutputPath string
}

// Unit renders one frame and reports only success or a frame-level error.
// Implementations must never let a frame failure escape as a panic.
type Unit interface {
	Render(ctx context.Context, req Request) error
}

// UnitFunc adapts a function to the Unit interface.
type UnitFunc func(ctx context.Context, req Request) error

func (f UnitFunc) Render(ctx context.Context, req Request) error { return f(ctx, req) }

// Args returns the positional arguments
// (width, height, shaderPath, timestamp, uniforms, outputPath).
func (r Request) Args() []string {
	uniforms := r.Uniforms
	if uniforms == "" {
		uniforms = "{}"
	}
	return []string{
		strconv.Itoa(r.Width),
		strconv.Itoa(r.Height),
		r.ShaderPath,
		strconv.FormatFloat(r.Time, 'g', -1, 64),
		uniforms,
		r.OutputPath,
	}
}

// ParseArgs is the inverse of Request.Args.
func ParseArgs(args []string) (Request, error) {
	if len(args) != 6 {
		return Request{}, fmt.Errorf("%w: expected 6 arguments (width height shader time uniforms output), got %d", ErrUsage, len(args))
	}
	width, err := strconv.Atoi(args[0])
	if err != nil || width <= 0 {
		return Request{}, fmt.Errorf("%w: invalid width %q", ErrUsage, args[0])
	}
	height, err := strconv.Atoi(args[1])
	if err != nil || height <= 0 {
		return Request{}, fmt.Errorf("%w: invalid height %q", ErrUsage, args[1])
	}
	t, err := strconv.ParseFloat(args[3], 64)
	if err != nil || t < 0 {
		return Request{}, fmt.Errorf("%w: invalid time %q", ErrUsage, args[3])
	}
	if args[2] == "" || args[5] == "" {
		return Request{}, fmt.Errorf("%w: shader and output paths are required", ErrUsage)
	}
	return Request{
		Width:      width,
		Height:     height,
		ShaderPath: args[2],
		Time:       t,
		Uniforms:   args[4],
		OutputPath: args[5],
	}, nil
}
