// Package worker is the body of the render-frame subcommand: it renders one
// frame to one PNG slot and reports the outcome as an exit status.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/richinsley/goshadergif/encoder"
	"github.com/richinsley/goshadergif/isolation"
	"github.com/richinsley/goshadergif/logging"
	"github.com/richinsley/goshadergif/renderer"
	"github.com/richinsley/goshadergif/shader"
	"github.com/richinsley/goshadergif/uniforms"
)

const (
	excerptContext = 2
	maxExcerpts    = 3
)

// Run parses the positional arguments, renders the frame and returns the exit
// status for the parent. It never panics.
func Run(ctx context.Context, args []string, open renderer.Opener, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "render-frame panic: %v\n%s", r, debug.Stack())
			code = isolation.ExitFailure
		}
	}()

	req, err := isolation.ParseArgs(args)
	if err == nil {
		err = Render(ctx, req, open, stderr)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
	}
	return isolation.ExitCode(err)
}

// Render produces req.OutputPath from the shader at req.ShaderPath sampled at req.Time.
func Render(ctx context.Context, req isolation.Request, open renderer.Opener, stderr io.Writer) error {
	logger := logging.NewLogger(stderr, stderr, "render-frame", false)

	src, err := shader.Load(req.ShaderPath)
	if err != nil {
		return err
	}

	set := uniforms.Defaults(req.Width, req.Height)
	overrides, err := uniforms.ParseOverrides(req.Uniforms)
	if err != nil {
		logger.Warnf("ignoring uniform overrides: %v", err)
	}
	set, err = uniforms.Merge(set, overrides)
	if err != nil {
		logger.Warnf("%v", err)
	}

	img, err := renderer.Render(ctx, open, renderer.Request{
		Vertex:   shader.GenerateVertexShader,
		Fragment: shader.Upgrade(src.Code),
		Uniforms: set.WithTime(req.Time),
		Width:    req.Width,
		Height:   req.Height,
	})
	if err != nil {
		if errors.Is(err, renderer.ErrShaderCompile) {
			printExcerpts(stderr, src, err.Error())
		}
		return err
	}

	if err := encoder.WriteStill(req.OutputPath, img); err != nil {
		return fmt.Errorf("%w: %w", isolation.ErrSlotWrite, err)
	}
	return nil
}

func printExcerpts(w io.Writer, src shader.Source, compilerLog string) {
	lines := shader.ErrorLines(compilerLog)
	if len(lines) > maxExcerpts {
		lines = lines[:maxExcerpts]
	}
	color := shader.ColorEnabled(w)
	for _, line := range lines {
		if ex := shader.Excerpt(src.Code, line, excerptContext, color); ex != "" {
			fmt.Fprintf(w, "%s:%d\n%s", src.Path, line, ex)
		}
	}
}
