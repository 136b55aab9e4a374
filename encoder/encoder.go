// Package encoder turns an ordered run of rendered stills into an animation file.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"slices"
	"time"
)

// ErrAssemblerInput means the stills cannot form an animation: none were
// given, they disagree on size, or one of them could not be read.
var ErrAssemblerInput = errors.New("invalid assembler input")

// Still is one rendered frame on disk.
type Still struct {
	Index int
	Path  string
}

type Options struct {
	Output string
	// Delay is the display time of every frame.
	Delay time.Duration
	// LoopCount is the number of repeats; 0 loops forever.
	LoopCount int
}

// Assembler writes stills, in Index order, to opts.Output.
type Assembler interface {
	Assemble(ctx context.Context, stills []Still, opts Options) error
}

// Centiseconds converts a frame delay to the GIF time unit, rounding to the
// nearest step.
func Centiseconds(d time.Duration) int {
	return int((d + 5*time.Millisecond) / (10 * time.Millisecond))
}

// prepare sorts a copy of stills and checks that every one of them decodes to
// the same dimensions.
func prepare(stills []Still, opts Options) ([]Still, image.Point, error) {
	if len(stills) == 0 {
		return nil, image.Point{}, fmt.Errorf("%w: no frames", ErrAssemblerInput)
	}
	if opts.Output == "" {
		return nil, image.Point{}, fmt.Errorf("%w: no output path", ErrAssemblerInput)
	}
	if opts.Delay <= 0 {
		return nil, image.Point{}, fmt.Errorf("%w: frame delay must be positive, got %s", ErrAssemblerInput, opts.Delay)
	}

	sorted := slices.Clone(stills)
	slices.SortFunc(sorted, func(a, b Still) int { return a.Index - b.Index })

	var size image.Point
	for i, s := range sorted {
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, image.Point{}, fmt.Errorf("%w: frame %d: %w", ErrAssemblerInput, s.Index, err)
		}
		cfg, _, err := image.DecodeConfig(f)
		f.Close()
		if err != nil {
			return nil, image.Point{}, fmt.Errorf("%w: frame %d: %w", ErrAssemblerInput, s.Index, err)
		}
		p := image.Pt(cfg.Width, cfg.Height)
		if i == 0 {
			size = p
			continue
		}
		if p != size {
			return nil, image.Point{}, fmt.Errorf("%w: frame %d is %dx%d, expected %dx%d",
				ErrAssemblerInput, s.Index, p.X, p.Y, size.X, size.Y)
		}
	}
	return sorted, size, nil
}
