package options

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	AssemblerGIF    = "gif"
	AssemblerFFmpeg = "ffmpeg"
)

// ErrInvalid is wrapped by every Validate and ParseSize failure.
var ErrInvalid = errors.New("invalid options")

// Options holds everything one animation job needs, as set from the command line.
type Options struct {
	ShaderPath     string
	OutputFile     string
	FrameRate      float64
	Duration       float64 // seconds
	Width          int
	Height         int
	Uniforms       string // JSON override document
	LoopCount      int    // 0 loops forever
	Verbose        bool
	Strict         bool // any failed frame fails the job
	StrictUniforms bool // a malformed override document fails the job
	FrameTimeout   time.Duration
	Assembler      string
	FFMPEGPath     string
	JournalPath    string
	TempDir        string
}

// Default returns the options used when no flag overrides them.
func Default() *Options {
	return &Options{
		OutputFile:   "out.gif",
		FrameRate:    15,
		Duration:     1,
		Width:        600,
		Height:       600,
		Uniforms:     "{}",
		FrameTimeout: 60 * time.Second,
		Assembler:    AssemblerGIF,
	}
}

// ParseSize parses "WIDTHxHEIGHT".
func ParseSize(s string) (width, height int, err error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: size %q is not WIDTHxHEIGHT", ErrInvalid, s)
	}
	width, werr := strconv.Atoi(w)
	height, herr := strconv.Atoi(h)
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: size %q must be two positive integers", ErrInvalid, s)
	}
	return width, height, nil
}

func (o *Options) Validate() error {
	var errs []error
	if o.ShaderPath == "" {
		errs = append(errs, errors.New("a shader file is required"))
	}
	if o.OutputFile == "" {
		errs = append(errs, errors.New("output file is empty"))
	}
	if o.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("frame rate must be positive, got %g", o.FrameRate))
	}
	if o.Duration <= 0 {
		errs = append(errs, fmt.Errorf("length must be positive, got %g", o.Duration))
	}
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("size must be positive, got %dx%d", o.Width, o.Height))
	}
	if o.LoopCount < 0 {
		errs = append(errs, fmt.Errorf("loop count must not be negative, got %d", o.LoopCount))
	}
	if o.FrameTimeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", o.FrameTimeout))
	}
	switch o.Assembler {
	case AssemblerGIF, AssemblerFFmpeg:
	default:
		errs = append(errs, fmt.Errorf("unknown assembler %q (want %s or %s)", o.Assembler, AssemblerGIF, AssemblerFFmpeg))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
