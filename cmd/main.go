package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	encoder "github.com/richinsley/goshadergif/encoder"
	isolation "github.com/richinsley/goshadergif/isolation"
	job "github.com/richinsley/goshadergif/job"
	journal "github.com/richinsley/goshadergif/journal"
	logging "github.com/richinsley/goshadergif/logging"
	offscreen "github.com/richinsley/goshadergif/offscreen"
	options "github.com/richinsley/goshadergif/options"
	worker "github.com/richinsley/goshadergif/worker"
)

func init() {
	// GL contexts are bound to the thread that created them
	runtime.LockOSThread()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == isolation.WorkerCommand {
		code := worker.Run(ctx, os.Args[2:], offscreen.Open, os.Stderr)
		stop()
		os.Exit(code)
	}

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := run(ctx, opts)
	stop()
	os.Exit(code)
}

func parseFlags(args []string) (*options.Options, error) {
	opts := options.Default()
	size := fmt.Sprintf("%dx%d", opts.Width, opts.Height)

	fs := flag.NewFlagSet("goshadergif", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: goshadergif [flags] <shader.frag>\n\nRenders a fragment shader to an animated GIF.\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.OutputFile, "out", opts.OutputFile, "Output file name")
	fs.StringVar(&opts.OutputFile, "o", opts.OutputFile, "Shorthand for -out")
	fs.Float64Var(&opts.FrameRate, "rate", opts.FrameRate, "Frames per second")
	fs.Float64Var(&opts.FrameRate, "r", opts.FrameRate, "Shorthand for -rate")
	fs.Float64Var(&opts.Duration, "length", opts.Duration, "Length of the animation in seconds")
	fs.Float64Var(&opts.Duration, "l", opts.Duration, "Shorthand for -length")
	fs.StringVar(&size, "size", size, "Output size as WIDTHxHEIGHT")
	fs.StringVar(&size, "s", size, "Shorthand for -size")
	fs.StringVar(&opts.Uniforms, "uniform", opts.Uniforms, "JSON object of extra uniform values, e.g. '{\"speed\": 2, \"tint\": [1, 0.5, 0]}'")
	fs.StringVar(&opts.Uniforms, "u", opts.Uniforms, "Shorthand for -uniform")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Show per-frame progress and renderer diagnostics")
	fs.BoolVar(&opts.Verbose, "V", false, "Shorthand for -verbose")
	fs.IntVar(&opts.LoopCount, "loop", opts.LoopCount, "Number of times the animation repeats, 0 loops forever")
	fs.BoolVar(&opts.Strict, "strict", false, "Fail when any frame fails to render")
	fs.BoolVar(&opts.StrictUniforms, "strict-uniforms", false, "Fail on a malformed -uniform document instead of using defaults")
	fs.DurationVar(&opts.FrameTimeout, "timeout", opts.FrameTimeout, "Time limit for rendering one frame, 0 disables it")
	fs.StringVar(&opts.Assembler, "assembler", opts.Assembler, "GIF encoder: gif (built in) or ffmpeg")
	fs.StringVar(&opts.FFMPEGPath, "ffmpeg", "", "Path to ffmpeg executable")
	fs.StringVar(&opts.JournalPath, "journal", "", "Record runs and frame outcomes in this sqlite database (\"default\" for the user cache dir)")
	fs.StringVar(&opts.TempDir, "tmpdir", "", "Directory for intermediate frames (default: system temp dir)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one shader file, got %d arguments", fs.NArg())
	}
	opts.ShaderPath = fs.Arg(0)

	w, h, err := options.ParseSize(size)
	if err != nil {
		return nil, err
	}
	opts.Width, opts.Height = w, h

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(ctx context.Context, opts *options.Options) int {
	logger := logging.NewDefaultLogger("goshadergif", opts.Verbose)

	unit, err := isolation.NewProcessUnit(opts.FrameTimeout)
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	if opts.Verbose {
		unit.Stdout = os.Stderr
		unit.Stderr = os.Stderr
	}

	runner := &job.Runner{
		Unit:      unit,
		Assembler: newAssembler(opts, logger),
		Logger:    logger,
	}

	if opts.JournalPath == "default" {
		if opts.JournalPath, err = journal.DefaultPath(); err != nil {
			logger.Warnf("journal disabled: %v", err)
			opts.JournalPath = ""
		}
	}
	if opts.JournalPath != "" {
		j, err := journal.Open(opts.JournalPath)
		if err != nil {
			logger.Warnf("journal disabled: %v", err)
		} else {
			defer j.Close()
			runner.Journal = j
		}
	}

	start := time.Now()
	res, err := runner.Run(ctx, opts)
	if err != nil {
		logger.Errorf("%v", err)
		if res != nil {
			log.Printf("%d frames rendered, %d failed", res.Rendered, res.Failed)
		}
		return 1
	}

	log.Printf("Wrote %s: %d frames rendered, %d failed in %s", res.Output, res.Rendered, res.Failed, time.Since(start).Round(time.Millisecond))
	return 0
}

func newAssembler(opts *options.Options, logger logging.Logger) encoder.Assembler {
	if opts.Assembler == options.AssemblerFFmpeg {
		a := &encoder.FFmpegAssembler{FFmpegPath: opts.FFMPEGPath, Logger: logger}
		if opts.Verbose {
			a.Stderr = os.Stderr
		}
		return a
	}
	return encoder.GIFAssembler{}
}
