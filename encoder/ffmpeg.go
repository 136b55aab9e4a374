package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/goshadergif/logging"
)

const stagedPattern = "still%05d.png"

// FFmpegAssembler hands the stills to an ffmpeg binary, which builds an
// optimized palette before encoding the GIF.
type FFmpegAssembler struct {
	// FFmpegPath overrides the ffmpeg found on PATH.
	FFmpegPath string
	// Stderr receives ffmpeg's log output. Nil discards it.
	Stderr io.Writer
	Logger logging.Logger
}

func (a *FFmpegAssembler) Assemble(ctx context.Context, stills []Still, opts Options) error {
	sorted, _, err := prepare(stills, opts)
	if err != nil {
		return err
	}

	stage, err := os.MkdirTemp(filepath.Dir(sorted[0].Path), "ffmpeg-stage-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(stage)

	// failed frames leave gaps in the slot numbering, the image2 demuxer
	// needs a contiguous run
	for i, s := range sorted {
		if err := stageFile(s.Path, filepath.Join(stage, fmt.Sprintf(stagedPattern, i))); err != nil {
			return fmt.Errorf("staging frame %d: %w", s.Index, err)
		}
	}

	var stderr strings.Builder
	errOut := io.Writer(&stderr)
	if a.Stderr != nil {
		errOut = io.MultiWriter(&stderr, a.Stderr)
	}

	cmd := a.command(filepath.Join(stage, stagedPattern), opts).WithErrorOutput(errOut).Compile()
	logging.OrNop(a.Logger).Debugf("running %s", strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err = <-done:
	case <-ctx.Done():
		cmd.Process.Kill()
		<-done
		os.Remove(opts.Output)
		return ctx.Err()
	}
	if err != nil {
		os.Remove(opts.Output)
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

func (a *FFmpegAssembler) command(pattern string, opts Options) *ffmpeg.Stream {
	rate := strconv.FormatFloat(float64(time.Second)/float64(opts.Delay), 'g', -1, 64)
	split := ffmpeg.Input(pattern, ffmpeg.KwArgs{
		"f":            "image2",
		"framerate":    rate,
		"start_number": 0,
	}).Split()

	palette := split.Get("0").Filter("palettegen", ffmpeg.Args{})
	stream := ffmpeg.Filter([]*ffmpeg.Stream{split.Get("1"), palette}, "paletteuse", ffmpeg.Args{}).
		Output(opts.Output, ffmpeg.KwArgs{"loop": opts.LoopCount}).
		OverWriteOutput().
		Silent(true)

	if a.FFmpegPath != "" {
		stream = stream.SetFfmpegPath(a.FFmpegPath)
	}
	return stream
}

// stageFile hard links src to dst, copying when the filesystem refuses.
func stageFile(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	return errors.Join(err, out.Close())
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
