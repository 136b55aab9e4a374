package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richinsley/goshadergif/isolation"
	"github.com/richinsley/goshadergif/logging"
	"github.com/richinsley/goshadergif/renderer"
)

// Frame is the outcome of one render. Path is only meaningful when Err is nil.
type Frame struct {
	Index     int
	Timestamp float64
	Path      string
	Err       error
	Elapsed   time.Duration
}

func (f Frame) OK() bool { return f.Err == nil }

// Recorder is told about every finished frame, successful or not.
type Recorder interface {
	RecordFrame(f Frame) error
}

// Plan carries the per-job inputs shared by every frame.
type Plan struct {
	ShaderPath string
	Uniforms   string // canonical override document
	Workspace  *Workspace
}

type Sequencer struct {
	Unit     isolation.Unit
	Logger   logging.Logger
	Recorder Recorder
}

// Run renders every frame of anim in index order, one at a time. A frame
// failure is recorded and the loop moves on. A fatal error stops the loop and
// is returned with the frames finished before it.
func (s *Sequencer) Run(ctx context.Context, anim AnimationSpec, plan Plan) ([]Frame, error) {
	if err := anim.Validate(); err != nil {
		return nil, err
	}
	if plan.Workspace == nil {
		return nil, errors.New("sequencer: no workspace")
	}
	logger := logging.OrNop(s.Logger)

	count := anim.FrameCount()
	frames := make([]Frame, 0, count)
	for i := 0; i < count; i++ {
		f := Frame{
			Index:     i,
			Timestamp: anim.Timestamp(i),
			Path:      plan.Workspace.SlotPath(i),
		}
		req := isolation.Request{
			Width:      anim.Width,
			Height:     anim.Height,
			ShaderPath: plan.ShaderPath,
			Time:       f.Timestamp,
			Uniforms:   plan.Uniforms,
			OutputPath: f.Path,
		}

		start := time.Now()
		f.Err = s.Unit.Render(ctx, req)
		f.Elapsed = time.Since(start)

		if isolation.IsFatal(f.Err) {
			return frames, fmt.Errorf("frame %d: %w", i, f.Err)
		}
		// per-frame detail stays at debug level, the caller reports totals
		if f.Err != nil {
			logger.Debugf("frame %d/%d at t=%.3fs failed: %v", i+1, count, f.Timestamp, f.Err)
		} else {
			logger.Debugf("frame %d/%d at t=%.3fs rendered in %s", i+1, count, f.Timestamp, f.Elapsed.Round(time.Millisecond))
		}
		if s.Recorder != nil {
			if err := s.Recorder.RecordFrame(f); err != nil {
				logger.Warnf("recording frame %d: %v", i, err)
			}
		}
		frames = append(frames, f)
	}
	return frames, nil
}

type Summary struct {
	Rendered int
	Failed   int
	// Exhausted is set when at least half of the frames could not get a
	// graphics context, which usually means the host ran out of GPU resources.
	Exhausted bool
}

func Summarize(frames []Frame) Summary {
	var sum Summary
	contextFailures := 0
	for _, f := range frames {
		if f.OK() {
			sum.Rendered++
			continue
		}
		sum.Failed++
		if errors.Is(f.Err, renderer.ErrContextAcquisition) {
			contextFailures++
		}
	}
	sum.Exhausted = len(frames) > 0 && contextFailures*2 >= len(frames)
	return sum
}
