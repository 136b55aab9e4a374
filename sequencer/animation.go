// Package sequencer samples a shader over time, one isolated render per frame.
package sequencer

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidAnimation = errors.New("invalid animation parameters")

// AnimationSpec describes the timeline and size of one animation.
type AnimationSpec struct {
	FrameRate       float64
	DurationSeconds float64
	Width           int
	Height          int
	LoopCount       int // 0 loops forever
}

func (s AnimationSpec) Validate() error {
	switch {
	case !(s.FrameRate > 0) || math.IsInf(s.FrameRate, 0):
		return fmt.Errorf("%w: frame rate %g", ErrInvalidAnimation, s.FrameRate)
	case !(s.DurationSeconds > 0) || math.IsInf(s.DurationSeconds, 0):
		return fmt.Errorf("%w: duration %g", ErrInvalidAnimation, s.DurationSeconds)
	case s.Width <= 0 || s.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidAnimation, s.Width, s.Height)
	case s.LoopCount < 0:
		return fmt.Errorf("%w: loop count %d", ErrInvalidAnimation, s.LoopCount)
	case s.FrameCount() < 1:
		return fmt.Errorf("%w: %g fps for %gs yields no frames", ErrInvalidAnimation, s.FrameRate, s.DurationSeconds)
	}
	return nil
}

// FrameCount is round(FrameRate * DurationSeconds).
func (s AnimationSpec) FrameCount() int {
	return int(math.Round(s.FrameRate * s.DurationSeconds))
}

// DelaySeconds is the time between two consecutive frames.
func (s AnimationSpec) DelaySeconds() float64 {
	return 1 / s.FrameRate
}

// Delay is DelaySeconds as a Duration.
func (s AnimationSpec) Delay() time.Duration {
	return time.Duration(math.Round(float64(time.Second) / s.FrameRate))
}

// Timestamp of frame i in seconds. It is a product, never a running sum, so
// rounding error does not accumulate over long animations.
func (s AnimationSpec) Timestamp(i int) float64 {
	return float64(i) * s.DelaySeconds()
}

func (s AnimationSpec) Timestamps() []float64 {
	ts := make([]float64, s.FrameCount())
	for i := range ts {
		ts[i] = s.Timestamp(i)
	}
	return ts
}
