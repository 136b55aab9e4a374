package sequencer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshadergif/isolation"
	"github.com/richinsley/goshadergif/logging"
	"github.com/richinsley/goshadergif/renderer"
)

func TestTimeline(t *testing.T) {
	s := AnimationSpec{FrameRate: 15, DurationSeconds: 1, Width: 4, Height: 4}
	require.NoError(t, s.Validate())
	assert.Equal(t, 15, s.FrameCount())
	assert.Equal(t, 66666667*time.Nanosecond, s.Delay())

	ts := s.Timestamps()
	require.Len(t, ts, 15)
	for i, v := range ts {
		assert.Equal(t, float64(i)*(1.0/15), v)
	}
	assert.Equal(t, 0.0, ts[0])
	assert.InDelta(t, 14.0/15, ts[14], 1e-12)

	two := AnimationSpec{FrameRate: 2, DurationSeconds: 1, Width: 1, Height: 1}
	assert.Equal(t, []float64{0, 0.5}, two.Timestamps())
	assert.Equal(t, 500*time.Millisecond, two.Delay())

	assert.Equal(t, 3, AnimationSpec{FrameRate: 10, DurationSeconds: 0.25}.FrameCount(), "count is rounded")
}

func TestValidate(t *testing.T) {
	base := AnimationSpec{FrameRate: 15, DurationSeconds: 1, Width: 4, Height: 4}
	bad := []func(*AnimationSpec){
		func(s *AnimationSpec) { s.FrameRate = 0 },
		func(s *AnimationSpec) { s.DurationSeconds = -1 },
		func(s *AnimationSpec) { s.Width = 0 },
		func(s *AnimationSpec) { s.LoopCount = -1 },
		func(s *AnimationSpec) { s.DurationSeconds = 0.01 },
	}
	for i, mutate := range bad {
		s := base
		mutate(&s)
		assert.ErrorIs(t, s.Validate(), ErrInvalidAnimation, "case %d", i)
	}
}

func TestWorkspace(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	assert.DirExists(t, ws.Dir)
	assert.Equal(t, "frame00007.png", ws.SlotPath(7)[len(ws.Dir)+1:])
	assert.Less(t, ws.SlotPath(9), ws.SlotPath(10), "lexical order follows index order")

	require.NoError(t, os.WriteFile(ws.SlotPath(0), []byte("x"), 0o644))
	require.NoError(t, ws.Release())
	assert.NoDirExists(t, ws.Dir)
	assert.NoError(t, ws.Release())

	other, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	defer other.Release()
	assert.NotEqual(t, ws.Dir, other.Dir)
}

type recorder struct{ frames []Frame }

func (r *recorder) RecordFrame(f Frame) error {
	r.frames = append(r.frames, f)
	return nil
}

func TestRunContinuesPastFailures(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	defer ws.Release()

	var seen []isolation.Request
	unit := isolation.UnitFunc(func(ctx context.Context, req isolation.Request) error {
		seen = append(seen, req)
		if len(seen) == 3 {
			return fmt.Errorf("%w: boom", renderer.ErrShaderCompile)
		}
		return os.WriteFile(req.OutputPath, []byte("png"), 0o644)
	})
	rec := &recorder{}
	seq := &Sequencer{Unit: unit, Recorder: rec}

	anim := AnimationSpec{FrameRate: 5, DurationSeconds: 1, Width: 8, Height: 6}
	frames, err := seq.Run(context.Background(), anim, Plan{ShaderPath: "a.frag", Uniforms: `{"a":1}`, Workspace: ws})
	require.NoError(t, err)
	require.Len(t, frames, 5)
	assert.Len(t, rec.frames, 5)

	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, anim.Timestamp(i), f.Timestamp)
		assert.Equal(t, ws.SlotPath(i), f.Path)
		assert.Equal(t, seen[i].Time, f.Timestamp)
		assert.Equal(t, 8, seen[i].Width)
		assert.Equal(t, `{"a":1}`, seen[i].Uniforms)
	}
	assert.ErrorIs(t, frames[2].Err, renderer.ErrShaderCompile)

	sum := Summarize(frames)
	assert.Equal(t, Summary{Rendered: 4, Failed: 1}, sum)
}

func TestRunKeepsFrameFailuresOutOfQuietLog(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	defer ws.Release()

	unit := isolation.UnitFunc(func(ctx context.Context, req isolation.Request) error {
		return isolation.ErrorForExit(isolation.ExitShaderCompile, "ERROR: 0:3: 'x' : undeclared identifier")
	})
	anim := AnimationSpec{FrameRate: 3, DurationSeconds: 1, Width: 2, Height: 2}

	var out, errOut bytes.Buffer
	seq := &Sequencer{Unit: unit, Logger: logging.NewLogger(&out, &errOut, "goshadergif", false)}
	frames, err := seq.Run(context.Background(), anim, Plan{Workspace: ws})
	require.NoError(t, err)
	assert.Equal(t, Summary{Failed: 3}, Summarize(frames))
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	out.Reset()
	seq.Logger = logging.NewLogger(&out, &errOut, "goshadergif", true)
	_, err = seq.Run(context.Background(), anim, Plan{Workspace: ws})
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out.String(), "undeclared identifier"))
	assert.Empty(t, errOut.String())
}

func TestRunStopsOnFatal(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	defer ws.Release()

	calls := 0
	unit := isolation.UnitFunc(func(ctx context.Context, req isolation.Request) error {
		calls++
		if calls == 2 {
			return fmt.Errorf("%w: exec format error", isolation.ErrUnitUnavailable)
		}
		return nil
	})

	frames, err := (&Sequencer{Unit: unit}).Run(context.Background(),
		AnimationSpec{FrameRate: 4, DurationSeconds: 1, Width: 2, Height: 2}, Plan{Workspace: ws})
	require.ErrorIs(t, err, isolation.ErrUnitUnavailable)
	assert.Len(t, frames, 1)
	assert.Equal(t, 2, calls)
}

func TestRunRejectsInvalidAnimation(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	defer ws.Release()

	_, err = (&Sequencer{}).Run(context.Background(), AnimationSpec{}, Plan{Workspace: ws})
	assert.ErrorIs(t, err, ErrInvalidAnimation)
}

func TestSummarizeFlagsExhaustion(t *testing.T) {
	ctxErr := fmt.Errorf("%w: EGL_BAD_ALLOC", renderer.ErrContextAcquisition)
	frames := []Frame{{Index: 0}, {Index: 1, Err: ctxErr}, {Index: 2, Err: ctxErr}, {Index: 3, Err: errors.New("x")}}
	sum := Summarize(frames)
	assert.Equal(t, 1, sum.Rendered)
	assert.Equal(t, 3, sum.Failed)
	assert.True(t, sum.Exhausted)

	assert.False(t, Summarize(frames[:1]).Exhausted)
	assert.False(t, Summarize(nil).Exhausted)
}
