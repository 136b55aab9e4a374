package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/goshadergif/sequencer"
)

func TestJournalRecordsRun(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "state", "runs.db"))
	require.NoError(t, err)
	defer j.Close()

	info := RunInfo{Shader: "wave.frag", Width: 600, Height: 400, FrameRate: 15, Duration: 1, Output: "out.gif"}
	run, err := j.Begin(info)
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)

	require.NoError(t, run.RecordFrame(sequencer.Frame{Index: 0, Timestamp: 0, Elapsed: 120 * time.Millisecond}))
	require.NoError(t, run.RecordFrame(sequencer.Frame{Index: 1, Timestamp: 1.0 / 15, Err: errors.New("shader compilation failed")}))

	runs, err := j.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.Equal(t, info, runs[0].Info)
	assert.True(t, runs[0].FinishedAt.IsZero())

	require.NoError(t, run.Finish(StatusPartial, 1, 1))
	runs, err = j.Runs()
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, runs[0].Status)
	assert.Equal(t, 1, runs[0].Rendered)
	assert.Equal(t, 1, runs[0].Failed)
	assert.False(t, runs[0].FinishedAt.Before(runs[0].StartedAt))

	frames, err := j.Frames(run.ID)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, FrameRecord{Index: 0, Timestamp: 0, Status: "rendered", Elapsed: 120 * time.Millisecond}, frames[0])
	assert.Equal(t, "failed", frames[1].Status)
	assert.Equal(t, "shader compilation failed", frames[1].Error)
}

func TestJournalReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Begin(RunInfo{Shader: "a.frag", Width: 1, Height: 1, FrameRate: 1, Duration: 1, Output: "a.gif"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	_, err = j.Begin(RunInfo{Shader: "b.frag", Width: 1, Height: 1, FrameRate: 1, Duration: 1, Output: "b.gif"})
	require.NoError(t, err)

	runs, err := j.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
