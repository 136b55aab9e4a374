package isolation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds one frame render.
	DefaultTimeout = 60 * time.Second
	stderrTailSize = 4096
)

// ProcessUnit runs every frame in a fresh child process of Path.
type ProcessUnit struct {
	Path string
	// Args are placed before the request's positional arguments.
	Args    []string
	Env     []string
	Timeout time.Duration
	// Stdout and Stderr receive the child's diagnostics. Nil discards them;
	// the last few KiB of stderr are kept for the error either way.
	Stdout io.Writer
	Stderr io.Writer
}

// NewProcessUnit returns a unit that re-executes the running binary with the
// worker subcommand.
func NewProcessUnit(timeout time.Duration) (*ProcessUnit, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnitUnavailable, err)
	}
	return &ProcessUnit{
		Path:    exe,
		Args:    []string{WorkerCommand},
		Timeout: timeout,
	}, nil
}

// Render blocks until the child exits, times out or the caller cancels ctx.
func (u *ProcessUnit) Render(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if u.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, u.Timeout)
	}
	defer cancel()

	args := append(append([]string{}, u.Args...), req.Args()...)
	cmd := exec.CommandContext(runCtx, u.Path, args...)
	cmd.Env = u.Env
	cmd.WaitDelay = 2 * time.Second

	tail := &tailBuffer{limit: stderrTailSize}
	cmd.Stdout = u.Stdout
	if u.Stderr != nil {
		cmd.Stderr = io.MultiWriter(tail, u.Stderr)
	} else {
		cmd.Stderr = tail
	}

	if err := os.Remove(req.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: clearing slot: %w", ErrSlotWrite, err)
	}

	runErr := cmd.Run()
	switch {
	case ctx.Err() != nil:
		os.Remove(req.OutputPath)
		return fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		os.Remove(req.OutputPath)
		return fmt.Errorf("%w after %s", ErrFrameTimeout, u.Timeout)
	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			os.Remove(req.OutputPath)
			return ErrorForExit(exitErr.ExitCode(), tail.String())
		}
		return fmt.Errorf("%w: %w", ErrUnitUnavailable, runErr)
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrNoOutput, req.OutputPath)
	}
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
