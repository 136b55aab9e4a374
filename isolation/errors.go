package isolation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/richinsley/goshadergif/renderer"
)

var (
	// ErrUsage means the unit was started with bad arguments.
	ErrUsage = errors.New("invalid isolation unit arguments")

	// ErrSlotWrite means the frame rendered but its output file could not be written.
	ErrSlotWrite = errors.New("failed to write frame slot")

	// ErrFrameTimeout means the unit did not finish within its time budget.
	ErrFrameTimeout = errors.New("frame render timed out")

	// ErrFrameFailed covers crashes and failures without a more specific kind.
	ErrFrameFailed = errors.New("frame render failed")

	// ErrNoOutput means the unit exited cleanly without producing its slot.
	ErrNoOutput = errors.New("frame render produced no output")

	// ErrUnitUnavailable means no unit could be started at all. It is fatal to the job.
	ErrUnitUnavailable = errors.New("isolation unit unavailable")

	// ErrAborted means the caller cancelled the job. It is fatal to the job.
	ErrAborted = errors.New("job aborted")
)

// Exit statuses of the isolation unit.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitUsage         = 2
	ExitShaderCompile = 3
	ExitContext       = 4
	ExitDraw          = 5
	ExitSlotWrite     = 6
	ExitReadback      = 7
)

// ExitCode maps a unit-side error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, renderer.ErrShaderCompile):
		return ExitShaderCompile
	case errors.Is(err, renderer.ErrContextAcquisition):
		return ExitContext
	case errors.Is(err, renderer.ErrDraw):
		return ExitDraw
	case errors.Is(err, renderer.ErrReadback):
		return ExitReadback
	case errors.Is(err, ErrSlotWrite):
		return ExitSlotWrite
	}
	return ExitFailure
}

// ErrorForExit rebuilds a typed error from an exit status observed by the
// caller. detail is usually the tail of the unit's diagnostics.
func ErrorForExit(code int, detail string) error {
	var kind error
	switch code {
	case ExitOK:
		return nil
	case ExitUsage:
		kind = ErrUsage
	case ExitShaderCompile:
		kind = renderer.ErrShaderCompile
	case ExitContext:
		kind = renderer.ErrContextAcquisition
	case ExitDraw:
		kind = renderer.ErrDraw
	case ExitReadback:
		kind = renderer.ErrReadback
	case ExitSlotWrite:
		kind = ErrSlotWrite
	default:
		kind = ErrFrameFailed
	}

	detail = strings.TrimSpace(detail)
	if code < 0 {
		detail = strings.TrimSpace("terminated by signal " + detail)
	}
	if detail == "" {
		return fmt.Errorf("%w (exit status %d)", kind, code)
	}
	return fmt.Errorf("%w (exit status %d): %s", kind, code, detail)
}

// IsFatal reports whether err must abort the whole job rather than just the frame.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnitUnavailable) || errors.Is(err, ErrAborted)
}
