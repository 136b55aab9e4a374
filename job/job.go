// Package job wires one animation run together: shader and uniforms are
// checked up front, frames are rendered through the isolation unit, and the
// surviving stills are assembled into the output file.
package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/richinsley/goshadergif/encoder"
	"github.com/richinsley/goshadergif/isolation"
	"github.com/richinsley/goshadergif/journal"
	"github.com/richinsley/goshadergif/logging"
	"github.com/richinsley/goshadergif/options"
	"github.com/richinsley/goshadergif/sequencer"
	"github.com/richinsley/goshadergif/shader"
	"github.com/richinsley/goshadergif/uniforms"
)

// ErrIncomplete is returned in strict mode when any frame failed.
var ErrIncomplete = errors.New("animation incomplete")

type Result struct {
	Output   string
	Rendered int
	Failed   int
	Frames   []sequencer.Frame
	RunID    string // journal run id, empty without a journal
}

type Runner struct {
	Unit      isolation.Unit
	Assembler encoder.Assembler
	Logger    logging.Logger
	// Recorder, when set, sees every frame in addition to the journal.
	Recorder sequencer.Recorder
	Journal  *journal.Journal
}

// Run renders and assembles the animation described by opts. The result is
// returned whenever frames were attempted, even alongside an error.
func (r *Runner) Run(ctx context.Context, opts *options.Options) (*Result, error) {
	logger := logging.OrNop(r.Logger)

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	src, err := shader.Load(opts.ShaderPath)
	if err != nil {
		return nil, err
	}
	if !src.IsGLSL() {
		logger.Warnf("%s looks like %s, not GLSL; compiling it anyway", opts.ShaderPath, src.Language)
	}

	doc, err := r.acceptedUniforms(opts, logger)
	if err != nil {
		return nil, err
	}

	anim := sequencer.AnimationSpec{
		FrameRate:       opts.FrameRate,
		DurationSeconds: opts.Duration,
		Width:           opts.Width,
		Height:          opts.Height,
		LoopCount:       opts.LoopCount,
	}
	if err := anim.Validate(); err != nil {
		return nil, err
	}

	ws, err := sequencer.NewWorkspace(opts.TempDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			logger.Warnf("removing workspace %s: %v", ws.Dir, err)
		}
	}()
	logger.Debugf("workspace %s", ws.Dir)

	result := &Result{Output: opts.OutputFile}
	run := r.beginRun(opts, logger)
	if run != nil {
		result.RunID = run.ID
	}

	logger.Infof("rendering %d frames of %dx%d at %g fps", anim.FrameCount(), anim.Width, anim.Height, anim.FrameRate)
	seq := &sequencer.Sequencer{Unit: r.Unit, Logger: logger, Recorder: r.recorder(run)}
	frames, err := seq.Run(ctx, anim, sequencer.Plan{ShaderPath: opts.ShaderPath, Uniforms: doc, Workspace: ws})
	result.Frames = frames

	sum := sequencer.Summarize(frames)
	result.Rendered, result.Failed = sum.Rendered, sum.Failed
	if err != nil {
		finishRun(run, journal.StatusFailed, sum, logger)
		return result, err
	}
	if sum.Exhausted {
		logger.Warnf("%d of %d frames could not get a graphics context; the GPU or display may be out of resources", sum.Failed, len(frames))
	}

	if sum.Rendered == 0 {
		finishRun(run, journal.StatusFailed, sum, logger)
		return result, fmt.Errorf("%w: none of %d frames rendered", encoder.ErrAssemblerInput, len(frames))
	}
	if opts.Strict && sum.Failed > 0 {
		finishRun(run, journal.StatusFailed, sum, logger)
		return result, fmt.Errorf("%w: %d of %d frames failed", ErrIncomplete, sum.Failed, len(frames))
	}

	stills := make([]encoder.Still, 0, sum.Rendered)
	for _, f := range frames {
		if f.OK() {
			stills = append(stills, encoder.Still{Index: f.Index, Path: f.Path})
		}
	}
	err = r.Assembler.Assemble(ctx, stills, encoder.Options{
		Output:    opts.OutputFile,
		Delay:     anim.Delay(),
		LoopCount: anim.LoopCount,
	})
	if err != nil {
		finishRun(run, journal.StatusFailed, sum, logger)
		return result, fmt.Errorf("assembling %s: %w", opts.OutputFile, err)
	}

	status := journal.StatusComplete
	if sum.Failed > 0 {
		status = journal.StatusPartial
	}
	finishRun(run, status, sum, logger)
	return result, nil
}

// acceptedUniforms returns the canonical override document every frame receives.
func (r *Runner) acceptedUniforms(opts *options.Options, logger logging.Logger) (string, error) {
	overrides, err := uniforms.ParseOverrides(opts.Uniforms)
	if err != nil {
		if opts.StrictUniforms {
			return "", err
		}
		logger.Warnf("%v; rendering with default uniforms", err)
		overrides = uniforms.NewSet(nil)
	}

	accepted, err := uniforms.Accept(uniforms.Defaults(opts.Width, opts.Height), overrides)
	if err != nil {
		if opts.StrictUniforms {
			return "", err
		}
		logger.Warnf("%v", err)
	}
	for _, name := range accepted.Names() {
		v, _ := accepted.Get(name)
		logger.Debugf("uniform %s = %s", name, v)
	}

	doc, err := json.Marshal(accepted)
	if err != nil {
		return "", err
	}
	return string(doc), nil
}

func (r *Runner) beginRun(opts *options.Options, logger logging.Logger) *journal.Run {
	if r.Journal == nil {
		return nil
	}
	run, err := r.Journal.Begin(journal.RunInfo{
		Shader:    opts.ShaderPath,
		Width:     opts.Width,
		Height:    opts.Height,
		FrameRate: opts.FrameRate,
		Duration:  opts.Duration,
		Output:    opts.OutputFile,
	})
	if err != nil {
		logger.Warnf("journal: %v", err)
		return nil
	}
	return run
}

func (r *Runner) recorder(run *journal.Run) sequencer.Recorder {
	switch {
	case run == nil:
		return r.Recorder
	case r.Recorder == nil:
		return run
	}
	return recorders{run, r.Recorder}
}

func finishRun(run *journal.Run, status string, sum sequencer.Summary, logger logging.Logger) {
	if run == nil {
		return
	}
	if err := run.Finish(status, sum.Rendered, sum.Failed); err != nil {
		logger.Warnf("journal: %v", err)
	}
}

type recorders []sequencer.Recorder

func (rs recorders) RecordFrame(f sequencer.Frame) error {
	var errs []error
	for _, r := range rs {
		errs = append(errs, r.RecordFrame(f))
	}
	return errors.Join(errs...)
}
