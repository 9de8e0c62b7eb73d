// Package handler implements the Handler Runtime of spec.md §4.1: the
// eight-phase state machine that drives one submitted input from resolve
// through notify. Ported from the teacher's CloseArtifact/MergeLogChunks
// switch-driven state transitions (server.go / api/artifacthandler.go),
// generalized from a two/three-state HTTP-request lifecycle to an
// eight-phase table-driven loop — a hand-written switch stops being the
// clearer shape once there are this many phases in a fixed order.
package handler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"github.com/aodn/pipeline/checker"
	"github.com/aodn/pipeline/common/handlerctx"
	"github.com/aodn/pipeline/common/sentry"
	"github.com/aodn/pipeline/common/stats"
	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/notify"
	"github.com/aodn/pipeline/pipelineerr"
	"github.com/aodn/pipeline/publisher"
	"github.com/aodn/pipeline/resolver"
	"github.com/aodn/pipeline/storage"
)

// Handler wires every phase's collaborator for one registered handler
// definition (spec.md §6 "Handler: {name, path function, check suites,
// hooks}"). A single Handler value is reused across many Execute calls,
// one per submitted input — Execute itself carries no mutable Handler
// state, only the model.HandlerState passed into it.
type Handler struct {
	Name string

	Resolver     *resolver.Resolver
	Checker      *checker.Checker
	Publisher    *publisher.Publisher
	Notifier     notify.Notifier
	Capabilities Capabilities

	// ErrorBroker, when non-nil, receives a copy of the submitted input
	// under its base name whenever an execution ends in a failure
	// disposition, so an operator can inspect what came in (spec.md §6
	// "Files may be moved to an error URI on failure"). Best-effort: a
	// failure to deposit the copy is logged, never escalated.
	ErrorBroker storage.StorageBroker

	// PathFunc assigns PublishType/DestPath/ArchivePath to every resolved
	// file before checking begins (spec.md §4.2). Required.
	PathFunc func(*model.PipelineFile)

	// FilterRegex, when non-nil, is handed to Resolver before resolve runs.
	FilterRegex *regexp.Regexp

	// ContinueOnCheckFailure allows process/publish to proceed over the
	// files that passed even when some file in the collection failed its
	// check (spec.md §4.4: a failed file is excluded from any subsequent
	// publish action, but need not abort the whole run).
	ContinueOnCheckFailure bool

	Recipients []string
}

// phase pairs a State with the function that executes it. fn returning a
// non-nil error aborts the remaining phases and routes to notify with a
// failure disposition (spec.md §4.1, §9 error-propagation rule).
type phase struct {
	state State
	fn    func(ctx context.Context, state *model.HandlerState) error
}

// State re-exports model.State so callers outside this package describing
// a handler's progress don't need to import model directly for it.
type State = model.State

// Result is returned by Execute once a handler run reaches a terminal
// state.
type Result struct {
	Disposition model.Disposition
	Report      *model.PublishReport
	Err         error
}

// Execute drives state from Created through to Succeeded or Failed,
// running each phase in order and stopping at the first error, then always
// running notify regardless of how the prior phases ended (spec.md §4.1,
// §4.6). One HandlerState drives exactly one execution; a second Execute
// call on the same state is rejected.
func (h *Handler) Execute(ctx context.Context, state *model.HandlerState) (*Result, error) {
	if !state.Begin() {
		return nil, pipelineerr.NewInvariantViolation("handler state for %q has already been executed", state.InputPath)
	}

	ctx = handlerctx.WithState(ctx, state)
	stats.ExecutionStarted()

	// Scratch lifecycle: initialise carves a unique directory out of the
	// configured scratch root; teardown removes it whatever the outcome
	// (spec.md §5). Comparing against the pre-execution root ensures a run
	// that never reached initialise cannot remove the shared root itself.
	scratchRoot := state.ScratchDir
	defer func() {
		if state.ScratchDir != scratchRoot && state.ScratchDir != "" {
			_ = os.RemoveAll(state.ScratchDir)
		}
	}()

	caps := h.Capabilities.normalise()

	phases := []phase{
		{model.StateInitialise, h.initialise},
		{model.StateResolve, h.resolve},
		{model.StatePreprocess, wrapHook(caps.Preprocess)},
		{model.StateCheck, h.check},
		{model.StateProcess, wrapHook(caps.Process)},
		{model.StatePublish, h.publish},
		{model.StatePostprocess, wrapHook(caps.Postprocess)},
	}

	var phaseErr error
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			state.Result = model.DispositionCancelled
			phaseErr = err
			break
		}

		state.Phase = p.state
		if err := p.fn(ctx, state); err != nil {
			state.PhaseError = err
			phaseErr = err
			state.Result = dispositionFor(p.state, err)
			break
		}
	}

	if phaseErr == nil {
		state.Result = model.DispositionSuccess
	}

	switch state.Result {
	case model.DispositionSuccess:
		stats.ExecutionSucceeded()
	case model.DispositionCheckFailed:
		// Expected failure class (spec.md §7): counted as a failed run but
		// not reported as a system error.
		stats.ExecutionFailed()
	case model.DispositionCancelled:
		stats.ExecutionCancelled()
	default:
		stats.ExecutionFailed()
		sentry.ReportError(ctx, phaseErr)
	}

	switch state.Result {
	case model.DispositionFailed, model.DispositionSystemError:
		h.depositErrorCopy(ctx, state)
	}

	state.Phase = model.StateNotify
	report := model.BuildPublishReport(state.Result, state.Files)
	h.notify(ctx, state, report)

	if state.Result == model.DispositionSuccess {
		state.Phase = model.StateSucceeded
	} else {
		state.Phase = model.StateFailed
	}

	return &Result{Disposition: state.Result, Report: report, Err: phaseErr}, phaseErr
}

// wrapHook adapts a HookFunc to the phase function shape. A panicking hook
// is reported to Sentry and converted into a handler_hook_error rather
// than re-raised: the notify guarantee (spec.md §4.1, §8 "notify always
// runs") lives inside Execute, so a panic must not unwind past the phase
// loop. A returned error is likewise tagged handler_hook_error so the
// terminal disposition reflects the hook as the failing party (spec.md §7).
func wrapHook(hook HookFunc) func(context.Context, *model.HandlerState) error {
	return func(ctx context.Context, state *model.HandlerState) (err error) {
		defer func() {
			if e := recover(); e != nil {
				sentry.ReportPanic(ctx, e)
				err = pipelineerr.NewHandlerHookError("handler hook panicked: %v", e)
			}
		}()

		if hookErr := hook(ctx, state.Files); hookErr != nil {
			var pe *pipelineerr.Error
			if errors.As(hookErr, &pe) {
				return hookErr
			}
			return pipelineerr.WrapHandlerHookError(hookErr)
		}
		return nil
	}
}

// dispositionFor maps a failed phase's error onto a terminal disposition:
// check failures are an expected class, invariant violations surface as
// system_error, and everything else is a plain failed run (spec.md §7
// "Any non-check error propagates to runtime, which records it and jumps
// to notify with failed disposition").
func dispositionFor(failedPhase model.State, err error) model.Disposition {
	var pe *pipelineerr.Error
	if errors.As(err, &pe) {
		switch {
		case pe.IsCheckFailure():
			return model.DispositionCheckFailed
		case pe.IsInvariantViolation():
			return model.DispositionSystemError
		default:
			return model.DispositionFailed
		}
	}
	if failedPhase == model.StateCheck {
		return model.DispositionCheckFailed
	}
	return model.DispositionFailed
}

// initialise validates the handler's wiring and creates the per-execution
// scratch directory under the configured scratch root (spec.md §5:
// "scratch directories are per-instance (unique path)").
func (h *Handler) initialise(ctx context.Context, state *model.HandlerState) error {
	if h.PathFunc == nil {
		return pipelineerr.NewInvariantViolation("handler %q has no configured path function", h.Name)
	}

	if err := os.MkdirAll(state.ScratchDir, 0o755); err != nil {
		return pipelineerr.WrapInvalidInput(err)
	}
	scratch, err := os.MkdirTemp(state.ScratchDir, h.Name+"_")
	if err != nil {
		return pipelineerr.WrapInvalidInput(err)
	}
	state.ScratchDir = scratch
	return nil
}

func (h *Handler) resolve(ctx context.Context, state *model.HandlerState) error {
	if h.Resolver == nil {
		return pipelineerr.NewInvariantViolation("handler %q has no configured resolver", h.Name)
	}

	// Copy the shared resolver so concurrent executions of the same
	// Handler never see each other's scratch directory or filter.
	res := *h.Resolver
	res.ScratchDir = state.ScratchDir
	res.FilterRegex = h.FilterRegex

	files, err := res.Resolve(state.InputPath)
	if err != nil {
		return err
	}
	state.Files = files

	for _, f := range state.Files.All() {
		h.PathFunc(f)
	}
	return nil
}

func (h *Handler) check(ctx context.Context, state *model.HandlerState) error {
	if h.Checker == nil {
		return pipelineerr.NewInvariantViolation("handler %q has no configured checker", h.Name)
	}

	anyFailed := h.Checker.CheckAll(state.Files)
	if anyFailed && !h.ContinueOnCheckFailure {
		return pipelineerr.NewCheckFailure("one or more files in %q failed check", state.InputPath)
	}
	return nil
}

func (h *Handler) publish(ctx context.Context, state *model.HandlerState) error {
	if h.Publisher == nil {
		return pipelineerr.NewInvariantViolation("handler %q has no configured publisher", h.Name)
	}
	return h.Publisher.Publish(ctx, state.Files)
}

// depositErrorCopy places the submitted input at the error sink under its
// base name for operator inspection. Errors here are logged only; the run
// is already failed.
func (h *Handler) depositErrorCopy(ctx context.Context, state *model.HandlerState) {
	if h.ErrorBroker == nil {
		return
	}
	if _, err := os.Stat(state.InputPath); err != nil {
		return
	}
	if err := h.ErrorBroker.Put(ctx, state.InputPath, filepath.Base(state.InputPath)); err != nil && state.Logger != nil {
		state.Logger.Error().Err(err).Str("input", state.InputPath).Msg("could not deposit input at error sink")
	}
}

// notify always runs, and its own failure is logged, never propagated
// (spec.md §9 Open Question: log-and-continue).
func (h *Handler) notify(ctx context.Context, state *model.HandlerState, report *model.PublishReport) {
	if h.Notifier == nil {
		return
	}
	if err := h.Notifier.Send(ctx, report, h.Recipients); err != nil {
		stats.NotificationFailed()
		if state.Logger != nil {
			state.Logger.Error().Err(err).Str("handler", h.Name).Msg("notify failed")
		}
	}
}
