package model

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// HandlerState is the per-execution record threaded through the Handler
// Runtime's phases (spec.md §3 "Handler State"). It plays the role the
// teacher's *http.Request/reqcontext pairing played for a single API call,
// generalized to a single handler execution that has no HTTP request at
// all once it leaves cmd/pipelined.
type HandlerState struct {
	Ctx    context.Context
	Logger *zerolog.Logger

	InputPath string

	Phase      State
	PhaseError error
	Result     Disposition

	Files      *FileCollection
	ScratchDir string

	HandlerName string
	Params      map[string]string

	mu      sync.Mutex
	started bool
}

// Begin marks the state as having entered execution, returning false if it
// had already begun. One HandlerState drives exactly one execution;
// re-entering a completed (or in-flight) state is rejected rather than
// partially re-run.
func (s *HandlerState) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.started = true
	return true
}

// NewHandlerState constructs the initial state for one execution of
// handlerName against inputPath, rooted at scratchDir.
func NewHandlerState(ctx context.Context, logger *zerolog.Logger, handlerName, inputPath, scratchDir string) *HandlerState {
	return &HandlerState{
		Ctx:         ctx,
		Logger:      logger,
		InputPath:   inputPath,
		Phase:       StateCreated,
		Result:      DispositionUnknown,
		Files:       NewFileCollection(),
		ScratchDir:  scratchDir,
		HandlerName: handlerName,
		Params:      make(map[string]string),
	}
}

// State is the Handler Runtime's phase cursor (spec.md §4.1). Declared here
// rather than in the handler package so that HandlerState need not import
// handler, avoiding an import cycle — handler imports model, not the
// reverse.
type State uint8

const (
	StateCreated State = iota
	StateInitialise
	StateResolve
	StatePreprocess
	StateCheck
	StateProcess
	StatePublish
	StatePostprocess
	StateNotify
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialise:
		return "initialise"
	case StateResolve:
		return "resolve"
	case StatePreprocess:
		return "preprocess"
	case StateCheck:
		return "check"
	case StateProcess:
		return "process"
	case StatePublish:
		return "publish"
	case StatePostprocess:
		return "postprocess"
	case StateNotify:
		return "notify"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "created"
	}
}
