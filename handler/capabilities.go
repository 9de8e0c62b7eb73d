package handler

import (
	"context"

	"github.com/aodn/pipeline/model"
)

// HookFunc is the shape shared by every optional lifecycle hook a concrete
// handler may supply (spec.md §4.1 preprocess/process/postprocess).
type HookFunc func(ctx context.Context, files *model.FileCollection) error

// Capabilities holds the three optional hooks a handler may override,
// Design Notes §9's capability-object alternative to the teacher's
// inheritance-overridable-method style (there is no Go equivalent of
// overriding a base class method, so each hook is a plain field defaulting
// to a no-op instead of requiring every handler to implement an interface
// method it doesn't need).
type Capabilities struct {
	Preprocess  HookFunc
	Process     HookFunc
	Postprocess HookFunc
}

func noop(ctx context.Context, files *model.FileCollection) error { return nil }

// normalise replaces any unset hook with noop so Execute never has to
// nil-check.
func (c Capabilities) normalise() Capabilities {
	if c.Preprocess == nil {
		c.Preprocess = noop
	}
	if c.Process == nil {
		c.Process = noop
	}
	if c.Postprocess == nil {
		c.Postprocess = noop
	}
	return c
}
