// Package handlerctx carries the active *model.HandlerState through a
// context.Context, generalizing the teacher's common/reqcontext (which
// carried *http.Request) from per-HTTP-request scope to per-handler-
// execution scope — the Handler Runtime has no HTTP request once it
// leaves cmd/pipelined's submission endpoint.
package handlerctx

import (
	"context"

	"github.com/aodn/pipeline/model"
)

// Unexported to avoid collisions with keys from other packages.
type key int

const stateKey key = 0

// WithState returns a copy of ctx carrying state, retrievable with
// StateFromContext.
func WithState(ctx context.Context, state *model.HandlerState) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

// StateFromContext fetches the *model.HandlerState embedded in ctx, if any.
func StateFromContext(ctx context.Context) (*model.HandlerState, bool) {
	s, ok := ctx.Value(stateKey).(*model.HandlerState)
	return s, ok
}
