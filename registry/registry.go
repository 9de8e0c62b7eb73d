// Package registry implements the explicit registration tables of Design
// Notes §9 ("Plugin discovery -> explicit registry"): rather than scanning
// for implementations via reflection or build tags, cmd/pipelined
// registers handlers and harvester runners at startup from
// config.Pluggable, and the submission endpoint and each handler's
// path-function wiring look names up in them.
package registry

import (
	"sync"

	"github.com/aodn/pipeline/handler"
	"github.com/aodn/pipeline/harvest"
	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/pipelineerr"
)

// PathFunc derives a destination path for a file, the registrable form of
// the teacher's Artifact.DefaultS3URL-style path-generation logic.
type PathFunc func(*model.PipelineFile) string

// HarvesterFactory constructs a harvest.HarvesterRunner for one configured
// harvester instance, deferred until config is available (table/executable
// path, DB handle) rather than constructed up front.
type HarvesterFactory func(config map[string]string) (harvest.HarvesterRunner, error)

// PathFunctionRegistry is a name -> PathFunc lookup table, guarded by a
// RWMutex the way the teacher's in-memory stats maps are guarded.
type PathFunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]PathFunc
}

func NewPathFunctionRegistry() *PathFunctionRegistry {
	return &PathFunctionRegistry{funcs: make(map[string]PathFunc)}
}

func (r *PathFunctionRegistry) Register(name string, fn PathFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

func (r *PathFunctionRegistry) Get(name string) (PathFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// HarvesterRegistry is a name -> HarvesterFactory lookup table.
type HarvesterRegistry struct {
	mu        sync.RWMutex
	factories map[string]HarvesterFactory
}

func NewHarvesterRegistry() *HarvesterRegistry {
	return &HarvesterRegistry{factories: make(map[string]HarvesterFactory)}
}

func (r *HarvesterRegistry) Register(name string, factory HarvesterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

func (r *HarvesterRegistry) Get(name string) (HarvesterFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	return factory, ok
}

// Build looks up name and invokes its factory with config, returning a
// descriptive error if no such harvester is registered.
func (r *HarvesterRegistry) Build(name string, config map[string]string) (harvest.HarvesterRunner, error) {
	factory, ok := r.Get(name)
	if !ok {
		return nil, pipelineerr.NewInvariantViolation("no harvester registered under name %q", name)
	}
	return factory(config)
}

// HandlerRegistry is a name -> *handler.Handler lookup table, populated
// once at cmd/pipelined startup and read on every submission.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]*handler.Handler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]*handler.Handler)}
}

func (r *HandlerRegistry) Register(name string, h *handler.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *HandlerRegistry) Get(name string) (*handler.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}
