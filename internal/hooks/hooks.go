// Package hooks lets embedders observe and extend the build pipeline at
// fixed points. Hooks run synchronously in registration order; a hook error
// is logged and does not stop the build.
package hooks

import (
	"context"
	"log/slog"
	"sync"
)

// Point is a pipeline location hooks can attach to.
type Point string

const (
	PreDiscovery  Point = "pre-discovery"
	PostDiscovery Point = "post-discovery"
	PreConvert    Point = "pre-convert"
	PostConvert   Point = "post-convert"
)

// Event carries pipeline state to a hook.
type Event struct {
	Point   Point
	Project string
	// Format is set for pre-convert and post-convert.
	Format string
	// Fragments is the ordered fragment path list, set from post-discovery
	// onwards.
	Fragments []string
	// Artifact is the produced output path, set for post-convert on success.
	Artifact string
	// Err is set for post-convert when the format failed.
	Err error
}

// Hook is one callback.
type Hook func(ctx context.Context, ev Event) error

// Registry holds hooks per point.
type Registry struct {
	mu     sync.RWMutex
	hooks  map[Point][]Hook
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		hooks:  make(map[Point][]Hook),
		logger: logger,
	}
}

// Register appends a hook at a point. Hooks at the same point run in
// registration order.
func (r *Registry) Register(point Point, hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[point] = append(r.hooks[point], hook)
}

// Fire runs all hooks registered at the event's point. Hook errors are
// logged, never propagated; a misbehaving hook must not break a build.
func (r *Registry) Fire(ctx context.Context, ev Event) {
	r.mu.RLock()
	hooks := r.hooks[ev.Point]
	r.mu.RUnlock()

	for i, hook := range hooks {
		if err := hook(ctx, ev); err != nil {
			r.logger.Warn("Hook failed", "point", ev.Point, "index", i, "error", err)
		}
	}
}
