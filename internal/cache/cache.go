// Package cache decides whether a format build can be skipped, based on
// content fingerprints persisted across runs. Decisions are conservative:
// any doubt (missing state, corrupt store, unreadable artifact) means
// rebuild.
package cache

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// FormatState is everything the cache tracks about one (project, format)
// build: the merged metadata hash, the template fingerprint, the produced
// artifact path, and a fingerprint per fragment (content combined with its
// asset dependencies).
type FormatState struct {
	MetadataHash        string
	TemplateFingerprint string
	Artifact            string
	Fragments           map[string]string
}

// Store persists FormatState between runs.
type Store interface {
	// Load returns the stored state for a (project, format), or ok=false
	// when none exists.
	Load(ctx context.Context, project, format string) (FormatState, bool, error)
	// Save replaces the stored state for a (project, format).
	Save(ctx context.Context, project, format string, state FormatState) error
	// Reset drops all stored state for a project.
	Reset(ctx context.Context, project string) error
	// List summarizes stored state for a project, one entry per format.
	List(ctx context.Context, project string) ([]Status, error)
	Close() error
}

// Decision is the outcome of a staleness check.
type Decision struct {
	Rebuild bool
	// Reason names what went stale; empty when the artifact is current.
	Reason string
}

// BuildCache wraps a Store with the rebuild policy.
type BuildCache struct {
	store              Store
	logger             *slog.Logger
	disabled           bool
	templateInvalidate bool
}

// Option configures a BuildCache.
type Option func(*BuildCache)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *BuildCache) { c.logger = logger }
}

// Disabled forces every check to report rebuild and makes Commit a no-op.
func Disabled(disabled bool) Option {
	return func(c *BuildCache) { c.disabled = disabled }
}

// TemplateInvalidation controls whether a template change invalidates the
// cached artifact.
func TemplateInvalidation(enabled bool) Option {
	return func(c *BuildCache) { c.templateInvalidate = enabled }
}

// New creates a BuildCache on top of a Store.
func New(store Store, opts ...Option) *BuildCache {
	c := &BuildCache{
		store:              store,
		logger:             slog.Default(),
		templateInvalidate: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NeedsRebuild compares the current state against the stored one. A store
// read failure downgrades to a rebuild, never to an error: the cache must
// not be able to break a build.
func (c *BuildCache) NeedsRebuild(ctx context.Context, project, format string, current FormatState) Decision {
	if c.disabled {
		return Decision{Rebuild: true, Reason: "cache disabled"}
	}

	prev, ok, err := c.store.Load(ctx, project, format)
	if err != nil {
		c.logger.Warn("Cache read failed, rebuilding", "project", project, "format", format, "error", err)
		return Decision{Rebuild: true, Reason: "cache read failed"}
	}
	if !ok {
		return Decision{Rebuild: true, Reason: "no previous build"}
	}

	if prev.MetadataHash != current.MetadataHash {
		return Decision{Rebuild: true, Reason: "metadata changed"}
	}
	if c.templateInvalidate && prev.TemplateFingerprint != current.TemplateFingerprint {
		return Decision{Rebuild: true, Reason: "template changed"}
	}

	if len(prev.Fragments) != len(current.Fragments) {
		return Decision{Rebuild: true, Reason: "fragment set changed"}
	}
	for path, fp := range current.Fragments {
		if prev.Fragments[path] != fp {
			return Decision{Rebuild: true, Reason: "fragment changed: " + path}
		}
	}

	// The artifact itself must still be on disk. A stale cache entry for a
	// deleted output is worse than a rebuild.
	if prev.Artifact == "" {
		return Decision{Rebuild: true, Reason: "no recorded artifact"}
	}
	if _, err := os.Stat(prev.Artifact); err != nil {
		return Decision{Rebuild: true, Reason: "artifact missing"}
	}

	return Decision{}
}

// Commit records a successful build. Failed builds are never committed, so
// the next run retries them.
func (c *BuildCache) Commit(ctx context.Context, project, format string, state FormatState) error {
	if c.disabled {
		return nil
	}
	if err := c.store.Save(ctx, project, format, state); err != nil {
		c.logger.Warn("Cache write failed", "project", project, "format", format, "error", err)
		return err
	}
	c.logger.Debug("Cache committed", "project", project, "format", format, "fragments", len(state.Fragments))
	return nil
}

// Clear drops all cached state for a project.
func (c *BuildCache) Clear(ctx context.Context, project string) error {
	return c.store.Reset(ctx, project)
}

// Status summarizes stored state for a project, one entry per format.
func (c *BuildCache) Status(ctx context.Context, project string) ([]Status, error) {
	return c.store.List(ctx, project)
}

// Status summarizes stored state for display.
type Status struct {
	Format       string    `json:"format"`
	Artifact     string    `json:"artifact"`
	Fragments    int       `json:"fragments"`
	MetadataHash string    `json:"metadata_hash"`
	BuiltAt      time.Time `json:"built_at"`
}
