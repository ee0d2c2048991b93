// Package watcher reruns builds when source files change. Events are
// debounced so editor save bursts trigger one build, and builds never
// overlap: the next trigger waits for the current run to finish.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/autodoc/internal/config"
)

// BuildFunc runs one build. Errors are logged, not fatal: watch mode keeps
// going so the next save can fix the problem.
type BuildFunc func(ctx context.Context) error

// Watcher triggers builds on file changes and, optionally, on a schedule.
type Watcher struct {
	cfg    *config.Config
	build  BuildFunc
	logger *slog.Logger
}

// New creates a Watcher.
func New(cfg *config.Config, build BuildFunc, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{cfg: cfg, build: build, logger: logger}
}

// Run watches until the context is canceled. An initial build runs
// immediately so the output reflects the current sources.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.cfg.Project.SourceDir); err != nil {
		return err
	}
	// Template and image edits should retrigger too, since both feed the
	// rebuild decision; either directory may not exist yet.
	for _, dir := range []string{w.cfg.Project.TemplatesDir, w.cfg.Project.ImagesDir} {
		if dir == "" {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.logger.Debug("Not watching directory", "path", dir, "error", err)
		}
	}

	trigger := make(chan string, 1)
	fire := func(reason string) {
		select {
		case trigger <- reason:
		default:
			// A trigger is already pending; coalesce.
		}
	}

	if interval := w.cfg.Watch.RebuildInterval; interval > 0 {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}
		if _, err := scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() { fire("scheduled rebuild") }),
		); err != nil {
			return err
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
		w.logger.Info("Scheduled periodic rebuilds", "interval", interval)
	}

	w.runBuild(ctx, "initial build")

	debounce := w.cfg.Watch.Debounce
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("File event", "op", ev.Op.String(), "path", ev.Name)
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			fire("file change")

		case reason := <-trigger:
			w.runBuild(ctx, reason)
		}
	}
}

// runBuild executes one build inline, which guarantees runs never overlap.
func (w *Watcher) runBuild(ctx context.Context, reason string) {
	w.logger.Info("Starting build", "reason", reason)
	if err := w.build(ctx); err != nil {
		w.logger.Error("Build failed", "error", err)
		return
	}
	w.logger.Info("Build finished")
}

// relevant filters out events from the pipeline's own writes: anything under
// the output directory or the cache directory, and editor temp files.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	path := filepath.Clean(ev.Name)
	for _, dir := range []string{w.cfg.Project.OutputDir, w.cfg.Cache.Dir} {
		if dir == "" {
			continue
		}
		if rel, err := filepath.Rel(filepath.Clean(dir), path); err == nil && !strings.HasPrefix(rel, "..") {
			return false
		}
	}

	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") {
		return false
	}
	return true
}
