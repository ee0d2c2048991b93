// Package pipeline orchestrates a document build: discovery, metadata merge,
// dependency analysis, diagram rendering, staging, and per-format conversion
// with incremental skipping. One failed format never stops its siblings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/autodoc/internal/cache"
	"git.home.luguber.info/inful/autodoc/internal/config"
	"git.home.luguber.info/inful/autodoc/internal/converter"
	"git.home.luguber.info/inful/autodoc/internal/deps"
	"git.home.luguber.info/inful/autodoc/internal/diagram"
	"git.home.luguber.info/inful/autodoc/internal/discovery"
	aderrors "git.home.luguber.info/inful/autodoc/internal/errors"
	"git.home.luguber.info/inful/autodoc/internal/hooks"
	"git.home.luguber.info/inful/autodoc/internal/manifest"
	"git.home.luguber.info/inful/autodoc/internal/metadata"
	"git.home.luguber.info/inful/autodoc/internal/metrics"
	"git.home.luguber.info/inful/autodoc/internal/notify"
	"git.home.luguber.info/inful/autodoc/internal/templates"
)

// stagingDirName is where frontmatter-stripped, diagram-substituted fragment
// copies are written for the converter.
const stagingDirName = ".staging"

// Pipeline runs document builds for one project configuration.
type Pipeline struct {
	cfg       *config.Config
	cache     *cache.BuildCache
	converter *converter.Converter
	diagrams  *diagram.Processor
	hooks     *hooks.Registry
	publisher notify.Publisher
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// Options assembles a Pipeline. Zero-value fields get working defaults, so
// tests only fill what they exercise.
type Options struct {
	Config    *config.Config
	Cache     *cache.BuildCache
	Converter *converter.Converter
	Diagrams  *diagram.Processor
	Hooks     *hooks.Registry
	Publisher notify.Publisher
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		cfg:       opts.Config,
		cache:     opts.Cache,
		converter: opts.Converter,
		diagrams:  opts.Diagrams,
		hooks:     opts.Hooks,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
	}
	if p.hooks == nil {
		p.hooks = hooks.NewRegistry(opts.Logger)
	}
	if p.publisher == nil {
		p.publisher = notify.NoopPublisher{}
	}
	if p.recorder == nil {
		p.recorder = metrics.NoopRecorder{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// fragment is one discovered file after per-file analysis and staging.
type fragment struct {
	file        discovery.File
	meta        metadata.DocumentMetadata
	fingerprint string
	staged      string
}

// Run executes one build. The returned manifest describes every format's
// outcome; the returned error aggregates format failures and is nil when all
// requested formats succeeded or were skipped.
func (p *Pipeline) Run(ctx context.Context) (*manifest.BuildManifest, error) {
	start := time.Now()
	m := manifest.New(p.cfg.Project.Name)
	defer func() {
		p.recorder.ObserveBuildDuration(time.Since(start))
	}()

	p.hooks.Fire(ctx, hooks.Event{Point: hooks.PreDiscovery, Project: p.cfg.Project.Name})

	result, err := discovery.Discover(p.cfg.Project.SourceDir, p.cfg.Project.Exclude)
	if err != nil {
		p.recorder.IncBuildOutcome("failed")
		return m, err
	}
	if len(result.Files) == 0 {
		p.recorder.IncBuildOutcome("failed")
		return m, aderrors.DiscoveryError("no markdown fragments found", nil).
			WithContext("path", p.cfg.Project.SourceDir)
	}
	p.logger.Info("Discovered fragments", "count", len(result.Files), "source", p.cfg.Project.SourceDir)

	fragments, merged, warnings, err := p.analyze(ctx, result)
	if err != nil {
		p.recorder.IncBuildOutcome("failed")
		return m, err
	}
	for _, w := range warnings {
		p.logger.Warn(w.Message, slog.Any("context", w.Context))
		m.Warnings = append(m.Warnings, w.Error())
	}

	p.hooks.Fire(ctx, hooks.Event{
		Point:     hooks.PostDiscovery,
		Project:   p.cfg.Project.Name,
		Fragments: result.Paths(),
	})

	metaHash := merged.Hash()
	m.MetadataHash = metaHash
	for _, f := range fragments {
		m.Fragments = append(m.Fragments, manifest.FragmentRecord{
			Path:        f.file.Path,
			Fingerprint: f.fingerprint,
			IsSetup:     f.file.IsSetup,
		})
	}

	if err := p.stage(fragments); err != nil {
		p.recorder.IncBuildOutcome("failed")
		return m, err
	}

	formatErrs := p.buildFormats(ctx, fragments, merged, metaHash, len(warnings) > 0, m)

	m.Finish()
	if err := m.WriteFile(p.cfg.Project.OutputDir); err != nil {
		p.logger.Warn("Failed to write build manifest", "error", err)
	}
	if err := p.publisher.PublishBuild(m); err != nil {
		p.logger.Warn("Failed to publish build event", "error", err)
	}

	switch {
	case len(formatErrs) == 0:
		p.recorder.IncBuildOutcome("success")
	case ctx.Err() != nil:
		p.recorder.IncBuildOutcome("canceled")
	case len(formatErrs) < len(p.cfg.Build.Formats):
		p.recorder.IncBuildOutcome("partial")
	default:
		p.recorder.IncBuildOutcome("failed")
	}
	return m, errors.Join(formatErrs...)
}

// analyze reads and parses every fragment, builds the dependency graph, and
// merges metadata. Parse failures and missing assets degrade to warnings.
func (p *Pipeline) analyze(ctx context.Context, result discovery.Result) ([]*fragment, metadata.DocumentMetadata, []*aderrors.AutoDocError, error) {
	var warnings []*aderrors.AutoDocError
	graph := deps.NewGraph()

	fragments := make([]*fragment, 0, len(result.Files))
	bodies := make(map[string][]byte, len(result.Files))
	for _, file := range result.Files {
		content, err := os.ReadFile(file.Path)
		if err != nil {
			return nil, metadata.DocumentMetadata{}, nil,
				aderrors.DiscoveryError("cannot read fragment", err).WithContext("path", file.Path)
		}

		parsed, perr := metadata.Parse(file.Path, content)
		if perr != nil {
			if ade, ok := perr.(*aderrors.AutoDocError); ok {
				warnings = append(warnings, ade)
			} else {
				warnings = append(warnings, aderrors.ParseError(file.Path, perr))
			}
		}
		bodies[file.Path] = parsed.Body

		edges, err := deps.Extract(file.Path, parsed.Body, p.cfg.Project.SourceDir)
		if err != nil {
			warnings = append(warnings, aderrors.ParseError(file.Path, err))
		}
		graph.Add(file.Path, edges)

		// A fragment's fingerprint covers its own content and every asset
		// it references, so an edited image triggers a rebuild.
		fps := []string{cache.Fingerprint(content)}
		for _, asset := range graph.Assets(file.Path) {
			if fp, err := cache.FileFingerprint(asset); err == nil {
				fps = append(fps, fp)
			}
		}

		fragments = append(fragments, &fragment{
			file:        file,
			meta:        parsed.Meta,
			fingerprint: cache.Combine(fps...),
		})
	}
	warnings = append(warnings, graph.Missing()...)

	merged := p.mergeMetadata(fragments)

	// Diagram substitution happens once, shared by all formats. Failed
	// blocks stay as fenced code; the converter renders them literally.
	for _, f := range fragments {
		res := p.diagrams.Process(ctx, f.file.Name, string(bodies[f.file.Path]))
		warnings = append(warnings, res.Warnings...)
		bodies[f.file.Path] = []byte(res.Body)
	}
	for _, f := range fragments {
		f.staged = string(bodies[f.file.Path])
	}

	return fragments, merged, warnings, nil
}

// mergeMetadata folds metadata sources in priority order: configuration
// overrides, the setup fragment, remaining fragments in discovery order,
// then defaults.
func (p *Pipeline) mergeMetadata(fragments []*fragment) metadata.DocumentMetadata {
	sources := make([]metadata.DocumentMetadata, 0, len(fragments)+2)

	if len(p.cfg.Metadata) > 0 {
		overrides, err := metadata.FromMap(p.cfg.Metadata)
		if err != nil {
			p.logger.Warn("Invalid metadata overrides in configuration", "error", err)
		} else {
			sources = append(sources, overrides)
		}
	}
	for _, f := range fragments {
		if f.file.IsSetup {
			sources = append(sources, f.meta)
		}
	}
	for _, f := range fragments {
		if !f.file.IsSetup {
			sources = append(sources, f.meta)
		}
	}
	sources = append(sources, metadata.Defaults(p.cfg.Project.Name, time.Now()))

	return metadata.Merge(sources...)
}

// stage writes processed fragment bodies into the staging directory. The
// converter reads staged copies; source files are never modified.
func (p *Pipeline) stage(fragments []*fragment) error {
	dir := filepath.Join(p.cfg.Project.OutputDir, stagingDirName)
	if err := os.RemoveAll(dir); err != nil {
		return aderrors.Wrap(err, aderrors.CategoryInternal, aderrors.SeverityFatal, "cannot clear staging directory").WithContext("path", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return aderrors.Wrap(err, aderrors.CategoryInternal, aderrors.SeverityFatal, "cannot create staging directory").WithContext("path", dir)
	}

	for _, f := range fragments {
		path := filepath.Join(dir, f.file.Name)
		if err := os.WriteFile(path, []byte(f.staged), 0o644); err != nil {
			return aderrors.Wrap(err, aderrors.CategoryInternal, aderrors.SeverityFatal, "cannot stage fragment").WithContext("path", path)
		}
		f.staged = path
	}
	return nil
}

// buildFormats runs one conversion per requested format through a bounded
// worker pool. Formats are independent: a failure is recorded and the rest
// keep going.
func (p *Pipeline) buildFormats(ctx context.Context, fragments []*fragment, merged metadata.DocumentMetadata, metaHash string, degraded bool, m *manifest.BuildManifest) []error {
	jobs := p.cfg.Build.Jobs
	if jobs < 1 {
		jobs = 1
	}
	p.recorder.SetWorkerConcurrency(jobs)

	inputs := make([]string, len(fragments))
	fragmentFPs := make(map[string]string, len(fragments))
	for i, f := range fragments {
		inputs[i] = f.staged
		fragmentFPs[f.file.Path] = f.fingerprint
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		errs    []error
		results = make([]manifest.FormatResult, len(p.cfg.Build.Formats))
		sem     = make(chan struct{}, jobs)
	)

	for i, format := range p.cfg.Build.Formats {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, format string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := p.buildFormat(ctx, format, inputs, merged, metaHash, degraded, fragmentFPs)
			results[i] = res
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(i, format)
	}
	wg.Wait()

	m.Formats = append(m.Formats, results...)
	return errs
}

// buildFormat builds one format end to end: template resolution, staleness
// check, conversion, cache commit.
func (p *Pipeline) buildFormat(ctx context.Context, format string, inputs []string, merged metadata.DocumentMetadata, metaHash string, degraded bool, fragmentFPs map[string]string) (manifest.FormatResult, error) {
	start := time.Now()
	logger := p.logger.With("format", format)

	tmpl, err := templates.Resolve(p.cfg.Project.TemplatesDir, format)
	if err != nil {
		logger.Warn("Template resolution failed, using converter default", "error", err)
		tmpl = templates.Resolved{}
	}

	artifact := filepath.Join(p.cfg.Project.OutputDir, fmt.Sprintf("%s.%s", p.cfg.Project.Name, format))
	state := cache.FormatState{
		MetadataHash:        metaHash,
		TemplateFingerprint: tmpl.Fingerprint,
		Artifact:            artifact,
		Fragments:           fragmentFPs,
	}

	decision := p.cache.NeedsRebuild(ctx, p.cfg.Project.Name, format, state)
	p.recorder.IncCacheDecision(!decision.Rebuild)
	if !decision.Rebuild {
		logger.Info("Artifact up to date, skipping", "artifact", artifact)
		p.recorder.IncFormatResult(format, metrics.ResultSkipped)
		return manifest.FormatResult{
			Format:   format,
			Artifact: artifact,
			Skipped:  true,
			Reason:   "up to date",
		}, nil
	}
	logger.Debug("Rebuilding", "reason", decision.Reason)

	p.hooks.Fire(ctx, hooks.Event{Point: hooks.PreConvert, Project: p.cfg.Project.Name, Format: format})

	job := converter.Job{
		Format:        format,
		Inputs:        inputs,
		Output:        artifact,
		Meta:          merged,
		Template:      tmpl.Path,
		ResourcePaths: []string{p.cfg.Project.SourceDir, p.cfg.Project.ImagesDir},
		PDFEngine:     p.cfg.Build.PDFEngine,
	}
	convErr := p.converter.Convert(ctx, job)

	duration := time.Since(start)
	p.recorder.ObserveFormatDuration(format, duration)

	ev := hooks.Event{Point: hooks.PostConvert, Project: p.cfg.Project.Name, Format: format, Artifact: artifact, Err: convErr}
	p.hooks.Fire(ctx, ev)

	if convErr != nil {
		logger.Error("Format build failed", "error", convErr)
		label := metrics.ResultFailed
		if ctx.Err() != nil {
			label = metrics.ResultCanceled
		}
		p.recorder.IncFormatResult(format, label)
		return manifest.FormatResult{
			Format:   format,
			Error:    convErr.Error(),
			Duration: duration,
		}, convErr
	}

	if err := p.cache.Commit(ctx, p.cfg.Project.Name, format, state); err != nil {
		logger.Warn("Cache commit failed, next run rebuilds", "error", err)
	}

	// A build that succeeded but carried analysis warnings counts as degraded.
	label := metrics.ResultSuccess
	if degraded {
		label = metrics.ResultWarning
	}
	p.recorder.IncFormatResult(format, label)
	return manifest.FormatResult{
		Format:   format,
		Artifact: artifact,
		Duration: duration,
	}, nil
}
