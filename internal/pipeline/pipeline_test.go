package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autodoc/internal/cache"
	"git.home.luguber.info/inful/autodoc/internal/config"
	"git.home.luguber.info/inful/autodoc/internal/converter"
	"git.home.luguber.info/inful/autodoc/internal/diagram"
	aderrors "git.home.luguber.info/inful/autodoc/internal/errors"
	"git.home.luguber.info/inful/autodoc/internal/hooks"
	"git.home.luguber.info/inful/autodoc/internal/manifest"
	"git.home.luguber.info/inful/autodoc/internal/metrics"
)

// fakeRunner stands in for the external converter: it records invocations and
// writes the output artifact the way a real conversion would.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	failFo string // output suffix that should fail
}

func (f *fakeRunner) Run(_ context.Context, _ string, args []string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.mu.Unlock()

	var output string
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			output = args[i+1]
		}
	}
	if f.failFo != "" && strings.HasSuffix(output, f.failFo) {
		return "conversion blew up", errors.New("exit status 43")
	}
	if err := os.WriteFile(output, []byte("artifact"), 0o644); err != nil {
		return "", err
	}
	return "", nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRunner) allArgs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var flat []string
	for _, call := range f.calls {
		flat = append(flat, call...)
	}
	return flat
}

// fakeRenderer renders diagrams as placeholder files.
type fakeRenderer struct{}

func (fakeRenderer) Name() string { return "fake" }
func (fakeRenderer) Render(_ context.Context, _ string, outPath string) error {
	return os.WriteFile(outPath, []byte("<svg/>"), 0o644)
}

// fakeRecorder captures the metric calls the pipeline makes per format.
type fakeRecorder struct {
	metrics.NoopRecorder
	mu      sync.Mutex
	results map[string][]metrics.ResultLabel
}

func (r *fakeRecorder) IncFormatResult(format string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = make(map[string][]metrics.ResultLabel)
	}
	r.results[format] = append(r.results[format], result)
}

func (r *fakeRecorder) formatResults(format string) []metrics.ResultLabel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[format]
}

type fixture struct {
	cfg      *config.Config
	runner   *fakeRunner
	pipeline *Pipeline
	hooks    *hooks.Registry
	recorder *fakeRecorder
}

func newFixture(t *testing.T, formats []string) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Project: config.ProjectConfig{
			Name:         "guide",
			SourceDir:    filepath.Join(root, "src"),
			OutputDir:    filepath.Join(root, "output"),
			TemplatesDir: filepath.Join(root, "templates"),
			ImagesDir:    filepath.Join(root, "images"),
		},
		Build: config.BuildConfig{Formats: formats, Jobs: 2, Converter: "pandoc"},
	}
	require.NoError(t, os.MkdirAll(cfg.Project.SourceDir, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Project.OutputDir, 0o755))

	store, err := cache.NewSQLiteStore(filepath.Join(root, "cache", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	runner := &fakeRunner{}
	reg := hooks.NewRegistry(nil)
	rec := &fakeRecorder{}
	p := New(Options{
		Config:    cfg,
		Cache:     cache.New(store),
		Converter: converter.New("pandoc", 0, runner, nil),
		Diagrams:  diagram.NewProcessor(fakeRenderer{}, cfg.Project.ImagesDir, nil),
		Hooks:     reg,
		Recorder:  rec,
	})
	return &fixture{cfg: cfg, runner: runner, pipeline: p, hooks: reg, recorder: rec}
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.cfg.Project.SourceDir, name), []byte(content), 0o644))
}

func TestRunBuildsAllFormats(t *testing.T) {
	f := newFixture(t, []string{"pdf", "html"})
	f.write(t, "00-setup.md", "---\ntitle: The Guide\nlang: de\n---\n")
	f.write(t, "01-intro.md", "# Intro\n")
	f.write(t, "02-body.md", "# Body\n")

	m, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.True(t, m.Succeeded())
	require.Len(t, m.Formats, 2)
	for _, fr := range m.Formats {
		require.Empty(t, fr.Error)
		require.False(t, fr.Skipped)
		require.FileExists(t, fr.Artifact)
	}
	require.Len(t, m.Fragments, 3)
	require.True(t, m.Fragments[0].IsSetup)

	// Merged metadata reaches the converter.
	args := f.runner.allArgs()
	require.Contains(t, args, "title=The Guide")
	require.Contains(t, args, "lang=de")

	// The manifest lands in the output directory.
	data, err := os.ReadFile(filepath.Join(f.cfg.Project.OutputDir, manifest.FileName))
	require.NoError(t, err)
	parsed, err := manifest.FromJSON(data)
	require.NoError(t, err)
	require.Equal(t, m.ID, parsed.ID)
}

func TestRunStagesStrippedFragmentsInOrder(t *testing.T) {
	f := newFixture(t, []string{"html"})
	f.write(t, "10-last.md", "# Last\n")
	f.write(t, "2-first.md", "---\ntitle: X\n---\n# First\n")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	staged := filepath.Join(f.cfg.Project.OutputDir, stagingDirName, "2-first.md")
	content, err := os.ReadFile(staged)
	require.NoError(t, err)
	require.NotContains(t, string(content), "title:")
	require.Contains(t, string(content), "# First")

	// Natural order: 2-first before 10-last among the converter inputs.
	args := f.runner.allArgs()
	first := -1
	last := -1
	for i, a := range args {
		if strings.HasSuffix(a, "2-first.md") {
			first = i
		}
		if strings.HasSuffix(a, "10-last.md") {
			last = i
		}
	}
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, last, first)
}

func TestRunSecondRunSkips(t *testing.T) {
	f := newFixture(t, []string{"pdf"})
	f.write(t, "01-a.md", "# A\n")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, f.runner.callCount())

	m, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, f.runner.callCount())
	require.True(t, m.Formats[0].Skipped)
	require.Equal(t, "up to date", m.Formats[0].Reason)
}

func TestRunSingleByteChangeRebuilds(t *testing.T) {
	f := newFixture(t, []string{"pdf"})
	f.write(t, "01-a.md", "# A\n")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	f.write(t, "01-a.md", "# B\n")
	m, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.False(t, m.Formats[0].Skipped)
	require.Equal(t, 2, f.runner.callCount())
}

func TestRunFormatFailureIsIsolated(t *testing.T) {
	f := newFixture(t, []string{"pdf", "html"})
	f.runner.failFo = ".pdf"
	f.write(t, "01-a.md", "# A\n")

	m, err := f.pipeline.Run(context.Background())
	require.Error(t, err)
	require.False(t, m.Succeeded())

	byFormat := make(map[string]manifest.FormatResult)
	for _, fr := range m.Formats {
		byFormat[fr.Format] = fr
	}
	require.NotEmpty(t, byFormat["pdf"].Error)
	require.Empty(t, byFormat["html"].Error)
	require.FileExists(t, byFormat["html"].Artifact)

	// The failed format is retried on the next run; the good one is cached.
	f.runner.failFo = ""
	m, err = f.pipeline.Run(context.Background())
	require.NoError(t, err)
	byFormat = make(map[string]manifest.FormatResult)
	for _, fr := range m.Formats {
		byFormat[fr.Format] = fr
	}
	require.False(t, byFormat["pdf"].Skipped)
	require.True(t, byFormat["html"].Skipped)
}

func TestRunMergePriority(t *testing.T) {
	f := newFixture(t, []string{"html"})
	f.cfg.Metadata = map[string]any{"title": "Override Title"}
	f.write(t, "00-setup.md", "---\ntitle: Setup Title\nsubtitle: Setup Sub\n---\n")
	f.write(t, "01-a.md", "---\nsubtitle: File Sub\ndate: '2026-02-03'\n---\n# A\n")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	args := f.runner.allArgs()
	require.Contains(t, args, "title=Override Title")
	require.Contains(t, args, "subtitle=Setup Sub")
	require.Contains(t, args, "date=2026-02-03")
}

func TestRunDiagramSubstitution(t *testing.T) {
	f := newFixture(t, []string{"html"})
	f.write(t, "01-a.md", "# A\n\n```mermaid\ngraph TD\n```\n")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	staged, err := os.ReadFile(filepath.Join(f.cfg.Project.OutputDir, stagingDirName, "01-a.md"))
	require.NoError(t, err)
	require.NotContains(t, string(staged), "```mermaid")
	require.Contains(t, string(staged), "![](")

	images, err := filepath.Glob(filepath.Join(f.cfg.Project.ImagesDir, "diagram-*.svg"))
	require.NoError(t, err)
	require.Len(t, images, 1)
}

func TestRunMissingAssetIsWarningNotFailure(t *testing.T) {
	f := newFixture(t, []string{"html"})
	f.write(t, "01-a.md", "# A\n\n![gone](images/missing.png)\n")

	m, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.True(t, m.Succeeded())
	require.NotEmpty(t, m.Warnings)
}

func TestRunEmptySourceDirIsFatal(t *testing.T) {
	f := newFixture(t, []string{"pdf"})

	_, err := f.pipeline.Run(context.Background())
	require.Error(t, err)
	require.Zero(t, f.runner.callCount())
}

func TestRunFiresHooks(t *testing.T) {
	f := newFixture(t, []string{"html"})
	f.write(t, "01-a.md", "# A\n")

	var points []hooks.Point
	var mu sync.Mutex
	record := func(_ context.Context, ev hooks.Event) error {
		mu.Lock()
		points = append(points, ev.Point)
		mu.Unlock()
		return nil
	}
	for _, pt := range []hooks.Point{hooks.PreDiscovery, hooks.PostDiscovery, hooks.PreConvert, hooks.PostConvert} {
		f.hooks.Register(pt, record)
	}

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []hooks.Point{hooks.PreDiscovery, hooks.PostDiscovery, hooks.PreConvert, hooks.PostConvert}, points)
}

func TestRunTemplateChangeInvalidates(t *testing.T) {
	f := newFixture(t, []string{"html"})
	require.NoError(t, os.MkdirAll(f.cfg.Project.TemplatesDir, 0o755))
	tmpl := filepath.Join(f.cfg.Project.TemplatesDir, "template.html")
	require.NoError(t, os.WriteFile(tmpl, []byte("v1"), 0o644))
	f.write(t, "01-a.md", "# A\n")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, f.runner.callCount())

	require.NoError(t, os.WriteFile(tmpl, []byte("v2"), 0o644))
	m, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.False(t, m.Formats[0].Skipped)
	require.Equal(t, 2, f.runner.callCount())
}

func TestRunRecordsFormatResultLabels(t *testing.T) {
	f := newFixture(t, []string{"pdf"})
	f.write(t, "01-a.md", "# A\n")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []metrics.ResultLabel{metrics.ResultSuccess}, f.recorder.formatResults("pdf"))

	// A missing asset degrades the build: the artifact is produced but the
	// format result reflects the warning.
	f2 := newFixture(t, []string{"pdf"})
	f2.write(t, "01-a.md", "![gone](missing.png)\n")

	m, err := f2.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, m.Warnings)
	require.Equal(t, []metrics.ResultLabel{metrics.ResultWarning}, f2.recorder.formatResults("pdf"))
}

func TestRunStagingFailureKeepsCause(t *testing.T) {
	f := newFixture(t, []string{"pdf"})
	f.write(t, "01-a.md", "# A\n")

	// A regular file where the output directory should be makes every
	// staging write fail with an os-level error.
	blocker := filepath.Join(f.cfg.Project.OutputDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	f.cfg.Project.OutputDir = blocker

	_, err := f.pipeline.Run(context.Background())
	require.Error(t, err)
	require.True(t, aderrors.IsCategory(err, aderrors.CategoryInternal))

	var pathErr *fs.PathError
	require.ErrorAs(t, err, &pathErr)
}
