package diagram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autodoc/internal/metrics"
)

// fakeRenderer records render calls and can fail on selected sources.
type fakeRenderer struct {
	mu     sync.Mutex
	calls  []string
	failOn string
}

func (f *fakeRenderer) Name() string { return "fake" }

func (f *fakeRenderer) Render(_ context.Context, source string, outPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, source)
	if f.failOn != "" && strings.Contains(source, f.failOn) {
		return errors.New("render exploded")
	}
	return os.WriteFile(outPath, []byte("<svg/>"), 0o644)
}

func TestProcessReplacesBlocks(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRenderer{}
	p := NewProcessor(r, dir, nil)

	body := "before\n\n```mermaid\ngraph TD\n```\n\nafter\n"
	res := p.Process(context.Background(), "01-a.md", body)

	require.Empty(t, res.Warnings)
	require.Equal(t, 1, res.Rendered)
	require.NotContains(t, res.Body, "```mermaid")
	require.Contains(t, res.Body, "![](")
	require.Contains(t, res.Body, "before")
	require.Contains(t, res.Body, "after")
	require.Len(t, res.Images, 1)
	require.FileExists(t, res.Images[0])
}

func TestProcessFailedBlockLeftIntact(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRenderer{failOn: "bad"}
	p := NewProcessor(r, dir, nil)

	body := "```mermaid\nbad diagram\n```\n\n```mermaid\ngood diagram\n```\n"
	res := p.Process(context.Background(), "01-a.md", body)

	require.Len(t, res.Warnings, 1)
	require.Equal(t, 1, res.Rendered)
	// The failing block stays as fenced source; the good one is replaced.
	require.Contains(t, res.Body, "```mermaid\nbad diagram\n```")
	require.NotContains(t, res.Body, "good diagram")
}

func TestProcessMemoizesIdenticalSources(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRenderer{}
	p := NewProcessor(r, dir, nil)

	body := "```mermaid\nsame\n```\n\n```mermaid\nsame\n```\n"
	res := p.Process(context.Background(), "01-a.md", body)

	require.Equal(t, 2, res.Rendered)
	require.Len(t, r.calls, 1)
}

func TestProcessReusesOnDiskRender(t *testing.T) {
	dir := t.TempDir()
	first := &fakeRenderer{}
	p1 := NewProcessor(first, dir, nil)
	body := "```mermaid\nstable\n```\n"
	res := p1.Process(context.Background(), "01-a.md", body)
	require.Equal(t, 1, res.Rendered)

	// A fresh processor (fresh memo) finds the content-addressed file.
	second := &fakeRenderer{}
	p2 := NewProcessor(second, dir, nil)
	res = p2.Process(context.Background(), "01-a.md", body)
	require.Equal(t, 1, res.Rendered)
	require.Empty(t, second.calls)
}

func TestProcessNoBlocks(t *testing.T) {
	p := NewProcessor(&fakeRenderer{}, t.TempDir(), nil)
	body := "no diagrams here\n"
	res := p.Process(context.Background(), "01-a.md", body)
	require.Equal(t, body, res.Body)
	require.Zero(t, res.Rendered)
}

// renderRecorder captures render duration observations.
type renderRecorder struct {
	metrics.NoopRecorder
	mu        sync.Mutex
	successes int
	failures  int
}

func (r *renderRecorder) ObserveDiagramRenderDuration(_ time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.successes++
	} else {
		r.failures++
	}
}

func TestProcessObservesRenderDurations(t *testing.T) {
	rec := &renderRecorder{}
	p := NewProcessor(&fakeRenderer{failOn: "bad"}, t.TempDir(), nil, WithRecorder(rec))

	body := "```mermaid\nbad one\n```\n\n```mermaid\ngood one\n```\n"
	p.Process(context.Background(), "01-a.md", body)
	require.Equal(t, 1, rec.successes)
	require.Equal(t, 1, rec.failures)

	// A memo hit is not a render, so nothing more is observed.
	p.Process(context.Background(), "02-b.md", "```mermaid\ngood one\n```\n")
	require.Equal(t, 1, rec.successes)
}

func TestRenderSourceStandalone(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRenderer{}
	p := NewProcessor(r, dir, nil)

	path, err := p.RenderSource(context.Background(), "graph TD\nA-->B\n")
	require.NoError(t, err)
	require.FileExists(t, path)

	// The same source inside a fragment reuses the standalone render.
	res := p.Process(context.Background(), "01-a.md", "```mermaid\ngraph TD\nA-->B\n```\n")
	require.Equal(t, 1, res.Rendered)
	require.Len(t, r.calls, 1)
}

func TestRenderedFileNameIsContentAddressed(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(&fakeRenderer{}, dir, nil)
	res := p.Process(context.Background(), "01-a.md", "```mermaid\nabc\n```\n")
	require.Len(t, res.Images, 1)
	base := filepath.Base(res.Images[0])
	require.True(t, strings.HasPrefix(base, "diagram-"))
	require.True(t, strings.HasSuffix(base, ".svg"))
}
