// Package diagram locates fenced diagram blocks in fragment bodies and
// replaces them with references to pre-rendered images. A block that fails
// to render is left untouched so the converter still sees valid Markdown.
package diagram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"git.home.luguber.info/inful/autodoc/internal/cache"
	aderrors "git.home.luguber.info/inful/autodoc/internal/errors"
	"git.home.luguber.info/inful/autodoc/internal/metrics"
)

// memoSize bounds the in-process render memo. Renders are also deduplicated
// on disk by content-addressed file names, so eviction only costs a stat.
const memoSize = 256

// Processor renders diagram blocks and splices image references into bodies.
type Processor struct {
	renderer  Renderer
	imagesDir string
	language  string
	logger    *slog.Logger
	recorder  metrics.Recorder
	memo      *lru.Cache[string, string]
}

// Option configures a Processor.
type Option func(*Processor)

// WithRecorder sets the metrics recorder observing render durations.
func WithRecorder(rec metrics.Recorder) Option {
	return func(p *Processor) {
		if rec != nil {
			p.recorder = rec
		}
	}
}

// NewProcessor creates a Processor writing images into imagesDir.
func NewProcessor(renderer Renderer, imagesDir string, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	memo, _ := lru.New[string, string](memoSize)
	p := &Processor{
		renderer:  renderer,
		imagesDir: imagesDir,
		language:  DefaultLanguage,
		logger:    logger,
		recorder:  metrics.NoopRecorder{},
		memo:      memo,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of processing one fragment body.
type Result struct {
	// Body is the fragment with successfully rendered blocks replaced by
	// image references.
	Body string
	// Rendered counts blocks replaced in this pass.
	Rendered int
	// Images lists the image files the new body references.
	Images []string
	// Warnings holds one render error per failed block.
	Warnings []*aderrors.AutoDocError
}

// Process renders every diagram block in body. Blocks are replaced from the
// end of the body towards the start so earlier offsets stay valid.
func (p *Processor) Process(ctx context.Context, fragment string, body string) Result {
	blocks := FindBlocks(body, p.language)
	if len(blocks) == 0 {
		return Result{Body: body}
	}

	result := Result{Body: body}
	for i := len(blocks) - 1; i >= 0; i-- {
		block := blocks[i]
		imgPath, err := p.render(ctx, block.Source)
		if err != nil {
			result.Warnings = append(result.Warnings,
				aderrors.RenderError("diagram render failed", err).
					WithContext("fragment", fragment).
					WithContext("block", i+1))
			continue
		}

		ref := fmt.Sprintf("![](%s)", filepath.ToSlash(imgPath))
		result.Body = result.Body[:block.Start] + ref + "\n" + result.Body[block.End:]
		result.Rendered++
		result.Images = append(result.Images, imgPath)
	}

	if result.Rendered > 0 {
		p.logger.Debug("Rendered diagrams", "fragment", fragment, "count", result.Rendered)
	}
	return result
}

// RenderSource renders one standalone diagram source (a .mmd file's content)
// and returns the image path. Shares the memo and on-disk reuse with Process.
func (p *Processor) RenderSource(ctx context.Context, source string) (string, error) {
	return p.render(ctx, source)
}

// render produces (or reuses) the image for one diagram source. Images are
// content-addressed, so identical sources across fragments and across runs
// share one file.
func (p *Processor) render(ctx context.Context, source string) (string, error) {
	key := cache.Fingerprint([]byte(strings.TrimSpace(source)))
	if path, ok := p.memo.Get(key); ok {
		return path, nil
	}

	path := filepath.Join(p.imagesDir, fmt.Sprintf("diagram-%s.svg", key[:16]))
	if _, err := os.Stat(path); err == nil {
		p.memo.Add(key, path)
		return path, nil
	}

	start := time.Now()
	err := p.renderer.Render(ctx, source, path)
	p.recorder.ObserveDiagramRenderDuration(time.Since(start), err == nil)
	if err != nil {
		return "", err
	}
	p.memo.Add(key, path)
	return path, nil
}
