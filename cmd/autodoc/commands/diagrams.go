package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/autodoc/internal/config"
	"git.home.luguber.info/inful/autodoc/internal/diagram"
	"git.home.luguber.info/inful/autodoc/internal/discovery"
	"git.home.luguber.info/inful/autodoc/internal/metadata"
)

// DiagramsCmd renders all diagram blocks without running a conversion, which
// is useful for iterating on diagram sources.
type DiagramsCmd struct{}

func (d *DiagramsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	result, err := discovery.Discover(cfg.Project.SourceDir, cfg.Project.Exclude)
	if err != nil {
		return err
	}

	renderer := diagram.NewMermaidCLI(cfg.Diagrams.Renderer, cfg.Diagrams.RenderTimeout)
	processor := diagram.NewProcessor(renderer, cfg.Project.ImagesDir, slog.Default())

	ctx := context.Background()
	rendered, failed := 0, 0
	for _, file := range result.Files {
		content, err := os.ReadFile(file.Path)
		if err != nil {
			return err
		}
		parsed, _ := metadata.Parse(file.Path, content)

		res := processor.Process(ctx, file.Name, string(parsed.Body))
		rendered += res.Rendered
		failed += len(res.Warnings)
		for _, w := range res.Warnings {
			slog.Warn(w.Message, slog.Any("context", w.Context))
		}
	}

	// Standalone diagram sources next to the fragments render too.
	standalone, err := filepath.Glob(filepath.Join(cfg.Project.SourceDir, "*.mmd"))
	if err != nil {
		return err
	}
	for _, path := range standalone {
		source, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := processor.RenderSource(ctx, string(source)); err != nil {
			failed++
			slog.Warn("Diagram render failed", "source", path, "error", err)
			continue
		}
		rendered++
	}

	fmt.Printf("Rendered %d diagram(s)", rendered)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d diagram(s) failed to render", failed)
	}
	return nil
}
