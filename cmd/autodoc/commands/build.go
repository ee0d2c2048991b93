package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/autodoc/internal/config"
	"git.home.luguber.info/inful/autodoc/internal/watcher"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Formats []string      `arg:"" optional:"" help:"Output formats to build, overriding the configuration (pdf, docx, html, all)"`
	Jobs    int           `short:"j" help:"Number of formats built in parallel, overriding the configuration"`
	Output  string        `short:"o" help:"Output directory, overriding the configuration"`
	Timeout time.Duration `help:"Converter timeout per format, overriding the configuration"`
	NoCache bool          `name:"no-cache" help:"Ignore cached state and rebuild everything"`
	Watch   bool          `short:"w" help:"Rebuild whenever source files change"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if len(b.Formats) > 0 {
		if len(b.Formats) == 1 && b.Formats[0] == "all" {
			cfg.Build.Formats = append([]string(nil), config.KnownFormats...)
		} else {
			cfg.Build.Formats = b.Formats
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if b.Jobs > 0 {
		cfg.Build.Jobs = b.Jobs
	}
	if b.Output != "" {
		cfg.Project.OutputDir = b.Output
	}
	if b.Timeout > 0 {
		cfg.Build.ConverterTimeout = b.Timeout
	}

	if err := os.MkdirAll(cfg.Project.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, cleanup, err := newPipeline(cfg, b.NoCache)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if b.Watch {
		w := watcher.New(cfg, func(ctx context.Context) error {
			_, err := p.Run(ctx)
			return err
		}, nil)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	}

	m, err := p.Run(ctx)
	if err != nil {
		return err
	}

	for _, f := range m.Formats {
		switch {
		case f.Skipped:
			fmt.Printf("%-6s up to date: %s\n", f.Format, f.Artifact)
		default:
			fmt.Printf("%-6s built: %s (%s)\n", f.Format, f.Artifact, f.Duration.Round(time.Millisecond))
		}
	}
	return nil
}
