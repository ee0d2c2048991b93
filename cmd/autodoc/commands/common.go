package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/autodoc/internal/cache"
	"git.home.luguber.info/inful/autodoc/internal/config"
	"git.home.luguber.info/inful/autodoc/internal/converter"
	"git.home.luguber.info/inful/autodoc/internal/diagram"
	"git.home.luguber.info/inful/autodoc/internal/notify"
	"git.home.luguber.info/inful/autodoc/internal/pipeline"
)

// cacheFileName is the cache database inside the cache directory.
const cacheFileName = "cache.db"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: probe autodoc.yaml variants)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Build documents from Markdown fragments"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
	Check    CheckCmd    `cmd:"" help:"Check that required external tools are installed"`
	Status   StatusCmd   `cmd:"" help:"Show cached build state"`
	Clean    CleanCmd    `cmd:"" help:"Remove build outputs"`
	Diagrams DiagramsCmd `cmd:"" help:"Render diagrams without converting documents"`
	Template TemplateCmd `cmd:"" help:"Manage converter templates"`
	Show     ShowCmd     `cmd:"" name:"config" help:"Show the effective configuration"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// newPipeline assembles a Pipeline from configuration. The returned cleanup
// closes the cache store and the event publisher.
func newPipeline(cfg *config.Config, noCache bool) (*pipeline.Pipeline, func(), error) {
	store, err := cache.NewSQLiteStore(filepath.Join(cfg.Cache.Dir, cacheFileName))
	if err != nil {
		return nil, nil, err
	}

	buildCache := cache.New(store,
		cache.Disabled(noCache || cfg.Cache.Disabled),
		cache.TemplateInvalidation(cfg.TemplateInvalidation()),
	)

	renderer := diagram.NewMermaidCLI(cfg.Diagrams.Renderer, cfg.Diagrams.RenderTimeout)
	processor := diagram.NewProcessor(renderer, cfg.Project.ImagesDir, slog.Default())

	conv := converter.New(cfg.Build.Converter, cfg.Build.ConverterTimeout, nil, slog.Default())

	var publisher notify.Publisher = notify.NoopPublisher{}
	if cfg.Notify.URL != "" {
		p, err := notify.NewNATSPublisher(cfg.Notify.URL, cfg.Notify.Subject, slog.Default())
		if err != nil {
			slog.Warn("Build event publishing disabled", "error", err)
		} else {
			publisher = p
		}
	}

	p := pipeline.New(pipeline.Options{
		Config:    cfg,
		Cache:     buildCache,
		Converter: conv,
		Diagrams:  processor,
		Publisher: publisher,
	})

	cleanup := func() {
		publisher.Close()
		_ = store.Close()
	}
	return p, cleanup, nil
}
