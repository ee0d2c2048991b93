package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/autodoc/internal/cache"
	"git.home.luguber.info/inful/autodoc/internal/config"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Cache bool `help:"Also drop cached build state and rendered diagram images"`
}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(cfg.Project.OutputDir); err != nil {
		return fmt.Errorf("remove output directory: %w", err)
	}
	fmt.Printf("Removed %s\n", cfg.Project.OutputDir)

	if !c.Cache {
		return nil
	}

	store, err := cache.NewSQLiteStore(filepath.Join(cfg.Cache.Dir, cacheFileName))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if err := store.Reset(context.Background(), cfg.Project.Name); err != nil {
		return err
	}
	fmt.Println("Cleared cached build state")

	// Only rendered diagrams are removed; user-provided images stay.
	rendered, err := filepath.Glob(filepath.Join(cfg.Project.ImagesDir, "diagram-*.svg"))
	if err != nil {
		return err
	}
	for _, path := range rendered {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove rendered diagram: %w", err)
		}
	}
	if len(rendered) > 0 {
		fmt.Printf("Removed %d rendered diagram(s)\n", len(rendered))
	}
	return nil
}
