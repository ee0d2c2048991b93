package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/autodoc/internal/cache"
	"git.home.luguber.info/inful/autodoc/internal/config"
	"git.home.luguber.info/inful/autodoc/internal/discovery"
)

// StatusCmd implements the 'status' command: what would build, and what the
// cache already holds.
type StatusCmd struct {
	JSON bool `help:"Emit machine-readable JSON"`
}

type statusReport struct {
	Fragments []string       `json:"fragments"`
	Cached    []cache.Status `json:"cached"`
}

func (s *StatusCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	result, err := discovery.Discover(cfg.Project.SourceDir, cfg.Project.Exclude)
	if err != nil {
		return err
	}

	store, err := cache.NewSQLiteStore(filepath.Join(cfg.Cache.Dir, cacheFileName))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	statuses, err := store.List(context.Background(), cfg.Project.Name)
	if err != nil {
		return err
	}

	if s.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statusReport{Fragments: result.Paths(), Cached: statuses})
	}

	fmt.Printf("%d fragment(s) in %s:\n", len(result.Files), result.Root)
	for _, f := range result.Files {
		marker := " "
		if f.IsSetup {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, f.Name)
	}

	if len(statuses) == 0 {
		fmt.Println("No cached builds")
		return nil
	}
	for _, st := range statuses {
		fmt.Printf("%-6s %s (%d fragments, built %s)\n",
			st.Format, st.Artifact, st.Fragments, st.BuiltAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
