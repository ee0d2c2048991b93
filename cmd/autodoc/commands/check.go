package commands

import (
	"fmt"

	"git.home.luguber.info/inful/autodoc/internal/config"
	"git.home.luguber.info/inful/autodoc/internal/converter"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct{}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	deps := converter.DefaultDependencies(cfg.Build.Converter, cfg.Build.PDFEngine, cfg.Diagrams.Renderer)
	statuses := converter.Check(deps)

	for _, st := range statuses {
		switch {
		case st.Found:
			detail := st.Path
			if st.Version != "" {
				detail = st.Version
			}
			fmt.Printf("ok       %-18s %s (%s)\n", st.Name, st.Binary, detail)
		case st.Required:
			fmt.Printf("MISSING  %-18s %s\n         %s\n", st.Name, st.Binary, st.InstallHint)
		default:
			fmt.Printf("missing  %-18s %s (optional)\n         %s\n", st.Name, st.Binary, st.InstallHint)
		}
	}

	if missing := converter.MissingRequired(statuses, cfg.Build.Formats); len(missing) > 0 {
		return fmt.Errorf("%d required tool(s) missing for formats %v", len(missing), cfg.Build.Formats)
	}
	fmt.Println("All required tools found")
	return nil
}
