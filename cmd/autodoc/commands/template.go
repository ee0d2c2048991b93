package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/autodoc/internal/config"
	"git.home.luguber.info/inful/autodoc/internal/templates"
)

// TemplateCmd groups template management subcommands.
type TemplateCmd struct {
	List    TemplateListCmd    `cmd:"" help:"List installed templates"`
	Install TemplateInstallCmd `cmd:"" help:"Install a template from a local file"`
	Fetch   TemplateFetchCmd   `cmd:"" help:"Fetch templates from a remote catalog"`
}

// TemplateListCmd lists installed templates and what each format resolves to.
type TemplateListCmd struct{}

func (t *TemplateListCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	entries, err := templates.List(cfg.Project.TemplatesDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No templates installed")
	}
	for _, e := range entries {
		fmt.Printf("%-24s %8d bytes\n", e.Name, e.Size)
	}

	for _, format := range cfg.Build.Formats {
		resolved, err := templates.Resolve(cfg.Project.TemplatesDir, format)
		if err != nil {
			return err
		}
		if resolved.Path == "" {
			fmt.Printf("%-6s converter default\n", format)
		} else {
			fmt.Printf("%-6s %s\n", format, resolved.Path)
		}
	}
	return nil
}

// TemplateInstallCmd copies a local template file into the templates directory.
type TemplateInstallCmd struct {
	Path string `arg:"" help:"Template file to install"`
}

func (t *TemplateInstallCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	dst, err := templates.Install(cfg.Project.TemplatesDir, t.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Installed %s\n", dst)
	return nil
}

// TemplateFetchCmd downloads templates from a remote catalog index page.
type TemplateFetchCmd struct {
	URL  string `arg:"" help:"Catalog index URL"`
	Name string `help:"Only fetch the template with this file name"`
}

func (t *TemplateFetchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	entries, err := templates.FetchCatalog(ctx, t.URL, nil)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no templates found at %s", t.URL)
	}

	fetched := 0
	for _, entry := range entries {
		if t.Name != "" && entry.Name != t.Name {
			continue
		}
		dst, err := templates.Download(ctx, entry, cfg.Project.TemplatesDir, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Fetched %s\n", dst)
		fetched++
	}
	if fetched == 0 {
		return fmt.Errorf("no template named %q in catalog", t.Name)
	}
	return nil
}
