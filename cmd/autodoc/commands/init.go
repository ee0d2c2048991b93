package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/autodoc/internal/config"
)

// InitCmd implements the 'init' command: configuration file plus a minimal
// project skeleton to build from immediately.
type InitCmd struct {
	Force bool `help:"Overwrite an existing configuration file"`
}

const setupSkeleton = `---
title: My Document
author: Your Name
lang: en
toc: true
---
`

const introSkeleton = `# Introduction

Write your content here. Files build in natural name order, so number them
to control chapter order.
`

const gitignoreSkeleton = `output/
.autodoc/
`

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = config.DefaultFileNames[0]
	}
	if err := config.Init(path, i.Force); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)

	dir := filepath.Dir(path)
	skeleton := []struct {
		name    string
		content string
	}{
		{config.SetupFileName, setupSkeleton},
		{"01-introduction.md", introSkeleton},
		{".gitignore", gitignoreSkeleton},
	}
	for _, f := range skeleton {
		target := filepath.Join(dir, f.name)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := os.WriteFile(target, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		fmt.Printf("Created %s\n", target)
	}
	for _, sub := range []string{"images", "templates"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("create %s directory: %w", sub, err)
		}
	}
	return nil
}
