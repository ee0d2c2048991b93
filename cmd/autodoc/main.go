package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/autodoc/cmd/autodoc/commands"
	"git.home.luguber.info/inful/autodoc/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("autodoc"),
		kong.Description("Build PDF, DOCX, and HTML documents from Markdown fragments."),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("autodoc %s (%s)", version.Version, version.GitCommit)},
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
