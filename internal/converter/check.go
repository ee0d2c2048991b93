package converter

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Dependency is one external tool the pipeline may need.
type Dependency struct {
	Name        string
	Binary      string
	InstallHint string
	// Required tools fail the check; optional ones only warn.
	Required bool
	// Formats lists the output formats that need this tool, empty meaning
	// all of them.
	Formats []string
}

// DependencyStatus is the probe result for one dependency.
type DependencyStatus struct {
	Dependency
	Found bool
	Path  string
	// Version is the first line of `binary --version`, empty when the probe
	// fails or the tool is absent.
	Version string
}

// DefaultDependencies describes the external tools for a standard setup.
func DefaultDependencies(converterBinary, pdfEngine, diagramBinary string) []Dependency {
	if converterBinary == "" {
		converterBinary = "pandoc"
	}
	if pdfEngine == "" {
		pdfEngine = "xelatex"
	}
	if diagramBinary == "" {
		diagramBinary = "mmdc"
	}
	return []Dependency{
		{
			Name:        "converter",
			Binary:      converterBinary,
			InstallHint: "install pandoc: https://pandoc.org/installing.html",
			Required:    true,
		},
		{
			Name:        "pdf engine",
			Binary:      pdfEngine,
			InstallHint: "install a TeX distribution providing " + pdfEngine + " (e.g. TeX Live)",
			Required:    true,
			Formats:     []string{"pdf"},
		},
		{
			Name:        "diagram renderer",
			Binary:      diagramBinary,
			InstallHint: "install mermaid-cli: npm install -g @mermaid-js/mermaid-cli",
			Required:    false,
		},
	}
}

// Check probes each dependency on PATH and captures its version line.
func Check(deps []Dependency) []DependencyStatus {
	statuses := make([]DependencyStatus, 0, len(deps))
	for _, dep := range deps {
		path, err := exec.LookPath(dep.Binary)
		st := DependencyStatus{
			Dependency: dep,
			Found:      err == nil,
			Path:       path,
		}
		if st.Found {
			st.Version = versionLine(path)
		}
		statuses = append(statuses, st)
	}
	return statuses
}

func versionLine(binary string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}

// MissingRequired filters statuses down to required tools that are absent,
// honoring the format filter: a pdf-only tool does not block an html build.
func MissingRequired(statuses []DependencyStatus, formats []string) []DependencyStatus {
	want := make(map[string]struct{}, len(formats))
	for _, f := range formats {
		want[f] = struct{}{}
	}

	var missing []DependencyStatus
	for _, st := range statuses {
		if st.Found || !st.Required {
			continue
		}
		if len(st.Formats) > 0 {
			needed := false
			for _, f := range st.Formats {
				if _, ok := want[f]; ok {
					needed = true
					break
				}
			}
			if !needed {
				continue
			}
		}
		missing = append(missing, st)
	}
	return missing
}
