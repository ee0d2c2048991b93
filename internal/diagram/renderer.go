package diagram

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Renderer turns diagram source text into an image file.
type Renderer interface {
	// Render writes the rendered image for source to outPath.
	Render(ctx context.Context, source string, outPath string) error
	// Name identifies the renderer binary for dependency checks.
	Name() string
}

// MermaidCLI renders Mermaid diagrams by invoking the mmdc binary.
type MermaidCLI struct {
	// Binary is the mmdc executable, resolved via PATH when relative.
	Binary string
	// Timeout bounds a single render. Zero means no extra bound beyond ctx.
	Timeout time.Duration
}

// NewMermaidCLI returns a renderer for the given binary name.
func NewMermaidCLI(binary string, timeout time.Duration) *MermaidCLI {
	if binary == "" {
		binary = "mmdc"
	}
	return &MermaidCLI{Binary: binary, Timeout: timeout}
}

// Name implements Renderer.
func (m *MermaidCLI) Name() string { return m.Binary }

// Render implements Renderer. The source is handed to mmdc through a
// temporary file; mmdc has no stdin mode for diagram input.
func (m *MermaidCLI) Render(ctx context.Context, source string, outPath string) error {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	tmp, err := os.CreateTemp("", "autodoc-diagram-*.mmd")
	if err != nil {
		return fmt.Errorf("create diagram temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(source); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write diagram source: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close diagram source: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, m.Binary, "-i", tmp.Name(), "-o", outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", m.Binary, err, string(out))
	}
	return nil
}
