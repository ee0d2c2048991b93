// Package converter invokes the external document converter (pandoc) to turn
// staged Markdown fragments into a pdf, docx, or html artifact.
package converter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	aderrors "git.home.luguber.info/inful/autodoc/internal/errors"
)

// Runner executes an external command. Tests substitute a fake; production
// uses ExecRunner.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (stderr string, err error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run implements Runner. Stderr is captured for error reporting; the
// converter's stdout is not interesting when -o is used.
func (ExecRunner) Run(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// Converter runs conversion jobs against one converter binary.
type Converter struct {
	binary  string
	timeout time.Duration
	runner  Runner
	logger  *slog.Logger
}

// New creates a Converter. A nil runner defaults to ExecRunner.
func New(binary string, timeout time.Duration, runner Runner, logger *slog.Logger) *Converter {
	if binary == "" {
		binary = "pandoc"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{binary: binary, timeout: timeout, runner: runner, logger: logger}
}

// Convert runs one job. Failures are format-scoped errors so sibling formats
// keep building.
func (c *Converter) Convert(ctx context.Context, job Job) error {
	if len(job.Inputs) == 0 {
		return aderrors.ConverterError(job.Format, "no input fragments", nil)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := BuildArgs(job)
	c.logger.Debug("Running converter", "binary", c.binary, "format", job.Format, "output", job.Output, "inputs", len(job.Inputs))

	start := time.Now()
	stderr, err := c.runner.Run(ctx, c.binary, args)
	if err != nil {
		// A failed or canceled run must not leave a truncated artifact behind.
		os.Remove(job.Output)
		msg := fmt.Sprintf("%s failed", c.binary)
		if stderr != "" {
			msg = fmt.Sprintf("%s failed: %s", c.binary, stderr)
		}
		return aderrors.ConverterError(job.Format, msg, err).WithContext("output", job.Output)
	}

	c.logger.Info("Converted document", "format", job.Format, "output", job.Output, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}
