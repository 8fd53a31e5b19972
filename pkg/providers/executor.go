// Package providers defines the CommandExecutor and Prompter interfaces the
// engine calls out to, and their shell, dry-run and scripted implementations.
package providers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ormasoftchile/workflow/pkg/schema"
)

// Discipline selects how a shell command's stdio is wired.
type Discipline string

const (
	// Inherit connects the command to the surrounding terminal so interactive
	// programs work. Quiet commands still have stdout buffered.
	Inherit Discipline = "inherit"
	// Capture buffers stdout and stderr for the engine to display.
	Capture Discipline = "capture"
)

// ParseDiscipline converts a discipline name. The empty string selects Inherit.
func ParseDiscipline(s string) (Discipline, error) {
	switch Discipline(s) {
	case "", Inherit:
		return Inherit, nil
	case Capture:
		return Capture, nil
	default:
		return "", fmt.Errorf("unknown execution discipline %q: must be inherit or capture", s)
	}
}

// CommandResult holds the outcome of a single command execution.
//
// StdoutShown and StderrShown report whether the stream already reached the
// terminal while the command ran. Anything not shown is in Stdout / Stderr
// and is the engine's to display.
type CommandResult struct {
	Stdout      []byte        `json:"stdout,omitempty"`
	Stderr      []byte        `json:"stderr,omitempty"`
	ExitCode    int           `json:"exit_code"`
	Success     bool          `json:"success"`
	Duration    time.Duration `json:"duration"`
	StdoutShown bool          `json:"-"`
	StderrShown bool          `json:"-"`
}

// CommandExecutor runs a step's command to completion.
// Implementations: ShellExecutor, DryRunExecutor.
//
// A non-nil error means the executor itself failed (the shell could not be
// started, I/O broke). A command that ran and exited non-zero is not an error.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd schema.Command) (*CommandResult, error)
}

// DryRunExecutor reports what would run and assumes every command succeeds.
type DryRunExecutor struct {
	Out io.Writer
}

func (d *DryRunExecutor) Execute(_ context.Context, cmd schema.Command) (*CommandResult, error) {
	if d.Out != nil {
		if _, err := fmt.Fprintf(d.Out, "[dry-run] would execute: %s\n", cmd.Code); err != nil {
			return nil, fmt.Errorf("dry-run output: %w", err)
		}
	}
	return &CommandResult{
		ExitCode:    0,
		Success:     true,
		StdoutShown: true,
		StderrShown: true,
	}, nil
}
