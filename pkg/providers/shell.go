package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/ormasoftchile/workflow/pkg/schema"
)

// ShellExecutor runs commands through `<Shell> -c`.
type ShellExecutor struct {
	Shell      string // default "sh"
	Discipline Discipline
	Dir        string
	Env        []string

	// Terminal streams used under the inherit discipline. Nil means the
	// process's own stdin / stdout / stderr.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewShellExecutor returns an executor for the given shell and discipline.
func NewShellExecutor(shell string, d Discipline) *ShellExecutor {
	if shell == "" {
		shell = "sh"
	}
	if d == "" {
		d = Inherit
	}
	return &ShellExecutor{Shell: shell, Discipline: d}
}

// Execute runs the command and waits for it to exit. The command is never
// killed part-way; ctx is only consulted before it starts.
func (s *ShellExecutor) Execute(ctx context.Context, c schema.Command) (*CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shell := s.Shell
	if shell == "" {
		shell = "sh"
	}

	start := time.Now()
	cmd := exec.Command(shell, "-c", c.Code)
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = s.Env
	}

	var stdout, stderr bytes.Buffer
	res := &CommandResult{}
	switch s.Discipline {
	case Capture:
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	default:
		cmd.Stdin = orReader(s.Stdin, os.Stdin)
		cmd.Stderr = orWriter(s.Stderr, os.Stderr)
		res.StderrShown = true
		if c.Quiet {
			// Held back so it can be shown if the command fails.
			cmd.Stdout = &stdout
		} else {
			cmd.Stdout = orWriter(s.Stdout, os.Stdout)
			res.StdoutShown = true
		}
	}

	err := cmd.Run()
	res.Duration = time.Since(start)
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("execute command via %s: %w", shell, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	res.Success = res.ExitCode == 0
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	return res, nil
}

func orReader(r, def io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return def
}

func orWriter(w, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}
