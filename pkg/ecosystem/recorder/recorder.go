// Package recorder captures the command results and prompt answers of a run
// so it can be replayed later.
package recorder

import (
	"context"
	"os"
	"strings"

	"github.com/ormasoftchile/workflow/pkg/providers"
	"github.com/ormasoftchile/workflow/pkg/replay"
	"github.com/ormasoftchile/workflow/pkg/schema"
)

// Recorder wraps a CommandExecutor and a Prompter and captures everything
// they return. Output shown directly on the terminal under the inherit
// discipline was never captured and is recorded as empty.
type Recorder struct {
	inner    providers.CommandExecutor
	prompter providers.Prompter
	secrets  []string // env var names whose values should be redacted

	Commands []replay.ScenarioCommand
	Answers  []string
}

// New creates a recording wrapper around an existing executor and prompter.
func New(inner providers.CommandExecutor, prompter providers.Prompter) *Recorder {
	return &Recorder{inner: inner, prompter: prompter}
}

// SetSecrets configures secret env var names whose values are redacted in captured output.
func (r *Recorder) SetSecrets(envVars []string) {
	r.secrets = envVars
}

// Execute delegates to the inner executor and records the response.
func (r *Recorder) Execute(ctx context.Context, c schema.Command) (*providers.CommandResult, error) {
	result, err := r.inner.Execute(ctx, c)
	if err != nil {
		return nil, err
	}
	r.Commands = append(r.Commands, replay.ScenarioCommand{
		Command:  c.Code,
		Stdout:   r.redact(string(result.Stdout)),
		Stderr:   r.redact(string(result.Stderr)),
		ExitCode: result.ExitCode,
	})
	return result, nil
}

// Prompter returns a prompter that records each answer.
func (r *Recorder) Prompter() providers.Prompter {
	return recordingPrompter{r}
}

type recordingPrompter struct{ r *Recorder }

func (p recordingPrompter) Ask(prompt string) (string, error) {
	answer, err := p.r.prompter.Ask(prompt)
	if err != nil {
		return "", err
	}
	p.r.Answers = append(p.r.Answers, answer)
	return answer, nil
}

// Scenario returns what has been recorded so far.
func (r *Recorder) Scenario(workflow string) *replay.Scenario {
	return &replay.Scenario{
		Workflow: workflow,
		Commands: r.Commands,
		Answers:  r.Answers,
	}
}

// redact replaces secret values with <REDACTED>.
func (r *Recorder) redact(s string) string {
	for _, envVar := range r.secrets {
		val := os.Getenv(envVar)
		if val != "" {
			s = strings.ReplaceAll(s, val, "<REDACTED>")
		}
	}
	return s
}
