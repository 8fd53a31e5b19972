package replay

import (
	"context"
	"fmt"

	"github.com/ormasoftchile/workflow/pkg/providers"
	"github.com/ormasoftchile/workflow/pkg/schema"
)

// ReplayExecutor implements CommandExecutor by matching commands against
// pre-recorded scenario entries. Fail-closed: returns an error if no match.
type ReplayExecutor struct {
	scenario *Scenario
	used     []bool // track which commands have been used
}

// NewReplayExecutor creates a ReplayExecutor from a loaded scenario.
func NewReplayExecutor(s *Scenario) *ReplayExecutor {
	return &ReplayExecutor{
		scenario: s,
		used:     make([]bool, len(s.Commands)),
	}
}

// Execute returns the first unused entry recorded for the same command line.
// A command that loops is matched against successive recordings.
func (r *ReplayExecutor) Execute(ctx context.Context, c schema.Command) (*providers.CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, sc := range r.scenario.Commands {
		if r.used[i] || sc.Command != c.Code {
			continue
		}
		r.used[i] = true
		return &providers.CommandResult{
			Stdout:   []byte(sc.Stdout),
			Stderr:   []byte(sc.Stderr),
			ExitCode: sc.ExitCode,
			Success:  sc.ExitCode == 0,
		}, nil
	}
	return nil, fmt.Errorf("replay: no matching scenario entry for command: %s", c.Code)
}

// Remaining returns the number of recorded commands not replayed yet.
func (r *ReplayExecutor) Remaining() int {
	n := 0
	for _, u := range r.used {
		if !u {
			n++
		}
	}
	return n
}

// Prompter answers prompts with the scenario's recorded answers.
func (s *Scenario) Prompter() *providers.ScriptedPrompter {
	return providers.NewScriptedPrompter(s.Answers...)
}
