package parser

import (
	"github.com/ormasoftchile/workflow/pkg/schema"
)

// validate checks the structural invariants of a fully built workflow and
// collects non-fatal diagnostics.
func validate(wf *schema.Workflow) ([]Warning, error) {
	if len(wf.Steps) == 0 {
		pe := errorf(CodeEmptyWorkflow, 0, 0, "no steps found in workflow")
		pe.Hint = "steps are level-2 headings like '## 1. Title'"
		return nil, pe
	}

	for i, s := range wf.Steps {
		if expected := i + 1; s.Number.Int() != expected {
			return nil, errorf(CodeNonSequential, s.Number.Int(), s.Line,
				"step numbers must be sequential: expected step %d, found step %d", expected, s.Number)
		}
	}

	var warnings []Warning
	for _, s := range wf.Steps {
		selfJump := false
		for _, target := range s.GotoTargets() {
			if _, ok := wf.Index(target); !ok {
				return nil, errorf(CodeUnknownGotoTarget, s.Number.Int(), s.Line,
					"step %d jumps to step %d, but the workflow has only %d steps", s.Number, target, wf.Len())
			}
			if target == s.Number && !selfJump {
				selfJump = true
				warnings = append(warnings, warningf(WarnSelfGoto, s.Number.Int(), s.Line,
					"step %d jumps to itself; this loops until the iteration limit unless the outcome changes", s.Number))
			}
		}
		if !s.HasCommand() && len(s.Prompts) == 0 {
			warnings = append(warnings, warningf(WarnEmptyStep, s.Number.Int(), s.Line,
				"step %d has no command and no prompt; it does nothing", s.Number))
		}
	}
	return warnings, nil
}
