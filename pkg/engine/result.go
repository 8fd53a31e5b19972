package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ormasoftchile/workflow/pkg/schema"
)

// Outcome enumerates the normal terminal outcomes of a run. None of them is
// an error.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeStopped   Outcome = "stopped"
	OutcomeCancelled Outcome = "cancelled" // the operator declined a prompt
)

// Result is the outcome of running a workflow.
type Result struct {
	Outcome    Outcome           `json:"outcome"`
	Message    string            `json:"message,omitempty"` // stop message, empty when none
	Step       schema.StepNumber `json:"step,omitempty"`    // step that stopped or cancelled the run
	Iterations int               `json:"iterations"`
	Duration   time.Duration     `json:"duration"`
}

// ExitCode maps the outcome to the process exit code.
func (r *Result) ExitCode() int {
	switch r.Outcome {
	case OutcomeSuccess:
		return 0
	case OutcomeStopped:
		return 1
	case OutcomeCancelled:
		return 2
	default:
		return 4
	}
}

var (
	// ErrIterationLimit is wrapped when a run exceeds its iteration budget.
	ErrIterationLimit = errors.New("exceeded maximum iterations")
	// ErrCancelled is wrapped when the run's context ends between steps.
	ErrCancelled = errors.New("run cancelled")
)

// ExecutionError is a fatal run failure, attributed to the step that was
// current when it happened.
type ExecutionError struct {
	Step        schema.StepNumber
	Description string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Description, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
