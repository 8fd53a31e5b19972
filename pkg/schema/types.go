// Package schema defines the immutable workflow model produced by the parser
// and consumed by the execution engine.
package schema

import (
	"errors"
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// StepNumber
// ---------------------------------------------------------------------------

// ErrZeroStep is returned when a step number of zero (or less) is constructed.
var ErrZeroStep = errors.New("step number must be a positive integer")

// StepNumber identifies a step's position and is the target of GOTO jumps.
type StepNumber int

// NewStepNumber validates n and returns it as a StepNumber.
func NewStepNumber(n int) (StepNumber, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrZeroStep, n)
	}
	return StepNumber(n), nil
}

// ParseStepNumber parses a decimal step number.
func ParseStepNumber(s string) (StepNumber, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid step number %q", s)
	}
	return NewStepNumber(n)
}

// Int returns the number as a plain int.
func (n StepNumber) Int() int { return int(n) }

func (n StepNumber) String() string { return strconv.Itoa(int(n)) }

// ---------------------------------------------------------------------------
// Command / Prompt
// ---------------------------------------------------------------------------

// Command is the single shell command line a step may run.
type Command struct {
	Code  string `yaml:"code"            json:"code"`
	Quiet bool   `yaml:"quiet,omitempty" json:"quiet,omitempty" jsonschema:"description=Suppress stdout display when the command succeeds"`
}

// Prompt is a yes/no question shown to the operator.
type Prompt struct {
	Text string `yaml:"text" json:"text"`
}

// ---------------------------------------------------------------------------
// Action
// ---------------------------------------------------------------------------

// ActionKind enumerates the three control-flow actions.
type ActionKind string

const (
	ActionContinue ActionKind = "continue"
	ActionStop     ActionKind = "stop"
	ActionGoto     ActionKind = "goto"
)

// Action is what happens after a step's command finishes.
// Message is only meaningful for stop; Target only for goto.
type Action struct {
	Kind    ActionKind `yaml:"kind"              json:"kind" jsonschema:"enum=continue,enum=stop,enum=goto"`
	Message string     `yaml:"message,omitempty" json:"message,omitempty"`
	Target  StepNumber `yaml:"target,omitempty"  json:"target,omitempty"`
}

// Continue advances to the next step.
func Continue() Action { return Action{Kind: ActionContinue} }

// Stop terminates the workflow. An empty message means no message.
func Stop(message string) Action { return Action{Kind: ActionStop, Message: message} }

// Goto jumps to the step with the given number.
func Goto(target StepNumber) Action { return Action{Kind: ActionGoto, Target: target} }

// String renders the action in the canonical authoring syntax.
func (a Action) String() string {
	switch a.Kind {
	case ActionContinue:
		return "CONTINUE"
	case ActionStop:
		if a.Message != "" {
			return "STOP " + a.Message
		}
		return "STOP"
	case ActionGoto:
		return "GOTO " + a.Target.String()
	default:
		return string(a.Kind)
	}
}

// ---------------------------------------------------------------------------
// Conditions
// ---------------------------------------------------------------------------

// Conditions binds one action to each command outcome. Both are always set.
type Conditions struct {
	Pass Action `yaml:"pass" json:"pass"`
	Fail Action `yaml:"fail" json:"fail"`
}

// DefaultConditions returns the implicit pass→continue / fail→stop pair.
func DefaultConditions() Conditions {
	return Conditions{Pass: Continue(), Fail: Stop("")}
}

// For returns the action bound to the given command outcome.
func (c Conditions) For(success bool) Action {
	if success {
		return c.Pass
	}
	return c.Fail
}

// ImplicitAction is the action applied when a step has no conditions, or
// when the active mode forbids the one its conditions selected.
func ImplicitAction(success bool) Action {
	return DefaultConditions().For(success)
}

// ---------------------------------------------------------------------------
// Step / Workflow
// ---------------------------------------------------------------------------

// Step is one numbered unit of a workflow.
type Step struct {
	Number      StepNumber  `yaml:"number"               json:"number" jsonschema:"minimum=1"`
	Description string      `yaml:"description"          json:"description"`
	Command     *Command    `yaml:"command,omitempty"    json:"command,omitempty"`
	Prompts     []Prompt    `yaml:"prompts,omitempty"    json:"prompts,omitempty"`
	Conditions  *Conditions `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Line        int         `yaml:"-"                    json:"-"` // 1-based source line of the heading
}

// HasCommand reports whether the step runs a command.
func (s Step) HasCommand() bool { return s.Command != nil }

// Effective returns the step's conditions, or the implicit defaults.
func (s Step) Effective() Conditions {
	if s.Conditions != nil {
		return *s.Conditions
	}
	return DefaultConditions()
}

// GotoTargets lists the targets of any GOTO actions in the step's conditions.
func (s Step) GotoTargets() []StepNumber {
	if s.Conditions == nil {
		return nil
	}
	var out []StepNumber
	for _, a := range []Action{s.Conditions.Pass, s.Conditions.Fail} {
		if a.Kind == ActionGoto {
			out = append(out, a.Target)
		}
	}
	return out
}

// Workflow is the ordered, validated list of steps. It is built once by the
// parser and only read afterwards.
type Workflow struct {
	Title       string `yaml:"title,omitempty"       json:"title,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Step `yaml:"steps"                 json:"steps" jsonschema:"minItems=1"`
}

// Len returns the number of steps.
func (w *Workflow) Len() int { return len(w.Steps) }

// Index returns the slice index of the step with number n.
func (w *Workflow) Index(n StepNumber) (int, bool) {
	for i, s := range w.Steps {
		if s.Number == n {
			return i, true
		}
	}
	return -1, false
}

// Step returns the step with number n.
func (w *Workflow) Step(n StepNumber) (Step, bool) {
	i, ok := w.Index(n)
	if !ok {
		return Step{}, false
	}
	return w.Steps[i], true
}

// Numbers lists the step numbers in order.
func (w *Workflow) Numbers() []StepNumber {
	out := make([]StepNumber, len(w.Steps))
	for i, s := range w.Steps {
		out[i] = s.Number
	}
	return out
}
