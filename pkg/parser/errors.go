package parser

import (
	"fmt"
	"strings"
)

// Stable error codes carried by ParseError.
const (
	CodeEmptyWorkflow      = "empty_workflow"
	CodeInvalidFrontMatter = "invalid_front_matter"
	CodeMalformedHeading   = "malformed_heading"
	CodeReservedStepPrefix = "reserved_step_prefix"
	CodeNonPositiveStep    = "non_positive_step"
	CodeNonSequential      = "non_sequential"
	CodeDuplicateCommand   = "duplicate_command"
	CodeDuplicateCondition = "duplicate_condition"
	CodeInvalidAction      = "invalid_action"
	CodeUnknownGotoTarget  = "unknown_goto_target"
)

// Stable warning codes carried by Warning.
const (
	WarnEmptyStep                = "empty_step"
	WarnSelfGoto                 = "self_goto"
	WarnConditionsWithoutCommand = "conditions_without_command"
	WarnIgnoredHeading           = "ignored_heading"
	WarnContentOutsideStep       = "content_outside_step"
)

// ParseError is a fatal syntax or structure violation. Parsing never returns
// a partial workflow alongside one.
type ParseError struct {
	Code    string `json:"code"`
	Step    int    `json:"step,omitempty"` // 0 when not attributable to a step
	Line    int    `json:"line,omitempty"` // 1-based, 0 when unknown
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	sb.WriteString(e.Message)
	if e.Hint != "" {
		sb.WriteString(" (hint: ")
		sb.WriteString(e.Hint)
		sb.WriteString(")")
	}
	return sb.String()
}

// Warning is a non-fatal diagnostic. Parsing succeeds regardless.
type Warning struct {
	Code    string `json:"code"`
	Step    int    `json:"step,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

func errorf(code string, step, line int, msg string, args ...any) *ParseError {
	return &ParseError{
		Code:    code,
		Step:    step,
		Line:    line,
		Message: fmt.Sprintf(msg, args...),
	}
}

func warningf(code string, step, line int, msg string, args ...any) Warning {
	return Warning{
		Code:    code,
		Step:    step,
		Line:    line,
		Message: fmt.Sprintf(msg, args...),
	}
}
