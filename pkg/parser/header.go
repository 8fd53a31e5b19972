package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ormasoftchile/workflow/pkg/schema"
)

var (
	// headingPattern matches "<digits><separators><title>".
	headingPattern = regexp.MustCompile(`^(\d+)([.:\-)\s]+)(.*)$`)
	// leadingDigits catches numbers glued to text, e.g. "10x".
	leadingDigits = regexp.MustCompile(`^\d+`)
	// reservedPrefix is the verbose "Step 1" form that is rejected outright.
	reservedPrefix = regexp.MustCompile(`(?i)^step\s*\d+`)
)

const titleCutset = ".:-) \t"

// stepHeading is a recognized "## N. Title" heading.
type stepHeading struct {
	number schema.StepNumber
	title  string
}

// parseStepHeading interprets the text of a level-2 heading. It returns
// ok=false with a nil error for headings that are not step headings at all.
func parseStepHeading(text string, line int) (stepHeading, bool, error) {
	text = strings.TrimSpace(text)

	if reservedPrefix.MatchString(text) {
		pe := errorf(CodeReservedStepPrefix, 0, line, "step heading %q uses the reserved word \"Step\"", text)
		pe.Hint = "use '## 1. Title'"
		return stepHeading{}, false, pe
	}

	m := headingPattern.FindStringSubmatch(text)
	if m == nil {
		if leadingDigits.MatchString(text) {
			pe := errorf(CodeMalformedHeading, 0, line, "step heading %q has no separator after its number", text)
			pe.Hint = "use '## 1. Title'"
			return stepHeading{}, false, pe
		}
		return stepHeading{}, false, nil
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return stepHeading{}, false, errorf(CodeMalformedHeading, 0, line, "step number %q is out of range", m[1])
	}
	number, err := schema.NewStepNumber(n)
	if err != nil {
		return stepHeading{}, false, errorf(CodeNonPositiveStep, 0, line, "step heading %q: %v", text, err)
	}

	title := strings.Trim(m[3], titleCutset)
	if title == "" {
		pe := errorf(CodeMalformedHeading, n, line, "step %d has no title", n)
		pe.Hint = "use '## 1. Title'"
		return stepHeading{}, false, pe
	}
	return stepHeading{number: number, title: title}, true, nil
}
