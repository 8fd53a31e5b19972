package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ormasoftchile/workflow/pkg/schema"
)

// outcome names which side of a step's Conditions a directive sets.
type outcome int

const (
	outcomePass outcome = iota
	outcomeFail
)

func (o outcome) String() string {
	if o == outcomePass {
		return "PASS"
	}
	return "FAIL"
}

// directive is one parsed "PASS: ..." / "FAIL: ..." line.
type directive struct {
	outcome outcome
	action  schema.Action
}

var (
	currentDirective = regexp.MustCompile(`^(PASS|FAIL)[\s:\-=>→]+(.*)$`)
	legacyDirective  = regexp.MustCompile(`^(Pass|Fail):\s*(.*)$`)

	stopWithMessage = regexp.MustCompile(`^STOP(?:\s*[:\-]\s*|\s+)(.+)$`)
	gotoAction      = regexp.MustCompile(`^GOTO\s+(-?\d+)$`)
	legacyGoto      = regexp.MustCompile(`^Go to Step\s+(-?\d+)$`)
)

// parseConditional recognizes a conditional directive line. ok is false when
// the line is not a directive at all; err is set when it is one but its
// action phrase cannot be understood.
func parseConditional(line string) (directive, bool, error) {
	line = strings.TrimSpace(line)

	m := currentDirective.FindStringSubmatch(line)
	if m == nil {
		m = legacyDirective.FindStringSubmatch(line)
	}
	if m == nil {
		return directive{}, false, nil
	}

	d := directive{outcome: outcomePass}
	if strings.EqualFold(m[1], "fail") {
		d.outcome = outcomeFail
	}
	a, err := parseAction(m[2])
	if err != nil {
		return directive{}, true, fmt.Errorf("%s directive: %w", d.outcome, err)
	}
	d.action = a
	return d, true, nil
}

// parseAction converts an action phrase into the canonical Action, trying the
// current spelling first and then the deprecated ones.
func parseAction(phrase string) (schema.Action, error) {
	phrase = strings.TrimSpace(phrase)

	switch phrase {
	case "":
		return schema.Action{}, fmt.Errorf("missing action: expected CONTINUE, STOP or GOTO <n>")
	case "CONTINUE", "Continue":
		return schema.Continue(), nil
	case "STOP":
		return schema.Stop(""), nil
	}

	if m := stopWithMessage.FindStringSubmatch(phrase); m != nil {
		msg := strings.TrimSpace(m[1])
		if strings.HasPrefix(msg, "(") && strings.HasSuffix(msg, ")") {
			msg = strings.TrimSpace(msg[1 : len(msg)-1])
		}
		return schema.Stop(msg), nil
	}

	m := gotoAction.FindStringSubmatch(phrase)
	if m == nil {
		m = legacyGoto.FindStringSubmatch(phrase)
	}
	if m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return schema.Action{}, fmt.Errorf("invalid GOTO target %q", m[1])
		}
		target, err := schema.NewStepNumber(n)
		if err != nil {
			return schema.Action{}, fmt.Errorf("invalid GOTO target: %w", err)
		}
		return schema.Goto(target), nil
	}

	return schema.Action{}, fmt.Errorf("unrecognized action %q: expected CONTINUE, STOP [message] or GOTO <n>", phrase)
}
