package parser

import (
	"testing"

	"github.com/ormasoftchile/workflow/pkg/schema"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		phrase string
		want   schema.Action
	}{
		{"CONTINUE", schema.Continue()},
		{"Continue", schema.Continue()},
		{"STOP", schema.Stop("")},
		{"STOP tests are red", schema.Stop("tests are red")},
		{"STOP: tests are red", schema.Stop("tests are red")},
		{"STOP (fix tests)", schema.Stop("fix tests")},
		{"GOTO 3", schema.Goto(3)},
		{"Go to Step 12", schema.Goto(12)},
	}
	for _, tt := range tests {
		got, err := parseAction(tt.phrase)
		if err != nil {
			t.Errorf("parseAction(%q): %v", tt.phrase, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAction(%q) = %v, want %v", tt.phrase, got, tt.want)
		}
	}
}

func TestParseActionRejects(t *testing.T) {
	for _, phrase := range []string{"", "continue", "stop", "GOTO", "GOTO 0", "GOTO x", "Go to Step -1", "STOPPED"} {
		if _, err := parseAction(phrase); err == nil {
			t.Errorf("parseAction(%q) should fail", phrase)
		}
	}
}

func TestParseConditionalRecognition(t *testing.T) {
	tests := []struct {
		line    string
		ok      bool
		outcome outcome
	}{
		{"PASS: CONTINUE", true, outcomePass},
		{"FAIL → STOP", true, outcomeFail},
		{"Pass: Continue", true, outcomePass},
		{"Fail: STOP", true, outcomeFail},
		{"PASSING tests are good", false, 0},
		{"pass: CONTINUE", false, 0},
		{"Pass CONTINUE", false, 0},
		{"The build must PASS: always", false, 0},
	}
	for _, tt := range tests {
		d, ok, err := parseConditional(tt.line)
		if err != nil {
			t.Errorf("parseConditional(%q): %v", tt.line, err)
			continue
		}
		if ok != tt.ok {
			t.Errorf("parseConditional(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if ok && d.outcome != tt.outcome {
			t.Errorf("parseConditional(%q) outcome = %v", tt.line, d.outcome)
		}
	}
}
