package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/ormasoftchile/workflow/pkg/parser"
	"github.com/ormasoftchile/workflow/pkg/providers"
	"github.com/ormasoftchile/workflow/pkg/schema"
	"github.com/ormasoftchile/workflow/pkg/trace"
)

// fakeExecutor records commands and exits with the code in "exit N", or 0.
// Output is returned as captured so the engine decides what to show.
type fakeExecutor struct {
	commands []string
	stdout   string
	stderr   string
	err      error
}

func (f *fakeExecutor) Execute(_ context.Context, c schema.Command) (*providers.CommandResult, error) {
	f.commands = append(f.commands, c.Code)
	if f.err != nil {
		return nil, f.err
	}
	code := 0
	if rest, ok := strings.CutPrefix(c.Code, "exit "); ok {
		code, _ = strconv.Atoi(strings.TrimSpace(rest))
	}
	return &providers.CommandResult{
		Stdout:   []byte(f.stdout),
		Stderr:   []byte(f.stderr),
		ExitCode: code,
		Success:  code == 0,
	}, nil
}

type failingPrompter struct{}

func (failingPrompter) Ask(string) (string, error) { return "", errors.New("terminal gone") }

func mustParse(t *testing.T, src string) *schema.Workflow {
	t.Helper()
	wf, _, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return wf
}

func newTestEngine(wf *schema.Workflow, mode schema.Mode, exec providers.CommandExecutor, p providers.Prompter) (*Engine, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	eng := New(wf, Config{
		Mode:     mode,
		Executor: exec,
		Prompter: p,
		Stdout:   &stdout,
		Stderr:   &stderr,
	})
	return eng, &stdout, &stderr
}

func visited(eng *Engine) string {
	parts := make([]string, len(eng.VisitedSteps))
	for i, n := range eng.VisitedSteps {
		parts[i] = n.String()
	}
	return strings.Join(parts, ",")
}

const gotoWorkflow = "## 1. Run\n\nPASS: GOTO 3\nFAIL: STOP\n\n```bash\nexit 0\n```\n\n" +
	"## 2. Skip\n\n```bash\necho skipped\n```\n\n" +
	"## 3. Target\n\n```bash\necho target\n```\n"

// --- Scenarios ---

func TestRun_ShellExitZeroSucceeds(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX sh")
	}
	wf := mustParse(t, "## 1. Run\n\n```bash\nexit 0\n```\n")
	eng, _, _ := newTestEngine(wf, schema.Enforcement, providers.NewShellExecutor("sh", providers.Capture), providers.NewScriptedPrompter())
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %q, want success", res.Outcome)
	}
}

func TestRun_ShellExitOneStops(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX sh")
	}
	wf := mustParse(t, "## 1. Run\n\n```bash\nexit 1\n```\n")
	eng, _, _ := newTestEngine(wf, schema.Enforcement, providers.NewShellExecutor("sh", providers.Capture), providers.NewScriptedPrompter())
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeStopped || res.Message != "" || res.Step != 1 {
		t.Errorf("result = %+v, want stopped without message at step 1", res)
	}
}

func TestRun_GuidedGotoSkipsStep(t *testing.T) {
	wf := mustParse(t, gotoWorkflow)
	exec := &fakeExecutor{}
	eng, _, _ := newTestEngine(wf, schema.Guided, exec, providers.NewScriptedPrompter())

	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %q", res.Outcome)
	}
	if got := visited(eng); got != "1,3" {
		t.Errorf("visited = %s, want 1,3", got)
	}
	for _, c := range exec.commands {
		if c == "echo skipped" {
			t.Error("step 2 must never be dispatched")
		}
	}
}

func TestRun_PromptDeclinedCancels(t *testing.T) {
	wf := mustParse(t, "## 1. Confirm\n\n**Prompt:** Continue?\n\n## 2. Later\n\n```bash\necho later\n```\n")
	exec := &fakeExecutor{}
	prompter := providers.NewScriptedPrompter("n")
	eng, _, _ := newTestEngine(wf, schema.Guided, exec, prompter)

	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeCancelled || res.Step != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(exec.commands) != 0 {
		t.Errorf("commands after cancellation: %v", exec.commands)
	}
	if res.ExitCode() != 2 {
		t.Errorf("exit code = %d", res.ExitCode())
	}
}

// --- Mode gating ---

func TestRun_EnforcementIgnoresGoto(t *testing.T) {
	wf := mustParse(t, gotoWorkflow)
	exec := &fakeExecutor{}
	eng, _, _ := newTestEngine(wf, schema.Enforcement, exec, providers.NewScriptedPrompter())

	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %q", res.Outcome)
	}
	if got := visited(eng); got != "1,2,3" {
		t.Errorf("visited = %s, want 1,2,3", got)
	}
}

func TestRun_EnforcementGotoOnFailureStops(t *testing.T) {
	src := "## 1. Run\n\n```bash\nexit 2\n```\n\nFAIL: GOTO 2\n\n## 2. Recover\n\n```bash\necho recover\n```\n"
	eng, _, _ := newTestEngine(mustParse(t, src), schema.Enforcement, &fakeExecutor{}, providers.NewScriptedPrompter())
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeStopped || res.Message != "" {
		t.Errorf("result = %+v, want implicit STOP", res)
	}

	eng, _, _ = newTestEngine(mustParse(t, src), schema.Guided, &fakeExecutor{}, providers.NewScriptedPrompter())
	res, err = eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeSuccess || visited(eng) != "1,2" {
		t.Errorf("guided result = %+v visited %s", res, visited(eng))
	}
}

func TestRun_EnforcementHonorsStop(t *testing.T) {
	src := "## 1. Run\n\n```bash\nexit 0\n```\n\nPASS: STOP nothing left to do\n\n## 2. Never\n\n```bash\necho never\n```\n"
	exec := &fakeExecutor{}
	eng, _, _ := newTestEngine(mustParse(t, src), schema.Enforcement, exec, providers.NewScriptedPrompter())
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeStopped || res.Message != "nothing left to do" {
		t.Errorf("result = %+v", res)
	}
	if len(exec.commands) != 1 {
		t.Errorf("commands = %v", exec.commands)
	}
}

func TestRun_EnforcementContinueOnFailureFallsBackToStop(t *testing.T) {
	src := "## 1. Run\n\n```bash\nexit 1\n```\n\nFAIL: CONTINUE\n\n## 2. Next\n\n```bash\necho next\n```\n"
	eng, _, _ := newTestEngine(mustParse(t, src), schema.Enforcement, &fakeExecutor{}, providers.NewScriptedPrompter())
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeStopped {
		t.Errorf("outcome = %q, want stopped", res.Outcome)
	}
}

// --- Iteration limit ---

func TestRun_IterationLimit(t *testing.T) {
	src := "## 1. Retry\n\n```bash\nexit 1\n```\n\nFAIL: GOTO 1\n"
	exec := &fakeExecutor{}
	eng, _, _ := newTestEngine(mustParse(t, src), schema.Guided, exec, providers.NewScriptedPrompter())

	res, err := eng.Run(context.Background())
	if res != nil {
		t.Errorf("result = %+v, want nil on error", res)
	}
	if !errors.Is(err, ErrIterationLimit) {
		t.Fatalf("error = %v, want ErrIterationLimit", err)
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error %T is not *ExecutionError", err)
	}
	if execErr.Step != 1 || execErr.Description != "Retry" {
		t.Errorf("error context = step %d %q", execErr.Step, execErr.Description)
	}
	if len(exec.commands) != MaxIterationMultiplier {
		t.Errorf("dispatched %d commands, want %d", len(exec.commands), MaxIterationMultiplier)
	}
	if !strings.Contains(err.Error(), "exceeded maximum iterations (10)") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestRun_IterationLimitScalesWithSteps(t *testing.T) {
	src := "## 1. A\n\n```bash\nexit 0\n```\n\nPASS: GOTO 2\n\n" +
		"## 2. B\n\n```bash\nexit 0\n```\n\nPASS: GOTO 1\n\n" +
		"## 3. C\n\n```bash\nexit 0\n```\n"
	exec := &fakeExecutor{}
	eng, _, _ := newTestEngine(mustParse(t, src), schema.Guided, exec, providers.NewScriptedPrompter())
	_, err := eng.Run(context.Background())
	if !errors.Is(err, ErrIterationLimit) {
		t.Fatalf("error = %v", err)
	}
	if eng.MaxIterations() != 30 || len(exec.commands) != 30 {
		t.Errorf("max = %d, dispatched = %d", eng.MaxIterations(), len(exec.commands))
	}
}

func TestRun_MaxIterationsSameInEveryMode(t *testing.T) {
	wf := mustParse(t, gotoWorkflow)
	for _, mode := range []schema.Mode{schema.Enforcement, schema.Guided} {
		eng, _, _ := newTestEngine(wf, mode, &fakeExecutor{}, providers.NewScriptedPrompter())
		if eng.MaxIterations() != 3*MaxIterationMultiplier {
			t.Errorf("%s: max = %d", mode, eng.MaxIterations())
		}
	}
}

// --- Output discipline ---

func TestRun_QuietSuppressesStdoutOnSuccessOnly(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantStdout bool
	}{
		{"quiet success", "## 1. A\n\n```bash quiet\nexit 0\n```\n", false},
		{"quiet failure", "## 1. A\n\n```bash quiet\nexit 1\n```\n", true},
		{"loud success", "## 1. A\n\n```bash\nexit 0\n```\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{stdout: "out\n", stderr: "err\n"}
			eng, stdout, stderr := newTestEngine(mustParse(t, tt.src), schema.Enforcement, exec, providers.NewScriptedPrompter())
			if _, err := eng.Run(context.Background()); err != nil {
				t.Fatal(err)
			}
			if got := stdout.String() == "out\n"; got != tt.wantStdout {
				t.Errorf("stdout = %q, want shown=%v", stdout.String(), tt.wantStdout)
			}
			if stderr.String() != "err\n" {
				t.Errorf("stderr must never be suppressed, got %q", stderr.String())
			}
		})
	}
}

// --- Prompts ---

func TestRun_StopSkipsPrompts(t *testing.T) {
	src := "## 1. A\n\n```bash\nexit 1\n```\n\n**Prompt:** Should not be asked?\n"
	prompter := providers.NewScriptedPrompter("y")
	eng, _, _ := newTestEngine(mustParse(t, src), schema.Guided, &fakeExecutor{}, prompter)
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeStopped || len(prompter.Asked) != 0 {
		t.Errorf("result = %+v asked = %v", res, prompter.Asked)
	}
}

func TestRun_PromptsAfterCommandInOrder(t *testing.T) {
	src := "## 1. A\n\n```bash\nexit 0\n```\n\n**Prompt:** First?\n\n**Prompt:** Second?\n\n## 2. B\n\n```bash\necho b\n```\n"
	prompter := providers.NewScriptedPrompter("y", "YES")
	exec := &fakeExecutor{}
	eng, _, _ := newTestEngine(mustParse(t, src), schema.Guided, exec, prompter)
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Errorf("outcome = %q", res.Outcome)
	}
	if strings.Join(prompter.Asked, "|") != "First?|Second?" {
		t.Errorf("asked = %v", prompter.Asked)
	}
	if len(exec.commands) != 2 {
		t.Errorf("commands = %v", exec.commands)
	}
}

func TestRun_SecondPromptDeclinedAbandonsRest(t *testing.T) {
	src := "## 1. A\n\n**Prompt:** One?\n\n**Prompt:** Two?\n\n**Prompt:** Three?\n"
	prompter := providers.NewScriptedPrompter("y", "nope", "y")
	eng, _, _ := newTestEngine(mustParse(t, src), schema.Guided, &fakeExecutor{}, prompter)
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCancelled || len(prompter.Asked) != 2 {
		t.Errorf("result = %+v asked = %v", res, prompter.Asked)
	}
}

func TestRun_ImplicitPromptExhaustedInputCancels(t *testing.T) {
	wf := mustParse(t, "## 1. Review\n\nDid you read the diff?\n")
	eng, _, _ := newTestEngine(wf, schema.Enforcement, &fakeExecutor{}, providers.NewScriptedPrompter())
	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCancelled {
		t.Errorf("outcome = %q", res.Outcome)
	}
}

func TestRun_EmptyStepAdvances(t *testing.T) {
	wf := mustParse(t, "## 1. Placeholder\n\n## 2. Run\n\n```bash\nexit 0\n```\n")
	eng, _, _ := newTestEngine(wf, schema.Enforcement, &fakeExecutor{}, providers.NewScriptedPrompter())
	res, err := eng.Run(context.Background())
	if err != nil || res.Outcome != OutcomeSuccess {
		t.Errorf("res = %+v err = %v", res, err)
	}
}

// --- Fatal errors ---

func TestRun_ExecutorErrorIsFatal(t *testing.T) {
	ioErr := errors.New("fork failed")
	wf := mustParse(t, "## 1. A\n\n```bash\ntrue\n```\n")
	eng, _, _ := newTestEngine(wf, schema.Enforcement, &fakeExecutor{err: ioErr}, providers.NewScriptedPrompter())
	_, err := eng.Run(context.Background())
	if !errors.Is(err, ioErr) {
		t.Fatalf("error = %v", err)
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) || execErr.Step != 1 {
		t.Errorf("error = %#v", err)
	}
}

func TestRun_PrompterErrorIsFatal(t *testing.T) {
	wf := mustParse(t, "## 1. A\n\n**Prompt:** Ok?\n")
	eng, _, _ := newTestEngine(wf, schema.Enforcement, &fakeExecutor{}, failingPrompter{})
	_, err := eng.Run(context.Background())
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v", err)
	}
}

func TestRun_ContextCancelledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	wf := mustParse(t, "## 1. A\n\n```bash\ntrue\n```\n")
	exec := &fakeExecutor{}
	eng, _, _ := newTestEngine(wf, schema.Enforcement, exec, providers.NewScriptedPrompter())
	_, err := eng.Run(ctx)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("error = %v", err)
	}
	if len(exec.commands) != 0 {
		t.Error("no command may start after cancellation")
	}
}

// --- Trace ---

func TestRun_EmitsTrace(t *testing.T) {
	var buf bytes.Buffer
	tw := trace.NewWriter(&buf, "test-run")
	wf := mustParse(t, gotoWorkflow)
	eng := New(wf, Config{
		Mode:     schema.Enforcement,
		Executor: &fakeExecutor{},
		Prompter: providers.NewScriptedPrompter(),
		Trace:    tw,
		Name:     "goto.md",
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
	})
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"run_start", "step_start", "command_complete", "action_resolved", "run_complete", `"source":"mode_fallback"`} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %s", want)
		}
	}
	res, err := trace.Verify(strings.NewReader(out))
	if err != nil || !res.Valid {
		t.Errorf("trace chain invalid: %+v %v", res, err)
	}
}

func TestRun_TraceRecordsRunError(t *testing.T) {
	var buf bytes.Buffer
	wf := mustParse(t, "## 1. A\n\n```bash\ntrue\n```\n")
	eng := New(wf, Config{
		Executor: &fakeExecutor{err: fmt.Errorf("boom")},
		Prompter: providers.NewScriptedPrompter(),
		Trace:    trace.NewWriter(&buf, "r"),
	})
	if _, err := eng.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(buf.String(), "run_error") {
		t.Error("trace missing run_error")
	}
}

func TestResultExitCodes(t *testing.T) {
	for outcome, want := range map[Outcome]int{OutcomeSuccess: 0, OutcomeStopped: 1, OutcomeCancelled: 2} {
		if got := (&Result{Outcome: outcome}).ExitCode(); got != want {
			t.Errorf("%s: exit = %d, want %d", outcome, got, want)
		}
	}
}
