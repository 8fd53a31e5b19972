package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ormasoftchile/workflow/pkg/engine"
	"github.com/ormasoftchile/workflow/pkg/parser"
)

func testdataPath(name string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "testdata", name)
}

// execute runs the CLI in-process with fresh flag values.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	flags = runFlags{format: "text"}
	diagramFormat, diagramGuided = "mermaid", false

	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{&exitError{code: 1}, 1},
		{fmt.Errorf("wrap: %w", &exitError{code: 2}), 2},
		{&parser.ParseError{Code: parser.CodeEmptyWorkflow}, 3},
		{fmt.Errorf("%w", engine.ErrCancelled), 2},
		{errors.New("read workflow: no such file"), 4},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRunDryRunGuided(t *testing.T) {
	out, _, err := execute(t, "", "--dry-run", "--guided", testdataPath("retry.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "[dry-run] would execute: ./deploy.sh") {
		t.Errorf("output = %s", out)
	}
	if strings.Contains(out, "./rollback.sh") {
		t.Errorf("guided run should jump over step 3:\n%s", out)
	}
	if !strings.Contains(out, "Workflow completed successfully") {
		t.Errorf("output = %s", out)
	}
}

func TestRunDryRunEnforcementStops(t *testing.T) {
	out, _, err := execute(t, "", "--dry-run", testdataPath("retry.md"))
	if code := exitCode(err); code != exitStopped {
		t.Fatalf("exit code = %d (%v), want %d", code, err, exitStopped)
	}
	if !strings.Contains(out, "./rollback.sh") {
		t.Errorf("enforcement run should not skip step 3:\n%s", out)
	}
}

func TestValidateEmptyWorkflow(t *testing.T) {
	_, _, err := execute(t, "", "--validate", testdataPath("empty.md"))
	if code := exitCode(err); code != exitInvalid {
		t.Errorf("exit code = %d (%v), want %d", code, err, exitInvalid)
	}
}

func TestValidate(t *testing.T) {
	out, _, err := execute(t, "", "--validate", testdataPath("tdd.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "✓ Test-driven change is valid (3 steps)") {
		t.Errorf("output = %q", out)
	}
}

func TestMissingFile(t *testing.T) {
	_, _, err := execute(t, "", "--validate", testdataPath("nope.md"))
	if code := exitCode(err); code != exitRuntime {
		t.Errorf("exit code = %d (%v), want %d", code, err, exitRuntime)
	}
}

func TestListJSON(t *testing.T) {
	out, _, err := execute(t, "", "--list", "--format", "json", testdataPath("retry.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"steps"`) || !strings.Contains(out, `"./deploy.sh"`) {
		t.Errorf("output = %s", out)
	}
}

func writeWorkflow(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wf.md")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunShellCapture(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX sh")
	}
	path := writeWorkflow(t, "## 1. Greet\n\n```bash\necho hello-from-step\n```\n\n## 2. Fail\n\n```bash\nexit 1\n```\n")
	out, _, err := execute(t, "", "--capture", path)
	if code := exitCode(err); code != exitStopped {
		t.Fatalf("exit code = %d (%v), want %d", code, err, exitStopped)
	}
	// Once in the "$ echo" line, once as captured output.
	if strings.Count(out, "hello-from-step") < 2 {
		t.Errorf("captured output not shown:\n%s", out)
	}
}

func TestRunPromptDeclined(t *testing.T) {
	path := writeWorkflow(t, "## 1. Check\n\n**Prompt:** Ready?\n\n## 2. After\n\n```bash\necho never\n```\n")
	out, _, err := execute(t, "n\n", path)
	if code := exitCode(err); code != exitCancelled {
		t.Fatalf("exit code = %d (%v), want %d", code, err, exitCancelled)
	}
	if strings.Contains(out, "echo never") {
		t.Errorf("step after a declined prompt ran:\n%s", out)
	}
}

func TestTraceRoundTrip(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "run.jsonl")
	if _, _, err := execute(t, "", "--dry-run", "--guided", "--trace", tracePath, testdataPath("retry.md")); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, _, err := execute(t, "", "trace", "verify", tracePath)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.Contains(out, "✓ Chain integrity") || !strings.Contains(out, "success") {
		t.Errorf("output = %q", out)
	}
}

func TestDiagramCommand(t *testing.T) {
	out, _, err := execute(t, "", "diagram", "--format", "ascii", "--guided", testdataPath("retry.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "pass → step 4") {
		t.Errorf("output = %s", out)
	}
}

func TestSchemaCommand(t *testing.T) {
	out, _, err := execute(t, "", "schema", "config")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "config-v1.json") {
		t.Errorf("output = %s", out)
	}
}

func TestRecordThenReplay(t *testing.T) {
	scenario := filepath.Join(t.TempDir(), "run.yaml")
	if _, _, err := execute(t, "", "--dry-run", "--guided", "--record", scenario, testdataPath("retry.md")); err != nil {
		t.Fatalf("record: %v", err)
	}
	data, err := os.ReadFile(scenario)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "command: ./deploy.sh") || !strings.Contains(string(data), "- \"y\"") && !strings.Contains(string(data), "- y") {
		t.Errorf("scenario = %s", data)
	}

	// Replaying the same run needs no shell and takes the same path.
	out, _, err := execute(t, "", "--guided", "--replay", scenario, testdataPath("retry.md"))
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if strings.Contains(out, "./rollback.sh") || !strings.Contains(out, "Workflow completed successfully") {
		t.Errorf("output = %s", out)
	}
}
