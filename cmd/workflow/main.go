// Package main provides the workflow CLI: run a markdown workflow, or list,
// validate and diagram it.
//
//	workflow [--guided] [--dry-run] file.md
//	workflow --list [--format json] file.md
//	workflow --validate file.md
//	workflow diagram [--format ascii] file.md
//	workflow schema workflow|config
//	workflow trace verify trace.jsonl
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ormasoftchile/workflow/pkg/config"
	"github.com/ormasoftchile/workflow/pkg/ecosystem/recorder"
	"github.com/ormasoftchile/workflow/pkg/engine"
	"github.com/ormasoftchile/workflow/pkg/logging"
	"github.com/ormasoftchile/workflow/pkg/parser"
	"github.com/ormasoftchile/workflow/pkg/providers"
	"github.com/ormasoftchile/workflow/pkg/render"
	"github.com/ormasoftchile/workflow/pkg/replay"
	"github.com/ormasoftchile/workflow/pkg/schema"
	"github.com/ormasoftchile/workflow/pkg/trace"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitStopped   = 1
	exitCancelled = 2
	exitInvalid   = 3 // empty or invalid workflow
	exitRuntime   = 4 // IO or execution error
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	var ee *exitError
	if err != nil && !(errors.As(err, &ee) && ee.err == nil) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

// exitError carries a process exit code. A nil err means the outcome was
// already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return exitInvalid
	}
	if errors.Is(err, engine.ErrCancelled) {
		return exitCancelled
	}
	return exitRuntime
}

var rootCmd = &cobra.Command{
	Use:           "workflow [file.md]",
	Short:         "Run executable markdown workflows",
	Args:          cobra.ExactArgs(1),
	RunE:          runWorkflow,
	SilenceErrors: true,
	SilenceUsage:  true,
}

type runFlags struct {
	guided   bool
	dryRun   bool
	list     bool
	validate bool
	format   string
	capture  bool
	trace    string
	debug    bool
	config   string
	noColor  bool
	record   string
	replay   string
}

var flags runFlags

func init() {
	f := rootCmd.Flags()
	f.BoolVar(&flags.guided, "guided", false, "Guided mode: honor CONTINUE, STOP and GOTO (default enforcement)")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Show commands and prompts without running them; every command passes")
	f.BoolVar(&flags.list, "list", false, "List steps without executing")
	f.BoolVar(&flags.validate, "validate", false, "Parse and validate only")
	f.StringVar(&flags.format, "format", "text", "Listing format: text, json or yaml")
	f.BoolVar(&flags.capture, "capture", false, "Capture command output instead of inheriting the terminal")
	f.StringVar(&flags.trace, "trace", "", "Write a JSONL audit trail to this file")
	f.StringVar(&flags.record, "record", "", "Record command results and answers to a replay scenario")
	f.StringVar(&flags.replay, "replay", "", "Replay command results and answers from a scenario instead of running commands")

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flags.debug, "debug", false, "Log evaluation details to stderr")
	pf.StringVar(&flags.config, "config", "", "Config file (default .workflow.yaml)")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable styled output")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "workflow %s (%s)\n", version, commit)
	},
}

// settings merges config file, environment and flags.
func settings() (*config.Config, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}
	if flags.guided {
		cfg.Mode = string(schema.Guided)
	}
	if flags.capture {
		cfg.Discipline = string(providers.Capture)
	}
	if flags.trace != "" {
		cfg.Trace = flags.trace
	}
	if flags.debug {
		cfg.Debug = true
	}
	if flags.noColor {
		cfg.Color = false
	}
	return cfg, nil
}

// loadWorkflow parses path and logs its warnings.
func loadWorkflow(path string, log *zap.Logger) (*schema.Workflow, error) {
	wf, warnings, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Warn(w.Message,
			zap.String("code", w.Code),
			zap.Int("step", w.Step),
			zap.Int("line", w.Line))
	}
	return wf, nil
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cfg, err := settings()
	if err != nil {
		return &exitError{code: exitRuntime, err: err}
	}
	log, err := logging.New(logging.Options{Debug: cfg.Debug, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return &exitError{code: exitRuntime, err: err}
	}
	defer func() { _ = log.Sync() }()

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	color := cfg.Color && isTerminal(stdout)

	wf, err := loadWorkflow(args[0], log)
	if err != nil {
		return err
	}

	switch {
	case flags.validate:
		fmt.Fprintf(stdout, "✓ %s is valid (%d steps)\n", workflowName(wf, args[0]), wf.Len())
		return nil
	case flags.list:
		format, err := render.ParseFormat(flags.format)
		if err != nil {
			return &exitError{code: exitRuntime, err: err}
		}
		return render.List(stdout, wf, format, color)
	}

	ecfg := engine.Config{
		Mode:     cfg.ExecutionMode(),
		Reporter: render.NewPrinter(stdout, stderr, color),
		Logger:   log,
		Name:     workflowName(wf, args[0]),
		Stdout:   stdout,
		Stderr:   stderr,
	}

	if flags.dryRun {
		ecfg.Executor = &providers.DryRunExecutor{Out: stdout}
		ecfg.Prompter = &providers.DryRunPrompter{Out: stdout}
	} else {
		sh := providers.NewShellExecutor(cfg.Shell, cfg.ExecutionDiscipline())
		sh.Stdin, sh.Stdout, sh.Stderr = cmd.InOrStdin(), stdout, stderr
		ecfg.Executor = sh

		prompter, closer := newPrompter(cmd.InOrStdin(), stdout)
		if closer != nil {
			defer closer.Close()
		}
		ecfg.Prompter = prompter
	}

	if flags.replay != "" {
		sc, err := replay.LoadScenario(flags.replay)
		if err != nil {
			return &exitError{code: exitRuntime, err: err}
		}
		prompter := sc.Prompter()
		prompter.Out = stdout
		ecfg.Executor, ecfg.Prompter = replay.NewReplayExecutor(sc), prompter
	}

	var rec *recorder.Recorder
	if flags.record != "" {
		rec = recorder.New(ecfg.Executor, ecfg.Prompter)
		rec.SetSecrets(cfg.Redact)
		ecfg.Executor, ecfg.Prompter = rec, rec.Prompter()
	}

	if cfg.Trace != "" {
		tw, err := trace.NewFileWriter(cfg.Trace, trace.NewRunID())
		if err != nil {
			return &exitError{code: exitRuntime, err: fmt.Errorf("trace: %w", err)}
		}
		defer tw.Close()
		ecfg.Trace = tw
	}

	res, err := engine.New(wf, ecfg).Run(cmd.Context())
	if rec != nil {
		if serr := rec.Scenario(ecfg.Name).Save(flags.record); serr != nil {
			log.Error("save scenario", zap.Error(serr))
		}
	}
	if err != nil {
		// The printer already reported it.
		code := exitRuntime
		if errors.Is(err, engine.ErrCancelled) {
			code = exitCancelled
		}
		return &exitError{code: code}
	}
	if code := res.ExitCode(); code != exitSuccess {
		return &exitError{code: code}
	}
	return nil
}

// newPrompter uses line editing when both ends are a terminal.
func newPrompter(in io.Reader, out io.Writer) (providers.Prompter, io.Closer) {
	if f, ok := in.(*os.File); ok && f == os.Stdin && isTerminal(in) && isTerminal(out) {
		if rp, err := providers.NewReadlinePrompter(); err == nil {
			return rp, rp
		}
	}
	return providers.NewLinePrompter(in, out), nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func workflowName(wf *schema.Workflow, path string) string {
	if wf.Title != "" {
		return wf.Title
	}
	return path
}
