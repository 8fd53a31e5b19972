// Package engine runs a parsed workflow: one step at a time, dispatching the
// step's command, resolving its action under the execution mode, and asking
// its prompts.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ormasoftchile/workflow/pkg/providers"
	"github.com/ormasoftchile/workflow/pkg/schema"
	"github.com/ormasoftchile/workflow/pkg/trace"
)

// MaxIterationMultiplier bounds a run at len(steps) times this many step
// visits, whatever the mode.
const MaxIterationMultiplier = 10

// evaluationCriteria describes how a command outcome maps to pass / fail.
const evaluationCriteria = "exit code (0 = Pass, non-zero = Fail)"

// Config configures a workflow run.
type Config struct {
	Mode     schema.Mode
	Executor providers.CommandExecutor // nil uses a ShellExecutor with inherited stdio
	Prompter providers.Prompter        // nil uses a LinePrompter on stdin / stdout
	Reporter Reporter                  // nil reports nothing
	Trace    *trace.Writer             // optional audit trail
	Logger   *zap.Logger               // nil discards diagnostics
	Name     string                    // workflow name recorded in the trace

	Stdout io.Writer // captured command stdout; defaults to os.Stdout
	Stderr io.Writer // captured command stderr; defaults to os.Stderr
}

// Engine executes one workflow. It is not safe for concurrent use, and a
// run's cursor and iteration counter belong to the engine alone.
type Engine struct {
	cfg      Config
	wf       *schema.Workflow
	log      *zap.Logger
	reporter Reporter

	iterations   int
	VisitedSteps []schema.StepNumber // ordered list of steps entered (for tests and reports)
}

// New creates an engine for the given workflow.
func New(wf *schema.Workflow, cfg Config) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = schema.Enforcement
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Executor == nil {
		cfg.Executor = providers.NewShellExecutor("sh", providers.Inherit)
	}
	if cfg.Prompter == nil {
		cfg.Prompter = providers.NewLinePrompter(os.Stdin, cfg.Stdout)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rep := cfg.Reporter
	if rep == nil {
		rep = nopReporter{}
	}
	return &Engine{cfg: cfg, wf: wf, log: log, reporter: rep}
}

// MaxIterations is the run's iteration budget.
func (e *Engine) MaxIterations() int {
	return e.wf.Len() * MaxIterationMultiplier
}

// Iterations returns the number of step visits so far.
func (e *Engine) Iterations() int { return e.iterations }

// Run executes the workflow until it succeeds, stops, is cancelled by the
// operator, or fails. Only the last case returns an error, and that error is
// always an *ExecutionError.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	steps := e.wf.Steps
	limit := e.MaxIterations()

	e.emit(func(tw *trace.Writer) error { return tw.EmitRunStart(e.cfg.Name, string(e.cfg.Mode), len(steps)) })
	e.reporter.RunStarted(e.wf, e.cfg.Mode)
	e.log.Debug("run started",
		zap.String("workflow", e.cfg.Name),
		zap.String("mode", string(e.cfg.Mode)),
		zap.Int("steps", len(steps)),
		zap.Int("max_iterations", limit))

	cursor := 0
	for cursor < len(steps) {
		step := steps[cursor]

		if err := ctx.Err(); err != nil {
			return nil, e.fail(step, fmt.Errorf("%w: %v", ErrCancelled, err))
		}
		e.iterations++
		if e.iterations > limit {
			return nil, e.fail(step, fmt.Errorf("%w (%d); possible infinite loop", ErrIterationLimit, limit))
		}

		e.VisitedSteps = append(e.VisitedSteps, step.Number)
		e.log.Debug("step",
			zap.Int("step", step.Number.Int()),
			zap.Int("iteration", e.iterations))
		e.emit(func(tw *trace.Writer) error {
			return tw.EmitStepStart(step.Number.Int(), step.Description, e.iterations)
		})
		e.reporter.StepStarted(step, cursor+1, len(steps))

		if step.HasCommand() {
			action, err := e.runCommand(ctx, step)
			if err != nil {
				return nil, e.fail(step, err)
			}
			switch action.Kind {
			case schema.ActionStop:
				return e.finish(start, &Result{Outcome: OutcomeStopped, Message: action.Message, Step: step.Number}), nil
			case schema.ActionGoto:
				idx, ok := e.wf.Index(action.Target)
				if !ok {
					return nil, e.fail(step, fmt.Errorf("GOTO target step %d does not exist", action.Target))
				}
				cursor = idx
				continue
			}
		}

		for _, p := range step.Prompts {
			answer, err := e.cfg.Prompter.Ask(p.Text)
			if err != nil {
				return nil, e.fail(step, fmt.Errorf("prompt: %w", err))
			}
			affirmed := providers.IsAffirmative(answer)
			e.emit(func(tw *trace.Writer) error {
				return tw.EmitPromptAnswered(step.Number.Int(), p.Text, affirmed)
			})
			if !affirmed {
				return e.finish(start, &Result{Outcome: OutcomeCancelled, Step: step.Number}), nil
			}
		}
		cursor++
	}

	return e.finish(start, &Result{Outcome: OutcomeSuccess}), nil
}

// runCommand dispatches the step's command, shows whatever output the
// executor did not, and resolves the next action.
func (e *Engine) runCommand(ctx context.Context, step schema.Step) (schema.Action, error) {
	res, err := e.cfg.Executor.Execute(ctx, *step.Command)
	if err != nil {
		return schema.Action{}, err
	}

	suppress := step.Command.Quiet && res.Success
	if !res.StdoutShown && !suppress && len(res.Stdout) > 0 {
		if _, err := e.cfg.Stdout.Write(res.Stdout); err != nil {
			return schema.Action{}, fmt.Errorf("write command output: %w", err)
		}
	}
	if !res.StderrShown && len(res.Stderr) > 0 {
		if _, err := e.cfg.Stderr.Write(res.Stderr); err != nil {
			return schema.Action{}, fmt.Errorf("write command output: %w", err)
		}
	}

	e.emit(func(tw *trace.Writer) error {
		return tw.EmitCommandComplete(step.Number.Int(), res.ExitCode, res.Success, res.Duration)
	})
	e.reporter.CommandFinished(step, res)

	action, source := e.cfg.Mode.Resolve(step.Conditions, res.Success)
	e.log.Debug("evaluated step outcome",
		zap.Int("step", step.Number.Int()),
		zap.String("criteria", evaluationCriteria),
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("pass", res.Success),
		zap.Stringer("action", action),
		zap.String("source", string(source)))
	if source == schema.SourceModeFallback {
		e.log.Debug("action not permitted in mode, using implicit default",
			zap.Int("step", step.Number.Int()),
			zap.Stringer("selected", step.Conditions.For(res.Success)),
			zap.String("mode", string(e.cfg.Mode)))
	}

	e.emit(func(tw *trace.Writer) error {
		return tw.EmitActionResolved(step.Number.Int(), action.String(), string(source))
	})
	e.reporter.ActionResolved(step, action, source)
	return action, nil
}

func (e *Engine) finish(start time.Time, res *Result) *Result {
	res.Iterations = e.iterations
	res.Duration = time.Since(start)
	e.emit(func(tw *trace.Writer) error {
		return tw.EmitRunComplete(string(res.Outcome), res.Message, res.Duration)
	})
	e.log.Debug("run finished",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("iterations", res.Iterations))
	e.reporter.RunFinished(res)
	return res
}

func (e *Engine) fail(step schema.Step, err error) error {
	execErr := &ExecutionError{Step: step.Number, Description: step.Description, Err: err}
	e.emit(func(tw *trace.Writer) error { return tw.EmitRunError(step.Number.Int(), execErr) })
	e.reporter.RunFailed(execErr)
	return execErr
}

// emit writes a trace event when tracing is on. A broken trail is logged
// but does not stop the run.
func (e *Engine) emit(fn func(tw *trace.Writer) error) {
	if e.cfg.Trace == nil {
		return
	}
	if err := fn(e.cfg.Trace); err != nil {
		e.log.Warn("trace write failed", zap.Error(err))
	}
}
