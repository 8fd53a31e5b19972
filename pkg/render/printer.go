package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ormasoftchile/workflow/pkg/engine"
	"github.com/ormasoftchile/workflow/pkg/providers"
	"github.com/ormasoftchile/workflow/pkg/schema"
)

// Printer reports run progress as lines of text. It implements
// engine.Reporter. Progress goes to out, failures to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	st     styles
	errSt  styles
}

var _ engine.Reporter = (*Printer)(nil)

// NewPrinter creates a printer. color=false disables all styling.
func NewPrinter(out, errOut io.Writer, color bool) *Printer {
	return &Printer{
		out:    out,
		errOut: errOut,
		st:     newStyles(out, color),
		errSt:  newStyles(errOut, color),
	}
}

func (p *Printer) RunStarted(wf *schema.Workflow, mode schema.Mode) {
	title := wf.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(p.out, "%s Workflow: %s %s\n",
		GlyphArrow, p.st.apply(p.st.header, title), p.st.apply(p.st.badge, string(mode)))
}

func (p *Printer) StepStarted(step schema.Step, position, total int) {
	fmt.Fprintf(p.out, "\n%s %s\n", GlyphArrow,
		p.st.apply(p.st.step, fmt.Sprintf("Step %d/%d: %s", position, total, step.Description)))
	if step.HasCommand() {
		fmt.Fprintf(p.out, "%s\n", p.st.apply(p.st.dim, "$ "+firstLine(step.Command.Code)))
	}
}

func (p *Printer) CommandFinished(_ schema.Step, res *providers.CommandResult) {
	if res.Success {
		fmt.Fprintf(p.out, "%s\n", p.st.apply(p.st.passed, fmt.Sprintf("%s Passed (exit %d)", GlyphPassed, res.ExitCode)))
		return
	}
	fmt.Fprintf(p.out, "%s\n", p.st.apply(p.st.failed, fmt.Sprintf("%s Failed (exit %d)", GlyphFailed, res.ExitCode)))
}

func (p *Printer) ActionResolved(_ schema.Step, action schema.Action, source schema.ActionSource) {
	var line string
	switch action.Kind {
	case schema.ActionStop:
		line = "Action: STOP"
		if action.Message != "" {
			line += " (" + action.Message + ")"
		}
	case schema.ActionGoto:
		line = "Action: GOTO " + action.Target.String()
	default:
		if source != schema.SourceModeFallback {
			return
		}
		line = "Action: CONTINUE"
	}
	if source == schema.SourceModeFallback {
		line += " [conditions not permitted in this mode, using default]"
	}
	fmt.Fprintf(p.out, "%s %s\n", GlyphArrow, p.st.apply(p.st.action, line))
}

func (p *Printer) RunFinished(res *engine.Result) {
	switch res.Outcome {
	case engine.OutcomeSuccess:
		fmt.Fprintf(p.out, "\n%s %s\n", GlyphArrow, p.st.apply(p.st.passed, "Workflow completed successfully"))
	case engine.OutcomeStopped:
		msg := fmt.Sprintf("Workflow stopped at step %d", res.Step)
		if res.Message != "" {
			msg += ": " + res.Message
		}
		fmt.Fprintf(p.out, "\n%s %s\n", GlyphArrow, p.st.apply(p.st.failed, msg))
	case engine.OutcomeCancelled:
		fmt.Fprintf(p.out, "\n%s %s\n", GlyphArrow,
			p.st.apply(p.st.warning, fmt.Sprintf("Workflow cancelled by user at step %d", res.Step)))
	}
}

func (p *Printer) RunFailed(err error) {
	fmt.Fprintf(p.errOut, "%s %s\n", GlyphFailed, p.errSt.apply(p.errSt.failed, "Error: "+err.Error()))
}

// Warning prints a non-fatal diagnostic to the error stream.
func (p *Printer) Warning(msg string) {
	fmt.Fprintf(p.errOut, "%s %s\n", GlyphWarning, p.errSt.apply(p.errSt.warning, msg))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
