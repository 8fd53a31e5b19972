// Package diagram draws the effective control flow of a workflow under an
// execution mode. Supports Mermaid flowchart and ASCII formats.
package diagram

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/workflow/pkg/schema"
)

// Format represents the output diagram format.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
)

// ParseFormat converts a format name. The empty string selects Mermaid.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatMermaid:
		return FormatMermaid, nil
	case FormatASCII:
		return FormatASCII, nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", s)
	}
}

// Generate produces a diagram of wf as it would run under mode. Conditions
// the mode forbids are drawn as the implicit defaults that replace them.
func Generate(wf *schema.Workflow, mode schema.Mode, format Format) (string, error) {
	if wf == nil {
		return "", fmt.Errorf("nil workflow")
	}
	if mode == "" {
		mode = schema.Enforcement
	}
	steps := effectiveFlow(wf, mode)
	switch format {
	case FormatMermaid:
		return generateMermaid(steps), nil
	case FormatASCII:
		return generateASCII(wf, mode, steps), nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", format)
	}
}

// ---------------------------------------------------------------------------
// Effective flow
// ---------------------------------------------------------------------------

type targetKind int

const (
	targetStep targetKind = iota
	targetEnd
	targetStop
	targetCancel
)

// edge is one outgoing transition of a step.
type edge struct {
	label    string // pass, fail, yes, no, or empty for an unconditional edge
	kind     targetKind
	target   schema.StepNumber // for targetStep
	message  string            // for targetStop
	fallback bool              // the mode replaced the step's own action
}

type diagramStep struct {
	number  schema.StepNumber
	title   string
	command bool
	prompts int
	edges   []edge
}

func effectiveFlow(wf *schema.Workflow, mode schema.Mode) []diagramStep {
	out := make([]diagramStep, 0, wf.Len())
	for i, s := range wf.Steps {
		next := edge{kind: targetEnd}
		if i+1 < wf.Len() {
			next = edge{kind: targetStep, target: wf.Steps[i+1].Number}
		}

		ds := diagramStep{
			number:  s.Number,
			title:   s.Description,
			command: s.HasCommand(),
			prompts: len(s.Prompts),
		}

		advance := next
		if len(s.Prompts) > 0 {
			advance.label = "yes"
		}

		if s.HasCommand() {
			for _, success := range []bool{true, false} {
				action, source := mode.Resolve(s.Conditions, success)
				e := actionEdge(action, advance)
				e.label = "fail"
				if success {
					e.label = "pass"
				}
				e.fallback = source == schema.SourceModeFallback
				ds.edges = append(ds.edges, e)
			}
		} else {
			ds.edges = append(ds.edges, advance)
		}
		if len(s.Prompts) > 0 {
			ds.edges = append(ds.edges, edge{label: "no", kind: targetCancel})
		}
		out = append(out, ds)
	}
	return out
}

func actionEdge(a schema.Action, advance edge) edge {
	switch a.Kind {
	case schema.ActionStop:
		return edge{kind: targetStop, message: a.Message}
	case schema.ActionGoto:
		return edge{kind: targetStep, target: a.Target}
	default:
		return advance
	}
}

func (e edge) describe() string {
	switch e.kind {
	case targetStep:
		return "step " + e.target.String()
	case targetEnd:
		return "success"
	case targetStop:
		if e.message != "" {
			return "STOP (" + e.message + ")"
		}
		return "STOP"
	case targetCancel:
		return "cancelled"
	}
	return ""
}

// ---------------------------------------------------------------------------
// Mermaid flowchart
// ---------------------------------------------------------------------------

func generateMermaid(steps []diagramStep) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	if len(steps) == 0 {
		return b.String()
	}

	b.WriteString("    START([Start]) --> " + nodeID(steps[0].number) + "\n")
	usedEnd, usedCancel := false, false

	for _, s := range steps {
		b.WriteString("    " + nodeDefinition(s) + "\n")
		for i, e := range s.edges {
			var to string
			switch e.kind {
			case targetStep:
				to = nodeID(e.target)
			case targetEnd:
				to = "END"
				usedEnd = true
			case targetCancel:
				to = "CANCEL"
				usedCancel = true
			case targetStop:
				to = fmt.Sprintf("%s_stop%d", nodeID(s.number), i)
				label := "STOP"
				if e.message != "" {
					label += ": " + escMermaid(truncate(e.message, 40))
				}
				b.WriteString(fmt.Sprintf("    %s([\"⏹ %s\"])\n", to, label))
				b.WriteString(fmt.Sprintf("    style %s fill:#a00,stroke:#700,color:#fff\n", to))
			}

			label := e.label
			if e.fallback {
				label += " (default)"
			}
			if label == "" {
				b.WriteString(fmt.Sprintf("    %s --> %s\n", nodeID(s.number), to))
			} else {
				b.WriteString(fmt.Sprintf("    %s -->|%q| %s\n", nodeID(s.number), label, to))
			}
		}
	}

	if usedEnd {
		b.WriteString("    END([\"✓ Success\"])\n")
		b.WriteString("    style END fill:#0d6,stroke:#0a5,color:#fff\n")
	}
	if usedCancel {
		b.WriteString("    CANCEL([\"✗ Cancelled\"])\n")
		b.WriteString("    style CANCEL fill:#e60,stroke:#c40,color:#fff\n")
	}
	for _, s := range steps {
		if s.command {
			b.WriteString(fmt.Sprintf("    style %s fill:#1a3a4a,stroke:#0af\n", nodeID(s.number)))
		}
	}
	return b.String()
}

func nodeDefinition(s diagramStep) string {
	title := escMermaid(fmt.Sprintf("%d. %s", s.number, s.title))
	icon := stepIcon(s)
	if !s.command && s.prompts > 0 {
		return fmt.Sprintf(`%s{{"%s %s"}}`, nodeID(s.number), icon, title)
	}
	return fmt.Sprintf(`%s["%s %s"]`, nodeID(s.number), icon, title)
}

func nodeID(n schema.StepNumber) string {
	return "S" + n.String()
}

func escMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, `'`, "#apos;")
	return s
}

// ---------------------------------------------------------------------------
// ASCII
// ---------------------------------------------------------------------------

func generateASCII(wf *schema.Workflow, mode schema.Mode, steps []diagramStep) string {
	var b strings.Builder

	name := wf.Title
	if name == "" {
		name = "Workflow"
	}
	name = fmt.Sprintf("%s [%s]", name, mode)

	const indent = 8
	boxWidth := computeUniformBoxWidth(steps, name)
	connCol := indent + 1 + boxWidth/2 // +1 accounts for the border character
	pad := strings.Repeat(" ", indent)
	connPad := strings.Repeat(" ", connCol)

	mid := boxWidth / 2
	b.WriteString(pad + "╔" + strings.Repeat("═", boxWidth) + "╗\n")
	b.WriteString(pad + "║" + centerPad(name, boxWidth) + "║\n")
	b.WriteString(pad + "╚" + strings.Repeat("═", mid) + "╤" + strings.Repeat("═", boxWidth-mid-1) + "╝\n")

	for _, s := range steps {
		b.WriteString(connPad + "│\n")
		writeASCIIStep(&b, s, indent, boxWidth)
		for _, e := range s.edges {
			if e.label == "" {
				continue
			}
			// Only transitions that leave the straight line are annotated.
			line := fmt.Sprintf("%s → %s", e.label, e.describe())
			if e.fallback {
				line += " (default)"
			}
			b.WriteString(connPad + "├─ " + line + "\n")
		}
	}
	b.WriteString(connPad + "│\n")
	b.WriteString(strings.Repeat(" ", connCol-2) + "✓ Success\n")
	return b.String()
}

// computeUniformBoxWidth returns the widest interior width needed across all
// steps and the header name.
func computeUniformBoxWidth(steps []diagramStep, name string) int {
	w := 22
	if nw := runewidth.StringWidth(name) + 4; nw > w {
		w = nw
	}
	for _, s := range steps {
		if sw := runewidth.StringWidth(boxContent(s)); sw > w {
			w = sw
		}
	}
	return w
}

func boxContent(s diagramStep) string {
	return fmt.Sprintf(" %s %d. %s ", stepIcon(s), s.number, truncate(s.title, 60))
}

// centerPad centers s within width using spaces, based on display width.
func centerPad(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	total := width - sw
	left := total / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", total-left)
}

func writeASCIIStep(b *strings.Builder, s diagramStep, indent, boxWidth int) {
	content := boxContent(s)
	contentWidth := runewidth.StringWidth(content)

	pad := strings.Repeat(" ", indent)
	mid := boxWidth / 2

	b.WriteString(pad + "┌" + strings.Repeat("─", boxWidth) + "┐\n")
	b.WriteString(pad + "│" + content + strings.Repeat(" ", boxWidth-contentWidth) + "│\n")
	b.WriteString(pad + "└" + strings.Repeat("─", mid) + "┬" + strings.Repeat("─", boxWidth-mid-1) + "┘\n")
}

func stepIcon(s diagramStep) string {
	switch {
	case s.command:
		return "⚡"
	case s.prompts > 0:
		return "?"
	default:
		return "○"
	}
}

func truncate(s string, max int) string {
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "...")
}
