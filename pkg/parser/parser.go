// Package parser converts a markdown workflow document into a validated
// schema.Workflow.
//
// Recognized syntax:
//
//	## 1. Title            a step heading (level 2, positive number, separator)
//	```bash [quiet]        the step's single command
//	**Prompt:** question   an explicit yes/no prompt
//	PASS: GOTO 3           conditional directives (also FAIL, legacy Pass:/Fail:)
//
// Any other prose inside a command-less step becomes its implicit prompt.
package parser

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ormasoftchile/workflow/pkg/schema"
)

// ParseFile reads and parses a workflow file.
func ParseFile(path string) (*schema.Workflow, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read workflow: %w", err)
	}
	return Parse(data)
}

// Parse parses markdown source into a Workflow. On error no workflow is
// returned; the error is a *ParseError.
func Parse(src []byte) (*schema.Workflow, []Warning, error) {
	meta, body, offset, err := splitFrontMatter(src)
	if err != nil {
		return nil, nil, errorf(CodeInvalidFrontMatter, 0, 1, "invalid front matter: %v", err)
	}

	st := newState(body, offset)
	st.title = meta.Title
	st.description = meta.Description

	doc := goldmark.DefaultParser().Parse(text.NewReader(body))
	err = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			return ast.WalkSkipChildren, st.heading(n)
		case *ast.FencedCodeBlock:
			return ast.WalkSkipChildren, st.codeBlock(n)
		case *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			return ast.WalkSkipChildren, st.paragraph(n)
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, nil, err
	}
	st.finalize()

	wf := &schema.Workflow{
		Title:       st.title,
		Description: st.description,
		Steps:       st.steps,
	}
	warnings, err := validate(wf)
	if err != nil {
		return nil, nil, err
	}
	return wf, append(st.warnings, warnings...), nil
}

// ---------------------------------------------------------------------------
// Parser state
// ---------------------------------------------------------------------------

// state is everything the fold over the document carries between nodes.
type state struct {
	src        []byte
	lineStarts []int
	lineOffset int

	title       string
	description string

	steps    []schema.Step
	warnings []Warning
	cur      *stepBuilder
}

// stepBuilder accumulates one step until the next step heading or the end
// of the document.
type stepBuilder struct {
	step     schema.Step
	pass     *schema.Action
	fail     *schema.Action
	implicit []chunk
}

// chunk is one block of implicit prompt text.
type chunk struct {
	text     string
	listItem bool
}

func newState(src []byte, lineOffset int) *state {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &state{src: src, lineStarts: starts, lineOffset: lineOffset}
}

// lineAt maps a byte offset in the body to a 1-based line in the original file.
func (st *state) lineAt(offset int) int {
	n := sort.Search(len(st.lineStarts), func(i int) bool { return st.lineStarts[i] > offset })
	return n + st.lineOffset
}

func (st *state) nodeLine(n ast.Node) int {
	if fc, ok := n.(*ast.FencedCodeBlock); ok {
		if fc.Info != nil {
			return st.lineAt(fc.Info.Segment.Start)
		}
		if fc.Lines().Len() > 0 {
			return st.lineAt(fc.Lines().At(0).Start) - 1
		}
		return 0
	}
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return st.lineAt(n.Lines().At(0).Start)
	}
	if t := firstText(n); t != nil {
		return st.lineAt(t.Segment.Start)
	}
	return 0
}

func (st *state) warn(code string, step, line int, msg string, args ...any) {
	st.warnings = append(st.warnings, warningf(code, step, line, msg, args...))
}

func (st *state) stepNumber() int {
	if st.cur == nil {
		return 0
	}
	return st.cur.step.Number.Int()
}

// ---------------------------------------------------------------------------
// Boundary handlers
// ---------------------------------------------------------------------------

func (st *state) heading(n *ast.Heading) error {
	heading := inlineText(n, st.src)
	line := st.nodeLine(n)

	switch n.Level {
	case 1:
		if st.title == "" {
			st.title = heading
		}
		return nil
	case 2:
		h, ok, err := parseStepHeading(heading, line)
		if err != nil {
			return err
		}
		if !ok {
			st.warn(WarnIgnoredHeading, st.stepNumber(), line, "heading %q is not a step heading and was ignored", heading)
			return nil
		}
		st.finalize()
		st.cur = &stepBuilder{step: schema.Step{
			Number:      h.number,
			Description: h.title,
			Line:        line,
		}}
		return nil
	default:
		// Deeper headings are subsections of the current step.
		return nil
	}
}

func (st *state) codeBlock(n *ast.FencedCodeBlock) error {
	var info string
	if n.Info != nil {
		info = string(n.Info.Segment.Value(st.src))
	}
	tokens := strings.Fields(info)
	if len(tokens) == 0 || tokens[0] != "bash" {
		return nil
	}
	line := st.nodeLine(n)

	if st.cur == nil {
		st.warn(WarnContentOutsideStep, 0, line, "bash block before the first step was ignored")
		return nil
	}
	b := st.cur
	if b.step.Command != nil {
		pe := errorf(CodeDuplicateCommand, b.step.Number.Int(), line,
			"step %d has more than one bash block", b.step.Number)
		pe.Hint = "combine the commands with && or ;, or split them into two steps"
		return pe
	}
	b.step.Command = &schema.Command{
		Code:  strings.TrimSpace(codeContent(n, st.src)),
		Quiet: slices.Contains(tokens[1:], "quiet"),
	}
	return nil
}

// paragraph handles one paragraph or tight list item: conditional directive
// lines, explicit prompt capture, and everything else as implicit text.
func (st *state) paragraph(n ast.Node) error {
	lines := inlineLines(n, st.src)
	first := st.nodeLine(n)

	if st.cur == nil {
		st.preamble(lines, first)
		return nil
	}
	b := st.cur

	var implicit strings.Builder
	var capture *strings.Builder
	flush := func() {
		if capture == nil {
			return
		}
		if p := strings.TrimSpace(capture.String()); p != "" {
			b.step.Prompts = append(b.step.Prompts, schema.Prompt{Text: p})
		}
		capture = nil
	}
	active := func() *strings.Builder {
		if capture != nil {
			return capture
		}
		return &implicit
	}

	for i, ln := range lines {
		lineNo := 0
		if first > 0 {
			lineNo = first + i
		}
		d, ok, err := parseConditional(ln.plain())
		if err != nil {
			pe := errorf(CodeInvalidAction, b.step.Number.Int(), lineNo, "step %d: %v", b.step.Number, err)
			pe.Hint = "use CONTINUE, STOP, STOP <message> or GOTO <n>"
			return pe
		}
		if ok {
			flush()
			if err := b.setCondition(d, lineNo); err != nil {
				return err
			}
			continue
		}

		for _, seg := range ln {
			switch seg.kind {
			case segEmphasis:
				if strings.TrimSpace(seg.text) == "Prompt:" {
					flush()
					capture = &strings.Builder{}
					continue
				}
				flush()
				implicit.WriteString(seg.text)
			case segCode:
				active().WriteString("`" + seg.text + "`")
			default:
				active().WriteString(seg.text)
			}
		}
		if i < len(lines)-1 {
			active().WriteByte('\n')
		}
	}
	flush()

	if t := strings.TrimSpace(implicit.String()); t != "" {
		_, inList := n.Parent().(*ast.ListItem)
		b.implicit = append(b.implicit, chunk{text: t, listItem: inList})
	}
	return nil
}

// preamble handles paragraphs before the first step. Prose becomes the
// workflow description when front matter did not set one.
func (st *state) preamble(lines []inlineLine, first int) {
	var sb strings.Builder
	for i, ln := range lines {
		if _, ok, _ := parseConditional(ln.plain()); ok {
			st.warn(WarnContentOutsideStep, 0, first+i, "conditional directive before the first step was ignored")
			return
		}
		for _, seg := range ln {
			if seg.kind == segEmphasis && strings.TrimSpace(seg.text) == "Prompt:" {
				st.warn(WarnContentOutsideStep, 0, first+i, "prompt before the first step was ignored")
				return
			}
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(ln.plain())
	}
	if st.description == "" {
		st.description = strings.TrimSpace(sb.String())
	}
}

func (b *stepBuilder) setCondition(d directive, line int) error {
	slot := &b.pass
	if d.outcome == outcomeFail {
		slot = &b.fail
	}
	if *slot != nil {
		return errorf(CodeDuplicateCondition, b.step.Number.Int(), line,
			"step %d has more than one %s directive", b.step.Number, d.outcome)
	}
	a := d.action
	*slot = &a
	return nil
}

// finalize turns the open step builder into an immutable Step.
func (st *state) finalize() {
	b := st.cur
	if b == nil {
		return
	}
	st.cur = nil
	s := b.step

	if b.pass != nil || b.fail != nil {
		c := schema.DefaultConditions()
		if b.pass != nil {
			c.Pass = *b.pass
		}
		if b.fail != nil {
			c.Fail = *b.fail
		}
		s.Conditions = &c
		if s.Command == nil {
			st.warn(WarnConditionsWithoutCommand, s.Number.Int(), s.Line,
				"step %d has PASS/FAIL directives but no bash block; they have no effect", s.Number)
		}
	}

	if s.Command == nil && len(s.Prompts) == 0 {
		if t := joinChunks(b.implicit); t != "" {
			s.Prompts = []schema.Prompt{{Text: t}}
		}
	}
	st.steps = append(st.steps, s)
}

func joinChunks(chunks []chunk) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			if c.listItem && chunks[i-1].listItem {
				sb.WriteByte('\n')
			} else {
				sb.WriteString("\n\n")
			}
		}
		if c.listItem {
			sb.WriteString("- ")
		}
		sb.WriteString(c.text)
	}
	return strings.TrimSpace(sb.String())
}
