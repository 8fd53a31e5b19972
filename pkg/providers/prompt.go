package providers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

// Prompter shows a yes/no question and returns the operator's raw answer.
// Implementations: LinePrompter, ReadlinePrompter, ScriptedPrompter,
// DryRunPrompter.
//
// End of input is not an error: it yields an empty, non-affirmative answer.
type Prompter interface {
	Ask(prompt string) (string, error)
}

// IsAffirmative reports whether an answer counts as "yes". Only y and yes,
// in any case, do.
func IsAffirmative(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "y" || a == "yes"
}

// promptLabel is the text shown before the answer cursor.
func promptLabel(prompt string) string {
	return fmt.Sprintf("→ Prompt: %s [y/N]: ", prompt)
}

// LinePrompter reads answers line by line from a plain reader.
type LinePrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewLinePrompter creates a prompter reading from in and writing to out.
// Nil arguments select stdin / stdout.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &LinePrompter{reader: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Ask(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, promptLabel(prompt)); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ReadlinePrompter collects answers with line editing on a terminal.
type ReadlinePrompter struct {
	rl *readline.Instance
}

// NewReadlinePrompter opens a readline instance on the terminal. Close it
// when the run ends.
func NewReadlinePrompter() (*ReadlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "n",
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return &ReadlinePrompter{rl: rl}, nil
}

func (p *ReadlinePrompter) Ask(prompt string) (string, error) {
	// Multi-line prompts print their body first; readline redraws only the
	// last line.
	label := promptLabel(prompt)
	if i := strings.LastIndexByte(label, '\n'); i >= 0 {
		fmt.Fprint(p.rl.Stdout(), label[:i+1])
		label = label[i+1:]
	}
	p.rl.SetPrompt(label)
	line, err := p.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Close releases the terminal.
func (p *ReadlinePrompter) Close() error {
	return p.rl.Close()
}

// ScriptedPrompter answers from a fixed list. Once the list is exhausted
// every answer is empty, which counts as "no".
type ScriptedPrompter struct {
	Answers []string
	Out     io.Writer

	// Asked records every prompt shown, in order.
	Asked []string
}

// NewScriptedPrompter creates a prompter that replays answers.
func NewScriptedPrompter(answers ...string) *ScriptedPrompter {
	return &ScriptedPrompter{Answers: answers}
}

func (p *ScriptedPrompter) Ask(prompt string) (string, error) {
	var answer string
	if len(p.Asked) < len(p.Answers) {
		answer = p.Answers[len(p.Asked)]
	}
	p.Asked = append(p.Asked, prompt)
	if p.Out != nil {
		fmt.Fprintf(p.Out, "%s%s\n", promptLabel(prompt), answer)
	}
	return answer, nil
}

// DryRunPrompter shows each prompt and answers yes without blocking.
type DryRunPrompter struct {
	Out io.Writer
}

func (p *DryRunPrompter) Ask(prompt string) (string, error) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, "%sy (dry-run)\n", promptLabel(prompt))
	}
	return "y", nil
}
