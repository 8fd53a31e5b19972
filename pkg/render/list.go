package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/workflow/pkg/schema"
)

// Format selects how a listing is written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a format name. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q: must be text, json or yaml", s)
	}
}

// List writes the workflow's step metadata without executing anything.
// Text output is rendered markdown when color is on, plain markdown otherwise.
func List(w io.Writer, wf *schema.Workflow, format Format, color bool) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(wf)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(wf); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		md := ListMarkdown(wf)
		if color {
			md = renderMarkdown(md)
		}
		_, err := io.WriteString(w, strings.TrimRight(md, "\n")+"\n")
		return err
	}
}

// ListMarkdown describes every step as a markdown document.
func ListMarkdown(wf *schema.Workflow) string {
	var sb strings.Builder
	if wf.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", wf.Title)
	}
	if wf.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", wf.Description)
	}
	fmt.Fprintf(&sb, "%d steps\n\n", wf.Len())

	for _, s := range wf.Steps {
		fmt.Fprintf(&sb, "## %d. %s\n\n", s.Number, s.Description)
		if s.Command != nil {
			quiet := ""
			if s.Command.Quiet {
				quiet = " (quiet)"
			}
			fmt.Fprintf(&sb, "- **Command**%s:\n\n  ```bash\n%s\n  ```\n", quiet, indent(s.Command.Code, "  "))
		}
		if len(s.Prompts) > 0 {
			fmt.Fprintf(&sb, "- **Prompts** (%d):\n", len(s.Prompts))
			for _, p := range s.Prompts {
				fmt.Fprintf(&sb, "  - %s\n", strings.ReplaceAll(p.Text, "\n", " "))
			}
		}
		if s.Conditions != nil {
			fmt.Fprintf(&sb, "- **PASS** → %s, **FAIL** → %s\n", s.Conditions.Pass, s.Conditions.Fail)
		}
		if s.Command == nil && len(s.Prompts) == 0 {
			sb.WriteString("- *(no command, no prompt)*\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// renderMarkdown converts markdown to styled terminal output.
// Falls back to the raw input if glamour is unavailable or rendering fails.
func renderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
