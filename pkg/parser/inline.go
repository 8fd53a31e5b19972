package parser

import (
	"strings"

	"github.com/yuin/goldmark/ast"
)

type segKind int

const (
	segText segKind = iota
	segCode
	segEmphasis
)

// segment is one run of inline content within a source line.
type segment struct {
	kind segKind
	text string
}

// inlineLine is the inline content of one source line of a paragraph.
type inlineLine []segment

// plain returns the line's text without markup.
func (l inlineLine) plain() string {
	var sb strings.Builder
	for _, s := range l {
		sb.WriteString(s.text)
	}
	return strings.TrimSpace(sb.String())
}

// inlineLines splits a block's inline children into lines at soft and hard
// breaks.
func inlineLines(n ast.Node, source []byte) []inlineLine {
	lines := []inlineLine{nil}
	add := func(kind segKind, s string) {
		if s == "" {
			return
		}
		last := len(lines) - 1
		lines[last] = append(lines[last], segment{kind: kind, text: s})
	}
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				add(segText, string(t.Segment.Value(source)))
				if t.SoftLineBreak() || t.HardLineBreak() {
					lines = append(lines, nil)
				}
			case *ast.String:
				add(segText, string(t.Value))
			case *ast.CodeSpan:
				add(segCode, inlineText(t, source))
			case *ast.Emphasis:
				add(segEmphasis, inlineText(t, source))
			case *ast.AutoLink:
				add(segText, string(t.URL(source)))
			case *ast.RawHTML:
				for i := 0; i < t.Segments.Len(); i++ {
					seg := t.Segments.At(i)
					add(segText, string(seg.Value(source)))
				}
			default:
				walk(c)
			}
		}
	}
	walk(n)

	// Drop a trailing empty line left by a final break.
	if len(lines) > 1 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// inlineText flattens a node's inline content to text, joining lines with
// spaces.
func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(inlineText(c, source))
		}
	}
	return strings.TrimSpace(sb.String())
}

func firstText(n ast.Node) *ast.Text {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			return t
		}
		if t := firstText(c); t != nil {
			return t
		}
	}
	return nil
}

// codeContent returns the raw lines of a fenced code block.
func codeContent(n *ast.FencedCodeBlock, source []byte) string {
	var sb strings.Builder
	for i := 0; i < n.Lines().Len(); i++ {
		line := n.Lines().At(i)
		sb.Write(line.Value(source))
	}
	return sb.String()
}
