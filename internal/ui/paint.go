package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/tramesniff/internal/codec"
	"github.com/muurk/tramesniff/internal/highlight"
)

// Paint colors the runes of s covered by spans. Span offsets count runes.
// Where spans overlap the earlier span wins, matching rule order. Newlines
// are never wrapped in escape codes so painted buffers keep their lines.
func Paint(s string, spans []highlight.Span) string {
	if len(spans) == 0 || s == "" {
		return s
	}
	var b strings.Builder
	for _, seg := range segments(s, spans) {
		if seg.color == "" {
			b.WriteString(seg.text)
		} else {
			b.WriteString(spanStyle(seg.color).Render(seg.text))
		}
	}
	return b.String()
}

// segment is a run of runes sharing one color; newlines are always their own
// uncolored segment.
type segment struct {
	text  string
	color string
}

func segments(s string, spans []highlight.Span) []segment {
	runes := []rune(s)
	colors := make([]string, len(runes))
	for _, sp := range spans {
		start, end := max(sp.Start, 0), min(sp.End, len(runes))
		for i := start; i < end; i++ {
			if colors[i] == "" && runes[i] != '\n' {
				colors[i] = sp.Color
			}
		}
	}

	var out []segment
	for i := 0; i < len(runes); {
		j := i + 1
		if runes[i] != '\n' {
			for j < len(runes) && colors[j] == colors[i] && runes[j] != '\n' {
				j++
			}
		}
		out = append(out, segment{text: string(runes[i:j]), color: colors[i]})
		i = j
	}
	return out
}

func spanStyle(tag string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#000000")).
		Background(RuleColor(tag)).
		Bold(true)
}

// PaintFrame renders one frame as three painted lines (bits, hex, text)
// from spans computed by highlight.SpansForFrame.
func PaintFrame(entry codec.Entry, spans highlight.FrameSpans) (bits, hex, text string) {
	return Paint(entry.Bits, spans.Bits), Paint(entry.Hex, spans.Hex), Paint(entry.Text, spans.Text)
}

// PaintBuffer joins entries one per line, selecting a representation with
// field, and paints the result with spans accumulated by a highlight.Buffer.
func PaintBuffer(entries []codec.Entry, field func(codec.Entry) string, spans []highlight.Span) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(field(e))
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(Paint(b.String(), spans), "\n")
}

// Field selectors for PaintBuffer.
func BitsField(e codec.Entry) string { return e.Bits }
func HexField(e codec.Entry) string  { return e.Hex }
func TextField(e codec.Entry) string { return e.Text }
