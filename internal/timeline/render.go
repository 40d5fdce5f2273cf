package timeline

import (
	"strings"

	"github.com/muurk/tramesniff/internal/highlight"
)

// Waveform glyphs used by Render.
const (
	HighGlyph     = '‾'
	LowGlyph      = '_'
	NoiseGlyph    = '?'
	BoundaryGlyph = '|'
)

// BitColors assigns a color to every bit of bits that falls inside a match
// of a bit-kind rule. Rules are applied in order and an earlier rule keeps
// the bits it already colored. Uncolored bits are "".
func BitColors(bits string, rules []highlight.Rule) []string {
	colors := make([]string, len(bits))
	for _, r := range rules {
		if highlight.Classify(r.Pattern) != highlight.KindBits {
			continue
		}
		for _, m := range highlight.FindMatches(bits, r.Pattern, highlight.KindBits) {
			for i := m.Start; i < m.End; i++ {
				if colors[i] == "" {
					colors[i] = r.Color
				}
			}
		}
	}
	return colors
}

// Strip is a rendered window of a timeline.
type Strip struct {
	From  int    // index of the first bit drawn
	Bits  string // the bits drawn
	Cells []rune
	// Owner holds, for every cell, the index into Bits of the bit drawn
	// there, or -1 for a boundary mark.
	Owner []int
}

// String returns the cells as text.
func (s Strip) String() string {
	return string(s.Cells)
}

// Render draws the bits of t starting at from that fit in width cells of
// layout l. A boundary mark replaces the last cell of the bit that ends a
// frame, so marks never move the bits after them.
func Render(t *Timeline, from, width int, l Layout) Strip {
	if l.BitWidth <= 0 || width <= 0 {
		return Strip{From: from}
	}
	from = max(from, 0)
	bits := t.Window(from, width/l.BitWidth)
	if bits == "" {
		return Strip{From: from}
	}

	ends := make(map[int]bool)
	for _, b := range t.Boundaries() {
		ends[b] = true
	}

	origin := l.X(from)
	size := l.X(from+len(bits)) - origin
	s := Strip{From: from, Bits: bits, Cells: make([]rune, size), Owner: make([]int, size)}
	for i := 0; i < len(bits); i++ {
		glyph := NoiseGlyph
		switch bits[i] {
		case '1':
			glyph = HighGlyph
		case '0':
			glyph = LowGlyph
		}
		x := l.X(from+i) - origin
		for c := x; c < x+l.BitWidth; c++ {
			s.Cells[c] = glyph
			s.Owner[c] = i
		}
		if ends[from+i+1] {
			bx := l.BoundaryX(from+i+1) - origin
			s.Cells[bx] = BoundaryGlyph
			s.Owner[bx] = -1
		}
	}
	return s
}

// RenderAxis draws the time labels for n bits starting at from, placed as
// Render places the bits. Labels that would overlap the previous one or
// run past width are skipped.
func RenderAxis(from, n, width int, l Layout) string {
	var b strings.Builder
	origin := l.X(from)
	next := 0
	for i := 0; i < n; i++ {
		if !l.HasLabel(from + i) {
			continue
		}
		label := l.TimeLabel(from + i)
		x := l.X(from+i) - origin
		if x < next || x+len(label) > width {
			continue
		}
		b.WriteString(strings.Repeat(" ", x-next))
		b.WriteString(label)
		next = x + len(label) + 1
		if next <= width {
			b.WriteByte(' ')
		}
	}
	return strings.TrimRight(b.String(), " ")
}
