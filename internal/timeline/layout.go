package timeline

import (
	"fmt"
	"time"
)

// Layout maps bit indexes to horizontal positions.
type Layout struct {
	LeftMargin  int           // pixels before the time axis
	BitWidth    int           // pixels per bit
	BitDuration time.Duration // time represented by one bit
	LabelEvery  int           // bits between time labels
}

// DefaultLayout returns the standard waveform geometry.
func DefaultLayout() Layout {
	return Layout{
		LeftMargin:  40,
		BitWidth:    20,
		BitDuration: time.Millisecond,
		LabelEvery:  10,
	}
}

// CellLayout is the terminal layout used by Render: two cells per bit, the
// second of which carries the boundary mark when a frame ends there.
func CellLayout(bitDuration time.Duration) Layout {
	if bitDuration <= 0 {
		bitDuration = time.Millisecond
	}
	return Layout{
		BitWidth:    2,
		BitDuration: bitDuration,
		LabelEvery:  10,
	}
}

// X returns the left edge of bit i.
func (l Layout) X(i int) int {
	return l.LeftMargin + l.BitWidth + i*l.BitWidth
}

// BoundaryX returns the position of the marker drawn after boundary bits:
// the last position covered by bit boundary-1.
func (l Layout) BoundaryX(boundary int) int {
	return l.X(boundary) - 1
}

// Width returns the canvas width needed to draw n bits.
func (l Layout) Width(n int) int {
	return l.X(n) + l.LeftMargin
}

// HasLabel reports whether a time label is drawn under bit i.
func (l Layout) HasLabel(i int) bool {
	return l.LabelEvery > 0 && i%l.LabelEvery == 0
}

// TimeLabel returns the label for bit i, e.g. "10ms".
func (l Layout) TimeLabel(i int) string {
	d := time.Duration(i) * l.BitDuration
	if d%time.Millisecond == 0 {
		return fmt.Sprintf("%dms", d/time.Millisecond)
	}
	return d.Round(time.Microsecond).String()
}
