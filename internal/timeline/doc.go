// Package timeline accumulates the received bit stream for the waveform view
// and records where each frame ends inside it.
//
// A Timeline holds the concatenation of every frame appended since the last
// Clear, plus one cumulative boundary per Append:
//
//	tl := timeline.New()
//	tl.Append("01001010")
//	tl.Append("0010")
//	tl.Boundaries() // [8 12]
//
// Frames are stored exactly as received, so bit positions in the timeline
// line up with the highlight spans computed for the same frames.
//
// Layout maps bit indexes to positions, either pixels or terminal cells.
// Render draws a window of the timeline with CellLayout, one glyph pair per
// bit with frame boundaries marked in place, and RenderAxis draws the time
// labels under it.
package timeline
