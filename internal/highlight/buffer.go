package highlight

import (
	"unicode/utf8"

	"github.com/muurk/tramesniff/internal/codec"
)

// Buffer tracks where each frame lands in a view that shows one frame per
// line, so spans can be computed once per frame as it arrives. A Buffer is
// not safe for concurrent use; it belongs to whoever owns the view.
type Buffer struct {
	rules []Rule
	opts  []Option

	bitsOffset int
	hexOffset  int
	textOffset int
	frames     int

	spans FrameSpans
}

// NewBuffer creates an empty buffer highlighting rules.
func NewBuffer(rules []Rule, opts ...Option) *Buffer {
	return &Buffer{rules: rules, opts: opts}
}

// Append adds a frame and returns its spans shifted to buffer offsets.
func (b *Buffer) Append(entry codec.Entry) FrameSpans {
	local := SpansForFrame(entry, b.rules, b.opts...)
	shifted := FrameSpans{
		Bits: shift(local.Bits, b.bitsOffset),
		Hex:  shift(local.Hex, b.hexOffset),
		Text: shift(local.Text, b.textOffset),
	}

	b.spans.Bits = append(b.spans.Bits, shifted.Bits...)
	b.spans.Hex = append(b.spans.Hex, shifted.Hex...)
	b.spans.Text = append(b.spans.Text, shifted.Text...)

	// Each frame is followed by a newline in every view.
	b.bitsOffset += len(entry.Bits) + 1
	b.hexOffset += len(entry.Hex) + 1
	b.textOffset += utf8.RuneCountInString(entry.Text) + 1
	b.frames++

	return shifted
}

// Spans returns every span accumulated so far.
func (b *Buffer) Spans() FrameSpans {
	return b.spans
}

// Offsets returns the current end of each representation's buffer.
func (b *Buffer) Offsets() (bits, hex, text int) {
	return b.bitsOffset, b.hexOffset, b.textOffset
}

// Frames returns how many frames were appended since the last reset.
func (b *Buffer) Frames() int {
	return b.frames
}

// Reset clears offsets and spans but keeps the rules.
func (b *Buffer) Reset() {
	b.bitsOffset, b.hexOffset, b.textOffset = 0, 0, 0
	b.frames = 0
	b.spans = FrameSpans{}
}

// SetRules replaces the active rules. Existing spans are not recomputed; call
// Recompute for that.
func (b *Buffer) SetRules(rules []Rule, opts ...Option) {
	b.rules = rules
	if opts != nil {
		b.opts = opts
	}
}

// Recompute rebuilds the buffer from entries with the current rules.
func (b *Buffer) Recompute(entries []codec.Entry) FrameSpans {
	b.Reset()
	for _, e := range entries {
		b.Append(e)
	}
	return b.spans
}

// Trim drops the oldest frame, which must be oldest, and moves every
// remaining span up by the lines it took.
func (b *Buffer) Trim(oldest codec.Entry) {
	if b.frames == 0 {
		return
	}
	bits := len(oldest.Bits) + 1
	hex := len(oldest.Hex) + 1
	text := utf8.RuneCountInString(oldest.Text) + 1

	b.spans = FrameSpans{
		Bits: shift(dropBefore(b.spans.Bits, bits), -bits),
		Hex:  shift(dropBefore(b.spans.Hex, hex), -hex),
		Text: shift(dropBefore(b.spans.Text, text), -text),
	}
	b.bitsOffset -= bits
	b.hexOffset -= hex
	b.textOffset -= text
	b.frames--
}

// dropBefore returns the spans starting at or after offset. Spans never
// cross a line, so they are ordered by line.
func dropBefore(spans []Span, offset int) []Span {
	for i, s := range spans {
		if s.Start >= offset {
			return spans[i:]
		}
	}
	return nil
}

func shift(spans []Span, by int) []Span {
	if len(spans) == 0 {
		return nil
	}
	out := make([]Span, len(spans))
	for i, s := range spans {
		out[i] = Span{Start: s.Start + by, End: s.End + by, Color: s.Color}
	}
	return out
}
