package highlight

import (
	"strings"
	"unicode/utf8"

	"github.com/muurk/tramesniff/internal/codec"
)

// Rule is an active filter: a pattern and an opaque color tag handed back
// untouched in every span it produces.
type Rule struct {
	Pattern string `json:"pattern"`
	Color   string `json:"color"`
}

// Span is a half-open [Start, End) range to paint with Color.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Color string `json:"color"`
}

// FrameSpans holds the spans of one frame, or of a whole Buffer, per
// representation. Text offsets count runes, not bytes.
type FrameSpans struct {
	Bits []Span `json:"bits,omitempty"`
	Hex  []Span `json:"hex,omitempty"`
	Text []Span `json:"text,omitempty"`
}

// Len returns the total number of spans.
func (f FrameSpans) Len() int {
	return len(f.Bits) + len(f.Hex) + len(f.Text)
}

// Option configures span computation.
type Option func(*options)

type options struct {
	dict *codec.Dictionary
}

// WithDictionary aligns text spans to dictionary tokens. Without it a text
// character is assumed to stand for exactly one byte, which drifts as soon as
// a dictionary entry collapses several bytes into one label.
func WithDictionary(d *codec.Dictionary) Option {
	return func(o *options) {
		o.dict = d
	}
}

// SpansForFrame computes the highlight spans of a single frame. Offsets are
// local to the frame.
func SpansForFrame(entry codec.Entry, rules []Rule, opts ...Option) FrameSpans {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	f := newFrameLayout(entry, o)
	var out FrameSpans
	for _, rule := range rules {
		kind := Classify(rule.Pattern)
		for _, m := range FindMatches(f.haystack(kind), rule.Pattern, kind) {
			br, ok := f.byteRange(m, kind)
			if !ok {
				continue
			}
			if s, ok := f.bitSpan(br, rule.Color); ok {
				out.Bits = append(out.Bits, s)
			}
			if s, ok := f.hexSpan(br, rule.Color); ok {
				out.Hex = append(out.Hex, s)
			}
			if s, ok := f.textSpan(br, rule.Color); ok {
				out.Text = append(out.Text, s)
			}
		}
	}
	return out
}

// frameLayout caches the per-frame offsets needed to expand a byte range.
type frameLayout struct {
	entry     codec.Entry
	hexStarts []int
	hexLens   []int
	textLen   int

	// Token alignment, only set when a dictionary is supplied.
	tokens     []codec.Token
	tokenStart []int
}

func newFrameLayout(entry codec.Entry, o options) *frameLayout {
	f := &frameLayout{
		entry:   entry,
		textLen: utf8.RuneCountInString(entry.Text),
	}

	// Running offsets: token length plus one separator.
	offset := 0
	for _, tok := range strings.Split(entry.Hex, " ") {
		if tok == "" {
			continue
		}
		f.hexStarts = append(f.hexStarts, offset)
		f.hexLens = append(f.hexLens, len(tok))
		offset += len(tok) + 1
	}

	if o.dict != nil {
		f.tokens = o.dict.DecodeTokens(entry.Hex)
		pos := 0
		for _, t := range f.tokens {
			f.tokenStart = append(f.tokenStart, pos)
			pos += utf8.RuneCountInString(t.Text)
		}
	}
	return f
}

func (f *frameLayout) haystack(kind Kind) string {
	switch kind {
	case KindBits:
		return f.entry.Bits
	case KindHex:
		return f.entry.Hex
	default:
		return f.entry.Text
	}
}

func (f *frameLayout) byteRange(m Range, kind Kind) (ByteRange, bool) {
	if kind == KindText && f.tokens != nil {
		return f.textToBytes(m)
	}
	br := ProjectToByteRange(m, kind)
	return br, br.Last >= br.First
}

// textToBytes maps a rune range onto the bytes of every token it touches.
func (f *frameLayout) textToBytes(m Range) (ByteRange, bool) {
	first, last := -1, -1
	for i, t := range f.tokens {
		start := f.tokenStart[i]
		end := start + utf8.RuneCountInString(t.Text)
		if end <= m.Start || start >= m.End {
			continue
		}
		if first < 0 {
			first = t.FirstByte
		}
		last = t.LastByte
	}
	if first < 0 {
		return ByteRange{}, false
	}
	return ByteRange{First: first, Last: last}, true
}

func (f *frameLayout) bitSpan(br ByteRange, color string) (Span, bool) {
	start := br.First * 8
	end := min(br.Last*8+8, len(f.entry.Bits))
	if start >= end {
		return Span{}, false
	}
	return Span{Start: start, End: end, Color: color}, true
}

func (f *frameLayout) hexSpan(br ByteRange, color string) (Span, bool) {
	n := len(f.hexStarts)
	if br.First >= n {
		return Span{}, false
	}
	last := min(br.Last, n-1)
	return Span{
		Start: f.hexStarts[br.First],
		End:   f.hexStarts[last] + f.hexLens[last],
		Color: color,
	}, true
}

func (f *frameLayout) textSpan(br ByteRange, color string) (Span, bool) {
	if f.tokens != nil {
		return f.tokenTextSpan(br, color)
	}
	if br.First >= f.textLen {
		return Span{}, false
	}
	return Span{Start: br.First, End: min(br.Last+1, f.textLen), Color: color}, true
}

func (f *frameLayout) tokenTextSpan(br ByteRange, color string) (Span, bool) {
	start, end := -1, -1
	for i, t := range f.tokens {
		if t.LastByte < br.First || t.FirstByte > br.Last {
			continue
		}
		if start < 0 {
			start = f.tokenStart[i]
		}
		end = f.tokenStart[i] + utf8.RuneCountInString(t.Text)
	}
	if start < 0 || start >= end {
		return Span{}, false
	}
	return Span{Start: start, End: end, Color: color}, true
}
