package highlight

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/muurk/tramesniff/internal/codec"
)

// Kind is the representation a pattern is matched against.
type Kind int

const (
	KindText Kind = iota
	KindBits
	KindHex
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindBits:
		return "bits"
	case KindHex:
		return "hex"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Wildcard stands for any single byte in a hex pattern.
const Wildcard = '*'

var hexPatternRe = regexp.MustCompile(`^([0-9A-F]{2}|\*)+$`)

// Range is a half-open [Start, End) match in the units of its Kind.
type Range struct {
	Start int
	End   int
}

// ByteRange is an inclusive range of byte positions.
type ByteRange struct {
	First int
	Last  int
}

// Classify infers what kind of pattern this is. Whitespace and wildcards are
// ignored when deciding between bits and hex.
func Classify(pattern string) Kind {
	stripped := stripPattern(pattern)
	if stripped == "" {
		return KindText
	}
	if codec.IsBits(stripped) {
		return KindBits
	}
	if hexPatternRe.MatchString(codec.CompactHex(pattern)) {
		return KindHex
	}
	return KindText
}

func stripPattern(pattern string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == Wildcard {
			return -1
		}
		return r
	}, pattern)
}

// FindMatches returns the non-overlapping matches of pattern in haystack,
// scanning left to right. Offsets are bit indexes for KindBits, character
// indexes into the whitespace stripped hex string for KindHex and rune
// indexes for KindText. An empty or unusable pattern matches nothing.
func FindMatches(haystack, pattern string, kind Kind) []Range {
	switch kind {
	case KindBits:
		return findLiteral(haystack, stripPattern(pattern))
	case KindHex:
		return findHex(haystack, pattern)
	case KindText:
		return findText(haystack, pattern)
	default:
		return nil
	}
}

func findLiteral(haystack, needle string) []Range {
	if needle == "" {
		return nil
	}
	var out []Range
	for pos := 0; pos <= len(haystack)-len(needle); {
		i := strings.Index(haystack[pos:], needle)
		if i < 0 {
			break
		}
		start := pos + i
		out = append(out, Range{Start: start, End: start + len(needle)})
		pos = start + len(needle)
	}
	return out
}

func findHex(haystack, pattern string) []Range {
	re := compileHexPattern(pattern)
	if re == nil {
		return nil
	}
	hay := codec.CompactHex(haystack)

	var out []Range
	for pos := 0; pos < len(hay); {
		loc := re.FindStringIndex(hay[pos:])
		if loc == nil || loc[1] == loc[0] {
			break
		}
		start := pos + loc[0]
		// Only byte aligned matches count.
		if start%2 != 0 {
			pos = start + 1
			continue
		}
		end := pos + loc[1]
		out = append(out, Range{Start: start, End: end})
		pos = end
	}
	return out
}

// compileHexPattern turns "4A * 2F" into a case-insensitive regexp where
// every '*' matches exactly one byte pair. Returns nil for anything that is
// not a valid hex pattern.
func compileHexPattern(pattern string) *regexp.Regexp {
	compact := codec.CompactHex(pattern)
	if compact == "" || !hexPatternRe.MatchString(compact) {
		return nil
	}

	var b strings.Builder
	b.WriteString("(?i)")
	for i := 0; i < len(compact); {
		if compact[i] == Wildcard {
			b.WriteString("[0-9A-F]{2}")
			i++
			continue
		}
		b.WriteString(regexp.QuoteMeta(compact[i : i+2]))
		i += 2
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil
	}
	return re
}

func findText(haystack, pattern string) []Range {
	if pattern == "" {
		return nil
	}
	hay := []rune(haystack)
	needle := []rune(pattern)

	var out []Range
	for i := 0; i+len(needle) <= len(hay); {
		if runesEqual(hay[i:i+len(needle)], needle) {
			out = append(out, Range{Start: i, End: i + len(needle)})
			i += len(needle)
			continue
		}
		i++
	}
	return out
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ProjectToByteRange maps a match onto the bytes it covers. Text assumes one
// decoded character per byte.
func ProjectToByteRange(r Range, kind Kind) ByteRange {
	if r.End <= r.Start {
		return ByteRange{First: r.Start, Last: r.Start - 1}
	}
	switch kind {
	case KindBits:
		return ByteRange{First: r.Start / 8, Last: (r.End - 1) / 8}
	case KindHex:
		return ByteRange{First: r.Start / 2, Last: (r.End - 1) / 2}
	default:
		return ByteRange{First: r.Start, Last: r.End - 1}
	}
}
