package codec

import (
	"strings"
	"unicode"
)

// DictionaryEntry maps a byte sequence to a human readable label.
type DictionaryEntry struct {
	HexPattern  string `json:"hex_pattern" yaml:"hex_pattern"`
	Translation string `json:"translation" yaml:"translation"`
}

// Token is one unit produced by the tokenizer: either a dictionary
// translation or a single fallback character. FirstByte and LastByte are the
// inclusive byte positions it was decoded from.
type Token struct {
	Text      string
	FirstByte int
	LastByte  int
}

// Dictionary is an immutable snapshot used for decoding. The zero value and a
// nil *Dictionary both decode with the ASCII fallback only.
type Dictionary struct {
	entries   []DictionaryEntry
	index     map[string]string
	maxTokens int
}

// NewDictionary builds a snapshot from entries. Keys are normalized so that
// "4c4c", "4C 4C" and " 4C4C " are the same key. When two entries normalize
// to the same key the first one declared wins.
func NewDictionary(entries []DictionaryEntry) *Dictionary {
	d := &Dictionary{
		entries: make([]DictionaryEntry, 0, len(entries)),
		index:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		key := NormalizeKey(e.HexPattern)
		if key == "" {
			continue
		}
		if _, exists := d.index[key]; exists {
			continue
		}
		d.index[key] = e.Translation
		d.entries = append(d.entries, DictionaryEntry{
			HexPattern:  CompactHex(e.HexPattern),
			Translation: e.Translation,
		})
		if n := strings.Count(key, " ") + 1; n > d.maxTokens {
			d.maxTokens = n
		}
	}
	return d
}

// CompactHex uppercases s and removes all whitespace ("4a 2f" -> "4A2F").
func CompactHex(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// NormalizeKey turns a hex pattern into the space joined token form used for
// lookups ("4c4c" -> "4C 4C").
func NormalizeKey(s string) string {
	compact := CompactHex(s)
	if compact == "" {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(compact); i += 2 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 2
		if end > len(compact) {
			end = len(compact)
		}
		b.WriteString(compact[i:end])
	}
	return b.String()
}

// Len returns the number of distinct entries in the snapshot.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of the snapshot in declaration order.
func (d *Dictionary) Entries() []DictionaryEntry {
	if d == nil {
		return nil
	}
	out := make([]DictionaryEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Lookup returns the translation for an exact hex sequence.
func (d *Dictionary) Lookup(hex string) (string, bool) {
	if d == nil {
		return "", false
	}
	t, ok := d.index[NormalizeKey(hex)]
	return t, ok
}

// Decode converts a hex line to text. Empty input decodes to a single
// placeholder, matching what one unparsable token would produce.
func (d *Dictionary) Decode(hex string) string {
	tokens := d.DecodeTokens(hex)
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// DecodeTokens runs the greedy longest-match tokenizer and reports which
// bytes produced each piece of output.
func (d *Dictionary) DecodeTokens(hex string) []Token {
	tokens := Tokens(hex)
	if len(tokens) == 0 {
		return []Token{{Text: string(rune(Placeholder))}}
	}

	out := make([]Token, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if n, text, ok := d.longestMatch(tokens, i); ok {
			out = append(out, Token{Text: text, FirstByte: i, LastByte: i + n - 1})
			i += n
			continue
		}
		out = append(out, Token{
			Text:      string(rune(HexToASCIIChar(tokens[i]))),
			FirstByte: i,
			LastByte:  i,
		})
		i++
	}
	return out
}

func (d *Dictionary) longestMatch(tokens []string, at int) (int, string, bool) {
	if d == nil || len(d.index) == 0 {
		return 0, "", false
	}
	n := len(tokens) - at
	if n > d.maxTokens {
		n = d.maxTokens
	}
	for ; n > 0; n-- {
		if text, ok := d.index[strings.Join(tokens[at:at+n], " ")]; ok {
			return n, text, true
		}
	}
	return 0, "", false
}
