package highlight

import (
	"strings"

	"github.com/muurk/tramesniff/internal/codec"
)

// MatchesFilter reports whether any rule pattern appears verbatim in the
// entry's bits, hex or text. An empty rule set lets everything through.
func MatchesFilter(entry codec.Entry, rules []Rule) bool {
	if len(rules) == 0 {
		return true
	}
	for _, r := range rules {
		if r.Pattern == "" {
			continue
		}
		if strings.Contains(entry.Bits, r.Pattern) ||
			strings.Contains(entry.Hex, r.Pattern) ||
			strings.Contains(entry.Text, r.Pattern) {
			return true
		}
	}
	return false
}

// FilterEntries keeps the entries that match at least one rule.
func FilterEntries(entries []codec.Entry, rules []Rule) []codec.Entry {
	if len(rules) == 0 {
		return entries
	}
	out := make([]codec.Entry, 0, len(entries))
	for _, e := range entries {
		if MatchesFilter(e, rules) {
			out = append(out, e)
		}
	}
	return out
}
