package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder is emitted for bytes outside the printable ASCII range and for
// tokens that cannot be parsed.
const Placeholder = '.'

const (
	printableMin = 32
	printableMax = 126
)

// InvalidToken stands in for a chunk of bits that holds anything other than
// '0' and '1'. It decodes as Placeholder.
const InvalidToken = "??"

// BitsToHex encodes a bit string as space separated two digit hex tokens.
// The final chunk may hold fewer than eight bits. A chunk containing any
// other character becomes InvalidToken, so the token count is always
// ceil(len(bits)/8). Returns "" when bits is empty.
func BitsToHex(bits string) string {
	if bits == "" {
		return ""
	}

	var b strings.Builder
	b.Grow((len(bits) + 7) / 8 * 3)
	for i := 0; i < len(bits); i += 8 {
		end := min(i+8, len(bits))
		if i > 0 {
			b.WriteByte(' ')
		}
		chunk := bits[i:end]
		if !IsBits(chunk) {
			b.WriteString(InvalidToken)
			continue
		}
		v, _ := strconv.ParseUint(chunk, 2, 8)
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// HexToASCIIChar decodes one hex token. Printable ASCII values come back as
// themselves, everything else as Placeholder.
func HexToASCIIChar(token string) byte {
	v, err := strconv.ParseUint(strings.TrimSpace(token), 16, 16)
	if err != nil {
		return Placeholder
	}
	if v < printableMin || v > printableMax {
		return Placeholder
	}
	return byte(v)
}

// Tokens splits a hex line on whitespace and uppercases every token.
func Tokens(hex string) []string {
	fields := strings.Fields(hex)
	for i, f := range fields {
		fields[i] = strings.ToUpper(f)
	}
	return fields
}

// HexToBytes decodes a space separated hex line. Tokens that fail to parse
// decode as zero so the byte count always matches the token count.
func HexToBytes(hex string) []byte {
	tokens := Tokens(hex)
	out := make([]byte, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			continue
		}
		out[i] = byte(v)
	}
	return out
}

// BytesToBits renders every byte as eight '0'/'1' characters, MSB first.
func BytesToBits(data []byte) string {
	var b strings.Builder
	b.Grow(len(data) * 8)
	for _, c := range data {
		for bit := 7; bit >= 0; bit-- {
			if c&(1<<uint(bit)) != 0 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String()
}

// IsBits reports whether s is made only of '0' and '1'.
func IsBits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' {
			return false
		}
	}
	return true
}
