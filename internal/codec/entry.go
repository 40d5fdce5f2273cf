package codec

// Entry is one decoded frame. Entries are built once by NewEntry and never
// modified afterwards.
type Entry struct {
	Bits string `json:"bits"`
	Hex  string `json:"hex"`
	Text string `json:"text"`
}

// NewEntry decodes bits into all three representations. A nil dictionary
// decodes with the ASCII fallback only.
func NewEntry(bits string, dict *Dictionary) Entry {
	hex := BitsToHex(bits)
	return Entry{
		Bits: bits,
		Hex:  hex,
		Text: dict.Decode(hex),
	}
}

// ByteCount returns the number of hex tokens in the entry.
func (e Entry) ByteCount() int {
	return len(Tokens(e.Hex))
}
