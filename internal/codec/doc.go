// Package codec converts captured frames between their three representations.
//
// A frame arrives from the sniffer as a run of '0'/'1' characters. The codec
// turns that run into space separated uppercase hex tokens, one per byte, and
// then decodes the hex into text through a user dictionary.
//
// # Bits to Hex
//
// Bits are consumed eight at a time. A short final chunk is still encoded as
// a byte value, so a partially received frame can be shown while it is still
// arriving:
//
//	codec.BitsToHex("0100101000101111") // "4A 2F"
//	codec.BitsToHex("0100101")          // "25"
//
// # Dictionary Decoding
//
// A Dictionary maps byte sequences to labels. Decoding is greedy: at every
// position the longest known sequence wins, and bytes with no entry fall back
// to printable ASCII or the '.' placeholder:
//
//	dict := codec.NewDictionary([]codec.DictionaryEntry{
//	    {HexPattern: "48 45", Translation: "Salut"},
//	    {HexPattern: "4C4C", Translation: "Double L"},
//	})
//	dict.Decode("48 45 4C 4C 4F") // "SalutDouble LO"
//
// All functions in this package are total: malformed input degrades to the
// placeholder character or an empty result and never returns an error.
package codec
