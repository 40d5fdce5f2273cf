package codec

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestBitsToHex(t *testing.T) {
	tests := []struct {
		name string
		bits string
		want string
	}{
		{"two bytes", "0100101000101111", "4A 2F"},
		{"short final chunk", "0100101", "25"},
		{"full then short", "111111111", "FF 01"},
		{"all zero byte", "00000000", "00"},
		{"empty", "", ""},
		{"invalid chunk", "01002101", "??"},
		{"only the bad chunk", "0100101001002101", "4A ??"},
		{"whitespace splits chunks", "0100 1010", "?? 00"},
		{"not bits at all", "ESP32 rebooting", "?? ??"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BitsToHex(tt.bits); got != tt.want {
				t.Errorf("BitsToHex(%q) = %q, want %q", tt.bits, got, tt.want)
			}
		})
	}
}

func TestBitsToHexRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		data := make([]byte, rng.Intn(32)+1)
		rng.Read(data)
		bits := BytesToBits(data)

		hex := BitsToHex(bits)
		if got := BytesToBits(HexToBytes(hex)); got != bits {
			t.Fatalf("round trip of %q via %q = %q", bits, hex, got)
		}
		if got := HexToBytes(hex); !bytes.Equal(got, data) {
			t.Fatalf("HexToBytes(%q) = %v, want %v", hex, got, data)
		}
	}
}

func TestHexToASCIIChar(t *testing.T) {
	tests := []struct {
		token string
		want  byte
	}{
		{"41", 'A'},
		{"20", ' '},
		{"7E", '~'},
		{"7e", '~'},
		{"7F", '.'},
		{"1F", '.'},
		{"00", '.'},
		{"FF", '.'},
		{"GG", '.'},
		{"", '.'},
	}

	for _, tt := range tests {
		if got := HexToASCIIChar(tt.token); got != tt.want {
			t.Errorf("HexToASCIIChar(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("  4a 2f\t0D  ")
	want := []string{"4A", "2F", "0D"}
	if len(got) != len(want) {
		t.Fatalf("Tokens() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewEntry(t *testing.T) {
	entry := NewEntry("0100100001001001", nil)

	if entry.Hex != "48 49" {
		t.Errorf("Hex = %q, want %q", entry.Hex, "48 49")
	}
	if entry.Text != "HI" {
		t.Errorf("Text = %q, want %q", entry.Text, "HI")
	}
	if entry.ByteCount() != 2 {
		t.Errorf("ByteCount() = %d, want 2", entry.ByteCount())
	}
}

func TestNewEntryNoisyLine(t *testing.T) {
	tests := []struct {
		bits string
		hex  string
		text string
	}{
		{"0100 1010", "?? 00", ".."},
		{"0100100001001001x", "48 49 ??", "HI."},
		{"ESP32 rebooting", "?? ??", ".."},
	}
	for _, tt := range tests {
		entry := NewEntry(tt.bits, nil)
		if entry.Bits != tt.bits {
			t.Errorf("NewEntry(%q).Bits = %q, want the line unchanged", tt.bits, entry.Bits)
		}
		if entry.Hex != tt.hex || entry.Text != tt.text {
			t.Errorf("NewEntry(%q) = %q / %q, want %q / %q", tt.bits, entry.Hex, entry.Text, tt.hex, tt.text)
		}
		if want := (len(tt.bits) + 7) / 8; entry.ByteCount() != want {
			t.Errorf("NewEntry(%q).ByteCount() = %d, want %d", tt.bits, entry.ByteCount(), want)
		}
	}
}

func BenchmarkBitsToHex(b *testing.B) {
	bits := BytesToBits(bytes.Repeat([]byte{0x4A, 0x2F}, 64))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BitsToHex(bits)
	}
}
