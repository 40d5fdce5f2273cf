package highlight

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		pattern string
		want    Kind
	}{
		{"1010", KindBits},
		{"  10 01 ", KindBits},
		{"4A 2F", KindHex},
		{"4A2F", KindHex},
		{"4a*2f", KindHex},
		{"* 2F", KindHex},
		{"STOP", KindText},
		{"ABC", KindText},
		{"", KindText},
		{"*", KindText},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			if got := Classify(tt.pattern); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestFindMatches(t *testing.T) {
	tests := []struct {
		name     string
		haystack string
		pattern  string
		kind     Kind
		want     []Range
	}{
		{
			name:     "bits sequential",
			haystack: "10101010",
			pattern:  "1010",
			kind:     KindBits,
			want:     []Range{{0, 4}, {4, 8}},
		},
		{
			name:     "bits non overlapping",
			haystack: "11111",
			pattern:  "111",
			kind:     KindBits,
			want:     []Range{{0, 3}},
		},
		{
			name:     "hex case insensitive",
			haystack: "4A 2F 4A 2F",
			pattern:  "4a2f",
			kind:     KindHex,
			want:     []Range{{0, 4}, {4, 8}},
		},
		{
			name:     "hex wildcard",
			haystack: "4A 00 2F 4A FF 2F",
			pattern:  "4A * 2F",
			kind:     KindHex,
			want:     []Range{{0, 6}, {6, 12}},
		},
		{
			name:     "hex skips unaligned match",
			haystack: "04 A2 F0",
			pattern:  "4A",
			kind:     KindHex,
			want:     nil,
		},
		{
			name:     "text",
			haystack: "STOP STOP",
			pattern:  "STOP",
			kind:     KindText,
			want:     []Range{{0, 4}, {5, 9}},
		},
		{
			name:     "text counts runes",
			haystack: "éAB",
			pattern:  "AB",
			kind:     KindText,
			want:     []Range{{1, 3}},
		},
		{
			name:     "empty bits pattern",
			haystack: "1010",
			pattern:  "",
			kind:     KindBits,
			want:     nil,
		},
		{
			name:     "empty text pattern",
			haystack: "abc",
			pattern:  "",
			kind:     KindText,
			want:     nil,
		},
		{
			name:     "invalid hex pattern",
			haystack: "4A 2F",
			pattern:  "ZZ",
			kind:     KindHex,
			want:     nil,
		},
		{
			name:     "pattern longer than haystack",
			haystack: "10",
			pattern:  "1010",
			kind:     KindBits,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMatches(tt.haystack, tt.pattern, tt.kind)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindMatches(%q, %q, %v) = %v, want %v", tt.haystack, tt.pattern, tt.kind, got, tt.want)
			}
		})
	}
}

func TestProjectToByteRange(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		kind Kind
		want ByteRange
	}{
		{"bits inside one byte", Range{1, 7}, KindBits, ByteRange{0, 0}},
		{"bits across bytes", Range{9, 17}, KindBits, ByteRange{1, 2}},
		{"hex two bytes", Range{2, 6}, KindHex, ByteRange{1, 2}},
		{"text identity", Range{3, 5}, KindText, ByteRange{3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectToByteRange(tt.r, tt.kind); got != tt.want {
				t.Errorf("ProjectToByteRange(%v, %v) = %v, want %v", tt.r, tt.kind, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if KindHex.String() != "hex" || KindBits.String() != "bits" || KindText.String() != "text" {
		t.Error("Kind.String() returned unexpected names")
	}
}
