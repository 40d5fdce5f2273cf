package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/tramesniff/internal/codec"
)

var sample = []codec.Entry{
	{Bits: "0100101000101111", Hex: "4A 2F", Text: "J/"},
	{Bits: "00100010", Hex: "22", Text: `"`},
	{Bits: "0101110000101100", Hex: "5C 2C", Text: `\,`},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample[:1]); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	want := "bits,hex,text\n0100101000101111,4A 2F,J/\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", buf.String(), want)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if buf.String() != "bits,hex,text\n" {
		t.Errorf("WriteCSV(nil) = %q, want only the header", buf.String())
	}
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(got) != len(sample) {
		t.Fatalf("ReadCSV() returned %d entries, want %d", len(got), len(sample))
	}
	for i := range sample {
		if got[i] != sample[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], sample[i])
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sample); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "[") {
		t.Errorf("WriteJSON() should produce an array, got %q", out)
	}
	if !strings.Contains(out, `"text": "\""`) {
		t.Errorf("WriteJSON() should escape quotes, got %q", out)
	}
	if !strings.Contains(out, `"text": "\\,"`) {
		t.Errorf("WriteJSON() should escape backslashes, got %q", out)
	}

	var decoded []map[string]string
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded[0]["hex"] != "4A 2F" {
		t.Errorf("decoded[0][hex] = %q, want %q", decoded[0]["hex"], "4A 2F")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"JSON", FormatJSON, false},
		{"", "", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToFileInfersFormat(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "capture.JSON")
	if err := ToFile(jsonPath, "", sample); err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !json.Valid(data) {
		t.Errorf("%s should contain JSON", jsonPath)
	}

	csvPath := filepath.Join(dir, "capture.txt")
	if err := ToFile(csvPath, "", sample); err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}
	data, err = os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "bits,hex,text\n") {
		t.Errorf("%s should start with the CSV header, got %q", csvPath, data)
	}

	if err := ToFile(filepath.Join(dir, "missing", "x.csv"), FormatCSV, sample); err == nil {
		t.Error("ToFile() into a missing directory should fail")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sample); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if len(got) != len(sample) {
		t.Fatalf("ReadJSON() returned %d entries, want %d", len(got), len(sample))
	}
	for i := range sample {
		if got[i] != sample[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], sample[i])
		}
	}
}

func TestReadJSONInvalid(t *testing.T) {
	if _, err := ReadJSON(strings.NewReader(`{"bits":"01"}`)); err == nil {
		t.Error("ReadJSON(object) error = nil, want error")
	}
}
