package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/muurk/tramesniff/internal/codec"
	"github.com/muurk/tramesniff/internal/logging"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv or json in any case. An empty string is returned
// as is so callers can fall back to the file extension.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (expected csv or json)", s)
	}
}

// FormatFromPath infers the format from the file extension. Anything that
// is not .json is written as CSV.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// record is the on-disk shape shared by both formats.
type record struct {
	Bits string `csv:"bits" json:"bits"`
	Hex  string `csv:"hex" json:"hex"`
	Text string `csv:"text" json:"text"`
}

func toRecords(entries []codec.Entry) []*record {
	out := make([]*record, 0, len(entries))
	for _, e := range entries {
		out = append(out, &record{Bits: e.Bits, Hex: e.Hex, Text: e.Text})
	}
	return out
}

// WriteCSV writes a bits,hex,text header followed by one row per entry.
func WriteCSV(w io.Writer, entries []codec.Entry) error {
	records := toRecords(entries)
	if len(records) == 0 {
		// gocsv derives the header from the first element.
		_, err := io.WriteString(w, "bits,hex,text\n")
		return err
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]codec.Entry, error) {
	var records []*record
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	out := make([]codec.Entry, 0, len(records))
	for _, rec := range records {
		out = append(out, codec.Entry{Bits: rec.Bits, Hex: rec.Hex, Text: rec.Text})
	}
	return out, nil
}

// WriteJSON writes entries as an indented JSON array. HTML characters are
// kept as is.
func WriteJSON(w io.Writer, entries []codec.Entry) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toRecords(entries)); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

// ReadJSON parses a JSON array of bits/hex/text objects, as written by
// WriteJSON or served by a feed's /frames endpoint.
func ReadJSON(r io.Reader) ([]codec.Entry, error) {
	var records []*record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to read json: %w", err)
	}
	out := make([]codec.Entry, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		out = append(out, codec.Entry{Bits: rec.Bits, Hex: rec.Hex, Text: rec.Text})
	}
	return out, nil
}

// Write encodes entries in format f.
func Write(w io.Writer, f Format, entries []codec.Entry) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, entries)
	case FormatCSV:
		return WriteCSV(w, entries)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// ToFile creates path and writes entries to it. An empty format is inferred
// from the extension.
func ToFile(path string, f Format, entries []codec.Entry) (err error) {
	if f == "" {
		f = FormatFromPath(path)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close export file: %w", cerr)
		}
	}()

	if err := Write(file, f, entries); err != nil {
		return err
	}

	logging.Info("Frames exported",
		zap.String("path", path),
		zap.String("format", string(f)),
		zap.Int("frames", len(entries)),
	)
	return nil
}
