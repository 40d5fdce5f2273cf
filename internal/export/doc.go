// Package export writes captured frames to CSV or JSON files and reads
// them back.
//
// Both formats carry one record per frame with its bits, hex and decoded
// text. The format is picked from the file extension unless given:
//
//	err := export.ToFile("frames.csv", export.FormatFromPath("frames.csv"), entries)
//
// ReadCSV and ReadJSON return the entries as written, so an export can be
// replayed through the same pipeline as a live capture.
package export
