// Package capture records raw frames to a CBOR stream and plays them back.
//
// A capture file is a plain sequence of CBOR maps, one per frame, so a
// partially written file stays readable up to its last complete record.
// Each record holds the bits as received and their arrival time, which
// Replay uses to reproduce the original pacing.
package capture
