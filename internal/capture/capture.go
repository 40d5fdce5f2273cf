package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/muurk/tramesniff/internal/logging"
)

// Record is one captured frame.
type Record struct {
	Time time.Time `cbor:"1,keyasint"`
	Bits string    `cbor:"2,keyasint"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Recorder appends records to a writer. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	enc   *cbor.Encoder
	clock clockwork.Clock
	count int
}

// NewRecorder writes to w, stamping records with clock. A nil clock uses
// the real one.
func NewRecorder(w io.Writer, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{enc: encMode.NewEncoder(w), clock: clock}
}

// Record appends bits stamped with the current time.
func (r *Recorder) Record(bits string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := Record{Time: r.clock.Now(), Bits: bits}
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of records written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// ReadAll decodes every record from r. A truncated final record is an
// error; the records before it are still returned.
func ReadAll(r io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(r)
	var out []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("failed to read capture record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
}

// ReplayOptions control playback.
type ReplayOptions struct {
	// Speed scales the recorded gaps between frames. Zero or less replays
	// without waiting.
	Speed float64
	Clock clockwork.Clock
}

// Replay decodes records from r and calls fn with each frame's bits,
// reproducing the recorded timing. It returns the number of frames played.
func Replay(ctx context.Context, r io.Reader, fn func(bits string), opts ReplayOptions) (int, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	dec := cbor.NewDecoder(r)
	var prev time.Time
	played := 0
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return played, fmt.Errorf("failed to read capture record %d: %w", played+1, err)
		}

		if opts.Speed > 0 && played > 0 {
			gap := time.Duration(float64(rec.Time.Sub(prev)) / opts.Speed)
			if gap > 0 {
				select {
				case <-ctx.Done():
					return played, ctx.Err()
				case <-clock.After(gap):
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return played, err
		}

		fn(rec.Bits)
		prev = rec.Time
		played++
	}

	logging.Debug("Replay finished", zap.Int("frames", played))
	return played, nil
}
