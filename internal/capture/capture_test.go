package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func record(t *testing.T, clock *clockwork.FakeClock, frames []string, gap time.Duration) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	rec := NewRecorder(&buf, clock)
	for _, f := range frames {
		if err := rec.Record(f); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		clock.Advance(gap)
	}
	if rec.Count() != len(frames) {
		t.Errorf("Count() = %d, want %d", rec.Count(), len(frames))
	}
	return &buf
}

func TestReadAll(t *testing.T) {
	start := time.Date(2025, 6, 2, 12, 0, 0, 500, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	buf := record(t, clock, []string{"0101", "11110000"}, 250*time.Millisecond)

	got, err := ReadAll(buf)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadAll() returned %d records, want 2", len(got))
	}
	if got[0].Bits != "0101" || got[1].Bits != "11110000" {
		t.Errorf("bits = %q, %q", got[0].Bits, got[1].Bits)
	}
	if !got[0].Time.Equal(start) {
		t.Errorf("got[0].Time = %v, want %v", got[0].Time, start)
	}
	if d := got[1].Time.Sub(got[0].Time); d != 250*time.Millisecond {
		t.Errorf("gap = %v, want 250ms", d)
	}
}

func TestReadAllTruncated(t *testing.T) {
	buf := record(t, clockwork.NewFakeClock(), []string{"01", "10"}, time.Second)
	data := buf.Bytes()

	got, err := ReadAll(bytes.NewReader(data[:len(data)-2]))
	if err == nil {
		t.Fatal("ReadAll() on a truncated stream should fail")
	}
	if len(got) != 1 || got[0].Bits != "01" {
		t.Errorf("ReadAll() = %+v, want the first complete record", got)
	}
}

func TestReplayImmediate(t *testing.T) {
	buf := record(t, clockwork.NewFakeClock(), []string{"1", "0", "1"}, time.Hour)

	var got []string
	n, err := Replay(context.Background(), buf, func(bits string) { got = append(got, bits) }, ReplayOptions{})
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if n != 3 || len(got) != 3 {
		t.Errorf("Replay() played %d frames, callback saw %d, want 3", n, len(got))
	}
}

func TestReplayTiming(t *testing.T) {
	buf := record(t, clockwork.NewFakeClock(), []string{"1", "0"}, 2*time.Second)

	clock := clockwork.NewFakeClock()
	frames := make(chan string, 2)
	done := make(chan error, 1)
	go func() {
		_, err := Replay(context.Background(), buf, func(bits string) { frames <- bits },
			ReplayOptions{Speed: 2, Clock: clock})
		done <- err
	}()

	if f := <-frames; f != "1" {
		t.Fatalf("first frame = %q, want %q", f, "1")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("replay never waited: %v", err)
	}
	clock.Advance(999 * time.Millisecond)
	select {
	case f := <-frames:
		t.Fatalf("frame %q played before the scaled gap", f)
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Millisecond)
	if f := <-frames; f != "0" {
		t.Errorf("second frame = %q, want %q", f, "0")
	}
	if err := <-done; err != nil {
		t.Errorf("Replay() error = %v", err)
	}
}

func TestReplayCancelled(t *testing.T) {
	buf := record(t, clockwork.NewFakeClock(), []string{"1", "0"}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	n, err := Replay(ctx, buf, func(string) { cancel() }, ReplayOptions{Speed: 1, Clock: clockwork.NewFakeClock()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Replay() error = %v, want context.Canceled", err)
	}
	if n != 1 {
		t.Errorf("Replay() played %d frames, want 1", n)
	}
}
