package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.bug.st/serial"
)

// mockPort is an in-memory Port. Reads return queued chunks or time out
// after a millisecond of real time, like a serial port with a short read
// timeout.
type mockPort struct {
	mu       sync.Mutex
	chunks   chan []byte
	pending  []byte
	written  bytes.Buffer
	closed   bool
	readErr  error
	writeErr error
	timeouts []time.Duration
}

func newMockPort() *mockPort {
	return &mockPort{chunks: make(chan []byte, 16)}
}

func (p *mockPort) feed(s string) {
	p.chunks <- []byte(s)
}

func (p *mockPort) setReadErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

func (p *mockPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, errors.New("port closed")
	}
	if len(p.pending) > 0 {
		n := copy(b, p.pending)
		p.pending = p.pending[n:]
		p.mu.Unlock()
		return n, nil
	}
	if p.readErr != nil {
		err := p.readErr
		p.mu.Unlock()
		return 0, err
	}
	p.mu.Unlock()

	select {
	case data := <-p.chunks:
		n := copy(b, data)
		if n < len(data) {
			p.mu.Lock()
			p.pending = append(p.pending, data[n:]...)
			p.mu.Unlock()
		}
		return n, nil
	case <-time.After(time.Millisecond):
		return 0, nil
	}
}

func (p *mockPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

func (p *mockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *mockPort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeouts = append(p.timeouts, t)
	return nil
}

func (p *mockPort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *mockPort) writtenString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func factoryFor(p *mockPort) PortFactory {
	return func(path string, mode *serial.Mode) (Port, error) {
		return p, nil
	}
}

// harness wires a controller to a mock port, a fake clock and a frame
// channel.
type harness struct {
	ctrl   *Controller
	port   *mockPort
	clock  *clockwork.FakeClock
	frames chan string
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		port:   newMockPort(),
		clock:  clockwork.NewFakeClock(),
		frames: make(chan string, 32),
	}
	if cfg.Port == "" && !cfg.Simulate {
		cfg.Port = "/dev/ttyMOCK0"
	}
	h.ctrl = New(cfg, func(bits string) { h.frames <- bits },
		append([]Option{WithPortFactory(factoryFor(h.port)), WithClock(h.clock)}, opts...)...,
	)
	return h
}

// driveConfig advances the fake clock through the pauses between the four
// configuration lines.
func (h *harness) driveConfig(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("config line %d: controller never waited: %v", i+1, err)
		}
		h.clock.Advance(DefaultConfigLineDelay)
	}
}

func (h *harness) waitForState(t *testing.T, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ctrl.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("State() = %v, want %v", h.ctrl.State(), want)
}

func (h *harness) nextFrame(t *testing.T) string {
	t.Helper()
	select {
	case f := <-h.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return ""
	}
}

func (h *harness) stopAndWait(t *testing.T) {
	t.Helper()
	h.ctrl.Stop()
	if err := h.ctrl.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
