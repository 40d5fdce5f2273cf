package session

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.bug.st/serial"
	"go.uber.org/goleak"

	"github.com/muurk/tramesniff/internal/codec"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestControllerReadyHandshake(t *testing.T) {
	h := newHarness(t, Config{})
	var states []State
	h.ctrl.stateHook = func(s State) { states = append(states, s) }

	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !h.ctrl.Listening() {
		t.Error("Listening() should be true right after Start()")
	}

	h.driveConfig(t)
	h.port.feed("booting\nREADY_TO_SNIFF\n0101\n")
	h.waitForState(t, Listening)

	if got := h.nextFrame(t); got != "0101" {
		t.Errorf("first frame = %q, want %q", got, "0101")
	}

	h.port.feed("11")
	h.port.feed("00\r\n")
	if got := h.nextFrame(t); got != "1100" {
		t.Errorf("second frame = %q, want %q", got, "1100")
	}

	h.stopAndWait(t)

	wantConfig := "baudrate=9600\nparity=none\ndatabits=8\nstopbits=1\n"
	if got := h.port.writtenString(); got != wantConfig {
		t.Errorf("written = %q, want %q", got, wantConfig)
	}
	if !h.port.isClosed() {
		t.Error("port should be closed after stop")
	}
	if h.ctrl.State() != Stopped {
		t.Errorf("State() = %v, want Stopped", h.ctrl.State())
	}
	if h.ctrl.Listening() {
		t.Error("Listening() should be false after stop")
	}
	if h.ctrl.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", h.ctrl.Frames())
	}

	wantStates := []State{SendingConfig, AwaitingHandshake, Listening, Stopped}
	if len(states) != len(wantStates) {
		t.Fatalf("states = %v, want %v", states, wantStates)
	}
	for i := range wantStates {
		if states[i] != wantStates[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], wantStates[i])
		}
	}
}

func TestControllerHandshakeTimeoutProceeds(t *testing.T) {
	warnings := make(chan error, 1)
	h := newHarness(t, Config{}, WithWarningHook(func(err error) { warnings <- err }))
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.driveConfig(t)
	h.waitForState(t, AwaitingHandshake)
	time.Sleep(10 * time.Millisecond)

	h.clock.Advance(4 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if h.ctrl.State() != AwaitingHandshake {
		t.Fatalf("State() = %v before the handshake window closed", h.ctrl.State())
	}

	h.clock.Advance(time.Second)
	h.waitForState(t, Listening)
	select {
	case err := <-warnings:
		if !errors.Is(err, ErrHandshakeTimeout) {
			t.Errorf("warning = %v, want ErrHandshakeTimeout", err)
		}
	default:
		t.Error("no warning reported for the missed handshake")
	}

	h.port.feed("1\n")
	if got := h.nextFrame(t); got != "1" {
		t.Errorf("frame = %q, want %q", got, "1")
	}
	h.stopAndWait(t)
}

func TestControllerStrictHandshake(t *testing.T) {
	h := newHarness(t, Config{StrictHandshake: true})
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.driveConfig(t)
	h.waitForState(t, AwaitingHandshake)
	time.Sleep(10 * time.Millisecond)
	h.clock.Advance(DefaultHandshakeTimeout)

	err := h.ctrl.Wait()
	var sessErr *SessionError
	if !errors.As(err, &sessErr) {
		t.Fatalf("Wait() error = %v, want *SessionError", err)
	}
	if sessErr.Phase != PhaseHandshake {
		t.Errorf("Phase = %v, want %v", sessErr.Phase, PhaseHandshake)
	}
	if !errors.Is(err, ErrHandshakeTimeout) {
		t.Errorf("Wait() error = %v, want ErrHandshakeTimeout", err)
	}
	if !h.port.isClosed() {
		t.Error("port should be closed after abort")
	}
}

func TestControllerInactivityTimeout(t *testing.T) {
	h := newHarness(t, Config{AutoStop: true})
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.driveConfig(t)
	h.port.feed("READY_TO_SNIFF\n")
	h.waitForState(t, Listening)

	h.clock.Advance(9 * time.Second)
	h.port.feed("01\n")
	if got := h.nextFrame(t); got != "01" {
		t.Fatalf("frame = %q, want %q", got, "01")
	}

	// Activity above reset the window.
	h.clock.Advance(9 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if !h.ctrl.Listening() {
		t.Fatal("controller stopped before the inactivity window elapsed")
	}

	h.clock.Advance(time.Second)
	if err := h.ctrl.Wait(); err != nil {
		t.Errorf("Wait() error = %v, want nil for inactivity", err)
	}
	if h.ctrl.State() != Stopped {
		t.Errorf("State() = %v, want Stopped", h.ctrl.State())
	}
}

func TestControllerNoAutoStop(t *testing.T) {
	h := newHarness(t, Config{AutoStop: false})
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.driveConfig(t)
	h.port.feed("READY_TO_SNIFF\n")
	h.waitForState(t, Listening)

	h.clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	if h.ctrl.State() != Listening {
		t.Errorf("State() = %v, want Listening", h.ctrl.State())
	}
	h.stopAndWait(t)
}

func TestControllerAlreadyListening(t *testing.T) {
	h := newHarness(t, Config{Simulate: true})
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := h.ctrl.Start(context.Background()); !errors.Is(err, ErrAlreadyListening) {
		t.Errorf("second Start() error = %v, want ErrAlreadyListening", err)
	}
	h.stopAndWait(t)

	// A stopped controller can start a fresh session.
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	h.stopAndWait(t)
}

func TestControllerNoPort(t *testing.T) {
	c := New(Config{}, nil)
	if err := c.Start(context.Background()); !errors.Is(err, ErrNoPort) {
		t.Errorf("Start() error = %v, want ErrNoPort", err)
	}
	if c.Listening() {
		t.Error("Listening() should stay false")
	}
}

func TestControllerTransportErrors(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		openErr := errors.New("permission denied")
		c := New(Config{Port: "/dev/ttyX"}, nil,
			WithPortFactory(func(string, *serial.Mode) (Port, error) { return nil, openErr }),
			WithClock(clockwork.NewFakeClock()),
		)
		err := c.Run(context.Background())
		var sessErr *SessionError
		if !errors.As(err, &sessErr) || sessErr.Phase != PhaseOpen || !errors.Is(err, openErr) {
			t.Errorf("Run() error = %v, want open SessionError", err)
		}
		if c.State() != Stopped {
			t.Errorf("State() = %v, want Stopped", c.State())
		}
	})

	t.Run("write", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.port.writeErr = errors.New("write failed")
		err := h.ctrl.Run(context.Background())
		var sessErr *SessionError
		if !errors.As(err, &sessErr) || sessErr.Phase != PhaseConfig {
			t.Errorf("Run() error = %v, want config SessionError", err)
		}
		if !h.port.isClosed() {
			t.Error("port should be closed")
		}
	})

	t.Run("read while listening", func(t *testing.T) {
		h := newHarness(t, Config{})
		if err := h.ctrl.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		h.driveConfig(t)
		h.port.feed("READY_TO_SNIFF\n")
		h.waitForState(t, Listening)

		readErr := errors.New("device unplugged")
		h.port.setReadErr(readErr)
		err := h.ctrl.Wait()
		var sessErr *SessionError
		if !errors.As(err, &sessErr) || sessErr.Phase != PhaseListen || !errors.Is(err, readErr) {
			t.Errorf("Wait() error = %v, want listen SessionError", err)
		}
		if h.ctrl.Listening() {
			t.Error("Listening() should be false after abort")
		}
	})
}

func TestControllerContextCancel(t *testing.T) {
	h := newHarness(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	if err := h.ctrl.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.driveConfig(t)
	h.waitForState(t, AwaitingHandshake)

	cancel()
	if err := h.ctrl.Wait(); err != nil {
		t.Errorf("Wait() error = %v, want nil", err)
	}
}

func TestControllerSimulation(t *testing.T) {
	h := newHarness(t, Config{Simulate: true}, WithRand(rand.New(rand.NewSource(1))))
	same := rand.New(rand.NewSource(1))

	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.waitForState(t, Listening)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("simulation timer not armed: %v", err)
		}
		h.clock.Advance(DefaultSimulationPeriod)

		frame := h.nextFrame(t)
		if len(frame) != DefaultSimulationBits {
			t.Errorf("frame %d length = %d, want %d", i, len(frame), DefaultSimulationBits)
		}
		if !codec.IsBits(frame) {
			t.Errorf("frame %d = %q, want only '0' and '1'", i, frame)
		}
		want := make([]byte, DefaultSimulationBits)
		for j := range want {
			want[j] = '0' + byte(same.Intn(2))
		}
		if frame != string(want) {
			t.Errorf("frame %d = %q, want %q from the seeded source", i, frame, want)
		}
	}

	start := time.Now()
	h.stopAndWait(t)
	if d := time.Since(start); d > 500*time.Millisecond {
		t.Errorf("stop took %v", d)
	}
	if h.port.writtenString() != "" {
		t.Error("simulation must not touch the port")
	}
}

func TestSendConfigOnly(t *testing.T) {
	h := newHarness(t, Config{Sniff: PortConfig{BaudRate: 19200, Parity: ParityEven, DataBits: 7, StopBits: 2}})

	errc := make(chan error, 1)
	go func() { errc <- h.ctrl.SendConfigOnly(context.Background()) }()
	h.driveConfig(t)

	if err := <-errc; err != nil {
		t.Fatalf("SendConfigOnly() error = %v", err)
	}
	want := "baudrate=19200\nparity=even\ndatabits=7\nstopbits=2\n"
	if got := h.port.writtenString(); got != want {
		t.Errorf("written = %q, want %q", got, want)
	}
	if !h.port.isClosed() {
		t.Error("port should be closed")
	}
	if h.ctrl.Listening() {
		t.Error("Listening() should be false afterwards")
	}
}
