package session

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/muurk/tramesniff/internal/logging"
)

// FrameFunc receives every frame as a raw line, without its terminator. It
// is called on the controller goroutine.
type FrameFunc func(bits string)

// Option configures a Controller.
type Option func(*Controller)

// WithPortFactory replaces the function used to open the serial port.
func WithPortFactory(f PortFactory) Option {
	return func(c *Controller) {
		c.factory = f
	}
}

// WithClock replaces the clock used for timeouts and the simulation timer.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithRand sets the random source used by simulation mode.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) {
		c.rng = r
	}
}

// WithStateHook registers a function called on every state change, on the
// controller goroutine.
func WithStateHook(fn func(State)) Option {
	return func(c *Controller) {
		c.stateHook = fn
	}
}

// WithWarningHook registers a function called, on the controller goroutine,
// with problems the session survives, such as ErrHandshakeTimeout when the
// handshake is not strict.
func WithWarningHook(fn func(error)) Option {
	return func(c *Controller) {
		c.warningHook = fn
	}
}

// Controller runs one listening or simulation loop at a time.
type Controller struct {
	cfg       Config
	onFrame   FrameFunc
	factory   PortFactory
	clock     clockwork.Clock
	rng         *rand.Rand
	stateHook   func(State)
	warningHook func(error)

	state     atomic.Int32
	stop      atomic.Bool
	listening atomic.Bool
	frames    atomic.Int64

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
	err    error
}

// New creates an idle controller. onFrame may be nil.
func New(cfg Config, onFrame FrameFunc, opts ...Option) *Controller {
	c := &Controller{
		cfg:     cfg.withDefaults(),
		onFrame: onFrame,
		factory: DefaultPortFactory,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Config returns the effective configuration, defaults applied.
func (c *Controller) Config() Config {
	return c.cfg
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Listening reports whether a loop is active.
func (c *Controller) Listening() bool {
	return c.listening.Load()
}

// Frames returns the number of frames emitted by the current or last loop.
func (c *Controller) Frames() int64 {
	return c.frames.Load()
}

// Start launches the loop in the background. It fails with
// ErrAlreadyListening if a loop is already active.
func (c *Controller) Start(ctx context.Context) error {
	if !c.cfg.Simulate && c.cfg.Port == "" {
		return ErrNoPort
	}
	if !c.listening.CompareAndSwap(false, true) {
		return ErrAlreadyListening
	}

	c.mu.Lock()
	c.stop.Store(false)
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	c.err = nil
	stopCh, done := c.stopCh, c.done
	c.mu.Unlock()

	c.frames.Store(0)
	c.state.Store(int32(Idle))

	go c.run(ctx, stopCh, done)
	return nil
}

// Run starts the loop and blocks until it ends.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	return c.Wait()
}

// Stop asks the loop to end. It returns immediately.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stop.Store(true)
	if c.stopCh != nil {
		select {
		case <-c.stopCh:
		default:
			close(c.stopCh)
		}
	}
}

// Wait blocks until the current loop has ended and returns the error that
// ended it. Explicit stops and inactivity timeouts return nil.
func (c *Controller) Wait() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}

	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SendConfigOnly opens the port, sends the configuration lines and closes
// it again without waiting for the device.
func (c *Controller) SendConfigOnly(ctx context.Context) error {
	if c.cfg.Port == "" {
		return ErrNoPort
	}
	if !c.listening.CompareAndSwap(false, true) {
		return ErrAlreadyListening
	}
	defer c.listening.Store(false)

	port, err := c.open()
	if err != nil {
		return err
	}
	defer c.closePort(port)

	err = c.sendConfig(ctx, port, nil)
	if errors.Is(err, errStopped) {
		return ctx.Err()
	}
	return err
}

func (c *Controller) run(ctx context.Context, stopCh, done chan struct{}) {
	err := c.loop(ctx, stopCh)
	if errors.Is(err, errStopped) {
		err = nil
	}
	if err != nil {
		logging.Error("Session aborted",
			zap.String("port", c.cfg.Port),
			zap.Error(err),
		)
	}

	c.setState(Stopped)

	c.mu.Lock()
	c.err = err
	c.mu.Unlock()

	c.listening.Store(false)
	close(done)
}

func (c *Controller) loop(ctx context.Context, stopCh chan struct{}) error {
	if c.cfg.Simulate {
		return c.simulate(ctx, stopCh)
	}

	port, err := c.open()
	if err != nil {
		return err
	}
	defer c.closePort(port)

	if err := c.sendConfig(ctx, port, stopCh); err != nil {
		return err
	}

	r := newLineReader(port)
	if err := c.awaitHandshake(ctx, port, r); err != nil {
		return err
	}
	return c.listen(ctx, port, r)
}

func (c *Controller) open() (Port, error) {
	port, err := c.factory(c.cfg.Port, linkMode(c.cfg.LinkBaud))
	if err != nil {
		return nil, &SessionError{Phase: PhaseOpen, Port: c.cfg.Port, Err: err}
	}
	logging.Info("Port opened",
		zap.String("port", c.cfg.Port),
		zap.Int("baud", c.cfg.LinkBaud),
	)
	return port, nil
}

func (c *Controller) closePort(p Port) {
	if err := p.Close(); err != nil {
		logging.Warn("Failed to close port",
			zap.String("port", c.cfg.Port),
			zap.Error(err),
		)
	}
}

func (c *Controller) sendConfig(ctx context.Context, port Port, stopCh chan struct{}) error {
	c.setState(SendingConfig)

	lines := c.cfg.Sniff.Lines()
	for i, line := range lines {
		if c.stopRequested(ctx) {
			return errStopped
		}
		data := []byte(line + "\n")
		if _, err := port.Write(data); err != nil {
			return &SessionError{Phase: PhaseConfig, Port: c.cfg.Port, Err: err}
		}
		logging.LogRawBytes("Config line sent", data)

		if i < len(lines)-1 {
			if err := c.sleep(ctx, stopCh, c.cfg.ConfigLineDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Controller) awaitHandshake(ctx context.Context, port Port, r *lineReader) error {
	c.setState(AwaitingHandshake)
	if err := port.SetReadTimeout(handshakePoll); err != nil {
		return &SessionError{Phase: PhaseHandshake, Port: c.cfg.Port, Err: err}
	}

	start := c.clock.Now()
	for {
		for {
			line, ok := r.next()
			if !ok {
				break
			}
			if strings.Contains(line, ReadyToken) {
				logging.Info("Device ready",
					zap.String("port", c.cfg.Port),
					zap.Duration("after", c.clock.Since(start)),
				)
				return nil
			}
			logging.Debug("Ignoring line before handshake", zap.String("line", line))
		}

		if c.stopRequested(ctx) {
			return errStopped
		}
		if c.clock.Since(start) >= c.cfg.HandshakeTimeout {
			if c.cfg.StrictHandshake {
				return &SessionError{Phase: PhaseHandshake, Port: c.cfg.Port, Err: ErrHandshakeTimeout}
			}
			logging.Warn("Handshake timed out, listening anyway",
				zap.String("port", c.cfg.Port),
				zap.Duration("timeout", c.cfg.HandshakeTimeout),
			)
			if c.warningHook != nil {
				c.warningHook(ErrHandshakeTimeout)
			}
			return nil
		}

		if _, err := r.poll(); err != nil {
			return &SessionError{Phase: PhaseHandshake, Port: c.cfg.Port, Err: err}
		}
	}
}

func (c *Controller) listen(ctx context.Context, port Port, r *lineReader) error {
	c.setState(Listening)
	if err := port.SetReadTimeout(listenPoll); err != nil {
		return &SessionError{Phase: PhaseListen, Port: c.cfg.Port, Err: err}
	}

	lastActivity := c.clock.Now()
	for {
		for {
			line, ok := r.next()
			if !ok {
				break
			}
			c.emit(strings.TrimSpace(line))
		}

		if c.stopRequested(ctx) {
			return errStopped
		}
		if c.cfg.AutoStop && c.clock.Since(lastActivity) >= c.cfg.InactivityTimeout {
			logging.Info("No data received, stopping",
				zap.String("port", c.cfg.Port),
				zap.Duration("inactivity", c.cfg.InactivityTimeout),
			)
			return nil
		}

		got, err := r.poll()
		if got {
			lastActivity = c.clock.Now()
		}
		if err != nil {
			return &SessionError{Phase: PhaseListen, Port: c.cfg.Port, Err: err}
		}
	}
}

func (c *Controller) simulate(ctx context.Context, stopCh chan struct{}) error {
	c.setState(Listening)

	ticker := c.clock.NewTicker(c.cfg.SimulationPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		case <-ticker.Chan():
			if c.stopRequested(ctx) {
				return nil
			}
			c.emit(c.randomBits())
		}
	}
}

func (c *Controller) randomBits() string {
	b := make([]byte, c.cfg.SimulationBits)
	for i := range b {
		b[i] = '0' + byte(c.rng.Intn(2))
	}
	return string(b)
}

func (c *Controller) emit(line string) {
	if line == "" {
		return
	}
	seq := c.frames.Add(1)
	source := c.cfg.Port
	if c.cfg.Simulate {
		source = "simulation"
	}
	logging.LogFrame(source, int(seq), line)
	if c.onFrame != nil {
		c.onFrame(line)
	}
}

// sleep waits for d on the controller clock, returning errStopped early on
// Stop or context cancellation.
func (c *Controller) sleep(ctx context.Context, stopCh chan struct{}, d time.Duration) error {
	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errStopped
	case <-stopCh:
		return errStopped
	case <-timer.Chan():
		return nil
	}
}

func (c *Controller) stopRequested(ctx context.Context) bool {
	return c.stop.Load() || ctx.Err() != nil
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev == s {
		return
	}
	logging.LogStateChange(c.cfg.Port, prev.String(), s.String())
	if c.stateHook != nil {
		c.stateHook(s)
	}
}
