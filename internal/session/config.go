package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Protocol constants of the sniffer link.
const (
	// ReadyToken is the substring the device prints once it is configured.
	ReadyToken = "READY_TO_SNIFF"

	DefaultLinkBaud          = 115200
	DefaultInactivityTimeout = 10 * time.Second
	DefaultHandshakeTimeout  = 5 * time.Second
	DefaultConfigLineDelay   = 300 * time.Millisecond
	DefaultSimulationPeriod  = time.Second
	DefaultSimulationBits    = 40

	handshakePoll = 50 * time.Millisecond
	listenPoll    = 100 * time.Millisecond
)

// Parity of the sniffed line.
type Parity string

const (
	ParityNone Parity = "none"
	ParityEven Parity = "even"
	ParityOdd  Parity = "odd"
)

// ParseParity accepts none, even or odd in any case.
func ParseParity(s string) (Parity, error) {
	switch p := Parity(strings.ToLower(strings.TrimSpace(s))); p {
	case ParityNone, ParityEven, ParityOdd:
		return p, nil
	default:
		return "", fmt.Errorf("invalid parity %q (expected none, even or odd)", s)
	}
}

// PortConfig describes the line the device should sniff. It is sent to the
// device as text; the host link itself always runs 8N1 at Config.LinkBaud.
type PortConfig struct {
	BaudRate int    `json:"baudrate" yaml:"baudrate"`
	Parity   Parity `json:"parity" yaml:"parity"`
	DataBits int    `json:"databits" yaml:"databits"`
	StopBits int    `json:"stopbits" yaml:"stopbits"`
}

// DefaultPortConfig returns 9600 8N1.
func DefaultPortConfig() PortConfig {
	return PortConfig{
		BaudRate: 9600,
		Parity:   ParityNone,
		DataBits: 8,
		StopBits: 1,
	}
}

// Validate checks the values the device firmware accepts.
func (c PortConfig) Validate() error {
	var errs []error
	if c.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("baud rate must be positive, got %d", c.BaudRate))
	}
	if _, err := ParseParity(string(c.Parity)); err != nil {
		errs = append(errs, err)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		errs = append(errs, fmt.Errorf("data bits must be between 5 and 8, got %d", c.DataBits))
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		errs = append(errs, fmt.Errorf("stop bits must be 1 or 2, got %d", c.StopBits))
	}
	return errors.Join(errs...)
}

// Lines returns the configuration lines in the order they are sent, without
// line terminators.
func (c PortConfig) Lines() []string {
	return []string{
		"baudrate=" + strconv.Itoa(c.BaudRate),
		"parity=" + string(c.Parity),
		"databits=" + strconv.Itoa(c.DataBits),
		"stopbits=" + strconv.Itoa(c.StopBits),
	}
}

// BitDuration returns how long one bit lasts on the sniffed line, or zero
// when the baud rate is unset.
func (c PortConfig) BitDuration() time.Duration {
	if c.BaudRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.BaudRate)
}

// String returns a short form like "9600 8N1".
func (c PortConfig) String() string {
	p := "N"
	switch c.Parity {
	case ParityEven:
		p = "E"
	case ParityOdd:
		p = "O"
	}
	return fmt.Sprintf("%d %d%s%d", c.BaudRate, c.DataBits, p, c.StopBits)
}

// Config holds everything a Controller needs for one session. Zero
// durations and counts are replaced by their defaults.
type Config struct {
	Port     string     // serial device path, unused in simulation
	LinkBaud int        // host link speed
	Sniff    PortConfig // settings sent to the device

	AutoStop          bool          // stop after InactivityTimeout without data
	InactivityTimeout time.Duration // quiet period before auto stop
	HandshakeTimeout  time.Duration // how long to wait for ReadyToken
	StrictHandshake   bool          // abort instead of listening when the handshake times out
	ConfigLineDelay   time.Duration // pause between configuration lines

	Simulate         bool
	SimulationPeriod time.Duration
	SimulationBits   int
}

func (c Config) withDefaults() Config {
	if c.LinkBaud == 0 {
		c.LinkBaud = DefaultLinkBaud
	}
	if c.InactivityTimeout == 0 {
		c.InactivityTimeout = DefaultInactivityTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.ConfigLineDelay == 0 {
		c.ConfigLineDelay = DefaultConfigLineDelay
	}
	if c.SimulationPeriod == 0 {
		c.SimulationPeriod = DefaultSimulationPeriod
	}
	if c.SimulationBits == 0 {
		c.SimulationBits = DefaultSimulationBits
	}
	if c.Sniff == (PortConfig{}) {
		c.Sniff = DefaultPortConfig()
	}
	return c
}
