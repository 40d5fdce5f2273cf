package session

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port is the subset of serial.Port the controller uses.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// PortFactory opens a port. Tests replace it with an in-memory port.
type PortFactory func(path string, mode *serial.Mode) (Port, error)

// DefaultPortFactory opens a real serial port.
func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

func linkMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPorts enumerates serial ports, with USB details where the platform
// provides them.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil && len(details) > 0 {
		out := make([]PortInfo, 0, len(details))
		for _, d := range details {
			out = append(out, PortInfo{
				Name:         d.Name,
				IsUSB:        d.IsUSB,
				VID:          d.VID,
				PID:          d.PID,
				SerialNumber: d.SerialNumber,
				Product:      d.Product,
			})
		}
		return out, nil
	}

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	out := make([]PortInfo, 0, len(names))
	for _, n := range names {
		out = append(out, PortInfo{Name: n})
	}
	return out, nil
}

// lineReader splits the byte stream into lines across reads. Complete lines
// wait in queue until a phase consumes them, so bytes that arrive in the
// same read as the handshake line are not lost.
type lineReader struct {
	port  Port
	buf   []byte
	line  []byte
	queue []string
}

func newLineReader(p Port) *lineReader {
	return &lineReader{port: p, buf: make([]byte, 256)}
}

// poll performs one read, bounded by the port read timeout. It reports
// whether any byte arrived.
func (r *lineReader) poll() (bool, error) {
	n, err := r.port.Read(r.buf)
	for _, b := range r.buf[:n] {
		if b == '\n' {
			r.queue = append(r.queue, string(bytes.TrimRight(r.line, "\r")))
			r.line = r.line[:0]
			continue
		}
		r.line = append(r.line, b)
	}
	if err != nil {
		return n > 0, err
	}
	return n > 0, nil
}

func (r *lineReader) next() (string, bool) {
	if len(r.queue) == 0 {
		return "", false
	}
	line := r.queue[0]
	r.queue = r.queue[1:]
	return line, true
}
