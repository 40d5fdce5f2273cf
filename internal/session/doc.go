// Package session drives the serial link to the sniffer device.
//
// A Controller owns one capture session. On Start it opens the port, sends
// the line settings the device should sniff with, waits for the device to
// report READY_TO_SNIFF and then emits one frame per received line until it
// is stopped, the context is cancelled or the line goes quiet for longer
// than the inactivity timeout.
//
//	Idle -> SendingConfig -> AwaitingHandshake -> Listening -> Stopped
//
// In simulation mode no port is opened; random fixed length frames are
// produced on a timer instead and delivered through the same callback.
//
// The frame callback runs on the controller's goroutine. Stop is
// cooperative: the loop notices it at its next read timeout or timer tick.
// Time is read from an injected clockwork.Clock so tests can drive the
// handshake and inactivity timeouts.
package session
