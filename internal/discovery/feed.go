package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// TXT record keys.
const (
	TxtVersion    = "version"
	TxtSerialPort = "serial"
	TxtSniff      = "sniff"
	TxtPath       = "path"
	TxtSession    = "session"
)

// DefaultPath is the WebSocket path assumed when a feed does not advertise one.
const DefaultPath = "/ws"

// Feed represents a discovered frame feed on the network
type Feed struct {
	// Instance is the advertised instance name (e.g., "bench-1")
	Instance string

	// Host is the mDNS hostname of the machine running the feed
	Host string

	// IP is the address, IPv4 preferred
	IP string

	// Port is the feed HTTP port
	Port int

	// Metadata contains the TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the feed was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the feed
func (f *Feed) String() string {
	return fmt.Sprintf("Feed %s (%s) at %s", f.Instance, f.Host, net.JoinHostPort(f.IP, strconv.Itoa(f.Port)))
}

// URL returns the WebSocket URL of the feed.
func (f *Feed) URL() string {
	path := f.GetMetadata(TxtPath)
	if path == "" {
		path = DefaultPath
	}
	return "ws://" + net.JoinHostPort(f.IP, strconv.Itoa(f.Port)) + path
}

// FramesURL returns the URL of the frame history endpoint.
func (f *Feed) FramesURL() string {
	return "http://" + net.JoinHostPort(f.IP, strconv.Itoa(f.Port)) + "/frames"
}

// Session returns the feed server's session id, if advertised.
func (f *Feed) Session() string {
	return f.GetMetadata(TxtSession)
}

// SerialPort returns the sniffed serial device, if advertised.
func (f *Feed) SerialPort() string {
	return f.GetMetadata(TxtSerialPort)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (f *Feed) GetMetadata(key string) string {
	if f.Metadata == nil {
		return ""
	}
	return f.Metadata[key]
}
