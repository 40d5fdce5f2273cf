// Package discovery advertises running frame feeds over mDNS and finds
// them from other machines.
//
// A sniffer started with the feed enabled registers itself as a
// "_tramesniff._tcp" service. TXT records carry the serial port being
// sniffed, the line settings and the WebSocket path, so a viewer can pick a
// feed without connecting to each one.
//
// # Usage Example
//
//	// Advertise a feed on port 8765
//	ad, err := discovery.Advertise("bench-1", 8765, discovery.FeedInfo{
//	    SerialPort: "/dev/ttyUSB0",
//	    Sniff:      "9600 8N1",
//	})
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
//
//	// Find feeds for 3 seconds
//	feeds, err := discovery.NewScanner().Scan(ctx)
//	for _, f := range feeds {
//	    fmt.Println(f.Instance, f.URL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Viewers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
