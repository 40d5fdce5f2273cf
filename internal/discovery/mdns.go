package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/tramesniff/internal/logging"
)

const (
	// ServiceType is the mDNS service type of frame feeds
	ServiceType = "_tramesniff._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for feed discovery
	DefaultScanTimeout = 3 * time.Second
)

// FeedInfo is what a feed advertises about itself.
type FeedInfo struct {
	Version    string
	SerialPort string
	Sniff      string
	Path       string
	Session    string
}

// txt renders the info as TXT records, skipping empty values.
func (i FeedInfo) txt() []string {
	path := i.Path
	if path == "" {
		path = DefaultPath
	}
	var out []string
	for _, kv := range [][2]string{
		{TxtVersion, i.Version},
		{TxtSerialPort, i.SerialPort},
		{TxtSniff, i.Sniff},
		{TxtPath, path},
		{TxtSession, i.Session},
	} {
		if kv[1] != "" {
			out = append(out, kv[0]+"="+kv[1])
		}
	}
	return out
}

// Advertisement is a registered feed. Shutdown withdraws it.
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers a feed listening on port under the given instance
// name.
func Advertise(instance string, port int, info FeedInfo) (*Advertisement, error) {
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, info.txt(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Feed advertised",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}

// Scanner handles mDNS feed discovery
type Scanner struct {
	// Timeout is the maximum time to wait for feeds
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses until the timeout or ctx ends and returns every feed seen,
// one per instance.
func (s *Scanner) Scan(ctx context.Context) ([]*Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		feeds []*Feed
		seen  = make(map[string]bool)
	)
	collected := make(chan struct{})

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(collected)
		for entry := range entries {
			feed := s.parseServiceEntry(entry)
			if feed == nil {
				continue
			}
			mu.Lock()
			if !seen[feed.Instance] {
				seen[feed.Instance] = true
				feeds = append(feeds, feed)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the browse context ends.
	select {
	case <-collected:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return feeds, nil
}

// WaitForFeed returns the first feed advertised as instance.
func (s *Scanner) WaitForFeed(ctx context.Context, instance string) (*Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Feed, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			feed := s.parseServiceEntry(entry)
			if feed != nil && feed.Instance == instance {
				select {
				case found <- feed:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case feed := <-found:
		return feed, nil
	case <-ctx.Done():
		select {
		case feed := <-found:
			return feed, nil
		default:
		}
		return nil, fmt.Errorf("feed %q not found within timeout", instance)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Feed
// Returns nil if the entry has no instance, address or port
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Feed {
	if entry.Instance == "" || entry.Port == 0 {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}

	// Fallback to IPv6 if no IPv4
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return nil
	}

	// Parse TXT records into metadata
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		// TXT records are in "key=value" format
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			// Key without value
			metadata[parts[0]] = ""
		}
	}

	return &Feed{
		Instance:     entry.Instance,
		Host:         entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
