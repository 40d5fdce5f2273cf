package discovery

import "testing"

func TestFeed_String(t *testing.T) {
	feed := &Feed{
		Instance: "bench-1",
		Host:     "lab.local.",
		IP:       "192.168.4.16",
		Port:     8765,
	}

	expected := "Feed bench-1 (lab.local.) at 192.168.4.16:8765"
	if feed.String() != expected {
		t.Errorf("Feed.String() = %v, want %v", feed.String(), expected)
	}
}

func TestFeed_URL(t *testing.T) {
	tests := []struct {
		name     string
		feed     *Feed
		expected string
	}{
		{
			name:     "default path",
			feed:     &Feed{IP: "192.168.4.16", Port: 8765},
			expected: "ws://192.168.4.16:8765/ws",
		},
		{
			name:     "advertised path",
			feed:     &Feed{IP: "10.0.0.5", Port: 9000, Metadata: map[string]string{"path": "/stream"}},
			expected: "ws://10.0.0.5:9000/stream",
		},
		{
			name:     "IPv6",
			feed:     &Feed{IP: "fe80::1", Port: 8765},
			expected: "ws://[fe80::1]:8765/ws",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.feed.URL(); got != tt.expected {
				t.Errorf("Feed.URL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFeed_FramesURL(t *testing.T) {
	feed := &Feed{IP: "10.0.0.5", Port: 9000}
	if got := feed.FramesURL(); got != "http://10.0.0.5:9000/frames" {
		t.Errorf("Feed.FramesURL() = %v", got)
	}
}

func TestFeed_GetMetadata(t *testing.T) {
	feed := &Feed{}
	if got := feed.GetMetadata("serial"); got != "" {
		t.Errorf("GetMetadata() on nil map = %q, want empty", got)
	}

	feed.Metadata = map[string]string{"serial": "/dev/ttyACM0"}
	if got := feed.GetMetadata("serial"); got != "/dev/ttyACM0" {
		t.Errorf("GetMetadata() = %q, want %q", got, "/dev/ttyACM0")
	}
	if got := feed.GetMetadata("missing"); got != "" {
		t.Errorf("GetMetadata(missing) = %q, want empty", got)
	}
}
