package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)
	h := RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		remote string
		want   int
	}{
		{"10.0.0.1:1000", http.StatusOK},
		{"10.0.0.1:1001", http.StatusOK},
		{"10.0.0.1:1002", http.StatusTooManyRequests},
		{"10.0.0.2:1000", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/frames", nil)
		req.RemoteAddr = tt.remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("request from %s status = %d, want %d", tt.remote, rec.Code, tt.want)
		}
	}
	if limiter.Len() != 2 {
		t.Errorf("Len() = %d, want 2", limiter.Len())
	}
}

func TestIPRateLimiterCleanup(t *testing.T) {
	limiter := NewIPRateLimiter(RequestsPerMinute, BurstSize)
	first := limiter.GetLimiter("10.0.0.1")
	if limiter.GetLimiter("10.0.0.1") != first {
		t.Error("GetLimiter() should reuse the limiter of a known IP")
	}

	limiter.Cleanup(time.Hour)
	if limiter.Len() != 1 {
		t.Errorf("Cleanup(1h) Len() = %d, want 1", limiter.Len())
	}
	time.Sleep(5 * time.Millisecond)
	limiter.Cleanup(time.Millisecond)
	if limiter.Len() != 0 {
		t.Errorf("Cleanup(1ms) Len() = %d, want 0", limiter.Len())
	}
}

func TestRemoteIP(t *testing.T) {
	tests := map[string]string{
		"192.168.1.5:4242": "192.168.1.5",
		"[::1]:8765":       "::1",
		"not-an-addr":      "not-an-addr",
	}
	for in, want := range tests {
		if got := remoteIP(in); got != want {
			t.Errorf("remoteIP(%q) = %q, want %q", in, got, want)
		}
	}
}
