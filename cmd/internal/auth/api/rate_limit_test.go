package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_BurstThenBlock(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	rl := newIPRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	ok, retry := rl.allow("10.0.0.1")
	if ok {
		t.Fatalf("expected third request to be limited")
	}
	if retry != time.Second {
		t.Fatalf("expected retry=1s, got %v", retry)
	}

	// Other clients have their own bucket.
	if ok, _ := rl.allow("10.0.0.2"); !ok {
		t.Fatalf("expected independent bucket per IP")
	}

	now = now.Add(time.Second)
	if ok, _ := rl.allow("10.0.0.1"); !ok {
		t.Fatalf("expected token refill after 1s")
	}
}

func TestIPRateLimiter_SweepsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	rl := newIPRateLimiter(10, 10)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	rl.allow("b")
	if rl.size() != 2 {
		t.Fatalf("size=%d", rl.size())
	}

	now = now.Add(limiterIdleTTL + limiterSweepInterval)
	rl.allow("c")
	if rl.size() != 1 {
		t.Fatalf("expected idle buckets swept, size=%d", rl.size())
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff        string
		realIP     string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remote: "192.0.2.1:5000", want: "192.0.2.1"},
		{name: "ignores xff when untrusted", remote: "192.0.2.1:5000", xff: "198.51.100.7", want: "192.0.2.1"},
		{name: "first valid xff", remote: "192.0.2.1:5000", xff: "garbage, 198.51.100.7, 203.0.113.9", trustProxy: true, want: "198.51.100.7"},
		{name: "x-real-ip fallback", remote: "192.0.2.1:5000", realIP: "203.0.113.5", trustProxy: true, want: "203.0.113.5"},
		{name: "unparseable", remote: "pipe", want: "<nil>"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := clientIP(r, tc.trustProxy).String(); got != tc.want {
				t.Fatalf("clientIP=%q, want %q", got, tc.want)
			}
		})
	}
}
