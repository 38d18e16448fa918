package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestGetClientIP verifies proxy header precedence and fallbacks.
func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "203.0.113.7", "", "10.0.0.1:1234", "203.0.113.7"},
		{"forwarded chain takes first", "203.0.113.7, 10.0.0.2, 10.0.0.3", "", "10.0.0.1:1234", "203.0.113.7"},
		{"forwarded with spaces", "  203.0.113.7  ", "", "10.0.0.1:1234", "203.0.113.7"},
		{"real ip fallback", "", "198.51.100.4", "10.0.0.1:1234", "198.51.100.4"},
		{"remote addr fallback", "", "", "192.0.2.9:5678", "192.0.2.9"},
		{"unparseable remote addr", "", "", "not-an-addr", "not-an-addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestIsAllowedOrigin verifies the allowlist plus the localhost development
// exception.
func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		extra  []string
		want   bool
	}{
		{"empty rejected", "", nil, false},
		{"localhost any port", "http://localhost:5173", nil, true},
		{"loopback any port", "http://127.0.0.1:9999", nil, true},
		{"listed origin", "http://localhost:3000", nil, true},
		{"unknown rejected", "http://evil.example.com", nil, false},
		{"extra list allows", "https://game.example.com", []string{"https://game.example.com"}, true},
		{"extra list still filters", "https://other.example.com", []string{"https://game.example.com"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAllowedOrigin(tt.origin, tt.extra); got != tt.want {
				t.Errorf("Expected %v for %q, got %v", tt.want, tt.origin, got)
			}
		})
	}
}

// TestIPRateLimiterMiddleware verifies over-budget requests get 429 with a
// Retry-After hint.
func TestIPRateLimiterMiddleware(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.1:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	if w := do(); w.Code != http.StatusOK {
		t.Fatalf("Expected the first request allowed, got %d", w.Code)
	}
	if w := do(); w.Code != http.StatusOK {
		t.Fatalf("Expected the burst request allowed, got %d", w.Code)
	}
	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 over budget, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Expected a Retry-After hint, got %q", w.Header().Get("Retry-After"))
	}

	// A different IP has its own budget.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.2:1000"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, r)
	if w2.Code != http.StatusOK {
		t.Errorf("Expected the second IP allowed, got %d", w2.Code)
	}

	stats := rl.GetStats()
	if stats["rejected"] != 1 {
		t.Errorf("Expected 1 rejection counted, got %d", stats["rejected"])
	}
}

// TestWebSocketRateLimiterCap verifies the per-IP connection cap and the
// release path.
func TestWebSocketRateLimiterCap(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	if !wrl.Allow("203.0.113.1") || !wrl.Allow("203.0.113.1") {
		t.Fatal("Expected two connections within the cap")
	}
	if wrl.Allow("203.0.113.1") {
		t.Fatal("Expected the third connection rejected")
	}
	if got := wrl.GetConnectionCount("203.0.113.1"); got != 2 {
		t.Errorf("Expected 2 live connections, got %d", got)
	}

	// Other IPs are unaffected.
	if !wrl.Allow("203.0.113.2") {
		t.Error("Expected another IP allowed")
	}

	wrl.Release("203.0.113.1")
	if !wrl.Allow("203.0.113.1") {
		t.Error("Expected a slot free after release")
	}
	if got := wrl.GetStats()["rejected"]; got != 1 {
		t.Errorf("Expected 1 rejection counted, got %d", got)
	}

	// Releasing an unknown IP is harmless.
	wrl.Release("203.0.113.99")
	if got := wrl.GetConnectionCount("203.0.113.99"); got != 0 {
		t.Errorf("Expected an unknown IP to stay at 0, got %d", got)
	}
}
