package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterAllowsUnderBurst(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 3, CleanupInterval: time.Minute})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("expected request %d to be allowed within burst", i)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("expected request past burst to be rejected")
	}
}

func TestIPRateLimiterTracksPerIPIndependently(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	if !rl.Allow("1.1.1.1") {
		t.Fatal("expected first request from 1.1.1.1 to be allowed")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("expected first request from a different IP to be allowed independently")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("expected second request from 1.1.1.1 to be rejected")
	}
}

func TestWebSocketRateLimiterEnforcesPerIPCap(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	if !wrl.Allow("5.5.5.5") || !wrl.Allow("5.5.5.5") {
		t.Fatal("expected first two connections to be allowed")
	}
	if wrl.Allow("5.5.5.5") {
		t.Error("expected third connection from the same IP to be rejected")
	}

	wrl.Release("5.5.5.5")
	if !wrl.Allow("5.5.5.5") {
		t.Error("expected a connection to be allowed again after release")
	}
}

func TestGetClientIPPrefersForwardedHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	r.RemoteAddr = "127.0.0.1:5555"

	if ip := GetClientIP(r); ip != "9.9.9.9" {
		t.Errorf("expected 9.9.9.9, got %q", ip)
	}
}

func TestGetClientIPFallsBackToRemoteAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:4242"

	if ip := GetClientIP(r); ip != "203.0.113.7" {
		t.Errorf("expected 203.0.113.7, got %q", ip)
	}
}

func TestIsAllowedOriginWildcardClientURL(t *testing.T) {
	if !IsAllowedOrigin("https://anything.example", "*") {
		t.Error("expected wildcard CLIENT_URL to allow any origin")
	}
}

func TestIsAllowedOriginLocalhostAlwaysAllowed(t *testing.T) {
	if !IsAllowedOrigin("http://localhost:5173", "https://example.com") {
		t.Error("expected localhost origin to be allowed regardless of CLIENT_URL")
	}
}

func TestIsAllowedOriginKickSubdomain(t *testing.T) {
	if !IsAllowedOrigin("https://stream.kick.com", "https://example.com") {
		t.Error("expected a kick.com subdomain to be allowed")
	}
}

func TestIsAllowedOriginRejectsUnknown(t *testing.T) {
	if IsAllowedOrigin("https://evil.example", "https://example.com") {
		t.Error("expected an unrelated origin to be rejected")
	}
}
