package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/cors"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name     string
		cfg      authConfig
		user     string
		pass     string
		token    string
		expected int
	}{
		{"not configured", authConfig{}, "", "", "", http.StatusOK},
		{"valid basic auth", authConfig{username: "admin", password: "secret", enabled: true}, "admin", "secret", "", http.StatusOK},
		{"wrong user", authConfig{username: "admin", password: "secret", enabled: true}, "root", "secret", "", http.StatusUnauthorized},
		{"wrong password", authConfig{username: "admin", password: "secret", enabled: true}, "admin", "nope", "", http.StatusUnauthorized},
		{"valid token", authConfig{token: "t0k", enabled: true}, "", "", "t0k", http.StatusOK},
		{"wrong token", authConfig{token: "t0k", enabled: true}, "", "", "bad", http.StatusUnauthorized},
		{"no credentials", authConfig{token: "t0k", enabled: true}, "", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			h := adminAuth(&cfg)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/idle", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			if tt.token != "" {
				req.Header.Set("X-Admin-Token", tt.token)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.expected {
				t.Fatalf("status = %d, want %d", rr.Code, tt.expected)
			}
			if rr.Code == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestLoadAuthConfig(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_TOKEN", "")
	if loadAuthConfig().enabled {
		t.Error("auth enabled without credentials")
	}
	t.Setenv("ADMIN_USERNAME", "admin")
	if loadAuthConfig().enabled {
		t.Error("username alone should not enable auth")
	}
	t.Setenv("ADMIN_PASSWORD", "pw")
	if !loadAuthConfig().enabled {
		t.Error("username and password should enable auth")
	}
}

func TestRateLimiterWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := newIPRateLimiter(ctx, &rateLimiterConfig{enabled: true, requestsPerIP: 3, window: 100 * time.Millisecond})

	for i := range 3 {
		if !limiter.allow("192.168.1.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.allow("192.168.1.1") {
		t.Fatal("request 4 should be denied")
	}
	if !limiter.allow("192.168.1.2") {
		t.Fatal("other IPs have their own budget")
	}
	time.Sleep(150 * time.Millisecond)
	if !limiter.allow("192.168.1.1") {
		t.Fatal("request after window expiry should be allowed")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := newIPRateLimiter(context.Background(), &rateLimiterConfig{requestsPerIP: 1, window: time.Second})
	for i := range 50 {
		if !limiter.allow("192.168.1.1") {
			t.Fatalf("request %d denied while disabled", i+1)
		}
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := newIPRateLimiter(context.Background(), &rateLimiterConfig{enabled: true, requestsPerIP: 1, window: time.Second})
	limiter.allow("10.0.0.1")
	limiter.cleanup(time.Now().Add(3 * time.Second))
	if len(limiter.visitors) != 0 {
		t.Errorf("stale visitors kept: %d", len(limiter.visitors))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote, fwd, want string
	}{
		{"192.168.1.1:12345", "", "192.168.1.1"},
		{"192.168.1.1", "", "192.168.1.1"},
		{"[2001:db8::1]:443", "", "2001:db8::1"},
		{"[2001:db8::1]", "", "2001:db8::1"},
		{"10.0.0.1:12345", "203.0.113.1, 10.0.0.2", "203.0.113.1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.fwd != "" {
			req.Header.Set("X-Forwarded-For", tt.fwd)
		}
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q, %q) = %q, want %q", tt.remote, tt.fwd, got, tt.want)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := newIPRateLimiter(context.Background(), &rateLimiterConfig{enabled: true, requestsPerIP: 2, window: time.Minute})
	h := rateLimit(limiter)(okHandler())

	var rr *httptest.ResponseRecorder
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/idle", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, req)
	}
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		origins    string
		origin     string
		wantOrigin string
		wantCreds  bool
	}{
		{"permissive", "", "", "https://example.com", "*", false},
		{"allowed origin", "production", "https://example.com", "https://example.com", "https://example.com", true},
		{"rejected origin", "production", "https://example.com", "https://evil.com", "", false},
		{"wildcard subdomain", "production", "https://*.example.com", "https://app.example.com", "https://app.example.com", true},
		{"no origins configured", "production", "", "https://example.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENV", tt.env)
			t.Setenv("CORS_PERMISSIVE", "")
			t.Setenv("CORS_ALLOWED_ORIGINS", tt.origins)
			h := cors.Handler(corsOptions())(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/idle", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCreds {
				t.Errorf("Allow-Credentials = %v, want %v", got, tt.wantCreds)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("CORS_PERMISSIVE", "")
	h := cors.Handler(corsOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for preflight request")
	}))
	req := httptest.NewRequest(http.MethodOptions, "/idle", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code >= 300 {
		t.Errorf("preflight status = %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected Allow-Methods header on preflight response")
	}
}

func TestCORSPermissiveOverride(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("CORS_PERMISSIVE", "true")
	if got := corsOptions().AllowedOrigins; len(got) != 1 || got[0] != "*" {
		t.Errorf("AllowedOrigins = %q, want [*]", got)
	}
	t.Setenv("CORS_PERMISSIVE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	if got := corsOptions().AllowedOrigins; len(got) != 2 || got[0] != "https://a.example" {
		t.Errorf("AllowedOrigins = %q", got)
	}
}
