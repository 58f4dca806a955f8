package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inkwell-blog/server/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoginRateLimitAllowsInitialBurst(t *testing.T) {
	cfg := config.RateLimitConfig{LoginPer15Minutes: 5}
	handler := RateLimit(cfg)(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		req = req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, res.Code)
		}
	}
}

func TestLoginRateLimitBlocksAfterBurst(t *testing.T) {
	cfg := config.RateLimitConfig{LoginPer15Minutes: 5}
	handler := RateLimit(cfg)(okHandler())
	clientIP := "192.168.1.101:54321"

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = clientIP
		req = req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = clientIP
	req = req.WithContext(WithRateLimitTier(req.Context(), TierLogin))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", res.Code)
	}
	if retry := res.Header().Get("Retry-After"); retry != "180" {
		t.Errorf("Retry-After = %q, want 180", retry)
	}
}

func TestRateLimitTracksClientsSeparately(t *testing.T) {
	cfg := config.RateLimitConfig{LoginPer15Minutes: 1}
	handler := RateLimit(cfg)(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	first.RemoteAddr = "10.0.0.1:1000"
	first = first.WithContext(WithRateLimitTier(first.Context(), TierLogin))
	handler.ServeHTTP(httptest.NewRecorder(), first)

	// A different client still has its own allowance.
	second := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	second.RemoteAddr = "10.0.0.2:1000"
	second = second.WithContext(WithRateLimitTier(second.Context(), TierLogin))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, second)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for distinct client", res.Code)
	}
}

func TestRateLimitSkipsHealthEndpoints(t *testing.T) {
	cfg := config.RateLimitConfig{PublicPerMinute: 1}
	handler := RateLimit(cfg)(okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.3:1000"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("healthz request %d: status = %d, want 200", i+1, res.Code)
		}
	}
}

func TestRateLimitDisabledWhenZero(t *testing.T) {
	handler := RateLimit(config.RateLimitConfig{})(okHandler())

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
		req.RemoteAddr = "10.0.0.4:1000"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200 with limits disabled", i+1, res.Code)
		}
	}
}

func TestClientKeyTrustsProxyOnlyWhenConfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	// Untrusted proxy: the forwarded header is ignored.
	if got := clientKey(req, nil); got != "203.0.113.9" {
		t.Errorf("untrusted key = %q, want 203.0.113.9", got)
	}

	// Trusted proxy: the first forwarded hop wins.
	if got := clientKey(req, []string{"203.0.113.0/24"}); got != "198.51.100.7" {
		t.Errorf("trusted key = %q, want 198.51.100.7", got)
	}
}
