package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func limitedHandler(rl *rateLimiter) http.Handler {
	return rateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitMiddlewareProbesExempt(t *testing.T) {
	h := limitedHandler(newRateLimiter(rate.Limit(1), 1))
	for range 10 {
		if rr := hit(h, "/healthz", "1.2.3.4:5678"); rr.Code != http.StatusOK {
			t.Fatalf("probe: expected 200, got %d", rr.Code)
		}
	}
}

func TestRateLimitMiddlewareThrottlesAPI(t *testing.T) {
	h := limitedHandler(newRateLimiter(rate.Limit(1), 2))

	for i := range 2 {
		if rr := hit(h, "/api/records", "10.0.0.1:1234"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}

	rr := hit(h, "/api/records", "10.0.0.1:1234")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	var body apiError
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "resource_exhausted" {
		t.Errorf("code = %q", body.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestRateLimitMiddlewareIPsIndependent(t *testing.T) {
	h := limitedHandler(newRateLimiter(rate.Limit(1), 1))

	if rr := hit(h, "/api/stats", "10.0.0.1:1000"); rr.Code != http.StatusOK {
		t.Fatalf("ip1 first: %d", rr.Code)
	}
	if rr := hit(h, "/api/stats", "10.0.0.1:1001"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("ip1 second: %d", rr.Code)
	}
	if rr := hit(h, "/api/stats", "10.0.0.2:2000"); rr.Code != http.StatusOK {
		t.Fatalf("ip2 first: %d", rr.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := newRateLimiter(rate.Limit(1), 1)
	rl.getLimiter("1.2.3.4")
	if n := rl.size(); n != 1 {
		t.Fatalf("expected 1 limiter, got %d", n)
	}
	rl.cleanup(0)
	if n := rl.size(); n != 0 {
		t.Fatalf("expected 0 limiters after cleanup, got %d", n)
	}
}
