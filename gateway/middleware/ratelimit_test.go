package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/gateway/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"farming": {RatePerSecond: 0.001, Burst: 1},
	}, nil)
	handler := limiter.Middleware("farming")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/farming/pools", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesRoutesAndCallers(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"farming": {RatePerSecond: 0.001, Burst: 1},
		"staking": {RatePerSecond: 0.001, Burst: 1},
	}, nil)
	farm := limiter.Middleware("farming")(okHandler())
	stake := limiter.Middleware("staking")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/farming/pools", nil)
	res := httptest.NewRecorder()
	farm.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected farming request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	stake.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/staking", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected staking request to succeed, got %d", res.Code)
	}

	// same address, different authenticated account
	principal := &auth.Principal{Address: common.HexToAddress("0x01")}
	authed := req.WithContext(WithPrincipal(req.Context(), principal))
	res = httptest.NewRecorder()
	farm.ServeHTTP(res, authed)
	if res.Code != http.StatusOK {
		t.Fatalf("expected account-keyed request to succeed, got %d", res.Code)
	}
}

func TestRateLimiterIgnoresUnknownRoute(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{}, nil)
	handler := limiter.Middleware("events")(okHandler())
	for i := 0; i < 3; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: unexpected status %d", i, res.Code)
		}
	}
}

func TestClientIDPrefersForwardedAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientID(req); got != "203.0.113.9" {
		t.Fatalf("unexpected client id %q", got)
	}
}
