package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"stakeledger/gateway/auth"
	"stakeledger/gateway/idempotency"
)

var authCfg = auth.Config{HMACSecret: "secret", Issuer: "stakeledger"}

func bearer(t *testing.T, addr common.Address, scopes ...string) string {
	t.Helper()
	token, err := auth.Issue(authCfg, auth.IssueRequest{Address: addr, Scopes: scopes})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthenticatorResolvesPrincipal(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	a := NewAuthenticator(AuthConfig{}, auth.NewVerifier(authCfg), nil)
	var seen common.Address
	handler := a.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		require.True(t, ok)
		seen = p.Address
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	req.Header.Set("Authorization", bearer(t, addr))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, addr, seen)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticatorAnonymousReadsAndScopes(t *testing.T) {
	a := NewAuthenticator(AuthConfig{AllowAnonymousReads: true}, auth.NewVerifier(authCfg), nil)
	handler := a.Middleware("staking")(okHandler())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/staking", nil))
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil))
	require.Equal(t, http.StatusUnauthorized, res.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	req.Header.Set("Authorization", bearer(t, common.HexToAddress("0x01"), "farming"))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	store, err := idempotency.Open(filepath.Join(t.TempDir(), "idem.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	calls := 0
	handler := Idempotency(store, time.Minute, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"call":%d}`, calls)
	}))

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", strings.NewReader(`{}`))
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		return res
	}

	first := send("abc")
	require.Equal(t, http.StatusCreated, first.Code)
	second := send("abc")
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "hit", second.Header().Get(HeaderIdempotencyCache))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, calls)

	send("other")
	send("")
	require.Equal(t, 3, calls)
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/farming", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "https://app.example", res.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/farming", nil)
	req.Header.Set("Origin", "https://evil.example")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Empty(t, res.Header().Get("Access-Control-Allow-Origin"))
}

func TestObservabilitySetsRequestID(t *testing.T) {
	obs := NewObservability(ObservabilityConfig{}, nil)
	handler := obs.Middleware("health")(okHandler())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.NotEmpty(t, res.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "fixed")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, "fixed", res.Header().Get(HeaderRequestID))
}
