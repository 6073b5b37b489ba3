package middleware

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"stakeledger/gateway/idempotency"
)

const (
	HeaderIdempotencyKey   = "Idempotency-Key"
	HeaderIdempotencyCache = "X-Idempotency-Cache"
	maxIdempotencyKeyLen   = 128
)

// Idempotency replays the stored response of a mutating request carrying an
// Idempotency-Key instead of executing it again. Keys are scoped to the
// caller, method and path; server errors are never cached.
func Idempotency(store *idempotency.Store, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idem := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if store == nil || idem == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if len(idem) > maxIdempotencyKeyLen {
				writeError(w, http.StatusBadRequest, "invalid_request", "idempotency key too long")
				return
			}
			key := idempotencyKey(r, idem)
			now := time.Now()
			if record, ok, err := store.Get(key, now); err != nil {
				logger.Warn("idempotency lookup failed", slog.String("error", err.Error()))
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(HeaderIdempotencyCache, "hit")
				w.WriteHeader(record.StatusCode)
				_, _ = w.Write(record.Body)
				return
			}

			capture := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError {
				return
			}
			if err := store.Put(key, idempotency.Record{
				StatusCode: capture.status,
				Body:       capture.body.Bytes(),
				StoredAt:   now,
				ExpiresAt:  now.Add(ttl),
			}); err != nil {
				logger.Warn("idempotency store failed", slog.String("error", err.Error()))
			}
		})
	}
}

func idempotencyKey(r *http.Request, idem string) string {
	caller := "anonymous"
	if p, ok := PrincipalFrom(r.Context()); ok {
		caller = strings.ToLower(p.Address.Hex())
	}
	return fmt.Sprintf("%s|%s|%s|%s", caller, r.Method, r.URL.Path, idem)
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bodyRecorder) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bodyRecorder) Write(p []byte) (int, error) {
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}
