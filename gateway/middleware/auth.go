package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"stakeledger/gateway/auth"
	"stakeledger/observability/logging"
)

type AuthConfig struct {
	// AllowAnonymousReads lets GET requests through without a token.
	AllowAnonymousReads bool
	OptionalPaths       []string
}

type contextKey string

const ContextKeyPrincipal contextKey = "gateway.principal"

// PrincipalFrom returns the authenticated caller stored on ctx.
func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(*auth.Principal)
	return p, ok && p != nil
}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

type Authenticator struct {
	cfg      AuthConfig
	verifier *auth.Verifier
	logger   *slog.Logger
}

func NewAuthenticator(cfg AuthConfig, verifier *auth.Verifier, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{cfg: cfg, verifier: verifier, logger: logger}
}

// Middleware resolves the bearer token into a principal. Requests without a
// token pass through only when the path is optional or anonymous reads are
// allowed; required scopes are enforced whenever a principal is present.
func (a *Authenticator) Middleware(requiredScopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearer(r.Header.Get("Authorization"))
			if tokenString == "" {
				if a.anonymousAllowed(r) {
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
				return
			}
			principal, err := a.verifier.Verify(tokenString)
			if err != nil {
				a.logger.Debug("token rejected",
					slog.String("path", r.URL.Path),
					logging.MaskField("token", tokenString),
					slog.String("error", err.Error()))
				writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
				return
			}
			for _, scope := range requiredScopes {
				if !principal.HasScope(scope) {
					writeError(w, http.StatusForbidden, "forbidden", "insufficient scope")
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func (a *Authenticator) anonymousAllowed(r *http.Request) bool {
	for _, prefix := range a.cfg.OptionalPaths {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return a.cfg.AllowAnonymousReads && (r.Method == http.MethodGet || r.Method == http.MethodHead)
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
