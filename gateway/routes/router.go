package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stakeledger/core"
	"stakeledger/gateway/idempotency"
	"stakeledger/gateway/middleware"
	"stakeledger/storage/history"
)

// Group names double as rate limit keys and metric route labels.
const (
	GroupTokens  = "tokens"
	GroupFarming = "farming"
	GroupStaking = "staking"
	GroupEvents  = "events"
	GroupHistory = "history"
)

type Config struct {
	Node           *core.Node
	Authenticator  *middleware.Authenticator
	RateLimiter    *middleware.RateLimiter
	Observability  *middleware.Observability
	Idempotency    *idempotency.Store
	History        *history.Index
	IdempotencyTTL time.Duration
	CORS           middleware.CORSConfig
	Logger         *slog.Logger
}

// New builds the HTTP API over the node.
func New(cfg Config) (http.Handler, error) {
	if cfg.Node == nil {
		return nil, errors.New("routes: node required")
	}
	if cfg.Authenticator == nil {
		return nil, errors.New("routes: authenticator required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs == nil {
		obs = middleware.NewObservability(middleware.ObservabilityConfig{}, logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", obs.MetricsHandler())
	r.With(obs.Middleware("head")).Get("/v1/head", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newHeadView(cfg.Node.Head()))
	})

	group := func(name string, mount func(chi.Router)) func(chi.Router) {
		return func(sr chi.Router) {
			sr.Use(obs.Middleware(name))
			sr.Use(cfg.Authenticator.Middleware())
			if cfg.RateLimiter != nil {
				sr.Use(cfg.RateLimiter.Middleware(name))
			}
			if cfg.Idempotency != nil {
				sr.Use(middleware.Idempotency(cfg.Idempotency, ttl, logger))
			}
			mount(sr)
		}
	}

	r.Route("/v1/tokens", group(GroupTokens, (&tokenRoutes{node: cfg.Node}).mount))
	r.Route("/v1/farming", group(GroupFarming, (&farmingRoutes{node: cfg.Node}).mount))
	r.Route("/v1/staking", group(GroupStaking, (&stakingRoutes{node: cfg.Node}).mount))

	if cfg.History != nil {
		r.Route("/v1/history", func(sr chi.Router) {
			sr.Use(obs.Middleware(GroupHistory))
			sr.Use(cfg.Authenticator.Middleware())
			if cfg.RateLimiter != nil {
				sr.Use(cfg.RateLimiter.Middleware(GroupHistory))
			}
			(&historyRoutes{index: cfg.History}).mount(sr)
		})
	}

	stream := &eventStream{bus: cfg.Node.Bus(), logger: logger, origins: cfg.CORS.AllowedOrigins}
	r.Route("/v1/events", func(sr chi.Router) {
		sr.Use(cfg.Authenticator.Middleware())
		if cfg.RateLimiter != nil {
			sr.Use(cfg.RateLimiter.Middleware(GroupEvents))
		}
		sr.Get("/stream", stream.serve)
	})

	return r, nil
}
