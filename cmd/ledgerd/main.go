package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"stakeledger/cmd/internal/secret"
	"stakeledger/config"
	"stakeledger/core"
	"stakeledger/core/types"
	"stakeledger/gateway/auth"
	"stakeledger/gateway/idempotency"
	"stakeledger/gateway/middleware"
	"stakeledger/gateway/routes"
	"stakeledger/native/params"
	"stakeledger/native/staking"
	"stakeledger/observability"
	"stakeledger/observability/logging"
	"stakeledger/observability/metrics"
	ledgerotel "stakeledger/observability/otel"
	"stakeledger/storage"
	"stakeledger/storage/history"
)

const (
	pruneInterval  = time.Hour
	otlpHeadersEnv = "OTEL_EXPORTER_OTLP_HEADERS"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides LEDGER_GENESIS and config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("ledgerd", cfg.Environment, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})

	if err := run(cfg, resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv), logger); err != nil {
		logger.Error("ledgerd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, genesisPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	headers := map[string]string{}
	for k, v := range cfg.Telemetry.Headers {
		headers[k] = v
	}
	for k, v := range ledgerotel.ParseHeaders(os.Getenv(otlpHeadersEnv)) {
		headers[k] = v
	}
	shutdownTelemetry, err := ledgerotel.Init(ctx, ledgerotel.Config{
		ServiceName: "ledgerd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     headers,
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
		SampleRatio: cfg.Telemetry.SampleRatio,
		Engines:     []string{params.ModuleFarming, params.ModuleStaking},
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data directory: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	head, applied, err := openChain(db, genesisPath)
	if err != nil {
		return err
	}
	if applied {
		logger.Info("genesis applied", slog.String("genesis", genesisPath), slog.Uint64("timestamp", head.Timestamp))
	}

	policy, err := staking.ParseEarlyUnstakePolicy(cfg.Staking.EarlyUnstake)
	if err != nil {
		return err
	}
	clock := core.NewChainClock(head, nil)
	node, err := core.NewNode(db, clock, core.Options{
		EarlyUnstake:    policy,
		RestrictFunding: cfg.Farming.RestrictFunding,
		Logger:          logger,
		Metrics:         metrics.Ledger(),
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	node.Bus().Subscribe(observability.Events())

	var index *history.Index
	if dsn := cfg.ResolvePath(cfg.History.DSN); dsn != "" {
		index, err = history.Open(dsn, history.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer func() {
			if err := index.CloseDB(); err != nil {
				logger.Warn("close history", slog.Any("error", err))
			}
		}()
		node.Bus().Subscribe(index)
		logger.Info("history index open", slog.String("dsn", logging.RedactDSN(dsn)))
	}

	idem, err := idempotency.Open(cfg.ResolvePath(cfg.Idempotency.Path), nil)
	if err != nil {
		return fmt.Errorf("open idempotency store: %w", err)
	}
	defer idem.Close()

	signingSecret, err := secret.NewSource(cfg.Auth.HMACSecretEnv, "gateway signing secret").
		WithFallback(cfg.JWTSecret()).
		Get()
	if err != nil {
		return err
	}
	verifier := auth.NewVerifier(auth.Config{
		HMACSecret: signingSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ClockSkew:  time.Duration(cfg.Auth.ClockSkewSeconds) * time.Second,
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RatePerSecond > 0 {
		limit := middleware.RateLimit{RatePerSecond: cfg.RateLimit.RatePerSecond, Burst: cfg.RateLimit.Burst}
		limiter = middleware.NewRateLimiter(map[string]middleware.RateLimit{
			routes.GroupTokens:  limit,
			routes.GroupFarming: limit,
			routes.GroupStaking: limit,
			routes.GroupEvents:  limit,
			routes.GroupHistory: limit,
		}, logger)
	}

	handler, err := routes.New(routes.Config{
		Node:           node,
		Authenticator:  middleware.NewAuthenticator(middleware.AuthConfig{AllowAnonymousReads: cfg.Auth.AllowAnonymousReads}, verifier, logger),
		RateLimiter:    limiter,
		Observability:  middleware.NewObservability(middleware.ObservabilityConfig{LogRequests: cfg.Log.Level == "debug"}, logger),
		Idempotency:    idem,
		IdempotencyTTL: time.Duration(cfg.Idempotency.TTLSeconds) * time.Second,
		History:        index,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	go clock.Run(ctx, cfg.BlockInterval(), func(h types.BlockHeader) {
		metrics.Ledger().SetBlockHeight(h.Height)
	})
	go pruneIdempotency(ctx, idem, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           otelhttp.NewHandler(handler, "ledgerd.gateway"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			slog.String("addr", cfg.HTTPAddress),
			slog.Uint64("height", head.Height),
			slog.String("farming", node.FarmingAddress().Hex()),
			slog.String("staking", node.StakingAddress().Hex()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gateway: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown", slog.Any("error", err))
	}
	logger.Info("ledgerd stopped", slog.Uint64("height", node.Head().Height))
	return nil
}

func pruneIdempotency(ctx context.Context, store *idempotency.Store, logger *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.Prune(now)
			if err != nil {
				logger.Warn("prune idempotency store", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				logger.Debug("pruned idempotency records", slog.Int("removed", removed))
			}
		}
	}
}
