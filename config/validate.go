package config

import (
	"fmt"
	"strings"

	"stakeledger/native/staking"
)

// MinBlockIntervalMs bounds how fast the daemon may advance the chain clock.
var MinBlockIntervalMs = int64(100)

// ValidateConfig rejects configurations the daemon cannot run with.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if strings.TrimSpace(cfg.HTTPAddress) == "" {
		return fmt.Errorf("config: HTTPAddress required")
	}
	if cfg.BlockIntervalMs < MinBlockIntervalMs {
		return fmt.Errorf("config: BlockIntervalMs must be >= %d", MinBlockIntervalMs)
	}
	if cfg.RateLimit.RatePerSecond < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("ratelimit: values must not be negative")
	}
	if cfg.RateLimit.RatePerSecond > 0 && cfg.RateLimit.Burst == 0 {
		return fmt.Errorf("ratelimit: Burst required when RatePerSecond is set")
	}
	if cfg.Auth.ClockSkewSeconds < 0 {
		return fmt.Errorf("auth: ClockSkewSeconds must not be negative")
	}
	if cfg.Idempotency.TTLSeconds < 0 {
		return fmt.Errorf("idempotency: TTLSeconds must not be negative")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	if _, err := staking.ParseEarlyUnstakePolicy(cfg.Staking.EarlyUnstake); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	return nil
}
