package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DataDir         string `toml:"DataDir"`
	HTTPAddress     string `toml:"HTTPAddress"`
	GenesisFile     string `toml:"GenesisFile"`
	BlockIntervalMs int64  `toml:"BlockIntervalMs"`
	Environment     string `toml:"Environment"`

	Log         Log         `toml:"log"`
	Auth        Auth        `toml:"auth"`
	RateLimit   RateLimit   `toml:"ratelimit"`
	History     History     `toml:"history"`
	Idempotency Idempotency `toml:"idempotency"`
	Telemetry   Telemetry   `toml:"telemetry"`
	Staking     Staking     `toml:"staking"`
	Farming     Farming     `toml:"farming"`
}

// Default returns the configuration written for a fresh data directory.
func Default() *Config {
	return &Config{
		DataDir:         "./ledger-data",
		HTTPAddress:     ":8080",
		GenesisFile:     "",
		BlockIntervalMs: 1000,
		Environment:     "local",
		Log:             Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
		Auth: Auth{
			HMACSecretEnv:    "LEDGER_JWT_SECRET",
			Issuer:           "stakeledger",
			ClockSkewSeconds: 30,
		},
		RateLimit:   RateLimit{RatePerSecond: 20, Burst: 40},
		History:     History{DSN: "history.db"},
		Idempotency: Idempotency{Path: "idempotency.db", TTLSeconds: 86400},
		Telemetry:   Telemetry{Endpoint: "localhost:4318", Insecure: true},
		Staking:     Staking{EarlyUnstake: "release"},
	}
}

// Load loads the configuration from the given path, writing the defaults when
// the file does not exist yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0].String())
	}

	cfg.normalize(filepath.Dir(path))
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) normalize(baseDir string) {
	cfg.Environment = strings.TrimSpace(cfg.Environment)
	cfg.Staking.EarlyUnstake = strings.ToLower(strings.TrimSpace(cfg.Staking.EarlyUnstake))
	if cfg.DataDir != "" && !filepath.IsAbs(cfg.DataDir) && baseDir != "" && baseDir != "." {
		cfg.DataDir = filepath.Join(baseDir, cfg.DataDir)
	}
	if cfg.Auth.Audience == nil {
		cfg.Auth.Audience = []string{}
	}
}

// BlockInterval returns the chain clock period.
func (cfg *Config) BlockInterval() time.Duration {
	return time.Duration(cfg.BlockIntervalMs) * time.Millisecond
}

// ResolvePath anchors relative paths in the data directory.
func (cfg *Config) ResolvePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(cfg.DataDir, p)
}

// JWTSecret returns the HMAC secret, preferring the environment variable.
func (cfg *Config) JWTSecret() string {
	if env := strings.TrimSpace(cfg.Auth.HMACSecretEnv); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(cfg.Auth.HMACSecret)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := Write(path, cfg); err != nil {
		return nil, err
	}
	cfg.normalize(filepath.Dir(path))
	return cfg, nil
}

// Write persists cfg as TOML.
func Write(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
