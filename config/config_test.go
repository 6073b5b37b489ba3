package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.HTTPAddress != ":8080" {
		t.Fatalf("unexpected http address %q", cfg.HTTPAddress)
	}
	if cfg.BlockInterval() != time.Second {
		t.Fatalf("unexpected block interval %s", cfg.BlockInterval())
	}
	if cfg.DataDir != filepath.Join(dir, "ledger-data") {
		t.Fatalf("data dir not anchored: %s", cfg.DataDir)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Staking.EarlyUnstake != "release" {
		t.Fatalf("unexpected policy %q", again.Staking.EarlyUnstake)
	}
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `DataDir = "/var/lib/ledger"
HTTPAddress = "127.0.0.1:9000"
BlockIntervalMs = 500
Environment = "staging"

[log]
Level = "debug"
File = "/var/log/ledgerd.log"

[auth]
HMACSecret = "s3cret"
HMACSecretEnv = ""
Issuer = "issuer"
Audience = ["ledger"]

[ratelimit]
RatePerSecond = 5
Burst = 10

[history]
DSN = "postgres://ledger@localhost/ledger"

[staking]
EarlyUnstake = "Reject"

[farming]
RestrictFunding = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/var/lib/ledger" {
		t.Fatalf("unexpected data dir %q", cfg.DataDir)
	}
	if cfg.BlockInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected interval %s", cfg.BlockInterval())
	}
	if cfg.Staking.EarlyUnstake != "reject" {
		t.Fatalf("policy not normalized: %q", cfg.Staking.EarlyUnstake)
	}
	if !cfg.Farming.RestrictFunding {
		t.Fatalf("restrict funding not parsed")
	}
	if cfg.JWTSecret() != "s3cret" {
		t.Fatalf("unexpected secret")
	}
	if got := cfg.ResolvePath(cfg.History.DSN); got != cfg.History.DSN {
		t.Fatalf("dsn must not be anchored: %s", got)
	}
	if got := cfg.ResolvePath("idem.db"); got != "/var/lib/ledger/idem.db" {
		t.Fatalf("unexpected resolved path %s", got)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("DataDir = \"x\"\nValidatorKey = \"abc\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "ValidatorKey") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestJWTSecretPrefersEnv(t *testing.T) {
	cfg := Default()
	cfg.Auth.HMACSecret = "file"
	t.Setenv("LEDGER_JWT_SECRET", "env")
	if cfg.JWTSecret() != "env" {
		t.Fatalf("expected env secret")
	}
}

func TestValidateConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"interval":  func(c *Config) { c.BlockIntervalMs = 10 },
		"burst":     func(c *Config) { c.RateLimit.Burst = 0 },
		"policy":    func(c *Config) { c.Staking.EarlyUnstake = "sometimes" },
		"log level": func(c *Config) { c.Log.Level = "chatty" },
		"data dir":  func(c *Config) { c.DataDir = " " },
		"sampling":  func(c *Config) { c.Telemetry.SampleRatio = 1.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := ValidateConfig(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := ValidateConfig(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
