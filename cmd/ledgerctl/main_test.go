package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"stakeledger/config"
	"stakeledger/core/types"
	"stakeledger/gateway/auth"
	"stakeledger/storage/history"
)

func TestIssueTokenVerifies(t *testing.T) {
	cfg := config.Default()
	var out bytes.Buffer
	secretFn := func() (string, error) { return "ctl-secret", nil }
	if err := issueToken(cfg, secretFn, "0x2222222222222222222222222222222222222222", 0, "staking:write, ", &out); err != nil {
		t.Fatalf("issue: %v", err)
	}
	verifier := auth.NewVerifier(auth.Config{HMACSecret: "ctl-secret", Issuer: cfg.Auth.Issuer})
	principal, err := verifier.Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !principal.HasScope("staking:write") || principal.HasScope("farming:write") {
		t.Fatalf("unexpected scopes %v", principal.Scopes)
	}

	if err := issueToken(cfg, secretFn, "not-an-address", 0, "", &out); err == nil {
		t.Fatalf("expected address error")
	}
}

func TestExportPayouts(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	index, err := history.Open(dsn, history.Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer index.CloseDB()
	err = index.Record(context.Background(), &types.Event{
		ID:     "evt-1",
		Type:   "staking.unstaked",
		Height: 4,
		Attributes: map[string]string{
			"account":   "0x2222222222222222222222222222222222222222",
			"principal": "100",
			"reward":    "7",
			"shortfall": "3",
		},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var out bytes.Buffer
	err = exportPayouts(context.Background(), index, exportRequest{Format: "jsonl", Filter: history.Filter{Kind: history.KindReward}}, &out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.Count(out.String(), "\n") != 1 || !strings.Contains(out.String(), "\"amount\":\"7\"") {
		t.Fatalf("unexpected export: %s", out.String())
	}

	path := filepath.Join(t.TempDir(), "payouts.parquet")
	out.Reset()
	if err := exportPayouts(context.Background(), index, exportRequest{Format: "parquet", Output: path}, &out); err != nil {
		t.Fatalf("parquet export: %v", err)
	}
	if _, err := os.Stat(path + ".sha256"); err != nil {
		t.Fatalf("checksum file missing: %v", err)
	}
	if !strings.Contains(out.String(), "3 payouts") {
		t.Fatalf("unexpected summary: %s", out.String())
	}

	if err := exportPayouts(context.Background(), index, exportRequest{Format: "parquet"}, &out); err == nil {
		t.Fatalf("parquet to stdout must be rejected")
	}
	if err := exportPayouts(context.Background(), index, exportRequest{Format: "csv", Filter: history.Filter{Module: "lending"}}, &out); err == nil {
		t.Fatalf("unknown module must be rejected")
	}
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	var out bytes.Buffer
	if err := writeConfig(path, "/var/lib/ledger", "genesis.yaml", false, &out); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "/var/lib/ledger" || cfg.GenesisFile != "genesis.yaml" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := writeConfig(path, "", "", false, &out); err == nil {
		t.Fatalf("expected existing file error")
	}
	if err := writeConfig(path, "", "", true, &out); err != nil {
		t.Fatalf("force overwrite: %v", err)
	}
}
