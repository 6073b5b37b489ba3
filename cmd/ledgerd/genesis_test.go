package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stakeledger/storage"
)

const minimalGenesis = `genesisTime: "2024-01-01T00:00:00Z"
tokens:
  - symbol: RWD
farming:
  rewardToken: RWD
  rewardPerTick: "1"
`

func TestResolveGenesisPath(t *testing.T) {
	lookup := func(values map[string]string) envLookupFunc {
		return func(key string) (string, bool) {
			v, ok := values[key]
			return v, ok
		}
	}
	if got := resolveGenesisPath(" cli.yaml ", "cfg.yaml", lookup(map[string]string{genesisPathEnv: "env.yaml"})); got != "cli.yaml" {
		t.Fatalf("cli flag must win, got %q", got)
	}
	if got := resolveGenesisPath("", "cfg.yaml", lookup(map[string]string{genesisPathEnv: "env.yaml"})); got != "env.yaml" {
		t.Fatalf("env must beat config, got %q", got)
	}
	if got := resolveGenesisPath("", "cfg.yaml", lookup(map[string]string{genesisPathEnv: "  "})); got != "cfg.yaml" {
		t.Fatalf("blank env must fall through, got %q", got)
	}
	if got := resolveGenesisPath("", "", nil); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
}

func TestOpenChainAppliesGenesisOnce(t *testing.T) {
	db := storage.NewMemDB()
	if _, _, err := openChain(db, ""); err == nil || !strings.Contains(err.Error(), "no genesis file") {
		t.Fatalf("expected missing genesis error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(minimalGenesis), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	head, applied, err := openChain(db, path)
	if err != nil {
		t.Fatalf("open chain: %v", err)
	}
	if !applied || head.Height != 0 || head.Timestamp != 1704067200 {
		t.Fatalf("unexpected genesis head %+v applied=%v", head, applied)
	}

	head, applied, err = openChain(db, "")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if applied || head.Timestamp != 1704067200 {
		t.Fatalf("persisted head not resumed: %+v applied=%v", head, applied)
	}
}
