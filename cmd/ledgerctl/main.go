package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"stakeledger/cmd/internal/secret"
	"stakeledger/config"
	"stakeledger/core/genesis"
	"stakeledger/gateway/auth"
	"stakeledger/integrations/exports"
	"stakeledger/storage/history"
)

const (
	tokenCommand  = "token"
	exportCommand = "export"
	initCommand   = "init"
	defaultConfig = "./config.toml"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case tokenCommand:
		err = runToken(os.Args[2:], os.Stdout)
	case exportCommand:
		err = runExport(os.Args[2:], os.Stdout)
	case initCommand:
		err = runInit(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(tokenCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the ledger config file")
	address := fs.String("address", "", "Account the token authenticates as")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	scopes := fs.String("scopes", "", "Comma-separated scopes; empty grants every route")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	source := secret.NewSource(cfg.Auth.HMACSecretEnv, "gateway signing secret").WithFallback(cfg.Auth.HMACSecret)
	return issueToken(cfg, source.Get, *address, *ttl, *scopes, out)
}

func issueToken(cfg *config.Config, secretFn func() (string, error), address string, ttl time.Duration, scopes string, out io.Writer) error {
	addr, err := genesis.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("--address: %w", err)
	}
	signingSecret, err := secretFn()
	if err != nil {
		return err
	}
	var scopeList []string
	for _, scope := range strings.Split(scopes, ",") {
		if trimmed := strings.TrimSpace(scope); trimmed != "" {
			scopeList = append(scopeList, trimmed)
		}
	}
	token, err := auth.Issue(auth.Config{
		HMACSecret: signingSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	}, auth.IssueRequest{Address: addr, TTL: ttl, Scopes: scopeList})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

func runExport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(exportCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the ledger config file")
	dsn := fs.String("dsn", "", "History database (defaults to the config History.DSN)")
	format := fs.String("format", string(exports.FormatCSV), "csv, jsonl or parquet")
	output := fs.String("out", "", "Output file (required for parquet; stdout otherwise)")
	account := fs.String("account", "", "Only export payouts to this account")
	module := fs.String("module", "", "Only export payouts of this module")
	kind := fs.String("kind", "", "reward, principal or shortfall")
	from := fs.Uint64("from", 0, "First block height")
	to := fs.Uint64("to", 0, "Last block height")
	fs.Parse(args)

	target := strings.TrimSpace(*dsn)
	if target == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		target = cfg.ResolvePath(cfg.History.DSN)
	}
	index, err := history.Open(target, history.Options{})
	if err != nil {
		return err
	}
	defer index.CloseDB()

	return exportPayouts(context.Background(), index, exportRequest{
		Format: *format,
		Output: *output,
		Filter: history.Filter{
			Account:    *account,
			Module:     *module,
			Kind:       *kind,
			FromHeight: *from,
			ToHeight:   *to,
		},
	}, out)
}

type exportRequest struct {
	Format string
	Output string
	Filter history.Filter
}

func exportPayouts(ctx context.Context, index *history.Index, req exportRequest, out io.Writer) error {
	f, err := exports.ParseFormat(req.Format)
	if err != nil {
		return err
	}
	if f == exports.FormatParquet && req.Output == "" {
		return errors.New("--out is required for parquet exports")
	}
	if m := req.Filter.Module; m != "" && !knownModule(m) {
		return fmt.Errorf("unknown module %q", m)
	}
	rows, err := index.Payouts(ctx, req.Filter)
	if err != nil {
		return err
	}
	data, sum, err := exports.Encode(f, rows)
	if err != nil {
		return err
	}
	if req.Output == "" {
		if _, err := out.Write(data); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "sha256 %s (%d payouts)\n", sum, len(rows))
		return nil
	}
	if err := os.WriteFile(req.Output, data, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(req.Output+".sha256", []byte(sum+"\n"), 0o644); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "wrote %s (%d payouts, sha256 %s)\n", req.Output, len(rows), sum)
	return err
}

func knownModule(m string) bool {
	for _, known := range history.Modules() {
		if m == known {
			return true
		}
	}
	return false
}

func runInit(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(initCommand, flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path of the config file to write")
	dataDir := fs.String("data-dir", "", "Data directory recorded in the config")
	genesisPath := fs.String("genesis", "", "Genesis file recorded in the config")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	fs.Parse(args)

	return writeConfig(*configPath, *dataDir, *genesisPath, *force, out)
}

func writeConfig(path, dataDir, genesisPath string, force bool, out io.Writer) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists; pass --force to overwrite", path)
	}
	cfg := config.Default()
	if trimmed := strings.TrimSpace(dataDir); trimmed != "" {
		cfg.DataDir = trimmed
	}
	cfg.GenesisFile = strings.TrimSpace(genesisPath)
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	if err := config.Write(path, cfg); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "wrote %s\n", path)
	return err
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: ledgerctl <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  %s   Issue a gateway bearer token for an account\n", tokenCommand)
	fmt.Fprintf(os.Stderr, "  %s  Export payout history as CSV, JSONL or Parquet\n", exportCommand)
	fmt.Fprintf(os.Stderr, "  %s    Write a default config file\n", initCommand)
}
