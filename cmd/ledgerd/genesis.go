package main

import (
	"errors"
	"fmt"
	"strings"

	"stakeledger/core/genesis"
	"stakeledger/core/state"
	"stakeledger/core/types"
	"stakeledger/storage"
)

const genesisPathEnv = "LEDGER_GENESIS"

type envLookupFunc func(string) (string, bool)

// resolveGenesisPath prefers the CLI flag, then LEDGER_GENESIS, then the
// config file. An empty result is only valid for an initialised database.
func resolveGenesisPath(cliPath, cfgPath string, lookup envLookupFunc) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(cfgPath)
}

// openChain returns the persisted chain head, applying the genesis file when
// the database is empty.
func openChain(db storage.Database, genesisPath string) (types.BlockHeader, bool, error) {
	head, ok, err := state.NewManager(db).ChainHead()
	if err != nil {
		return types.BlockHeader{}, false, fmt.Errorf("read chain head: %w", err)
	}
	if ok {
		return *head, false, nil
	}
	if genesisPath == "" {
		return types.BlockHeader{}, false, errors.New("database is empty and no genesis file was provided; supply one via --genesis, " + genesisPathEnv + ", or config GenesisFile")
	}
	spec, err := genesis.LoadGenesisSpec(genesisPath)
	if err != nil {
		return types.BlockHeader{}, false, fmt.Errorf("load genesis spec: %w", err)
	}
	header, err := genesis.Apply(spec, db)
	if err != nil {
		return types.BlockHeader{}, false, fmt.Errorf("apply genesis: %w", err)
	}
	return *header, true, nil
}
