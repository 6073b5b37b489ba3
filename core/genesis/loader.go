package genesis

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/core/state"
	"stakeledger/core/types"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/farming"
	"stakeledger/native/params"
	"stakeledger/native/staking"
	"stakeledger/native/token"
	"stakeledger/storage"
)

// ErrAlreadyInitialized is returned when the database already holds a chain.
var ErrAlreadyInitialized = errors.New("genesis: database already initialized")

// Apply writes the genesis state into db in one batch and returns the genesis
// header.
func Apply(spec *GenesisSpec, db storage.Database) (*types.BlockHeader, error) {
	if spec == nil {
		return nil, fmt.Errorf("genesis spec must not be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database must not be nil")
	}
	manager := state.NewManager(db)
	if _, ok, err := manager.ChainHead(); err != nil {
		return nil, fmt.Errorf("load chain head: %w", err)
	} else if ok {
		return nil, ErrAlreadyInitialized
	}

	ts := spec.GenesisTimestamp()
	if ts.IsZero() {
		parsed, err := parseGenesisTime(spec.GenesisTime)
		if err != nil {
			return nil, err
		}
		ts = parsed
	}
	header := &types.BlockHeader{Height: 0, Timestamp: uint64(ts.Unix())}

	if err := build(spec, manager, header); err != nil {
		manager.Discard()
		return nil, err
	}
	if err := manager.PutChainHead(header); err != nil {
		return nil, err
	}
	if err := manager.Commit(); err != nil {
		return nil, fmt.Errorf("commit genesis: %w", err)
	}
	return header, nil
}

func build(spec *GenesisSpec, manager *state.Manager, header *types.BlockHeader) error {
	// 1) Tokens (sorted)
	tokens := append([]TokenSpec(nil), spec.Tokens...)
	sort.Slice(tokens, func(i, j int) bool {
		return normalizeSymbol(tokens[i].Symbol) < normalizeSymbol(tokens[j].Symbol)
	})
	for _, tk := range tokens {
		decimals := tk.Decimals
		if decimals == 0 {
			decimals = 18
		}
		name := strings.TrimSpace(tk.Name)
		if name == "" {
			name = normalizeSymbol(tk.Symbol)
		}
		if err := manager.RegisterToken(tk.Symbol, name, decimals); err != nil {
			return fmt.Errorf("register token %q: %w", tk.Symbol, err)
		}
	}

	// 2) Allocations (outer: addresses sorted; inner: symbols sorted)
	ledger := token.NewLedger(manager)
	accounts := make([]string, 0, len(spec.Alloc))
	for account := range spec.Alloc {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	for _, account := range accounts {
		addr, err := ParseAddress(account)
		if err != nil {
			return fmt.Errorf("alloc[%q]: %w", account, err)
		}
		balances := spec.Alloc[account]
		symbols := make([]string, 0, len(balances))
		for symbol := range balances {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			amount, err := parseAmountString(balances[symbol])
			if err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", account, symbol, err)
			}
			if err := ledger.Mint(normalizeSymbol(symbol), addr, amount); err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", account, symbol, err)
			}
		}
	}

	// 3) Roles (role name sorted; addresses sorted)
	roleNames := make([]string, 0, len(spec.Roles))
	for role := range spec.Roles {
		roleNames = append(roleNames, role)
	}
	sort.Strings(roleNames)
	for _, role := range roleNames {
		members := append([]string(nil), spec.Roles[role]...)
		sort.Strings(members)
		for _, member := range members {
			addr, err := ParseAddress(member)
			if err != nil {
				return fmt.Errorf("roles[%q]: %w", role, err)
			}
			if err := manager.SetRole(strings.TrimSpace(role), addr); err != nil {
				return fmt.Errorf("roles[%q]: %w", role, err)
			}
		}
	}

	// 4) Engines
	if f := spec.Farming; f != nil {
		engine := farming.NewEngine(nativecommon.ModuleAddress(params.ModuleFarming))
		engine.SetState(manager)
		engine.SetAuthorizer(nativecommon.AllowAll{})
		engine.SetBlockHeight(header.Height)
		rate := f.rewardPerTick
		if rate == nil {
			parsed, err := parseAmountString(f.RewardPerTick)
			if err != nil {
				return fmt.Errorf("farming.rewardPerTick: %w", err)
			}
			rate = parsed
		}
		if err := engine.Initialize(farming.Params{
			RewardToken:   f.RewardToken,
			RewardPerTick: new(big.Int).Set(rate),
			StartTick:     f.StartTick,
		}); err != nil {
			return fmt.Errorf("farming: %w", err)
		}
		for i, pool := range f.Pools {
			if _, err := engine.AddPool(nativecommon.ModuleAddress(params.ModuleFarming), pool.Weight, normalizeSymbol(pool.Asset), false); err != nil {
				return fmt.Errorf("farming.pools[%d]: %w", i, err)
			}
		}
	}

	if st := spec.Staking; st != nil {
		engine := staking.NewEngine(nativecommon.ModuleAddress(params.ModuleStaking))
		engine.SetState(manager)
		var admin common.Address
		if strings.TrimSpace(st.Admin) != "" {
			addr, err := ParseAddress(st.Admin)
			if err != nil {
				return fmt.Errorf("staking.admin: %w", err)
			}
			admin = addr
		}
		if err := engine.Initialize(admin, staking.Params{
			StakingToken:      st.StakingToken,
			RewardToken:       st.RewardToken,
			RewardsPercentage: st.RewardsPercentage,
			TermSeconds:       st.TermSeconds,
		}); err != nil {
			return fmt.Errorf("staking: %w", err)
		}
	}
	return nil
}
