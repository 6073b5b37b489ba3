package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type GenesisSpec struct {
	GenesisTime string                       `yaml:"genesisTime"`
	Tokens      []TokenSpec                  `yaml:"tokens"`
	Alloc       map[string]map[string]string `yaml:"alloc"` // addr -> token -> amount
	Roles       map[string][]string          `yaml:"roles"` // role -> []addr
	Farming     *FarmingSpec                 `yaml:"farming,omitempty"`
	Staking     *StakingSpec                 `yaml:"staking,omitempty"`

	genesisTimestamp time.Time
}

type TokenSpec struct {
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals uint8  `yaml:"decimals"`
}

type FarmingSpec struct {
	RewardToken   string     `yaml:"rewardToken"`
	RewardPerTick string     `yaml:"rewardPerTick"`
	StartTick     uint64     `yaml:"startTick"`
	Pools         []PoolSpec `yaml:"pools"`

	rewardPerTick *big.Int
}

type PoolSpec struct {
	Asset  string `yaml:"asset"`
	Weight uint64 `yaml:"weight"`
}

type StakingSpec struct {
	StakingToken      string `yaml:"stakingToken"`
	RewardToken       string `yaml:"rewardToken"`
	RewardsPercentage uint64 `yaml:"rewardsPercentage"`
	TermSeconds       uint64 `yaml:"termSeconds"`
	Admin             string `yaml:"admin"`
}

// LoadGenesisSpec reads and validates a YAML genesis file.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes a YAML document, rejecting unknown fields.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

// ParseAddress accepts a 0x-prefixed hex account.
func ParseAddress(v string) (common.Address, error) {
	v = strings.TrimSpace(v)
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("invalid address %q", v)
	}
	return common.HexToAddress(v), nil
}

func parseGenesisTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
		if unix < 0 {
			return time.Time{}, fmt.Errorf("genesisTime must not be negative")
		}
		return time.Unix(unix, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid genesisTime %q: %w", v, err)
	}
	if ts.Unix() < 0 {
		return time.Time{}, fmt.Errorf("genesisTime must not be before the unix epoch")
	}
	return ts.UTC(), nil
}

func parseAmountString(v string) (*big.Int, error) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must be provided")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", v)
	}
	return amount, nil
}

func normalizeSymbol(v string) string { return strings.ToUpper(strings.TrimSpace(v)) }

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	tokenSymbols := make(map[string]struct{}, len(s.Tokens))
	for i, token := range s.Tokens {
		key := normalizeSymbol(token.Symbol)
		if key == "" {
			return fmt.Errorf("tokens[%d]: symbol must be provided", i)
		}
		if _, exists := tokenSymbols[key]; exists {
			return fmt.Errorf("tokens[%d]: duplicate symbol %q", i, token.Symbol)
		}
		tokenSymbols[key] = struct{}{}
	}
	requireToken := func(field, symbol string) error {
		if _, ok := tokenSymbols[normalizeSymbol(symbol)]; !ok {
			return fmt.Errorf("%s: undefined token %q", field, symbol)
		}
		return nil
	}

	accounts := make([]string, 0, len(s.Alloc))
	for account := range s.Alloc {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	for _, account := range accounts {
		if _, err := ParseAddress(account); err != nil {
			return fmt.Errorf("alloc[%q]: %w", account, err)
		}
		for symbol, amount := range s.Alloc[account] {
			if _, err := parseAmountString(amount); err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", account, symbol, err)
			}
			if err := requireToken(fmt.Sprintf("alloc[%q]", account), symbol); err != nil {
				return err
			}
		}
	}

	for role, members := range s.Roles {
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("roles: role name must be provided")
		}
		for _, member := range members {
			if _, err := ParseAddress(member); err != nil {
				return fmt.Errorf("roles[%q]: %w", role, err)
			}
		}
	}

	if f := s.Farming; f != nil {
		if err := requireToken("farming.rewardToken", f.RewardToken); err != nil {
			return err
		}
		rate, err := parseAmountString(f.RewardPerTick)
		if err != nil {
			return fmt.Errorf("farming.rewardPerTick: %w", err)
		}
		if rate.Sign() == 0 {
			return fmt.Errorf("farming.rewardPerTick must be positive")
		}
		f.rewardPerTick = rate
		for i, pool := range f.Pools {
			if err := requireToken(fmt.Sprintf("farming.pools[%d].asset", i), pool.Asset); err != nil {
				return err
			}
		}
	}

	if st := s.Staking; st != nil {
		if err := requireToken("staking.stakingToken", st.StakingToken); err != nil {
			return err
		}
		if err := requireToken("staking.rewardToken", st.RewardToken); err != nil {
			return err
		}
		if st.TermSeconds == 0 {
			return fmt.Errorf("staking.termSeconds must be positive")
		}
		if strings.TrimSpace(st.Admin) != "" {
			if _, err := ParseAddress(st.Admin); err != nil {
				return fmt.Errorf("staking.admin: %w", err)
			}
		}
	}
	return nil
}
