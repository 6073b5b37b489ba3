package staking

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/native/treasury"
)

// PercentageScale is the basis-point denominator of reward percentages.
const PercentageScale = 10_000

// Position is one fixed-term stake. The reward percentage is captured when the
// position is created and never changes afterwards.
type Position struct {
	Owner             common.Address
	Index             uint64
	Amount            *big.Int
	Timestamp         uint64
	RewardsPercentage uint64
	SingleClaimed     bool
}

// Entitlement returns Amount * RewardsPercentage / PercentageScale.
func (p *Position) Entitlement() *big.Int {
	if p == nil || p.Amount == nil || p.Amount.Sign() == 0 || p.RewardsPercentage == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(p.Amount, new(big.Int).SetUint64(p.RewardsPercentage))
	return out.Quo(out, big.NewInt(PercentageScale))
}

// Mature reports whether the term has elapsed at now.
func (p *Position) Mature(now, term uint64) bool {
	if p == nil || now < p.Timestamp {
		return false
	}
	return now-p.Timestamp >= term
}

// Queue tracks a participant's positions. Head is the first position not yet
// withdrawn through the FIFO paths; Tail is the number of positions ever
// created. Head <= Tail always holds.
type Queue struct {
	Owner common.Address
	Head  uint64
	Tail  uint64
}

// Len returns the number of positions not yet passed by the FIFO cursor.
func (q *Queue) Len() uint64 {
	if q == nil || q.Tail < q.Head {
		return 0
	}
	return q.Tail - q.Head
}

// Config holds the global staking parameters and the reward treasury.
type Config struct {
	StakingToken      string
	RewardToken       string
	RewardsPercentage uint64
	Term              uint64
	Rewards           treasury.Ledger
	TotalStaked       *big.Int
}

// AvailableRewards returns the unpaid reward balance.
func (c *Config) AvailableRewards() *big.Int {
	if c == nil {
		return big.NewInt(0)
	}
	return c.Rewards.Available()
}

// Params configures a new staking module.
type Params struct {
	StakingToken      string
	RewardToken       string
	RewardsPercentage uint64
	TermSeconds       uint64
}

// Payout summarizes what a withdrawal returned.
type Payout struct {
	Principal   *big.Int
	Reward      *big.Int
	Entitlement *big.Int
	Positions   []uint64

	// TreasuryExhausted is set when the payout left no reward to pay.
	TreasuryExhausted bool
}

func newPayout() *Payout {
	return &Payout{Principal: big.NewInt(0), Reward: big.NewInt(0), Entitlement: big.NewInt(0)}
}

// Shortfall returns the entitlement that could not be paid.
func (p *Payout) Shortfall() *big.Int {
	if p == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(p.Entitlement, p.Reward)
}

// EarlyUnstakePolicy decides what the graceful unstake does with an immature
// head position.
type EarlyUnstakePolicy string

const (
	// EarlyUnstakeRelease returns the principal and forfeits the reward.
	EarlyUnstakeRelease EarlyUnstakePolicy = "release"
	// EarlyUnstakeReject rejects the call.
	EarlyUnstakeReject EarlyUnstakePolicy = "reject"
)

// ParseEarlyUnstakePolicy validates a policy name. The empty string selects
// EarlyUnstakeRelease.
func ParseEarlyUnstakePolicy(v string) (EarlyUnstakePolicy, error) {
	switch EarlyUnstakePolicy(strings.ToLower(strings.TrimSpace(v))) {
	case "", EarlyUnstakeRelease:
		return EarlyUnstakeRelease, nil
	case EarlyUnstakeReject:
		return EarlyUnstakeReject, nil
	default:
		return "", fmt.Errorf("staking: unknown early unstake policy %q", v)
	}
}
