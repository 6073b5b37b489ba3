package farming

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/native/treasury"
)

// Pool is one staking target of the farm. Pools are addressed by insertion
// index and never removed.
type Pool struct {
	ID                uint64
	Asset             string
	Weight            uint64
	LastRewardTick    uint64
	AccRewardPerShare *big.Int
	TotalDeposited    *big.Int
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := *p
	out.AccRewardPerShare = cloneOrZero(p.AccRewardPerShare)
	out.TotalDeposited = cloneOrZero(p.TotalDeposited)
	return &out
}

// Position is a participant's stake in one pool.
type Position struct {
	PoolID     uint64
	Owner      common.Address
	Amount     *big.Int
	RewardDebt *big.Int
}

// Window is the farm-wide emission schedule. Emission runs from OpenTick to
// EndTick at RewardPerTick; OpenTick equals StartTick unless the first funding
// arrived after the start.
type Window struct {
	RewardToken   string
	RewardPerTick *big.Int
	StartTick     uint64
	OpenTick      uint64
	EndTick       uint64
	TotalWeight   uint64
	PoolCount     uint64
	Rewards       treasury.Ledger

	// Allocated is the reward credited to pool accumulators and still owed to
	// depositors. Emission over empty or zero-weight pools is never credited.
	Allocated *big.Int
}

// Clone returns a deep copy of the window.
func (w *Window) Clone() *Window {
	if w == nil {
		return nil
	}
	out := *w
	out.RewardPerTick = cloneOrZero(w.RewardPerTick)
	out.Rewards = w.Rewards.Clone()
	out.Allocated = cloneOrZero(w.Allocated)
	return &out
}

// Funded reports whether any reward has ever been deposited.
func (w *Window) Funded() bool {
	return w != nil && w.Rewards.Funded != nil && w.Rewards.Funded.Sign() > 0
}

// Params configures a new farm.
type Params struct {
	RewardToken   string
	RewardPerTick *big.Int
	StartTick     uint64
}

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
