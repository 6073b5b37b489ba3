package routes

import (
	"strings"

	"stakeledger/core/types"
	"stakeledger/native/farming"
	"stakeledger/native/staking"
	"stakeledger/native/treasury"
)

type headView struct {
	Height    uint64 `json:"height"`
	Timestamp uint64 `json:"timestamp"`
}

func newHeadView(h types.BlockHeader) headView {
	return headView{Height: h.Height, Timestamp: h.Timestamp}
}

type treasuryView struct {
	Funded    string `json:"funded"`
	Paid      string `json:"paid"`
	Available string `json:"available"`
}

func newTreasuryView(l treasury.Ledger) treasuryView {
	return treasuryView{
		Funded:    amountString(l.Funded),
		Paid:      amountString(l.Paid),
		Available: amountString(l.Available()),
	}
}

type windowView struct {
	RewardToken   string       `json:"rewardToken"`
	RewardPerTick string       `json:"rewardPerTick"`
	StartTick     uint64       `json:"startTick"`
	OpenTick      uint64       `json:"openTick"`
	EndTick       uint64       `json:"endTick"`
	TotalWeight   uint64       `json:"totalWeight"`
	PoolCount     uint64       `json:"poolCount"`
	Rewards       treasuryView `json:"rewards"`
}

func newWindowView(w *farming.Window) windowView {
	return windowView{
		RewardToken:   w.RewardToken,
		RewardPerTick: amountString(w.RewardPerTick),
		StartTick:     w.StartTick,
		OpenTick:      w.OpenTick,
		EndTick:       w.EndTick,
		TotalWeight:   w.TotalWeight,
		PoolCount:     w.PoolCount,
		Rewards:       newTreasuryView(w.Rewards),
	}
}

type poolView struct {
	ID                uint64 `json:"id"`
	Asset             string `json:"asset"`
	Weight            uint64 `json:"weight"`
	LastRewardTick    uint64 `json:"lastRewardTick"`
	AccRewardPerShare string `json:"accRewardPerShare"`
	TotalDeposited    string `json:"totalDeposited"`
}

func newPoolView(p *farming.Pool) poolView {
	return poolView{
		ID:                p.ID,
		Asset:             p.Asset,
		Weight:            p.Weight,
		LastRewardTick:    p.LastRewardTick,
		AccRewardPerShare: amountString(p.AccRewardPerShare),
		TotalDeposited:    amountString(p.TotalDeposited),
	}
}

type stakingConfigView struct {
	StakingToken      string       `json:"stakingToken"`
	RewardToken       string       `json:"rewardToken"`
	RewardsPercentage uint64       `json:"rewardsPercentage"`
	TermSeconds       uint64       `json:"termSeconds"`
	TotalStaked       string       `json:"totalStaked"`
	Rewards           treasuryView `json:"rewards"`
	Paused            bool         `json:"paused"`
}

func newStakingConfigView(c *staking.Config, paused bool) stakingConfigView {
	return stakingConfigView{
		StakingToken:      c.StakingToken,
		RewardToken:       c.RewardToken,
		RewardsPercentage: c.RewardsPercentage,
		TermSeconds:       c.Term,
		TotalStaked:       amountString(c.TotalStaked),
		Rewards:           newTreasuryView(c.Rewards),
		Paused:            paused,
	}
}

type positionView struct {
	Owner             string `json:"owner"`
	Index             uint64 `json:"index"`
	Amount            string `json:"amount"`
	Timestamp         uint64 `json:"timestamp"`
	RewardsPercentage uint64 `json:"rewardsPercentage"`
	SingleClaimed     bool   `json:"singleClaimed"`
}

func newPositionView(p *staking.Position) positionView {
	return positionView{
		Owner:             strings.ToLower(p.Owner.Hex()),
		Index:             p.Index,
		Amount:            amountString(p.Amount),
		Timestamp:         p.Timestamp,
		RewardsPercentage: p.RewardsPercentage,
		SingleClaimed:     p.SingleClaimed,
	}
}

type payoutView struct {
	Principal   string   `json:"principal"`
	Reward      string   `json:"reward"`
	Entitlement string   `json:"entitlement"`
	Shortfall   string   `json:"shortfall"`
	Positions   []uint64 `json:"positions"`
}

func newPayoutView(p *staking.Payout) payoutView {
	positions := p.Positions
	if positions == nil {
		positions = []uint64{}
	}
	return payoutView{
		Principal:   amountString(p.Principal),
		Reward:      amountString(p.Reward),
		Entitlement: amountString(p.Entitlement),
		Shortfall:   amountString(p.Shortfall()),
		Positions:   positions,
	}
}
