package farming

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/core/types"
)

const (
	// EventTypeFunded is emitted when rewards extend the emission window.
	EventTypeFunded = "farming.funded"
	// EventTypePoolAdded is emitted when the owner registers a pool.
	EventTypePoolAdded = "farming.pool.added"
	// EventTypePoolWeight is emitted when a pool weight changes.
	EventTypePoolWeight = "farming.pool.weight"
	// EventTypeDeposit is emitted when principal enters a pool.
	EventTypeDeposit = "farming.deposit"
	// EventTypeWithdraw is emitted when principal leaves a pool.
	EventTypeWithdraw = "farming.withdraw"
	// EventTypeEmergencyWithdraw is emitted when principal leaves without reward.
	EventTypeEmergencyWithdraw = "farming.emergencyWithdraw"
	// EventTypeRewardPaid is emitted for every harvested reward.
	EventTypeRewardPaid = "farming.reward.paid"
	// EventTypePaused is emitted when the deposit pause toggle flips.
	EventTypePaused = "farming.paused"
)

func hexAddr(a common.Address) string { return strings.ToLower(a.Hex()) }

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// FundedEvent records a funding call.
func FundedEvent(funder common.Address, amount *big.Int, endTick uint64) *types.Event {
	return &types.Event{
		Type: EventTypeFunded,
		Attributes: map[string]string{
			"funder":  hexAddr(funder),
			"amount":  amountString(amount),
			"endTick": strconv.FormatUint(endTick, 10),
		},
	}
}

// PoolAddedEvent records a new pool.
func PoolAddedEvent(p *Pool) *types.Event {
	return &types.Event{
		Type: EventTypePoolAdded,
		Attributes: map[string]string{
			"pool":           strconv.FormatUint(p.ID, 10),
			"asset":          p.Asset,
			"weight":         strconv.FormatUint(p.Weight, 10),
			"lastRewardTick": strconv.FormatUint(p.LastRewardTick, 10),
		},
	}
}

// PoolWeightEvent records a weight change.
func PoolWeightEvent(id, previous, weight uint64) *types.Event {
	return &types.Event{
		Type: EventTypePoolWeight,
		Attributes: map[string]string{
			"pool":     strconv.FormatUint(id, 10),
			"previous": strconv.FormatUint(previous, 10),
			"weight":   strconv.FormatUint(weight, 10),
		},
	}
}

// DepositEvent records principal entering a pool.
func DepositEvent(id uint64, owner common.Address, amount, balance *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDeposit,
		Attributes: map[string]string{
			"pool":    strconv.FormatUint(id, 10),
			"account": hexAddr(owner),
			"amount":  amountString(amount),
			"balance": amountString(balance),
		},
	}
}

// WithdrawEvent records principal leaving a pool.
func WithdrawEvent(id uint64, owner common.Address, amount, balance *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeWithdraw,
		Attributes: map[string]string{
			"pool":    strconv.FormatUint(id, 10),
			"account": hexAddr(owner),
			"amount":  amountString(amount),
			"balance": amountString(balance),
		},
	}
}

// EmergencyWithdrawEvent records a reward-forfeiting exit.
func EmergencyWithdrawEvent(id uint64, owner common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeEmergencyWithdraw,
		Attributes: map[string]string{
			"pool":    strconv.FormatUint(id, 10),
			"account": hexAddr(owner),
			"amount":  amountString(amount),
		},
	}
}

// RewardPaidEvent records a harvested reward.
func RewardPaidEvent(id uint64, owner common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRewardPaid,
		Attributes: map[string]string{
			"pool":    strconv.FormatUint(id, 10),
			"account": hexAddr(owner),
			"amount":  amountString(amount),
			"kind":    "farming",
		},
	}
}

// PausedEvent records a pause toggle change.
func PausedEvent(caller common.Address, paused bool) *types.Event {
	return &types.Event{
		Type: EventTypePaused,
		Attributes: map[string]string{
			"account": hexAddr(caller),
			"paused":  strconv.FormatBool(paused),
		},
	}
}
