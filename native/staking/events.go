package staking

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/core/types"
)

const (
	// EventTypeStaked is emitted when a position is appended to a queue.
	EventTypeStaked = "staking.staked"
	// EventTypeUnstaked is emitted by the graceful FIFO unstake.
	EventTypeUnstaked = "staking.unstaked"
	// EventTypeUnstakedForced is emitted when a queue is drained.
	EventTypeUnstakedForced = "staking.unstaked.forced"
	// EventTypeUnstakedSingle is emitted when one position is claimed by index.
	EventTypeUnstakedSingle = "staking.unstaked.single"
	// EventTypeRewardsAdded is emitted when the treasury is topped up.
	EventTypeRewardsAdded = "staking.rewards.added"
	// EventTypePercentageUpdated is emitted when the reward percentage changes.
	EventTypePercentageUpdated = "staking.percentage.updated"
	EventTypePaused            = "staking.paused"
	EventTypeUnpaused          = "staking.unpaused"
	EventTypeRoleGranted       = "staking.role.granted"
	EventTypeRoleRevoked       = "staking.role.revoked"
)

func hexAddr(a common.Address) string { return strings.ToLower(a.Hex()) }

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func joinIndexes(idx []uint64) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

// StakedEvent records a new position.
func StakedEvent(pos *Position) *types.Event {
	return &types.Event{
		Type: EventTypeStaked,
		Attributes: map[string]string{
			"account":    hexAddr(pos.Owner),
			"index":      strconv.FormatUint(pos.Index, 10),
			"amount":     amountString(pos.Amount),
			"percentage": strconv.FormatUint(pos.RewardsPercentage, 10),
			"timestamp":  strconv.FormatUint(pos.Timestamp, 10),
		},
	}
}

// UnstakedEvent records a withdrawal of one or more positions.
func UnstakedEvent(eventType string, owner common.Address, p *Payout) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"account":     hexAddr(owner),
			"principal":   amountString(p.Principal),
			"reward":      amountString(p.Reward),
			"entitlement": amountString(p.Entitlement),
			"shortfall":   amountString(p.Shortfall()),
			"positions":   joinIndexes(p.Positions),
			"kind":        "staking",
			"exhausted":   strconv.FormatBool(p.TreasuryExhausted),
		},
	}
}

// RewardsAddedEvent records a treasury top-up.
func RewardsAddedEvent(funder common.Address, amount, available *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRewardsAdded,
		Attributes: map[string]string{
			"funder":    hexAddr(funder),
			"amount":    amountString(amount),
			"available": amountString(available),
		},
	}
}

func PercentageUpdatedEvent(previous, percentage uint64) *types.Event {
	return &types.Event{
		Type: EventTypePercentageUpdated,
		Attributes: map[string]string{
			"previous":   strconv.FormatUint(previous, 10),
			"percentage": strconv.FormatUint(percentage, 10),
		},
	}
}

func PauseEvent(eventType string, caller common.Address) *types.Event {
	return &types.Event{
		Type:       eventType,
		Attributes: map[string]string{"account": hexAddr(caller)},
	}
}

func RoleEvent(eventType string, caller, account common.Address) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"role":    AdminRoleID,
			"account": hexAddr(account),
			"sender":  hexAddr(caller),
		},
	}
}
