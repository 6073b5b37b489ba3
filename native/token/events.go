package token

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/core/types"
)

const (
	// EventTypeTransfer is emitted for every balance movement.
	EventTypeTransfer = "token.transfer"
	// EventTypeApproval is emitted when an allowance changes.
	EventTypeApproval = "token.approval"
	// EventTypeMint is emitted when new supply is created.
	EventTypeMint = "token.mint"
)

func addr(a common.Address) string { return strings.ToLower(a.Hex()) }

// TransferEvent describes a balance movement.
func TransferEvent(symbol string, from, to common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"token":  symbol,
			"from":   addr(from),
			"to":     addr(to),
			"amount": amount.String(),
		},
	}
}

// ApprovalEvent describes an allowance update.
func ApprovalEvent(symbol string, owner, spender common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeApproval,
		Attributes: map[string]string{
			"token":   symbol,
			"owner":   addr(owner),
			"spender": addr(spender),
			"amount":  amount.String(),
		},
	}
}

// MintEvent describes new supply.
func MintEvent(symbol string, to common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeMint,
		Attributes: map[string]string{
			"token":  symbol,
			"to":     addr(to),
			"amount": amount.String(),
		},
	}
}
