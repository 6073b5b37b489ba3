package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenApprove lets spender pull up to amount of symbol from owner.
func (n *Node) TokenApprove(ctx context.Context, owner common.Address, symbol string, spender common.Address, amount *big.Int) error {
	return n.Execute(ctx, "token.approve", owner, func(rt *Runtime) error {
		return rt.Tokens.Approve(symbol, owner, spender, amount)
	})
}

func (n *Node) TokenTransfer(ctx context.Context, from common.Address, symbol string, to common.Address, amount *big.Int) error {
	return n.Execute(ctx, "token.transfer", from, func(rt *Runtime) error {
		return rt.Tokens.Transfer(symbol, from, to, amount)
	})
}

func (n *Node) TokenBalance(ctx context.Context, symbol string, addr common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Tokens.BalanceOf(symbol, addr)
		return err
	})
	return out, err
}

func (n *Node) TokenAllowance(ctx context.Context, symbol string, owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Tokens.Allowance(symbol, owner, spender)
		return err
	})
	return out, err
}
