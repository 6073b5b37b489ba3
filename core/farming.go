package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/native/farming"
)

// FarmingFund adds reward tokens to the farm and extends its window.
func (n *Node) FarmingFund(ctx context.Context, caller common.Address, amount *big.Int) error {
	return n.Execute(ctx, "farming.fund", caller, func(rt *Runtime) error {
		return rt.Farming.Fund(caller, amount)
	})
}

func (n *Node) FarmingAddPool(ctx context.Context, caller common.Address, weight uint64, asset string, massUpdate bool) (*farming.Pool, error) {
	var pool *farming.Pool
	err := n.Execute(ctx, "farming.addPool", caller, func(rt *Runtime) error {
		var err error
		pool, err = rt.Farming.AddPool(caller, weight, asset, massUpdate)
		return err
	})
	return pool, err
}

func (n *Node) FarmingSetWeight(ctx context.Context, caller common.Address, pid, weight uint64, massUpdate bool) error {
	return n.Execute(ctx, "farming.setWeight", caller, func(rt *Runtime) error {
		return rt.Farming.SetWeight(caller, pid, weight, massUpdate)
	})
}

// FarmingDeposit deposits amount into pool pid and returns the harvested
// reward. A zero amount only harvests.
func (n *Node) FarmingDeposit(ctx context.Context, caller common.Address, pid uint64, amount *big.Int) (*big.Int, error) {
	var paid *big.Int
	err := n.Execute(ctx, "farming.deposit", caller, func(rt *Runtime) error {
		var err error
		paid, err = rt.Farming.Deposit(caller, pid, amount)
		return err
	})
	return paid, err
}

func (n *Node) FarmingWithdraw(ctx context.Context, caller common.Address, pid uint64, amount *big.Int) (*big.Int, error) {
	var paid *big.Int
	err := n.Execute(ctx, "farming.withdraw", caller, func(rt *Runtime) error {
		var err error
		paid, err = rt.Farming.Withdraw(caller, pid, amount)
		return err
	})
	return paid, err
}

func (n *Node) FarmingEmergencyWithdraw(ctx context.Context, caller common.Address, pid uint64) (*big.Int, error) {
	var amount *big.Int
	err := n.Execute(ctx, "farming.emergencyWithdraw", caller, func(rt *Runtime) error {
		var err error
		amount, err = rt.Farming.EmergencyWithdraw(caller, pid)
		return err
	})
	return amount, err
}

// FarmingSettle brings one pool's accumulator up to the current block.
func (n *Node) FarmingSettle(ctx context.Context, caller common.Address, pid uint64) error {
	return n.Execute(ctx, "farming.settle", caller, func(rt *Runtime) error {
		return rt.Farming.SettlePool(pid)
	})
}

func (n *Node) FarmingMassSettle(ctx context.Context, caller common.Address) error {
	return n.Execute(ctx, "farming.massSettle", caller, func(rt *Runtime) error {
		return rt.Farming.MassSettle()
	})
}

func (n *Node) FarmingSetPaused(ctx context.Context, caller common.Address, paused bool) error {
	return n.Execute(ctx, "farming.setPaused", caller, func(rt *Runtime) error {
		return rt.Farming.SetPaused(caller, paused)
	})
}

// FarmingPending returns the reward addr would harvest from pid now.
func (n *Node) FarmingPending(ctx context.Context, pid uint64, addr common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Farming.Pending(pid, addr)
		return err
	})
	return out, err
}

func (n *Node) FarmingTotalPending(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Farming.TotalPending()
		return err
	})
	return out, err
}

func (n *Node) FarmingDeposited(ctx context.Context, pid uint64, addr common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Farming.Deposited(pid, addr)
		return err
	})
	return out, err
}

func (n *Node) FarmingPool(ctx context.Context, pid uint64) (*farming.Pool, error) {
	var out *farming.Pool
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Farming.Pool(pid)
		return err
	})
	return out, err
}

func (n *Node) FarmingPoolLength(ctx context.Context) (uint64, error) {
	var out uint64
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Farming.PoolLength()
		return err
	})
	return out, err
}

func (n *Node) FarmingWindow(ctx context.Context) (*farming.Window, error) {
	var out *farming.Window
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Farming.Window()
		return err
	})
	return out, err
}
