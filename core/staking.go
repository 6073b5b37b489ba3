package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/native/staking"
)

// StakingStake opens a new position for caller.
func (n *Node) StakingStake(ctx context.Context, caller common.Address, amount *big.Int) (*staking.Position, error) {
	var pos *staking.Position
	err := n.Execute(ctx, "staking.stake", caller, func(rt *Runtime) error {
		var err error
		pos, err = rt.Staking.Stake(caller, amount)
		return err
	})
	return pos, err
}

func (n *Node) StakingUnstake(ctx context.Context, caller common.Address) (*staking.Payout, error) {
	var payout *staking.Payout
	err := n.Execute(ctx, "staking.unstake", caller, func(rt *Runtime) error {
		var err error
		payout, err = rt.Staking.Unstake(caller)
		return err
	})
	return payout, err
}

func (n *Node) StakingUnstakeForced(ctx context.Context, caller common.Address) (*staking.Payout, error) {
	var payout *staking.Payout
	err := n.Execute(ctx, "staking.unstakeForced", caller, func(rt *Runtime) error {
		var err error
		payout, err = rt.Staking.UnstakeForced(caller)
		return err
	})
	return payout, err
}

func (n *Node) StakingUnstakeSingle(ctx context.Context, caller common.Address, index uint64) (*staking.Payout, error) {
	var payout *staking.Payout
	err := n.Execute(ctx, "staking.unstakeSingle", caller, func(rt *Runtime) error {
		var err error
		payout, err = rt.Staking.UnstakeSingle(caller, index)
		return err
	})
	return payout, err
}

func (n *Node) StakingAddRewards(ctx context.Context, caller common.Address, amount *big.Int) error {
	return n.Execute(ctx, "staking.addRewards", caller, func(rt *Runtime) error {
		return rt.Staking.AddRewards(caller, amount)
	})
}

func (n *Node) StakingUpdateRewardsPercentage(ctx context.Context, caller common.Address, percentage uint64) error {
	return n.Execute(ctx, "staking.updateRewardsPercentage", caller, func(rt *Runtime) error {
		return rt.Staking.UpdateRewardsPercentage(caller, percentage)
	})
}

func (n *Node) StakingPause(ctx context.Context, caller common.Address) error {
	return n.Execute(ctx, "staking.pause", caller, func(rt *Runtime) error {
		return rt.Staking.Pause(caller)
	})
}

func (n *Node) StakingUnpause(ctx context.Context, caller common.Address) error {
	return n.Execute(ctx, "staking.unpause", caller, func(rt *Runtime) error {
		return rt.Staking.Unpause(caller)
	})
}

func (n *Node) StakingGrantRole(ctx context.Context, caller, account common.Address) error {
	return n.Execute(ctx, "staking.grantRole", caller, func(rt *Runtime) error {
		return rt.Staking.GrantRole(caller, account)
	})
}

func (n *Node) StakingRevokeRole(ctx context.Context, caller, account common.Address) error {
	return n.Execute(ctx, "staking.revokeRole", caller, func(rt *Runtime) error {
		return rt.Staking.RevokeRole(caller, account)
	})
}

// StakingComputeRewards returns what a forced unstake would pay addr now.
func (n *Node) StakingComputeRewards(ctx context.Context, addr common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Staking.ComputeRewards(addr)
		return err
	})
	return out, err
}

func (n *Node) StakingPosition(ctx context.Context, addr common.Address, index uint64) (*staking.Position, error) {
	var out *staking.Position
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Staking.Position(addr, index)
		return err
	})
	return out, err
}

// StakingPositions lists the positions between the queue head and tail.
func (n *Node) StakingPositions(ctx context.Context, addr common.Address) (*staking.Queue, []*staking.Position, error) {
	var (
		queue *staking.Queue
		out   []*staking.Position
	)
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		if queue, err = rt.Staking.Queue(addr); err != nil {
			return err
		}
		out, err = rt.State.StakingPositions(addr)
		return err
	})
	return queue, out, err
}

func (n *Node) StakingConfig(ctx context.Context) (*staking.Config, error) {
	var out *staking.Config
	err := n.Query(ctx, func(rt *Runtime) error {
		var err error
		out, err = rt.Staking.Config()
		return err
	})
	return out, err
}

func (n *Node) StakingPaused(ctx context.Context) (bool, error) {
	var out bool
	err := n.Query(ctx, func(rt *Runtime) error {
		out = rt.Staking.Paused()
		return nil
	})
	return out, err
}
