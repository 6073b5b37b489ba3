package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/native/staking"
)

func stakingQueueKey(addr common.Address) []byte {
	key := make([]byte, 0, len(stakingQueuePrefix)+common.AddressLength)
	key = append(key, stakingQueuePrefix...)
	return append(key, addr.Bytes()...)
}

func stakingPositionKey(addr common.Address, index uint64) []byte {
	key := make([]byte, 0, len(stakingPositionPrefix)+common.AddressLength+8)
	key = append(key, stakingPositionPrefix...)
	key = append(key, addr.Bytes()...)
	return binary.BigEndian.AppendUint64(key, index)
}

// StakingConfig loads the staking parameters and reward treasury.
func (m *Manager) StakingConfig() (*staking.Config, bool, error) {
	cfg := new(staking.Config)
	ok, err := m.KVGet(stakingConfigKeyBytes, cfg)
	if err != nil || !ok {
		return nil, ok, err
	}
	if cfg.TotalStaked == nil {
		cfg.TotalStaked = big.NewInt(0)
	}
	return cfg, true, nil
}

// PutStakingConfig stores the staking parameters and reward treasury.
func (m *Manager) PutStakingConfig(cfg *staking.Config) error {
	if cfg == nil {
		return fmt.Errorf("staking: config must not be nil")
	}
	for _, v := range []*big.Int{cfg.Rewards.Funded, cfg.Rewards.Paid, cfg.TotalStaked} {
		if err := CheckAmount(v); err != nil {
			return err
		}
	}
	return m.KVPut(stakingConfigKeyBytes, cfg)
}

// StakingQueue loads the queue cursors of addr; a participant without
// positions gets an empty queue.
func (m *Manager) StakingQueue(addr common.Address) (*staking.Queue, error) {
	q := new(staking.Queue)
	ok, err := m.KVGet(stakingQueueKey(addr), q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &staking.Queue{Owner: addr}, nil
	}
	q.Owner = addr
	return q, nil
}

// PutStakingQueue stores the queue cursors.
func (m *Manager) PutStakingQueue(q *staking.Queue) error {
	if q == nil {
		return fmt.Errorf("staking: queue must not be nil")
	}
	if q.Head > q.Tail {
		return fmt.Errorf("staking: queue head %d past tail %d", q.Head, q.Tail)
	}
	return m.KVPut(stakingQueueKey(q.Owner), q)
}

// StakingPosition loads one position of addr.
func (m *Manager) StakingPosition(addr common.Address, index uint64) (*staking.Position, bool, error) {
	pos := new(staking.Position)
	ok, err := m.KVGet(stakingPositionKey(addr, index), pos)
	if err != nil || !ok {
		return nil, ok, err
	}
	if pos.Amount == nil {
		pos.Amount = big.NewInt(0)
	}
	return pos, true, nil
}

// PutStakingPosition stores a position. Positions are never deleted so that
// claimed history stays queryable.
func (m *Manager) PutStakingPosition(pos *staking.Position) error {
	if pos == nil {
		return fmt.Errorf("staking: position must not be nil")
	}
	if err := CheckAmount(pos.Amount); err != nil {
		return err
	}
	return m.KVPut(stakingPositionKey(pos.Owner, pos.Index), pos)
}

// StakingPositions returns the positions of addr between the queue head and
// tail, claimed or not.
func (m *Manager) StakingPositions(addr common.Address) ([]*staking.Position, error) {
	q, err := m.StakingQueue(addr)
	if err != nil {
		return nil, err
	}
	out := make([]*staking.Position, 0, q.Len())
	for i := q.Head; i < q.Tail; i++ {
		pos, ok, err := m.StakingPosition(addr, i)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, pos)
		}
	}
	return out, nil
}
