package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/native/farming"
)

func farmingPoolKey(id uint64) []byte {
	key := make([]byte, len(farmingPoolPrefix)+8)
	copy(key, farmingPoolPrefix)
	binary.BigEndian.PutUint64(key[len(farmingPoolPrefix):], id)
	return key
}

func farmingPositionKey(id uint64, addr common.Address) []byte {
	key := make([]byte, 0, len(farmingPositionPrefix)+8+common.AddressLength)
	key = append(key, farmingPositionPrefix...)
	key = binary.BigEndian.AppendUint64(key, id)
	return append(key, addr.Bytes()...)
}

// FarmingWindow loads the farm emission schedule.
func (m *Manager) FarmingWindow() (*farming.Window, bool, error) {
	w := new(farming.Window)
	ok, err := m.KVGet(farmingWindowKeyBytes, w)
	if err != nil || !ok {
		return nil, ok, err
	}
	if w.RewardPerTick == nil {
		w.RewardPerTick = big.NewInt(0)
	}
	if w.Allocated == nil {
		w.Allocated = big.NewInt(0)
	}
	return w, true, nil
}

// PutFarmingWindow stores the farm emission schedule.
func (m *Manager) PutFarmingWindow(w *farming.Window) error {
	if w == nil {
		return fmt.Errorf("farming: window must not be nil")
	}
	for _, v := range []*big.Int{w.RewardPerTick, w.Rewards.Funded, w.Rewards.Paid, w.Allocated} {
		if err := CheckAmount(v); err != nil {
			return err
		}
	}
	return m.KVPut(farmingWindowKeyBytes, w)
}

// FarmingPool loads a pool by index.
func (m *Manager) FarmingPool(id uint64) (*farming.Pool, bool, error) {
	p := new(farming.Pool)
	ok, err := m.KVGet(farmingPoolKey(id), p)
	if err != nil || !ok {
		return nil, ok, err
	}
	if p.AccRewardPerShare == nil {
		p.AccRewardPerShare = big.NewInt(0)
	}
	if p.TotalDeposited == nil {
		p.TotalDeposited = big.NewInt(0)
	}
	return p, true, nil
}

// PutFarmingPool stores a pool.
func (m *Manager) PutFarmingPool(p *farming.Pool) error {
	if p == nil {
		return fmt.Errorf("farming: pool must not be nil")
	}
	if err := CheckAmount(p.AccRewardPerShare); err != nil {
		return err
	}
	if err := CheckAmount(p.TotalDeposited); err != nil {
		return err
	}
	return m.KVPut(farmingPoolKey(p.ID), p)
}

// FarmingPosition loads a position; absent positions are returned zeroed.
func (m *Manager) FarmingPosition(id uint64, addr common.Address) (*farming.Position, error) {
	pos := new(farming.Position)
	ok, err := m.KVGet(farmingPositionKey(id, addr), pos)
	if err != nil {
		return nil, err
	}
	if !ok {
		pos = &farming.Position{PoolID: id, Owner: addr}
	}
	if pos.Amount == nil {
		pos.Amount = big.NewInt(0)
	}
	if pos.RewardDebt == nil {
		pos.RewardDebt = big.NewInt(0)
	}
	return pos, nil
}

// PutFarmingPosition stores a position. Empty positions are deleted.
func (m *Manager) PutFarmingPosition(pos *farming.Position) error {
	if pos == nil {
		return fmt.Errorf("farming: position must not be nil")
	}
	key := farmingPositionKey(pos.PoolID, pos.Owner)
	if (pos.Amount == nil || pos.Amount.Sign() == 0) && (pos.RewardDebt == nil || pos.RewardDebt.Sign() == 0) {
		return m.KVDelete(key)
	}
	if err := CheckAmount(pos.Amount); err != nil {
		return err
	}
	if err := CheckAmount(pos.RewardDebt); err != nil {
		return err
	}
	return m.KVPut(key, pos)
}
