package state

import (
	"fmt"

	"stakeledger/core/types"
)

// ChainHead loads the last committed block header.
func (m *Manager) ChainHead() (*types.BlockHeader, bool, error) {
	head := new(types.BlockHeader)
	ok, err := m.KVGet(chainHeadKeyBytes, head)
	if err != nil || !ok {
		return nil, ok, err
	}
	return head, true, nil
}

// PutChainHead records the header of the latest committed call.
func (m *Manager) PutChainHead(head *types.BlockHeader) error {
	if head == nil {
		return fmt.Errorf("state: chain head must not be nil")
	}
	return m.KVPut(chainHeadKeyBytes, head)
}
