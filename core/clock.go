package core

import (
	"context"
	"sync"
	"time"

	"stakeledger/core/types"
)

// Clock supplies the block context calls execute under.
type Clock interface {
	Head() types.BlockHeader
}

// ChainClock advances one block per Tick. Timestamps follow the wall clock
// at second resolution and never move backwards.
type ChainClock struct {
	mu   sync.Mutex
	head types.BlockHeader
	now  func() time.Time
}

// NewChainClock resumes the chain from start.
func NewChainClock(start types.BlockHeader, now func() time.Time) *ChainClock {
	if now == nil {
		now = time.Now
	}
	return &ChainClock{head: start, now: now}
}

// Head implements Clock.
func (c *ChainClock) Head() types.BlockHeader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// Tick produces the next block.
func (c *ChainClock) Tick() types.BlockHeader {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head.Height++
	if ts := c.now().Unix(); ts > 0 && uint64(ts) > c.head.Timestamp {
		c.head.Timestamp = uint64(ts)
	}
	return c.head
}

// Run ticks every interval until ctx is cancelled. onTick, when set, observes
// every new header.
func (c *ChainClock) Run(ctx context.Context, interval time.Duration, onTick func(types.BlockHeader)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			head := c.Tick()
			if onTick != nil {
				onTick(head)
			}
		}
	}
}

// ManualClock is a Clock moved explicitly by the caller.
type ManualClock struct {
	mu   sync.Mutex
	head types.BlockHeader
}

func NewManualClock(height, timestamp uint64) *ManualClock {
	return &ManualClock{head: types.BlockHeader{Height: height, Timestamp: timestamp}}
}

// Head implements Clock.
func (c *ManualClock) Head() types.BlockHeader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// Set jumps to the given block context.
func (c *ManualClock) Set(height, timestamp uint64) {
	c.mu.Lock()
	c.head = types.BlockHeader{Height: height, Timestamp: timestamp}
	c.mu.Unlock()
}

// Advance moves forward by blocks and seconds.
func (c *ManualClock) Advance(blocks, seconds uint64) {
	c.mu.Lock()
	c.head.Height += blocks
	c.head.Timestamp += seconds
	c.mu.Unlock()
}
