package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"stakeledger/core/events"
	"stakeledger/core/types"
	"stakeledger/native/farming"
	"stakeledger/native/staking"
)

const alice = "0x2222222222222222222222222222222222222222"

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	idx, err := Open(dsn, Options{QueueSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.CloseDB() })
	return idx
}

func unstakeEvent(id string, height uint64, principal, reward, shortfall string) *types.Event {
	return &types.Event{
		ID:     id,
		Type:   staking.EventTypeUnstaked,
		Height: height,
		Time:   1700000000 + height,
		Caller: alice,
		Attributes: map[string]string{
			"account":   alice,
			"principal": principal,
			"reward":    reward,
			"shortfall": shortfall,
			"positions": "0,1",
		},
	}
}

func TestIndexRecordsStakingPayouts(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Record(ctx, unstakeEvent("evt-1", 10, "200", "15", "5")))

	payouts, err := idx.Payouts(ctx, Filter{Account: alice})
	require.NoError(t, err)
	require.Len(t, payouts, 3)
	kinds := map[string]string{}
	for _, p := range payouts {
		kinds[p.Kind] = p.Amount
		require.Equal(t, "staking", p.Module)
		require.Equal(t, "0,1", p.Positions)
		require.Nil(t, p.Pool)
	}
	require.Equal(t, map[string]string{KindPrincipal: "200", KindReward: "15", KindShortfall: "5"}, kinds)

	rewards, err := idx.Payouts(ctx, Filter{Kind: KindReward})
	require.NoError(t, err)
	require.Len(t, rewards, 1)
}

func TestIndexReplayIsIdempotent(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	evt := unstakeEvent("evt-dup", 3, "100", "0", "0")

	require.NoError(t, idx.Record(ctx, evt))
	require.NoError(t, idx.Record(ctx, evt))

	payouts, err := idx.Payouts(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, payouts, 1, "zero reward and shortfall are not payouts")
	require.Equal(t, KindPrincipal, payouts[0].Kind)

	acts, err := idx.Activities(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, acts, 1)
}

func TestIndexDrainsBusEvents(t *testing.T) {
	idx := openTestIndex(t)
	bus := events.NewBus()
	bus.Subscribe(idx)

	for h := uint64(1); h <= 10; h++ {
		bus.Emit(events.Wrap(&types.Event{
			ID:     uuid.NewString(),
			Type:   farming.EventTypeRewardPaid,
			Height: h,
			Time:   1700000000 + h,
			Attributes: map[string]string{
				"pool":    "0",
				"account": alice,
				"amount":  "10",
			},
		}))
	}
	bus.Emit(events.Wrap(&types.Event{
		ID:         uuid.NewString(),
		Type:       farming.EventTypeDeposit,
		Height:     11,
		Attributes: map[string]string{"pool": "0", "account": alice, "amount": "50"},
	}))
	idx.Close()

	ctx := context.Background()
	payouts, err := idx.Payouts(ctx, Filter{Module: "farming", FromHeight: 3, ToHeight: 7})
	require.NoError(t, err)
	require.Len(t, payouts, 5)
	require.EqualValues(t, 3, payouts[0].Height)
	require.NotNil(t, payouts[0].Pool)
	require.EqualValues(t, 0, *payouts[0].Pool)

	acts, err := idx.Activities(ctx, Filter{Account: alice})
	require.NoError(t, err)
	require.Len(t, acts, 11)
	require.Equal(t, farming.EventTypeDeposit, acts[10].EventType)

	// Events after Close are dropped.
	bus.Emit(events.Wrap(unstakeEvent("late", 12, "1", "0", "0")))
	acts, err = idx.Activities(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, acts, 11)
}

func TestDialector(t *testing.T) {
	d, err := Dialector("postgres://ledger@localhost/ledger")
	require.NoError(t, err)
	require.Equal(t, "postgres", d.Name())

	d, err = Dialector("history.db")
	require.NoError(t, err)
	require.Equal(t, "sqlite", d.Name())

	_, err = Dialector("  ")
	require.Error(t, err)
}
