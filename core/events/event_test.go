package events

import (
	"testing"

	"stakeledger/core/types"
)

type recorder struct {
	seen []string
}

func (r *recorder) Emit(evt Event) { r.seen = append(r.seen, evt.EventType()) }

func TestBufferKeepsEmissionOrder(t *testing.T) {
	buf := &Buffer{}
	buf.Emit(Wrap(&types.Event{Type: "farming.deposit"}))
	buf.Emit(nil)
	buf.Emit(Wrap(nil))
	buf.Emit(Wrap(&types.Event{Type: "farming.reward.paid"}))

	got := buf.Events()
	if len(got) != 2 || got[0].EventType() != "farming.deposit" || got[1].EventType() != "farming.reward.paid" {
		t.Fatalf("unexpected buffer contents: %+v", got)
	}
	got[0] = nil
	if buf.Events()[0] == nil {
		t.Fatalf("Events must return a copy")
	}
	buf.Reset()
	if len(buf.Events()) != 0 {
		t.Fatalf("reset did not clear the buffer")
	}
}

func TestBusFanOutAndUnsubscribe(t *testing.T) {
	bus := NewBus()
	first, second := &recorder{}, &recorder{}
	unsubscribe := bus.Subscribe(first)
	bus.Subscribe(second)

	bus.Emit(Wrap(&types.Event{Type: "staking.staked"}))
	unsubscribe()
	bus.Emit(Wrap(&types.Event{Type: "staking.unstaked"}))

	if len(first.seen) != 1 || first.seen[0] != "staking.staked" {
		t.Fatalf("unexpected first subscriber events: %v", first.seen)
	}
	if len(second.seen) != 2 {
		t.Fatalf("unexpected second subscriber events: %v", second.seen)
	}

	var calls int
	bus.Subscribe(EmitterFunc(func(Event) { calls++ }))
	bus.Emit(Wrap(&types.Event{Type: "token.transfer"}))
	if calls != 1 {
		t.Fatalf("emitter func not invoked")
	}
	NoopEmitter{}.Emit(Wrap(&types.Event{Type: "ignored"}))
}
