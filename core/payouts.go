package core

import (
	"math/big"

	"stakeledger/core/events"
	"stakeledger/native/farming"
	"stakeledger/native/params"
	"stakeledger/native/staking"
	"stakeledger/observability/metrics"
)

// PayoutRecorder turns committed payout events into metrics.
type PayoutRecorder struct {
	metrics *metrics.LedgerMetrics
}

// NewPayoutRecorder returns a bus subscriber feeding m.
func NewPayoutRecorder(m *metrics.LedgerMetrics) *PayoutRecorder {
	return &PayoutRecorder{metrics: m}
}

func attrAmount(v string) *big.Int {
	out, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return big.NewInt(0)
	}
	return out
}

// Emit implements events.Emitter.
func (r *PayoutRecorder) Emit(evt events.Event) {
	if r == nil || evt == nil || evt.Event() == nil {
		return
	}
	payload := evt.Event()
	switch payload.Type {
	case farming.EventTypeRewardPaid:
		r.metrics.RecordPayout(params.ModuleFarming, "reward", attrAmount(payload.Attr("amount")))
	case farming.EventTypeWithdraw, farming.EventTypeEmergencyWithdraw:
		r.metrics.RecordPayout(params.ModuleFarming, "principal", attrAmount(payload.Attr("amount")))
	case staking.EventTypeUnstaked, staking.EventTypeUnstakedForced, staking.EventTypeUnstakedSingle:
		r.metrics.RecordPayout(params.ModuleStaking, "principal", attrAmount(payload.Attr("principal")))
		r.metrics.RecordPayout(params.ModuleStaking, "reward", attrAmount(payload.Attr("reward")))
		r.metrics.RecordShortfall(params.ModuleStaking, attrAmount(payload.Attr("shortfall")))
	}
}
