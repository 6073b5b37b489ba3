package metrics

import (
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks executor outcomes and reward payouts.
type LedgerMetrics struct {
	calls       *prometheus.CounterVec
	reverts     *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	payouts     *prometheus.CounterVec
	shortfall   *prometheus.CounterVec
	treasury    *prometheus.GaugeVec
	pools       prometheus.Gauge
	blockHeight prometheus.Gauge
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics, registering them with the
// default Prometheus registry on first use.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledger",
				Name:      "calls_total",
				Help:      "Executed calls segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledger",
				Name:      "reverts_total",
				Help:      "Reverted calls segmented by operation and error kind.",
			}, []string{"operation", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "ledger",
				Name:      "call_duration_seconds",
				Help:      "Time spent executing and committing a call.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledger",
				Name:      "payouts_total",
				Help:      "Reward and principal paid out, in whole tokens, by engine and kind.",
			}, []string{"engine", "kind"}),
			shortfall: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledger",
				Name:      "reward_shortfall_total",
				Help:      "Entitled rewards left unpaid because the treasury ran dry, in whole tokens.",
			}, []string{"engine"}),
			treasury: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "ledger",
				Name:      "treasury_available",
				Help:      "Unpaid reward balance per engine, in whole tokens.",
			}, []string{"engine"}),
			pools: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "ledger",
				Name:      "farming_pools",
				Help:      "Number of registered farming pools.",
			}),
			blockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "ledger",
				Name:      "block_height",
				Help:      "Current height of the chain clock.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.calls,
			ledgerRegistry.reverts,
			ledgerRegistry.latency,
			ledgerRegistry.payouts,
			ledgerRegistry.shortfall,
			ledgerRegistry.treasury,
			ledgerRegistry.pools,
			ledgerRegistry.blockHeight,
		)
	})
	return ledgerRegistry
}

var weiPerToken = new(big.Float).SetFloat64(1e18)

// Tokens converts an 18-decimal base unit amount into a float for gauges.
func Tokens(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), weiPerToken).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

// ObserveCall records the outcome of an executed call.
func (m *LedgerMetrics) ObserveCall(operation string, err error, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	operation = label(operation)
	outcome := "committed"
	if err != nil {
		outcome = "reverted"
		m.reverts.WithLabelValues(operation, label(kind)).Inc()
	}
	m.calls.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPayout adds a paid amount for the engine and kind (reward, principal).
func (m *LedgerMetrics) RecordPayout(engine, kind string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.payouts.WithLabelValues(label(engine), label(kind)).Add(Tokens(amount))
}

func (m *LedgerMetrics) RecordShortfall(engine string, amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.shortfall.WithLabelValues(label(engine)).Add(Tokens(amount))
}

func (m *LedgerMetrics) SetTreasuryAvailable(engine string, amount *big.Int) {
	if m == nil {
		return
	}
	m.treasury.WithLabelValues(label(engine)).Set(Tokens(amount))
}

func (m *LedgerMetrics) SetPools(count uint64) {
	if m == nil {
		return
	}
	m.pools.Set(float64(count))
}

func (m *LedgerMetrics) SetBlockHeight(height uint64) {
	if m == nil {
		return
	}
	m.blockHeight.Set(float64(height))
}
