package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{Traces: true})
	require.Error(t, err)
}

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "ledgerd"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	require.NotNil(t, Tracer())
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders("authorization=Bearer x, tenant = ledger ,broken,=skip")
	require.Equal(t, map[string]string{"authorization": "Bearer x", "tenant": "ledger"}, got)
}

func TestInitRejectsSampleRatio(t *testing.T) {
	_, err := Init(context.Background(), Config{ServiceName: "ledgerd", Traces: true, SampleRatio: 1.5})
	require.Error(t, err)
}

func TestSampler(t *testing.T) {
	require.Contains(t, Sampler(0).Description(), "AlwaysOnSampler")
	require.Contains(t, Sampler(1).Description(), "AlwaysOnSampler")
	require.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestJoinShutdownReportsEveryFailure(t *testing.T) {
	var order []string
	first := errors.New("traces")
	second := errors.New("metrics")
	shutdown := joinShutdown([]ShutdownFunc{
		func(context.Context) error { order = append(order, "traces"); return first },
		func(context.Context) error { order = append(order, "metrics"); return second },
	})
	err := shutdown(context.Background())
	require.ErrorIs(t, err, first)
	require.ErrorIs(t, err, second)
	require.Equal(t, []string{"metrics", "traces"}, order)
}
