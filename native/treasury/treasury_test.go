package treasury

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebitCapsAtAvailable(t *testing.T) {
	l := New()
	require.NoError(t, l.Credit(big.NewInt(500)))

	paid := l.Debit(big.NewInt(300))
	require.Equal(t, int64(300), paid.Int64())
	require.Equal(t, int64(200), l.Available().Int64())

	paid = l.Debit(big.NewInt(300))
	require.Equal(t, int64(200), paid.Int64())
	require.True(t, l.Exhausted())

	paid = l.Debit(big.NewInt(1))
	require.Zero(t, paid.Sign())
	require.Equal(t, int64(500), l.Paid.Int64())
}

func TestCreditRejectsNegative(t *testing.T) {
	l := New()
	require.Error(t, l.Credit(big.NewInt(-1)))
	require.NoError(t, l.Credit(nil))
	require.Zero(t, l.Available().Sign())
}

func TestZeroValueLedgerUsable(t *testing.T) {
	var l Ledger
	require.Zero(t, l.Debit(big.NewInt(10)).Sign())
	require.NoError(t, l.Credit(big.NewInt(10)))
	clone := l.Clone()
	clone.Debit(big.NewInt(4))
	require.Equal(t, int64(10), l.Available().Int64())
	require.Equal(t, int64(6), clone.Available().Int64())
}
