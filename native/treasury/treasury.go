package treasury

import (
	"errors"
	"math/big"
)

var errNegativeCredit = errors.New("treasury: credit must not be negative")

// Ledger tracks how much of a reward asset has been funded and how much has
// been paid out. Available = Funded - Paid never goes negative because every
// debit is capped.
type Ledger struct {
	Funded *big.Int
	Paid   *big.Int
}

// New returns an empty ledger.
func New() Ledger {
	return Ledger{Funded: big.NewInt(0), Paid: big.NewInt(0)}
}

func (l *Ledger) normalize() {
	if l.Funded == nil {
		l.Funded = big.NewInt(0)
	}
	if l.Paid == nil {
		l.Paid = big.NewInt(0)
	}
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	l.normalize()
	return Ledger{Funded: new(big.Int).Set(l.Funded), Paid: new(big.Int).Set(l.Paid)}
}

// Available returns the unpaid balance.
func (l *Ledger) Available() *big.Int {
	l.normalize()
	out := new(big.Int).Sub(l.Funded, l.Paid)
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}

// Exhausted reports whether nothing is left to pay.
func (l *Ledger) Exhausted() bool {
	return l.Available().Sign() == 0
}

// Credit records newly funded rewards.
func (l *Ledger) Credit(amount *big.Int) error {
	l.normalize()
	if amount == nil {
		return nil
	}
	if amount.Sign() < 0 {
		return errNegativeCredit
	}
	l.Funded = new(big.Int).Add(l.Funded, amount)
	return nil
}

// Debit pays min(entitlement, available) and returns the paid amount. A nil
// or non-positive entitlement pays nothing.
func (l *Ledger) Debit(entitlement *big.Int) *big.Int {
	l.normalize()
	if entitlement == nil || entitlement.Sign() <= 0 {
		return big.NewInt(0)
	}
	paid := Cap(entitlement, l.Available())
	l.Paid = new(big.Int).Add(l.Paid, paid)
	return paid
}

// Cap returns min(entitlement, available), never negative.
func Cap(entitlement, available *big.Int) *big.Int {
	if entitlement == nil || entitlement.Sign() <= 0 || available == nil || available.Sign() <= 0 {
		return big.NewInt(0)
	}
	if entitlement.Cmp(available) > 0 {
		return new(big.Int).Set(available)
	}
	return new(big.Int).Set(entitlement)
}
