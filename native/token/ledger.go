package token

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/core/events"
	nativecommon "stakeledger/native/common"
)

var errNilState = errors.New("token ledger: state not configured")

type ledgerState interface {
	TokenExists(symbol string) bool
	Balance(addr common.Address, symbol string) (*big.Int, error)
	SetBalance(addr common.Address, symbol string, amount *big.Int) error
	Allowance(owner, spender common.Address, symbol string) (*big.Int, error)
	SetAllowance(owner, spender common.Address, symbol string, amount *big.Int) error
	TotalSupply(symbol string) (*big.Int, error)
	SetTotalSupply(symbol string, supply *big.Int) error
}

// Ledger moves fungible balances between accounts. Every failure aborts the
// surrounding call; the ledger never leaves a half-applied transfer because the
// executor discards the state overlay on error.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger constructs a ledger bound to the provided state.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event sink.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if l == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	l.emitter = emitter
}

func (l *Ledger) ready(symbol string) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if !l.state.TokenExists(symbol) {
		return nativecommon.Revertf(nativecommon.ErrInvalidAmount, "ERC20: unknown token %s", symbol)
	}
	return nil
}

// BalanceOf returns the balance of addr.
func (l *Ledger) BalanceOf(symbol string, addr common.Address) (*big.Int, error) {
	if err := l.ready(symbol); err != nil {
		return nil, err
	}
	return l.state.Balance(addr, symbol)
}

// Allowance returns the amount spender may pull from owner.
func (l *Ledger) Allowance(symbol string, owner, spender common.Address) (*big.Int, error) {
	if err := l.ready(symbol); err != nil {
		return nil, err
	}
	return l.state.Allowance(owner, spender, symbol)
}

// Approve sets the allowance of spender over owner's balance.
func (l *Ledger) Approve(symbol string, owner, spender common.Address, amount *big.Int) error {
	if err := l.ready(symbol); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "ERC20: invalid approval amount")
	}
	if err := l.state.SetAllowance(owner, spender, symbol, amount); err != nil {
		return err
	}
	l.emitter.Emit(events.Wrap(ApprovalEvent(symbol, owner, spender, amount)))
	return nil
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(symbol string, from, to common.Address, amount *big.Int) error {
	if err := l.ready(symbol); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "ERC20: invalid transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBal, err := l.state.Balance(from, symbol)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return nativecommon.NewRevert(nativecommon.ErrInsufficientFunds, "ERC20: transfer amount exceeds balance")
	}
	if err := l.state.SetBalance(from, symbol, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	toBal, err := l.state.Balance(to, symbol)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(to, symbol, new(big.Int).Add(toBal, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Wrap(TransferEvent(symbol, from, to, amount)))
	return nil
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming allowance.
func (l *Ledger) TransferFrom(symbol string, spender, owner, to common.Address, amount *big.Int) error {
	if err := l.ready(symbol); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "ERC20: invalid transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	allowance, err := l.state.Allowance(owner, spender, symbol)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return nativecommon.NewRevert(nativecommon.ErrInsufficientFunds, "ERC20: insufficient allowance")
	}
	if err := l.state.SetAllowance(owner, spender, symbol, new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	return l.Transfer(symbol, owner, to, amount)
}

// Mint credits new supply to an account.
func (l *Ledger) Mint(symbol string, to common.Address, amount *big.Int) error {
	if err := l.ready(symbol); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "ERC20: invalid mint amount")
	}
	supply, err := l.state.TotalSupply(symbol)
	if err != nil {
		return err
	}
	if err := l.state.SetTotalSupply(symbol, new(big.Int).Add(supply, amount)); err != nil {
		return err
	}
	bal, err := l.state.Balance(to, symbol)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(to, symbol, new(big.Int).Add(bal, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Wrap(MintEvent(symbol, to, amount)))
	return nil
}
