package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/core/events"
	"stakeledger/core/state"
	nativecommon "stakeledger/native/common"
	"stakeledger/storage"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func newTestLedger(t *testing.T) (*Ledger, *events.Buffer) {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	if err := mgr.RegisterToken("LP", "Liquidity", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	buf := &events.Buffer{}
	l := NewLedger(mgr)
	l.SetEmitter(buf)
	return l, buf
}

func TestMintAndTransfer(t *testing.T) {
	l, buf := newTestLedger(t)
	if err := l.Mint("LP", alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer("LP", alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	a, _ := l.BalanceOf("LP", alice)
	b, _ := l.BalanceOf("LP", bob)
	if a.Int64() != 60 || b.Int64() != 40 {
		t.Fatalf("unexpected balances %s %s", a, b)
	}
	if got := len(buf.Events()); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}

func TestTransferExceedsBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	err := l.Transfer("LP", alice, bob, big.NewInt(1))
	if !errors.Is(err, nativecommon.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err.Error() != "ERC20: transfer amount exceeds balance" {
		t.Fatalf("unexpected reason %q", err.Error())
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	l, _ := newTestLedger(t)
	if err := l.Mint("LP", alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := l.TransferFrom("LP", bob, alice, bob, big.NewInt(10))
	if err == nil || err.Error() != "ERC20: insufficient allowance" {
		t.Fatalf("expected allowance error, got %v", err)
	}
	if err := l.Approve("LP", alice, bob, big.NewInt(30)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom("LP", bob, alice, bob, big.NewInt(25)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	left, _ := l.Allowance("LP", alice, bob)
	if left.Int64() != 5 {
		t.Fatalf("expected allowance 5, got %s", left)
	}
}

func TestUnknownToken(t *testing.T) {
	l, _ := newTestLedger(t)
	if _, err := l.BalanceOf("NOPE", alice); err == nil {
		t.Fatalf("expected unknown token error")
	}
}
