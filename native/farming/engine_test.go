package farming

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/core/events"
	nativecommon "stakeledger/native/common"
)

type mockState struct {
	window    *Window
	pools     map[uint64]*Pool
	positions map[string]*Position
}

func newMockState() *mockState {
	return &mockState{
		pools:     make(map[uint64]*Pool),
		positions: make(map[string]*Position),
	}
}

func (m *mockState) FarmingWindow() (*Window, bool, error) {
	if m.window == nil {
		return nil, false, nil
	}
	return m.window.Clone(), true, nil
}

func (m *mockState) PutFarmingWindow(w *Window) error {
	m.window = w.Clone()
	return nil
}

func (m *mockState) FarmingPool(id uint64) (*Pool, bool, error) {
	p, ok := m.pools[id]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (m *mockState) PutFarmingPool(p *Pool) error {
	m.pools[p.ID] = p.Clone()
	return nil
}

func positionKey(id uint64, addr common.Address) string {
	return string(append(new(big.Int).SetUint64(id).Bytes(), addr.Bytes()...))
}

func (m *mockState) FarmingPosition(id uint64, addr common.Address) (*Position, error) {
	pos, ok := m.positions[positionKey(id, addr)]
	if !ok {
		return &Position{PoolID: id, Owner: addr, Amount: big.NewInt(0), RewardDebt: big.NewInt(0)}, nil
	}
	clone := *pos
	clone.Amount = cloneOrZero(pos.Amount)
	clone.RewardDebt = cloneOrZero(pos.RewardDebt)
	return &clone, nil
}

func (m *mockState) PutFarmingPosition(pos *Position) error {
	clone := *pos
	clone.Amount = cloneOrZero(pos.Amount)
	clone.RewardDebt = cloneOrZero(pos.RewardDebt)
	m.positions[positionKey(pos.PoolID, pos.Owner)] = &clone
	return nil
}

type mockTokens struct {
	balances   map[string]*big.Int
	allowances map[string]*big.Int
}

func newMockTokens() *mockTokens {
	return &mockTokens{balances: make(map[string]*big.Int), allowances: make(map[string]*big.Int)}
}

func balKey(symbol string, addr common.Address) string { return symbol + addr.Hex() }

func (m *mockTokens) balance(symbol string, addr common.Address) *big.Int {
	return cloneOrZero(m.balances[balKey(symbol, addr)])
}

func (m *mockTokens) mint(symbol string, addr common.Address, amount *big.Int) {
	m.balances[balKey(symbol, addr)] = new(big.Int).Add(m.balance(symbol, addr), amount)
}

func (m *mockTokens) approve(symbol string, owner, spender common.Address, amount *big.Int) {
	m.allowances[symbol+owner.Hex()+spender.Hex()] = new(big.Int).Set(amount)
}

func (m *mockTokens) Transfer(symbol string, from, to common.Address, amount *big.Int) error {
	bal := m.balance(symbol, from)
	if bal.Cmp(amount) < 0 {
		return nativecommon.NewRevert(nativecommon.ErrInsufficientFunds, "ERC20: transfer amount exceeds balance")
	}
	m.balances[balKey(symbol, from)] = bal.Sub(bal, amount)
	m.mint(symbol, to, amount)
	return nil
}

func (m *mockTokens) TransferFrom(symbol string, spender, owner, to common.Address, amount *big.Int) error {
	key := symbol + owner.Hex() + spender.Hex()
	allowance := cloneOrZero(m.allowances[key])
	if allowance.Cmp(amount) < 0 {
		return nativecommon.NewRevert(nativecommon.ErrInsufficientFunds, "ERC20: insufficient allowance")
	}
	if err := m.Transfer(symbol, owner, to, amount); err != nil {
		return err
	}
	m.allowances[key] = allowance.Sub(allowance, amount)
	return nil
}

type ownerAuth struct{ owner common.Address }

func (a ownerAuth) IsAuthorized(caller common.Address, _ string) bool { return caller == a.owner }

var (
	owner   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	farmer1 = common.HexToAddress("0x0000000000000000000000000000000000000f01")
	farmer2 = common.HexToAddress("0x0000000000000000000000000000000000000f02")
	module  = nativecommon.ModuleAddress(moduleName)
)

func ether(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(1_000_000_000_000_000_000))
}

func mustAmount(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad amount %q", s)
	}
	return v
}

type harness struct {
	engine *Engine
	state  *mockState
	tokens *mockTokens
	events *events.Buffer
}

func newHarness(t *testing.T, rate *big.Int, start uint64) *harness {
	t.Helper()
	h := &harness{state: newMockState(), tokens: newMockTokens(), events: &events.Buffer{}}
	h.engine = NewEngine(module)
	h.engine.SetState(h.state)
	h.engine.SetTokens(h.tokens)
	h.engine.SetAuthorizer(ownerAuth{owner: owner})
	h.engine.SetEmitter(h.events)
	if err := h.engine.Initialize(Params{RewardToken: "RWD", RewardPerTick: rate, StartTick: start}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return h
}

func (h *harness) at(height uint64) *Engine {
	h.engine.SetBlockHeight(height)
	return h.engine
}

func (h *harness) fund(t *testing.T, height uint64, amount *big.Int) {
	t.Helper()
	h.tokens.mint("RWD", owner, amount)
	h.tokens.approve("RWD", owner, module, amount)
	if err := h.at(height).Fund(owner, amount); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func (h *harness) deposit(t *testing.T, height uint64, who common.Address, amount *big.Int) *big.Int {
	t.Helper()
	h.tokens.mint("LP", who, amount)
	h.tokens.approve("LP", who, module, amount)
	paid, err := h.at(height).Deposit(who, 0, amount)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	return paid
}

func (h *harness) pending(t *testing.T, height uint64, who common.Address) *big.Int {
	t.Helper()
	p, err := h.at(height).Pending(0, who)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	return p
}

func TestFundExtendsEndTick(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	h.fund(t, 90, ether(1000))
	w, err := h.engine.Window()
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if w.EndTick != 600 {
		t.Fatalf("expected end 600, got %d", w.EndTick)
	}
	h.fund(t, 95, ether(20))
	w, _ = h.engine.Window()
	if w.EndTick != 610 {
		t.Fatalf("expected end 610, got %d", w.EndTick)
	}
}

func TestFundRejectsNonMultiple(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	h.tokens.mint("RWD", owner, ether(1001))
	h.tokens.approve("RWD", owner, module, ether(1001))
	err := h.at(90).Fund(owner, new(big.Int).Add(ether(1000), big.NewInt(1)))
	if !errors.Is(err, nativecommon.ErrInvalidAmount) || err.Error() != "fund: invalid amount" {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := h.at(90).Fund(owner, big.NewInt(0)); !errors.Is(err, nativecommon.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for zero, got %v", err)
	}
}

func TestFundAfterCloseRejected(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	h.fund(t, 90, ether(1000))
	h.tokens.mint("RWD", owner, ether(10))
	h.tokens.approve("RWD", owner, module, ether(10))
	err := h.at(600).Fund(owner, ether(10))
	if !errors.Is(err, nativecommon.ErrWindowClosed) || err.Error() != "fund: too late, the farm is closed" {
		t.Fatalf("expected closed farm, got %v", err)
	}
}

func TestLateFirstFundingSkipsUnfundedGap(t *testing.T) {
	h := newHarness(t, ether(1), 100)
	if _, err := h.at(50).AddPool(owner, 10, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 150, ether(100))
	w, _ := h.engine.Window()
	if w.OpenTick != 150 || w.EndTick != 250 {
		t.Fatalf("unexpected window open=%d end=%d", w.OpenTick, w.EndTick)
	}
	h.deposit(t, 150, farmer1, ether(10))
	if got := h.pending(t, 400, farmer1); got.Cmp(ether(100)) != 0 {
		t.Fatalf("expected whole funding as reward, got %s", got)
	}
	total, _ := h.at(400).TotalPending()
	if total.Cmp(ether(100)) != 0 {
		t.Fatalf("expected total pending 100, got %s", total)
	}
}

func TestOnlyOwnerManagesPools(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	_, err := h.at(90).AddPool(farmer1, 15, "LP", false)
	if !errors.Is(err, nativecommon.ErrUnauthorized) || err.Error() != "Ownable: caller is not the owner" {
		t.Fatalf("expected owner error, got %v", err)
	}
	if _, err := h.at(90).AddPool(owner, 15, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	if err := h.at(90).SetWeight(farmer1, 0, 20, false); !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected owner error, got %v", err)
	}
	if n, _ := h.engine.PoolLength(); n != 1 {
		t.Fatalf("expected one pool, got %d", n)
	}
}

func TestRestrictedFunding(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	h.engine.SetRestrictFunding(true)
	h.tokens.mint("RWD", farmer1, ether(10))
	h.tokens.approve("RWD", farmer1, module, ether(10))
	if err := h.at(90).Fund(farmer1, ether(10)); !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	h.fund(t, 90, ether(10))
}

func TestTwoFarmersScenario(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 15, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(1000))

	h.deposit(t, 95, farmer1, ether(500))
	if got, _ := h.at(99).TotalPending(); got.Sign() != 0 {
		t.Fatalf("expected zero total pending before start, got %s", got)
	}
	if d, _ := h.engine.Deposited(0, farmer1); d.Cmp(ether(500)) != 0 {
		t.Fatalf("unexpected deposited %s", d)
	}

	if got := h.pending(t, 108, farmer1); got.Cmp(ether(16)) != 0 {
		t.Fatalf("expected 16 pending after 8 ticks, got %s", got)
	}
	if got, _ := h.at(108).TotalPending(); got.Cmp(ether(16)) != 0 {
		t.Fatalf("expected total pending 16, got %s", got)
	}

	h.deposit(t, 110, farmer2, ether(4000))
	if got := h.pending(t, 110, farmer1); got.Cmp(ether(20)) != 0 {
		t.Fatalf("expected farmer1 pending 20, got %s", got)
	}
	if got := h.pending(t, 110, farmer2); got.Sign() != 0 {
		t.Fatalf("expected farmer2 pending 0, got %s", got)
	}

	paid := h.deposit(t, 120, farmer1, ether(1500))
	if want := mustAmount(t, "22222222222222222222"); paid.Cmp(want) != 0 {
		t.Fatalf("expected farmer1 harvest %s, got %s", want, paid)
	}
	if got := h.tokens.balance("RWD", farmer1); got.Cmp(paid) != 0 {
		t.Fatalf("reward not transferred: %s", got)
	}
	if got := h.pending(t, 120, farmer2); got.Cmp(mustAmount(t, "17777777777777777777")) != 0 {
		t.Fatalf("unexpected farmer2 pending %s", got)
	}

	if err := h.at(121).SetWeight(owner, 0, 100, true); err != nil {
		t.Fatalf("set weight: %v", err)
	}

	if got := h.pending(t, 600, farmer1); got.Cmp(ether(320)) != 0 {
		t.Fatalf("expected farmer1 final pending 320, got %s", got)
	}
	if got := h.pending(t, 600, farmer2); got.Cmp(mustAmount(t, "657777777777777777777")) != 0 {
		t.Fatalf("unexpected farmer2 final pending %s", got)
	}
	// Nothing accrues past the end tick.
	if got := h.pending(t, 700, farmer2); got.Cmp(mustAmount(t, "657777777777777777777")) != 0 {
		t.Fatalf("pending moved after end: %s", got)
	}

	if _, err := h.at(700).Withdraw(farmer1, 0, ether(2000)); err != nil {
		t.Fatalf("withdraw farmer1: %v", err)
	}
	if _, err := h.at(700).Withdraw(farmer2, 0, ether(4000)); err != nil {
		t.Fatalf("withdraw farmer2: %v", err)
	}
	if got := h.tokens.balance("LP", farmer1); got.Cmp(ether(2000)) != 0 {
		t.Fatalf("farmer1 principal %s", got)
	}
	paidOut := new(big.Int).Add(h.tokens.balance("RWD", farmer1), h.tokens.balance("RWD", farmer2))
	if paidOut.Cmp(ether(1000)) > 0 {
		t.Fatalf("paid more than funded: %s", paidOut)
	}
	dust := new(big.Int).Sub(ether(1000), paidOut)
	if dust.Cmp(big.NewInt(2)) > 0 {
		t.Fatalf("rounding dust too large: %s", dust)
	}
	total, _ := h.at(700).TotalPending()
	if total.Cmp(dust) != 0 {
		t.Fatalf("total pending %s should equal unpaid dust %s", total, dust)
	}
}

func TestSingleDepositorEarnsWholeFunding(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(1000))
	h.deposit(t, 90, farmer1, ether(4))
	paid, err := h.at(650).Withdraw(farmer1, 0, ether(4))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if paid.Cmp(ether(1000)) != 0 {
		t.Fatalf("expected 1000 reward, got %s", paid)
	}
}

func TestDepositAfterEndRejected(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(10))
	h.tokens.mint("LP", farmer1, ether(1))
	h.tokens.approve("LP", farmer1, module, ether(1))
	_, err := h.at(105).Deposit(farmer1, 0, ether(1))
	if !errors.Is(err, nativecommon.ErrWindowClosed) || err.Error() != "deposit: cannot deposit after end block" {
		t.Fatalf("expected window closed, got %v", err)
	}
}

func TestDepositWithoutAllowanceFails(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(10))
	h.tokens.mint("LP", farmer1, ether(1))
	if _, err := h.at(95).Deposit(farmer1, 0, ether(1)); !errors.Is(err, nativecommon.ErrInsufficientFunds) {
		t.Fatalf("expected allowance failure, got %v", err)
	}
}

func TestWithdrawMoreThanDeposit(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(10))
	h.deposit(t, 95, farmer1, ether(3))
	_, err := h.at(96).Withdraw(farmer1, 0, ether(4))
	if !errors.Is(err, nativecommon.ErrExceedsDeposit) || err.Error() != "withdraw: can't withdraw more than deposit" {
		t.Fatalf("expected exceeds deposit, got %v", err)
	}
}

func TestEmergencyWithdrawIsIdempotent(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(100))
	h.deposit(t, 95, farmer1, ether(5))

	amount, err := h.at(120).EmergencyWithdraw(farmer1, 0)
	if err != nil {
		t.Fatalf("emergency withdraw: %v", err)
	}
	if amount.Cmp(ether(5)) != 0 {
		t.Fatalf("expected principal 5, got %s", amount)
	}
	if got := h.tokens.balance("RWD", farmer1); got.Sign() != 0 {
		t.Fatalf("emergency withdraw paid reward %s", got)
	}
	again, err := h.at(121).EmergencyWithdraw(farmer1, 0)
	if err != nil || again.Sign() != 0 {
		t.Fatalf("second emergency withdraw returned %v, %v", again, err)
	}
	if got := h.tokens.balance("LP", farmer1); got.Cmp(ether(5)) != 0 {
		t.Fatalf("unexpected principal balance %s", got)
	}
	if got := h.pending(t, 130, farmer1); got.Sign() != 0 {
		t.Fatalf("expected zero pending, got %s", got)
	}
}

func TestZeroWeightPoolNeverAccrues(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 0, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	if _, err := h.at(90).AddPool(owner, 5, "LP2", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(100))
	h.deposit(t, 95, farmer1, ether(5))
	if got := h.pending(t, 140, farmer1); got.Sign() != 0 {
		t.Fatalf("zero weight pool accrued %s", got)
	}
	p, _ := h.engine.Pool(0)
	if p.AccRewardPerShare.Sign() != 0 {
		t.Fatalf("accumulator moved: %s", p.AccRewardPerShare)
	}
}

func TestEmptyPoolSettlementAdvancesTick(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(100))
	if err := h.at(120).SettlePool(0); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := h.at(120).SettlePool(0); err != nil {
		t.Fatalf("settle twice: %v", err)
	}
	p, _ := h.engine.Pool(0)
	if p.LastRewardTick != 120 || p.AccRewardPerShare.Sign() != 0 {
		t.Fatalf("unexpected pool after empty settle: tick=%d acc=%s", p.LastRewardTick, p.AccRewardPerShare)
	}
}

func TestUnknownPool(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).Pending(3, farmer1); !errors.Is(err, nativecommon.ErrUnknownPool) {
		t.Fatalf("expected unknown pool, got %v", err)
	}
}

func TestDepositPausedButEmergencyWithdrawAllowed(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(100))
	h.deposit(t, 95, farmer1, ether(5))
	h.engine.SetPauses(pauseAll{})
	if _, err := h.at(96).Deposit(farmer1, 0, big.NewInt(0)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
	if _, err := h.at(96).EmergencyWithdraw(farmer1, 0); err != nil {
		t.Fatalf("emergency withdraw while paused: %v", err)
	}
}

type pauseAll struct{}

func (pauseAll) IsPaused(string) bool { return true }

func TestEventsEmitted(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(100))
	h.deposit(t, 95, farmer1, ether(5))
	if _, err := h.at(110).Withdraw(farmer1, 0, ether(5)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	var types []string
	for _, evt := range h.events.Events() {
		types = append(types, evt.EventType())
	}
	want := []string{EventTypePoolAdded, EventTypeFunded, EventTypeDeposit, EventTypeRewardPaid, EventTypeWithdraw}
	if len(types) != len(want) {
		t.Fatalf("unexpected events %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event %d: want %s got %s", i, want[i], types[i])
		}
	}
}

type pauseToggle struct{ paused bool }

func (p *pauseToggle) IsPaused(string) bool { return p.paused }

func (p *pauseToggle) SetPaused(_ string, paused bool) error {
	p.paused = paused
	return nil
}

func TestSetPausedOwnerOnly(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	toggle := &pauseToggle{}
	h.engine.SetPauses(toggle)
	if err := h.engine.SetPaused(farmer1, true); !errors.Is(err, nativecommon.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := h.engine.SetPaused(owner, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !toggle.paused {
		t.Fatalf("toggle not set")
	}
	if err := h.engine.SetPaused(owner, true); err == nil || err.Error() != "Pausable: paused" {
		t.Fatalf("expected already paused, got %v", err)
	}
	if err := h.engine.SetPaused(owner, false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	h.engine.SetPauses(pauseAll{})
	if err := h.engine.SetPaused(owner, false); !errors.Is(err, errNoPauseSwitch) {
		t.Fatalf("expected read-only toggle error, got %v", err)
	}
}

func (h *harness) depositTo(t *testing.T, height uint64, who common.Address, id uint64, asset string, amount *big.Int) {
	t.Helper()
	h.tokens.mint(asset, who, amount)
	h.tokens.approve(asset, who, module, amount)
	if _, err := h.at(height).Deposit(who, id, amount); err != nil {
		t.Fatalf("deposit pool %d: %v", id, err)
	}
}

func (h *harness) totalPending(t *testing.T, height uint64) *big.Int {
	t.Helper()
	total, err := h.at(height).TotalPending()
	if err != nil {
		t.Fatalf("total pending: %v", err)
	}
	return total
}

func TestTotalPendingExcludesEmptyPoolGap(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(1000))

	if got := h.totalPending(t, 140); got.Sign() != 0 {
		t.Fatalf("empty pool reported pending %s", got)
	}
	h.deposit(t, 150, farmer1, ether(4))
	if got := h.totalPending(t, 150); got.Sign() != 0 {
		t.Fatalf("expected zero right after first deposit, got %s", got)
	}
	if got, want := h.totalPending(t, 300), h.pending(t, 300, farmer1); got.Cmp(want) != 0 || want.Cmp(ether(300)) != 0 {
		t.Fatalf("total pending %s, farmer pending %s, want 300", got, want)
	}

	paid, err := h.at(700).Withdraw(farmer1, 0, ether(4))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if paid.Cmp(ether(900)) != 0 {
		t.Fatalf("expected 900 paid, got %s", paid)
	}
	if got := h.totalPending(t, 700); got.Sign() != 0 {
		t.Fatalf("unclaimable reward reported as pending: %s", got)
	}
}

func TestTotalPendingExcludesWeightlessInterval(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 0, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(1000))
	h.deposit(t, 100, farmer1, ether(5))
	if got := h.totalPending(t, 200); got.Sign() != 0 {
		t.Fatalf("zero total weight reported pending %s", got)
	}
	if err := h.at(200).SetWeight(owner, 0, 1, false); err != nil {
		t.Fatalf("set weight: %v", err)
	}
	pending := h.pending(t, 300, farmer1)
	if pending.Cmp(ether(200)) != 0 {
		t.Fatalf("expected 200 pending after reweight, got %s", pending)
	}
	if got := h.totalPending(t, 300); got.Cmp(pending) != 0 {
		t.Fatalf("total pending %s != claimable %s", got, pending)
	}
}

func TestEmergencyWithdrawForfeitsPending(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(1000))
	h.deposit(t, 100, farmer1, ether(5))
	if got := h.totalPending(t, 200); got.Cmp(ether(200)) != 0 {
		t.Fatalf("expected 200 pending, got %s", got)
	}
	if _, err := h.at(200).EmergencyWithdraw(farmer1, 0); err != nil {
		t.Fatalf("emergency withdraw: %v", err)
	}
	for _, height := range []uint64{200, 400} {
		if got := h.totalPending(t, height); got.Sign() != 0 {
			t.Fatalf("forfeited reward still pending at %d: %s", height, got)
		}
	}
	w, _ := h.engine.Window()
	if w.Rewards.Available().Cmp(ether(1000)) != 0 {
		t.Fatalf("funding touched by emergency withdraw: %s", w.Rewards.Available())
	}
}

func TestWeightedPoolsSplitEmission(t *testing.T) {
	h := newHarness(t, ether(2), 100)
	if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	if _, err := h.at(90).AddPool(owner, 3, "LP2", false); err != nil {
		t.Fatalf("add pool: %v", err)
	}
	h.fund(t, 90, ether(1000))
	h.depositTo(t, 95, farmer1, 0, "LP", ether(10))
	h.depositTo(t, 95, farmer2, 1, "LP2", ether(3))

	pending0, err := h.at(650).Pending(0, farmer1)
	if err != nil {
		t.Fatalf("pending pool 0: %v", err)
	}
	pending1, err := h.at(650).Pending(1, farmer2)
	if err != nil {
		t.Fatalf("pending pool 1: %v", err)
	}
	if pending0.Cmp(ether(250)) != 0 || pending1.Cmp(ether(750)) != 0 {
		t.Fatalf("expected 250/750 split, got %s/%s", pending0, pending1)
	}
	if got := h.totalPending(t, 650); got.Cmp(ether(1000)) != 0 {
		t.Fatalf("expected total pending 1000, got %s", got)
	}

	paid0, err := h.at(650).Withdraw(farmer1, 0, ether(10))
	if err != nil {
		t.Fatalf("withdraw pool 0: %v", err)
	}
	paid1, err := h.at(650).Withdraw(farmer2, 1, ether(3))
	if err != nil {
		t.Fatalf("withdraw pool 1: %v", err)
	}
	if paid0.Cmp(pending0) != 0 || paid1.Cmp(pending1) != 0 {
		t.Fatalf("paid %s/%s differs from pending %s/%s", paid0, paid1, pending0, pending1)
	}
	if sum := new(big.Int).Add(paid0, paid1); sum.Cmp(ether(1000)) > 0 {
		t.Fatalf("paid more than funded: %s", sum)
	}
	if got := h.totalPending(t, 650); got.Sign() != 0 {
		t.Fatalf("expected nothing pending after withdrawals, got %s", got)
	}
}

func TestAddPoolWithoutMassUpdateReweightsUnsettledInterval(t *testing.T) {
	for _, tc := range []struct {
		name       string
		massUpdate bool
		want       *big.Int
	}{
		{name: "mass update", massUpdate: true, want: ether(200)},
		{name: "no mass update", massUpdate: false, want: ether(50)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, ether(2), 100)
			if _, err := h.at(90).AddPool(owner, 1, "LP", false); err != nil {
				t.Fatalf("add pool: %v", err)
			}
			h.fund(t, 90, ether(1000))
			h.deposit(t, 95, farmer1, ether(5))
			if _, err := h.at(200).AddPool(owner, 3, "LP2", tc.massUpdate); err != nil {
				t.Fatalf("add second pool: %v", err)
			}
			got := h.pending(t, 200, farmer1)
			if got.Cmp(tc.want) != 0 {
				t.Fatalf("expected pending %s, got %s", tc.want, got)
			}
			if total := h.totalPending(t, 200); total.Cmp(got) != 0 {
				t.Fatalf("total pending %s != claimable %s", total, got)
			}
		})
	}
}
