package farming

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/core/events"
	"stakeledger/core/types"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/treasury"
)

var (
	errNilState      = errors.New("farming engine: state not configured")
	errNilTokens     = errors.New("farming engine: token ledger not configured")
	errWeightRange   = errors.New("farming engine: total weight overflow")
	errNoPauseSwitch = errors.New("farming engine: pause toggle is read-only")
)

const moduleName = "farming"

// OwnerRole is the state role whose members own the farm.
const OwnerRole = "FARM_OWNER"

// Actions checked against the authorizer.
const (
	ActionAddPool   = "addPool"
	ActionSetWeight = "setWeight"
	ActionFund      = "fund"
	ActionPause     = "pause"
)

// OwnerActions are the actions granted to OwnerRole members.
var OwnerActions = []string{ActionAddPool, ActionSetWeight, ActionFund, ActionPause}

type engineState interface {
	FarmingWindow() (*Window, bool, error)
	PutFarmingWindow(w *Window) error
	FarmingPool(id uint64) (*Pool, bool, error)
	PutFarmingPool(p *Pool) error
	FarmingPosition(id uint64, addr common.Address) (*Position, error)
	PutFarmingPosition(pos *Position) error
}

type tokenLedger interface {
	Transfer(symbol string, from, to common.Address, amount *big.Int) error
	TransferFrom(symbol string, spender, owner, to common.Address, amount *big.Int) error
}

// Engine runs the block-emission farm: an ordered set of pools sharing one
// reward stream in proportion to their weights.
type Engine struct {
	state           engineState
	tokens          tokenLedger
	auth            nativecommon.Authorizer
	pauses          nativecommon.PauseView
	emitter         events.Emitter
	moduleAddress   common.Address
	blockHeight     uint64
	restrictFunding bool
}

// NewEngine constructs a farming engine holding custody at moduleAddr.
func NewEngine(moduleAddr common.Address) *Engine {
	return &Engine{moduleAddress: moduleAddr, emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokens wires the token ledger used for custody transfers.
func (e *Engine) SetTokens(tokens tokenLedger) { e.tokens = tokens }

// SetAuthorizer configures who may manage pools.
func (e *Engine) SetAuthorizer(auth nativecommon.Authorizer) {
	if e == nil {
		return
	}
	e.auth = auth
}

// SetPauses wires the pause toggle consulted by Deposit and SetPaused.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter configures the event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetPaused flips the farming pause toggle. Only deposits are blocked while
// paused; withdrawals stay open.
func (e *Engine) SetPaused(caller common.Address, paused bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.authorize(caller, ActionPause); err != nil {
		return err
	}
	sw, ok := e.pauses.(nativecommon.PauseSwitch)
	if !ok {
		return errNoPauseSwitch
	}
	if sw.IsPaused(moduleName) == paused {
		if paused {
			return nativecommon.NewRevert(nativecommon.ErrModulePaused, "Pausable: paused")
		}
		return nativecommon.NewRevert(nativecommon.ErrModulePaused, "Pausable: not paused")
	}
	if err := sw.SetPaused(moduleName, paused); err != nil {
		return err
	}
	e.emit(PausedEvent(caller, paused))
	return nil
}

// SetBlockHeight records the tick used by every settlement.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// SetRestrictFunding limits Fund to authorized callers.
func (e *Engine) SetRestrictFunding(restrict bool) {
	if e == nil {
		return
	}
	e.restrictFunding = restrict
}

// ModuleAddress returns the custody account of the farm.
func (e *Engine) ModuleAddress() common.Address { return e.moduleAddress }

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) authorize(caller common.Address, action string) error {
	if e.auth == nil || !e.auth.IsAuthorized(caller, action) {
		return nativecommon.NotOwner()
	}
	return nil
}

func (e *Engine) emit(evt *types.Event) {
	if e.emitter != nil {
		e.emitter.Emit(events.Wrap(evt))
	}
}

// Initialize creates the emission window. The end tick starts equal to the
// start tick; funding extends it.
func (e *Engine) Initialize(p Params) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok, err := e.state.FarmingWindow(); err != nil {
		return err
	} else if ok {
		return nativecommon.NewRevert(nativecommon.ErrAlreadyInitialized, "farming: already initialized")
	}
	token := strings.ToUpper(strings.TrimSpace(p.RewardToken))
	if token == "" {
		return fmt.Errorf("farming engine: reward token required")
	}
	if p.RewardPerTick == nil || p.RewardPerTick.Sign() <= 0 {
		return fmt.Errorf("farming engine: reward per tick must be positive")
	}
	w := &Window{
		RewardToken:   token,
		RewardPerTick: new(big.Int).Set(p.RewardPerTick),
		StartTick:     p.StartTick,
		OpenTick:      p.StartTick,
		EndTick:       p.StartTick,
		Rewards:       treasury.New(),
		Allocated:     big.NewInt(0),
	}
	return e.state.PutFarmingWindow(w)
}

func (e *Engine) window() (*Window, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	w, ok, err := e.state.FarmingWindow()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nativecommon.NewRevert(nativecommon.ErrNotInitialized, "farming: not initialized")
	}
	return w, nil
}

func (e *Engine) pool(id uint64) (*Pool, error) {
	p, ok, err := e.state.FarmingPool(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nativecommon.Revertf(nativecommon.ErrUnknownPool, "farming: unknown pool %d", id)
	}
	return p, nil
}

// settle advances the pool accumulator to min(now, end).
func (e *Engine) settle(w *Window, p *Pool) {
	last := minTick(e.blockHeight, w.EndTick)
	if last <= p.LastRewardTick {
		return
	}
	if p.TotalDeposited == nil || p.TotalDeposited.Sign() == 0 || p.Weight == 0 || w.TotalWeight == 0 {
		p.LastRewardTick = last
		return
	}
	reward := poolReward(last-p.LastRewardTick, w.RewardPerTick, p.Weight, w.TotalWeight)
	p.AccRewardPerShare = accumulate(p.AccRewardPerShare, reward, p.TotalDeposited)
	p.LastRewardTick = last
	w.Allocated = new(big.Int).Add(cloneOrZero(w.Allocated), reward)
}

func (e *Engine) massSettle(w *Window) error {
	for id := uint64(0); id < w.PoolCount; id++ {
		p, err := e.pool(id)
		if err != nil {
			return err
		}
		e.settle(w, p)
		if err := e.state.PutFarmingPool(p); err != nil {
			return err
		}
	}
	return nil
}

// SettlePool brings one pool's accumulator up to date. It is idempotent within
// a tick.
func (e *Engine) SettlePool(id uint64) error {
	w, err := e.window()
	if err != nil {
		return err
	}
	p, err := e.pool(id)
	if err != nil {
		return err
	}
	e.settle(w, p)
	if err := e.state.PutFarmingPool(p); err != nil {
		return err
	}
	return e.state.PutFarmingWindow(w)
}

// MassSettle settles every pool.
func (e *Engine) MassSettle() error {
	w, err := e.window()
	if err != nil {
		return err
	}
	if err := e.massSettle(w); err != nil {
		return err
	}
	return e.state.PutFarmingWindow(w)
}

// Fund deposits reward tokens and extends the emission window by
// amount / rewardPerTick ticks.
func (e *Engine) Fund(caller common.Address, amount *big.Int) error {
	w, err := e.window()
	if err != nil {
		return err
	}
	if e.tokens == nil {
		return errNilTokens
	}
	if e.restrictFunding {
		if err := e.authorize(caller, ActionFund); err != nil {
			return err
		}
	}
	if amount == nil || amount.Sign() <= 0 {
		return nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "fund: invalid amount")
	}
	ticks, rem := new(big.Int).QuoRem(amount, w.RewardPerTick, new(big.Int))
	if rem.Sign() != 0 || !ticks.IsUint64() {
		return nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "fund: invalid amount")
	}
	now := e.blockHeight
	if w.Funded() && now >= w.EndTick {
		return nativecommon.NewRevert(nativecommon.ErrWindowClosed, "fund: too late, the farm is closed")
	}
	if !w.Funded() && now > w.StartTick {
		// Emission opens now; the unfunded gap since the start is skipped.
		w.OpenTick = now
		w.EndTick = now
		for id := uint64(0); id < w.PoolCount; id++ {
			p, err := e.pool(id)
			if err != nil {
				return err
			}
			p.LastRewardTick = maxTick(p.LastRewardTick, now)
			if err := e.state.PutFarmingPool(p); err != nil {
				return err
			}
		}
	}
	end := w.EndTick + ticks.Uint64()
	if end < w.EndTick {
		return nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "fund: invalid amount")
	}
	w.EndTick = end
	if err := w.Rewards.Credit(amount); err != nil {
		return err
	}
	if err := e.tokens.TransferFrom(w.RewardToken, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return err
	}
	if err := e.state.PutFarmingWindow(w); err != nil {
		return err
	}
	e.emit(FundedEvent(caller, amount, w.EndTick))
	return nil
}

// AddPool registers a new pool. Only the farm owner may call it.
func (e *Engine) AddPool(caller common.Address, weight uint64, asset string, massUpdate bool) (*Pool, error) {
	w, err := e.window()
	if err != nil {
		return nil, err
	}
	if err := e.authorize(caller, ActionAddPool); err != nil {
		return nil, err
	}
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset == "" {
		return nil, fmt.Errorf("farming engine: pool asset required")
	}
	if massUpdate {
		if err := e.massSettle(w); err != nil {
			return nil, err
		}
	}
	total := w.TotalWeight + weight
	if total < w.TotalWeight {
		return nil, errWeightRange
	}
	p := &Pool{
		ID:                w.PoolCount,
		Asset:             asset,
		Weight:            weight,
		LastRewardTick:    maxTick(e.blockHeight, maxTick(w.StartTick, w.OpenTick)),
		AccRewardPerShare: big.NewInt(0),
		TotalDeposited:    big.NewInt(0),
	}
	w.TotalWeight = total
	w.PoolCount++
	if err := e.state.PutFarmingPool(p); err != nil {
		return nil, err
	}
	if err := e.state.PutFarmingWindow(w); err != nil {
		return nil, err
	}
	e.emit(PoolAddedEvent(p))
	return p.Clone(), nil
}

// SetWeight changes a pool's share of emission. The pool is settled under its
// old weight first.
func (e *Engine) SetWeight(caller common.Address, id uint64, weight uint64, massUpdate bool) error {
	w, err := e.window()
	if err != nil {
		return err
	}
	if err := e.authorize(caller, ActionSetWeight); err != nil {
		return err
	}
	if _, err := e.pool(id); err != nil {
		return err
	}
	if massUpdate {
		if err := e.massSettle(w); err != nil {
			return err
		}
	}
	p, err := e.pool(id)
	if err != nil {
		return err
	}
	e.settle(w, p)
	total := w.TotalWeight - p.Weight + weight
	if total < weight {
		return errWeightRange
	}
	previous := p.Weight
	p.Weight = weight
	w.TotalWeight = total
	if err := e.state.PutFarmingPool(p); err != nil {
		return err
	}
	if err := e.state.PutFarmingWindow(w); err != nil {
		return err
	}
	e.emit(PoolWeightEvent(id, previous, weight))
	return nil
}

func (e *Engine) payReward(w *Window, to common.Address, id uint64, amount *big.Int) (*big.Int, error) {
	paid := w.Rewards.Debit(amount)
	if paid.Sign() == 0 {
		return paid, nil
	}
	w.Allocated = new(big.Int).Sub(cloneOrZero(w.Allocated), paid)
	if w.Allocated.Sign() < 0 {
		w.Allocated = big.NewInt(0)
	}
	if err := e.tokens.Transfer(w.RewardToken, e.moduleAddress, to, paid); err != nil {
		return nil, err
	}
	e.emit(RewardPaidEvent(id, to, paid))
	return paid, nil
}

// Deposit settles the pool, harvests pending reward, then pulls amount of the
// pool asset from the caller. A zero amount only harvests.
func (e *Engine) Deposit(caller common.Address, id uint64, amount *big.Int) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	w, err := e.window()
	if err != nil {
		return nil, err
	}
	if e.tokens == nil {
		return nil, errNilTokens
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "deposit: invalid amount")
	}
	if e.blockHeight >= w.EndTick {
		return nil, nativecommon.NewRevert(nativecommon.ErrWindowClosed, "deposit: cannot deposit after end block")
	}
	p, err := e.pool(id)
	if err != nil {
		return nil, err
	}
	pos, err := e.state.FarmingPosition(id, caller)
	if err != nil {
		return nil, err
	}
	e.settle(w, p)
	pending := pendingOf(pos, p.AccRewardPerShare)

	if amount.Sign() > 0 {
		if err := e.tokens.TransferFrom(p.Asset, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
			return nil, err
		}
		pos.Amount = new(big.Int).Add(cloneOrZero(pos.Amount), amount)
		p.TotalDeposited = new(big.Int).Add(cloneOrZero(p.TotalDeposited), amount)
	}
	pos.RewardDebt = accrued(pos.Amount, p.AccRewardPerShare)

	paid, err := e.payReward(w, caller, id, pending)
	if err != nil {
		return nil, err
	}
	if err := e.persist(w, p, pos); err != nil {
		return nil, err
	}
	e.emit(DepositEvent(id, caller, amount, pos.Amount))
	return paid, nil
}

// Withdraw settles the pool, harvests pending reward and returns amount of
// principal. A zero amount only harvests.
func (e *Engine) Withdraw(caller common.Address, id uint64, amount *big.Int) (*big.Int, error) {
	w, err := e.window()
	if err != nil {
		return nil, err
	}
	if e.tokens == nil {
		return nil, errNilTokens
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "withdraw: invalid amount")
	}
	p, err := e.pool(id)
	if err != nil {
		return nil, err
	}
	pos, err := e.state.FarmingPosition(id, caller)
	if err != nil {
		return nil, err
	}
	if cloneOrZero(pos.Amount).Cmp(amount) < 0 {
		return nil, nativecommon.NewRevert(nativecommon.ErrExceedsDeposit, "withdraw: can't withdraw more than deposit")
	}
	e.settle(w, p)
	pending := pendingOf(pos, p.AccRewardPerShare)

	pos.Amount = new(big.Int).Sub(pos.Amount, amount)
	p.TotalDeposited = new(big.Int).Sub(cloneOrZero(p.TotalDeposited), amount)
	pos.RewardDebt = accrued(pos.Amount, p.AccRewardPerShare)

	paid, err := e.payReward(w, caller, id, pending)
	if err != nil {
		return nil, err
	}
	if amount.Sign() > 0 {
		if err := e.tokens.Transfer(p.Asset, e.moduleAddress, caller, amount); err != nil {
			return nil, err
		}
	}
	if err := e.persist(w, p, pos); err != nil {
		return nil, err
	}
	e.emit(WithdrawEvent(id, caller, amount, pos.Amount))
	return paid, nil
}

// EmergencyWithdraw returns the caller's whole principal without touching the
// reward token. Pending reward is forfeited. Calling it again on an empty
// position is a no-op.
func (e *Engine) EmergencyWithdraw(caller common.Address, id uint64) (*big.Int, error) {
	w, err := e.window()
	if err != nil {
		return nil, err
	}
	if e.tokens == nil {
		return nil, errNilTokens
	}
	p, err := e.pool(id)
	if err != nil {
		return nil, err
	}
	pos, err := e.state.FarmingPosition(id, caller)
	if err != nil {
		return nil, err
	}
	e.settle(w, p)
	forfeited := pendingOf(pos, p.AccRewardPerShare)
	w.Allocated = new(big.Int).Sub(cloneOrZero(w.Allocated), forfeited)
	if w.Allocated.Sign() < 0 {
		w.Allocated = big.NewInt(0)
	}

	amount := cloneOrZero(pos.Amount)
	pos.Amount = big.NewInt(0)
	pos.RewardDebt = big.NewInt(0)
	p.TotalDeposited = new(big.Int).Sub(cloneOrZero(p.TotalDeposited), amount)
	if p.TotalDeposited.Sign() < 0 {
		p.TotalDeposited = big.NewInt(0)
	}
	if amount.Sign() > 0 {
		if err := e.tokens.Transfer(p.Asset, e.moduleAddress, caller, amount); err != nil {
			return nil, err
		}
	}
	if err := e.persist(w, p, pos); err != nil {
		return nil, err
	}
	e.emit(EmergencyWithdrawEvent(id, caller, amount))
	return amount, nil
}

func (e *Engine) persist(w *Window, p *Pool, pos *Position) error {
	if err := e.state.PutFarmingPool(p); err != nil {
		return err
	}
	if err := e.state.PutFarmingPosition(pos); err != nil {
		return err
	}
	return e.state.PutFarmingWindow(w)
}

// Pending returns the reward addr could harvest now, computed without mutating
// state.
func (e *Engine) Pending(id uint64, addr common.Address) (*big.Int, error) {
	w, err := e.window()
	if err != nil {
		return nil, err
	}
	p, err := e.pool(id)
	if err != nil {
		return nil, err
	}
	pos, err := e.state.FarmingPosition(id, addr)
	if err != nil {
		return nil, err
	}
	e.settle(w, p)
	return pendingOf(pos, p.AccRewardPerShare), nil
}

// TotalPending returns the reward that settling every pool and withdrawing
// every position would pay now. Emission over intervals in which a pool was
// empty or weightless is excluded; the result never exceeds the unpaid funding.
func (e *Engine) TotalPending() (*big.Int, error) {
	w, err := e.window()
	if err != nil {
		return nil, err
	}
	for id := uint64(0); id < w.PoolCount; id++ {
		p, err := e.pool(id)
		if err != nil {
			return nil, err
		}
		e.settle(w, p)
	}
	return treasury.Cap(w.Allocated, w.Rewards.Available()), nil
}

// Deposited returns the principal addr holds in the pool.
func (e *Engine) Deposited(id uint64, addr common.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := e.pool(id); err != nil {
		return nil, err
	}
	pos, err := e.state.FarmingPosition(id, addr)
	if err != nil {
		return nil, err
	}
	return cloneOrZero(pos.Amount), nil
}

// Pool returns a copy of the pool.
func (e *Engine) Pool(id uint64) (*Pool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	p, err := e.pool(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// PoolLength returns the number of registered pools.
func (e *Engine) PoolLength() (uint64, error) {
	w, err := e.window()
	if err != nil {
		return 0, err
	}
	return w.PoolCount, nil
}

// Window returns the emission schedule.
func (e *Engine) Window() (*Window, error) {
	w, err := e.window()
	if err != nil {
		return nil, err
	}
	return w.Clone(), nil
}
