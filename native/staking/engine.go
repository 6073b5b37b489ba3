package staking

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/core/events"
	"stakeledger/core/types"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/treasury"
)

var (
	errNilState  = errors.New("staking engine: state not configured")
	errNilTokens = errors.New("staking engine: token ledger not configured")
	errNilPauses = errors.New("staking engine: pause switch not configured")
)

const moduleName = "staking"

// AdminRole is the state role whose members administer staking.
const AdminRole = "DEFAULT_ADMIN_ROLE"

// AdminRoleID is the 32-byte identifier reported in access-control errors.
const AdminRoleID = "0x0000000000000000000000000000000000000000000000000000000000000000"

// Actions checked against the authorizer.
const (
	ActionAddRewards       = "addRewards"
	ActionUpdatePercentage = "updateRewardsPercentage"
	ActionPause            = "pause"
	ActionUnpause          = "unpause"
	ActionGrantRole        = "grantRole"
)

// AdminActions are the actions granted to AdminRole members.
var AdminActions = []string{ActionAddRewards, ActionUpdatePercentage, ActionPause, ActionUnpause, ActionGrantRole}

type engineState interface {
	StakingConfig() (*Config, bool, error)
	PutStakingConfig(cfg *Config) error
	StakingQueue(addr common.Address) (*Queue, error)
	PutStakingQueue(q *Queue) error
	StakingPosition(addr common.Address, index uint64) (*Position, bool, error)
	PutStakingPosition(pos *Position) error
	SetRole(role string, addr common.Address) error
	RemoveRole(role string, addr common.Address) error
}

type tokenLedger interface {
	Transfer(symbol string, from, to common.Address, amount *big.Int) error
	TransferFrom(symbol string, spender, owner, to common.Address, amount *big.Int) error
}

// Engine runs fixed-term staking: every participant owns a FIFO queue of
// positions paid out of a capped reward treasury.
type Engine struct {
	state         engineState
	tokens        tokenLedger
	auth          nativecommon.Authorizer
	pauses        nativecommon.PauseSwitch
	emitter       events.Emitter
	moduleAddress common.Address
	nowFn         func() time.Time
	earlyUnstake  EarlyUnstakePolicy
}

// NewEngine constructs a staking engine holding custody at moduleAddr.
func NewEngine(moduleAddr common.Address) *Engine {
	return &Engine{
		moduleAddress: moduleAddr,
		emitter:       events.NoopEmitter{},
		nowFn:         time.Now,
		earlyUnstake:  EarlyUnstakeRelease,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokens wires the token ledger used for custody transfers.
func (e *Engine) SetTokens(tokens tokenLedger) { e.tokens = tokens }

// SetAuthorizer configures who may administer the module.
func (e *Engine) SetAuthorizer(auth nativecommon.Authorizer) {
	if e == nil {
		return
	}
	e.auth = auth
}

// SetPauses wires the persisted pause toggle behind Stake, Pause and Unpause.
func (e *Engine) SetPauses(p nativecommon.PauseSwitch) {
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

// SetNowFunc overrides the clock used for maturity checks.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if e == nil {
		return
	}
	if now == nil {
		now = time.Now
	}
	e.nowFn = now
}

// SetEarlyUnstakePolicy selects how Unstake treats an immature head.
func (e *Engine) SetEarlyUnstakePolicy(policy EarlyUnstakePolicy) {
	if e == nil {
		return
	}
	if policy == "" {
		policy = EarlyUnstakeRelease
	}
	e.earlyUnstake = policy
}

// ModuleAddress returns the custody account of the module.
func (e *Engine) ModuleAddress() common.Address { return e.moduleAddress }

func (e *Engine) now() uint64 {
	ts := e.nowFn().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) emit(evt *types.Event) {
	if e.emitter != nil {
		e.emitter.Emit(events.Wrap(evt))
	}
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) authorize(caller common.Address, action string) error {
	if e.auth == nil || !e.auth.IsAuthorized(caller, action) {
		return nativecommon.MissingRole(caller, AdminRoleID)
	}
	return nil
}

func (e *Engine) config() (*Config, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, ok, err := e.state.StakingConfig()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nativecommon.NewRevert(nativecommon.ErrNotInitialized, "staking: not initialized")
	}
	if cfg.TotalStaked == nil {
		cfg.TotalStaked = big.NewInt(0)
	}
	return cfg, nil
}

// Initialize stores the module parameters and grants the admin role to admin.
func (e *Engine) Initialize(admin common.Address, p Params) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, ok, err := e.state.StakingConfig(); err != nil {
		return err
	} else if ok {
		return nativecommon.NewRevert(nativecommon.ErrAlreadyInitialized, "staking: already initialized")
	}
	stakingToken := strings.ToUpper(strings.TrimSpace(p.StakingToken))
	rewardToken := strings.ToUpper(strings.TrimSpace(p.RewardToken))
	if stakingToken == "" || rewardToken == "" {
		return fmt.Errorf("staking engine: staking and reward tokens required")
	}
	cfg := &Config{
		StakingToken:      stakingToken,
		RewardToken:       rewardToken,
		RewardsPercentage: p.RewardsPercentage,
		Term:              p.TermSeconds,
		Rewards:           treasury.New(),
		TotalStaked:       big.NewInt(0),
	}
	if err := e.state.PutStakingConfig(cfg); err != nil {
		return err
	}
	if admin != (common.Address{}) {
		return e.state.SetRole(AdminRole, admin)
	}
	return nil
}

// Stake pulls amount of the staking token from the caller and appends a new
// position carrying the current reward percentage.
func (e *Engine) Stake(caller common.Address, amount *big.Int) (*Position, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "Invalid amount")
	}
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if e.tokens == nil {
		return nil, errNilTokens
	}
	q, err := e.state.StakingQueue(caller)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.TransferFrom(cfg.StakingToken, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return nil, err
	}
	pos := &Position{
		Owner:             caller,
		Index:             q.Tail,
		Amount:            new(big.Int).Set(amount),
		Timestamp:         e.now(),
		RewardsPercentage: cfg.RewardsPercentage,
	}
	q.Tail++
	cfg.TotalStaked = new(big.Int).Add(cfg.TotalStaked, amount)
	if err := e.state.PutStakingPosition(pos); err != nil {
		return nil, err
	}
	if err := e.state.PutStakingQueue(q); err != nil {
		return nil, err
	}
	if err := e.state.PutStakingConfig(cfg); err != nil {
		return nil, err
	}
	e.emit(StakedEvent(pos))
	return pos, nil
}

func (e *Engine) position(addr common.Address, index uint64) (*Position, error) {
	pos, ok, err := e.state.StakingPosition(addr, index)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nativecommon.NewRevert(nativecommon.ErrInvalidIndex, "Invalid index")
	}
	return pos, nil
}

// settle pays out a computed withdrawal: principal from custody, reward capped
// by the treasury.
func (e *Engine) settle(cfg *Config, caller common.Address, payout *Payout) error {
	payout.Reward = cfg.Rewards.Debit(payout.Entitlement)
	payout.TreasuryExhausted = cfg.Rewards.Exhausted()
	if payout.Principal.Sign() > 0 {
		if err := e.tokens.Transfer(cfg.StakingToken, e.moduleAddress, caller, payout.Principal); err != nil {
			return err
		}
		cfg.TotalStaked = new(big.Int).Sub(cfg.TotalStaked, payout.Principal)
		if cfg.TotalStaked.Sign() < 0 {
			cfg.TotalStaked = big.NewInt(0)
		}
	}
	if payout.Reward.Sign() > 0 {
		if err := e.tokens.Transfer(cfg.RewardToken, e.moduleAddress, caller, payout.Reward); err != nil {
			return err
		}
	}
	return e.state.PutStakingConfig(cfg)
}

// Unstake withdraws the position at the head of the caller's queue. Positions
// already paid through UnstakeSingle are passed over without payment. An empty
// queue is a no-op.
func (e *Engine) Unstake(caller common.Address) (*Payout, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if e.tokens == nil {
		return nil, errNilTokens
	}
	q, err := e.state.StakingQueue(caller)
	if err != nil {
		return nil, err
	}
	payout := newPayout()
	now := e.now()
	for q.Head < q.Tail {
		pos, err := e.position(caller, q.Head)
		if err != nil {
			return nil, err
		}
		q.Head++
		if pos.SingleClaimed {
			continue
		}
		if pos.Mature(now, cfg.Term) {
			payout.Entitlement = pos.Entitlement()
		} else if e.earlyUnstake == EarlyUnstakeReject {
			return nil, nativecommon.NewRevert(nativecommon.ErrNotMature, "Position not mature")
		}
		payout.Principal = new(big.Int).Set(pos.Amount)
		payout.Positions = append(payout.Positions, pos.Index)
		break
	}
	if err := e.settle(cfg, caller, payout); err != nil {
		return nil, err
	}
	if err := e.state.PutStakingQueue(q); err != nil {
		return nil, err
	}
	if len(payout.Positions) > 0 {
		e.emit(UnstakedEvent(EventTypeUnstaked, caller, payout))
	}
	return payout, nil
}

// UnstakeForced drains the whole queue: principal for every unclaimed
// position, reward only for the mature ones.
func (e *Engine) UnstakeForced(caller common.Address) (*Payout, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if e.tokens == nil {
		return nil, errNilTokens
	}
	q, err := e.state.StakingQueue(caller)
	if err != nil {
		return nil, err
	}
	payout := newPayout()
	now := e.now()
	for i := q.Head; i < q.Tail; i++ {
		pos, err := e.position(caller, i)
		if err != nil {
			return nil, err
		}
		if pos.SingleClaimed {
			continue
		}
		payout.Principal.Add(payout.Principal, pos.Amount)
		if pos.Mature(now, cfg.Term) {
			payout.Entitlement.Add(payout.Entitlement, pos.Entitlement())
		}
		payout.Positions = append(payout.Positions, pos.Index)
	}
	q.Head = q.Tail
	if err := e.settle(cfg, caller, payout); err != nil {
		return nil, err
	}
	if err := e.state.PutStakingQueue(q); err != nil {
		return nil, err
	}
	if len(payout.Positions) > 0 {
		e.emit(UnstakedEvent(EventTypeUnstakedForced, caller, payout))
	}
	return payout, nil
}

// UnstakeSingle withdraws one position by index without moving the queue head.
// An immature position returns its principal with no reward.
func (e *Engine) UnstakeSingle(caller common.Address, index uint64) (*Payout, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	if e.tokens == nil {
		return nil, errNilTokens
	}
	q, err := e.state.StakingQueue(caller)
	if err != nil {
		return nil, err
	}
	if index < q.Head || index >= q.Tail {
		return nil, nativecommon.NewRevert(nativecommon.ErrInvalidIndex, "Invalid index")
	}
	pos, err := e.position(caller, index)
	if err != nil {
		return nil, err
	}
	if pos.SingleClaimed {
		return nil, nativecommon.NewRevert(nativecommon.ErrAlreadyClaimed, "Already claimed")
	}
	payout := newPayout()
	payout.Principal = new(big.Int).Set(pos.Amount)
	if pos.Mature(e.now(), cfg.Term) {
		payout.Entitlement = pos.Entitlement()
	}
	payout.Positions = []uint64{index}
	pos.SingleClaimed = true
	if err := e.state.PutStakingPosition(pos); err != nil {
		return nil, err
	}
	if err := e.settle(cfg, caller, payout); err != nil {
		return nil, err
	}
	e.emit(UnstakedEvent(EventTypeUnstakedSingle, caller, payout))
	return payout, nil
}

// ComputeRewards returns the reward a forced unstake would pay right now:
// the mature unclaimed entitlements capped by the available rewards.
func (e *Engine) ComputeRewards(addr common.Address) (*big.Int, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	q, err := e.state.StakingQueue(addr)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	now := e.now()
	for i := q.Head; i < q.Tail; i++ {
		pos, err := e.position(addr, i)
		if err != nil {
			return nil, err
		}
		if pos.SingleClaimed || !pos.Mature(now, cfg.Term) {
			continue
		}
		total.Add(total, pos.Entitlement())
	}
	return treasury.Cap(total, cfg.AvailableRewards()), nil
}

// AddRewards pulls reward tokens from an admin into the treasury.
func (e *Engine) AddRewards(caller common.Address, amount *big.Int) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	if err := e.authorize(caller, ActionAddRewards); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nativecommon.NewRevert(nativecommon.ErrInvalidAmount, "Invalid amount")
	}
	if e.tokens == nil {
		return errNilTokens
	}
	if err := e.tokens.TransferFrom(cfg.RewardToken, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return err
	}
	if err := cfg.Rewards.Credit(amount); err != nil {
		return err
	}
	if err := e.state.PutStakingConfig(cfg); err != nil {
		return err
	}
	e.emit(RewardsAddedEvent(caller, amount, cfg.AvailableRewards()))
	return nil
}

// UpdateRewardsPercentage changes the percentage applied to new positions.
// Existing positions keep their snapshot.
func (e *Engine) UpdateRewardsPercentage(caller common.Address, percentage uint64) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	if err := e.authorize(caller, ActionUpdatePercentage); err != nil {
		return err
	}
	previous := cfg.RewardsPercentage
	cfg.RewardsPercentage = percentage
	if err := e.state.PutStakingConfig(cfg); err != nil {
		return err
	}
	e.emit(PercentageUpdatedEvent(previous, percentage))
	return nil
}

// Pause blocks new stakes. Withdrawals stay open.
func (e *Engine) Pause(caller common.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.authorize(caller, ActionPause); err != nil {
		return err
	}
	if e.pauses == nil {
		return errNilPauses
	}
	if e.pauses.IsPaused(moduleName) {
		return nativecommon.NewRevert(nativecommon.ErrModulePaused, "Pausable: paused")
	}
	if err := e.pauses.SetPaused(moduleName, true); err != nil {
		return err
	}
	e.emit(PauseEvent(EventTypePaused, caller))
	return nil
}

// Unpause re-opens staking.
func (e *Engine) Unpause(caller common.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.authorize(caller, ActionUnpause); err != nil {
		return err
	}
	if e.pauses == nil {
		return errNilPauses
	}
	if !e.pauses.IsPaused(moduleName) {
		return nativecommon.NewRevert(nativecommon.ErrModulePaused, "Pausable: not paused")
	}
	if err := e.pauses.SetPaused(moduleName, false); err != nil {
		return err
	}
	e.emit(PauseEvent(EventTypeUnpaused, caller))
	return nil
}

// Paused reports the pause toggle.
func (e *Engine) Paused() bool {
	return e != nil && e.pauses != nil && e.pauses.IsPaused(moduleName)
}

// GrantRole adds account to the admin role.
func (e *Engine) GrantRole(caller, account common.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.authorize(caller, ActionGrantRole); err != nil {
		return err
	}
	if err := e.state.SetRole(AdminRole, account); err != nil {
		return err
	}
	e.emit(RoleEvent(EventTypeRoleGranted, caller, account))
	return nil
}

// RevokeRole removes account from the admin role.
func (e *Engine) RevokeRole(caller, account common.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.authorize(caller, ActionGrantRole); err != nil {
		return err
	}
	if err := e.state.RemoveRole(AdminRole, account); err != nil {
		return err
	}
	e.emit(RoleEvent(EventTypeRoleRevoked, caller, account))
	return nil
}

// Position returns a stored position.
func (e *Engine) Position(addr common.Address, index uint64) (*Position, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.position(addr, index)
}

// Queue returns the head and tail cursors of addr.
func (e *Engine) Queue(addr common.Address) (*Queue, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.state.StakingQueue(addr)
}

// AvailableRewards returns the unpaid treasury balance.
func (e *Engine) AvailableRewards() (*big.Int, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	return cfg.AvailableRewards(), nil
}

// Config returns a copy of the module parameters.
func (e *Engine) Config() (*Config, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	out := *cfg
	out.Rewards = cfg.Rewards.Clone()
	out.TotalStaked = new(big.Int).Set(cfg.TotalStaked)
	return &out, nil
}

// Head returns the FIFO cursor of addr.
func (e *Engine) Head(addr common.Address) (uint64, error) {
	q, err := e.Queue(addr)
	if err != nil {
		return 0, err
	}
	return q.Head, nil
}

// Tail returns how many positions addr has ever opened.
func (e *Engine) Tail(addr common.Address) (uint64, error) {
	q, err := e.Queue(addr)
	if err != nil {
		return 0, err
	}
	return q.Tail, nil
}

// RewardsPercentage returns the percentage new positions receive.
func (e *Engine) RewardsPercentage() (uint64, error) {
	cfg, err := e.config()
	if err != nil {
		return 0, err
	}
	return cfg.RewardsPercentage, nil
}

// StakingTerm returns the maturity term in seconds.
func (e *Engine) StakingTerm() (uint64, error) {
	cfg, err := e.config()
	if err != nil {
		return 0, err
	}
	return cfg.Term, nil
}
