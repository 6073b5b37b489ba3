package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stakeledger/core/events"
	"stakeledger/core/state"
	"stakeledger/core/types"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/farming"
	"stakeledger/native/params"
	"stakeledger/native/staking"
	"stakeledger/native/token"
	"stakeledger/observability/metrics"
	ledgerotel "stakeledger/observability/otel"
	"stakeledger/storage"
)

var errNilDatabase = errors.New("core: database must not be nil")

// Options tunes engine policy and telemetry of a Node.
type Options struct {
	EarlyUnstake    staking.EarlyUnstakePolicy
	RestrictFunding bool
	Logger          *slog.Logger
	Metrics         *metrics.LedgerMetrics
	Tracer          trace.Tracer
}

// Node serializes every call against the ledger. Each call runs on a fresh
// state overlay that is committed as one batch on success and dropped on
// failure; buffered events are published only after the commit.
type Node struct {
	db      storage.Database
	clock   Clock
	bus     *events.Bus
	opts    Options
	logger  *slog.Logger
	metrics *metrics.LedgerMetrics
	tracer  trace.Tracer

	mu          sync.Mutex
	farmingAddr common.Address
	stakingAddr common.Address
}

// NewNode wires a node over db. The clock decides the block context of every
// call.
func NewNode(db storage.Database, clock Clock, opts Options) (*Node, error) {
	if db == nil {
		return nil, errNilDatabase
	}
	if clock == nil {
		return nil, fmt.Errorf("core: clock must not be nil")
	}
	if opts.EarlyUnstake == "" {
		opts.EarlyUnstake = staking.EarlyUnstakeRelease
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = ledgerotel.Tracer()
	}
	n := &Node{
		db:          db,
		clock:       clock,
		bus:         events.NewBus(),
		opts:        opts,
		logger:      logger.With(slog.String("component", "executor")),
		metrics:     opts.Metrics,
		tracer:      tracer,
		farmingAddr: nativecommon.ModuleAddress(params.ModuleFarming),
		stakingAddr: nativecommon.ModuleAddress(params.ModuleStaking),
	}
	if opts.Metrics != nil {
		n.bus.Subscribe(NewPayoutRecorder(opts.Metrics))
	}
	return n, nil
}

// Bus returns the bus committed events are published on.
func (n *Node) Bus() *events.Bus { return n.bus }

// Head returns the block context the next call will run under.
func (n *Node) Head() types.BlockHeader { return n.clock.Head() }

// FarmingAddress is the custody account deposits and rewards are approved to.
func (n *Node) FarmingAddress() common.Address { return n.farmingAddr }

// StakingAddress is the custody account stakes and rewards are approved to.
func (n *Node) StakingAddress() common.Address { return n.stakingAddr }

// Runtime is the set of engines bound to one call's state overlay.
type Runtime struct {
	Block   types.BlockHeader
	State   *state.Manager
	Tokens  *token.Ledger
	Params  *params.Store
	Farming *farming.Engine
	Staking *staking.Engine
}

func (n *Node) runtime(manager *state.Manager, emitter events.Emitter, head types.BlockHeader) *Runtime {
	tokens := token.NewLedger(manager)
	tokens.SetEmitter(emitter)
	store := params.NewStore(manager)

	farm := farming.NewEngine(n.farmingAddr)
	farm.SetState(manager)
	farm.SetTokens(tokens)
	farm.SetAuthorizer(nativecommon.NewRoleAuthorizer(manager, farming.OwnerRole, farming.OwnerActions...))
	farm.SetPauses(store)
	farm.SetEmitter(emitter)
	farm.SetBlockHeight(head.Height)
	farm.SetRestrictFunding(n.opts.RestrictFunding)

	stake := staking.NewEngine(n.stakingAddr)
	stake.SetState(manager)
	stake.SetTokens(tokens)
	stake.SetAuthorizer(nativecommon.NewRoleAuthorizer(manager, staking.AdminRole, staking.AdminActions...))
	stake.SetPauses(store)
	stake.SetEmitter(emitter)
	blockTime := head.Time()
	stake.SetNowFunc(func() time.Time { return blockTime })
	stake.SetEarlyUnstakePolicy(n.opts.EarlyUnstake)

	return &Runtime{
		Block:   head,
		State:   manager,
		Tokens:  tokens,
		Params:  store,
		Farming: farm,
		Staking: stake,
	}
}

// Execute runs fn as one atomic call on behalf of caller. Any error leaves
// state untouched and publishes nothing.
func (n *Node) Execute(ctx context.Context, operation string, caller common.Address, fn func(*Runtime) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	head := n.clock.Head()
	_, span := n.tracer.Start(ctx, operation, trace.WithAttributes(
		attribute.String("ledger.caller", caller.Hex()),
		attribute.Int64("ledger.height", int64(head.Height)),
	))
	defer span.End()

	manager := state.NewManager(n.db)
	buffer := &events.Buffer{}
	err := fn(n.runtime(manager, buffer, head))
	if err == nil {
		err = manager.PutChainHead(&head)
	}
	if err == nil {
		err = manager.Commit()
	}
	if err != nil {
		manager.Discard()
		kind := nativecommon.KindName(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		n.metrics.ObserveCall(operation, err, kind, time.Since(start))
		n.logger.Debug("call reverted",
			slog.String("operation", operation),
			slog.String("caller", caller.Hex()),
			slog.Uint64("height", head.Height),
			slog.String("kind", kind),
			slog.String("error", err.Error()))
		return err
	}

	n.metrics.ObserveCall(operation, nil, "", time.Since(start))
	n.metrics.SetBlockHeight(head.Height)
	n.publish(buffer.Events(), head, caller)
	n.refreshGauges()
	return nil
}

// Query runs fn against a throwaway overlay; writes are never committed.
func (n *Node) Query(ctx context.Context, fn func(*Runtime) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	manager := state.NewManager(n.db)
	defer manager.Discard()
	return fn(n.runtime(manager, events.NoopEmitter{}, n.clock.Head()))
}

func (n *Node) publish(buffered []events.Event, head types.BlockHeader, caller common.Address) {
	for _, evt := range buffered {
		payload := evt.Event().Clone()
		payload.ID = uuid.NewString()
		payload.Height = head.Height
		payload.Time = head.Timestamp
		payload.Caller = caller.Hex()
		n.bus.Emit(events.Wrap(payload))
	}
}

func (n *Node) refreshGauges() {
	if n.metrics == nil {
		return
	}
	manager := state.NewManager(n.db)
	if w, ok, err := manager.FarmingWindow(); err == nil && ok {
		n.metrics.SetTreasuryAvailable(params.ModuleFarming, w.Rewards.Available())
		n.metrics.SetPools(w.PoolCount)
	}
	if cfg, ok, err := manager.StakingConfig(); err == nil && ok {
		n.metrics.SetTreasuryAvailable(params.ModuleStaking, cfg.AvailableRewards())
	}
}
