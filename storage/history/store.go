package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/clause"

	"stakeledger/core/events"
	"stakeledger/core/types"
	"stakeledger/native/farming"
	"stakeledger/native/params"
	"stakeledger/native/staking"
	ledgerotel "stakeledger/observability/otel"
)

const defaultQueue = 1024

// Options tunes an index.
type Options struct {
	Logger *slog.Logger
	// QueueSize bounds the number of committed events waiting to be written.
	QueueSize int
	// Debug logs every SQL statement.
	Debug bool
}

// Index persists committed ledger events. It is a bus subscriber; writes
// happen on a background worker so publishing never waits on the database.
type Index struct {
	db      *gorm.DB
	logger  *slog.Logger
	indexed metric.Int64Counter

	mu     sync.RWMutex
	closed bool
	queue  chan *types.Event
	done   chan struct{}
}

// Dialector picks the gorm driver for dsn: postgres URLs go to PostgreSQL,
// everything else is treated as a SQLite path.
func Dialector(dsn string) (gorm.Dialector, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("history: dsn required")
	}
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return postgres.Open(dsn), nil
	}
	return sqlite.Open(dsn), nil
}

// Open connects to dsn, migrates the schema and starts the writer.
func Open(dsn string, opts Options) (*Index, error) {
	dialector, err := Dialector(dsn)
	if err != nil {
		return nil, err
	}
	level := gormlogger.Silent
	if opts.Debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return New(db, opts), nil
}

// New wraps an already migrated connection.
func New(db *gorm.DB, opts Options) *Index {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueue
	}
	indexed, err := ledgerotel.Meter().Int64Counter("ledger.history.indexed",
		metric.WithDescription("Committed events written to the history index, by outcome."))
	if err != nil {
		logger.Warn("history counter unavailable", slog.Any("error", err))
	}
	idx := &Index{
		db:      db,
		logger:  logger.With(slog.String("component", "history")),
		indexed: indexed,
		queue:   make(chan *types.Event, size),
		done:    make(chan struct{}),
	}
	go idx.run()
	return idx
}

// DB exposes the underlying connection.
func (i *Index) DB() *gorm.DB { return i.db }

// Emit implements events.Emitter.
func (i *Index) Emit(evt events.Event) {
	if i == nil || evt == nil || evt.Event() == nil {
		return
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return
	}
	i.queue <- evt.Event().Clone()
}

// Close drains pending events and stops the writer. The connection stays
// open for queries until CloseDB.
func (i *Index) Close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	close(i.queue)
	i.mu.Unlock()
	<-i.done
}

// CloseDB stops the writer and releases the connection.
func (i *Index) CloseDB() error {
	i.Close()
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (i *Index) run() {
	defer close(i.done)
	ctx := context.Background()
	for evt := range i.queue {
		outcome := "ok"
		if err := i.Record(ctx, evt); err != nil {
			outcome = "error"
			i.logger.Error("index event",
				slog.String("id", evt.ID),
				slog.String("type", evt.Type),
				slog.Any("error", err))
		}
		if i.indexed != nil {
			i.indexed.Add(ctx, 1, metric.WithAttributes(
				attribute.String("module", moduleOf(evt.Type)),
				attribute.String("outcome", outcome)))
		}
	}
}

// Record writes evt synchronously. Replaying an event with the same ID is a
// no-op.
func (i *Index) Record(ctx context.Context, evt *types.Event) error {
	if evt == nil {
		return nil
	}
	if evt.ID == "" {
		return errors.New("history: event id required")
	}
	module := moduleOf(evt.Type)
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return err
	}
	blockTime := time.Unix(int64(evt.Time), 0).UTC()
	activity := Activity{
		EventID:    evt.ID,
		Module:     module,
		EventType:  evt.Type,
		Account:    evt.Attr("account"),
		Height:     evt.Height,
		BlockTime:  blockTime,
		Caller:     strings.ToLower(evt.Caller),
		Attributes: string(attrs),
	}
	payouts := payoutsFor(evt, module, blockTime)

	return i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&activity).Error; err != nil {
			return err
		}
		if len(payouts) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&payouts).Error
	})
}

func moduleOf(eventType string) string {
	if idx := strings.IndexByte(eventType, '.'); idx > 0 {
		return eventType[:idx]
	}
	return eventType
}

func payoutsFor(evt *types.Event, module string, blockTime time.Time) []Payout {
	base := Payout{
		EventID:   evt.ID,
		Module:    module,
		EventType: evt.Type,
		Account:   evt.Attr("account"),
		Height:    evt.Height,
		BlockTime: blockTime,
		Caller:    strings.ToLower(evt.Caller),
	}
	if raw := evt.Attr("pool"); raw != "" {
		if pid, err := strconv.ParseUint(raw, 10, 64); err == nil {
			base.Pool = &pid
		}
	}
	with := func(kind, amount string) Payout {
		p := base
		p.Kind = kind
		p.Amount = amount
		return p
	}

	var out []Payout
	switch evt.Type {
	case farming.EventTypeRewardPaid:
		out = append(out, with(KindReward, evt.Attr("amount")))
	case farming.EventTypeWithdraw, farming.EventTypeEmergencyWithdraw:
		out = append(out, with(KindPrincipal, evt.Attr("amount")))
	case staking.EventTypeUnstaked, staking.EventTypeUnstakedForced, staking.EventTypeUnstakedSingle:
		base.Positions = evt.Attr("positions")
		out = append(out, with(KindPrincipal, evt.Attr("principal")))
		out = append(out, with(KindReward, evt.Attr("reward")))
		out = append(out, with(KindShortfall, evt.Attr("shortfall")))
	}
	// Zero amounts are not payouts.
	filtered := out[:0]
	for _, p := range out {
		if p.Amount == "" || p.Amount == "0" {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

// Filter narrows history queries. Zero values match everything.
type Filter struct {
	Account    string
	Module     string
	Kind       string
	FromHeight uint64
	ToHeight   uint64
	Limit      int
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if account := strings.ToLower(strings.TrimSpace(f.Account)); account != "" {
		q = q.Where("account = ?", account)
	}
	if f.Module != "" {
		q = q.Where("module = ?", f.Module)
	}
	if f.FromHeight > 0 {
		q = q.Where("height >= ?", f.FromHeight)
	}
	if f.ToHeight > 0 {
		q = q.Where("height <= ?", f.ToHeight)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	return q
}

// Payouts lists payouts in commit order.
func (i *Index) Payouts(ctx context.Context, f Filter) ([]Payout, error) {
	q := f.apply(i.db.WithContext(ctx).Model(&Payout{}))
	if f.Kind != "" {
		q = q.Where("kind = ?", f.Kind)
	}
	var out []Payout
	if err := q.Order("height asc").Order("id asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Activities lists indexed events in commit order.
func (i *Index) Activities(ctx context.Context, f Filter) ([]Activity, error) {
	q := f.apply(i.db.WithContext(ctx).Model(&Activity{}))
	var out []Activity
	if err := q.Order("height asc").Order("id asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Modules lists the modules payouts are recorded for.
func Modules() []string {
	return []string{params.ModuleFarming, params.ModuleStaking}
}
