package tradefeed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultArchiveBatch = 256
	defaultArchiveFlush = 500 * time.Millisecond
)

// TradeRecord is a row of the trades table.
type TradeRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	Price      int64     `gorm:"not null"`
	Qty        uint64    `gorm:"not null"`
	ExecutedAt time.Time `gorm:"not null;index"`
}

func (TradeRecord) TableName() string { return "trades" }

type ITradeRepo interface {
	Create(ctx context.Context, record *TradeRecord) (*TradeRecord, error)
	BulkCreate(ctx context.Context, records []*TradeRecord) ([]*TradeRecord, error)
	Recent(ctx context.Context, limit int) ([]*TradeRecord, error)
}

type TradeSQLRepo struct {
	db *gorm.DB
}

func NewTradeSQLRepo(db *gorm.DB) *TradeSQLRepo {
	return &TradeSQLRepo{
		db: db,
	}
}

func (r *TradeSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *TradeSQLRepo) Create(ctx context.Context, record *TradeRecord) (*TradeRecord, error) {
	return record, r.dbWithContext(ctx).Create(record).Error
}

func (r *TradeSQLRepo) BulkCreate(ctx context.Context, records []*TradeRecord) ([]*TradeRecord, error) {
	return records, r.dbWithContext(ctx).Create(records).Error
}

// Recent returns the newest rows first. Reads go to a replica when one is registered.
func (r *TradeSQLRepo) Recent(ctx context.Context, limit int) ([]*TradeRecord, error) {
	var out []*TradeRecord
	err := r.dbWithContext(ctx).Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// Archive batches trades into the repo from its own goroutine so a slow
// database never holds up the dispatcher.
type Archive struct {
	repo          ITradeRepo
	batchSize     int
	flushInterval time.Duration
	logger        *zap.Logger

	in      chan *TradeRecord
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

func NewArchive(repo ITradeRepo, batchSize int, flushInterval time.Duration, logger *zap.Logger) *Archive {
	if batchSize <= 0 {
		batchSize = defaultArchiveBatch
	}
	if flushInterval <= 0 {
		flushInterval = defaultArchiveFlush
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Archive{
		repo:          repo,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		in:            make(chan *TradeRecord, batchSize*4),
		stopped:       make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Archive) Name() string { return "postgres" }

func (a *Archive) Publish(_ context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrPublisherClosed
	}

	select {
	case a.in <- &TradeRecord{Price: ev.Price, Qty: ev.Qty, ExecutedAt: ev.ExecutedAt}:
		return nil
	default:
		return ErrArchiveFull
	}
}

func (a *Archive) loop() {
	defer close(a.stopped)

	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	batch := make([]*TradeRecord, 0, a.batchSize)
	for {
		select {
		case rec, ok := <-a.in:
			if !ok {
				a.flush(batch)
				return
			}
			batch = append(batch, rec)
			if len(batch) >= a.batchSize {
				a.flush(batch)
				batch = make([]*TradeRecord, 0, a.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = make([]*TradeRecord, 0, a.batchSize)
			}
		}
	}
}

func (a *Archive) flush(batch []*TradeRecord) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.repo.BulkCreate(ctx, batch); err != nil {
		a.logger.Error("archive trades failed", zap.Int("count", len(batch)), zap.Error(err))
	}
}

// Close flushes what is buffered and stops the writer.
func (a *Archive) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.in)
	}
	a.mu.Unlock()
	<-a.stopped
	return nil
}
