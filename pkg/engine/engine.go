package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/joripage/ergodic/pkg/orderbook"
)

// dropLogEvery samples sink-drop debug logs.
const dropLogEvery = 1000

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithBook hands a prepared book to the engine. The engine owns it afterwards
// and cfg.SelfMatch is ignored.
func WithBook(b *orderbook.OrderBook) Option {
	return func(e *Engine) {
		e.book = b
	}
}

// Engine is the single writer of one OrderBook. Producers enqueue messages
// from any goroutine; Run applies them one at a time in dequeue order.
type Engine struct {
	cfg  Config
	book *orderbook.OrderBook

	inbound chan Msg
	trades  chan orderbook.Trade

	done      chan struct{}
	closeMu   sync.RWMutex
	closeOnce sync.Once
	running   atomic.Bool
	dropped   atomic.Uint64

	logger  *zap.Logger
	metrics *Metrics
}

func New(cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:     cfg,
		book:    orderbook.New(orderbook.WithSelfMatchPolicy(cfg.SelfMatch)),
		inbound: make(chan Msg, cfg.InboundCapacity),
		trades:  make(chan orderbook.Trade, cfg.TradeBuffer),
		done:    make(chan struct{}),
		logger:  zap.NewNop(),
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register exposes the engine metrics and the inbound queue depth.
func (e *Engine) Register(reg prometheus.Registerer) error {
	queueDepth := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "inbound_queue_depth", Help: "Messages waiting for the engine loop"},
		func() float64 { return float64(len(e.inbound)) },
	)
	for _, c := range append(e.metrics.collectors(), queueDepth) {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Trades is the bounded trade sink. Trades are dropped when it is full. The
// channel is closed when Run returns.
func (e *Engine) Trades() <-chan orderbook.Trade {
	return e.trades
}

// Run drains the inbound queue until it is closed and empty (returns nil) or
// ctx is cancelled (returns ctx.Err()). It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer close(e.trades)

	e.logger.Info("match engine started",
		zap.Int("inbound_capacity", e.cfg.InboundCapacity),
		zap.Stringer("overflow", e.cfg.Overflow),
		zap.Int("trade_buffer", e.cfg.TradeBuffer),
		zap.Stringer("self_match", e.cfg.SelfMatch),
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("match engine cancelled", zap.Error(ctx.Err()))
			return ctx.Err()
		case msg, ok := <-e.inbound:
			if !ok {
				e.logger.Info("match engine stopped, inbound closed")
				return nil
			}
			e.handle(msg)
		}
	}
}

func (e *Engine) handle(msg Msg) {
	switch m := msg.(type) {
	case SubmitOrder:
		e.metrics.OrdersSubmitted.Inc()
		for _, t := range e.book.Submit(m.Order) {
			e.publish(t)
		}
	case QuoteRequest:
		e.metrics.QuoteRequests.Inc()
		bid, ask, ok := e.book.BestBidAsk()
		reply(m.ReplyTo, Quote{Bid: bid, Ask: ask, OK: ok})
	case DepthRequest:
		e.metrics.DepthRequests.Inc()
		reply(m.ReplyTo, Depth{
			Bids: e.book.Depth(orderbook.Bid, m.Levels),
			Asks: e.book.Depth(orderbook.Ask, m.Levels),
		})
	}
}

func (e *Engine) publish(t orderbook.Trade) {
	e.metrics.Trades.Inc()
	select {
	case e.trades <- t:
	default:
		e.metrics.TradesDropped.Inc()
		if n := e.dropped.Add(1); n%dropLogEvery == 1 {
			e.logger.Debug("trade sink full, dropping trade",
				zap.Int64("price", t.Price),
				zap.Uint64("qty", t.Qty),
				zap.Uint64("dropped_total", n),
			)
		}
	}
}

// reply delivers at most once and never blocks. A requester that already
// went away, or closed its channel, is ignored.
func reply[T any](ch chan<- T, v T) {
	if ch == nil {
		return
	}
	defer func() { _ = recover() }()
	select {
	case ch <- v:
	default:
	}
}

// Send enqueues msg according to the overflow policy.
func (e *Engine) Send(ctx context.Context, msg Msg) error {
	e.closeMu.RLock()
	defer e.closeMu.RUnlock()

	select {
	case <-e.done:
		return ErrClosed
	default:
	}

	if e.cfg.Overflow == OverflowReject {
		select {
		case e.inbound <- msg:
			return nil
		default:
			e.metrics.InboundRejected.Inc()
			return ErrQueueFull
		}
	}

	select {
	case e.inbound <- msg:
		return nil
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Submit(ctx context.Context, order orderbook.Order) error {
	return e.Send(ctx, SubmitOrder{Order: order})
}

// Quote waits for the engine to answer. There is no timeout besides ctx.
func (e *Engine) Quote(ctx context.Context) (Quote, error) {
	replyTo := make(chan Quote, 1)
	if err := e.Send(ctx, QuoteRequest{ReplyTo: replyTo}); err != nil {
		return Quote{}, err
	}
	select {
	case q := <-replyTo:
		return q, nil
	case <-ctx.Done():
		return Quote{}, ctx.Err()
	}
}

func (e *Engine) Depth(ctx context.Context, levels int) (Depth, error) {
	replyTo := make(chan Depth, 1)
	if err := e.Send(ctx, DepthRequest{Levels: levels, ReplyTo: replyTo}); err != nil {
		return Depth{}, err
	}
	select {
	case d := <-replyTo:
		return d, nil
	case <-ctx.Done():
		return Depth{}, ctx.Err()
	}
}

// Close stops accepting messages. Already queued messages are still handled
// and Run returns once they are drained. Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		e.closeMu.Lock()
		close(e.inbound)
		e.closeMu.Unlock()
	})
}
