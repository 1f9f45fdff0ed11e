package tradefeed

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/joripage/ergodic/pkg/clock"
	"github.com/joripage/ergodic/pkg/orderbook"
)

const defaultPublishTimeout = 2 * time.Second

// Publisher receives every trade the dispatcher reads off the engine sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type DispatcherOption func(*Dispatcher)

func WithClock(c clock.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

func WithPublishTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.publishTimeout = timeout
	}
}

func WithDispatcherLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// Dispatcher fans trades out to publishers in registration order. A failed
// publish is logged and counted, not retried.
type Dispatcher struct {
	publishers     []Publisher
	clock          clock.Clock
	publishTimeout time.Duration
	logger         *zap.Logger

	seq       uint64
	published *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

func NewDispatcher(publishers []Publisher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		publishers:     publishers,
		clock:          clock.Real{},
		publishTimeout: defaultPublishTimeout,
		logger:         zap.NewNop(),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_published_total",
			Help: "Trades handed to a feed publisher",
		}, []string{"publisher"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_publish_failures_total",
			Help: "Trades a feed publisher failed to accept",
		}, []string{"publisher"}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Register(reg prometheus.Registerer) error {
	if err := reg.Register(d.published); err != nil {
		return err
	}
	return reg.Register(d.failures)
}

// Run reads trades until the channel is closed (returns nil) or ctx is done.
func (d *Dispatcher) Run(ctx context.Context, trades <-chan orderbook.Trade) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-trades:
			if !ok {
				return nil
			}
			d.seq++
			d.dispatch(ctx, newEvent(d.seq, t, d.clock.Now()))
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) {
	for _, p := range d.publishers {
		pctx, cancel := context.WithTimeout(ctx, d.publishTimeout)
		err := p.Publish(pctx, ev)
		cancel()

		if err != nil {
			d.failures.WithLabelValues(p.Name()).Inc()
			d.logger.Warn("publish trade failed",
				zap.String("publisher", p.Name()),
				zap.Uint64("seq", ev.Seq),
				zap.Error(err),
			)
			continue
		}
		d.published.WithLabelValues(p.Name()).Inc()
	}
}

// Close closes every publisher and joins their errors.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, p := range d.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
