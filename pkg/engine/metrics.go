package engine

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	OrdersSubmitted prometheus.Counter
	QuoteRequests   prometheus.Counter
	DepthRequests   prometheus.Counter
	Trades          prometheus.Counter
	TradesDropped   prometheus.Counter
	InboundRejected prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		OrdersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{Name: "orders_submitted_total", Help: "Orders handed to the book"}),
		QuoteRequests:   prometheus.NewCounter(prometheus.CounterOpts{Name: "quote_requests_total", Help: "Best bid/ask requests served"}),
		DepthRequests:   prometheus.NewCounter(prometheus.CounterOpts{Name: "depth_requests_total", Help: "Depth requests served"}),
		Trades:          prometheus.NewCounter(prometheus.CounterOpts{Name: "trades_total", Help: "Trades produced by the book"}),
		TradesDropped:   prometheus.NewCounter(prometheus.CounterOpts{Name: "trades_dropped_total", Help: "Trades dropped because the trade sink was full"}),
		InboundRejected: prometheus.NewCounter(prometheus.CounterOpts{Name: "inbound_rejected_total", Help: "Requests rejected because the inbound queue was full"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OrdersSubmitted, m.QuoteRequests, m.DepthRequests,
		m.Trades, m.TradesDropped, m.InboundRejected,
	}
}
