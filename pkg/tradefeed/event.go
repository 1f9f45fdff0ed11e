package tradefeed

import (
	"time"

	"github.com/joripage/ergodic/pkg/orderbook"
)

// Event is a trade as it leaves the engine, numbered in emission order.
type Event struct {
	Seq        uint64    `json:"seq"`
	Price      int64     `json:"price"`
	Qty        uint64    `json:"qty"`
	ExecutedAt time.Time `json:"executed_at"`
}

func newEvent(seq uint64, t orderbook.Trade, at time.Time) Event {
	return Event{Seq: seq, Price: t.Price, Qty: t.Qty, ExecutedAt: at}
}
