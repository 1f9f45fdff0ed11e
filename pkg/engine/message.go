package engine

import "github.com/joripage/ergodic/pkg/orderbook"

// Msg is a request consumed by the engine loop, in dequeue order.
type Msg interface {
	isMsg()
}

// SubmitOrder hands an order to the book. It has no response; resulting
// trades go to the trade sink.
type SubmitOrder struct {
	Order orderbook.Order
}

// QuoteRequest asks for the best bid and ask. ReplyTo receives exactly one
// value and should have capacity for it.
type QuoteRequest struct {
	ReplyTo chan<- Quote
}

// DepthRequest asks for aggregated book depth, Levels per side (0 = all).
type DepthRequest struct {
	Levels  int
	ReplyTo chan<- Depth
}

func (SubmitOrder) isMsg()  {}
func (QuoteRequest) isMsg() {}
func (DepthRequest) isMsg() {}

// Quote is the answer to a QuoteRequest. OK is false when either side of the
// book is empty, in which case Bid and Ask are zero.
type Quote struct {
	Bid int64 `json:"bid"`
	Ask int64 `json:"ask"`
	OK  bool  `json:"-"`
}

type Depth struct {
	Bids []orderbook.Level `json:"bids"`
	Asks []orderbook.Level `json:"asks"`
}
