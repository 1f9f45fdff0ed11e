package orderbook

type Side int8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "BID"
	}
	return "ASK"
}

// Order is a limit order. Qty is the remaining quantity and is decremented
// in place while the order is matched or resting.
type Order struct {
	ID        uint64
	Side      Side
	Price     int64 // ticks
	Qty       uint64
	Timestamp int64 // unix nanos at insertion, informational only
}
