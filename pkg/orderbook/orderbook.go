// file: pkg/orderbook/orderbook.go

package orderbook

import (
	"container/heap"
	"sort"

	"github.com/gammazero/deque"
)

type Option func(*OrderBook)

func WithSelfMatchPolicy(p SelfMatchPolicy) Option {
	return func(ob *OrderBook) {
		ob.selfMatch = p
	}
}

// OrderBook holds resting interest for a single instrument. It is not safe
// for concurrent use; a single owner must serialize all calls.
type OrderBook struct {
	bids map[int64]*deque.Deque[*Order]
	asks map[int64]*deque.Deque[*Order]

	bidHeap *PriceHeap
	askHeap *PriceHeap

	selfMatch SelfMatchPolicy
}

func New(opts ...Option) *OrderBook {
	ob := &OrderBook{
		bids:    make(map[int64]*deque.Deque[*Order]),
		asks:    make(map[int64]*deque.Deque[*Order]),
		bidHeap: newBidHeap(),
		askHeap: newAskHeap(),
	}
	for _, opt := range opts {
		opt(ob)
	}
	return ob
}

// Submit matches the order against the contra side under price-time priority
// and rests any remainder. It never fails.
func (ob *OrderBook) Submit(order Order) []Trade {
	var sideBook, counterBook map[int64]*deque.Deque[*Order]
	var sideHeap, counterHeap *PriceHeap
	var crosses func(orderPrice, counterPrice int64) bool

	if order.Side == Bid {
		sideBook, sideHeap = ob.bids, ob.bidHeap
		counterBook, counterHeap = ob.asks, ob.askHeap
		crosses = func(orderPrice, counterPrice int64) bool { return orderPrice >= counterPrice }
	} else {
		sideBook, sideHeap = ob.asks, ob.askHeap
		counterBook, counterHeap = ob.bids, ob.bidHeap
		crosses = func(orderPrice, counterPrice int64) bool { return orderPrice <= counterPrice }
	}

	results := ob.matchOrder(&order, counterBook, counterHeap, crosses)

	if order.Qty > 0 {
		ob.addToBook(sideBook, sideHeap, &order)
	}

	return results
}

func (ob *OrderBook) matchOrder(
	order *Order,
	counterBook map[int64]*deque.Deque[*Order],
	counterHeap *PriceHeap,
	crosses func(orderPrice, counterPrice int64) bool,
) []Trade {
	var results []Trade

	for order.Qty > 0 {
		bestPrice, ok := counterHeap.Peek()
		if !ok || !crosses(order.Price, bestPrice) {
			break
		}

		q := counterBook[bestPrice]
		head := q.Front()

		if head.ID == order.ID {
			switch ob.selfMatch {
			case SelfMatchCancelResting:
				q.PopFront()
				ob.dropLevelIfEmpty(counterBook, counterHeap, bestPrice)
				continue
			case SelfMatchCancelIncoming:
				order.Qty = 0
				return results
			}
		}

		filled := min(order.Qty, head.Qty)
		order.Qty -= filled
		head.Qty -= filled
		results = append(results, Trade{Price: bestPrice, Qty: filled})

		if head.Qty == 0 {
			q.PopFront()
			ob.dropLevelIfEmpty(counterBook, counterHeap, bestPrice)
		}
	}

	return results
}

// dropLevelIfEmpty removes the best level once drained. Only the best level is
// ever drained by matching, so it is always the heap top.
func (ob *OrderBook) dropLevelIfEmpty(book map[int64]*deque.Deque[*Order], priceHeap *PriceHeap, price int64) {
	if book[price].Len() > 0 {
		return
	}
	delete(book, price)
	heap.Pop(priceHeap)
}

func (ob *OrderBook) addToBook(book map[int64]*deque.Deque[*Order], priceHeap *PriceHeap, order *Order) {
	if book[order.Price] == nil {
		book[order.Price] = &deque.Deque[*Order]{}
		heap.Push(priceHeap, order.Price)
	}
	book[order.Price].PushBack(order)
}

// BestBidAsk returns the best prices only when both sides are non-empty.
func (ob *OrderBook) BestBidAsk() (bid, ask int64, ok bool) {
	bid, okBid := ob.bidHeap.Peek()
	ask, okAsk := ob.askHeap.Peek()
	if !okBid || !okAsk {
		return 0, 0, false
	}
	return bid, ask, true
}

func (ob *OrderBook) BestBid() (int64, bool) {
	return ob.bidHeap.Peek()
}

func (ob *OrderBook) BestAsk() (int64, bool) {
	return ob.askHeap.Peek()
}

// Depth returns up to n aggregated levels of one side, best first. n <= 0
// returns every level.
func (ob *OrderBook) Depth(side Side, n int) []Level {
	book, priceHeap := ob.bids, ob.bidHeap
	if side == Ask {
		book, priceHeap = ob.asks, ob.askHeap
	}

	prices := priceHeap.Prices()
	sort.Slice(prices, func(i, j int) bool {
		return priceHeap.less(prices[i], prices[j])
	})
	if n > 0 && len(prices) > n {
		prices = prices[:n]
	}

	levels := make([]Level, 0, len(prices))
	for _, price := range prices {
		q := book[price]
		lvl := Level{Price: price, Orders: q.Len()}
		for i := 0; i < q.Len(); i++ {
			lvl.Qty += q.At(i).Qty
		}
		levels = append(levels, lvl)
	}
	return levels
}
