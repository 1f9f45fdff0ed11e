package orderbook

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/gammazero/deque"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkInvariants asserts the structural guarantees that must hold after
// every Submit.
func checkInvariants(t *testing.T, ob *OrderBook) {
	t.Helper()

	for _, side := range []struct {
		book      map[int64]*deque.Deque[*Order]
		priceHeap *PriceHeap
	}{
		{ob.bids, ob.bidHeap},
		{ob.asks, ob.askHeap},
	} {
		require.Equal(t, len(side.book), side.priceHeap.Len(), "heap and map disagree")
		for price, q := range side.book {
			require.Positive(t, q.Len(), "empty level at %d", price)
			for i := 0; i < q.Len(); i++ {
				o := q.At(i)
				require.NotZero(t, o.Qty, "resting order %d at %d has zero qty", o.ID, price)
				require.Equal(t, price, o.Price)
			}
		}
	}

	if bid, ask, ok := ob.BestBidAsk(); ok {
		require.Less(t, bid, ask, "book is crossed")
	}
}

func TestNoTradeSingleOrder(t *testing.T) {
	ob := New()

	trades := ob.Submit(Order{ID: 1, Side: Ask, Price: 100, Qty: 10})
	assert.Empty(t, trades, "no trades with only one side")

	_, _, ok := ob.BestBidAsk()
	assert.False(t, ok, "no quote without a bid side")
	checkInvariants(t, ob)
}

func TestPartialFillLeavesRemainder(t *testing.T) {
	ob := New()
	ob.Submit(Order{ID: 2, Side: Ask, Price: 50, Qty: 10})

	trades := ob.Submit(Order{ID: 3, Side: Bid, Price: 55, Qty: 6})
	require.Len(t, trades, 1)
	assert.Equal(t, Trade{Price: 50, Qty: 6}, trades[0])

	ask, ok := ob.BestAsk()
	require.True(t, ok)
	assert.Equal(t, int64(50), ask)
	assert.Equal(t, []Level{{Price: 50, Qty: 4, Orders: 1}}, ob.Depth(Ask, 0))

	_, ok = ob.BestBid()
	assert.False(t, ok, "fully filled bid must not rest")
	_, _, ok = ob.BestBidAsk()
	assert.False(t, ok)
	checkInvariants(t, ob)
}

func TestFullMatchClearsLevel(t *testing.T) {
	ob := New()
	ob.Submit(Order{ID: 4, Side: Ask, Price: 75, Qty: 5})

	trades := ob.Submit(Order{ID: 5, Side: Bid, Price: 80, Qty: 5})
	assert.Equal(t, []Trade{{Price: 75, Qty: 5}}, trades)

	_, _, ok := ob.BestBidAsk()
	assert.False(t, ok)
	assert.Empty(t, ob.asks)
	assert.Zero(t, ob.askHeap.Len())
	checkInvariants(t, ob)
}

func TestFIFOMatch(t *testing.T) {
	ob := New()
	ob.Submit(Order{ID: 10, Side: Ask, Price: 100, Qty: 5})
	ob.Submit(Order{ID: 11, Side: Ask, Price: 100, Qty: 5})

	trades := ob.Submit(Order{ID: 12, Side: Bid, Price: 100, Qty: 7})
	assert.Equal(t, []Trade{{Price: 100, Qty: 5}, {Price: 100, Qty: 2}}, trades)

	q := ob.asks[100]
	require.Equal(t, 1, q.Len())
	assert.Equal(t, uint64(11), q.Front().ID, "order 10 must be consumed before 11")
	assert.Equal(t, uint64(3), q.Front().Qty)
	checkInvariants(t, ob)
}

func TestNonCrossingBidRests(t *testing.T) {
	ob := New()

	trades := ob.Submit(Order{ID: 20, Side: Bid, Price: 90, Qty: 10})
	assert.Empty(t, trades)

	_, _, ok := ob.BestBidAsk()
	assert.False(t, ok, "absent until an ask also rests")

	ob.Submit(Order{ID: 21, Side: Ask, Price: 95, Qty: 1})
	bid, ask, ok := ob.BestBidAsk()
	require.True(t, ok)
	assert.Equal(t, int64(90), bid)
	assert.Equal(t, int64(95), ask)
	assert.Equal(t, []Level{{Price: 90, Qty: 10, Orders: 1}}, ob.Depth(Bid, 0))
	checkInvariants(t, ob)
}

func TestNoMatchDueToPrice(t *testing.T) {
	ob := New()
	ob.Submit(Order{ID: 1, Side: Ask, Price: 100, Qty: 10})

	trades := ob.Submit(Order{ID: 2, Side: Bid, Price: 98, Qty: 10})
	assert.Empty(t, trades)

	bid, ask, ok := ob.BestBidAsk()
	require.True(t, ok)
	assert.Equal(t, int64(98), bid)
	assert.Equal(t, int64(100), ask)
}

func TestMultiLevelMatch(t *testing.T) {
	ob := New()
	for i, price := range []int64{103, 101, 102} {
		ob.Submit(Order{ID: uint64(i + 1), Side: Ask, Price: price, Qty: 5})
	}

	// Bid crosses every level and rests the remainder at its own price.
	trades := ob.Submit(Order{ID: 9, Side: Bid, Price: 105, Qty: 20})
	assert.Equal(t, []Trade{
		{Price: 101, Qty: 5},
		{Price: 102, Qty: 5},
		{Price: 103, Qty: 5},
	}, trades)

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, int64(105), bid)
	assert.Equal(t, []Level{{Price: 105, Qty: 5, Orders: 1}}, ob.Depth(Bid, 0))
	checkInvariants(t, ob)
}

func TestAskSweepsBidsBestFirst(t *testing.T) {
	ob := New()
	ob.Submit(Order{ID: 1, Side: Bid, Price: 98, Qty: 4})
	ob.Submit(Order{ID: 2, Side: Bid, Price: 100, Qty: 4})
	ob.Submit(Order{ID: 3, Side: Bid, Price: 99, Qty: 4})

	trades := ob.Submit(Order{ID: 4, Side: Ask, Price: 99, Qty: 10})
	assert.Equal(t, []Trade{{Price: 100, Qty: 4}, {Price: 99, Qty: 4}}, trades)

	bid, ask, ok := ob.BestBidAsk()
	require.True(t, ok)
	assert.Equal(t, int64(98), bid)
	assert.Equal(t, int64(99), ask)
	checkInvariants(t, ob)
}

func TestZeroQtyIsNoop(t *testing.T) {
	ob := New()
	ob.Submit(Order{ID: 1, Side: Ask, Price: 100, Qty: 10})

	trades := ob.Submit(Order{ID: 2, Side: Bid, Price: 100, Qty: 0})
	assert.Empty(t, trades)
	_, ok := ob.BestBid()
	assert.False(t, ok)
	assert.Equal(t, []Level{{Price: 100, Qty: 10, Orders: 1}}, ob.Depth(Ask, 0))
}

func TestNegativePricesMatchLiterally(t *testing.T) {
	ob := New()
	ob.Submit(Order{ID: 1, Side: Ask, Price: -10, Qty: 3})

	trades := ob.Submit(Order{ID: 2, Side: Bid, Price: -5, Qty: 3})
	assert.Equal(t, []Trade{{Price: -10, Qty: 3}}, trades)
}

func TestSelfMatchPolicies(t *testing.T) {
	tests := []struct {
		name       string
		policy     SelfMatchPolicy
		wantTrades []Trade
		wantAsks   []Level
		wantBids   []Level
	}{
		{
			name:       "allow",
			policy:     SelfMatchAllow,
			wantTrades: []Trade{{Price: 100, Qty: 5}, {Price: 101, Qty: 3}},
			wantAsks:   []Level{{Price: 101, Qty: 2, Orders: 1}},
			wantBids:   []Level{},
		},
		{
			name:       "cancel resting",
			policy:     SelfMatchCancelResting,
			wantTrades: []Trade{{Price: 101, Qty: 5}},
			wantAsks:   []Level{},
			wantBids:   []Level{{Price: 101, Qty: 3, Orders: 1}},
		},
		{
			name:       "cancel incoming",
			policy:     SelfMatchCancelIncoming,
			wantTrades: nil,
			wantAsks:   []Level{{Price: 100, Qty: 5, Orders: 1}, {Price: 101, Qty: 5, Orders: 1}},
			wantBids:   []Level{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := New(WithSelfMatchPolicy(tt.policy))
			ob.Submit(Order{ID: 7, Side: Ask, Price: 100, Qty: 5})
			ob.Submit(Order{ID: 8, Side: Ask, Price: 101, Qty: 5})

			trades := ob.Submit(Order{ID: 7, Side: Bid, Price: 101, Qty: 8})
			assert.Equal(t, tt.wantTrades, trades)
			assert.Equal(t, tt.wantAsks, ob.Depth(Ask, 0))
			assert.Equal(t, tt.wantBids, ob.Depth(Bid, 0))
			checkInvariants(t, ob)
		})
	}
}

func TestParseSelfMatchPolicy(t *testing.T) {
	for in, want := range map[string]SelfMatchPolicy{
		"":                SelfMatchAllow,
		"allow":           SelfMatchAllow,
		"Cancel_Resting":  SelfMatchCancelResting,
		"cancel_incoming": SelfMatchCancelIncoming,
	} {
		got, err := ParseSelfMatchPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSelfMatchPolicy("prevent")
	assert.ErrorIs(t, err, errUnknownSelfMatchPolicy)
}

func TestDepthLimitsLevels(t *testing.T) {
	ob := New()
	for i := 0; i < 10; i++ {
		ob.Submit(Order{ID: uint64(i), Side: Bid, Price: int64(90 + i), Qty: 1})
		ob.Submit(Order{ID: uint64(100 + i), Side: Bid, Price: int64(90 + i), Qty: 2})
	}

	got := ob.Depth(Bid, 3)
	assert.Equal(t, []Level{
		{Price: 99, Qty: 3, Orders: 2},
		{Price: 98, Qty: 3, Orders: 2},
		{Price: 97, Qty: 3, Orders: 2},
	}, got)
	assert.Len(t, ob.Depth(Bid, 0), 10)
	assert.Empty(t, ob.Depth(Ask, 5))
}

func TestRandomFlowKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ob := New()

	for i := 0; i < 5_000; i++ {
		side := Bid
		if rng.Intn(2) == 0 {
			side = Ask
		}
		order := Order{
			ID:    uint64(i),
			Side:  side,
			Price: int64(95 + rng.Intn(11)),
			Qty:   uint64(rng.Intn(20)),
		}

		trades := ob.Submit(order)

		var total uint64
		for _, tr := range trades {
			require.NotZero(t, tr.Qty)
			total += tr.Qty
		}
		require.LessOrEqual(t, total, order.Qty, "order %d overfilled", i)
		checkInvariants(t, ob)
	}
}

func TestHighVolumeOrders(t *testing.T) {
	ob := New()
	trades := 0

	num := 10_000
	for i := 0; i < num; i++ {
		side := Bid
		if i%2 == 0 {
			side = Ask
		}
		trades += len(ob.Submit(Order{ID: uint64(i), Side: side, Price: 100, Qty: 10}))
	}

	assert.Equal(t, num/2, trades)
	_, _, ok := ob.BestBidAsk()
	assert.False(t, ok)
}

func BenchmarkOrderBookMatch(b *testing.B) {
	ob := New()

	for i := 0; i < 10_000; i++ {
		ob.Submit(Order{
			ID:    uint64(i),
			Side:  Ask,
			Price: 100 + int64(i%5),
			Qty:   10,
		})
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		ob.Submit(Order{ID: uint64(i), Side: Bid, Price: 101, Qty: 10})
		if i%1000 == 0 {
			b.StopTimer()
			ob.Submit(Order{ID: uint64(i), Side: Ask, Price: 101, Qty: 10_000})
			b.StartTimer()
		}
	}
}

func ExampleOrderBook_Submit() {
	ob := New()
	ob.Submit(Order{ID: 1, Side: Ask, Price: 100, Qty: 5})
	fmt.Println(ob.Submit(Order{ID: 2, Side: Bid, Price: 100, Qty: 3}))
	// Output: [{100 3}]
}
