package orderbook

// PriceHeap implements heap.Interface over distinct price keys.
type PriceHeap struct {
	prices []int64
	less   func(i, j int64) bool
}

func NewPriceHeap(less func(i, j int64) bool) *PriceHeap {
	return &PriceHeap{
		prices: []int64{},
		less:   less,
	}
}

func newBidHeap() *PriceHeap {
	return NewPriceHeap(func(i, j int64) bool { return i > j }) // Max-heap
}

func newAskHeap() *PriceHeap {
	return NewPriceHeap(func(i, j int64) bool { return i < j }) // Min-heap
}

func (h PriceHeap) Len() int {
	return len(h.prices)
}

func (h PriceHeap) Less(i, j int) bool {
	return h.less(h.prices[i], h.prices[j])
}

func (h PriceHeap) Swap(i, j int) {
	h.prices[i], h.prices[j] = h.prices[j], h.prices[i]
}

func (h *PriceHeap) Push(x any) {
	h.prices = append(h.prices, x.(int64))
}

func (h *PriceHeap) Pop() any {
	n := len(h.prices)
	price := h.prices[n-1]
	h.prices = h.prices[:n-1]
	return price
}

func (h *PriceHeap) Peek() (int64, bool) {
	if len(h.prices) == 0 {
		return 0, false
	}
	return h.prices[0], true
}

// Prices returns a copy of the keys in heap order (not sorted).
func (h *PriceHeap) Prices() []int64 {
	out := make([]int64, len(h.prices))
	copy(out, h.prices)
	return out
}
