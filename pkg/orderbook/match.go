package orderbook

// Trade is one match step. Price is the resting order's price.
type Trade struct {
	Price int64  `json:"price"`
	Qty   uint64 `json:"qty"`
}

// Level is an aggregated view of one price level.
type Level struct {
	Price  int64  `json:"price"`
	Qty    uint64 `json:"qty"`
	Orders int    `json:"orders"`
}
