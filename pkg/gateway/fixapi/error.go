package fixapi

import "errors"

var (
	errBadClOrdID  = errors.New("ClOrdID must be an unsigned integer")
	errBadSide     = errors.New("side must be BUY or SELL")
	errOffTick     = errors.New("price is not a multiple of the tick size")
	errBadQty      = errors.New("order quantity must be a non-negative integer")
	errBadTickSize = errors.New("tick size must be positive")
)
