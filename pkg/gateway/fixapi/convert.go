package fixapi

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/quickfixgo/enum"
	"github.com/shopspring/decimal"

	"github.com/joripage/ergodic/pkg/orderbook"
)

var (
	maxInt64  = decimal.NewFromInt(math.MaxInt64)
	minInt64  = decimal.NewFromInt(math.MinInt64)
	maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
)

// Converter maps FIX decimal prices onto integer ticks.
type Converter struct {
	tick decimal.Decimal
}

func NewConverter(tickSize string) (Converter, error) {
	tick, err := decimal.NewFromString(tickSize)
	if err != nil {
		return Converter{}, fmt.Errorf("tick size %q: %w", tickSize, err)
	}
	if !tick.IsPositive() {
		return Converter{}, errBadTickSize
	}
	return Converter{tick: tick}, nil
}

// Ticks converts a price to ticks. Prices off the tick grid are rejected.
func (c Converter) Ticks(price decimal.Decimal) (int64, error) {
	ticks := price.Div(c.tick).Truncate(0)
	if !ticks.Mul(c.tick).Equal(price) {
		return 0, fmt.Errorf("%w: %s / %s", errOffTick, price, c.tick)
	}
	if ticks.GreaterThan(maxInt64) || ticks.LessThan(minInt64) {
		return 0, fmt.Errorf("%w: %s overflows", errOffTick, price)
	}
	return ticks.IntPart(), nil
}

func (c Converter) Price(ticks int64) decimal.Decimal {
	return decimal.NewFromInt(ticks).Mul(c.tick)
}

// Scale is the number of decimals needed to print a tick.
func (c Converter) Scale() int32 {
	if exp := c.tick.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

func toSide(s enum.Side) (orderbook.Side, error) {
	switch s {
	case enum.Side_BUY:
		return orderbook.Bid, nil
	case enum.Side_SELL:
		return orderbook.Ask, nil
	}
	return 0, fmt.Errorf("%w: %q", errBadSide, string(s))
}

func fromSide(s orderbook.Side) enum.Side {
	if s == orderbook.Bid {
		return enum.Side_BUY
	}
	return enum.Side_SELL
}

func toQty(qty decimal.Decimal) (uint64, error) {
	if !qty.IsInteger() || qty.IsNegative() || qty.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("%w: %s", errBadQty, qty)
	}
	return qty.BigInt().Uint64(), nil
}

// newOrderSingle holds the NewOrderSingle fields shared by FIX 4.2 and 4.4.
type newOrderSingle struct {
	ClOrdID  string
	Side     enum.Side
	Price    decimal.Decimal
	OrderQty decimal.Decimal
}

func (c Converter) toOrder(m newOrderSingle, ts int64) (orderbook.Order, error) {
	id, err := strconv.ParseUint(m.ClOrdID, 10, 64)
	if err != nil {
		return orderbook.Order{}, fmt.Errorf("%w: %q", errBadClOrdID, m.ClOrdID)
	}
	side, err := toSide(m.Side)
	if err != nil {
		return orderbook.Order{}, err
	}
	price, err := c.Ticks(m.Price)
	if err != nil {
		return orderbook.Order{}, err
	}
	qty, err := toQty(m.OrderQty)
	if err != nil {
		return orderbook.Order{}, err
	}
	return orderbook.Order{ID: id, Side: side, Price: price, Qty: qty, Timestamp: ts}, nil
}
