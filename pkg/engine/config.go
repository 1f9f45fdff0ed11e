package engine

import (
	"fmt"
	"strings"

	"github.com/joripage/ergodic/pkg/orderbook"
)

const (
	DefaultInboundCapacity = 1 << 16
	DefaultTradeBuffer     = 1 << 12
)

// OverflowPolicy decides what a producer experiences when the inbound queue
// is at capacity.
type OverflowPolicy int

const (
	// OverflowBlock makes the producer wait for room or for its context.
	OverflowBlock OverflowPolicy = iota
	// OverflowReject fails the send with ErrQueueFull.
	OverflowReject
)

func (p OverflowPolicy) String() string {
	if p == OverflowReject {
		return "reject"
	}
	return "block"
}

func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block":
		return OverflowBlock, nil
	case "reject":
		return OverflowReject, nil
	}
	return OverflowBlock, fmt.Errorf("%w: %q", errUnknownOverflowPolicy, s)
}

type Config struct {
	InboundCapacity int
	Overflow        OverflowPolicy
	TradeBuffer     int
	SelfMatch       orderbook.SelfMatchPolicy
}

func (c Config) withDefaults() Config {
	if c.InboundCapacity <= 0 {
		c.InboundCapacity = DefaultInboundCapacity
	}
	if c.TradeBuffer <= 0 {
		c.TradeBuffer = DefaultTradeBuffer
	}
	return c
}
