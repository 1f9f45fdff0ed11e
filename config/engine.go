package config

import (
	"fmt"

	"github.com/joripage/ergodic/pkg/engine"
	"github.com/joripage/ergodic/pkg/orderbook"
)

// Build converts the yaml section into engine.Config. Zero sizes are
// left for the engine to default.
func (c EngineConfig) Build() (engine.Config, error) {
	overflow, err := engine.ParseOverflowPolicy(c.OverflowPolicy)
	if err != nil {
		return engine.Config{}, fmt.Errorf("engine.overflow_policy: %w", err)
	}
	selfMatch, err := orderbook.ParseSelfMatchPolicy(c.SelfMatchPolicy)
	if err != nil {
		return engine.Config{}, fmt.Errorf("engine.self_match_policy: %w", err)
	}
	return engine.Config{
		InboundCapacity: c.InboundCapacity,
		Overflow:        overflow,
		TradeBuffer:     c.TradeBuffer,
		SelfMatch:       selfMatch,
	}, nil
}
