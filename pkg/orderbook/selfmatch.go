package orderbook

import (
	"fmt"
	"strings"
)

// SelfMatchPolicy decides what happens when an incoming order meets a resting
// order carrying the same ID.
type SelfMatchPolicy int

const (
	// SelfMatchAllow matches the two orders like any other pair.
	SelfMatchAllow SelfMatchPolicy = iota
	// SelfMatchCancelResting removes the resting order without a trade and
	// keeps matching.
	SelfMatchCancelResting
	// SelfMatchCancelIncoming stops matching and discards the incoming
	// remainder.
	SelfMatchCancelIncoming
)

func (p SelfMatchPolicy) String() string {
	switch p {
	case SelfMatchCancelResting:
		return "cancel_resting"
	case SelfMatchCancelIncoming:
		return "cancel_incoming"
	default:
		return "allow"
	}
}

func ParseSelfMatchPolicy(s string) (SelfMatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return SelfMatchAllow, nil
	case "cancel_resting":
		return SelfMatchCancelResting, nil
	case "cancel_incoming":
		return SelfMatchCancelIncoming, nil
	}
	return SelfMatchAllow, fmt.Errorf("%w: %q", errUnknownSelfMatchPolicy, s)
}
