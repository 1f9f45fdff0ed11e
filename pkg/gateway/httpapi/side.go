package httpapi

import (
	"fmt"
	"strings"

	"github.com/joripage/ergodic/pkg/orderbook"
)

// parseSide maps "bid"/"b" and "ask"/"a", case-insensitively. In lenient mode
// any other token is an ask and defaulted reports that it was not recognised.
func parseSide(token string, lenient bool) (side orderbook.Side, defaulted bool, err error) {
	switch strings.ToLower(token) {
	case "bid", "b":
		return orderbook.Bid, false, nil
	case "ask", "a":
		return orderbook.Ask, false, nil
	}
	if lenient {
		return orderbook.Ask, true, nil
	}
	return 0, false, fmt.Errorf("%w: %q", errUnknownSide, token)
}
