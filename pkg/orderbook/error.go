package orderbook

import "errors"

var (
	errUnknownSelfMatchPolicy = errors.New("unknown self match policy")
)
