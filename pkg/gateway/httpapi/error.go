package httpapi

import "errors"

var (
	errUnknownSide = errors.New("unknown side")
	errBadLevels   = errors.New("levels must be a non-negative integer")
	errBadLimit    = errors.New("limit must be a non-negative integer")
)
