package tradefeed

import "errors"

var (
	ErrPublisherClosed = errors.New("publisher closed")
	ErrArchiveFull     = errors.New("trade archive buffer full")
)
