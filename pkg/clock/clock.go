package clock

import (
	"errors"
	"fmt"
	"time"
)

var ErrBeforeEpoch = errors.New("system clock reports a time before unix epoch")

type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// NowNanos returns the current instant as unix nanoseconds.
func NowNanos(c Clock) (int64, error) {
	now := c.Now()
	if now.Before(time.Unix(0, 0)) {
		return 0, fmt.Errorf("%w: %s", ErrBeforeEpoch, now.UTC().Format(time.RFC3339Nano))
	}
	return now.UnixNano(), nil
}

// MustNowNanos is NowNanos for callers that cannot continue on a clock fault.
func MustNowNanos(c Clock) int64 {
	ts, err := NowNanos(c)
	if err != nil {
		panic(err)
	}
	return ts
}
