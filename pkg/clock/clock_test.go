package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowNanos(t *testing.T) {
	at := time.Unix(1_700_000_000, 42)
	ts, err := NowNanos(Func(func() time.Time { return at }))
	require.NoError(t, err)
	assert.Equal(t, at.UnixNano(), ts)
}

func TestNowNanosBeforeEpoch(t *testing.T) {
	broken := Func(func() time.Time { return time.Unix(-1, 0) })

	_, err := NowNanos(broken)
	assert.ErrorIs(t, err, ErrBeforeEpoch)
	assert.Panics(t, func() { MustNowNanos(broken) })
}

func TestRealClockIsAfterEpoch(t *testing.T) {
	ts, err := NowNanos(Real{})
	require.NoError(t, err)
	assert.Positive(t, ts)
}
