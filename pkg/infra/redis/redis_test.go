package redis_wrapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	cfg := &RedisConfig{
		ConnectionURL:      "redis://:secret@localhost:6380/2",
		PoolSize:           32,
		DialTimeoutSeconds: 3,
		IdleTimeoutSeconds: 60,
	}

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 32, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
	assert.Equal(t, time.Minute, opts.ConnMaxIdleTime)
}

func TestOptionsBadURL(t *testing.T) {
	_, err := (&RedisConfig{ConnectionURL: "http://localhost"}).Options()
	assert.Error(t, err)
}
