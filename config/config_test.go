package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joripage/ergodic/pkg/engine"
	"github.com/joripage/ergodic/pkg/orderbook"
)

const sample = `
service_name: matchd-test
log_level: ${TEST_LOG_LEVEL}
engine:
  inbound_capacity: 8
  overflow_policy: reject
  trade_buffer: 16
  self_match_policy: cancel_resting
http:
  addr: ":9090"
  lenient_side: true
  request_timeout_ms: 250
fix:
  enabled: true
  config_file: fix.cfg
feed:
  kafka:
    brokers: ["k1:9092", "k2:9092"]
    topic: trades
    async: true
  redis:
    connection_url: redis://${TEST_REDIS_HOST}:6379/0
    stream: trades
    max_len: 1000
  postgres:
    data_source: postgres://u:p@db:5432/trades
    batch_size: 64
`

func TestParse(t *testing.T) {
	t.Setenv("TEST_LOG_LEVEL", "debug")
	t.Setenv("TEST_REDIS_HOST", "cache")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "matchd-test", cfg.ServiceName)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.LenientSide)
	assert.Equal(t, int64(250), cfg.HTTP.RequestTimeoutMs)
	assert.True(t, cfg.FIX.Enabled)
	assert.Equal(t, defaultTickSize, cfg.FIX.TickSize)
	assert.Equal(t, defaultRecentTrades, cfg.Feed.RecentTrades)

	require.NotNil(t, cfg.Feed.Kafka)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Feed.Kafka.Producer.Brokers)
	assert.True(t, cfg.Feed.Kafka.Producer.Async)
	assert.Equal(t, "trades", cfg.Feed.Kafka.Topic)

	require.NotNil(t, cfg.Feed.Redis)
	assert.Equal(t, "redis://cache:6379/0", cfg.Feed.Redis.Redis.ConnectionURL)
	assert.Equal(t, int64(1000), cfg.Feed.Redis.MaxLen)

	require.NotNil(t, cfg.Feed.Postgres)
	assert.Equal(t, 64, cfg.Feed.Postgres.BatchSize)
	assert.Nil(t, cfg.Feed.NATS)

	ec, err := cfg.Engine.Build()
	require.NoError(t, err)
	assert.Equal(t, engine.Config{
		InboundCapacity: 8,
		Overflow:        engine.OverflowReject,
		TradeBuffer:     16,
		SelfMatch:       orderbook.SelfMatchCancelResting,
	}, ec)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, defaultServiceName, cfg.ServiceName)
	assert.Equal(t, defaultHTTPAddr, cfg.HTTP.Addr)
	assert.False(t, cfg.HTTP.LenientSide)

	ec, err := cfg.Engine.Build()
	require.NoError(t, err)
	assert.Equal(t, engine.OverflowBlock, ec.Overflow)
	assert.Equal(t, orderbook.SelfMatchAllow, ec.SelfMatch)
}

func TestEngineBuildRejectsUnknownPolicies(t *testing.T) {
	_, err := EngineConfig{OverflowPolicy: "drop"}.Build()
	assert.ErrorContains(t, err, "engine.overflow_policy")

	_, err = EngineConfig{SelfMatchPolicy: "never"}.Build()
	assert.ErrorContains(t, err, "engine.self_match_policy")
}

func TestLoadFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matchd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service_name: from-file\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ServiceName)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MATCHD_TEST_NAME=dotenv\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte("service_name: ${MATCHD_TEST_NAME}\n"), 0o600))
	chdir(t, dir)
	t.Cleanup(func() { _ = os.Unsetenv("MATCHD_TEST_NAME") })

	cfg, err := Load("c.yaml")
	require.NoError(t, err)
	assert.Equal(t, "dotenv", cfg.ServiceName)
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
