package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	kafkawrapper "github.com/joripage/ergodic/pkg/infra/kafka"
	postgres_wrapper "github.com/joripage/ergodic/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/ergodic/pkg/infra/redis"
)

const (
	defaultServiceName  = "matchd"
	defaultHTTPAddr     = ":8080"
	defaultRecentTrades = 1024
	defaultTickSize     = "0.01"
)

type AppConfig struct {
	ServiceName string       `yaml:"service_name"`
	LogLevel    string       `yaml:"log_level"`
	Engine      EngineConfig `yaml:"engine"`
	HTTP        HTTPConfig   `yaml:"http"`
	FIX         FIXConfig    `yaml:"fix"`
	Feed        FeedConfig   `yaml:"feed"`
}

type EngineConfig struct {
	InboundCapacity int    `yaml:"inbound_capacity"`
	OverflowPolicy  string `yaml:"overflow_policy"`
	TradeBuffer     int    `yaml:"trade_buffer"`
	SelfMatchPolicy string `yaml:"self_match_policy"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// LenientSide maps unknown side tokens to ask instead of rejecting them.
	LenientSide bool `yaml:"lenient_side"`

	ReadTimeoutMs     int64 `yaml:"read_timeout_ms"`
	WriteTimeoutMs    int64 `yaml:"write_timeout_ms"`
	RequestTimeoutMs  int64 `yaml:"request_timeout_ms"`
	ShutdownTimeoutMs int64 `yaml:"shutdown_timeout_ms"`
}

type FIXConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ConfigFile string `yaml:"config_file"`

	// TickSize is the decimal price of one tick, e.g. "0.01".
	TickSize string `yaml:"tick_size"`
}

// FeedConfig lists the trade consumers. A nil section is disabled.
type FeedConfig struct {
	RecentTrades int                              `yaml:"recent_trades"`
	Kafka        *KafkaFeedConfig                 `yaml:"kafka"`
	Redis        *RedisFeedConfig                 `yaml:"redis"`
	NATS         *NATSFeedConfig                  `yaml:"nats"`
	Postgres     *postgres_wrapper.PostgresConfig `yaml:"postgres"`
}

type KafkaFeedConfig struct {
	Producer kafkawrapper.ProducerConfig `yaml:",inline"`
	Topic    string                      `yaml:"topic"`
	GroupID  string                      `yaml:"group_id"`
}

type RedisFeedConfig struct {
	Redis  redis_wrapper.RedisConfig `yaml:",inline"`
	Stream string                    `yaml:"stream"`
	MaxLen int64                     `yaml:"max_len"`
}

type NATSFeedConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`

	// Stream enables JetStream publishing into the named stream.
	Stream string `yaml:"stream"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}

	cfg, err := Parse(configBytes)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

// Parse expands environment references in raw and decodes it.
func Parse(raw []byte) (*AppConfig, error) {
	raw = []byte(os.ExpandEnv(string(raw)))

	cfg := &AppConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultHTTPAddr
	}
	if c.FIX.TickSize == "" {
		c.FIX.TickSize = defaultTickSize
	}
	if c.Feed.RecentTrades <= 0 {
		c.Feed.RecentTrades = defaultRecentTrades
	}
}
