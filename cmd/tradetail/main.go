package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/joripage/ergodic/config"
	kafkawrapper "github.com/joripage/ergodic/pkg/infra/kafka"
	"github.com/joripage/ergodic/pkg/logging"
	"github.com/joripage/ergodic/pkg/tradefeed"
)

func main() {
	var configFile string
	var workers int
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.IntVar(&workers, "workers", 1, "consumer workers")
	flag.Parse()

	logger := logging.NewLogger(logging.INFO)
	defer logger.ReplaceGlobals()()

	cfg, err := config.Load(configFile)
	if err != nil {
		zap.S().Fatalf("load config: %v", err)
	}
	if cfg.Feed.Kafka == nil {
		zap.S().Fatal("feed.kafka is not configured")
	}

	groupID := cfg.Feed.Kafka.GroupID
	if groupID == "" {
		groupID = cfg.ServiceName + "-tradetail"
	}
	cg := kafkawrapper.NewConsumerGroup(kafkawrapper.ConsumerConfig{
		Brokers:     cfg.Feed.Kafka.Producer.Brokers,
		GroupID:     groupID,
		Topic:       cfg.Feed.Kafka.Topic,
		WorkerCount: workers,
	}, logger.Zap())
	defer cg.Close() // nolint

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cg.Run(ctx, func(ctx context.Context, batch []kafkawrapper.Message) error {
		for _, m := range batch {
			var ev tradefeed.Event
			if err := json.Unmarshal(m.Value, &ev); err != nil {
				logger.Warn(ctx, "skip undecodable trade", zap.Int64("offset", m.Offset), zap.Error(err))
				continue
			}
			logger.Info(ctx, "trade",
				zap.Uint64("seq", ev.Seq),
				zap.Int64("price", ev.Price),
				zap.Uint64("qty", ev.Qty),
				zap.Time("executed_at", ev.ExecutedAt),
				zap.String("source", m.Headers["source"]),
			)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		zap.S().Fatalf("consume: %v", err)
	}
}
