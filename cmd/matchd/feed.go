package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/joripage/ergodic/config"
	kafkawrapper "github.com/joripage/ergodic/pkg/infra/kafka"
	postgres_wrapper "github.com/joripage/ergodic/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/ergodic/pkg/infra/redis"
	"github.com/joripage/ergodic/pkg/tradefeed"
)

// buildPublishers connects every configured external trade consumer.
func buildPublishers(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) ([]tradefeed.Publisher, error) {
	var pubs []tradefeed.Publisher
	fail := func(err error) ([]tradefeed.Publisher, error) {
		for _, p := range pubs {
			_ = p.Close()
		}
		return nil, err
	}

	if k := cfg.Feed.Kafka; k != nil {
		producer := kafkawrapper.NewProducer(k.Producer)
		pubs = append(pubs, tradefeed.NewKafkaPublisher(producer, k.Topic, cfg.ServiceName))
		logger.Info("kafka trade feed enabled", zap.Strings("brokers", k.Producer.Brokers), zap.String("topic", k.Topic))
	}

	if r := cfg.Feed.Redis; r != nil {
		client, err := redis_wrapper.InitRedisWithBackoff(ctx, &r.Redis)
		if err != nil {
			return fail(fmt.Errorf("redis trade feed: %w", err))
		}
		pubs = append(pubs, tradefeed.NewRedisPublisher(client, r.Stream, r.MaxLen))
		logger.Info("redis trade feed enabled", zap.String("stream", r.Stream))
	}

	if n := cfg.Feed.NATS; n != nil {
		p, err := tradefeed.NewNATSPublisher(n.URL, n.Subject, n.Stream, cfg.ServiceName)
		if err != nil {
			return fail(err)
		}
		pubs = append(pubs, p)
		logger.Info("nats trade feed enabled", zap.String("subject", n.Subject), zap.String("stream", n.Stream))
	}

	if pg := cfg.Feed.Postgres; pg != nil {
		db, err := postgres_wrapper.InitPostgresWithBackoff(ctx, pg)
		if err != nil {
			return fail(fmt.Errorf("trade archive: %w", err))
		}
		repo := tradefeed.NewTradeSQLRepo(db)
		pubs = append(pubs, tradefeed.NewArchive(repo, pg.BatchSize, ms(pg.FlushIntervalMs), logger.Named("archive")))
		logger.Info("postgres trade archive enabled")
	}

	return pubs, nil
}
