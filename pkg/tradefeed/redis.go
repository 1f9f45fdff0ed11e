package tradefeed

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends trades to a capped stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisPublisher(client *redis.Client, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	return p.client.XAdd(ctx, p.xaddArgs(ev)).Err()
}

func (p *RedisPublisher) xaddArgs(ev Event) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]interface{}{
			"seq":         strconv.FormatUint(ev.Seq, 10),
			"price":       strconv.FormatInt(ev.Price, 10),
			"qty":         strconv.FormatUint(ev.Qty, 10),
			"executed_at": ev.ExecutedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
