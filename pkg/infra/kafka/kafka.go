// Package kafkawrapper publishes messages to Kafka and runs a pool of workers
// consuming a topic in batches.
package kafkawrapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var (
	errProducerNotInitialized = errors.New("producer not initialized")
	errConsumerNotInitialized = errors.New("consumer not initialized")
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
	Headers   map[string]string
}

type ProducerConfig struct {
	Brokers        []string `yaml:"brokers"`
	BatchSize      int      `yaml:"batch_size"`
	BatchBytes     int64    `yaml:"batch_bytes"`
	BatchTimeoutMs int64    `yaml:"batch_timeout_ms"`

	// Async returns from Publish before the broker acks. Write errors are
	// logged by the writer's completion hook.
	Async        bool `yaml:"async"`
	RequiredAcks int  `yaml:"required_acks"`
}

type Producer struct {
	w *kafka.Writer
}

func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchBytes == 0 {
		cfg.BatchBytes = 1 << 20
	}
	if cfg.BatchTimeoutMs == 0 {
		cfg.BatchTimeoutMs = 50
	}
	wr := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchBytes:             cfg.BatchBytes,
		BatchTimeout:           time.Duration(cfg.BatchTimeoutMs) * time.Millisecond,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Async:                  cfg.Async,
	}
	if cfg.Async {
		wr.Completion = func(messages []kafka.Message, err error) {
			if err != nil {
				zap.S().Warnf("kafka async write of %d messages failed: %v", len(messages), err)
			}
		}
	}
	return &Producer{w: wr}
}

func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error {
	if p == nil || p.w == nil {
		return errProducerNotInitialized
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: toHeaders(headers),
		Time:    time.Now(),
	})
}

func (p *Producer) PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var k []byte
	if key != "" {
		k = []byte(key)
	}
	return p.Publish(ctx, topic, k, b, headers)
}

func (p *Producer) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	Topic       string
	WorkerCount int
	MaxRetries  int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string

	// BatchSize caps a batch; BatchTimeout flushes a partial one.
	BatchSize    int
	BatchTimeout time.Duration
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffMin == 0 {
		c.BackoffMin = 100 * time.Millisecond
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 200 * time.Millisecond
	}
	return c
}

type ConsumerGroup struct {
	r          *kafka.Reader
	cfg        ConsumerConfig
	prodForDLQ *Producer
	logger     *zap.Logger
}

func NewConsumerGroup(cfg ConsumerConfig, logger *zap.Logger) *ConsumerGroup {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})

	var prod *Producer
	if cfg.DLQTopic != "" {
		prod = NewProducer(ProducerConfig{Brokers: cfg.Brokers, RequiredAcks: int(kafka.RequireOne)})
	}

	return &ConsumerGroup{r: rd, cfg: cfg, prodForDLQ: prod, logger: logger}
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil {
		return nil
	}
	if cg.prodForDLQ != nil {
		_ = cg.prodForDLQ.Close()
	}
	if cg.r != nil {
		return cg.r.Close()
	}
	return nil
}

// Run delivers batches to handler until ctx is cancelled. A batch is retried
// with backoff up to MaxRetries, then sent to the DLQ topic if configured,
// and committed either way.
func (cg *ConsumerGroup) Run(ctx context.Context, handler func(context.Context, []Message) error) error {
	if cg == nil || cg.r == nil {
		return errConsumerNotInitialized
	}

	batches := make(chan []kafka.Message, cg.cfg.WorkerCount)
	go cg.fetchLoop(ctx, batches)

	done := make(chan struct{}, cg.cfg.WorkerCount)
	for i := 0; i < cg.cfg.WorkerCount; i++ {
		go func(workerID int) {
			defer func() { done <- struct{}{} }()
			for ms := range batches {
				cg.handleBatch(ctx, workerID, ms, handler)
			}
		}(i)
	}

	for i := 0; i < cg.cfg.WorkerCount; i++ {
		<-done
	}
	return ctx.Err()
}

func (cg *ConsumerGroup) fetchLoop(ctx context.Context, batches chan<- []kafka.Message) {
	defer close(batches)

	var buf []kafka.Message
	flush := func() {
		if len(buf) == 0 {
			return
		}
		select {
		case batches <- buf:
		case <-ctx.Done():
		}
		buf = nil
	}

	for {
		fetchCtx, cancel := ctx, context.CancelFunc(func() {})
		if len(buf) > 0 {
			fetchCtx, cancel = context.WithTimeout(ctx, cg.cfg.BatchTimeout)
		}
		m, err := cg.r.FetchMessage(fetchCtx)
		cancel()

		switch {
		case err == nil:
			buf = append(buf, m)
			if len(buf) >= cg.cfg.BatchSize {
				flush()
			}
		case ctx.Err() != nil:
			return
		case errors.Is(err, context.DeadlineExceeded):
			flush()
		default:
			cg.logger.Warn("kafka fetch failed", zap.String("topic", cg.cfg.Topic), zap.Error(err))
			select {
			case <-time.After(200 * time.Millisecond):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (cg *ConsumerGroup) handleBatch(ctx context.Context, workerID int, ms []kafka.Message, handler func(context.Context, []Message) error) {
	wrapped := make([]Message, len(ms))
	for i, m := range ms {
		wrapped[i] = wrapMessage(m)
	}

	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = cg.cfg.BackoffMin
	boff.MaxInterval = cg.cfg.BackoffMax
	boff.MaxElapsedTime = 0
	retry := backoff.WithContext(backoff.WithMaxRetries(boff, uint64(cg.cfg.MaxRetries)), ctx)

	err := backoff.Retry(func() error { return handler(ctx, wrapped) }, retry)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		cg.logger.Warn("kafka batch failed",
			zap.Int("worker", workerID),
			zap.Int("size", len(ms)),
			zap.Error(err),
		)
		if cg.prodForDLQ != nil {
			for _, m := range ms {
				if dlqErr := cg.prodForDLQ.Publish(ctx, cg.cfg.DLQTopic, m.Key, m.Value, headersToMap(m.Headers)); dlqErr != nil {
					cg.logger.Error("kafka dlq publish failed", zap.Error(dlqErr))
				}
			}
		}
	}
	if err := cg.r.CommitMessages(ctx, ms...); err != nil {
		cg.logger.Warn("kafka commit failed", zap.Error(fmt.Errorf("worker %d: %w", workerID, err)))
	}
}

func wrapMessage(m kafka.Message) Message {
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Time:      m.Time,
		Headers:   headersToMap(m.Headers),
	}
}

func toHeaders(hs map[string]string) []kafka.Header {
	if len(hs) == 0 {
		return nil
	}
	out := make([]kafka.Header, 0, len(hs))
	for k, v := range hs {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

func headersToMap(hs []kafka.Header) map[string]string {
	out := make(map[string]string, len(hs))
	for _, h := range hs {
		out[h.Key] = string(h.Value)
	}
	return out
}
