package kafkawrapper

import (
	"context"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestHeadersRoundTrip(t *testing.T) {
	in := map[string]string{"source": "matchd", "kind": "trade"}
	assert.Equal(t, in, headersToMap(toHeaders(in)))
	assert.Nil(t, toHeaders(nil))
	assert.Empty(t, headersToMap(nil))
}

func TestWrapMessage(t *testing.T) {
	now := time.Now()
	m := wrapMessage(kafka.Message{
		Topic:     "trades",
		Partition: 3,
		Offset:    42,
		Value:     []byte(`{"price":1,"qty":2}`),
		Time:      now,
		Headers:   []kafka.Header{{Key: "k", Value: []byte("v")}},
	})
	assert.Equal(t, "trades", m.Topic)
	assert.Equal(t, 3, m.Partition)
	assert.Equal(t, int64(42), m.Offset)
	assert.Equal(t, now, m.Time)
	assert.Equal(t, map[string]string{"k": "v"}, m.Headers)
}

func TestConsumerConfigDefaults(t *testing.T) {
	c := ConsumerConfig{MaxRetries: -1}.withDefaults()
	assert.Equal(t, 4, c.WorkerCount)
	assert.Equal(t, 0, c.MaxRetries)
	assert.Equal(t, 50, c.BatchSize)
	assert.Equal(t, 200*time.Millisecond, c.BatchTimeout)
	assert.Equal(t, 100*time.Millisecond, c.BackoffMin)
	assert.Equal(t, 10*time.Second, c.BackoffMax)
}

func TestNilProducerAndConsumer(t *testing.T) {
	var p *Producer
	assert.ErrorIs(t, p.Publish(context.Background(), "t", nil, nil, nil), errProducerNotInitialized)
	assert.NoError(t, p.Close())

	var cg *ConsumerGroup
	assert.ErrorIs(t, cg.Run(context.Background(), nil), errConsumerNotInitialized)
	assert.NoError(t, cg.Close())
}
