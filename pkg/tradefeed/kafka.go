package tradefeed

import (
	"context"
	"strconv"

	kafkawrapper "github.com/joripage/ergodic/pkg/infra/kafka"
)

// KafkaPublisher writes each trade as JSON keyed by its sequence number.
type KafkaPublisher struct {
	producer *kafkawrapper.Producer
	topic    string
	headers  map[string]string
}

func NewKafkaPublisher(producer *kafkawrapper.Producer, topic, source string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		headers:  map[string]string{"source": source},
	}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	return p.producer.PublishJSON(ctx, p.topic, strconv.FormatUint(ev.Seq, 10), ev, p.headers)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
