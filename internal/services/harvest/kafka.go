package harvest

import (
	"context"

	"InsightHub/internal/domain/models"
	domsvc "InsightHub/internal/domain/service"
	pkgkafka "InsightHub/pkg/kafka"
)

// KafkaHarvester consumes insights from a topic into a buffer that Fetch drains.
type KafkaHarvester struct {
	name   string
	topic  string
	buffer *Buffer
}

func NewKafkaHarvester(name, topic string, bufferSize int) *KafkaHarvester {
	return &KafkaHarvester{name: name, topic: topic, buffer: NewBuffer(bufferSize)}
}

func (h *KafkaHarvester) Name() string  { return h.name }
func (h *KafkaHarvester) Topic() string { return h.topic }

// Handle returns decode errors so the consumer retries and finally dead-letters the message.
func (h *KafkaHarvester) Handle(_ context.Context, b []byte) error {
	in, err := decodeInsights(b)
	if err != nil {
		return err
	}
	h.buffer.Push(withSource(in, h.name)...)
	return nil
}

func (h *KafkaHarvester) Fetch(context.Context) ([]models.Insight, error) {
	return h.buffer.Drain(), nil
}

var (
	_ domsvc.Harvester        = (*KafkaHarvester)(nil)
	_ pkgkafka.MessageHandler = (*KafkaHarvester)(nil)
)
