package harvest

import (
	"context"
	"encoding/json"

	"InsightHub/internal/domain/models"
	domsvc "InsightHub/internal/domain/service"
	"InsightHub/pkg/queue"
)

// IngestJobType is the queue message type carrying insights.
const IngestJobType = "insight.ingest"

// QueueHarvester receives insights from the Redis work queue.
type QueueHarvester struct {
	name   string
	buffer *Buffer
}

func NewQueueHarvester(name string, bufferSize int) *QueueHarvester {
	return &QueueHarvester{name: name, buffer: NewBuffer(bufferSize)}
}

func (h *QueueHarvester) Name() string { return h.name }
func (h *QueueHarvester) Type() string { return IngestJobType }

func (h *QueueHarvester) Handle(_ context.Context, payload json.RawMessage) error {
	in, err := decodeInsights(payload)
	if err != nil {
		return err
	}
	h.buffer.Push(withSource(in, h.name)...)
	return nil
}

func (h *QueueHarvester) Fetch(context.Context) ([]models.Insight, error) {
	return h.buffer.Drain(), nil
}

var (
	_ domsvc.Harvester = (*QueueHarvester)(nil)
	_ queue.Job        = (*QueueHarvester)(nil)
)
