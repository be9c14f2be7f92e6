package harvest

import (
	"sync"

	"InsightHub/internal/domain/models"
)

// Buffer collects pushed insights between harvest cycles. When full, the oldest
// entries are dropped so a burst cannot grow memory without bound.
type Buffer struct {
	mu      sync.Mutex
	items   []models.Insight
	max     int
	dropped int64
}

func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = 1024
	}
	return &Buffer{max: max}
}

func (b *Buffer) Push(in ...models.Insight) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, in...)
	if over := len(b.items) - b.max; over > 0 {
		b.dropped += int64(over)
		b.items = append(b.items[:0], b.items[over:]...)
	}
}

// Drain returns everything buffered and empties the buffer.
func (b *Buffer) Drain() []models.Insight {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.items
	b.items = nil
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Dropped counts insights discarded on overflow since creation.
func (b *Buffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// withSource stamps source onto insights that arrived without one.
func withSource(in []models.Insight, source string) []models.Insight {
	for i := range in {
		if in[i].Source == "" {
			in[i].Source = source
		}
	}
	return in
}
