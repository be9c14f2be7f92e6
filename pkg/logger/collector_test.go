package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu    sync.Mutex
	topic string
	key   string
	batch []AggregatedLogEntry
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.key = string(key)
	p.batch = append(p.batch, value.([]AggregatedLogEntry)...)
	return nil
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval: time.Hour,
		Topic:        "insighthub.logs",
		Service:      "insighthub",
		Publisher:    pub,
	})

	fields := map[string]interface{}{"source": "feed"}
	c.AddLog("error", "harvest failed", fields, "engine.go:10")
	c.AddLog("error", "harvest failed", fields, "engine.go:10")
	c.AddLog("error", "harvest failed", map[string]interface{}{"source": "other"}, "engine.go:10")
	assert.Equal(t, 2, c.Pending())

	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, "insighthub.logs", pub.topic)
	assert.Equal(t, "insighthub", pub.key)
	require.Len(t, pub.batch, 2)
	counts := map[interface{}]int{}
	for _, e := range pub.batch {
		counts[e.Fields["source"]] = e.Count
	}
	assert.Equal(t, 2, counts["feed"])
	assert.Equal(t, 1, counts["other"])
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.AddLog("warn", "a", nil, "x")
	c.AddLog("warn", "b", nil, "x")
	assert.Zero(t, c.Pending())
}

func TestLoggerErrorsReachCollector(t *testing.T) {
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour})
	defer l.RemoveCollector()

	l.Component("engine").Error("cycle failed", String("cycle", "fuse"))
	assert.Equal(t, 1, l.collector.Pending())
}
