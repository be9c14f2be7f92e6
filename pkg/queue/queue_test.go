package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Subject string `json:"subject"`
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[payload](json.RawMessage(`{"subject":"BTC"}`))
	require.NoError(t, err)
	assert.Equal(t, "BTC", p.Subject)

	_, err = ParsePayload[payload](nil)
	assert.Error(t, err)

	_, err = ParsePayload[payload](json.RawMessage(`{`))
	assert.Error(t, err)
}

func TestNewMessageKeepsRawPayload(t *testing.T) {
	now := time.Now()
	msg, err := newMessage("1", "t", json.RawMessage(`[1,2]`), now)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(msg.Payload))

	msg, err = newMessage("2", "t", payload{Subject: "ETH"}, now)
	require.NoError(t, err)
	assert.JSONEq(t, `{"subject":"ETH"}`, string(msg.Payload))
}

func TestEnqueueRequiresRunningQueue(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	q := NewRedisQueue(nil, Config{}, client, WithKeyPrefix("test:queue"))
	err := q.Enqueue(context.Background(), "insight.ingest", payload{})
	assert.EqualError(t, err, "queue not running")
	assert.Equal(t, "test:queue:messages", q.queueKey())
	assert.Equal(t, "test:queue:dlq", q.deadLetterKey())
	assert.NoError(t, q.Stop(context.Background()))
}
