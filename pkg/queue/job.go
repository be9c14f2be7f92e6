package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Job handles one message type.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Publisher enqueues typed payloads.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// ParsePayload decodes a raw payload into T.
func ParsePayload[T any](payload json.RawMessage) (*T, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	var result T
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}
