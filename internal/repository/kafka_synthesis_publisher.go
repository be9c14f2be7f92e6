package repository

import (
	"context"
	"fmt"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
	pkgkafka "InsightHub/pkg/kafka"
)

// BatchProducer is the part of *kafka.Producer the publisher needs.
type BatchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaSynthesisPublisher sends each synthesis to one topic and the fused set, keyed by subject, to another.
type KafkaSynthesisPublisher struct {
	producer       BatchProducer
	synthesisTopic string
	fusedTopic     string
}

func NewKafkaSynthesisPublisher(p BatchProducer, synthesisTopic, fusedTopic string) *KafkaSynthesisPublisher {
	return &KafkaSynthesisPublisher{producer: p, synthesisTopic: synthesisTopic, fusedTopic: fusedTopic}
}

func (p *KafkaSynthesisPublisher) PublishSynthesis(ctx context.Context, res models.SynthesisResult, fused []models.FusedInsight) error {
	if err := p.producer.PublishBatch(ctx, p.synthesisTopic, []pkgkafka.Message{
		{Key: []byte(res.UnifiedStrategy), Value: res},
	}); err != nil {
		return fmt.Errorf("publish synthesis: %w", err)
	}
	if p.fusedTopic == "" || len(fused) == 0 {
		return nil
	}

	msgs := make([]pkgkafka.Message, len(fused))
	for i, f := range fused {
		msgs[i] = pkgkafka.Message{Key: []byte(f.Subject), Value: f}
	}
	if err := p.producer.PublishBatch(ctx, p.fusedTopic, msgs); err != nil {
		return fmt.Errorf("publish fused: %w", err)
	}
	return nil
}

func (p *KafkaSynthesisPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.SynthesisPublisher = (*KafkaSynthesisPublisher)(nil)
