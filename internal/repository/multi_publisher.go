package repository

import (
	"context"
	"errors"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
)

// MultiPublisher fans a synthesis out to every publisher; one failing does not stop the others.
type MultiPublisher []domrepo.SynthesisPublisher

func (m MultiPublisher) PublishSynthesis(ctx context.Context, res models.SynthesisResult, fused []models.FusedInsight) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishSynthesis(ctx, res, fused); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ domrepo.SynthesisPublisher = MultiPublisher(nil)
