package repository

import (
	"context"
	"errors"
	"time"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
	"InsightHub/pkg/cache"
)

var latestSynthesisKey = cache.GenerateKey("synthesis", "latest")

// CacheSynthesisStore keeps the latest synthesis in a cache so it can be served after a restart.
type CacheSynthesisStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheSynthesisStore(c cache.Service, ttl time.Duration) *CacheSynthesisStore {
	return &CacheSynthesisStore{cache: c, ttl: ttl}
}

func (s *CacheSynthesisStore) PublishSynthesis(ctx context.Context, res models.SynthesisResult, _ []models.FusedInsight) error {
	return s.cache.Set(ctx, latestSynthesisKey, res, s.ttl)
}

func (s *CacheSynthesisStore) LatestSynthesis(ctx context.Context) (models.SynthesisResult, bool, error) {
	var res models.SynthesisResult
	if err := s.cache.Get(ctx, latestSynthesisKey, &res); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return res, false, nil
		}
		return res, false, err
	}
	return res, true, nil
}

func (s *CacheSynthesisStore) Close() error {
	return s.cache.Close()
}

var (
	_ domrepo.SynthesisPublisher = (*CacheSynthesisStore)(nil)
	_ domrepo.SynthesisCache     = (*CacheSynthesisStore)(nil)
)
