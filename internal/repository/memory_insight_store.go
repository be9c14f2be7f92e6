package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
)

// MemoryInsightStore is the in-process owner of insight lifetime.
// Every operation takes the store mutex; readers get copies.
type MemoryInsightStore struct {
	mu       sync.RWMutex
	items    map[string]models.Insight
	fused    []models.FusedInsight
	capacity int
	now      func() time.Time
}

type StoreOption func(*MemoryInsightStore)

// WithCapacity bounds the store; Put evicts the lowest-weight insights beyond it.
func WithCapacity(n int) StoreOption {
	return func(s *MemoryInsightStore) { s.capacity = n }
}

func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *MemoryInsightStore) { s.now = now }
}

func NewMemoryInsightStore(opts ...StoreOption) *MemoryInsightStore {
	s := &MemoryInsightStore{
		items: make(map[string]models.Insight),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryInsightStore) Put(in models.Insight) error {
	if err := in.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[in.ID] = in.Clone()
	if s.capacity > 0 {
		s.evictLowestLocked(s.capacity)
		if _, kept := s.items[in.ID]; !kept {
			return fmt.Errorf("%w: %s", models.ErrEvictedOnAdmit, in.ID)
		}
	}
	return nil
}

func (s *MemoryInsightStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *MemoryInsightStore) Get(id string) (models.Insight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, ok := s.items[id]
	if !ok || in.Expired(s.now()) {
		return models.Insight{}, false
	}
	return in.Clone(), true
}

// Snapshot is ordered by creation time, then id.
func (s *MemoryInsightStore) Snapshot() []models.Insight {
	now := s.now()

	s.mu.RLock()
	out := make([]models.Insight, 0, len(s.items))
	for _, in := range s.items {
		if !in.Expired(now) {
			out = append(out, in.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *MemoryInsightStore) EvictExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, in := range s.items {
		if in.Expired(now) {
			delete(s.items, id)
			n++
		}
	}
	kept := s.fused[:0]
	for _, f := range s.fused {
		if !f.Expired(now) {
			kept = append(kept, f)
		}
	}
	s.fused = kept
	return n
}

// EvictIfOverCapacity removes the lowest confidence×actionability insights until
// at most maxSize remain. Negative sizes are ignored.
func (s *MemoryInsightStore) EvictIfOverCapacity(maxSize int) int {
	if maxSize < 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLowestLocked(maxSize)
}

func (s *MemoryInsightStore) evictLowestLocked(maxSize int) int {
	excess := len(s.items) - maxSize
	if excess <= 0 {
		return 0
	}
	ranked := make([]models.Insight, 0, len(s.items))
	for _, in := range s.items {
		ranked = append(ranked, in)
	}
	// lowest weight first; among equals the oldest goes first
	sort.Slice(ranked, func(i, j int) bool {
		wi, wj := ranked[i].Weight(), ranked[j].Weight()
		if wi != wj {
			return wi < wj
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		return ranked[i].ID < ranked[j].ID
	})
	for _, in := range ranked[:excess] {
		delete(s.items, in.ID)
	}
	return excess
}

func (s *MemoryInsightStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryInsightStore) PutFused(fused []models.FusedInsight) {
	cp := make([]models.FusedInsight, len(fused))
	for i, f := range fused {
		cp[i] = f.Clone()
	}
	s.mu.Lock()
	s.fused = cp
	s.mu.Unlock()
}

func (s *MemoryInsightStore) FusedSnapshot() []models.FusedInsight {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FusedInsight, 0, len(s.fused))
	for _, f := range s.fused {
		if !f.Expired(now) {
			out = append(out, f.Clone())
		}
	}
	return out
}

var _ domrepo.InsightStore = (*MemoryInsightStore)(nil)
