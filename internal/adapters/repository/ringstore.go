package repository

import (
	"context"
	"sync"

	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/pkg/metrics"
)

// defaultCapacity bounds memory for a full match at live event rates.
const defaultCapacity = 1000

// RingStore implements Store as a fixed-capacity ring buffer with
// oldest-first eviction.
type RingStore struct {
	mu       sync.RWMutex
	buf      []model.TemporalFeature
	head     int // index of the oldest entry
	count    int
	capacity int
}

// NewRingStore creates a feature store with configuration options.
func NewRingStore(opts ...Option) *RingStore {
	s := &RingStore{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.buf = make([]model.TemporalFeature, s.capacity)

	metrics.UpdateFeatureStoreSize(0)

	return s
}

// Store appends one feature, evicting the oldest entry when full.
func (s *RingStore) Store(ctx context.Context, f model.TemporalFeature) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tail := (s.head + s.count) % s.capacity
	s.buf[tail] = f
	if s.count == s.capacity {
		// Full: the slot just written was the oldest entry.
		s.head = (s.head + 1) % s.capacity
	} else {
		s.count++
	}

	metrics.UpdateFeatureStoreSize(s.count)
}

// RecentFeatures returns up to n of the most recent features in insertion order.
func (s *RingStore) RecentFeatures(ctx context.Context, n int) []model.TemporalFeature {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || s.count == 0 {
		return nil
	}
	if n > s.count {
		n = s.count
	}

	out := make([]model.TemporalFeature, n)
	start := s.count - n
	for i := 0; i < n; i++ {
		out[i] = s.buf[(s.head+start+i)%s.capacity]
	}
	return out
}

// Snapshot returns all retained features in insertion order.
func (s *RingStore) Snapshot(ctx context.Context) []model.TemporalFeature {
	return s.RecentFeatures(ctx, s.Size(ctx))
}

// Size returns the current number of retained features.
func (s *RingStore) Size(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Clear resets the store to empty.
func (s *RingStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.head = 0
	s.count = 0

	metrics.UpdateFeatureStoreSize(0)
}
