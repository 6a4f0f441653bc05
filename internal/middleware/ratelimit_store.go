package middleware

import (
	"context"
	"sync"
	"time"
)

// RateStore coordinates fixed-window rate limiting counters for a key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// memoryRateStore provides process-local rate limiting. It is concurrency-safe.
type memoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	tick  *time.Ticker
	clock func() time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// RateStoreOption customises the memory rate store.
type RateStoreOption func(*memoryRateStore)

// WithRateClock injects a custom clock, primarily for testing.
func WithRateClock(clock func() time.Time) RateStoreOption {
	return func(s *memoryRateStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryRateStore constructs an in-memory rate store with a background
// sweep that drops expired counters.
func NewMemoryRateStore(opts ...RateStoreOption) RateStore {
	store := &memoryRateStore{
		data:  make(map[string]*memoryCounter),
		tick:  time.NewTicker(time.Minute),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}

	go store.cleanupLoop()
	return store
}

func (s *memoryRateStore) cleanupLoop() {
	for range s.tick.C {
		now := s.clock()
		s.mu.Lock()
		for key, counter := range s.data {
			if now.After(counter.windowEnd) {
				delete(s.data, key)
			}
		}
		s.mu.Unlock()
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.data[key]
	if !ok || now.After(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}

	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}
