package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
)

type memoryEntry struct {
	result   *insurance.SocialInsuranceResult
	storedAt time.Time
}

// MemoryStore is a bounded in-process Store.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithTTL expires entries after ttl. Zero keeps entries until evicted.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// WithMaxEntries bounds the store, dropping the oldest entry when full.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) { s.maxEntries = n }
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return s.ttl > 0 && s.now().Sub(e.storedAt) >= s.ttl
}

func (s *MemoryStore) Get(_ context.Context, key Key) (*insurance.SocialInsuranceResult, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key.String()]
	s.mu.RUnlock()
	if !ok || s.expired(e) {
		return nil, false, nil
	}
	return e.result.Clone(), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key Key, result *insurance.SocialInsuranceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	if _, exists := s.entries[k]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[k] = memoryEntry{result: result.Clone(), storedAt: s.now()}
	return nil
}

func (s *MemoryStore) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range s.entries {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	delete(s.entries, oldestKey)
}

func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
	return nil
}

func (s *MemoryStore) DeleteMatching(_ context.Context, match Matcher) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k := range s.entries {
		parsed, err := ParseKey(k)
		if err != nil {
			continue
		}
		if match(parsed) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
