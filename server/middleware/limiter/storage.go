package limiter

import (
	"sync"
)

// Storage is an interface for storing and retrieving token buckets.
type Storage interface {
	// Get retrieves a token bucket for the given key, nil if absent.
	Get(key string) (*TokenBucket, error)

	// Set stores a token bucket for the given key.
	Set(key string, bucket *TokenBucket) error

	// Delete removes a token bucket for the given key.
	Delete(key string) error

	// Reset clears all stored token buckets.
	Reset() error
}

type InMemoryStorage struct {
	buckets map[string]*TokenBucket
	mu      sync.RWMutex
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		buckets: make(map[string]*TokenBucket),
	}
}

func (s *InMemoryStorage) Get(key string) (*TokenBucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, exists := s.buckets[key]
	if !exists {
		return nil, nil
	}
	return bucket, nil
}

func (s *InMemoryStorage) Set(key string, bucket *TokenBucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[key] = bucket
	return nil
}

func (s *InMemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buckets, key)
	return nil
}

func (s *InMemoryStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[string]*TokenBucket)
	return nil
}
