package cache

import (
	"context"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryStore struct {
	lru *expirable.LRU[string, ldvalue.Value]
}

// NewMemoryStore creates a Store that keeps up to size results in memory, each for the given TTL.
func NewMemoryStore(size int, ttl time.Duration) Store {
	return &memoryStore{lru: expirable.NewLRU[string, ldvalue.Value](size, nil, ttl)}
}

func (s *memoryStore) Get(_ context.Context, key string) (ldvalue.Value, bool, error) {
	value, ok := s.lru.Get(key)
	return value, ok, nil
}

// Put ignores ttl; all entries use the TTL given to NewMemoryStore.
func (s *memoryStore) Put(_ context.Context, key string, value ldvalue.Value, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

func (s *memoryStore) Close() error {
	s.lru.Purge()
	return nil
}
