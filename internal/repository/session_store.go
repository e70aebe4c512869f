package repository

import (
	"context"
	"errors"
	"fmt"

	drepo "LeoneAI/internal/domain/repository"
	"LeoneAI/pkg/cache"
)

// CacheSessionStore adapts any cache.Service (memory, Redis, Badger) to the
// session store contract. Entries never expire.
type CacheSessionStore struct {
	backend cache.Service
	name    string
}

func NewCacheSessionStore(backend cache.Service, name string) *CacheSessionStore {
	return &CacheSessionStore{backend: backend, name: name}
}

var _ drepo.SessionStore = (*CacheSessionStore)(nil)

func (s *CacheSessionStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.backend.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, drepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s session store get %s: %w", s.name, key, err)
	}
	return b, nil
}

func (s *CacheSessionStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.backend.Set(ctx, key, value, 0); err != nil {
		return fmt.Errorf("%s session store set %s: %w", s.name, key, err)
	}
	return nil
}

func (s *CacheSessionStore) Delete(ctx context.Context, keys ...string) error {
	if err := s.backend.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("%s session store delete: %w", s.name, err)
	}
	return nil
}

func (s *CacheSessionStore) Close() error {
	return s.backend.Close()
}

// Name identifies the backing store in logs.
func (s *CacheSessionStore) Name() string {
	return s.name
}
