package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"LeoneAI/internal/domain/models"
	"LeoneAI/internal/domain/repository"
)

// MemoryTickStorage keeps the most recent ticks per symbol in bounded rings.
type MemoryTickStorage struct {
	mu       sync.RWMutex
	capacity int
	bySymbol map[string][]*models.MarketTick
}

// NewMemoryTickStorage keeps up to capacity ticks per symbol.
func NewMemoryTickStorage(capacity int) *MemoryTickStorage {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryTickStorage{capacity: capacity, bySymbol: make(map[string][]*models.MarketTick)}
}

var _ repository.TickStorage = (*MemoryTickStorage)(nil)

func (s *MemoryTickStorage) Init(context.Context) error { return nil }

func (s *MemoryTickStorage) Store(ctx context.Context, t *models.MarketTick) error {
	return s.StoreBatch(ctx, []*models.MarketTick{t})
}

func (s *MemoryTickStorage) StoreBatch(_ context.Context, ticks []*models.MarketTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ticks {
		if t == nil || t.Symbol == "" {
			continue
		}
		cp := *t
		ring := append(s.bySymbol[t.Symbol], &cp)
		if over := len(ring) - s.capacity; over > 0 {
			ring = append(ring[:0:0], ring[over:]...)
		}
		s.bySymbol[t.Symbol] = ring
	}
	return nil
}

// Query returns ticks in [from, to], newest first. Zero bounds are open.
func (s *MemoryTickStorage) Query(_ context.Context, symbol string, from, to time.Time, limit int) ([]*models.MarketTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ring := s.bySymbol[symbol]
	out := make([]*models.MarketTick, 0, len(ring))
	for i := len(ring) - 1; i >= 0; i-- {
		t := ring[i]
		if !from.IsZero() && t.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && t.Timestamp.After(to) {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Latest returns the newest tick of every symbol, sorted by symbol.
func (s *MemoryTickStorage) Latest() []*models.MarketTick {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.MarketTick, 0, len(s.bySymbol))
	for _, ring := range s.bySymbol {
		if len(ring) == 0 {
			continue
		}
		cp := *ring[len(ring)-1]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (s *MemoryTickStorage) Health(context.Context) error { return nil }

func (s *MemoryTickStorage) Close() error { return nil }
