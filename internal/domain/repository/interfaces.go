package repository

import (
	"context"
	"errors"
	"time"

	"LeoneAI/internal/domain/models"
)

// ErrNotFound is returned by SessionStore.Get for absent keys.
var ErrNotFound = errors.New("repository: not found")

// Persisted client state keys.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// SessionKeys lists every key owned by the session manager.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// SessionStore is durable client-side storage for session and settings blobs.
type SessionStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// TickPublisher forwards live ticks to a message broker.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.MarketTick) error
	PublishBatch(ctx context.Context, ticks []*models.MarketTick) error
	Close() error
}

// TickStorage persists live ticks for later history queries.
type TickStorage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, t *models.MarketTick) error
	StoreBatch(ctx context.Context, ticks []*models.MarketTick) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.MarketTick, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records tick sink activity.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
