package usecase

import (
	"context"
	"fmt"
	"time"

	"LeoneAI/internal/domain/models"
	drepo "LeoneAI/internal/domain/repository"
)

// Tick sink backends.
const (
	SinkNone       = "none"
	SinkKafka      = "kafka"
	SinkClickHouse = "clickhouse"
)

// TickProcessor routes accepted ticks to the configured sink backend.
type TickProcessor struct {
	pub     drepo.TickPublisher
	store   drepo.TickStorage
	metrics drepo.Metrics
	backend string
}

// NewTickProcessor creates a new TickProcessor instance. pub and store may be
// nil when their backend is not selected.
func NewTickProcessor(
	pub drepo.TickPublisher,
	store drepo.TickStorage,
	metrics drepo.Metrics,
	backend string,
) *TickProcessor {
	if backend == "" {
		backend = SinkNone
	}
	return &TickProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Backend names the selected sink.
func (p *TickProcessor) Backend() string { return p.backend }

// Process forwards a single tick.
func (p *TickProcessor) Process(ctx context.Context, t *models.MarketTick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case SinkNone:
		return nil
	case SinkKafka:
		err = p.pub.Publish(ctx, t)
	case SinkClickHouse:
		err = p.store.Store(ctx, t)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process tick: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, t.Symbol)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch forwards multiple ticks in one call.
func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.MarketTick) error {
	if len(ticks) == 0 || p.backend == SinkNone {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case SinkKafka:
		err = p.pub.PublishBatch(ctx, ticks)
	case SinkClickHouse:
		err = p.store.StoreBatch(ctx, ticks)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, t := range ticks {
		p.metrics.RecordMessageSent(p.backend, t.Symbol)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *TickProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
