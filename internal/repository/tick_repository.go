package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"LeoneAI/internal/domain/models"
	"LeoneAI/internal/domain/repository"
	pkgkafka "LeoneAI/pkg/kafka"

	"github.com/shopspring/decimal"
)

const tickSource = "leoneai-ws"

// ClickHouseTickStorage implements TickStorage for ClickHouse.
type ClickHouseTickStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseTickStorage creates ClickHouse tick storage. table is fully qualified.
func NewClickHouseTickStorage(db *sql.DB, table string) *ClickHouseTickStorage {
	return &ClickHouseTickStorage{db: db, table: table}
}

var _ repository.TickStorage = (*ClickHouseTickStorage)(nil)

func (s *ClickHouseTickStorage) Init(ctx context.Context) error {
	return nil // schema is created by pkg/clickhouse
}

func (s *ClickHouseTickStorage) Store(ctx context.Context, t *models.MarketTick) error {
	return s.StoreBatch(ctx, []*models.MarketTick{t})
}

func (s *ClickHouseTickStorage) StoreBatch(ctx context.Context, ticks []*models.MarketTick) error {
	if len(ticks) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, t := range ticks[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args,
				t.Timestamp.UTC(),
				t.Symbol,
				t.Price.String(),
				t.ChangePercent,
				t.Volume,
				tickSource,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, change_percent, volume, source) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert ticks: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseTickStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.MarketTick, error) {
	q := fmt.Sprintf("SELECT symbol, ts, toString(price), change_percent, volume FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []*models.MarketTick
	for rows.Next() {
		var (
			t     models.MarketTick
			price string
		)
		if err := rows.Scan(&t.Symbol, &t.Timestamp, &price, &t.ChangePercent, &t.Volume); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		ticks = append(ticks, &t)
	}
	return ticks, rows.Err()
}

func (s *ClickHouseTickStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTickStorage) Close() error {
	return nil // pool is owned by pkg/clickhouse.Client
}

// tickProducer is the part of *pkgkafka.Producer the publisher uses.
type tickProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaTickPublisher implements TickPublisher for Kafka, keyed by symbol.
type KafkaTickPublisher struct {
	producer tickProducer
	topic    string
}

// NewKafkaTickPublisher creates a Kafka tick publisher.
func NewKafkaTickPublisher(producer tickProducer, topic string) *KafkaTickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

var _ repository.TickPublisher = (*KafkaTickPublisher)(nil)

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.MarketTick) error {
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{tickMessage(t)})
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.MarketTick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = tickMessage(t)
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func tickMessage(t *models.MarketTick) pkgkafka.Message {
	return pkgkafka.Message{Key: []byte(t.Symbol), Value: tickPayload(t), Time: t.Timestamp}
}

func tickPayload(t *models.MarketTick) map[string]interface{} {
	return map[string]interface{}{
		"symbol":         t.Symbol,
		"price":          t.Price.String(),
		"change_percent": t.ChangePercent,
		"volume":         t.Volume,
		"ts":             t.Timestamp.UnixMilli(),
	}
}
