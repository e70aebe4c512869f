package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"LeoneAI/internal/domain/models"
	domrepo "LeoneAI/internal/domain/repository"
	applogger "LeoneAI/pkg/logger"

	"github.com/shopspring/decimal"
)

// CHCandleStore aggregates the ClickHouse tick table into OHLC bars.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(db *sql.DB, table string, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: db, table: table, l: l}
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]*models.Candle, error) {
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	start := time.Now()
	from, to = tf.Align(from, to)

	const qtpl = `
        SELECT toStartOfInterval(ts, INTERVAL %d SECOND) AS bucket,
               toString(argMin(price, ts)), toString(max(price)), toString(min(price)), toString(argMax(price, ts)),
               toInt64(sum(volume))
        FROM %s
        WHERE symbol = ? AND ts >= ? AND ts < ?
        GROUP BY bucket
        ORDER BY bucket ASC
    `
	q := fmt.Sprintf(qtpl, int(tf.Duration().Seconds()), s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to.Add(tf.Duration()))
	if err != nil {
		s.l.Error("clickhouse get_candles query error",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	var out []*models.Candle
	for rows.Next() {
		var (
			c                     models.Candle
			open, high, low, last string
		)
		if err := rows.Scan(&c.Timestamp, &open, &high, &low, &last, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Open, _ = decimal.NewFromString(open)
		c.High, _ = decimal.NewFromString(high)
		c.Low, _ = decimal.NewFromString(low)
		c.Close, _ = decimal.NewFromString(last)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse get_candles ok",
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// TickCandleStore builds candles from any TickStorage in process.
type TickCandleStore struct {
	ticks domrepo.TickStorage
}

func NewTickCandleStore(ticks domrepo.TickStorage) *TickCandleStore {
	return &TickCandleStore{ticks: ticks}
}

var _ domrepo.CandleStore = (*TickCandleStore)(nil)

func (s *TickCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]*models.Candle, error) {
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	ticks, err := s.ticks.Query(ctx, symbol, from, to, 0)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	return AggregateTicks(ticks, tf), nil
}

// AggregateTicks folds ticks into ascending OHLC buckets of width tf.
func AggregateTicks(ticks []*models.MarketTick, tf domrepo.Timeframe) []*models.Candle {
	if len(ticks) == 0 {
		return nil
	}
	sorted := make([]*models.MarketTick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	width := tf.Duration()
	var (
		out []*models.Candle
		cur *models.Candle
	)
	for _, t := range sorted {
		bucket := t.Timestamp.Truncate(width)
		if cur == nil || !cur.Timestamp.Equal(bucket) {
			cur = &models.Candle{Timestamp: bucket, Open: t.Price, High: t.Price, Low: t.Price}
			out = append(out, cur)
		}
		if t.Price.GreaterThan(cur.High) {
			cur.High = t.Price
		}
		if t.Price.LessThan(cur.Low) {
			cur.Low = t.Price
		}
		cur.Close = t.Price
		cur.Volume += int64(t.Volume)
	}
	return out
}
