package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"LeoneAI/internal/domain/models"
	domrepo "LeoneAI/internal/domain/repository"
	pkghttp "LeoneAI/pkg/http"
)

// CandlesUseCase aggregates collected ticks into OHLC bars.
type CandlesUseCase struct {
	store domrepo.CandleStore
}

func NewCandlesUseCase(store domrepo.CandleStore) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

type GetCandlesParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Timeframe domrepo.Timeframe
	Limit     int
}

type GetCandlesResult struct {
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	From      time.Time        `json:"from"`
	To        time.Time        `json:"to"`
	Count     int              `json:"count"`
	Candles   []*models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return nil, pkghttp.BadRequestError("symbol required")
	}
	if p.To.IsZero() {
		p.To = time.Now().UTC()
	}
	if p.From.IsZero() {
		p.From = p.To.Add(-time.Hour)
	}
	if p.From.After(p.To) {
		return nil, pkghttp.BadRequestError("from must be <= to")
	}
	if p.Timeframe == "" {
		p.Timeframe = domrepo.TF1m
	}
	if p.Limit <= 0 {
		p.Limit = 1000
	}
	if p.Limit > 10000 {
		p.Limit = 10000
	}

	candles, err := uc.store.GetCandles(ctx, p.Symbol, p.From, p.To, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if len(candles) > p.Limit {
		candles = candles[len(candles)-p.Limit:]
	}

	return &GetCandlesResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		From:      p.From,
		To:        p.To,
		Count:     len(candles),
		Candles:   candles,
	}, nil
}
