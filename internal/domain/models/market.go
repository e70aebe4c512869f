package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketTick is a single real-time price observation.
type MarketTick struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent float64         `json:"change_percent"`
	Volume        float64         `json:"volume,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// PriceQuote is the /market/prices/{symbol} response. The backend reports
// lookup failures in Error with a 200 status.
type PriceQuote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent float64         `json:"change_percent"`
	Timestamp     string          `json:"timestamp"`
	Error         string          `json:"error,omitempty"`
}

// Tick converts the quote into a MarketTick.
func (q *PriceQuote) Tick() *MarketTick {
	return &MarketTick{
		Symbol:        q.Symbol,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Timestamp:     ParseTimestamp(q.Timestamp),
	}
}

// Candle is one OHLCV bar from /market/history.
type Candle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// PriceHistory is the /market/history/{symbol} response.
type PriceHistory struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	Period   string    `json:"period"`
	Data     []*Candle `json:"data"`
	Error    string    `json:"error,omitempty"`
}

// HistoryRequest selects a history window.
type HistoryRequest struct {
	Symbol   string `param:"symbol" json:"symbol" validate:"required"`
	Interval string `query:"interval" json:"interval" default:"1d" validate:"oneof=1m 5m 15m 1h 1d 1wk"`
	Period   string `query:"period" json:"period" default:"1mo" validate:"oneof=1d 5d 1mo 3mo 6mo 1y"`
}

// MarketBoard is a snapshot of the watched symbols.
type MarketBoard struct {
	Source    string        `json:"source"` // backend or coingecko
	Tickers   []*MarketTick `json:"tickers"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CoinMarket is a public market row, prices in both currencies.
type CoinMarket struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Image            string          `json:"image,omitempty"`
	PriceUSD         decimal.Decimal `json:"price_usd"`
	PriceSLL         decimal.Decimal `json:"price_sll"`
	MarketCapUSD     decimal.Decimal `json:"market_cap_usd"`
	VolumeUSD        decimal.Decimal `json:"volume_usd"`
	ChangePercent24h float64         `json:"change_percent_24h"`
	MarketCapRank    int             `json:"market_cap_rank"`
	Trending         bool            `json:"trending,omitempty"`
}
