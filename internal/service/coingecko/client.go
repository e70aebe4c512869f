// Package coingecko reads public market data used as the fallback market
// board when the backend list is unavailable.
package coingecko

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	OrderMarketCap = "market_cap_desc"
	OrderVolume    = "volume_desc"
	OrderGainers   = "price_change_percentage_24h_desc"

	trendingLimit = 10
)

// Client queries the CoinGecko v3 API.
type Client struct {
	client  *resty.Client
	conv    models.Converter
	perPage int
	log     *applogger.Logger
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.SetTimeout(d)
		}
	}
}

// WithRetry enables retries on 429 responses, honouring Retry-After.
func WithRetry(count int, wait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.client.
			SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
			}).
			SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
				if ra := resp.Header().Get("Retry-After"); ra != "" {
					if d, err := time.ParseDuration(ra + "s"); err == nil {
						return d, nil
					}
				}
				return 0, nil
			})
	}
}

// WithPerPage sets the default list size.
func WithPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.perPage = n
		}
	}
}

// WithConverter sets the USD to Leone converter.
func WithConverter(conv models.Converter) Option {
	return func(c *Client) {
		c.conv = conv
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient builds a client for host, or DefaultBaseURL when empty.
func NewClient(host string, opts ...Option) *Client {
	if host == "" {
		host = DefaultBaseURL
	}
	c := &Client{
		client: resty.New().
			SetBaseURL(strings.TrimRight(host, "/")).
			SetTimeout(10*time.Second).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "leoneai-client"),
		conv:    models.NewConverter(models.DefaultUSDToSLL),
		perPage: 10,
		log:     applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("coingecko")
	return c
}

type coinRow struct {
	ID                       string          `json:"id"`
	Symbol                   string          `json:"symbol"`
	Name                     string          `json:"name"`
	Image                    string          `json:"image"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	MarketCap                decimal.Decimal `json:"market_cap"`
	MarketCapRank            int             `json:"market_cap_rank"`
	TotalVolume              decimal.Decimal `json:"total_volume"`
	PriceChangePercentage24h float64         `json:"price_change_percentage_24h"`
	LastUpdated              string          `json:"last_updated"`
}

type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID string `json:"id"`
		} `json:"item"`
	} `json:"coins"`
}

// TopCoins lists coins ordered by order (OrderMarketCap when empty).
func (c *Client) TopCoins(ctx context.Context, order string, limit int) ([]*models.CoinMarket, error) {
	if order == "" {
		order = OrderMarketCap
	}
	if limit <= 0 {
		limit = c.perPage
	}
	rows, err := c.markets(ctx, map[string]string{
		"order":    order,
		"per_page": strconv.Itoa(limit),
		"page":     "1",
	})
	if err != nil {
		return nil, errors.Wrapf(err, "top coins by %s", order)
	}
	return c.convert(rows, false), nil
}

// Gainers lists the best 24h performers.
func (c *Client) Gainers(ctx context.Context, limit int) ([]*models.CoinMarket, error) {
	return c.TopCoins(ctx, OrderGainers, limit)
}

// ByVolume lists the most traded coins.
func (c *Client) ByVolume(ctx context.Context, limit int) ([]*models.CoinMarket, error) {
	return c.TopCoins(ctx, OrderVolume, limit)
}

// Trending resolves the trending search list into market rows.
func (c *Client) Trending(ctx context.Context) ([]*models.CoinMarket, error) {
	var tr trendingResponse
	if err := c.get(ctx, "/search/trending", nil, &tr); err != nil {
		return nil, errors.Wrap(err, "trending search")
	}
	ids := make([]string, 0, trendingLimit)
	for _, coin := range tr.Coins {
		if coin.Item.ID == "" {
			continue
		}
		ids = append(ids, coin.Item.ID)
		if len(ids) == trendingLimit {
			break
		}
	}
	if len(ids) == 0 {
		return []*models.CoinMarket{}, nil
	}
	rows, err := c.markets(ctx, map[string]string{"ids": strings.Join(ids, ",")})
	if err != nil {
		return nil, errors.Wrap(err, "trending details")
	}
	return c.convert(rows, true), nil
}

// Board converts the top coins into a market board of ticks.
func (c *Client) Board(ctx context.Context) (*models.MarketBoard, error) {
	coins, err := c.TopCoins(ctx, OrderMarketCap, c.perPage)
	if err != nil {
		return nil, err
	}
	board := &models.MarketBoard{Source: "coingecko", Tickers: make([]*models.MarketTick, 0, len(coins)), UpdatedAt: time.Now().UTC()}
	for _, coin := range coins {
		board.Tickers = append(board.Tickers, &models.MarketTick{
			Symbol:        coin.Symbol + "-USD",
			Price:         coin.PriceUSD,
			ChangePercent: coin.ChangePercent24h,
			Volume:        coin.VolumeUSD.InexactFloat64(),
			Timestamp:     board.UpdatedAt,
		})
	}
	return board, nil
}

func (c *Client) markets(ctx context.Context, params map[string]string) ([]coinRow, error) {
	q := map[string]string{
		"vs_currency":             "usd",
		"sparkline":               "false",
		"price_change_percentage": "24h",
	}
	for k, v := range params {
		q[k] = v
	}
	var rows []coinRow
	if err := c.get(ctx, "/coins/markets", q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	if err != nil {
		c.log.Warn("request failed", applogger.String("path", path), applogger.Error(err))
		return pkghttp.NetworkError(err)
	}
	if !resp.IsSuccess() {
		msg := strings.TrimSpace(string(resp.Body()))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		c.log.Warn("unexpected status",
			applogger.String("path", path),
			applogger.Int("status", resp.StatusCode()))
		return pkghttp.ServerError(resp.StatusCode(), "market data provider unavailable").
			WithError(errors.Errorf("http %d: %s", resp.StatusCode(), msg))
	}
	return nil
}

func (c *Client) convert(rows []coinRow, trending bool) []*models.CoinMarket {
	out := make([]*models.CoinMarket, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.CoinMarket{
			ID:               r.ID,
			Symbol:           strings.ToUpper(r.Symbol),
			Name:             r.Name,
			Image:            r.Image,
			PriceUSD:         r.CurrentPrice,
			PriceSLL:         c.conv.ToSLL(r.CurrentPrice),
			MarketCapUSD:     r.MarketCap,
			VolumeUSD:        r.TotalVolume,
			ChangePercent24h: r.PriceChangePercentage24h,
			MarketCapRank:    r.MarketCapRank,
			Trending:         trending,
		})
	}
	return out
}
