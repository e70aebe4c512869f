package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"LeoneAI/internal/domain/models"
	domrepo "LeoneAI/internal/domain/repository"
	"LeoneAI/internal/service/cache"
	"LeoneAI/internal/usecase"
	pkghttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"
	"LeoneAI/pkg/util"

	"github.com/labstack/echo/v4"
)

// TickReader reads ticks collected from the real-time feed.
type TickReader interface {
	Latest() []*models.MarketTick
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.MarketTick, error)
}

// CandleReader aggregates collected ticks into bars.
type CandleReader interface {
	GetCandles(ctx context.Context, p usecase.GetCandlesParams) (*usecase.GetCandlesResult, error)
}

// CoinLister is the public market data provider.
type CoinLister interface {
	TopCoins(ctx context.Context, order string, limit int) ([]*models.CoinMarket, error)
	Trending(ctx context.Context) ([]*models.CoinMarket, error)
	Board(ctx context.Context) (*models.MarketBoard, error)
}

// Public list names accepted by /api/markets/public.
const (
	ListTop      = "top"
	ListGainers  = "gainers"
	ListVolume   = "volume"
	ListTrending = "trending"
)

// MarketHandler serves collected ticks, candles and public market lists.
type MarketHandler struct {
	ticks   TickReader
	candles CandleReader
	coins   CoinLister
	orders  map[string]string
	lists   *cache.TTLCache[[]*models.CoinMarket]
	ttl     time.Duration
	log     *applogger.Logger
}

// NewMarketHandler builds the handler. orders maps list names to provider
// sort orders; coins may be nil when public data is disabled.
func NewMarketHandler(ticks TickReader, candles CandleReader, coins CoinLister, orders map[string]string, ttl time.Duration, l *applogger.Logger) *MarketHandler {
	if l == nil {
		l = applogger.Nop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MarketHandler{
		ticks:   ticks,
		candles: candles,
		coins:   coins,
		orders:  orders,
		lists:   cache.NewTTLCache[[]*models.CoinMarket](),
		ttl:     ttl,
		log:     l.Named("api.market"),
	}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/ticks", h.Latest)
	g.GET("/ticks/:symbol", h.Ticks)
	g.GET("/candles/:symbol", h.Candles)
	g.GET("/markets/board", h.Board)
	g.GET("/markets/public", h.Public)
}

func (h *MarketHandler) Latest(c echo.Context) error {
	return pkghttp.SuccessResponse(c, h.ticks.Latest())
}

func (h *MarketHandler) Ticks(c echo.Context) error {
	symbol := util.NormalizeSymbol(c.Param("symbol"))
	now := time.Now().UTC()
	to := pkghttp.ParseTimeDefault(c.QueryParam("to"), now)
	from := pkghttp.ParseTimeDefault(c.QueryParam("from"), to.Add(-time.Hour))
	if from.After(to) {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestError("from must be <= to"))
	}
	limit := pkghttp.ParseIntDefault(c.QueryParam("limit"), 500)
	if limit <= 0 || limit > 10000 {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestError("limit must be between 1 and 10000"))
	}
	rows, err := h.ticks.Query(c.Request().Context(), symbol, from, to, limit)
	if err != nil {
		h.log.Error("query ticks", applogger.String("symbol", symbol), applogger.Error(err))
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *MarketHandler) Candles(c echo.Context) error {
	tf := domrepo.Timeframe(c.QueryParam("tf"))
	if tf != "" && !domrepo.IsValidTimeframe(tf) {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestErrorf("unsupported timeframe %q", tf))
	}
	p := usecase.GetCandlesParams{
		Symbol:    c.Param("symbol"),
		Timeframe: tf,
		Limit:     pkghttp.ParseIntDefault(c.QueryParam("limit"), 0),
	}
	if t, ok := pkghttp.ParseTime(c.QueryParam("from")); ok {
		p.From = t
	}
	if t, ok := pkghttp.ParseTime(c.QueryParam("to")); ok {
		p.To = t
	}
	res, err := h.candles.GetCandles(c.Request().Context(), p)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, res)
}

func (h *MarketHandler) Board(c echo.Context) error {
	if h.coins == nil {
		return pkghttp.AppErrorResponse(c, pkghttp.NotFoundError("public market data disabled"))
	}
	board, err := h.coins.Board(c.Request().Context())
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, board)
}

// Public serves one of the public coin lists, cached per list and limit.
func (h *MarketHandler) Public(c echo.Context) error {
	if h.coins == nil {
		return pkghttp.AppErrorResponse(c, pkghttp.NotFoundError("public market data disabled"))
	}
	list := strings.ToLower(c.QueryParam("list"))
	if list == "" {
		list = ListTop
	}
	limit := pkghttp.ParseIntDefault(c.QueryParam("limit"), 20)
	if limit <= 0 || limit > 250 {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestError("limit must be between 1 and 250"))
	}

	var load func(ctx context.Context) ([]*models.CoinMarket, error)
	switch list {
	case ListTrending:
		load = h.coins.Trending
	default:
		order, ok := h.orders[list]
		if !ok {
			return pkghttp.AppErrorResponse(c, pkghttp.BadRequestErrorf("unknown list %q", list))
		}
		load = func(ctx context.Context) ([]*models.CoinMarket, error) {
			return h.coins.TopCoins(ctx, order, limit)
		}
	}

	key := list + ":" + strconv.Itoa(limit)
	rows, err := h.lists.GetOrLoad(c.Request().Context(), key, h.ttl, load)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return pkghttp.ListResponse(c, rows, int64(len(rows)))
}
