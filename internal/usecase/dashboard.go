package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"LeoneAI/internal/domain/models"
	"LeoneAI/internal/service/backend"
	"LeoneAI/internal/service/cache"
	"LeoneAI/internal/service/poller"
	pkghttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"
)

// DashboardBackend is the slice of the backend API the dashboard reads and writes.
type DashboardBackend interface {
	Portfolio(ctx context.Context) (*models.PortfolioSnapshot, error)
	Stats(ctx context.Context) (*models.PortfolioStats, error)
	RecentSignals(ctx context.Context, limit int) ([]*models.Signal, error)
	FollowSignal(ctx context.Context, id int64) (*backend.StatusMessage, error)
	Trade(ctx context.Context, req models.TradeRequest) (*models.TradeResult, error)
	Deposit(ctx context.Context, req models.DepositRequest) (*models.Transaction, error)
	Withdraw(ctx context.Context, req models.WithdrawRequest) (*models.Transaction, error)
	Price(ctx context.Context, symbol string) (*models.PriceQuote, error)
}

// PublicMarkets supplies the market board when the backend cannot.
type PublicMarkets interface {
	Board(ctx context.Context) (*models.MarketBoard, error)
}

// SessionView is the read side of the session manager.
type SessionView interface {
	User() *models.User
	IsAuthenticated() bool
	IsSuperuser() bool
}

// DashboardConfig tunes the dashboard pollers.
type DashboardConfig struct {
	Symbols      []string
	Interval     time.Duration
	SignalsLimit int
	QuoteTTL     time.Duration
}

// Banner is a non-fatal error rendered next to the resource it concerns.
type Banner struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// DashboardView is the assembled dashboard state.
type DashboardView struct {
	User      *models.User              `json:"user"`
	Premium   bool                      `json:"premium"`
	Portfolio *models.PortfolioSnapshot `json:"portfolio"`
	Stats     *models.PortfolioStats    `json:"stats"`
	Signals   []*models.Signal          `json:"signals"`
	Board     *models.MarketBoard       `json:"board"`
	Banners   []Banner                  `json:"banners"`
}

// Dashboard keeps the portfolio, stats, signal and market views fresh and
// carries the user actions issued from them.
type Dashboard struct {
	backend DashboardBackend
	public  PublicMarkets
	session SessionView
	cfg     DashboardConfig
	quotes  *cache.TTLCache[*models.PriceQuote]
	log     *applogger.Logger

	portfolio *poller.Refresher[*models.PortfolioSnapshot]
	stats     *poller.Refresher[*models.PortfolioStats]
	signals   *poller.Refresher[[]*models.Signal]
	board     *poller.Refresher[*models.MarketBoard]

	mu       sync.RWMutex
	followed map[int64]bool
	pushed   *models.PortfolioSnapshot
	pushedAt time.Time
}

// NewDashboard wires the four pollers. public may be nil.
func NewDashboard(b DashboardBackend, public PublicMarkets, session SessionView, cfg DashboardConfig, obs poller.Observer, l *applogger.Logger) *Dashboard {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = poller.DefaultInterval
	}
	if cfg.SignalsLimit <= 0 {
		cfg.SignalsLimit = 20
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = cfg.Interval / 2
	}
	d := &Dashboard{
		backend:  b,
		public:   public,
		session:  session,
		cfg:      cfg,
		quotes:   cache.NewTTLCache[*models.PriceQuote](),
		log:      l.Named("dashboard"),
		followed: make(map[int64]bool),
	}
	opts := []poller.Option{poller.WithInterval(cfg.Interval), poller.WithObserver(obs), poller.WithLogger(l)}

	d.portfolio = poller.New("portfolio", func(ctx context.Context) (*models.PortfolioSnapshot, error) {
		if err := d.requireAuth(); err != nil {
			return nil, err
		}
		return d.backend.Portfolio(ctx)
	}, opts...)
	d.stats = poller.New("stats", func(ctx context.Context) (*models.PortfolioStats, error) {
		if err := d.requireAuth(); err != nil {
			return nil, err
		}
		return d.backend.Stats(ctx)
	}, opts...)
	d.signals = poller.New("signals", func(ctx context.Context) ([]*models.Signal, error) {
		if err := d.requireAuth(); err != nil {
			return nil, err
		}
		return d.backend.RecentSignals(ctx, d.cfg.SignalsLimit)
	}, opts...).Fallback([]*models.Signal{})
	d.board = poller.New("markets", d.fetchBoard, opts...).
		Fallback(&models.MarketBoard{Source: "static", Tickers: []*models.MarketTick{}})
	return d
}

// Start begins polling; the first fetch of every resource happens immediately.
func (d *Dashboard) Start(ctx context.Context) {
	d.portfolio.Start(ctx)
	d.stats.Start(ctx)
	d.signals.Start(ctx)
	d.board.Start(ctx)
}

// Stop cancels every poller. In-flight fetches finish but are discarded.
func (d *Dashboard) Stop() {
	d.portfolio.Stop()
	d.stats.Stop()
	d.signals.Stop()
	d.board.Stop()
}

func (d *Dashboard) requireAuth() error {
	if d.session == nil || !d.session.IsAuthenticated() {
		return pkghttp.AuthExpiredError(errors.New("not logged in"))
	}
	return nil
}

// fetchBoard prices the watched symbols through the backend, falling back
// to the public provider when none could be priced.
func (d *Dashboard) fetchBoard(ctx context.Context) (*models.MarketBoard, error) {
	var firstErr error
	if d.requireAuth() == nil && len(d.cfg.Symbols) > 0 {
		board := &models.MarketBoard{Source: "backend", UpdatedAt: time.Now().UTC()}
		for _, sym := range d.cfg.Symbols {
			q, err := d.Quote(ctx, sym)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			board.Tickers = append(board.Tickers, q.Tick())
		}
		if len(board.Tickers) > 0 {
			return board, nil
		}
	}
	if d.public != nil {
		board, err := d.public.Board(ctx)
		if err == nil {
			return board, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = pkghttp.ServerError(http.StatusServiceUnavailable, "no market source available")
	}
	return nil, firstErr
}

// Quote returns the backend quote for symbol, memoized briefly.
func (d *Dashboard) Quote(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	return d.quotes.GetOrLoad(ctx, symbol, d.cfg.QuoteTTL, func(ctx context.Context) (*models.PriceQuote, error) {
		return d.backend.Price(ctx, symbol)
	})
}

// ApplyPortfolio records a snapshot pushed over the portfolio channel. It
// replaces the polled snapshot until the next successful poll.
func (d *Dashboard) ApplyPortfolio(snap *models.PortfolioSnapshot) {
	if snap == nil {
		return
	}
	d.mu.Lock()
	d.pushed = snap
	d.pushedAt = time.Now()
	d.mu.Unlock()
}

// View assembles the current dashboard state.
func (d *Dashboard) View() *DashboardView {
	v := &DashboardView{Banners: []Banner{}}
	if d.session != nil {
		v.User = d.session.User()
		v.Premium = v.User.IsPremium()
	}

	pr := d.portfolio.Latest()
	v.Portfolio = pr.Value
	d.mu.RLock()
	if d.pushed != nil && d.pushedAt.After(pr.UpdatedAt) {
		v.Portfolio = d.pushed
	}
	d.mu.RUnlock()
	v.Banners = appendBanner(v.Banners, "portfolio", pr.Err)

	sr := d.stats.Latest()
	v.Stats = sr.Value
	v.Banners = appendBanner(v.Banners, "stats", sr.Err)

	gr := d.signals.Latest()
	v.Signals = d.markFollowed(gr.Value)
	v.Banners = appendBanner(v.Banners, "signals", gr.Err)

	br := d.board.Latest()
	v.Board = br.Value
	v.Banners = appendBanner(v.Banners, "markets", br.Err)
	return v
}

func (d *Dashboard) markFollowed(in []*models.Signal) []*models.Signal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*models.Signal, 0, len(in))
	for _, s := range in {
		if s == nil {
			continue
		}
		c := *s
		c.Followed = d.followed[s.ID]
		out = append(out, &c)
	}
	return out
}

// appendBanner turns a poll error into a banner. An expired session is
// handled centrally and never shown as a banner.
func appendBanner(banners []Banner, resource string, err error) []Banner {
	if err == nil || errors.Is(err, pkghttp.ErrAuthExpired) {
		return banners
	}
	b := Banner{Resource: resource, Code: pkghttp.CodeOf(err), Message: err.Error()}
	var appErr *pkghttp.AppError
	if errors.As(err, &appErr) {
		b.Message = appErr.Message
	}
	if b.Code == "" {
		b.Code = pkghttp.CodeServer
	}
	return append(banners, b)
}

// Follow marks a signal as followed once the backend accepts it.
func (d *Dashboard) Follow(ctx context.Context, id int64) error {
	if err := d.requireAuth(); err != nil {
		return err
	}
	if _, err := d.backend.FollowSignal(ctx, id); err != nil {
		return err
	}
	d.mu.Lock()
	d.followed[id] = true
	d.mu.Unlock()
	return nil
}

// Followed lists followed signal ids in ascending order.
func (d *Dashboard) Followed() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]int64, 0, len(d.followed))
	for id := range d.followed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Trade places an order.
func (d *Dashboard) Trade(ctx context.Context, req models.TradeRequest) (*models.TradeResult, error) {
	if err := d.requireAuth(); err != nil {
		return nil, err
	}
	return d.backend.Trade(ctx, req)
}

// Deposit credits the cash balance.
func (d *Dashboard) Deposit(ctx context.Context, req models.DepositRequest) (*models.Transaction, error) {
	if err := d.requireAuth(); err != nil {
		return nil, err
	}
	return d.backend.Deposit(ctx, req)
}

// Withdraw debits the cash balance.
func (d *Dashboard) Withdraw(ctx context.Context, req models.WithdrawRequest) (*models.Transaction, error) {
	if err := d.requireAuth(); err != nil {
		return nil, err
	}
	return d.backend.Withdraw(ctx, req)
}
