package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"LeoneAI/internal/domain/models"
	"LeoneAI/internal/service/ratelimit"
	"LeoneAI/internal/usecase"
	pkghttp "LeoneAI/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status   int                `json:"status"`
	Message  string             `json:"message"`
	Data     json.RawMessage    `json:"data"`
	Banners  []pkghttp.AppError `json:"banners"`
	Redirect string             `json:"redirect"`
}

func serve(t *testing.T, h pkghttp.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	return do(t, e, method, target, body)
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

type fakeSession struct {
	mu        sync.Mutex
	user      *models.User
	loginErr  error
	logins    int
	loggedOut bool
}

func (f *fakeSession) Login(_ context.Context, username, _ string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.user = &models.User{ID: 1, Username: username, PlanType: models.PlanPremium}
	return f.user, nil
}

func (f *fakeSession) Register(context.Context, models.RegisterRequest) error { return nil }

func (f *fakeSession) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user, f.loggedOut = nil, true
	return nil
}

func (f *fakeSession) UpdateUser(_ context.Context, p models.UserPatch) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return nil, pkghttp.AuthExpiredError(errors.New("not logged in"))
	}
	if p.FullName != nil {
		f.user.FullName = *p.FullName
	}
	return f.user, nil
}

func (f *fakeSession) User() *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeSession) IsAuthenticated() bool { return f.User() != nil }

func (f *fakeSession) IsSuperuser() bool {
	u := f.User()
	return u != nil && u.IsSuperuser
}

func (f *fakeSession) IsPremium() bool { return f.User().IsPremium() }

type fakeDashboard struct {
	trades   []models.TradeRequest
	tradeErr error
	followed []int64
}

func (f *fakeDashboard) View() *usecase.DashboardView {
	return &usecase.DashboardView{Banners: []usecase.Banner{{Resource: "stats", Code: pkghttp.CodeServer, Message: "down"}}}
}

func (f *fakeDashboard) Quote(_ context.Context, symbol string) (*models.PriceQuote, error) {
	return &models.PriceQuote{Symbol: symbol, Price: decimal.NewFromInt(10)}, nil
}

func (f *fakeDashboard) Follow(_ context.Context, id int64) error {
	f.followed = append(f.followed, id)
	return nil
}

func (f *fakeDashboard) Followed() []int64 { return f.followed }

func (f *fakeDashboard) Trade(_ context.Context, req models.TradeRequest) (*models.TradeResult, error) {
	if f.tradeErr != nil {
		return nil, f.tradeErr
	}
	f.trades = append(f.trades, req)
	return &models.TradeResult{ID: 7, Symbol: req.Symbol}, nil
}

func (f *fakeDashboard) Deposit(context.Context, models.DepositRequest) (*models.Transaction, error) {
	return &models.Transaction{Success: true}, nil
}

func (f *fakeDashboard) Withdraw(context.Context, models.WithdrawRequest) (*models.Transaction, error) {
	return &models.Transaction{Success: true}, nil
}

type fakeFeeds struct{}

func (fakeFeeds) IsConnected() bool { return true }
func (fakeFeeds) States() map[string]string {
	return map[string]string{"BTC-USD": "connected"}
}

func TestHealth(t *testing.T) {
	rec, _ := serve(t, NewRouter(fakeFeeds{}), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["feed_connected"])
}

func TestSessionLogin(t *testing.T) {
	s := &fakeSession{}
	h := NewSessionHandler(s, nil, nil)

	rec, env := serve(t, h, http.MethodPost, "/api/session/login", `{"username":"aminata","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var view sessionView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.True(t, view.Authenticated)
	assert.True(t, view.Premium)
	assert.Equal(t, "aminata", view.User.Username)

	rec, env = serve(t, h, http.MethodPost, "/api/session/login", `{"username":"aminata"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Equal(t, 1, s.logins)
}

func TestSessionLoginRejected(t *testing.T) {
	s := &fakeSession{loginErr: pkghttp.InvalidCredentialsError()}
	rec, env := serve(t, NewSessionHandler(s, nil, nil), http.MethodPost, "/api/session/login", `{"username":"a","password":"b"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Len(t, env.Banners, 1)
	assert.Equal(t, pkghttp.CodeInvalidCredentials, env.Banners[0].Code)
	assert.Empty(t, env.Redirect)
}

func TestSessionLoginRateLimited(t *testing.T) {
	s := &fakeSession{loginErr: pkghttp.InvalidCredentialsError()}
	e := echo.New()
	NewSessionHandler(s, ratelimit.New(), nil).RegisterRoutes(e)

	for i := 0; i < 5; i++ {
		rec, _ := do(t, e, http.MethodPost, "/api/session/login", `{"username":"a","password":"b"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, _ := do(t, e, http.MethodPost, "/api/session/login", `{"username":"a","password":"b"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 5, s.logins)
}

func TestSessionUpdateUserRequiresLogin(t *testing.T) {
	rec, env := serve(t, NewSessionHandler(&fakeSession{}, nil, nil), http.MethodPatch, "/api/session/user", `{"full_name":"A K"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, pkghttp.LoginPath, env.Redirect)
}

func TestSessionLogout(t *testing.T) {
	s := &fakeSession{user: &models.User{Username: "a"}}
	rec, _ := serve(t, NewSessionHandler(s, nil, nil), http.MethodPost, "/api/session/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, s.loggedOut)
	assert.False(t, s.IsAuthenticated())
}

func TestDashboardRequiresSession(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboard{}, &fakeSession{}, nil, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/dashboard"},
		{http.MethodPost, "/api/trade"},
		{http.MethodPost, "/api/signals/3/follow"},
	} {
		rec, env := serve(t, h, tc.method, tc.path, `{}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
		assert.Equal(t, pkghttp.LoginPath, env.Redirect, tc.path)
	}
}

func TestDashboardView(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboard{}, &fakeSession{user: &models.User{Username: "a"}}, nil, nil)
	rec, env := serve(t, h, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view usecase.DashboardView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Banners, 1)
	assert.Equal(t, "stats", view.Banners[0].Resource)
}

func TestTradeValidation(t *testing.T) {
	dash := &fakeDashboard{}
	h := NewDashboardHandler(dash, &fakeSession{user: &models.User{Username: "a"}}, nil, nil)

	rec, env := serve(t, h, http.MethodPost, "/api/trade", `{"symbol":"btc","action":"BUY","quantity":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var verrs []pkghttp.ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &verrs))
	require.NotEmpty(t, verrs)
	assert.Equal(t, "symbol", verrs[0].Field)
	assert.Equal(t, "ERR_SYMBOL", verrs[0].Code)

	rec, _ = serve(t, h, http.MethodPost, "/api/trade", `{"symbol":"BTC-USD","action":"HOLD","quantity":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, dash.trades)

	rec, _ = serve(t, h, http.MethodPost, "/api/trade", `{"symbol":"BTC-USD","action":"BUY","quantity":"0.5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, dash.trades, 1)
	assert.Equal(t, models.OrderMarket, dash.trades[0].OrderType)
}

func TestTradeAuthExpiredRedirects(t *testing.T) {
	dash := &fakeDashboard{tradeErr: pkghttp.AuthExpiredError(errors.New("refresh rejected"))}
	h := NewDashboardHandler(dash, &fakeSession{user: &models.User{Username: "a"}}, nil, nil)

	rec, env := serve(t, h, http.MethodPost, "/api/trade", `{"symbol":"BTC-USD","action":"SELL","quantity":"2"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, pkghttp.LoginPath, env.Redirect)
	require.Len(t, env.Banners, 1)
	assert.Equal(t, pkghttp.CodeAuthExpired, env.Banners[0].Code)
}

func TestFollow(t *testing.T) {
	dash := &fakeDashboard{}
	h := NewDashboardHandler(dash, &fakeSession{user: &models.User{Username: "a"}}, nil, nil)

	rec, _ := serve(t, h, http.MethodPost, "/api/signals/abc/follow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, h, http.MethodPost, "/api/signals/12/follow", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{12}, dash.followed)
}

type fakeSettings struct {
	current models.Settings
	saves   int
}

func (f *fakeSettings) Get(context.Context) (models.Settings, error) { return f.current, nil }

func (f *fakeSettings) Save(ctx context.Context, s models.Settings) error {
	if err := pkghttp.ValidateStruct(ctx, &s); err != nil {
		return err
	}
	f.current = s
	f.saves++
	return nil
}

func TestSettingsPutMerges(t *testing.T) {
	store := &fakeSettings{current: models.Settings{Currency: models.CurrencySLL, EmailAlerts: true, PushNotifications: true}}
	h := NewSettingsHandler(store, nil)

	rec, _ := serve(t, h, http.MethodPut, "/api/settings", `{"currency":"USD","emailAlerts":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CurrencyUSD, store.current.Currency)
	assert.False(t, store.current.EmailAlerts)
	assert.True(t, store.current.PushNotifications)

	rec, env := serve(t, h, http.MethodPut, "/api/settings", `{"currency":"EUR"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Len(t, env.Banners, 1)
	assert.Equal(t, pkghttp.CodeValidation, env.Banners[0].Code)
	assert.Equal(t, 1, store.saves)
}

type fakeAdmin struct{ err error }

func (f fakeAdmin) Dashboard(context.Context) (*models.AdminDashboard, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.AdminDashboard{}, nil
}

func (f fakeAdmin) Users(_ context.Context, p models.Page) ([]*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*models.User{{ID: int64(p.Limit)}}, nil
}

func (f fakeAdmin) CreateUser(_ context.Context, r models.AdminUserCreate) (*models.User, error) {
	return &models.User{Username: r.Username}, f.err
}

func (f fakeAdmin) UpdateUser(_ context.Context, id int64, _ models.AdminUserUpdate) (*models.User, error) {
	return &models.User{ID: id}, f.err
}

func (f fakeAdmin) DeleteUser(context.Context, int64) error { return f.err }

func (f fakeAdmin) Trades(context.Context, models.Page) ([]*models.AdminTrade, error) {
	return nil, f.err
}

func TestAdminForbidden(t *testing.T) {
	h := NewAdminHandler(fakeAdmin{err: pkghttp.ForbiddenError("admin access required")}, nil)
	rec, env := serve(t, h, http.MethodGet, "/api/admin/dashboard", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.Len(t, env.Banners, 1)
	assert.Equal(t, pkghttp.CodeForbidden, env.Banners[0].Code)
}

func TestAdminUsersPaging(t *testing.T) {
	h := NewAdminHandler(fakeAdmin{}, nil)

	rec, env := serve(t, h, http.MethodGet, "/api/admin/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows []*models.User `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 1)
	assert.Equal(t, int64(50), list.Rows[0].ID)

	rec, _ = serve(t, h, http.MethodGet, "/api/admin/users?limit=900", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, h, http.MethodDelete, "/api/admin/users/x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = serve(t, h, http.MethodDelete, "/api/admin/users/4", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

type fakeTicks struct {
	rows []*models.MarketTick
}

func (f fakeTicks) Latest() []*models.MarketTick { return f.rows }

func (f fakeTicks) Query(_ context.Context, symbol string, _, _ time.Time, limit int) ([]*models.MarketTick, error) {
	out := []*models.MarketTick{}
	for _, t := range f.rows {
		if t.Symbol == symbol && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeCandles struct{ got usecase.GetCandlesParams }

func (f *fakeCandles) GetCandles(_ context.Context, p usecase.GetCandlesParams) (*usecase.GetCandlesResult, error) {
	f.got = p
	return &usecase.GetCandlesResult{Symbol: p.Symbol}, nil
}

type fakeCoins struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeCoins) TopCoins(_ context.Context, order string, limit int) ([]*models.CoinMarket, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []*models.CoinMarket{{ID: order, Symbol: "BTC"}}, nil
}

func (f *fakeCoins) Trending(context.Context) ([]*models.CoinMarket, error) {
	return []*models.CoinMarket{{ID: "trend"}}, nil
}

func (f *fakeCoins) Board(context.Context) (*models.MarketBoard, error) {
	return &models.MarketBoard{Source: "coingecko"}, nil
}

var testOrders = map[string]string{ListTop: "market_cap_desc", ListGainers: "gainers", ListVolume: "volume_desc"}

func TestMarketTicks(t *testing.T) {
	ticks := fakeTicks{rows: []*models.MarketTick{{Symbol: "BTC-USD"}, {Symbol: "ETH-USD"}, {Symbol: "BTC-USD"}}}
	h := NewMarketHandler(ticks, &fakeCandles{}, nil, nil, 0, nil)

	rec, env := serve(t, h, http.MethodGet, "/api/ticks/btc-usd?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []*models.MarketTick `json:"rows"`
		Total int64                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(1), list.Total)

	rec, _ = serve(t, h, http.MethodGet, "/api/ticks/BTC-USD?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, h, http.MethodGet, "/api/markets/public", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarketCandles(t *testing.T) {
	candles := &fakeCandles{}
	h := NewMarketHandler(fakeTicks{}, candles, nil, nil, 0, nil)

	rec, _ := serve(t, h, http.MethodGet, "/api/candles/ETH-USD?tf=3h", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, h, http.MethodGet, "/api/candles/ETH-USD?tf=5m&limit=20&from=2025-01-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ETH-USD", candles.got.Symbol)
	assert.Equal(t, 20, candles.got.Limit)
	assert.Equal(t, 2025, candles.got.From.Year())
	assert.True(t, candles.got.To.IsZero())
}

func TestMarketPublicListsAreCached(t *testing.T) {
	coins := &fakeCoins{}
	e := echo.New()
	NewMarketHandler(fakeTicks{}, &fakeCandles{}, coins, testOrders, time.Minute, nil).RegisterRoutes(e)

	for i := 0; i < 3; i++ {
		rec, _ := do(t, e, http.MethodGet, "/api/markets/public?list=gainers&limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, coins.calls)

	rec, _ := do(t, e, http.MethodGet, "/api/markets/public?list=volume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, coins.calls)

	rec, _ = do(t, e, http.MethodGet, "/api/markets/public?list=trending", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/markets/public?list=losers", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketPublicUpstreamFailure(t *testing.T) {
	coins := &fakeCoins{err: pkghttp.ServerError(http.StatusBadGateway, "market data provider unavailable")}
	rec, env := serve(t, NewMarketHandler(fakeTicks{}, &fakeCandles{}, coins, testOrders, time.Minute, nil), http.MethodGet, "/api/markets/public", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.Len(t, env.Banners, 1)
	assert.Equal(t, pkghttp.CodeServer, env.Banners[0].Code)
}
