package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct{ access string }

func (s *staticTokens) AccessToken() string                                { return s.access }
func (s *staticTokens) RefreshToken() string                               { return "" }
func (s *staticTokens) UpdateTokens(context.Context, string, string) error { return nil }
func (s *staticTokens) Invalidate(context.Context, error)                  { s.access = "" }

func newService(t *testing.T, mux *http.ServeMux) *Service {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := pkghttp.NewClient(pkghttp.WithBaseURL(srv.URL+"/api/v1"), pkghttp.WithTokenSource(&staticTokens{access: "tok"}))
	return NewService(client)
}

func TestLoginPostsForm(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "ama", r.PostForm.Get("username"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"access_token":"abc","token_type":"bearer","user":{"id":1,"plan_type":"FREE"}}`)
	})
	s := newService(t, mux)

	resp, err := s.Login(context.Background(), models.Credentials{Username: "ama", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.AccessToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, int64(1), resp.User.ID)
}

func TestLoginRejectsMissingFields(t *testing.T) {
	s := newService(t, http.NewServeMux())
	_, err := s.Login(context.Background(), models.Credentials{Username: "ama"})
	require.ErrorIs(t, err, pkghttp.ErrValidation)
}

func TestMeWithTokenUsesExplicitBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":7,"username":"ama","plan_type":"PRO"}`)
	})
	s := newService(t, mux)

	u, err := s.MeWithToken(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.True(t, u.IsPremium())
}

func TestMeWithTokenStalledBodyIsNetworkError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":7,"username":`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	s := NewService(pkghttp.NewClient(pkghttp.WithBaseURL(srv.URL+"/api/v1"), pkghttp.WithTimeout(100*time.Millisecond)))

	_, err := s.MeWithToken(context.Background(), "fresh")
	require.ErrorIs(t, err, pkghttp.ErrNetwork)
	assert.Equal(t, pkghttp.CodeNetwork, pkghttp.CodeOf(err))
}

func TestTradeValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/portfolio/trade", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "MARKET", body["order_type"])
		_, _ = io.WriteString(w, `{"id":3,"symbol":"BTC","action":"BUY","quantity":"0.5","status":"COMPLETED","created_at":"2026-03-01T10:00:00"}`)
	})
	s := newService(t, mux)
	ctx := context.Background()

	_, err := s.Trade(ctx, models.TradeRequest{Symbol: "BTC", Action: "BUY", Quantity: decimal.Zero})
	require.ErrorIs(t, err, pkghttp.ErrValidation)
	assert.Equal(t, "quantity", err.(*pkghttp.AppError).Field)
	assert.Equal(t, int32(0), calls.Load())

	res, err := s.Trade(ctx, models.TradeRequest{Symbol: "BTC", Action: "BUY", Quantity: decimal.RequireFromString("0.5")})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", res.Status)
	assert.Equal(t, 2026, res.CreatedAt.Year())
	assert.Equal(t, int32(1), calls.Load())
}

func TestDepositServerRejectionIsValidation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/portfolio/deposit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Deposit limit exceeded"}`)
	})
	s := newService(t, mux)

	_, err := s.Deposit(context.Background(), models.DepositRequest{AmountSLL: decimal.NewFromInt(100), PaymentMethod: "Orange Money"})
	require.ErrorIs(t, err, pkghttp.ErrValidation)
	assert.Contains(t, err.Error(), "Deposit limit exceeded")
}

func TestSignalsAcceptsEnvelopeAndArray(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/signals", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "BTC", r.URL.Query().Get("symbol"))
		_, _ = io.WriteString(w, `{"count":1,"signals":[{"id":1,"symbol":"BTC","action":"BUY","confidence":140}]}`)
	})
	mux.HandleFunc("/api/v1/signals/recent", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":2,"symbol":"ETH","action":"SELL","confidence":55},null]`)
	})
	s := newService(t, mux)
	ctx := context.Background()

	list, err := s.Signals(ctx, models.SignalFilter{Symbol: "BTC"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, float64(100), list.Signals[0].Confidence)

	recent, err := s.RecentSignals(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, models.ActionSell, recent[0].Action)
}

func TestPortfolioNullHoldingIsServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/portfolio", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total_value_usd":"1","holdings":[null]}`)
	})
	mux.HandleFunc("/api/v1/portfolio/holdings", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[null,{"symbol":"BTC","quantity":"0.5"}]`)
	})
	s := newService(t, mux)
	ctx := context.Background()

	var err error
	require.NotPanics(t, func() { _, err = s.Portfolio(ctx) })
	assert.ErrorIs(t, err, pkghttp.ErrServer)

	holdings, err := s.Holdings(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "BTC", holdings[0].Symbol)
}

func TestPriceBodyErrorIsValidation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/market/prices/NOPE", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"Symbol not found"}`)
	})
	mux.HandleFunc("/api/v1/market/prices/BTC", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"symbol":"BTC","price":64000.5,"change_percent":1.5,"timestamp":"2026-03-01T10:00:00"}`)
	})
	s := newService(t, mux)
	ctx := context.Background()

	_, err := s.Price(ctx, "nope")
	assert.ErrorIs(t, err, pkghttp.ErrValidation)

	q, err := s.Price(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, "64000.5", q.Price.String())
	tick := q.Tick()
	assert.Equal(t, 10, tick.Timestamp.Hour())
}

func TestUpdatePreferencesUsesQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/preferences", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "krio", r.URL.Query().Get("language"))
		assert.Equal(t, "false", r.URL.Query().Get("email_alerts"))
		_, _ = io.WriteString(w, `{"message":"Preferences updated successfully"}`)
	})
	s := newService(t, mux)

	err := s.UpdatePreferences(context.Background(), models.Settings{Currency: models.CurrencySLL, Krio: true})
	require.NoError(t, err)
}

func TestAdminUsersPaging(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/admin/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("skip"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `[{"id":1,"username":"root","is_superuser":true}]`)
	})
	s := newService(t, mux)

	users, err := s.AdminUsers(context.Background(), models.Page{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsSuperuser)
}
