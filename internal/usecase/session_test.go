package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"LeoneAI/internal/domain/models"
	drepo "LeoneAI/internal/domain/repository"
	"LeoneAI/internal/repository"
	"LeoneAI/internal/service/backend"
	"LeoneAI/pkg/cache"
	pkghttp "LeoneAI/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) drepo.SessionStore {
	t.Helper()
	s := repository.NewCacheSessionStore(cache.NewMemoryCache(), "memory")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type fakeAuth struct {
	login    *models.LoginResponse
	loginErr error
	me       *models.User
	meCalls  int
	regErr   error
}

func (f *fakeAuth) Login(context.Context, models.Credentials) (*models.LoginResponse, error) {
	return f.login, f.loginErr
}

func (f *fakeAuth) Register(context.Context, models.RegisterRequest) (*models.User, error) {
	return nil, f.regErr
}

func (f *fakeAuth) MeWithToken(_ context.Context, token string) (*models.User, error) {
	f.meCalls++
	if f.me == nil {
		return nil, pkghttp.ServerError(http.StatusBadGateway, "")
	}
	return f.me, nil
}

func assertStoreEmpty(t *testing.T, store drepo.SessionStore) {
	t.Helper()
	for _, k := range drepo.SessionKeys {
		_, err := store.Get(context.Background(), k)
		assert.ErrorIs(t, err, drepo.ErrNotFound, "key %s still persisted", k)
	}
}

func TestLoginFreeUserIsAuthenticatedNotPremium(t *testing.T) {
	store := newMemoryStore(t)
	auth := &fakeAuth{login: &models.LoginResponse{AccessToken: "abc", User: &models.User{ID: 1, PlanType: models.PlanFree}}}
	m := NewSessionManager(store, auth, nil)

	u, err := m.Login(context.Background(), "ama", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.True(t, m.IsAuthenticated())
	assert.False(t, m.IsPremium())
	assert.False(t, m.IsSuperuser())
	assert.Equal(t, 0, auth.meCalls)

	tok, err := store.Get(context.Background(), drepo.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(tok))
	_, err = store.Get(context.Background(), drepo.KeyRefreshToken)
	assert.ErrorIs(t, err, drepo.ErrNotFound)
}

func TestLoginWithoutUserFetchesMeOnce(t *testing.T) {
	auth := &fakeAuth{
		login: &models.LoginResponse{AccessToken: "abc", RefreshToken: "r1"},
		me:    &models.User{ID: 2, Username: "kofi", PlanType: models.PlanPremium, IsSuperuser: true},
	}
	m := NewSessionManager(newMemoryStore(t), auth, nil)

	u, err := m.Login(context.Background(), "kofi", "pw")
	require.NoError(t, err)
	assert.Equal(t, "kofi", u.Username)
	assert.Equal(t, 1, auth.meCalls)
	assert.True(t, m.IsPremium())
	assert.True(t, m.IsSuperuser())
	assert.Equal(t, "r1", m.RefreshToken())
}

func TestLoginFailureLeavesNoSession(t *testing.T) {
	store := newMemoryStore(t)
	auth := &fakeAuth{loginErr: pkghttp.InvalidCredentialsError()}
	m := NewSessionManager(store, auth, nil)

	_, err := m.Login(context.Background(), "ama", "bad")
	assert.ErrorIs(t, err, pkghttp.ErrInvalidCredentials)
	assert.False(t, m.IsAuthenticated())
	assertStoreEmpty(t, store)

	auth = &fakeAuth{login: &models.LoginResponse{AccessToken: "abc"}}
	m = NewSessionManager(store, auth, nil)
	_, err = m.Login(context.Background(), "ama", "pw")
	assert.ErrorIs(t, err, pkghttp.ErrServer)
	assert.Equal(t, 1, auth.meCalls)
	assert.False(t, m.IsAuthenticated())
	assertStoreEmpty(t, store)
}

func TestRegisterDoesNotLogIn(t *testing.T) {
	m := NewSessionManager(newMemoryStore(t), &fakeAuth{}, nil)
	require.NoError(t, m.Register(context.Background(), models.RegisterRequest{Username: "ama"}))
	assert.False(t, m.IsAuthenticated())

	m = NewSessionManager(newMemoryStore(t), &fakeAuth{regErr: pkghttp.ValidationFailedError("email", "taken", 400)}, nil)
	assert.ErrorIs(t, m.Register(context.Background(), models.RegisterRequest{}), pkghttp.ErrValidation)
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := newMemoryStore(t)
	m := NewSessionManager(store, &fakeAuth{login: &models.LoginResponse{AccessToken: "abc", RefreshToken: "r", User: &models.User{ID: 1}}}, nil)
	ctx := context.Background()

	_, err := m.Login(ctx, "ama", "pw")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))
	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.User())
	assertStoreEmpty(t, store)
}

func TestUpdateUserMergesAndPersists(t *testing.T) {
	store := newMemoryStore(t)
	m := NewSessionManager(store, &fakeAuth{login: &models.LoginResponse{AccessToken: "abc", User: &models.User{ID: 1, Username: "ama", PlanType: models.PlanFree}}}, nil)
	ctx := context.Background()

	_, err := m.UpdateUser(ctx, models.UserPatch{})
	assert.ErrorIs(t, err, pkghttp.ErrAuthExpired)

	_, err = m.Login(ctx, "ama", "pw")
	require.NoError(t, err)

	plan := models.PlanPro
	name := "Ama Sesay"
	u, err := m.UpdateUser(ctx, models.UserPatch{PlanType: &plan, FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "ama", u.Username)
	assert.True(t, m.IsPremium())

	raw, err := store.Get(ctx, drepo.KeyUser)
	require.NoError(t, err)
	var persisted models.User
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, "Ama Sesay", persisted.FullName)
	assert.Equal(t, models.PlanPro, persisted.PlanType)
}

func TestRestore(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, drepo.KeyAccessToken, []byte("abc")))
	require.NoError(t, store.Set(ctx, drepo.KeyRefreshToken, []byte("r1")))
	require.NoError(t, store.Set(ctx, drepo.KeyUser, []byte(`{"id":5,"username":"ama","plan_type":"PREMIUM"}`)))

	m := NewSessionManager(store, &fakeAuth{}, nil)
	require.NoError(t, m.Restore(ctx))
	assert.True(t, m.IsAuthenticated())
	assert.True(t, m.IsPremium())
	assert.Equal(t, "r1", m.RefreshToken())

	require.NoError(t, store.Set(ctx, drepo.KeyUser, []byte(`{not json`)))
	m = NewSessionManager(store, &fakeAuth{}, nil)
	require.NoError(t, m.Restore(ctx))
	assert.False(t, m.IsAuthenticated())
	assertStoreEmpty(t, store)
}

func TestInvalidateSignalsExpiry(t *testing.T) {
	store := newMemoryStore(t)
	m := NewSessionManager(store, &fakeAuth{login: &models.LoginResponse{AccessToken: "abc", User: &models.User{ID: 1}}}, nil)
	ctx := context.Background()
	_, err := m.Login(ctx, "ama", "pw")
	require.NoError(t, err)

	cause := pkghttp.AuthExpiredError(errors.New("refresh rejected"))
	m.Invalidate(ctx, cause)
	m.Invalidate(ctx, cause)

	got := <-m.Expired()
	assert.ErrorIs(t, got, pkghttp.ErrAuthExpired)
	assert.False(t, m.IsAuthenticated())
	assertStoreEmpty(t, store)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	m.Invalidate(ctx, cause)
	_, open := <-m.Expired()
	assert.False(t, open)
}

// Full path through the HTTP client: login, a 401 that triggers one refresh,
// then logout. Nothing may remain persisted.
func TestLoginRefreshLogoutLeavesNothingPersisted(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"access_token":"old","refresh_token":"r1","token_type":"bearer","user":{"id":1,"username":"ama","plan_type":"FREE"}}`)
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		_, _ = io.WriteString(w, `{"access_token":"fresh","refresh_token":"r2","token_type":"bearer"}`)
	})
	mux.HandleFunc("/api/v1/portfolio/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"total_value":"100","daily_change":1.2,"total_profit":"5","profit_percent":5}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemoryStore(t)
	client := pkghttp.NewClient(pkghttp.WithBaseURL(srv.URL + "/api/v1"))
	api := backend.NewService(client)
	m := NewSessionManager(store, api, nil)
	client.SetTokenSource(m)
	ctx := context.Background()

	_, err := m.Login(ctx, "ama", "pw")
	require.NoError(t, err)

	stats, err := api.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", stats.TotalValue.String())
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, "fresh", m.AccessToken())

	persisted, err := store.Get(ctx, drepo.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "r2", string(persisted))

	require.NoError(t, m.Logout(ctx))
	assertStoreEmpty(t, store)
}
