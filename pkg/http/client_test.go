package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokens struct {
	mu          sync.Mutex
	access      string
	refresh     string
	invalidated int
	cause       error
}

func (m *memTokens) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

func (m *memTokens) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

func (m *memTokens) UpdateTokens(_ context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	if refresh != "" {
		m.refresh = refresh
	}
	return nil
}

func (m *memTokens) Invalidate(_ context.Context, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
	m.invalidated++
	m.cause = cause
}

func (m *memTokens) invalidations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidated
}

// backend accepts "Bearer fresh" and rotates "old" via /auth/refresh.
type backend struct {
	dataCalls    atomic.Int32
	refreshCalls atomic.Int32
	refreshDelay time.Duration
	refreshFails bool
	alwaysDeny   bool
	seenTokens   chan string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		time.Sleep(b.refreshDelay)
		if b.refreshFails || r.URL.Query().Get("refresh_token") != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid refresh token"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "fresh",
			"refresh_token": "r2",
			"token_type":    "bearer",
		})
	})
	mux.HandleFunc("/api/v1/portfolio", func(w http.ResponseWriter, r *http.Request) {
		b.dataCalls.Add(1)
		if b.seenTokens != nil {
			b.seenTokens <- r.Header.Get("Authorization")
		}
		if b.alwaysDeny || r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"total_value_usd": 10}`)
	})
	return mux
}

func newTestClient(t *testing.T, b *backend, tokens TokenSource, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithBaseURL(srv.URL + "/api/v1"), WithTokenSource(tokens)}, opts...)
	return NewClient(opts...)
}

func TestClientRefreshesOnceAndReplaysWithNewToken(t *testing.T) {
	b := &backend{seenTokens: make(chan string, 4)}
	tokens := &memTokens{access: "old", refresh: "r1"}
	c := newTestClient(t, b, tokens)

	var out map[string]float64
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/portfolio"}, &out)
	require.NoError(t, err)

	assert.Equal(t, float64(10), out["total_value_usd"])
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, int32(2), b.dataCalls.Load())
	assert.Equal(t, "Bearer old", <-b.seenTokens)
	assert.Equal(t, "Bearer fresh", <-b.seenTokens)
	assert.Equal(t, "r2", tokens.RefreshToken())

	// Later requests carry the rotated token and need no refresh.
	require.NoError(t, c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/portfolio"}, nil))
	assert.Equal(t, "Bearer fresh", <-b.seenTokens)
	assert.Equal(t, int32(1), b.refreshCalls.Load())
}

func TestClientSecond401ForcesLogout(t *testing.T) {
	b := &backend{alwaysDeny: true}
	tokens := &memTokens{access: "old", refresh: "r1"}
	c := newTestClient(t, b, tokens)

	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/portfolio"}, nil)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrAuthExpired))
	assert.Equal(t, int32(2), b.dataCalls.Load(), "request replayed more than once")
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, 1, tokens.invalidations())
	assert.Empty(t, tokens.AccessToken())
}

func TestClientWithoutRefreshTokenLogsOut(t *testing.T) {
	b := &backend{}
	tokens := &memTokens{access: "old"}
	c := newTestClient(t, b, tokens)

	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/portfolio"}, nil)
	assert.ErrorIs(t, err, ErrAuthExpired)
	assert.Equal(t, int32(0), b.refreshCalls.Load())
	assert.Equal(t, int32(1), b.dataCalls.Load())
	assert.Equal(t, 1, tokens.invalidations())
}

type logoutCounter struct{ logouts atomic.Int32 }

func (o *logoutCounter) ObserveRequest(string, string, int, time.Duration) {}
func (o *logoutCounter) ObserveRefresh(string)                             {}
func (o *logoutCounter) ObserveForcedLogout()                              { o.logouts.Add(1) }

func TestClientLate401AfterLogoutDoesNotInvalidateAgain(t *testing.T) {
	tokens := &memTokens{access: "old"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The session ends elsewhere while this request is in flight.
		tokens.Invalidate(r.Context(), errors.New("ended elsewhere"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	obs := &logoutCounter{}
	c := NewClient(WithBaseURL(srv.URL), WithTokenSource(tokens), WithObserver(obs))

	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/portfolio"}, nil)
	assert.ErrorIs(t, err, ErrAuthExpired)
	assert.Equal(t, 1, tokens.invalidations())
	assert.Zero(t, obs.logouts.Load())
}

func TestClientFailedRefreshLogsOut(t *testing.T) {
	b := &backend{refreshFails: true}
	tokens := &memTokens{access: "old", refresh: "r1"}
	c := newTestClient(t, b, tokens)

	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/portfolio"}, nil)
	assert.ErrorIs(t, err, ErrAuthExpired)
	assert.Equal(t, int32(1), b.dataCalls.Load())
	assert.Equal(t, 1, tokens.invalidations())
}

func TestClientCoalescesConcurrentRefreshes(t *testing.T) {
	b := &backend{refreshDelay: 50 * time.Millisecond}
	tokens := &memTokens{access: "old", refresh: "r1"}
	c := newTestClient(t, b, tokens)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/portfolio"}, nil)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), b.refreshCalls.Load())
	assert.Equal(t, 0, tokens.invalidations())
}

func TestClientUnauthenticated401IsInvalidCredentials(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, ContentTypeForm, r.Header.Get("Content-Type"))
		assert.Equal(t, "ama", r.PostForm.Get("username"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Incorrect username or password"}`)
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tokens := &memTokens{access: "old", refresh: "r1"}
	c := NewClient(WithBaseURL(srv.URL+"/api/v1"), WithTokenSource(tokens))

	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:   MethodPost,
		URL:      "/auth/login",
		Headers:  map[string]string{"Content-Type": ContentTypeForm},
		Body:     map[string]string{"username": "ama", "password": "pw"},
		SkipAuth: true,
	}, nil)

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, int32(0), refreshCalls.Load())
	assert.Equal(t, 0, tokens.invalidations())
}

func TestClientClassifiesStatuses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/invalid", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"loc":["body","quantity"],"msg":"must be greater than 0","type":"value_error"}]}`)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	ctx := context.Background()

	err := c.SendAndParse(ctx, &RequestOptions{Method: MethodGet, URL: "/boom"}, nil)
	assert.ErrorIs(t, err, ErrServer)

	err = c.SendAndParse(ctx, &RequestOptions{Method: MethodPost, URL: "/invalid", Body: map[string]int{"quantity": 0}}, nil)
	require.ErrorIs(t, err, ErrValidation)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "quantity", appErr.Field)
	assert.Equal(t, "must be greater than 0", appErr.Message)

	err = c.SendAndParse(ctx, &RequestOptions{Method: MethodGet, URL: "/slow"}, nil)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClientStalledBodyIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total_value":`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(100*time.Millisecond))
	var out map[string]interface{}
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/portfolio"}, &out)
	require.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, CodeNetwork, CodeOf(err))
}

func TestDecodeErrorClassification(t *testing.T) {
	var syntaxErr error = &json.SyntaxError{}
	assert.Equal(t, CodeServer, DecodeError(syntaxErr).Code)
	assert.Equal(t, CodeServer, DecodeError(json.Unmarshal([]byte(`{"a":"x"}`), &struct{ A int }{})).Code)
	assert.Equal(t, CodeNetwork, DecodeError(io.ErrUnexpectedEOF).Code)
	assert.Equal(t, CodeNetwork, DecodeError(context.DeadlineExceeded).Code)
}

func TestClientUnreachableIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(WithBaseURL(url))
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/x"}, nil)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, CodeNetwork, CodeOf(err))
}

func TestClientSetsRequestID(t *testing.T) {
	ids := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get(HeaderRequestID)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	require.NoError(t, c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/"}, nil))
	assert.Len(t, <-ids, 36)
}

func TestParseDetail(t *testing.T) {
	field, msg := ParseDetail([]byte(`{"detail":"Insufficient balance"}`))
	assert.Empty(t, field)
	assert.Equal(t, "Insufficient balance", msg)

	field, msg = ParseDetail([]byte(`{"detail":[{"loc":["body","symbol"],"msg":"too short"},{"loc":["body","action"],"msg":"bad"}]}`))
	assert.Equal(t, "symbol", field)
	assert.Equal(t, "too short; bad", msg)

	_, msg = ParseDetail([]byte("upstream down"))
	assert.Equal(t, "upstream down", msg)
}
