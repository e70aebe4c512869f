// Package feed streams live market ticks over WebSocket. Each subscription
// is an independent Disconnected -> Connecting -> Connected state machine
// that reconnects after a fixed delay until it is closed.
package feed

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"LeoneAI/internal/domain/models"
	applogger "LeoneAI/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	defaultReconnectDelay = 5 * time.Second
	defaultPingInterval   = 30 * time.Second
	defaultBufferSize     = 256
)

// Dialer opens WebSocket connections; *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Observer receives feed telemetry.
type Observer interface {
	ObserveFeedState(channel, state string)
	ObserveReconnect(channel string)
	ObserveTick(symbol string)
	ObserveParseError(channel string)
}

// Option configures Client.
type Option func(*Client)

// Client creates subscriptions against the backend socket endpoints.
type Client struct {
	baseURL        string // ws(s)://host
	prefix         string // REST prefix, e.g. /api/v1
	dialer         Dialer
	reconnectDelay time.Duration
	pingInterval   time.Duration
	bufferSize     int
	token          func() string
	observer       Observer
	log            *applogger.Logger
}

// NewClient builds a feed client for the given ws(s) base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		prefix:         "/api/v1",
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		reconnectDelay: defaultReconnectDelay,
		pingInterval:   defaultPingInterval,
		bufferSize:     defaultBufferSize,
		log:            applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe opens the per-symbol channel /ws/market/{symbol} under the API prefix.
func (c *Client) Subscribe(ctx context.Context, symbol string) *Subscription {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	u := c.baseURL + c.prefix + "/ws/market/" + url.PathEscape(symbol)
	s := c.newSubscription(symbol, u, func(b []byte) ([]*models.MarketTick, error) {
		t, err := decodeSymbolFrame(symbol, b)
		if err != nil {
			return nil, err
		}
		return []*models.MarketTick{t}, nil
	}, nil)
	s.start(ctx)
	return s
}

// SubscribeMany opens one multiplexed /ws/market socket, sends the subscribe
// message on every open and fans market_update frames out as ticks.
func (c *Client) SubscribeMany(ctx context.Context, symbols []string) *Subscription {
	want := make(map[string]bool, len(symbols))
	norm := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" && !want[s] {
			want[s] = true
			norm = append(norm, s)
		}
	}
	hello := map[string]interface{}{"type": "subscribe", "symbols": norm}
	s := c.newSubscription("multiplex", c.baseURL+"/ws/market", func(b []byte) ([]*models.MarketTick, error) {
		return decodeMultiplexFrame(want, b)
	}, hello)
	s.start(ctx)
	return s
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			h.Set("Authorization", "Bearer "+tok)
		}
	}
	return h
}

// WithDialer overrides the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithReconnectDelay sets the fixed delay before a reconnect attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithPingInterval sets the keepalive ping period; zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pingInterval = d
	}
}

// WithBufferSize sets the tick channel capacity.
func WithBufferSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithPrefix sets the API prefix for per-symbol and portfolio channels.
func WithPrefix(p string) Option {
	return func(c *Client) {
		c.prefix = "/" + strings.Trim(p, "/")
		if c.prefix == "/" {
			c.prefix = ""
		}
	}
}

// WithToken attaches a bearer header read at every dial.
func WithToken(fn func() string) Option {
	return func(c *Client) {
		c.token = fn
	}
}

// WithObserver sets the telemetry sink.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
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
