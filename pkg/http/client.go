package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"LeoneAI/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
	MethodPatch  = http.MethodPatch

	ContentTypeForm = "application/x-www-form-urlencoded"
	HeaderRequestID = "X-Request-ID"

	defaultTimeout     = 10 * time.Second
	defaultRefreshPath = "/auth/refresh"
)

// TokenSource owns the bearer credentials. The client only reads tokens and
// reports refresh outcomes back; it never stores them itself.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
	UpdateTokens(ctx context.Context, access, refresh string) error
	Invalidate(ctx context.Context, cause error)
}

// Observer receives per-request telemetry.
type Observer interface {
	ObserveRequest(method, path string, status int, d time.Duration)
	ObserveRefresh(result string)
	ObserveForcedLogout()
}

// ClientOption configures HTTPClient.
type ClientOption func(*Client)

// RequestOptions holds HTTP request parameters.
type RequestOptions struct {
	Method      string
	URL         string // absolute, or a path joined onto the base URL
	Headers     map[string]string
	QueryParams map[string][]string
	Body        interface{}
	SkipAuth    bool // no bearer header and no refresh on 401
}

// Client is the backend HTTP client. It attaches the bearer token, refreshes
// once on 401 and replays the original request once with the new token.
type Client struct {
	baseURL     string
	refreshPath string
	timeout     time.Duration
	client      *http.Client
	transport   http.RoundTripper
	tokens      TokenSource
	observer    Observer
	log         *logger.Logger
	refreshes   singleflight.Group
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// NewClient creates a new HTTP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:     defaultTimeout,
		refreshPath: defaultRefreshPath,
		log:         logger.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{Timeout: c.timeout, Transport: c.transport}
	return c
}

// SetTokenSource attaches the credential owner after construction.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends the request with auth handling and returns the final response.
// A 401 triggers at most one refresh and one replay; a second 401 or a
// failed refresh invalidates the session and yields AuthExpired.
func (c *Client) Do(ctx context.Context, opts *RequestOptions) (*http.Response, error) {
	body, err := c.createRequestBody(opts)
	if err != nil {
		return nil, fmt.Errorf("create body: %w", err)
	}

	useAuth := !opts.SkipAuth && c.tokens != nil
	token := ""
	if useAuth {
		token = c.tokens.AccessToken()
	}

	resp, err := c.SendRequest(ctx, opts, body, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !useAuth {
		return resp, nil
	}
	drain(resp)

	fresh, err := c.refresh(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = c.SendRequest(ctx, opts, body, fresh)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		cause := AuthExpiredError(errors.New("request rejected after token refresh"))
		c.invalidate(ctx, cause)
		return nil, cause
	}
	return resp, nil
}

// SendRequest performs a single attempt with the given bearer token.
func (c *Client) SendRequest(ctx context.Context, opts *RequestOptions, body []byte, token string) (*http.Response, error) {
	req, err := c.buildRequest(ctx, opts, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.observe(req, 0, start)
		c.log.Warn("backend request failed",
			logger.String("method", req.Method),
			logger.String("path", req.URL.Path),
			logger.Error(err),
		)
		return nil, NetworkError(err)
	}
	c.observe(req, resp.StatusCode, start)

	return resp, nil
}

// SendAndParse sends request and decodes the response into dest.
// Non-2xx statuses are classified into AppError values.
func (c *Client) SendAndParse(ctx context.Context, opts *RequestOptions, dest interface{}) error {
	resp, err := c.Do(ctx, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ClassifyResponse(resp, opts.SkipAuth)
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	switch v := dest.(type) {
	case *[]byte:
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return NetworkError(fmt.Errorf("read body: %w", err))
		}
		*v = b
	case io.Writer:
		if _, err := io.Copy(v, resp.Body); err != nil {
			return NetworkError(fmt.Errorf("copy body: %w", err))
		}
	default:
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return DecodeError(err)
		}
	}

	return nil
}

// refresh exchanges the stored refresh token for a new access token.
// Concurrent callers holding the same refresh token share one exchange.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	current := c.tokens.AccessToken()
	if current != "" && current != stale {
		return current, nil
	}

	rt := c.tokens.RefreshToken()
	if rt == "" {
		cause := AuthExpiredError(errors.New("no refresh token"))
		if stale != "" && current == "" {
			// Another request already ended this session.
			return "", cause
		}
		c.recordRefresh("missing")
		c.invalidate(ctx, cause)
		return "", cause
	}

	v, err, shared := c.refreshes.Do(rt, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		tok, err := c.exchange(rctx, rt)
		if err != nil {
			cause := AuthExpiredError(err)
			c.recordRefresh("failed")
			c.invalidate(rctx, cause)
			return "", cause
		}
		if err := c.tokens.UpdateTokens(rctx, tok.AccessToken, tok.RefreshToken); err != nil {
			cause := AuthExpiredError(fmt.Errorf("persist tokens: %w", err))
			c.recordRefresh("failed")
			c.invalidate(rctx, cause)
			return "", cause
		}
		c.recordRefresh("ok")
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.log.Debug("joined in-flight token refresh")
	}
	return v.(string), nil
}

func (c *Client) exchange(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	opts := &RequestOptions{
		Method:      MethodPost,
		URL:         c.refreshPath,
		QueryParams: map[string][]string{"refresh_token": {refreshToken}},
		Body:        map[string]string{"refresh_token": refreshToken},
		SkipAuth:    true,
	}
	body, err := c.createRequestBody(opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.SendRequest(ctx, opts, body, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ClassifyResponse(resp, true)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("refresh response carries no access token")
	}
	return &tok, nil
}

func (c *Client) invalidate(ctx context.Context, cause error) {
	c.log.Warn("session invalidated", logger.Error(cause))
	if c.observer != nil {
		c.observer.ObserveForcedLogout()
	}
	c.tokens.Invalidate(ctx, cause)
}

func (c *Client) recordRefresh(result string) {
	if c.observer != nil {
		c.observer.ObserveRefresh(result)
	}
}

func (c *Client) observe(req *http.Request, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(req.Method, req.URL.Path, status, time.Since(start))
	}
}

func (c *Client) buildRequest(ctx context.Context, opts *RequestOptions, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, c.resolve(opts.URL), reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	c.addQueryParams(req, opts.QueryParams)
	c.addHeaders(req, opts.Headers)
	req.Header.Set(HeaderRequestID, uuid.NewString())

	return req, nil
}

func (c *Client) resolve(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(u, "/")
}

// createRequestBody materialises the body once so it can be replayed.
func (c *Client) createRequestBody(opts *RequestOptions) ([]byte, error) {
	if opts.Body == nil {
		return nil, nil
	}

	switch v := opts.Body.(type) {
	case []byte:
		return v, nil
	case *[]byte:
		return *v, nil
	case io.Reader:
		return io.ReadAll(v)
	case string:
		return []byte(v), nil
	case url.Values:
		return []byte(v.Encode()), nil
	default:
		if formData, ok := opts.Body.(map[string]string); ok && opts.Headers["Content-Type"] == ContentTypeForm {
			values := url.Values{}
			for k, v := range formData {
				values.Set(k, v)
			}
			return []byte(values.Encode()), nil
		}

		jsonBody, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return jsonBody, nil
	}
}

func (c *Client) addQueryParams(req *http.Request, params map[string][]string) {
	if len(params) > 0 {
		q := req.URL.Query()
		for key, values := range params {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
}

func (c *Client) addHeaders(req *http.Request, headers map[string]string) {
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if req.Header.Get("Content-Type") == "" && req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithBaseURL sets the prefix for relative request paths.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithRefreshPath sets the token refresh endpoint path.
func WithRefreshPath(path string) ClientOption {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

// WithTokenSource sets the credential owner.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithObserver sets the telemetry sink.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTransport overrides the round tripper.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = rt
	}
}
