// Package api serves the local JSON API the desktop shell and CLI read from.
package api

import (
	"net/http"
	"time"

	"LeoneAI/internal/service/ratelimit"
	pkghttp "LeoneAI/pkg/http"

	"github.com/labstack/echo/v4"
)

// FeedStatus reports the real-time feed connections.
type FeedStatus interface {
	IsConnected() bool
	States() map[string]string
}

// Router registers every sub-handler plus /health.
type Router struct {
	handlers []pkghttp.Handler
	feeds    FeedStatus
	started  time.Time
}

var _ pkghttp.Handler = (*Router)(nil)

// NewRouter groups handlers under one registration. feeds may be nil.
func NewRouter(feeds FeedStatus, handlers ...pkghttp.Handler) *Router {
	return &Router{handlers: handlers, feeds: feeds, started: time.Now()}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", r.Health)
	for _, h := range r.handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}

// Health reports uptime and per-channel feed state.
func (r *Router) Health(c echo.Context) error {
	body := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(r.started).Round(time.Second).String(),
	}
	if r.feeds != nil {
		body["feed_connected"] = r.feeds.IsConnected()
		body["feeds"] = r.feeds.States()
	}
	return c.JSON(http.StatusOK, body)
}

// RateLimit throttles a route group per client address.
func RateLimit(l *ratelimit.Limiter, name string, capacity, refillPerSec float64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()+":"+name, capacity, refillPerSec) {
				return pkghttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
			}
			return next(c)
		}
	}
}
