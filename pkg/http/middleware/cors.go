package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig lists the browser origins and methods the local API accepts.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

var defaultCORSHeaders = []string{
	echo.HeaderOrigin,
	echo.HeaderContentType,
	echo.HeaderAccept,
	echo.HeaderAuthorization,
}

// CORS answers preflights and sets the allow headers for listed origins.
// Requests from other origins pass through without CORS headers, so the
// browser blocks the response; their preflights are refused outright.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(cfg.AllowOrigins))
	wildcard := false
	for _, o := range cfg.AllowOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	}
	headers := cfg.AllowHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	allowMethods := strings.Join(append(append([]string{}, methods...), http.MethodOptions), ", ")
	allowHeaders := strings.Join(headers, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			origin := req.Header.Get(echo.HeaderOrigin)
			if origin == "" {
				return next(c)
			}

			res := c.Response().Header()
			res.Add(echo.HeaderVary, echo.HeaderOrigin)
			preflight := req.Method == http.MethodOptions && req.Header.Get(echo.HeaderAccessControlRequestMethod) != ""

			if !wildcard && !allowed[origin] {
				if preflight {
					return c.NoContent(http.StatusForbidden)
				}
				return next(c)
			}

			res.Set(echo.HeaderAccessControlAllowOrigin, origin)
			if !preflight {
				return next(c)
			}
			res.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
			res.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
			return c.NoContent(http.StatusNoContent)
		}
	}
}
