package api

import (
	"context"
	"net/http"

	"LeoneAI/internal/domain/models"
	"LeoneAI/internal/service/ratelimit"
	pkghttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Session is the session manager surface exposed over the local API.
type Session interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	Register(ctx context.Context, req models.RegisterRequest) error
	Logout(ctx context.Context) error
	UpdateUser(ctx context.Context, patch models.UserPatch) (*models.User, error)
	User() *models.User
	IsAuthenticated() bool
	IsPremium() bool
}

// SessionHandler serves login, logout and the current user.
type SessionHandler struct {
	session Session
	rl      *ratelimit.Limiter
	log     *applogger.Logger
}

func NewSessionHandler(s Session, rl *ratelimit.Limiter, l *applogger.Logger) *SessionHandler {
	if l == nil {
		l = applogger.Nop()
	}
	if rl == nil {
		rl = ratelimit.New()
	}
	return &SessionHandler{session: s, rl: rl, log: l.Named("api.session")}
}

func (h *SessionHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/session")
	g.GET("", h.Current)
	g.POST("/login", h.Login, RateLimit(h.rl, "login", 5, 0.2))
	g.POST("/register", h.Register, RateLimit(h.rl, "register", 3, 0.1))
	g.POST("/logout", h.Logout)
	g.PATCH("/user", h.UpdateUser)
}

type sessionView struct {
	Authenticated bool         `json:"authenticated"`
	Premium       bool         `json:"premium"`
	User          *models.User `json:"user,omitempty"`
}

func (h *SessionHandler) view() sessionView {
	return sessionView{
		Authenticated: h.session.IsAuthenticated(),
		Premium:       h.session.IsPremium(),
		User:          h.session.User(),
	}
}

func (h *SessionHandler) Current(c echo.Context) error {
	return pkghttp.SuccessResponse(c, h.view())
}

func (h *SessionHandler) Login(c echo.Context) error {
	req := &models.Credentials{}
	if verr := pkghttp.ReadAndValidateRequest(c, req); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	if _, err := h.session.Login(c.Request().Context(), req.Username, req.Password); err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, h.view())
}

func (h *SessionHandler) Register(c echo.Context) error {
	req := &models.RegisterRequest{}
	if verr := pkghttp.ReadAndValidateRequest(c, req); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	if err := h.session.Register(c.Request().Context(), *req); err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.CreatedResponse(c, map[string]string{"username": req.Username})
}

func (h *SessionHandler) Logout(c echo.Context) error {
	if err := h.session.Logout(c.Request().Context()); err != nil {
		h.log.Error("logout failed", applogger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) UpdateUser(c echo.Context) error {
	req := &models.UserPatch{}
	if verr := pkghttp.ReadAndValidateRequest(c, req); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	user, err := h.session.UpdateUser(c.Request().Context(), *req)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, user)
}
