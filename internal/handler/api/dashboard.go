package api

import (
	"context"
	"errors"
	"strconv"

	"LeoneAI/internal/domain/models"
	"LeoneAI/internal/service/ratelimit"
	"LeoneAI/internal/usecase"
	pkghttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"
	"LeoneAI/pkg/util"

	"github.com/labstack/echo/v4"
)

// DashboardService is the dashboard use case as seen by the local API.
type DashboardService interface {
	View() *usecase.DashboardView
	Quote(ctx context.Context, symbol string) (*models.PriceQuote, error)
	Follow(ctx context.Context, id int64) error
	Followed() []int64
	Trade(ctx context.Context, req models.TradeRequest) (*models.TradeResult, error)
	Deposit(ctx context.Context, req models.DepositRequest) (*models.Transaction, error)
	Withdraw(ctx context.Context, req models.WithdrawRequest) (*models.Transaction, error)
}

// DashboardHandler serves the polled dashboard and the actions issued from it.
type DashboardHandler struct {
	dash    DashboardService
	session usecase.SessionView
	rl      *ratelimit.Limiter
	log     *applogger.Logger
}

func NewDashboardHandler(d DashboardService, s usecase.SessionView, rl *ratelimit.Limiter, l *applogger.Logger) *DashboardHandler {
	models.MustRegisterValidations(pkghttp.Validator())
	if l == nil {
		l = applogger.Nop()
	}
	if rl == nil {
		rl = ratelimit.New()
	}
	return &DashboardHandler{dash: d, session: s, rl: rl, log: l.Named("api.dashboard")}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	auth := h.requireSession
	g.GET("/dashboard", h.Dashboard, auth)
	g.GET("/quotes/:symbol", h.Quote, auth)
	g.GET("/signals/followed", h.Followed, auth)
	g.POST("/signals/:id/follow", h.Follow, auth)

	actions := RateLimit(h.rl, "actions", 10, 1)
	g.POST("/trade", h.Trade, auth, actions)
	g.POST("/portfolio/deposit", h.Deposit, auth, actions)
	g.POST("/portfolio/withdraw", h.Withdraw, auth, actions)
}

func (h *DashboardHandler) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.session == nil || !h.session.IsAuthenticated() {
			return pkghttp.AppErrorResponse(c, pkghttp.AuthExpiredError(errors.New("not logged in")))
		}
		return next(c)
	}
}

func (h *DashboardHandler) Dashboard(c echo.Context) error {
	return pkghttp.SuccessResponse(c, h.dash.View())
}

func (h *DashboardHandler) Quote(c echo.Context) error {
	symbol := util.NormalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestError("symbol required"))
	}
	q, err := h.dash.Quote(c.Request().Context(), symbol)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, q)
}

func (h *DashboardHandler) Followed(c echo.Context) error {
	return pkghttp.SuccessResponse(c, h.dash.Followed())
}

func (h *DashboardHandler) Follow(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return pkghttp.AppErrorResponse(c, pkghttp.BadRequestErrorf("invalid signal id %q", c.Param("id")))
	}
	if err := h.dash.Follow(c.Request().Context(), id); err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, map[string]interface{}{"id": id, "followed": true})
}

func (h *DashboardHandler) Trade(c echo.Context) error {
	req := &models.TradeRequest{}
	if verr := pkghttp.ReadAndValidateRequest(c, req); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	res, err := h.dash.Trade(c.Request().Context(), *req)
	if err != nil {
		h.log.Info("trade rejected", applogger.String("symbol", req.Symbol), applogger.String("code", pkghttp.CodeOf(err)))
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.CreatedResponse(c, res)
}

func (h *DashboardHandler) Deposit(c echo.Context) error {
	req := &models.DepositRequest{}
	if verr := pkghttp.ReadAndValidateRequest(c, req); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	res, err := h.dash.Deposit(c.Request().Context(), *req)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, res)
}

func (h *DashboardHandler) Withdraw(c echo.Context) error {
	req := &models.WithdrawRequest{}
	if verr := pkghttp.ReadAndValidateRequest(c, req); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	res, err := h.dash.Withdraw(c.Request().Context(), *req)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, res)
}
