package api

import (
	"context"
	"strconv"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdminService is the superuser-gated admin use case.
type AdminService interface {
	Dashboard(ctx context.Context) (*models.AdminDashboard, error)
	Users(ctx context.Context, page models.Page) ([]*models.User, error)
	CreateUser(ctx context.Context, req models.AdminUserCreate) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, req models.AdminUserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	Trades(ctx context.Context, page models.Page) ([]*models.AdminTrade, error)
}

type AdminHandler struct {
	admin AdminService
	log   *applogger.Logger
}

func NewAdminHandler(a AdminService, l *applogger.Logger) *AdminHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &AdminHandler{admin: a, log: l.Named("api.admin")}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/admin")
	g.GET("/dashboard", h.Dashboard)
	g.GET("/users", h.Users)
	g.POST("/users", h.CreateUser)
	g.PATCH("/users/:id", h.UpdateUser)
	g.DELETE("/users/:id", h.DeleteUser)
	g.GET("/trades", h.Trades)
}

func (h *AdminHandler) Dashboard(c echo.Context) error {
	d, err := h.admin.Dashboard(c.Request().Context())
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, d)
}

func (h *AdminHandler) Users(c echo.Context) error {
	page := &models.Page{}
	if verr := pkghttp.ReadAndValidateRequest(c, page); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	users, err := h.admin.Users(c.Request().Context(), *page)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.ListResponse(c, users, int64(len(users)))
}

func (h *AdminHandler) CreateUser(c echo.Context) error {
	req := &models.AdminUserCreate{}
	if verr := pkghttp.ReadAndValidateRequest(c, req); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	u, err := h.admin.CreateUser(c.Request().Context(), *req)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	h.log.Info("user created", applogger.String("username", u.Username))
	return pkghttp.CreatedResponse(c, u)
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	req := &models.AdminUserUpdate{}
	if verr := pkghttp.ReadAndValidateRequest(c, req); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	u, err := h.admin.UpdateUser(c.Request().Context(), id, *req)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, u)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	if err := h.admin.DeleteUser(c.Request().Context(), id); err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	h.log.Info("user deleted", applogger.Int64("id", id))
	return pkghttp.NoContentResponse(c)
}

func (h *AdminHandler) Trades(c echo.Context) error {
	page := &models.Page{}
	if verr := pkghttp.ReadAndValidateRequest(c, page); verr != nil {
		return pkghttp.BadRequestResponse(c, verr)
	}
	trades, err := h.admin.Trades(c.Request().Context(), *page)
	if err != nil {
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.ListResponse(c, trades, int64(len(trades)))
}

func userID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, pkghttp.BadRequestErrorf("invalid user id %q", c.Param("id"))
	}
	return id, nil
}
