package api

import (
	"context"

	"LeoneAI/internal/domain/models"
	pkghttp "LeoneAI/pkg/http"
	applogger "LeoneAI/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SettingsService loads and saves the local settings blob.
type SettingsService interface {
	Get(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}

type SettingsHandler struct {
	settings SettingsService
	log      *applogger.Logger
}

func NewSettingsHandler(s SettingsService, l *applogger.Logger) *SettingsHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &SettingsHandler{settings: s, log: l.Named("api.settings")}
}

func (h *SettingsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/settings", h.Get)
	e.PUT("/api/settings", h.Put)
}

func (h *SettingsHandler) Get(c echo.Context) error {
	s, err := h.settings.Get(c.Request().Context())
	if err != nil {
		h.log.Error("load settings", applogger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	return pkghttp.SuccessResponse(c, s)
}

// Put merges the body over the current settings so omitted fields keep
// their value, then saves the whole blob.
func (h *SettingsHandler) Put(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := h.settings.Get(ctx)
	if err != nil {
		h.log.Error("load settings", applogger.Error(err))
		return pkghttp.InternalServerErrorResponse(c)
	}
	if err := c.Bind(&s); err != nil {
		return pkghttp.BadRequestResponse(c, []pkghttp.ValidationError{{Code: "ERR_BIND", Message: "malformed settings body"}})
	}
	if err := h.settings.Save(ctx, s); err != nil {
		if pkghttp.CodeOf(err) == "" {
			h.log.Error("save settings", applogger.Error(err))
		}
		return pkghttp.AppErrorResponse(c, err)
	}
	return pkghttp.SuccessResponse(c, s)
}
