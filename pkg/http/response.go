package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// LoginPath is where an expired session is sent back to.
const LoginPath = "/login"

// DataResponse writes API response with status and data.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// ListResponse writes paginated list response.
func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return DataResponse(c, http.StatusOK, &ListDataResponse{
		Rows:  rows,
		Total: total,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BannerResponse writes data alongside per-resource error banners.
func BannerResponse(c echo.Context, data interface{}, banners []*AppError) error {
	return c.JSON(http.StatusOK, APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
		Banners: banners,
	})
}

// CreatedResponse writes created response.
func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

// NoContentResponse writes no content response.
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// BadRequestResponse writes bad request error.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// InternalServerErrorResponse writes internal server error.
func InternalServerErrorResponse(c echo.Context) error {
	return DataResponse(c, http.StatusInternalServerError, "Something went wrong")
}

// AppErrorResponse writes application error response. An expired session
// becomes a 401 that points the caller at the login page.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return InternalServerErrorResponse(c)
	}
	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	resp := APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Banners: []*AppError{appErr},
	}
	if appErr.Code == CodeAuthExpired {
		resp.Status = http.StatusUnauthorized
		resp.Message = http.StatusText(http.StatusUnauthorized)
		resp.Redirect = LoginPath
	}
	return c.JSON(resp.Status, resp)
}
