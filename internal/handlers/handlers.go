package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/campusnet/backend/internal/models"
	"github.com/campusnet/backend/pkg/storage"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// getUserIDFromContext returns the authenticated user's ID placed in the
// context by the JWT middleware.
func getUserIDFromContext(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok || id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Missing or invalid token")
	}
	return id, nil
}

// paramUint parses a numeric path parameter
func paramUint(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(v), nil
}

// httpError maps service errors to HTTP responses. Unknown errors become a
// 500 without leaking internals.
func httpError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Resource not found")
	case errors.Is(err, models.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "You do not have access to this resource")
	case errors.Is(err, models.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, models.ErrInvalidParent),
		errors.Is(err, models.ErrNotIdeaPost),
		errors.Is(err, models.ErrSelfFollow),
		errors.Is(err, models.ErrSelfChat),
		errors.Is(err, models.ErrEmptyMessage),
		errors.Is(err, storage.ErrUnknownFolder):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, storage.ErrUnsupportedType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, models.ErrClientRefUsed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return echo.NewHTTPError(http.StatusConflict, "Resource already exists")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}
