package helpers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetClientKey returns the identity requests are rate limited by.
func GetClientKey(c echo.Context) string {
	return c.RealIP()
}

// ParseIDParam reads a positive integer path parameter.
func ParseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
