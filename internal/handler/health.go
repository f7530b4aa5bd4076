package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness check.  It does not call the clinic API.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
