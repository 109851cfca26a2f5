// Package handler contains the HTTP handlers of the API. Handlers
// bind input, call one service operation and translate its error kind
// into an HTTP status; no business rule lives here.
package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aleixpons/padel-club-backend/internal/apperror"
)

// Health reports liveness for load balancers and monitoring.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// fail renders a service error with the status its kind maps to.
func fail(c echo.Context, err error) error {
	return c.JSON(apperror.Status(err), echo.Map{"error": err.Error()})
}

// memberID extracts the authenticated member id stored by the JWT
// middleware. The claim arrives as whatever type the JSON decoder
// produced.
func memberID(c echo.Context) (uint64, error) {
	switch v := c.Get("member_id").(type) {
	case float64:
		return uint64(v), nil
	case string:
		return strconv.ParseUint(v, 10, 64)
	case uint64:
		return v, nil
	}
	return 0, fmt.Errorf("no member in context")
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) int {
	if s := c.QueryParam(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}
