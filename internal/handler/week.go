package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aleixpons/padel-club-backend/internal/service"
)

// WeekHandler serves the weekly board.
type WeekHandler struct {
	Weeks *service.Weeks
}

func NewWeekHandler(w *service.Weeks) *WeekHandler { return &WeekHandler{Weeks: w} }

// Board handles GET /v1/week. An optional ?date=dd-mm-yyyy selects
// another week; the default is the current one.
func (h *WeekHandler) Board(c echo.Context) error {
	id, err := memberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	view, err := h.Weeks.For(c.Request().Context(), strconv.FormatUint(id, 10), c.QueryParam("date"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}
