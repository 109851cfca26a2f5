package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentMemberID extracts the caller's member id from the context as
// a string, "anon" when the request is unauthenticated. Used for rate
// limit and cache key construction.
func currentMemberID(c echo.Context) string {
	switch v := c.Get("member_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	case uint64:
		return fmt.Sprintf("%d", v)
	}
	return "anon"
}
