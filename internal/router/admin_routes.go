package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/aleixpons/padel-club-backend/internal/config"
	"github.com/aleixpons/padel-club-backend/internal/handler"
	"github.com/aleixpons/padel-club-backend/internal/middleware"
	"github.com/aleixpons/padel-club-backend/internal/model"
)

// RegisterAdmin registers the admin-only surface: member and club
// administration, reservations, the full ledger, monthly batches and
// the weekly roll-forward.
func RegisterAdmin(e *echo.Echo, cfg config.Config, rdb *redis.Client,
	s *handler.SlotHandler, l *handler.LedgerHandler, m *handler.MemberHandler) {

	g := e.Group("/v1",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)

	// Member directory.
	g.GET("/members", m.List)
	g.POST("/members", m.Create)
	g.PUT("/members/:id", m.Update)
	g.DELETE("/members/:id", m.Remove)

	// Clubs and the hour schedule.
	g.POST("/clubs", m.CreateClub)
	g.PUT("/hours", m.SetHourRate)

	// Slot administration.
	g.POST("/slots/:id/expire", s.Expire)
	g.DELETE("/slots/:id", s.Remove)
	g.POST("/slots/roll-forward", s.RollForward)
	g.GET("/slots-unreserved", s.UnreservedClosed)

	// Reservations.
	g.POST("/slots/:id/reserve", s.Reserve)
	g.GET("/reservations", s.ReservationList)
	g.GET("/reservations/:id", s.Reservation)
	g.DELETE("/reservations/:id", s.Unreserve)

	// Ledger.
	g.GET("/ledger", l.All)
	g.POST("/ledger", l.Record)
	g.POST("/ledger/:id/settle", l.Settle)
	g.POST("/ledger/:id/retract", l.Retract)
	g.DELETE("/ledger/:id", l.Remove)
	g.GET("/ledger/members/:ref", l.Statement)
	g.GET("/ledger/batches", l.Batches)
	g.POST("/ledger/batches", l.ApplyBatch)
	g.DELETE("/ledger/batches/:id", l.RemoveBatch)
}
