// Package router maps the HTTP surface onto handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/aleixpons/padel-club-backend/internal/config"
	"github.com/aleixpons/padel-club-backend/internal/handler"
	"github.com/aleixpons/padel-club-backend/internal/middleware"
	"github.com/aleixpons/padel-club-backend/internal/model"
)

// RegisterRoutes registers the unauthenticated surface: health check
// and the auth endpoints.
func RegisterRoutes(e *echo.Echo, a *handler.AuthHandler) {
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/login/external", a.LoginExternal)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// RegisterMember registers the endpoints available to every
// authenticated member: the weekly board, slot browsing, joining and
// leaving, and the personal statement. rdb may be nil, disabling the
// rate limiter and the board cache.
func RegisterMember(e *echo.Echo, cfg config.Config, rdb *redis.Client,
	a *handler.AuthHandler, s *handler.SlotHandler, l *handler.LedgerHandler,
	w *handler.WeekHandler, m *handler.MemberHandler) {

	g := e.Group("/v1",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleMember, model.RolePriority, model.RoleAdmin),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)

	g.GET("/me", a.Me)

	// The board is the hot read; cache it briefly.
	g.GET("/week", w.Board, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	g.GET("/slots", s.List)
	g.GET("/slots/:id", s.Get)
	g.POST("/slots", s.Open)
	g.POST("/slots/:id/join", s.Join)
	g.POST("/slots/:id/leave", s.Leave)

	g.GET("/ledger/me", l.Statement)

	g.GET("/clubs", m.ListClubs)
	g.GET("/members/:id", m.Get)
}
