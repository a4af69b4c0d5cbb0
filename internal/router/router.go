package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/filmreview/film-manager/internal/handler"
	"github.com/filmreview/film-manager/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication:
// the health check, the presence push socket and the retained status
// lookups. The socket and status endpoints are readable by guests so
// dashboards can watch without a session.
func RegisterRoutes(e *echo.Echo, ws *handler.WSHandler, st *handler.StatusHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/ws", ws.Serve)
	e.GET("/v1/online", st.Online)
	e.GET("/v1/films/:id/status", st.FilmStatus)
}

// RegisterAuth registers the session endpoints. Register/login/refresh
// live under /v1/auth without middleware; logout and /v1/me need a valid
// access token because they act on the caller's identity.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterAPI registers the protected resource endpoints under /v1. The
// selection route additionally runs through the rate limiter: it is the
// contended write of the system and the cheapest to spam.
func RegisterAPI(e *echo.Echo, jwtSecret string, limiter echo.MiddlewareFunc,
	u *handler.UserHandler, f *handler.FilmHandler, r *handler.ReviewHandler, s *handler.SelectionHandler) {

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.GET("/users", u.List)
	auth.GET("/users/:id", u.Get)

	auth.POST("/films", f.Create)
	auth.GET("/films", f.List)
	auth.GET("/films/:id", f.Get)
	auth.PUT("/films/:id", f.Update)
	auth.DELETE("/films/:id", f.Delete)

	auth.POST("/films/:id/reviews", r.Issue)
	auth.GET("/films/:id/reviews", r.List)
	auth.GET("/films/:id/reviews/:reviewerId", r.Get)
	auth.PUT("/films/:id/reviews/:reviewerId", r.Complete)
	auth.DELETE("/films/:id/reviews/:reviewerId", r.Delete)

	auth.POST("/films/:id/selection", s.Select, limiter)
}
