package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/hostel-residence/internal/handler"    // handlers that implement business logic
	"github.com/iliyamo/hostel-residence/internal/middleware" // JWT authentication, rate limiting and caching
)

// Stack carries the middleware shared by route groups. Nil entries are
// skipped, so Redis-backed limits and caching can be disabled.
type Stack struct {
	JWTSecret string
	Limit     echo.MiddlewareFunc // per-user token bucket on /v1
	AuthLimit echo.MiddlewareFunc // per-ip token bucket on /v1/auth
	Cache     echo.MiddlewareFunc // response cache for cacheable listings
}

func only(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Protected returns the /v1 group that requires a valid access token.
// The rate limit runs after JWTAuth so buckets are keyed by user.
func Protected(e *echo.Echo, s Stack) *echo.Group {
	return e.Group("/v1", only(middleware.JWTAuth(s.JWTSecret), s.Limit)...)
}

// RegisterRoutes registers routes that do not require authentication:
// liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready)
	}
}

// RegisterAuth registers all authentication‑related routes.  Unauthenticated
// operations live under /v1/auth, while the profile lives on the protected
// group.
func RegisterAuth(e *echo.Echo, g *echo.Group, a *handler.AuthHandler, s Stack) {
	pub := e.Group("/v1/auth", only(s.AuthLimit)...)
	pub.POST("/register", a.Register)
	pub.POST("/login", a.Login)
	// Rotates the refresh token.
	pub.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	pub.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication; a refresh token in the
	// body is enough to end that session.
	pub.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout, only(s.AuthLimit)...)

	g.GET("/me", a.Me)
	g.PATCH("/me", a.UpdateMe)
}
