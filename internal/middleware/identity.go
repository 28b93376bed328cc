package middleware

// identity.go holds the helpers that read the authenticated caller back out
// of the Echo context.  JWTAuth is the only writer.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hostel-residence/internal/policy"
)

// ActorFrom returns the caller stored by JWTAuth.  ok is false on routes
// that are not behind JWTAuth.
func ActorFrom(c echo.Context) (policy.Actor, bool) {
    a, ok := c.Get(ctxActor).(policy.Actor)
    return a, ok && a.ID != 0
}

// userKey identifies the caller in per-user cache keys.  It returns
// "guest" when no user is authenticated.
func userKey(c echo.Context) string {
    if a, ok := ActorFrom(c); ok {
        return strconv.FormatUint(a.ID, 10)
    }
    return "guest"
}

// roleKey returns the caller's role, or "guest".
func roleKey(c echo.Context) string {
    if a, ok := ActorFrom(c); ok {
        return a.Role
    }
    return "guest"
}
