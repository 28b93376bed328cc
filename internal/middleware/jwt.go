package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/hostel-residence/internal/model"  // role names
    "github.com/iliyamo/hostel-residence/internal/policy" // the authenticated actor
    "github.com/iliyamo/hostel-residence/internal/utils"  // access token parsing
)

// Context keys set by JWTAuth.
const (
    ctxUserID = "user_id"
    ctxRole   = "role"
    ctxActor  = "actor"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller in the request context.  Handlers read it back with
// ActorFrom; "user_id" (uint64) and "role" (string) are also set for
// middleware further down the chain.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            // Signature, algorithm and expiry are checked by ParseAccessToken.
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            // A token minted for a role we do not know is as good as no token.
            if !knownRole(claims.Role) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            id, _ := claims.UserID()

            c.Set(ctxUserID, id)
            c.Set(ctxRole, claims.Role)
            c.Set(ctxActor, policy.Actor{ID: id, Role: claims.Role})
            return next(c)
        }
    }
}

func knownRole(r string) bool {
    switch r {
    case model.RoleStudent, model.RoleWarden, model.RoleAdmin:
        return true
    }
    return false
}
