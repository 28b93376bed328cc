package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Health is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports 503 until every dependency answers a ping.  Named
// checks are run in turn; a nil check is skipped (e.g. Redis disabled).
func Ready(checks map[string]func(context.Context) error) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        status := echo.Map{}
        code := http.StatusOK
        for name, check := range checks {
            if check == nil {
                status[name] = "disabled"
                continue
            }
            if err := check(ctx); err != nil {
                status[name] = "down"
                code = http.StatusServiceUnavailable
                continue
            }
            status[name] = "up"
        }
        return c.JSON(code, status)
    }
}
