package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/handler"
	"github.com/iliyamo/hostel-residence/internal/middleware"
	"github.com/iliyamo/hostel-residence/internal/model"
)

// RegisterAdmin registers account administration, the dashboard, search,
// audit and export endpoints.
func RegisterAdmin(g *echo.Group, u *handler.UserHandler, d *handler.DashboardHandler,
	a *handler.AuditHandler, x *handler.ExportHandler) {
	admin := middleware.RequireRole(model.RoleAdmin)
	staff := middleware.RequireStaff()

	// ---- Users ----
	g.GET("/users", u.List, staff)
	g.GET("/users/stats", u.Stats, staff)
	g.GET("/users/:id", u.Get, staff)
	g.POST("/users", u.Create, admin)
	g.PATCH("/users/:id", u.Update, admin)
	g.DELETE("/users/:id", u.Deactivate, admin)
	g.POST("/users/:id/verify-email", u.VerifyEmail, admin)
	g.POST("/users/:id/verify-phone", u.VerifyPhone, admin)

	g.GET("/dashboard/stats", d.Stats, staff)
	g.GET("/search", d.Find, staff)
	g.GET("/audit-logs", a.List, admin)
	g.GET("/export/:kind", x.Export, admin)
}
