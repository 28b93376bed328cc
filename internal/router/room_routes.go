package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/handler"
	"github.com/iliyamo/hostel-residence/internal/middleware"
	"github.com/iliyamo/hostel-residence/internal/model"
)

// RegisterRooms registers the room inventory and the allocation ledger.
// Reads are open to every authenticated role; the handlers narrow them
// through the policy.
func RegisterRooms(g *echo.Group, r *handler.RoomHandler, a *handler.AllocationHandler) {
	admin := middleware.RequireRole(model.RoleAdmin)
	staff := middleware.RequireStaff()

	// ---- Rooms ----
	g.GET("/rooms", r.List)
	// static segments are registered before /rooms/:id
	g.GET("/rooms/available", r.Available)
	g.GET("/rooms/stats", r.Stats)
	g.GET("/rooms/:id", r.Get)
	g.GET("/rooms/:id/availability", r.Availability)
	g.GET("/rooms/:id/allocations/active", r.ActiveAllocations, staff)
	g.POST("/rooms", r.Create, admin)
	g.PUT("/rooms/:id", r.Update, admin)
	g.PATCH("/rooms/:id/status", r.SetStatus, staff)
	g.DELETE("/rooms/:id", r.Delete, admin)

	// ---- Allocations ----
	g.GET("/allocations", a.List)
	g.GET("/allocations/:id", a.Get)
	g.POST("/allocations", a.Create, staff)
	g.POST("/allocations/:id/terminate", a.Terminate, staff)
	g.GET("/rent/quote", a.Quote)
}
