package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/handler"
	"github.com/iliyamo/hostel-residence/internal/middleware"
)

// Resident bundles the handlers for day-to-day residence records.
type Resident struct {
	Attendance    *handler.AttendanceHandler
	Complaints    *handler.ComplaintHandler
	Maintenance   *handler.MaintenanceHandler
	Payments      *handler.PaymentHandler
	Notices       *handler.NoticeHandler
	Visitors      *handler.VisitorHandler
	Feedback      *handler.FeedbackHandler
	Notifications *handler.NotificationHandler
	Events        *handler.EventHandler
}

// RegisterResident registers records created by residents and settled by
// staff. cache fronts the notice listing and may be nil.
func RegisterResident(g *echo.Group, h Resident, cache echo.MiddlewareFunc) {
	staff := middleware.RequireStaff()

	// ---- Attendance ----
	g.POST("/attendance/mark", h.Attendance.Mark)
	g.POST("/attendance", h.Attendance.Upsert, staff)
	g.GET("/attendance", h.Attendance.List)
	g.GET("/attendance/stats", h.Attendance.Stats)

	// ---- Complaints ----
	g.POST("/complaints", h.Complaints.Create)
	g.GET("/complaints", h.Complaints.List)
	g.GET("/complaints/:id", h.Complaints.Get)
	g.PATCH("/complaints/:id/status", h.Complaints.SetStatus, staff)

	// ---- Maintenance ----
	g.POST("/maintenance", h.Maintenance.Create)
	g.GET("/maintenance", h.Maintenance.List)
	g.GET("/maintenance/:id", h.Maintenance.Get)
	g.PATCH("/maintenance/:id/assign", h.Maintenance.Assign, staff)
	g.PATCH("/maintenance/:id/status", h.Maintenance.SetStatus, staff)

	// ---- Payments ----
	g.POST("/payments", h.Payments.Create, staff)
	g.GET("/payments", h.Payments.List)
	g.GET("/payments/pending", h.Payments.Pending)
	g.GET("/payments/stats", h.Payments.Stats)
	g.GET("/payments/:id", h.Payments.Get)
	g.PATCH("/payments/:id/status", h.Payments.SetStatus, staff)

	// ---- Notices ----
	if cache != nil {
		g.GET("/notices", h.Notices.List, cache)
	} else {
		g.GET("/notices", h.Notices.List)
	}
	g.GET("/notices/:id", h.Notices.Get)
	g.POST("/notices", h.Notices.Create, staff)
	g.PUT("/notices/:id", h.Notices.Update, staff)
	g.DELETE("/notices/:id", h.Notices.Delete, staff)

	// ---- Visitors ----
	g.POST("/visitors", h.Visitors.Create)
	g.GET("/visitors", h.Visitors.List)
	g.GET("/visitors/:id", h.Visitors.Get)
	g.PATCH("/visitors/:id/decision", h.Visitors.Decide, staff)

	// ---- Feedback & notifications ----
	g.POST("/feedback", h.Feedback.Create)
	g.GET("/feedback", h.Feedback.List)
	g.GET("/feedback/stats", h.Feedback.Stats)
	g.GET("/notifications", h.Notifications.List)

	// ---- Events ----
	g.GET("/events", h.Events.List)
	g.GET("/events/:id", h.Events.Get)
	g.POST("/events", h.Events.Create, staff)
	g.PUT("/events/:id", h.Events.Update, staff)
	g.DELETE("/events/:id", h.Events.Delete, staff)
	g.POST("/events/:id/join", h.Events.Join)
	g.POST("/events/:id/leave", h.Events.Leave)
}
