package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// AuditHandler exposes the audit trail to admins.
type AuditHandler struct {
	Base
	Logs *repository.AuditRepo
}

func NewAuditHandler(b Base, r *repository.AuditRepo) *AuditHandler {
	return &AuditHandler{Base: b, Logs: r}
}

// List returns audit entries filtered by user_id, model and action.
func (h *AuditHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.AuditLogs)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	f := repository.AuditFilter{ModelName: c.QueryParam("model"), Action: c.QueryParam("action")}
	if f.UserID, err = queryUint(c, "user_id"); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Logs.List(ctx, scope, f, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(items, p))
}

// NotificationHandler lists the caller's own notifications.
type NotificationHandler struct {
	Base
	Notifications *repository.NotificationRepo
}

func NewNotificationHandler(b Base, r *repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{Base: b, Notifications: r}
}

func (h *NotificationHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Notifications)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Notifications.List(ctx, scope, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(items, p))
}
