package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// DashboardHandler serves the staff overview and the global search.
type DashboardHandler struct {
	Base
	Dashboard *repository.DashboardRepo
	Search    *repository.SearchRepo
}

func NewDashboardHandler(b Base, d *repository.DashboardRepo, s *repository.SearchRepo) *DashboardHandler {
	return &DashboardHandler{Base: b, Dashboard: d, Search: s}
}

// Stats computes the dashboard as of today. Room counts come from the
// derived occupancy, not from the manual status flag.
func (h *DashboardHandler) Stats(c echo.Context) error {
	if _, err := manage(c, policy.Allocations); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	st, err := h.Dashboard.Stats(ctx, ledger.Day(h.now()))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Find runs ?q= against users and rooms.
func (h *DashboardHandler) Find(c echo.Context) error {
	if _, err := manage(c, policy.Allocations); err != nil {
		return h.fail(c, err)
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if len(q) < 2 {
		return h.fail(c, ledger.NewValidationError("q", "must be at least 2 characters"))
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	res, err := h.Search.Search(ctx, q)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
