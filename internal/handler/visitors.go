package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// VisitorHandler serves visitor registration and approval.
type VisitorHandler struct {
	Base
	Visitors *repository.VisitorRepo
}

func NewVisitorHandler(b Base, r *repository.VisitorRepo) *VisitorHandler {
	return &VisitorHandler{Base: b, Visitors: r}
}

type visitorView struct {
	model.Visitor
	VisitDate string `json:"visit_date"`
}

func newVisitorView(v model.Visitor) visitorView {
	return visitorView{Visitor: v, VisitDate: v.VisitDate.UTC().Format(ledger.DateLayout)}
}

type visitorReq struct {
	VisitorName string `json:"visitor_name" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"required,max=20"`
	Purpose     string `json:"purpose" validate:"required,max=500"`
	VisitDate   string `json:"visit_date" validate:"required,datetime=2006-01-02"`
}

type decisionReq struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// Create registers a visitor hosted by the caller. Visits cannot be
// registered for a past date.
func (h *VisitorHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	if !policy.CanCreateOwn(a, policy.Visitors) {
		return h.fail(c, policy.ErrDenied)
	}
	var req visitorReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	day, err := parseDay("visit_date", req.VisitDate)
	if err != nil {
		return h.fail(c, err)
	}
	if day.Before(ledger.Day(h.now())) {
		return h.fail(c, ledger.NewValidationError("visit_date", "must not be in the past"))
	}
	v := model.Visitor{UserID: a.ID, VisitorName: req.VisitorName, Phone: req.Phone, Purpose: req.Purpose, VisitDate: day}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Visitors.Create(ctx, &v); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "create", "visitor", v.ID, v.VisitorName+" on "+req.VisitDate)
	return c.JSON(http.StatusCreated, newVisitorView(v))
}

// List returns visitors under the caller's scope.
func (h *VisitorHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Visitors)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Visitors.List(ctx, scope, c.QueryParam("status"), p)
	if err != nil {
		return h.fail(c, err)
	}
	views := make([]visitorView, 0, len(items))
	for _, v := range items {
		views = append(views, newVisitorView(v))
	}
	return c.JSON(http.StatusOK, list(views, p))
}

// Get returns one visitor under the caller's scope.
func (h *VisitorHandler) Get(c echo.Context) error {
	_, scope, err := scope(c, policy.Visitors)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	v, err := h.Visitors.Get(ctx, scope, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newVisitorView(v))
}

// Decide approves or rejects a pending visitor.
func (h *VisitorHandler) Decide(c echo.Context) error {
	a, err := manage(c, policy.Visitors)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req decisionReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	v, err := h.Visitors.Decide(ctx, id, a.ID, req.Status, h.now())
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, req.Status, "visitor", id, v.VisitorName)
	h.notify(c, v.UserID, "Visitor "+req.Status,
		"Your visitor "+v.VisitorName+" on "+v.VisitDate.Format(ledger.DateLayout)+" was "+req.Status+".")
	return c.JSON(http.StatusOK, newVisitorView(v))
}
