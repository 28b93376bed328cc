package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// ComplaintHandler serves complaints raised by residents.
type ComplaintHandler struct {
	Base
	Complaints *repository.ComplaintRepo
}

func NewComplaintHandler(b Base, r *repository.ComplaintRepo) *ComplaintHandler {
	return &ComplaintHandler{Base: b, Complaints: r}
}

type complaintReq struct {
	RoomID      *uint64 `json:"room_id"`
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=5000"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

// Create files a complaint authored by the caller.
func (h *ComplaintHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	if !policy.CanCreateOwn(a, policy.Complaints) {
		return h.fail(c, policy.ErrDenied)
	}
	var req complaintReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	m := model.Complaint{UserID: a.ID, RoomID: req.RoomID, Title: req.Title, Description: req.Description}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Complaints.Create(ctx, &m); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "create", "complaint", m.ID, m.Title)
	return c.JSON(http.StatusCreated, m)
}

// List returns complaints under the caller's scope.
func (h *ComplaintHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Complaints)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Complaints.List(ctx, scope, c.QueryParam("status"), p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(items, p))
}

// Get returns one complaint under the caller's scope.
func (h *ComplaintHandler) Get(c echo.Context) error {
	_, scope, err := scope(c, policy.Complaints)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	m, err := h.Complaints.Get(ctx, scope, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// SetStatus moves a complaint through open, in_progress and resolved.
func (h *ComplaintHandler) SetStatus(c echo.Context) error {
	if _, err := manage(c, policy.Complaints); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	switch req.Status {
	case model.ComplaintOpen, model.ComplaintInProgress, model.ComplaintResolved:
	default:
		return h.fail(c, ledger.NewValidationError("status", "must be one of: open, in_progress, resolved"))
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	m, err := h.Complaints.SetStatus(ctx, id, req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "update", "complaint", id, "status set to "+req.Status)
	h.notify(c, m.UserID, "Complaint updated", "Your complaint \""+m.Title+"\" is now "+req.Status+".")
	return c.JSON(http.StatusOK, m)
}
