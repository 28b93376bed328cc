package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// MaintenanceHandler serves maintenance requests.
type MaintenanceHandler struct {
	Base
	Requests *repository.MaintenanceRepo
	Users    *repository.UserRepo
}

func NewMaintenanceHandler(b Base, r *repository.MaintenanceRepo, u *repository.UserRepo) *MaintenanceHandler {
	return &MaintenanceHandler{Base: b, Requests: r, Users: u}
}

type maintenanceReq struct {
	RoomID        uint64           `json:"room_id" validate:"required"`
	Title         string           `json:"title" validate:"required,max=200"`
	Description   string           `json:"description" validate:"required,max=5000"`
	Priority      string           `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	EstimatedCost *decimal.Decimal `json:"estimated_cost"`
}

type assignReq struct {
	AssignedTo    uint64           `json:"assigned_to" validate:"required"`
	EstimatedCost *decimal.Decimal `json:"estimated_cost"`
}

type maintenanceStatusReq struct {
	Status     string           `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
	ActualCost *decimal.Decimal `json:"actual_cost"`
}

// money converts an optional amount, rejecting negatives.
func money(field string, d *decimal.Decimal) (decimal.NullDecimal, error) {
	if d == nil {
		return decimal.NullDecimal{}, nil
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, ledger.NewValidationError(field, "must not be negative")
	}
	return decimal.NewNullDecimal(*d), nil
}

// Create opens a pending request for a room.
func (h *MaintenanceHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	if !policy.CanCreateOwn(a, policy.Maintenance) {
		return h.fail(c, policy.ErrDenied)
	}
	var req maintenanceReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	est, err := money("estimated_cost", req.EstimatedCost)
	if err != nil {
		return h.fail(c, err)
	}
	prio := req.Priority
	if prio == "" {
		prio = model.PriorityMedium
	}
	m := model.MaintenanceRequest{
		UserID: a.ID, RoomID: req.RoomID, Title: req.Title, Description: req.Description,
		Priority: prio, EstimatedCost: est,
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Requests.Create(ctx, &m); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "create", "maintenance_request", m.ID, m.Title)
	return c.JSON(http.StatusCreated, m)
}

// List returns requests under the caller's scope.
func (h *MaintenanceHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Maintenance)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	f := repository.MaintenanceFilter{Status: c.QueryParam("status"), Priority: c.QueryParam("priority")}
	if f.RoomID, err = queryUint(c, "room_id"); err != nil {
		return h.fail(c, err)
	}
	if f.AssignedTo, err = queryUint(c, "assigned_to"); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Requests.List(ctx, scope, f, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(items, p))
}

// Get returns one request under the caller's scope.
func (h *MaintenanceHandler) Get(c echo.Context) error {
	_, scope, err := scope(c, policy.Maintenance)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	m, err := h.Requests.Get(ctx, scope, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Assign hands the request to a staff member.
func (h *MaintenanceHandler) Assign(c echo.Context) error {
	if _, err := manage(c, policy.Maintenance); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req assignReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	est, err := money("estimated_cost", req.EstimatedCost)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Requests.Get(ctx, policy.All, id); err != nil {
		return h.fail(c, err)
	}
	assignee, err := h.Users.Get(ctx, policy.All, req.AssignedTo)
	if err != nil {
		return h.fail(c, ledger.NewValidationError("assigned_to", "unknown user"))
	}
	if !model.IsStaff(assignee.Role) || !assignee.IsActive {
		return h.fail(c, ledger.NewValidationError("assigned_to", "must be an active staff member"))
	}
	m, err := h.Requests.Assign(ctx, id, assignee.ID, est)
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "assign", "maintenance_request", id, "assigned to "+assignee.Email)
	h.notify(c, assignee.ID, "Maintenance assigned", "You have been assigned \""+m.Title+"\".")
	return c.JSON(http.StatusOK, m)
}

// SetStatus changes the request status. Completing it stamps completed_at.
func (h *MaintenanceHandler) SetStatus(c echo.Context) error {
	if _, err := manage(c, policy.Maintenance); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req maintenanceStatusReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	actual, err := money("actual_cost", req.ActualCost)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Requests.Get(ctx, policy.All, id); err != nil {
		return h.fail(c, err)
	}
	m, err := h.Requests.SetStatus(ctx, id, req.Status, actual, h.now())
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "update", "maintenance_request", id, "status set to "+req.Status)
	h.notify(c, m.UserID, "Maintenance updated", "Your request \""+m.Title+"\" is now "+req.Status+".")
	return c.JSON(http.StatusOK, m)
}
